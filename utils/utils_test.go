package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFileTail(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tail.log")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0600))

	data, err := ReadFileTail(path, 4)
	require.NoError(t, err)
	assert.Equal(t, "6789", string(data))

	// maxLen larger than the file returns everything
	data, err = ReadFileTail(path, 100)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))

	// maxLen 0 means no limit
	data, err = ReadFileTail(path, 0)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))

	_, err = ReadFileTail(filepath.Join(t.TempDir(), "missing.log"), 4)
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	t.Parallel()

	even := Filter([]int{1, 2, 3, 4, 5, 6}, func(v int) bool {
		return v%2 == 0
	})
	assert.Equal(t, []int{2, 4, 6}, even)

	none := Filter([]int{1, 3}, func(v int) bool {
		return v%2 == 0
	})
	assert.Nil(t, none)
}
