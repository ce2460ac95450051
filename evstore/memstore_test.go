package evstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHandle(t *testing.T) {
	t.Parallel()

	h, err := NewHandle()
	require.NoError(t, err)

	parsed, err := ParseHandle(h.String())
	require.NoError(t, err)
	assert.Equal(t, h.Bytes(), parsed.Bytes())

	_, err = ParseHandle("not hex")
	assert.Error(t, err)

	// wrong length, valid hex
	_, err = ParseHandle("abcd")
	assert.Error(t, err)
}

func TestMemStore_WrapAndReveal(t *testing.T) {
	t.Parallel()
	ctx := context.TODO()

	store := NewMemStore()

	h, err := store.Wrap(ctx, []byte("sealed question"))
	require.NoError(t, err)

	// no grant, no plaintext
	_, err = store.Reveal(ctx, h, "oracle")
	assert.Error(t, err)

	require.NoError(t, store.Grant(ctx, h, "oracle"))

	plaintext, err := store.Reveal(ctx, h, "oracle")
	require.NoError(t, err)
	assert.Equal(t, []byte("sealed question"), plaintext)

	// the grant names a single principal
	_, err = store.Reveal(ctx, h, "someone-else")
	assert.Error(t, err)
}

func TestMemStore_Add(t *testing.T) {
	t.Parallel()
	ctx := context.TODO()

	store := NewMemStore()

	a, err := store.WrapUint64(ctx, 6850)
	require.NoError(t, err)
	b, err := store.WrapUint64(ctx, 10275)
	require.NoError(t, err)

	require.NoError(t, store.Grant(ctx, a, "oracle"))

	sum, err := store.Add(ctx, a, b)
	require.NoError(t, err)
	assert.NotEqual(t, a.String(), sum.String())

	// the sum inherits the grant of its operand
	value, err := store.RevealUint64(ctx, sum, "oracle")
	require.NoError(t, err)
	assert.Equal(t, uint64(17125), value)

	// but grants do not flow backwards
	_, err = store.RevealUint64(ctx, b, "oracle")
	assert.Error(t, err)
}

func TestMemStore_AddRejectsNonNumeric(t *testing.T) {
	t.Parallel()
	ctx := context.TODO()

	store := NewMemStore()

	text, err := store.Wrap(ctx, []byte("text"))
	require.NoError(t, err)
	number, err := store.WrapUint64(ctx, 42)
	require.NoError(t, err)

	_, err = store.Add(ctx, text, number)
	assert.Error(t, err)

	unknown, err := NewHandle()
	require.NoError(t, err)
	_, err = store.Add(ctx, unknown, number)
	assert.Error(t, err)

	assert.Error(t, store.Grant(ctx, unknown, "oracle"))
	_, err = store.RevealUint64(ctx, text, "oracle")
	assert.Error(t, err)
}
