package consultations

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CarrieMorar/FHELegalConsultation/constants"
)

func TestObfuscateFee(t *testing.T) {
	t.Parallel()

	// exact factor application with floor division
	assert.Equal(t, uint64(6850), ObfuscateFee(5000))
	assert.Equal(t, uint64(10275), ObfuscateFee(7500))
	assert.Equal(t, uint64(137), ObfuscateFee(100))
	assert.Equal(t, uint64(0), ObfuscateFee(0))

	// the minimum fee round trips exactly
	assert.Equal(t, uint64(constants.MIN_CONSULTATION_FEE), DeobfuscateFee(ObfuscateFee(constants.MIN_CONSULTATION_FEE)))
}

func TestDeobfuscateFee_FloorSemantics(t *testing.T) {
	t.Parallel()

	// both directions floor, so a round trip may lose sub-factor remainders
	// but can never gain value
	for _, fee := range []uint64{5000, 5001, 5099, 7500, 123457, 999999} {
		roundTripped := DeobfuscateFee(ObfuscateFee(fee))
		assert.LessOrEqual(t, roundTripped, fee)
		assert.GreaterOrEqual(t, roundTripped, fee-1)
	}

	// 5001 * 137 / 100 floors away the .37, and the inverse floors again
	assert.Equal(t, uint64(6851), ObfuscateFee(5001))
	assert.Equal(t, uint64(5000), DeobfuscateFee(6851))
}
