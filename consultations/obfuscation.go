package consultations

import "github.com/CarrieMorar/FHELegalConsultation/constants"

// ObfuscateFee scales a fee before encryption so the exact amount never
// appears on the ledger. Integer floor division: the transform is lossy and
// the settlement amount is always derived from it, never from client input.
func ObfuscateFee(rawCents uint64) uint64 {
	return rawCents * constants.OBFUSCATION_FACTOR / 100
}

// DeobfuscateFee inverts ObfuscateFee at settlement time, with the same
// floor semantics.
func DeobfuscateFee(obfuscated uint64) uint64 {
	return obfuscated * 100 / constants.OBFUSCATION_FACTOR
}
