package oracle

import (
	"crypto/ed25519"
	"encoding/hex"
)

// Proof is an ed25519 signature over uuid || cleartext. An invalid proof
// rejects the whole callback; verification fails closed.
type Proof []byte

// NewProof creates a Proof from a byte slice, copying the input.
func NewProof(data []byte) Proof {
	p := make([]byte, len(data))
	copy(p, data)
	return Proof(p)
}

// NewProofFromString creates a Proof from a hex-encoded string.
func NewProofFromString(data string) (Proof, error) {
	raw, err := hex.DecodeString(data)
	if err != nil {
		return nil, err
	}
	return NewProof(raw), nil
}

func (p Proof) Bytes() []byte {
	return p
}

func (p Proof) String() string {
	return hex.EncodeToString(p)
}

func proofMessage(uuid string, cleartext []byte) []byte {
	msg := make([]byte, 0, len(uuid)+len(cleartext))
	msg = append(msg, []byte(uuid)...)
	msg = append(msg, cleartext...)
	return msg
}

// Sign produces a proof binding the cleartext to the request UUID.
func Sign(key ed25519.PrivateKey, uuid string, cleartext []byte) Proof {
	return Proof(ed25519.Sign(key, proofMessage(uuid, cleartext)))
}

// Verify checks that proof authenticates cleartext for the given UUID.
func Verify(key ed25519.PublicKey, uuid string, cleartext []byte, proof Proof) bool {
	if len(key) != ed25519.PublicKeySize || len(proof) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(key, proofMessage(uuid, cleartext), proof)
}
