// Package oracle is the client side of the external decryption oracle
// protocol: the hub hands over encrypted value handles and, some unbounded
// time later, receives a cleartext plus a proof. There is no blocking call
// anywhere; results arrive as events.
package oracle

import (
	"context"
	"crypto/ed25519"

	"github.com/CarrieMorar/FHELegalConsultation/evstore"
)

// ResultEvent is the internal event carrying a *Result from the oracle
// backend to the consultations service.
const ResultEvent = "oracle_decryption_result"

// Principal is the identity the store must grant before the oracle can
// reveal a value.
const Principal = "decryption-oracle"

// cleartext payload keys, shared by both ends
const (
	KeyLawyerID        = "lawyer_id"
	KeyObfuscatedFee   = "obfuscated_fee"
	KeyObfuscatedTotal = "obfuscated_total"
)

// Request asks the oracle to decrypt a set of named values. The UUID ties the
// eventual result back to the pending decryption request in the ledger.
type Request struct {
	UUID    string
	Kind    string
	Handles map[string]evstore.Handle
}

// Result is the asynchronous oracle callback. Cleartext is a JSON object of
// payload key to numeric value; Proof authenticates it against the UUID.
type Result struct {
	UUID      string
	Cleartext []byte
	Proof     Proof
}

type Client interface {
	RequestDecryption(ctx context.Context, req *Request) error
	// PublicKey returns the key results are verified against.
	PublicKey() ed25519.PublicKey
}
