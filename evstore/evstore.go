// Package evstore models the external encrypted value store. Values are only
// ever visible to the hub as opaque handles; the store supports homomorphic
// addition and explicit access grants, and nothing else.
package evstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

const handleSize = 16

// Handle is an opaque reference to an encrypted value. The bytes carry no
// information about the plaintext.
type Handle []byte

// NewHandle creates a fresh random handle.
func NewHandle() (Handle, error) {
	h := make([]byte, handleSize)
	if _, err := rand.Read(h); err != nil {
		return nil, err
	}
	return Handle(h), nil
}

// ParseHandle decodes a hex-encoded handle, as stored in the database.
func ParseHandle(data string) (Handle, error) {
	raw, err := hex.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("invalid handle: %w", err)
	}
	if len(raw) != handleSize {
		return nil, errors.New("invalid handle length")
	}
	return Handle(raw), nil
}

func (h Handle) String() string {
	return hex.EncodeToString(h)
}

func (h Handle) Bytes() []byte {
	return h
}

// Store is the narrow capability surface the lifecycle engine is allowed to
// use. No method ever returns a plaintext.
type Store interface {
	// Wrap seals a plaintext and returns its handle.
	Wrap(ctx context.Context, plaintext []byte) (Handle, error)
	// WrapUint64 seals a numeric value; the result supports Add.
	WrapUint64(ctx context.Context, value uint64) (Handle, error)
	// Add homomorphically adds two numeric values and returns a new handle.
	Add(ctx context.Context, a Handle, b Handle) (Handle, error)
	// Grant allows the given principal to request decryption of the value.
	Grant(ctx context.Context, h Handle, principal string) error
}

// Revealer is implemented by stores that can disclose a sealed value to a
// granted principal. Only the decryption oracle holds this capability.
type Revealer interface {
	Reveal(ctx context.Context, h Handle, principal string) ([]byte, error)
	RevealUint64(ctx context.Context, h Handle, principal string) (uint64, error)
}
