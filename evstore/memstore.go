package evstore

import (
	"context"
	"encoding/binary"
	"errors"
	"slices"
	"sync"
)

type sealedValue struct {
	plaintext []byte
	numeric   bool
	value     uint64
	grants    []string
}

// MemStore is an in-process sealed store used for development and tests. It
// keeps plaintexts private behind random handles and honors the same
// wrap/add/grant contract as a real encryption backend.
type MemStore struct {
	mu     sync.Mutex
	values map[string]*sealedValue
}

func NewMemStore() *MemStore {
	return &MemStore{
		values: map[string]*sealedValue{},
	}
}

func (s *MemStore) Wrap(ctx context.Context, plaintext []byte) (Handle, error) {
	h, err := NewHandle()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[h.String()] = &sealedValue{
		plaintext: slices.Clone(plaintext),
	}
	return h, nil
}

func (s *MemStore) WrapUint64(ctx context.Context, value uint64) (Handle, error) {
	h, err := NewHandle()
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, 8)
	binary.BigEndian.PutUint64(plaintext, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[h.String()] = &sealedValue{
		plaintext: plaintext,
		numeric:   true,
		value:     value,
	}
	return h, nil
}

func (s *MemStore) Add(ctx context.Context, a Handle, b Handle) (Handle, error) {
	h, err := NewHandle()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	left, ok := s.values[a.String()]
	if !ok {
		return nil, errors.New("unknown handle")
	}
	right, ok := s.values[b.String()]
	if !ok {
		return nil, errors.New("unknown handle")
	}
	if !left.numeric || !right.numeric {
		return nil, errors.New("add requires numeric values")
	}

	sum := left.value + right.value
	plaintext := make([]byte, 8)
	binary.BigEndian.PutUint64(plaintext, sum)

	// the sum inherits the grants of both operands
	grants := slices.Clone(left.grants)
	for _, g := range right.grants {
		if !slices.Contains(grants, g) {
			grants = append(grants, g)
		}
	}

	s.values[h.String()] = &sealedValue{
		plaintext: plaintext,
		numeric:   true,
		value:     sum,
		grants:    grants,
	}
	return h, nil
}

func (s *MemStore) Grant(ctx context.Context, h Handle, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[h.String()]
	if !ok {
		return errors.New("unknown handle")
	}
	if !slices.Contains(v.grants, principal) {
		v.grants = append(v.grants, principal)
	}
	return nil
}

func (s *MemStore) Reveal(ctx context.Context, h Handle, principal string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[h.String()]
	if !ok {
		return nil, errors.New("unknown handle")
	}
	if !slices.Contains(v.grants, principal) {
		return nil, errors.New("principal has no grant for this value")
	}
	return slices.Clone(v.plaintext), nil
}

func (s *MemStore) RevealUint64(ctx context.Context, h Handle, principal string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[h.String()]
	if !ok {
		return 0, errors.New("unknown handle")
	}
	if !v.numeric {
		return 0, errors.New("value is not numeric")
	}
	if !slices.Contains(v.grants, principal) {
		return 0, errors.New("principal has no grant for this value")
	}
	return v.value, nil
}
