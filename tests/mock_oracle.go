package tests

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"sync"

	"github.com/CarrieMorar/FHELegalConsultation/oracle"
)

// MockOracleClient records decryption requests instead of answering them.
// Tests craft results explicitly, which makes late, duplicate and forged
// deliveries trivial to simulate.
type MockOracleClient struct {
	mu       sync.Mutex
	requests []*oracle.Request

	publicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
}

func NewMockOracleClient() (*MockOracleClient, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &MockOracleClient{
		publicKey:  publicKey,
		privateKey: privateKey,
	}, nil
}

func (m *MockOracleClient) RequestDecryption(ctx context.Context, req *oracle.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return nil
}

func (m *MockOracleClient) PublicKey() ed25519.PublicKey {
	return m.publicKey
}

func (m *MockOracleClient) Requests() []*oracle.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*oracle.Request{}, m.requests...)
}

func (m *MockOracleClient) LastRequest() *oracle.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// SignedResult builds a valid oracle result for the given request UUID.
func (m *MockOracleClient) SignedResult(uuid string, payload map[string]uint64) *oracle.Result {
	cleartext, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return &oracle.Result{
		UUID:      uuid,
		Cleartext: cleartext,
		Proof:     oracle.Sign(m.privateKey, uuid, cleartext),
	}
}

// ForgedResult signs with a key the service does not trust.
func (m *MockOracleClient) ForgedResult(uuid string, payload map[string]uint64) *oracle.Result {
	cleartext, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	_, wrongKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(err)
	}
	return &oracle.Result{
		UUID:      uuid,
		Cleartext: cleartext,
		Proof:     oracle.Sign(wrongKey, uuid, cleartext),
	}
}
