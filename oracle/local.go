package oracle

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"github.com/CarrieMorar/FHELegalConsultation/events"
	"github.com/CarrieMorar/FHELegalConsultation/evstore"
	"github.com/CarrieMorar/FHELegalConsultation/logger"
)

// LocalOracle is an in-process oracle backend for development and tests. It
// reveals granted values from the store, signs the result and publishes it
// asynchronously, mimicking the latency behavior of a real oracle.
type LocalOracle struct {
	store          evstore.Revealer
	eventPublisher events.EventPublisher
	privateKey     ed25519.PrivateKey
	publicKey      ed25519.PublicKey
	delay          time.Duration
}

func NewLocalOracle(store evstore.Revealer, eventPublisher events.EventPublisher, delay time.Duration) (*LocalOracle, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &LocalOracle{
		store:          store,
		eventPublisher: eventPublisher,
		privateKey:     privateKey,
		publicKey:      publicKey,
		delay:          delay,
	}, nil
}

func (o *LocalOracle) PublicKey() ed25519.PublicKey {
	return o.publicKey
}

func (o *LocalOracle) RequestDecryption(ctx context.Context, req *Request) error {
	if len(req.Handles) == 0 {
		return fmt.Errorf("decryption request %s has no handles", req.UUID)
	}

	go func() {
		if o.delay > 0 {
			time.Sleep(o.delay)
		}

		payload := map[string]uint64{}
		for key, handle := range req.Handles {
			value, err := o.store.RevealUint64(context.Background(), handle, Principal)
			if err != nil {
				logger.Logger.Error().Err(err).
					Str("uuid", req.UUID).
					Str("key", key).
					Msg("Oracle could not reveal value")
				return
			}
			payload[key] = value
		}

		cleartext, err := json.Marshal(payload)
		if err != nil {
			logger.Logger.Error().Err(err).Str("uuid", req.UUID).Msg("Oracle failed to encode cleartext")
			return
		}

		o.eventPublisher.Publish(&events.Event{
			Event: ResultEvent,
			Properties: &Result{
				UUID:      req.UUID,
				Cleartext: cleartext,
				Proof:     Sign(o.privateKey, req.UUID, cleartext),
			},
		})
	}()

	return nil
}
