package settlement

import (
	"context"
	"errors"

	"github.com/CarrieMorar/FHELegalConsultation/db"
	"github.com/CarrieMorar/FHELegalConsultation/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerTransport records transfers on the hub's own database ledger. It
// stands in for an external settlement rail during development; the
// consultations service only ever sees the Transport interface.
type LedgerTransport struct {
	db *gorm.DB
}

func NewLedgerTransport(gormDB *gorm.DB) *LedgerTransport {
	return &LedgerTransport{db: gormDB}
}

func (t *LedgerTransport) Transfer(ctx context.Context, req *TransferRequest) (*db.Transfer, error) {
	if req.Recipient == "" {
		return nil, errors.New("transfer requires a recipient")
	}
	if req.AmountCents == 0 {
		return nil, errors.New("transfer requires a non-zero amount")
	}

	transfer := db.Transfer{
		UUID:           uuid.NewString(),
		Recipient:      req.Recipient,
		AmountCents:    req.AmountCents,
		Reason:         req.Reason,
		ConsultationID: req.ConsultationID,
		LawyerID:       req.LawyerID,
	}
	err := t.db.WithContext(ctx).Create(&transfer).Error
	if err != nil {
		logger.Logger.Error().Err(err).
			Str("recipient", req.Recipient).
			Uint64("amount_cents", req.AmountCents).
			Msg("Failed to record transfer")
		return nil, err
	}

	logger.Logger.Info().
		Str("uuid", transfer.UUID).
		Str("recipient", transfer.Recipient).
		Uint64("amount_cents", transfer.AmountCents).
		Str("reason", transfer.Reason).
		Msg("Recorded transfer")

	return &transfer, nil
}
