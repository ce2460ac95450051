// Package settlement is the interface to the external value-transfer ledger.
// Transfers are atomic from the caller's perspective: an error means no value
// moved and the enclosing operation must abort.
package settlement

import (
	"context"

	"github.com/CarrieMorar/FHELegalConsultation/db"
)

type TransferRequest struct {
	Recipient      string
	AmountCents    uint64
	Reason         string
	ConsultationID *uint
	LawyerID       *uint
}

type Transport interface {
	Transfer(ctx context.Context, req *TransferRequest) (*db.Transfer, error)
}
