package db

import (
	"time"

	"gorm.io/datatypes"
)

type UserConfig struct {
	ID        uint
	Key       string `gorm:"unique;not null"`
	Value     string
	Encrypted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Consultation is the canonical per-request ledger record. Rows are never
// deleted; terminal states are reached only through one-way latches.
type Consultation struct {
	ID       uint
	ClientID string `validate:"required" gorm:"index"`

	// opaque encrypted value handles, readable only by the external oracle
	EncryptedCategory string
	EncryptedQuestion string
	EncryptedResponse string
	EncryptedLawyerID string
	EncryptedFee      string // obfuscated fee

	// plaintext assignment reference used for authorization checks; the
	// encrypted handle above is what travels to the oracle
	AssignedLawyerID *uint

	Status      string
	PriorStatus string // status at the moment the overall deadline tripped

	Paid            bool
	Resolved        bool
	RefundRequested bool
	RefundProcessed bool
	Rated           bool
	RefundClaimedBy *string

	// at most one unprocessed decryption request may reference a consultation
	PendingDecryptionID *uint

	SubmittedAt        time.Time
	AssignedAt         *time.Time
	RespondedAt        *time.Time
	DecryptRequestedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	Metadata  datatypes.JSON
}

type Lawyer struct {
	ID       uint
	Identity string `validate:"required" gorm:"unique;not null"`

	EncryptedWallet     string
	EncryptedSpecialty  string
	EncryptedReputation string
	EncryptedEarnings   string

	ConsultationCount uint
	Verified          bool
	Active            bool

	PendingWithdrawalID *uint

	RegisteredAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DecryptionRequest tracks one in-flight oracle round trip. Processed is a
// one-way latch; a processed request never settles or refunds again.
type DecryptionRequest struct {
	ID             uint
	UUID           string `validate:"required" gorm:"unique;not null"`
	ConsultationID *uint
	LawyerID       *uint
	Type           string
	Processed      bool
	RequestedAt    time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Transfer records a completed value movement on the settlement ledger.
type Transfer struct {
	ID             uint
	UUID           string `gorm:"unique;not null"`
	Recipient      string
	AmountCents    uint64 `gorm:"column:amount_cents"`
	Reason         string
	ConsultationID *uint
	LawyerID       *uint
	CreatedAt      time.Time
}

const (
	TRANSFER_REASON_REFUND     = "refund"
	TRANSFER_REASON_WITHDRAWAL = "withdrawal"
)
