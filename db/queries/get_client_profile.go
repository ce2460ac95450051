package queries

import (
	"time"

	"github.com/CarrieMorar/FHELegalConsultation/constants"
	"gorm.io/gorm"
)

type ClientProfile struct {
	ClientID           string
	TotalConsultations int64
	OpenConsultations  int64
	// the true fee totals are encrypted; exposure is counted at the refund
	// floor, which is the amount the hub can be forced to pay back
	EscrowExposureCents int64
	LastActivity        *time.Time
}

// GetClientProfile is a rollup over the consultations ledger, not
// authoritative state; it can always be rebuilt from the table.
func GetClientProfile(tx *gorm.DB, clientID string) ClientProfile {
	profile := ClientProfile{ClientID: clientID}

	tx.
		Table("consultations").
		Where("client_id = ?", clientID).
		Count(&profile.TotalConsultations)

	tx.
		Table("consultations").
		Where("client_id = ? AND paid = ? AND resolved = ? AND refund_processed = ?", clientID, true, false, false).
		Count(&profile.OpenConsultations)

	profile.EscrowExposureCents = profile.OpenConsultations * constants.MIN_CONSULTATION_FEE

	var last struct {
		Max *time.Time
	}
	tx.
		Table("consultations").
		Select("MAX(updated_at) as max").
		Where("client_id = ?", clientID).
		Scan(&last)
	profile.LastActivity = last.Max

	return profile
}

// GetOpenEscrowExposure sums the refund floor over every paid consultation
// that has neither settled nor refunded yet.
func GetOpenEscrowExposure(tx *gorm.DB) int64 {
	var open int64
	tx.
		Table("consultations").
		Where("paid = ? AND resolved = ? AND refund_processed = ?", true, false, false).
		Count(&open)

	return open * constants.MIN_CONSULTATION_FEE
}
