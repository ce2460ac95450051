package consultations

import (
	"context"
	"time"

	"github.com/CarrieMorar/FHELegalConsultation/constants"
	"github.com/CarrieMorar/FHELegalConsultation/db"
	"github.com/CarrieMorar/FHELegalConsultation/events"
	"github.com/CarrieMorar/FHELegalConsultation/logger"
	"github.com/CarrieMorar/FHELegalConsultation/settlement"

	"gorm.io/gorm"
)

// refundEligibility is the single decision point for the compensation path.
// It reads the consultation and the clock, nothing else: every caller
// (RequestRefund included) re-evaluates it instead of trusting stored flags.
func refundEligibility(consultation *db.Consultation, now time.Time) (bool, string) {
	if consultation.RefundProcessed {
		return false, ""
	}
	if consultation.Resolved {
		return false, ""
	}
	if !consultation.Paid {
		return false, ""
	}

	if now.Sub(consultation.SubmittedAt) > constants.OVERALL_DEADLINE {
		return true, constants.REFUND_REASON_OVERALL_TIMEOUT
	}
	if consultation.AssignedAt != nil && consultation.RespondedAt == nil &&
		now.Sub(*consultation.AssignedAt) > constants.RESPONSE_DEADLINE {
		return true, constants.REFUND_REASON_RESPONSE_TIMEOUT
	}
	if consultation.DecryptRequestedAt != nil &&
		now.Sub(*consultation.DecryptRequestedAt) > constants.DECRYPT_DEADLINE {
		return true, constants.REFUND_REASON_DECRYPT_TIMEOUT
	}

	if consultation.RefundRequested {
		return true, constants.REFUND_REASON_ALREADY_REQUESTED
	}

	return false, ""
}

func (svc *consultationsService) IsRefundEligible(ctx context.Context, consultationID uint) (bool, string, error) {
	consultation, err := svc.GetConsultation(ctx, consultationID)
	if err != nil {
		return false, "", err
	}
	eligible, reason := refundEligibility(consultation, time.Now())
	return eligible, reason, nil
}

func (svc *consultationsService) RequestRefund(ctx context.Context, consultationID uint) error {
	var consultation db.Consultation
	var alreadyRequested bool

	err := svc.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Limit(1).Find(&consultation, &db.Consultation{
			ID: consultationID,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return NewNotFoundError()
		}

		if consultation.Status == constants.CONSULTATION_STATE_REFUND_REQUESTED {
			alreadyRequested = true
			return nil
		}

		eligible, _ := refundEligibility(&consultation, time.Now())
		if !eligible {
			return NewInvalidStateTransitionError("consultation is not eligible for a refund")
		}

		return tx.Model(&consultation).Updates(map[string]interface{}{
			"RefundRequested": true,
			"PriorStatus":     consultation.Status,
			"Status":          constants.CONSULTATION_STATE_REFUND_REQUESTED,
		}).Error
	})
	if err != nil {
		logger.Logger.Error().Err(err).
			Uint("consultation_id", consultationID).
			Msg("Failed to request refund")
		return err
	}

	if alreadyRequested {
		return nil
	}

	logger.Logger.Info().
		Uint("consultation_id", consultationID).
		Msg("Refund requested")

	svc.eventPublisher.Publish(&events.Event{
		Event:      constants.EVENT_REFUND_REQUESTED,
		Properties: &consultation,
	})

	return nil
}

// ProcessRefund pays the refund floor to the recipient. The true obfuscated
// fee is unrecoverable once the oracle round trip has failed, so the floor is
// the only amount the engine can still guarantee.
func (svc *consultationsService) ProcessRefund(ctx context.Context, consultationID uint, recipient string) error {
	if recipient == "" {
		return NewInvalidInputError("refund recipient is required")
	}

	var consultation db.Consultation
	var alreadyProcessed bool

	err := svc.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Limit(1).Find(&consultation, &db.Consultation{
			ID: consultationID,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return NewNotFoundError()
		}

		if consultation.RefundProcessed {
			alreadyProcessed = true
			return nil
		}
		if consultation.Resolved {
			return NewInvalidStateTransitionError("consultation has already been resolved")
		}
		if !consultation.RefundRequested {
			return NewInvalidStateTransitionError("no refund has been requested")
		}

		// value moves first: a failed transfer aborts all bookkeeping
		_, err := svc.settlementTransport.Transfer(ctx, &settlement.TransferRequest{
			Recipient:      recipient,
			AmountCents:    constants.MIN_CONSULTATION_FEE,
			Reason:         db.TRANSFER_REASON_REFUND,
			ConsultationID: &consultation.ID,
		})
		if err != nil {
			return NewTransferFailedError(err)
		}

		return tx.Model(&consultation).Updates(map[string]interface{}{
			"RefundProcessed": true,
			"RefundClaimedBy": recipient,
			"Status":          constants.CONSULTATION_STATE_REFUNDED,
		}).Error
	})
	if err != nil {
		logger.Logger.Error().Err(err).
			Uint("consultation_id", consultationID).
			Msg("Failed to process refund")
		return err
	}

	if alreadyProcessed {
		logger.Logger.Debug().
			Uint("consultation_id", consultationID).
			Msg("Refund already processed")
		return nil
	}

	logger.Logger.Info().
		Uint("consultation_id", consultationID).
		Str("recipient", recipient).
		Msg("Refund processed")

	svc.eventPublisher.Publish(&events.Event{
		Event:      constants.EVENT_REFUND_PROCESSED,
		Properties: &consultation,
	})

	return nil
}

func (svc *consultationsService) MarkTimedOut(ctx context.Context, consultationID uint) error {
	var consultation db.Consultation
	var alreadyTimedOut bool

	err := svc.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Limit(1).Find(&consultation, &db.Consultation{
			ID: consultationID,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return NewNotFoundError()
		}

		if consultation.Status == constants.CONSULTATION_STATE_TIMED_OUT {
			alreadyTimedOut = true
			return nil
		}
		if consultation.Resolved || consultation.RefundProcessed {
			return NewInvalidStateTransitionError("consultation has already been finalized")
		}
		if time.Since(consultation.SubmittedAt) <= constants.OVERALL_DEADLINE {
			return NewInvalidStateTransitionError("overall deadline has not passed")
		}

		// PriorStatus keeps the pre-timeout state for auditing
		return tx.Model(&consultation).Updates(map[string]interface{}{
			"PriorStatus": consultation.Status,
			"Status":      constants.CONSULTATION_STATE_TIMED_OUT,
		}).Error
	})
	if err != nil {
		logger.Logger.Error().Err(err).
			Uint("consultation_id", consultationID).
			Msg("Failed to mark consultation timed out")
		return err
	}

	if alreadyTimedOut {
		return nil
	}

	logger.Logger.Info().
		Uint("consultation_id", consultationID).
		Msg("Consultation timed out")

	svc.eventPublisher.Publish(&events.Event{
		Event:      constants.EVENT_CONSULTATION_TIMED_OUT,
		Properties: &consultation,
	})

	return nil
}
