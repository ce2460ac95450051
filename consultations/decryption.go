package consultations

import (
	"context"
	"encoding/json"
	"time"

	"github.com/CarrieMorar/FHELegalConsultation/constants"
	"github.com/CarrieMorar/FHELegalConsultation/db"
	"github.com/CarrieMorar/FHELegalConsultation/events"
	"github.com/CarrieMorar/FHELegalConsultation/evstore"
	"github.com/CarrieMorar/FHELegalConsultation/logger"
	"github.com/CarrieMorar/FHELegalConsultation/oracle"
	"github.com/CarrieMorar/FHELegalConsultation/settlement"
	"github.com/google/uuid"

	"gorm.io/gorm"
)

func (svc *consultationsService) parseHandle(data string) (evstore.Handle, error) {
	handle, err := evstore.ParseHandle(data)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Ledger contains an unparseable value handle")
		return nil, err
	}
	return handle, nil
}

// createDecryptionRequest records a new oracle round trip inside the given
// transaction. At most one unprocessed request may reference a consultation.
func (svc *consultationsService) createDecryptionRequest(tx *gorm.DB, kind string, consultation *db.Consultation, lawyer *db.Lawyer) (*db.DecryptionRequest, error) {
	if consultation != nil && consultation.PendingDecryptionID != nil {
		var pending db.DecryptionRequest
		result := tx.Limit(1).Find(&pending, &db.DecryptionRequest{
			ID: *consultation.PendingDecryptionID,
		})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected > 0 && !pending.Processed {
			return nil, NewInvalidStateTransitionError("a decryption request is already in flight")
		}
	}

	decryptionRequest := db.DecryptionRequest{
		UUID:        uuid.NewString(),
		Type:        kind,
		RequestedAt: time.Now(),
	}
	if consultation != nil {
		decryptionRequest.ConsultationID = &consultation.ID
	}
	if lawyer != nil {
		decryptionRequest.LawyerID = &lawyer.ID
	}

	err := tx.Create(&decryptionRequest).Error
	if err != nil {
		return nil, err
	}

	if consultation != nil {
		now := decryptionRequest.RequestedAt
		err = tx.Model(consultation).Updates(map[string]interface{}{
			"PendingDecryptionID": decryptionRequest.ID,
			"DecryptRequestedAt":  &now,
		}).Error
		if err != nil {
			return nil, err
		}
	}
	if lawyer != nil {
		err = tx.Model(lawyer).Update("pending_withdrawal_id", decryptionRequest.ID).Error
		if err != nil {
			return nil, err
		}
	}

	return &decryptionRequest, nil
}

// dispatchDecryption grants the oracle access to the payload values and
// issues the asynchronous decrypt call. A failed issue is only logged: the
// deadline ladder is the recovery path, the engine itself never retries.
func (svc *consultationsService) dispatchDecryption(ctx context.Context, decryptionRequest *db.DecryptionRequest, consultation *db.Consultation, lawyer *db.Lawyer) {
	handles := map[string]evstore.Handle{}

	switch decryptionRequest.Type {
	case constants.DECRYPTION_TYPE_SETTLEMENT:
		lawyerHandle, err := svc.parseHandle(consultation.EncryptedLawyerID)
		if err != nil {
			return
		}
		feeHandle, err := svc.parseHandle(consultation.EncryptedFee)
		if err != nil {
			return
		}
		handles[oracle.KeyLawyerID] = lawyerHandle
		handles[oracle.KeyObfuscatedFee] = feeHandle
	case constants.DECRYPTION_TYPE_WITHDRAWAL:
		earningsHandle, err := svc.parseHandle(lawyer.EncryptedEarnings)
		if err != nil {
			return
		}
		handles[oracle.KeyObfuscatedTotal] = earningsHandle
	default:
		logger.Logger.Error().
			Str("type", decryptionRequest.Type).
			Msg("Unknown decryption request type")
		return
	}

	for _, handle := range handles {
		if err := svc.store.Grant(ctx, handle, oracle.Principal); err != nil {
			logger.Logger.Error().Err(err).
				Str("uuid", decryptionRequest.UUID).
				Msg("Failed to grant oracle access")
			return
		}
	}

	err := svc.oracleClient.RequestDecryption(ctx, &oracle.Request{
		UUID:    decryptionRequest.UUID,
		Kind:    decryptionRequest.Type,
		Handles: handles,
	})
	if err != nil {
		logger.Logger.Error().Err(err).
			Str("uuid", decryptionRequest.UUID).
			Msg("Failed to issue decryption request")
		return
	}

	svc.eventPublisher.Publish(&events.Event{
		Event:      constants.EVENT_DECRYPTION_REQUESTED,
		Properties: decryptionRequest,
	})
}

func (svc *consultationsService) ConsumeEvent(ctx context.Context, event *events.Event, globalProperties map[string]interface{}) {
	switch event.Event {
	case oracle.ResultEvent:
		result, ok := event.Properties.(*oracle.Result)
		if !ok {
			logger.Logger.Error().Interface("event", event).Msg("Failed to cast oracle result event")
			return
		}
		err := svc.HandleDecryptionResult(ctx, result)
		if err != nil {
			logger.Logger.Error().Err(err).
				Str("uuid", result.UUID).
				Msg("Failed to handle decryption result")
		}
	}
}

func (svc *consultationsService) HandleDecryptionResult(ctx context.Context, result *oracle.Result) error {
	var decryptionRequest db.DecryptionRequest
	dbResult := svc.db.Limit(1).Find(&decryptionRequest, &db.DecryptionRequest{
		UUID: result.UUID,
	})
	if dbResult.Error != nil {
		return dbResult.Error
	}
	if dbResult.RowsAffected == 0 {
		return NewNotFoundError()
	}

	// fails closed: an unverifiable result has no state effect at all
	if !oracle.Verify(svc.oracleClient.PublicKey(), result.UUID, result.Cleartext, result.Proof) {
		logger.Logger.Warn().
			Str("uuid", result.UUID).
			Msg("Rejected decryption result with invalid proof")
		return NewProofInvalidError()
	}

	if decryptionRequest.Processed {
		logger.Logger.Info().
			Str("uuid", result.UUID).
			Msg("Duplicate decryption result delivery, ignoring")
		return nil
	}

	if time.Since(decryptionRequest.RequestedAt) > constants.DECRYPT_DEADLINE {
		// a late callback must never resurrect a request that the
		// compensation path may already own
		err := svc.db.Transaction(func(tx *gorm.DB) error {
			return svc.markDecryptionProcessed(tx, &decryptionRequest)
		})
		if err != nil {
			return err
		}

		logger.Logger.Warn().
			Str("uuid", result.UUID).
			Msg("Decryption result arrived after the decrypt deadline")

		svc.eventPublisher.Publish(&events.Event{
			Event: constants.EVENT_DECRYPTION_FAILED,
			Properties: map[string]interface{}{
				"uuid":   result.UUID,
				"reason": constants.REFUND_REASON_DECRYPT_TIMEOUT,
			},
		})
		return nil
	}

	payload := map[string]uint64{}
	if err := json.Unmarshal(result.Cleartext, &payload); err != nil {
		logger.Logger.Error().Err(err).
			Str("uuid", result.UUID).
			Msg("Failed to decode decryption cleartext")
		return NewInvalidInputError("malformed decryption cleartext")
	}

	switch decryptionRequest.Type {
	case constants.DECRYPTION_TYPE_SETTLEMENT:
		return svc.settleConsultation(ctx, &decryptionRequest, payload)
	case constants.DECRYPTION_TYPE_WITHDRAWAL:
		return svc.settleWithdrawal(ctx, &decryptionRequest, payload)
	default:
		return NewInvalidInputError("unknown decryption request type")
	}
}

func (svc *consultationsService) settleConsultation(ctx context.Context, decryptionRequest *db.DecryptionRequest, payload map[string]uint64) error {
	if decryptionRequest.ConsultationID == nil {
		return NewInvalidInputError("settlement result without a consultation reference")
	}

	lawyerID := payload[oracle.KeyLawyerID]
	obfuscatedFee := payload[oracle.KeyObfuscatedFee]

	var consultation db.Consultation
	err := svc.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Limit(1).Find(&consultation, &db.Consultation{
			ID: *decryptionRequest.ConsultationID,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return NewNotFoundError()
		}

		if consultation.RefundProcessed {
			logger.Logger.Warn().
				Uint("consultation_id", consultation.ID).
				Msg("Consultation already refunded, discarding settlement")
			return svc.markDecryptionProcessed(tx, decryptionRequest)
		}
		if consultation.Resolved {
			logger.Logger.Debug().
				Uint("consultation_id", consultation.ID).
				Msg("Consultation already resolved")
			return svc.markDecryptionProcessed(tx, decryptionRequest)
		}

		var lawyer db.Lawyer
		result = tx.Limit(1).Find(&lawyer, &db.Lawyer{
			ID: uint(lawyerID),
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return NewNotFoundError()
		}

		// earnings accumulate the raw obfuscated amount homomorphically
		earnings, err := svc.parseHandle(lawyer.EncryptedEarnings)
		if err != nil {
			return err
		}
		feeHandle, err := svc.store.WrapUint64(ctx, obfuscatedFee)
		if err != nil {
			return err
		}
		newEarnings, err := svc.store.Add(ctx, earnings, feeHandle)
		if err != nil {
			return err
		}

		err = tx.Model(&lawyer).Updates(map[string]interface{}{
			"EncryptedEarnings": newEarnings.String(),
			"ConsultationCount": gorm.Expr("consultation_count + 1"),
		}).Error
		if err != nil {
			return err
		}

		err = tx.Model(&consultation).Updates(map[string]interface{}{
			"Resolved": true,
			"Status":   constants.CONSULTATION_STATE_RESOLVED,
		}).Error
		if err != nil {
			return err
		}

		return svc.markDecryptionProcessed(tx, decryptionRequest)
	})
	if err != nil {
		logger.Logger.Error().Err(err).
			Str("uuid", decryptionRequest.UUID).
			Msg("Failed to settle consultation")
		return err
	}

	settledAmount := DeobfuscateFee(obfuscatedFee)

	logger.Logger.Info().
		Uint("consultation_id", consultation.ID).
		Uint64("amount_cents", settledAmount).
		Msg("Consultation resolved")

	svc.eventPublisher.Publish(&events.Event{
		Event: constants.EVENT_CONSULTATION_RESOLVED,
		Properties: map[string]interface{}{
			"consultation_id": consultation.ID,
			"amount_cents":    settledAmount,
		},
	})

	return nil
}

func (svc *consultationsService) settleWithdrawal(ctx context.Context, decryptionRequest *db.DecryptionRequest, payload map[string]uint64) error {
	if decryptionRequest.LawyerID == nil {
		return NewInvalidInputError("withdrawal result without a lawyer reference")
	}

	amount := DeobfuscateFee(payload[oracle.KeyObfuscatedTotal])

	var lawyer db.Lawyer
	err := svc.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Limit(1).Find(&lawyer, &db.Lawyer{
			ID: *decryptionRequest.LawyerID,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return NewNotFoundError()
		}

		if amount == 0 {
			return svc.markDecryptionProcessed(tx, decryptionRequest)
		}

		_, err := svc.settlementTransport.Transfer(ctx, &settlement.TransferRequest{
			Recipient:   lawyer.Identity,
			AmountCents: amount,
			Reason:      db.TRANSFER_REASON_WITHDRAWAL,
			LawyerID:    &lawyer.ID,
		})
		if err != nil {
			return NewTransferFailedError(err)
		}

		zeroEarnings, err := svc.store.WrapUint64(ctx, 0)
		if err != nil {
			return err
		}
		err = tx.Model(&lawyer).Updates(map[string]interface{}{
			"EncryptedEarnings":   zeroEarnings.String(),
			"PendingWithdrawalID": nil,
		}).Error
		if err != nil {
			return err
		}

		return svc.markDecryptionProcessed(tx, decryptionRequest)
	})
	if err != nil {
		logger.Logger.Error().Err(err).
			Str("uuid", decryptionRequest.UUID).
			Msg("Failed to settle withdrawal")
		return err
	}

	if amount > 0 {
		logger.Logger.Info().
			Uint("lawyer_id", lawyer.ID).
			Uint64("amount_cents", amount).
			Msg("Withdrawal settled")

		svc.eventPublisher.Publish(&events.Event{
			Event: constants.EVENT_WITHDRAWAL_SETTLED,
			Properties: map[string]interface{}{
				"lawyer_id":    lawyer.ID,
				"amount_cents": amount,
			},
		})
	}

	return nil
}

func (svc *consultationsService) markDecryptionProcessed(tx *gorm.DB, decryptionRequest *db.DecryptionRequest) error {
	var existing db.DecryptionRequest
	result := tx.Limit(1).Find(&existing, &db.DecryptionRequest{
		ID: decryptionRequest.ID,
	})
	if result.Error != nil {
		return result.Error
	}
	if existing.Processed {
		return nil
	}
	return tx.Model(decryptionRequest).Update("processed", true).Error
}
