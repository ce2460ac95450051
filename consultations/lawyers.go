package consultations

import (
	"context"
	"time"

	"github.com/CarrieMorar/FHELegalConsultation/admission"
	"github.com/CarrieMorar/FHELegalConsultation/constants"
	"github.com/CarrieMorar/FHELegalConsultation/db"
	"github.com/CarrieMorar/FHELegalConsultation/events"
	"github.com/CarrieMorar/FHELegalConsultation/logger"

	"gorm.io/gorm"
)

func (svc *consultationsService) RegisterLawyer(ctx context.Context, req *RegisterLawyerRequest) (*db.Lawyer, error) {
	if req.Identity == "" {
		return nil, NewInvalidInputError("lawyer identity is required")
	}
	if !admission.CategoryInRange(req.Specialty) {
		return nil, NewInvalidInputError("specialty out of range")
	}

	var existing db.Lawyer
	result := svc.db.Limit(1).Find(&existing, &db.Lawyer{
		Identity: req.Identity,
	})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		return nil, NewInvalidStateTransitionError("lawyer is already registered")
	}

	wallet := req.Wallet
	if wallet == "" {
		wallet = req.Identity
	}

	encryptedWallet, err := svc.store.Wrap(ctx, []byte(wallet))
	if err != nil {
		return nil, err
	}
	encryptedSpecialty, err := svc.store.WrapUint64(ctx, uint64(req.Specialty))
	if err != nil {
		return nil, err
	}
	encryptedReputation, err := svc.store.WrapUint64(ctx, 0)
	if err != nil {
		return nil, err
	}
	encryptedEarnings, err := svc.store.WrapUint64(ctx, 0)
	if err != nil {
		return nil, err
	}

	lawyer := db.Lawyer{
		Identity:            req.Identity,
		EncryptedWallet:     encryptedWallet.String(),
		EncryptedSpecialty:  encryptedSpecialty.String(),
		EncryptedReputation: encryptedReputation.String(),
		EncryptedEarnings:   encryptedEarnings.String(),
		Active:              true,
		RegisteredAt:        time.Now(),
	}
	err = svc.db.Create(&lawyer).Error
	if err != nil {
		logger.Logger.Error().Err(err).
			Str("identity", req.Identity).
			Msg("Failed to register lawyer")
		return nil, err
	}

	logger.Logger.Info().
		Uint("lawyer_id", lawyer.ID).
		Msg("Lawyer registered")

	svc.eventPublisher.Publish(&events.Event{
		Event:      constants.EVENT_LAWYER_REGISTERED,
		Properties: &lawyer,
	})

	return &lawyer, nil
}

func (svc *consultationsService) VerifyLawyer(ctx context.Context, lawyerID uint) error {
	var lawyer db.Lawyer
	result := svc.db.Limit(1).Find(&lawyer, &db.Lawyer{
		ID: lawyerID,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError()
	}

	if lawyer.Verified {
		// verifying twice is harmless
		return nil
	}

	err := svc.db.Model(&lawyer).Update("verified", true).Error
	if err != nil {
		logger.Logger.Error().Err(err).Uint("lawyer_id", lawyerID).Msg("Failed to verify lawyer")
		return err
	}

	logger.Logger.Info().Uint("lawyer_id", lawyerID).Msg("Lawyer verified")

	svc.eventPublisher.Publish(&events.Event{
		Event:      constants.EVENT_LAWYER_VERIFIED,
		Properties: &lawyer,
	})

	return nil
}

func (svc *consultationsService) SetLawyerActive(ctx context.Context, lawyerID uint, active bool) error {
	var lawyer db.Lawyer
	result := svc.db.Limit(1).Find(&lawyer, &db.Lawyer{
		ID: lawyerID,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError()
	}

	return svc.db.Model(&lawyer).Update("active", active).Error
}

func (svc *consultationsService) GetLawyer(ctx context.Context, lawyerID uint) (*db.Lawyer, error) {
	lawyer := db.Lawyer{}
	result := svc.db.Limit(1).Find(&lawyer, &db.Lawyer{
		ID: lawyerID,
	})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, NewNotFoundError()
	}
	return &lawyer, nil
}

func (svc *consultationsService) RateLawyer(ctx context.Context, consultationID uint, clientID string, rating uint) error {
	if !admission.RatingInRange(rating) {
		return NewInvalidInputError("rating out of range")
	}

	var lawyer db.Lawyer
	err := svc.db.Transaction(func(tx *gorm.DB) error {
		var consultation db.Consultation
		result := tx.Limit(1).Find(&consultation, &db.Consultation{
			ID: consultationID,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return NewNotFoundError()
		}

		if consultation.ClientID != clientID {
			return NewUnauthorizedError("only the submitting client may rate")
		}
		if !consultation.Resolved {
			return NewInvalidStateTransitionError("consultation is not resolved")
		}
		if consultation.Rated {
			return NewInvalidStateTransitionError("consultation has already been rated")
		}
		if consultation.AssignedLawyerID == nil {
			return NewInvalidStateTransitionError("consultation has no assigned lawyer")
		}

		result = tx.Limit(1).Find(&lawyer, &db.Lawyer{
			ID: *consultation.AssignedLawyerID,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return NewNotFoundError()
		}

		reputation, err := svc.parseHandle(lawyer.EncryptedReputation)
		if err != nil {
			return err
		}
		ratingHandle, err := svc.store.WrapUint64(ctx, uint64(rating))
		if err != nil {
			return err
		}
		newReputation, err := svc.store.Add(ctx, reputation, ratingHandle)
		if err != nil {
			return err
		}

		err = tx.Model(&lawyer).Update("encrypted_reputation", newReputation.String()).Error
		if err != nil {
			return err
		}

		return tx.Model(&consultation).Update("rated", true).Error
	})
	if err != nil {
		logger.Logger.Error().Err(err).
			Uint("consultation_id", consultationID).
			Msg("Failed to rate lawyer")
		return err
	}

	svc.eventPublisher.Publish(&events.Event{
		Event:      constants.EVENT_LAWYER_RATED,
		Properties: &lawyer,
	})

	return nil
}

func (svc *consultationsService) RequestWithdrawal(ctx context.Context, lawyerIdentity string) error {
	var lawyer db.Lawyer
	var decryptionRequest *db.DecryptionRequest

	err := svc.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Limit(1).Find(&lawyer, &db.Lawyer{
			Identity: lawyerIdentity,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 || !lawyer.Verified {
			return NewUnauthorizedError("caller is not a verified lawyer")
		}

		if lawyer.PendingWithdrawalID != nil {
			var pending db.DecryptionRequest
			result = tx.Limit(1).Find(&pending, &db.DecryptionRequest{
				ID: *lawyer.PendingWithdrawalID,
			})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected > 0 && !pending.Processed {
				return NewInvalidStateTransitionError("a withdrawal is already pending")
			}
		}

		var err error
		decryptionRequest, err = svc.createDecryptionRequest(tx, constants.DECRYPTION_TYPE_WITHDRAWAL, nil, &lawyer)
		return err
	})
	if err != nil {
		logger.Logger.Error().Err(err).
			Str("identity", lawyerIdentity).
			Msg("Failed to request withdrawal")
		return err
	}

	logger.Logger.Info().
		Uint("lawyer_id", lawyer.ID).
		Str("decryption_uuid", decryptionRequest.UUID).
		Msg("Withdrawal requested")

	svc.eventPublisher.Publish(&events.Event{
		Event:      constants.EVENT_WITHDRAWAL_REQUESTED,
		Properties: &lawyer,
	})

	svc.dispatchDecryption(ctx, decryptionRequest, nil, &lawyer)

	return nil
}
