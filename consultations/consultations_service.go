package consultations

import (
	"context"
	"time"

	"github.com/CarrieMorar/FHELegalConsultation/admission"
	"github.com/CarrieMorar/FHELegalConsultation/constants"
	"github.com/CarrieMorar/FHELegalConsultation/db"
	"github.com/CarrieMorar/FHELegalConsultation/db/queries"
	"github.com/CarrieMorar/FHELegalConsultation/events"
	"github.com/CarrieMorar/FHELegalConsultation/evstore"
	"github.com/CarrieMorar/FHELegalConsultation/logger"
	"github.com/CarrieMorar/FHELegalConsultation/oracle"
	"github.com/CarrieMorar/FHELegalConsultation/settlement"

	"gorm.io/gorm"
)

type consultationsService struct {
	db                  *gorm.DB
	eventPublisher      events.EventPublisher
	store               evstore.Store
	oracleClient        oracle.Client
	settlementTransport settlement.Transport
	limiter             *admission.Limiter
}

type ConsultationsService interface {
	events.EventSubscriber

	SubmitConsultation(ctx context.Context, req *SubmitConsultationRequest) (*db.Consultation, error)
	GetConsultation(ctx context.Context, consultationID uint) (*db.Consultation, error)
	ListConsultations(ctx context.Context, clientID *string, limit uint64, offset uint64) ([]db.Consultation, uint64, error)
	AssignConsultation(ctx context.Context, consultationID uint, lawyerID uint) error
	RespondToConsultation(ctx context.Context, req *RespondRequest) error

	RegisterLawyer(ctx context.Context, req *RegisterLawyerRequest) (*db.Lawyer, error)
	VerifyLawyer(ctx context.Context, lawyerID uint) error
	SetLawyerActive(ctx context.Context, lawyerID uint, active bool) error
	GetLawyer(ctx context.Context, lawyerID uint) (*db.Lawyer, error)
	RateLawyer(ctx context.Context, consultationID uint, clientID string, rating uint) error
	RequestWithdrawal(ctx context.Context, lawyerIdentity string) error

	GetClientProfile(ctx context.Context, clientID string) (queries.ClientProfile, error)

	IsRefundEligible(ctx context.Context, consultationID uint) (bool, string, error)
	RequestRefund(ctx context.Context, consultationID uint) error
	ProcessRefund(ctx context.Context, consultationID uint, recipient string) error
	MarkTimedOut(ctx context.Context, consultationID uint) error

	HandleDecryptionResult(ctx context.Context, result *oracle.Result) error
}

type SubmitConsultationRequest struct {
	ClientID string
	Category uint
	Question string
	FeeCents uint64
}

type RespondRequest struct {
	ConsultationID uint
	LawyerIdentity string
	Response       string
}

type RegisterLawyerRequest struct {
	Identity  string
	Specialty uint
	Wallet    string
}

func NewConsultationsService(gormDB *gorm.DB, eventPublisher events.EventPublisher, store evstore.Store, oracleClient oracle.Client, settlementTransport settlement.Transport, limiter *admission.Limiter) *consultationsService {
	return &consultationsService{
		db:                  gormDB,
		eventPublisher:      eventPublisher,
		store:               store,
		oracleClient:        oracleClient,
		settlementTransport: settlementTransport,
		limiter:             limiter,
	}
}

func (svc *consultationsService) SubmitConsultation(ctx context.Context, req *SubmitConsultationRequest) (*db.Consultation, error) {
	// admission runs before any other validation
	if !svc.limiter.Allow(req.ClientID, time.Now()) {
		logger.Logger.Warn().
			Str("client_id", req.ClientID).
			Msg("Submission rate limit exceeded")
		return nil, NewRateLimitedError()
	}

	if req.ClientID == "" {
		return nil, NewInvalidInputError("client identity is required")
	}
	if req.FeeCents < constants.MIN_CONSULTATION_FEE {
		return nil, NewInvalidInputError("fee is below the minimum consultation fee")
	}
	if !admission.CategoryInRange(req.Category) {
		return nil, NewInvalidInputError("category out of range")
	}
	if !admission.QuestionLengthOK(req.Question) {
		return nil, NewInvalidInputError("question length out of range")
	}

	encryptedCategory, err := svc.store.WrapUint64(ctx, uint64(req.Category))
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to wrap category")
		return nil, err
	}
	encryptedQuestion, err := svc.store.Wrap(ctx, []byte(req.Question))
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to wrap question")
		return nil, err
	}
	encryptedFee, err := svc.store.WrapUint64(ctx, ObfuscateFee(req.FeeCents))
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to wrap fee")
		return nil, err
	}

	consultation := db.Consultation{
		ClientID:          req.ClientID,
		EncryptedCategory: encryptedCategory.String(),
		EncryptedQuestion: encryptedQuestion.String(),
		EncryptedFee:      encryptedFee.String(),
		Status:            constants.CONSULTATION_STATE_PENDING,
		Paid:              true,
		SubmittedAt:       time.Now(),
	}
	err = svc.db.Create(&consultation).Error
	if err != nil {
		logger.Logger.Error().Err(err).
			Str("client_id", req.ClientID).
			Msg("Failed to create consultation")
		return nil, err
	}

	logger.Logger.Info().
		Uint("consultation_id", consultation.ID).
		Str("client_id", consultation.ClientID).
		Msg("Consultation submitted")

	svc.eventPublisher.Publish(&events.Event{
		Event:      constants.EVENT_CONSULTATION_SUBMITTED,
		Properties: &consultation,
	})

	return &consultation, nil
}

func (svc *consultationsService) GetConsultation(ctx context.Context, consultationID uint) (*db.Consultation, error) {
	consultation := db.Consultation{}
	result := svc.db.Limit(1).Find(&consultation, &db.Consultation{
		ID: consultationID,
	})
	if result.Error != nil {
		logger.Logger.Error().Err(result.Error).Msg("Failed to lookup consultation")
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, NewNotFoundError()
	}
	return &consultation, nil
}

func (svc *consultationsService) ListConsultations(ctx context.Context, clientID *string, limit uint64, offset uint64) (consultations []db.Consultation, totalCount uint64, err error) {
	tx := svc.db

	if clientID != nil {
		tx = tx.Where("client_id = ?", *clientID)
	}

	var totalCount64 int64
	result := tx.Model(&db.Consultation{}).Count(&totalCount64)
	if result.Error != nil {
		logger.Logger.Error().Err(result.Error).Msg("Failed to count consultations")
		return nil, 0, result.Error
	}
	totalCount = uint64(totalCount64)

	tx = tx.Order("updated_at desc")
	if limit > 0 {
		tx = tx.Limit(int(limit))
	}
	if offset > 0 {
		tx = tx.Offset(int(offset))
	}

	result = tx.Find(&consultations)
	if result.Error != nil {
		logger.Logger.Error().Err(result.Error).Msg("Failed to list consultations")
		return nil, 0, result.Error
	}

	return consultations, totalCount, nil
}

func (svc *consultationsService) AssignConsultation(ctx context.Context, consultationID uint, lawyerID uint) error {
	var consultation db.Consultation
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

		var lawyer db.Lawyer
		result = tx.Limit(1).Find(&lawyer, &db.Lawyer{
			ID: lawyerID,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return NewNotFoundError()
		}

		if !lawyer.Verified || !lawyer.Active {
			return NewUnauthorizedError("lawyer is not verified and active")
		}
		if consultation.Status != constants.CONSULTATION_STATE_PENDING {
			return NewInvalidStateTransitionError("consultation is not pending assignment")
		}
		if time.Since(consultation.SubmittedAt) > constants.OVERALL_DEADLINE {
			return NewDeadlineExceededError("overall deadline has passed")
		}

		encryptedLawyerID, err := svc.store.WrapUint64(ctx, uint64(lawyerID))
		if err != nil {
			return err
		}

		now := time.Now()
		return tx.Model(&consultation).Updates(map[string]interface{}{
			"AssignedLawyerID":  lawyerID,
			"EncryptedLawyerID": encryptedLawyerID.String(),
			"Status":            constants.CONSULTATION_STATE_ASSIGNED,
			"AssignedAt":        &now,
		}).Error
	})
	if err != nil {
		logger.Logger.Error().Err(err).
			Uint("consultation_id", consultationID).
			Uint("lawyer_id", lawyerID).
			Msg("Failed to assign consultation")
		return err
	}

	logger.Logger.Info().
		Uint("consultation_id", consultationID).
		Uint("lawyer_id", lawyerID).
		Msg("Consultation assigned")

	svc.eventPublisher.Publish(&events.Event{
		Event:      constants.EVENT_CONSULTATION_ASSIGNED,
		Properties: &consultation,
	})

	return nil
}

func (svc *consultationsService) RespondToConsultation(ctx context.Context, req *RespondRequest) error {
	var consultation db.Consultation
	var decryptionRequest *db.DecryptionRequest

	err := svc.db.Transaction(func(tx *gorm.DB) error {
		var lawyer db.Lawyer
		result := tx.Limit(1).Find(&lawyer, &db.Lawyer{
			Identity: req.LawyerIdentity,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 || !lawyer.Verified {
			return NewUnauthorizedError("caller is not a verified lawyer")
		}

		result = tx.Limit(1).Find(&consultation, &db.Consultation{
			ID: req.ConsultationID,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return NewNotFoundError()
		}

		if consultation.AssignedLawyerID == nil || *consultation.AssignedLawyerID != lawyer.ID {
			return NewUnauthorizedError("consultation is assigned to a different lawyer")
		}
		if consultation.Status != constants.CONSULTATION_STATE_ASSIGNED &&
			consultation.Status != constants.CONSULTATION_STATE_IN_PROGRESS {
			return NewInvalidStateTransitionError("consultation is not awaiting a response")
		}
		if !admission.ResponseLengthOK(req.Response) {
			return NewInvalidInputError("response length out of range")
		}
		if consultation.AssignedAt != nil && time.Since(*consultation.AssignedAt) > constants.RESPONSE_DEADLINE {
			return NewDeadlineExceededError("response deadline has passed")
		}

		encryptedResponse, err := svc.store.Wrap(ctx, []byte(req.Response))
		if err != nil {
			return err
		}

		now := time.Now()
		err = tx.Model(&consultation).Updates(map[string]interface{}{
			"EncryptedResponse": encryptedResponse.String(),
			"Status":            constants.CONSULTATION_STATE_RESPONDED,
			"RespondedAt":       &now,
		}).Error
		if err != nil {
			return err
		}

		decryptionRequest, err = svc.createDecryptionRequest(tx, constants.DECRYPTION_TYPE_SETTLEMENT, &consultation, nil)
		return err
	})
	if err != nil {
		logger.Logger.Error().Err(err).
			Uint("consultation_id", req.ConsultationID).
			Msg("Failed to respond to consultation")
		return err
	}

	logger.Logger.Info().
		Uint("consultation_id", consultation.ID).
		Str("decryption_uuid", decryptionRequest.UUID).
		Msg("Response recorded, requesting settlement decryption")

	svc.eventPublisher.Publish(&events.Event{
		Event:      constants.EVENT_CONSULTATION_RESPONDED,
		Properties: &consultation,
	})

	svc.dispatchDecryption(ctx, decryptionRequest, &consultation, nil)

	return nil
}

func (svc *consultationsService) GetClientProfile(ctx context.Context, clientID string) (queries.ClientProfile, error) {
	if clientID == "" {
		return queries.ClientProfile{}, NewInvalidInputError("client identity is required")
	}
	return queries.GetClientProfile(svc.db, clientID), nil
}
