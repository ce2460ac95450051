package api

import (
	"context"
	"encoding/hex"

	"gorm.io/gorm"

	"github.com/CarrieMorar/FHELegalConsultation/config"
	"github.com/CarrieMorar/FHELegalConsultation/constants"
	"github.com/CarrieMorar/FHELegalConsultation/consultations"
	"github.com/CarrieMorar/FHELegalConsultation/db"
	"github.com/CarrieMorar/FHELegalConsultation/logger"
	"github.com/CarrieMorar/FHELegalConsultation/oracle"
	"github.com/CarrieMorar/FHELegalConsultation/pkg/version"
	"github.com/CarrieMorar/FHELegalConsultation/utils"
)

type api struct {
	db               *gorm.DB
	cfg              config.Config
	consultationsSvc consultations.ConsultationsService
	oracleClient     oracle.Client
}

func NewAPI(gormDB *gorm.DB, cfg config.Config, consultationsSvc consultations.ConsultationsService, oracleClient oracle.Client) *api {
	return &api{
		db:               gormDB,
		cfg:              cfg,
		consultationsSvc: consultationsSvc,
		oracleClient:     oracleClient,
	}
}

func (api *api) SubmitConsultation(ctx context.Context, req *SubmitConsultationRequest) (*Consultation, error) {
	consultation, err := api.consultationsSvc.SubmitConsultation(ctx, &consultations.SubmitConsultationRequest{
		ClientID: req.ClientID,
		Category: req.Category,
		Question: req.Question,
		FeeCents: req.FeeCents,
	})
	if err != nil {
		return nil, err
	}
	return toApiConsultation(consultation), nil
}

func (api *api) GetConsultation(ctx context.Context, consultationID uint) (*Consultation, error) {
	consultation, err := api.consultationsSvc.GetConsultation(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	return toApiConsultation(consultation), nil
}

func (api *api) ListConsultations(ctx context.Context, clientID *string, limit uint64, offset uint64) (*ListConsultationsResponse, error) {
	dbConsultations, totalCount, err := api.consultationsSvc.ListConsultations(ctx, clientID, limit, offset)
	if err != nil {
		return nil, err
	}

	apiConsultations := []Consultation{}
	for i := range dbConsultations {
		apiConsultations = append(apiConsultations, *toApiConsultation(&dbConsultations[i]))
	}

	return &ListConsultationsResponse{
		Consultations: apiConsultations,
		TotalCount:    totalCount,
	}, nil
}

func (api *api) AssignConsultation(ctx context.Context, consultationID uint, assignRequest *AssignConsultationRequest) error {
	return api.consultationsSvc.AssignConsultation(ctx, consultationID, assignRequest.LawyerID)
}

func (api *api) RespondToConsultation(ctx context.Context, consultationID uint, respondRequest *RespondToConsultationRequest) error {
	return api.consultationsSvc.RespondToConsultation(ctx, &consultations.RespondRequest{
		ConsultationID: consultationID,
		LawyerIdentity: respondRequest.LawyerIdentity,
		Response:       respondRequest.Response,
	})
}

func (api *api) RateLawyer(ctx context.Context, consultationID uint, rateRequest *RateLawyerRequest) error {
	return api.consultationsSvc.RateLawyer(ctx, consultationID, rateRequest.ClientID, rateRequest.Rating)
}

func (api *api) RegisterLawyer(ctx context.Context, registerRequest *RegisterLawyerRequest) (*Lawyer, error) {
	lawyer, err := api.consultationsSvc.RegisterLawyer(ctx, &consultations.RegisterLawyerRequest{
		Identity:  registerRequest.Identity,
		Specialty: registerRequest.Specialty,
		Wallet:    registerRequest.Wallet,
	})
	if err != nil {
		return nil, err
	}
	return toApiLawyer(lawyer), nil
}

func (api *api) GetLawyer(ctx context.Context, lawyerID uint) (*Lawyer, error) {
	lawyer, err := api.consultationsSvc.GetLawyer(ctx, lawyerID)
	if err != nil {
		return nil, err
	}
	return toApiLawyer(lawyer), nil
}

func (api *api) VerifyLawyer(ctx context.Context, lawyerID uint) error {
	return api.consultationsSvc.VerifyLawyer(ctx, lawyerID)
}

func (api *api) SetLawyerActive(ctx context.Context, lawyerID uint, activeRequest *SetLawyerActiveRequest) error {
	return api.consultationsSvc.SetLawyerActive(ctx, lawyerID, activeRequest.Active)
}

func (api *api) RequestWithdrawal(ctx context.Context, withdrawalRequest *RequestWithdrawalRequest) error {
	return api.consultationsSvc.RequestWithdrawal(ctx, withdrawalRequest.LawyerIdentity)
}

func (api *api) GetRefundEligibility(ctx context.Context, consultationID uint) (*RefundEligibilityResponse, error) {
	eligible, reason, err := api.consultationsSvc.IsRefundEligible(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	return &RefundEligibilityResponse{
		Eligible: eligible,
		Reason:   reason,
	}, nil
}

func (api *api) RequestRefund(ctx context.Context, consultationID uint) error {
	return api.consultationsSvc.RequestRefund(ctx, consultationID)
}

func (api *api) ProcessRefund(ctx context.Context, consultationID uint, processRequest *ProcessRefundRequest) error {
	return api.consultationsSvc.ProcessRefund(ctx, consultationID, processRequest.Recipient)
}

func (api *api) MarkTimedOut(ctx context.Context, consultationID uint) error {
	return api.consultationsSvc.MarkTimedOut(ctx, consultationID)
}

func (api *api) GetClientProfile(ctx context.Context, clientID string) (*ClientProfileResponse, error) {
	profile, err := api.consultationsSvc.GetClientProfile(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return &ClientProfileResponse{
		ClientID:            clientID,
		TotalConsultations:  profile.TotalConsultations,
		OpenConsultations:   profile.OpenConsultations,
		EscrowExposureCents: profile.EscrowExposureCents,
		LastActivity:        profile.LastActivity,
	}, nil
}

func (api *api) GetInfo(ctx context.Context) (*InfoResponse, error) {
	return &InfoResponse{
		BaseUrl:            api.cfg.GetEnv().BaseUrl,
		Version:            version.Tag,
		Network:            constants.APP_IDENTIFIER,
		MinFeeCents:        constants.MIN_CONSULTATION_FEE,
		CategoryCount:      constants.CATEGORY_COUNT,
		OraclePublicKeyHex: hex.EncodeToString(api.oracleClient.PublicKey()),
	}, nil
}

func (api *api) GetLogOutput(ctx context.Context, getLogRequest *GetLogOutputRequest) (*GetLogOutputResponse, error) {
	logFileName := logger.GetLogFilePath()
	if logFileName == "" {
		return &GetLogOutputResponse{Log: "file log is disabled"}, nil
	}

	logData, err := utils.ReadFileTail(logFileName, getLogRequest.MaxLen)
	if err != nil {
		return nil, err
	}

	return &GetLogOutputResponse{Log: string(logData)}, nil
}

func toApiConsultation(consultation *db.Consultation) *Consultation {
	return &Consultation{
		ID:                 consultation.ID,
		ClientID:           consultation.ClientID,
		Status:             consultation.Status,
		PriorStatus:        consultation.PriorStatus,
		AssignedLawyerID:   consultation.AssignedLawyerID,
		EncryptedCategory:  consultation.EncryptedCategory,
		EncryptedQuestion:  consultation.EncryptedQuestion,
		EncryptedResponse:  consultation.EncryptedResponse,
		Paid:               consultation.Paid,
		Resolved:           consultation.Resolved,
		RefundRequested:    consultation.RefundRequested,
		RefundProcessed:    consultation.RefundProcessed,
		Rated:              consultation.Rated,
		SubmittedAt:        consultation.SubmittedAt,
		AssignedAt:         consultation.AssignedAt,
		RespondedAt:        consultation.RespondedAt,
		DecryptRequestedAt: consultation.DecryptRequestedAt,
		UpdatedAt:          consultation.UpdatedAt,
	}
}

func toApiLawyer(lawyer *db.Lawyer) *Lawyer {
	return &Lawyer{
		ID:                lawyer.ID,
		Identity:          lawyer.Identity,
		ConsultationCount: lawyer.ConsultationCount,
		Verified:          lawyer.Verified,
		Active:            lawyer.Active,
		RegisteredAt:      lawyer.RegisteredAt,
	}
}
