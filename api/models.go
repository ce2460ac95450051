package api

import (
	"context"
	"time"
)

type API interface {
	SubmitConsultation(ctx context.Context, req *SubmitConsultationRequest) (*Consultation, error)
	GetConsultation(ctx context.Context, consultationID uint) (*Consultation, error)
	ListConsultations(ctx context.Context, clientID *string, limit uint64, offset uint64) (*ListConsultationsResponse, error)
	AssignConsultation(ctx context.Context, consultationID uint, assignRequest *AssignConsultationRequest) error
	RespondToConsultation(ctx context.Context, consultationID uint, respondRequest *RespondToConsultationRequest) error
	RateLawyer(ctx context.Context, consultationID uint, rateRequest *RateLawyerRequest) error

	RegisterLawyer(ctx context.Context, registerRequest *RegisterLawyerRequest) (*Lawyer, error)
	GetLawyer(ctx context.Context, lawyerID uint) (*Lawyer, error)
	VerifyLawyer(ctx context.Context, lawyerID uint) error
	SetLawyerActive(ctx context.Context, lawyerID uint, activeRequest *SetLawyerActiveRequest) error
	RequestWithdrawal(ctx context.Context, withdrawalRequest *RequestWithdrawalRequest) error

	GetRefundEligibility(ctx context.Context, consultationID uint) (*RefundEligibilityResponse, error)
	RequestRefund(ctx context.Context, consultationID uint) error
	ProcessRefund(ctx context.Context, consultationID uint, processRequest *ProcessRefundRequest) error
	MarkTimedOut(ctx context.Context, consultationID uint) error

	GetClientProfile(ctx context.Context, clientID string) (*ClientProfileResponse, error)
	GetInfo(ctx context.Context) (*InfoResponse, error)
	GetLogOutput(ctx context.Context, getLogRequest *GetLogOutputRequest) (*GetLogOutputResponse, error)
}

type SubmitConsultationRequest struct {
	ClientID string `json:"clientId"`
	Category uint   `json:"category"`
	Question string `json:"question"`
	FeeCents uint64 `json:"feeCents"`
}

// Consultation is the external view of a consultation. Encrypted fields are
// exposed as opaque handles only.
type Consultation struct {
	ID                 uint       `json:"id"`
	ClientID           string     `json:"clientId"`
	Status             string     `json:"status"`
	PriorStatus        string     `json:"priorStatus,omitempty"`
	AssignedLawyerID   *uint      `json:"assignedLawyerId"`
	EncryptedCategory  string     `json:"encryptedCategory"`
	EncryptedQuestion  string     `json:"encryptedQuestion"`
	EncryptedResponse  string     `json:"encryptedResponse,omitempty"`
	Paid               bool       `json:"paid"`
	Resolved           bool       `json:"resolved"`
	RefundRequested    bool       `json:"refundRequested"`
	RefundProcessed    bool       `json:"refundProcessed"`
	Rated              bool       `json:"rated"`
	SubmittedAt        time.Time  `json:"submittedAt"`
	AssignedAt         *time.Time `json:"assignedAt"`
	RespondedAt        *time.Time `json:"respondedAt"`
	DecryptRequestedAt *time.Time `json:"decryptRequestedAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type ListConsultationsResponse struct {
	Consultations []Consultation `json:"consultations"`
	TotalCount    uint64         `json:"totalCount"`
}

type AssignConsultationRequest struct {
	LawyerID uint `json:"lawyerId"`
}

type RespondToConsultationRequest struct {
	LawyerIdentity string `json:"lawyerIdentity"`
	Response       string `json:"response"`
}

type RateLawyerRequest struct {
	ClientID string `json:"clientId"`
	Rating   uint   `json:"rating"`
}

type RegisterLawyerRequest struct {
	Identity  string `json:"identity"`
	Specialty uint   `json:"specialty"`
	Wallet    string `json:"wallet"`
}

type Lawyer struct {
	ID                uint      `json:"id"`
	Identity          string    `json:"identity"`
	ConsultationCount uint      `json:"consultationCount"`
	Verified          bool      `json:"verified"`
	Active            bool      `json:"active"`
	RegisteredAt      time.Time `json:"registeredAt"`
}

type SetLawyerActiveRequest struct {
	Active bool `json:"active"`
}

type RequestWithdrawalRequest struct {
	LawyerIdentity string `json:"lawyerIdentity"`
}

type RefundEligibilityResponse struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

type ProcessRefundRequest struct {
	Recipient string `json:"recipient"`
}

type ClientProfileResponse struct {
	ClientID            string     `json:"clientId"`
	TotalConsultations  int64      `json:"totalConsultations"`
	OpenConsultations   int64      `json:"openConsultations"`
	EscrowExposureCents int64      `json:"escrowExposureCents"`
	LastActivity        *time.Time `json:"lastActivity"`
}

type InfoResponse struct {
	BaseUrl            string `json:"baseUrl"`
	Version            string `json:"version"`
	Network            string `json:"network"`
	MinFeeCents        uint64 `json:"minFeeCents"`
	CategoryCount      uint   `json:"categoryCount"`
	OraclePublicKeyHex string `json:"oraclePublicKey"`
}

type GetLogOutputRequest struct {
	MaxLen int `query:"maxLen"`
}

type GetLogOutputResponse struct {
	Log string `json:"log"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
