package consultations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CarrieMorar/FHELegalConsultation/constants"
	"github.com/CarrieMorar/FHELegalConsultation/db"
	"github.com/CarrieMorar/FHELegalConsultation/settlement"
	"github.com/CarrieMorar/FHELegalConsultation/tests"
)

func createTestConsultationsService(svc *tests.TestService, transport settlement.Transport) *consultationsService {
	if transport == nil {
		transport = settlement.NewLedgerTransport(svc.DB)
	}
	return NewConsultationsService(svc.DB, svc.EventPublisher, svc.Store, svc.OracleClient, transport, svc.Limiter)
}

func registerVerifiedLawyer(t *testing.T, ctx context.Context, consultationsSvc *consultationsService, identity string) *db.Lawyer {
	lawyer, err := consultationsSvc.RegisterLawyer(ctx, &RegisterLawyerRequest{
		Identity:  identity,
		Specialty: constants.CATEGORY_CONTRACT,
	})
	require.NoError(t, err)
	require.NoError(t, consultationsSvc.VerifyLawyer(ctx, lawyer.ID))
	return lawyer
}

func TestSubmitConsultation(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	consultationsSvc := createTestConsultationsService(svc, nil)

	consultation, err := consultationsSvc.SubmitConsultation(ctx, &SubmitConsultationRequest{
		ClientID: "client-1",
		Category: constants.CATEGORY_FAMILY,
		Question: "Can my landlord keep the deposit?",
		FeeCents: 7500,
	})
	require.NoError(t, err)

	assert.Equal(t, constants.CONSULTATION_STATE_PENDING, consultation.Status)
	assert.True(t, consultation.Paid)
	assert.False(t, consultation.Resolved)
	assert.NotEmpty(t, consultation.EncryptedCategory)
	assert.NotEmpty(t, consultation.EncryptedQuestion)
	assert.NotEmpty(t, consultation.EncryptedFee)
	assert.Nil(t, consultation.AssignedLawyerID)
	assert.False(t, consultation.SubmittedAt.IsZero())
}

func TestSubmitConsultation_InsufficientFee(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	consultationsSvc := createTestConsultationsService(svc, nil)

	_, err = consultationsSvc.SubmitConsultation(ctx, &SubmitConsultationRequest{
		ClientID: "client-1",
		Category: constants.CATEGORY_FAMILY,
		Question: "Underpaid question",
		FeeCents: constants.MIN_CONSULTATION_FEE - 1,
	})
	assert.Error(t, err)
	assert.Equal(t, constants.ERROR_INVALID_INPUT, ErrorCode(err))

	// no row may exist for a rejected submission
	var count int64
	svc.DB.Model(&db.Consultation{}).Count(&count)
	assert.Zero(t, count)
}

func TestSubmitConsultation_InvalidInputs(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	consultationsSvc := createTestConsultationsService(svc, nil)

	_, err = consultationsSvc.SubmitConsultation(ctx, &SubmitConsultationRequest{
		ClientID: "client-1",
		Category: constants.CATEGORY_COUNT,
		Question: "Out of range category",
		FeeCents: 7500,
	})
	assert.Equal(t, constants.ERROR_INVALID_INPUT, ErrorCode(err))

	longQuestion := make([]byte, constants.QUESTION_MAX_LENGTH+1)
	for i := range longQuestion {
		longQuestion[i] = 'a'
	}
	_, err = consultationsSvc.SubmitConsultation(ctx, &SubmitConsultationRequest{
		ClientID: "client-1",
		Category: constants.CATEGORY_FAMILY,
		Question: string(longQuestion),
		FeeCents: 7500,
	})
	assert.Equal(t, constants.ERROR_INVALID_INPUT, ErrorCode(err))

	_, err = consultationsSvc.SubmitConsultation(ctx, &SubmitConsultationRequest{
		ClientID: "client-1",
		Category: constants.CATEGORY_FAMILY,
		Question: "",
		FeeCents: 7500,
	})
	assert.Equal(t, constants.ERROR_INVALID_INPUT, ErrorCode(err))
}

func TestSubmitConsultation_RateLimited(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	consultationsSvc := createTestConsultationsService(svc, nil)

	for i := 0; i < constants.MAX_SUBMISSIONS_PER_PERIOD; i++ {
		_, err = consultationsSvc.SubmitConsultation(ctx, &SubmitConsultationRequest{
			ClientID: "client-1",
			Category: constants.CATEGORY_FAMILY,
			Question: "One of several questions",
			FeeCents: 7500,
		})
		require.NoError(t, err)
	}

	// admission runs before validation, so even a valid request is rejected
	_, err = consultationsSvc.SubmitConsultation(ctx, &SubmitConsultationRequest{
		ClientID: "client-1",
		Category: constants.CATEGORY_FAMILY,
		Question: "One too many",
		FeeCents: 7500,
	})
	assert.Equal(t, constants.ERROR_RATE_LIMITED, ErrorCode(err))

	// other identities are unaffected
	_, err = consultationsSvc.SubmitConsultation(ctx, &SubmitConsultationRequest{
		ClientID: "client-2",
		Category: constants.CATEGORY_FAMILY,
		Question: "A different client",
		FeeCents: 7500,
	})
	assert.NoError(t, err)
}

func TestAssignConsultation(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	consultationsSvc := createTestConsultationsService(svc, nil)
	lawyer := registerVerifiedLawyer(t, ctx, consultationsSvc, "lawyer-1")

	consultation, err := consultationsSvc.SubmitConsultation(ctx, &SubmitConsultationRequest{
		ClientID: "client-1",
		Category: constants.CATEGORY_FAMILY,
		Question: "Assignment test",
		FeeCents: 7500,
	})
	require.NoError(t, err)

	require.NoError(t, consultationsSvc.AssignConsultation(ctx, consultation.ID, lawyer.ID))

	assigned, err := consultationsSvc.GetConsultation(ctx, consultation.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.CONSULTATION_STATE_ASSIGNED, assigned.Status)
	require.NotNil(t, assigned.AssignedLawyerID)
	assert.Equal(t, lawyer.ID, *assigned.AssignedLawyerID)
	assert.NotEmpty(t, assigned.EncryptedLawyerID)
	assert.NotNil(t, assigned.AssignedAt)

	// assigning twice is an invalid transition
	err = consultationsSvc.AssignConsultation(ctx, consultation.ID, lawyer.ID)
	assert.Equal(t, constants.ERROR_INVALID_STATE_TRANSITION, ErrorCode(err))
}

func TestAssignConsultation_UnverifiedLawyer(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	consultationsSvc := createTestConsultationsService(svc, nil)

	lawyer, err := consultationsSvc.RegisterLawyer(ctx, &RegisterLawyerRequest{
		Identity:  "lawyer-unverified",
		Specialty: constants.CATEGORY_CONTRACT,
	})
	require.NoError(t, err)

	consultation, err := consultationsSvc.SubmitConsultation(ctx, &SubmitConsultationRequest{
		ClientID: "client-1",
		Category: constants.CATEGORY_FAMILY,
		Question: "Unverified assignment test",
		FeeCents: 7500,
	})
	require.NoError(t, err)

	err = consultationsSvc.AssignConsultation(ctx, consultation.ID, lawyer.ID)
	assert.Equal(t, constants.ERROR_UNAUTHORIZED, ErrorCode(err))

	// inactive lawyers are rejected the same way
	require.NoError(t, consultationsSvc.VerifyLawyer(ctx, lawyer.ID))
	require.NoError(t, consultationsSvc.SetLawyerActive(ctx, lawyer.ID, false))

	err = consultationsSvc.AssignConsultation(ctx, consultation.ID, lawyer.ID)
	assert.Equal(t, constants.ERROR_UNAUTHORIZED, ErrorCode(err))
}

func TestAssignConsultation_OverallDeadline(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	consultationsSvc := createTestConsultationsService(svc, nil)
	lawyer := registerVerifiedLawyer(t, ctx, consultationsSvc, "lawyer-1")

	consultation, err := consultationsSvc.SubmitConsultation(ctx, &SubmitConsultationRequest{
		ClientID: "client-1",
		Category: constants.CATEGORY_FAMILY,
		Question: "Expired before assignment",
		FeeCents: 7500,
	})
	require.NoError(t, err)

	backdated := time.Now().Add(-constants.OVERALL_DEADLINE - time.Hour)
	require.NoError(t, svc.DB.Model(&db.Consultation{}).Where("id = ?", consultation.ID).
		Update("submitted_at", backdated).Error)

	err = consultationsSvc.AssignConsultation(ctx, consultation.ID, lawyer.ID)
	assert.Equal(t, constants.ERROR_DEADLINE_EXCEEDED, ErrorCode(err))
}

func TestRespondToConsultation(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	consultationsSvc := createTestConsultationsService(svc, nil)
	lawyer := registerVerifiedLawyer(t, ctx, consultationsSvc, "lawyer-1")

	consultation, err := consultationsSvc.SubmitConsultation(ctx, &SubmitConsultationRequest{
		ClientID: "client-1",
		Category: constants.CATEGORY_FAMILY,
		Question: "Response test",
		FeeCents: 7500,
	})
	require.NoError(t, err)
	require.NoError(t, consultationsSvc.AssignConsultation(ctx, consultation.ID, lawyer.ID))

	require.NoError(t, consultationsSvc.RespondToConsultation(ctx, &RespondRequest{
		ConsultationID: consultation.ID,
		LawyerIdentity: "lawyer-1",
		Response:       "You are entitled to the deposit back.",
	}))

	responded, err := consultationsSvc.GetConsultation(ctx, consultation.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.CONSULTATION_STATE_RESPONDED, responded.Status)
	assert.NotEmpty(t, responded.EncryptedResponse)
	assert.NotNil(t, responded.RespondedAt)
	require.NotNil(t, responded.PendingDecryptionID)
	assert.NotNil(t, responded.DecryptRequestedAt)

	// exactly one decryption request, dispatched to the oracle
	var decryptionRequests []db.DecryptionRequest
	svc.DB.Find(&decryptionRequests)
	require.Len(t, decryptionRequests, 1)
	assert.Equal(t, constants.DECRYPTION_TYPE_SETTLEMENT, decryptionRequests[0].Type)
	assert.False(t, decryptionRequests[0].Processed)

	oracleRequest := svc.OracleClient.LastRequest()
	require.NotNil(t, oracleRequest)
	assert.Equal(t, decryptionRequests[0].UUID, oracleRequest.UUID)
	assert.Len(t, oracleRequest.Handles, 2)

	// responding again is rejected: the consultation is no longer awaiting one
	err = consultationsSvc.RespondToConsultation(ctx, &RespondRequest{
		ConsultationID: consultation.ID,
		LawyerIdentity: "lawyer-1",
		Response:       "Second response",
	})
	assert.Equal(t, constants.ERROR_INVALID_STATE_TRANSITION, ErrorCode(err))
}

func TestRespondToConsultation_WrongLawyer(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	consultationsSvc := createTestConsultationsService(svc, nil)
	lawyer := registerVerifiedLawyer(t, ctx, consultationsSvc, "lawyer-1")
	registerVerifiedLawyer(t, ctx, consultationsSvc, "lawyer-2")

	consultation, err := consultationsSvc.SubmitConsultation(ctx, &SubmitConsultationRequest{
		ClientID: "client-1",
		Category: constants.CATEGORY_FAMILY,
		Question: "Wrong lawyer test",
		FeeCents: 7500,
	})
	require.NoError(t, err)
	require.NoError(t, consultationsSvc.AssignConsultation(ctx, consultation.ID, lawyer.ID))

	err = consultationsSvc.RespondToConsultation(ctx, &RespondRequest{
		ConsultationID: consultation.ID,
		LawyerIdentity: "lawyer-2",
		Response:       "Not my case",
	})
	assert.Equal(t, constants.ERROR_UNAUTHORIZED, ErrorCode(err))
}

func TestRespondToConsultation_ResponseDeadline(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	consultationsSvc := createTestConsultationsService(svc, nil)
	lawyer := registerVerifiedLawyer(t, ctx, consultationsSvc, "lawyer-1")

	consultation, err := consultationsSvc.SubmitConsultation(ctx, &SubmitConsultationRequest{
		ClientID: "client-1",
		Category: constants.CATEGORY_FAMILY,
		Question: "Response deadline test",
		FeeCents: 7500,
	})
	require.NoError(t, err)
	require.NoError(t, consultationsSvc.AssignConsultation(ctx, consultation.ID, lawyer.ID))

	backdated := time.Now().Add(-constants.RESPONSE_DEADLINE - time.Hour)
	require.NoError(t, svc.DB.Model(&db.Consultation{}).Where("id = ?", consultation.ID).
		Update("assigned_at", backdated).Error)

	err = consultationsSvc.RespondToConsultation(ctx, &RespondRequest{
		ConsultationID: consultation.ID,
		LawyerIdentity: "lawyer-1",
		Response:       "Too late",
	})
	assert.Equal(t, constants.ERROR_DEADLINE_EXCEEDED, ErrorCode(err))
}

func TestGetClientProfile(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	consultationsSvc := createTestConsultationsService(svc, nil)

	for i := 0; i < 3; i++ {
		_, err = consultationsSvc.SubmitConsultation(ctx, &SubmitConsultationRequest{
			ClientID: "client-1",
			Category: constants.CATEGORY_FAMILY,
			Question: "Profile test question",
			FeeCents: 7500,
		})
		require.NoError(t, err)
	}

	profile, err := consultationsSvc.GetClientProfile(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), profile.TotalConsultations)
	assert.Equal(t, int64(3), profile.OpenConsultations)
	assert.Equal(t, int64(3*constants.MIN_CONSULTATION_FEE), profile.EscrowExposureCents)
	assert.NotNil(t, profile.LastActivity)

	_, err = consultationsSvc.GetClientProfile(ctx, "")
	assert.Equal(t, constants.ERROR_INVALID_INPUT, ErrorCode(err))
}

func TestListConsultations(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	consultationsSvc := createTestConsultationsService(svc, nil)

	for _, clientID := range []string{"client-1", "client-1", "client-2"} {
		_, err = consultationsSvc.SubmitConsultation(ctx, &SubmitConsultationRequest{
			ClientID: clientID,
			Category: constants.CATEGORY_FAMILY,
			Question: "List test question",
			FeeCents: 7500,
		})
		require.NoError(t, err)
	}

	all, totalCount, err := consultationsSvc.ListConsultations(ctx, nil, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), totalCount)
	assert.Len(t, all, 3)

	clientID := "client-1"
	mine, totalCount, err := consultationsSvc.ListConsultations(ctx, &clientID, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), totalCount)
	assert.Len(t, mine, 1)
}
