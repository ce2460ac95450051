package consultations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/CarrieMorar/FHELegalConsultation/constants"
	"github.com/CarrieMorar/FHELegalConsultation/db"
	"github.com/CarrieMorar/FHELegalConsultation/oracle"
	"github.com/CarrieMorar/FHELegalConsultation/settlement"
	"github.com/CarrieMorar/FHELegalConsultation/tests"
	"github.com/CarrieMorar/FHELegalConsultation/tests/mocks"
)

func TestRegisterLawyer(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	consultationsSvc := createTestConsultationsService(svc, nil)

	lawyer, err := consultationsSvc.RegisterLawyer(ctx, &RegisterLawyerRequest{
		Identity:  "lawyer-1",
		Specialty: constants.CATEGORY_EMPLOYMENT,
	})
	require.NoError(t, err)
	assert.True(t, lawyer.Active)
	assert.False(t, lawyer.Verified)
	assert.NotEmpty(t, lawyer.EncryptedWallet)
	assert.NotEmpty(t, lawyer.EncryptedSpecialty)
	assert.NotEmpty(t, lawyer.EncryptedReputation)
	assert.NotEmpty(t, lawyer.EncryptedEarnings)

	// registering the same identity twice is rejected
	_, err = consultationsSvc.RegisterLawyer(ctx, &RegisterLawyerRequest{
		Identity:  "lawyer-1",
		Specialty: constants.CATEGORY_EMPLOYMENT,
	})
	assert.Equal(t, constants.ERROR_INVALID_STATE_TRANSITION, ErrorCode(err))

	_, err = consultationsSvc.RegisterLawyer(ctx, &RegisterLawyerRequest{
		Identity:  "lawyer-2",
		Specialty: constants.CATEGORY_COUNT,
	})
	assert.Equal(t, constants.ERROR_INVALID_INPUT, ErrorCode(err))
}

func TestRateLawyer(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	consultationsSvc := createTestConsultationsService(svc, nil)
	consultation, lawyer, decryptionRequest := respondedConsultation(t, ctx, svc, consultationsSvc)

	// rating before resolution is rejected
	err = consultationsSvc.RateLawyer(ctx, consultation.ID, "client-1", 5)
	assert.Equal(t, constants.ERROR_INVALID_STATE_TRANSITION, ErrorCode(err))

	result := svc.OracleClient.SignedResult(decryptionRequest.UUID, map[string]uint64{
		oracle.KeyLawyerID:      uint64(lawyer.ID),
		oracle.KeyObfuscatedFee: ObfuscateFee(7500),
	})
	require.NoError(t, consultationsSvc.HandleDecryptionResult(ctx, result))

	// only the submitting client may rate
	err = consultationsSvc.RateLawyer(ctx, consultation.ID, "someone-else", 5)
	assert.Equal(t, constants.ERROR_UNAUTHORIZED, ErrorCode(err))

	// ratings are a closed range
	err = consultationsSvc.RateLawyer(ctx, consultation.ID, "client-1", constants.RATING_MAX+1)
	assert.Equal(t, constants.ERROR_INVALID_INPUT, ErrorCode(err))
	err = consultationsSvc.RateLawyer(ctx, consultation.ID, "client-1", 0)
	assert.Equal(t, constants.ERROR_INVALID_INPUT, ErrorCode(err))

	require.NoError(t, consultationsSvc.RateLawyer(ctx, consultation.ID, "client-1", 4))

	rated, err := consultationsSvc.GetConsultation(ctx, consultation.ID)
	require.NoError(t, err)
	assert.True(t, rated.Rated)

	ratedLawyer, err := consultationsSvc.GetLawyer(ctx, lawyer.ID)
	require.NoError(t, err)
	assert.NotEqual(t, lawyer.EncryptedReputation, ratedLawyer.EncryptedReputation)

	// rating is a one-way latch per consultation
	err = consultationsSvc.RateLawyer(ctx, consultation.ID, "client-1", 5)
	assert.Equal(t, constants.ERROR_INVALID_STATE_TRANSITION, ErrorCode(err))
}

func TestRequestWithdrawal(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	transport := mocks.NewTransport(t)
	consultationsSvc := createTestConsultationsService(svc, transport)
	consultation, lawyer, decryptionRequest := respondedConsultation(t, ctx, svc, consultationsSvc)
	_ = consultation

	obfuscatedFee := ObfuscateFee(7500)
	result := svc.OracleClient.SignedResult(decryptionRequest.UUID, map[string]uint64{
		oracle.KeyLawyerID:      uint64(lawyer.ID),
		oracle.KeyObfuscatedFee: obfuscatedFee,
	})
	require.NoError(t, consultationsSvc.HandleDecryptionResult(ctx, result))

	require.NoError(t, consultationsSvc.RequestWithdrawal(ctx, lawyer.Identity))

	var withdrawalRequest db.DecryptionRequest
	require.NoError(t, svc.DB.Where("type = ?", constants.DECRYPTION_TYPE_WITHDRAWAL).
		First(&withdrawalRequest).Error)
	assert.False(t, withdrawalRequest.Processed)
	require.NotNil(t, withdrawalRequest.LawyerID)
	assert.Equal(t, lawyer.ID, *withdrawalRequest.LawyerID)

	// a second withdrawal while one is pending is rejected
	err = consultationsSvc.RequestWithdrawal(ctx, lawyer.Identity)
	assert.Equal(t, constants.ERROR_INVALID_STATE_TRANSITION, ErrorCode(err))

	// the dispatched request grants the oracle access to the earnings total;
	// reveal it the way the oracle would to build the settlement payload
	oracleRequest := svc.OracleClient.LastRequest()
	require.NotNil(t, oracleRequest)
	earningsHandle := oracleRequest.Handles[oracle.KeyObfuscatedTotal]
	require.NotNil(t, earningsHandle)
	obfuscatedTotal, err := svc.Store.RevealUint64(ctx, earningsHandle, oracle.Principal)
	require.NoError(t, err)
	assert.Equal(t, obfuscatedFee, obfuscatedTotal)

	transport.On("Transfer", mock.Anything, mock.MatchedBy(func(req *settlement.TransferRequest) bool {
		return req.Recipient == lawyer.Identity &&
			req.AmountCents == DeobfuscateFee(obfuscatedTotal) &&
			req.Reason == db.TRANSFER_REASON_WITHDRAWAL
	})).Return(&db.Transfer{}, nil).Once()

	withdrawalResult := svc.OracleClient.SignedResult(withdrawalRequest.UUID, map[string]uint64{
		oracle.KeyObfuscatedTotal: obfuscatedTotal,
	})
	require.NoError(t, consultationsSvc.HandleDecryptionResult(ctx, withdrawalResult))

	settledLawyer, err := consultationsSvc.GetLawyer(ctx, lawyer.ID)
	require.NoError(t, err)
	assert.Nil(t, settledLawyer.PendingWithdrawalID)

	var processed db.DecryptionRequest
	require.NoError(t, svc.DB.First(&processed, withdrawalRequest.ID).Error)
	assert.True(t, processed.Processed)

	// the earnings were reset; a follow-up withdrawal settles nothing
	require.NoError(t, consultationsSvc.RequestWithdrawal(ctx, lawyer.Identity))
	emptyRequest := svc.OracleClient.LastRequest()
	emptyTotal, err := svc.Store.RevealUint64(ctx, emptyRequest.Handles[oracle.KeyObfuscatedTotal], oracle.Principal)
	require.NoError(t, err)
	assert.Zero(t, emptyTotal)
}

func TestRequestWithdrawal_UnverifiedLawyer(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	consultationsSvc := createTestConsultationsService(svc, nil)

	_, err = consultationsSvc.RegisterLawyer(ctx, &RegisterLawyerRequest{
		Identity:  "lawyer-unverified",
		Specialty: constants.CATEGORY_CONTRACT,
	})
	require.NoError(t, err)

	err = consultationsSvc.RequestWithdrawal(ctx, "lawyer-unverified")
	assert.Equal(t, constants.ERROR_UNAUTHORIZED, ErrorCode(err))
}
