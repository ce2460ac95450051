package queries_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CarrieMorar/FHELegalConsultation/constants"
	"github.com/CarrieMorar/FHELegalConsultation/db"
	"github.com/CarrieMorar/FHELegalConsultation/db/queries"
	"github.com/CarrieMorar/FHELegalConsultation/tests"
)

func TestGetClientProfile(t *testing.T) {
	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	now := time.Now()

	// two open, one resolved, one refunded for client-1
	seed := []db.Consultation{
		{ClientID: "client-1", Paid: true, Status: constants.CONSULTATION_STATE_PENDING, SubmittedAt: now},
		{ClientID: "client-1", Paid: true, Status: constants.CONSULTATION_STATE_ASSIGNED, SubmittedAt: now},
		{ClientID: "client-1", Paid: true, Resolved: true, Status: constants.CONSULTATION_STATE_RESOLVED, SubmittedAt: now},
		{ClientID: "client-1", Paid: true, RefundRequested: true, RefundProcessed: true, Status: constants.CONSULTATION_STATE_REFUNDED, SubmittedAt: now},
		{ClientID: "client-2", Paid: true, Status: constants.CONSULTATION_STATE_PENDING, SubmittedAt: now},
	}
	for i := range seed {
		require.NoError(t, svc.DB.Create(&seed[i]).Error)
	}

	profile := queries.GetClientProfile(svc.DB, "client-1")
	assert.Equal(t, "client-1", profile.ClientID)
	assert.Equal(t, int64(4), profile.TotalConsultations)
	assert.Equal(t, int64(2), profile.OpenConsultations)
	assert.Equal(t, int64(2*constants.MIN_CONSULTATION_FEE), profile.EscrowExposureCents)
	require.NotNil(t, profile.LastActivity)

	empty := queries.GetClientProfile(svc.DB, "nobody")
	assert.Zero(t, empty.TotalConsultations)
	assert.Zero(t, empty.OpenConsultations)
	assert.Zero(t, empty.EscrowExposureCents)
	assert.Nil(t, empty.LastActivity)
}

func TestGetOpenEscrowExposure(t *testing.T) {
	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	assert.Zero(t, queries.GetOpenEscrowExposure(svc.DB))

	now := time.Now()
	seed := []db.Consultation{
		{ClientID: "client-1", Paid: true, Status: constants.CONSULTATION_STATE_PENDING, SubmittedAt: now},
		{ClientID: "client-2", Paid: true, Status: constants.CONSULTATION_STATE_ASSIGNED, SubmittedAt: now},
		{ClientID: "client-3", Paid: true, Resolved: true, Status: constants.CONSULTATION_STATE_RESOLVED, SubmittedAt: now},
	}
	for i := range seed {
		require.NoError(t, svc.DB.Create(&seed[i]).Error)
	}

	assert.Equal(t, int64(2*constants.MIN_CONSULTATION_FEE), queries.GetOpenEscrowExposure(svc.DB))
}
