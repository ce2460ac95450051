package tests

import (
	"os"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/CarrieMorar/FHELegalConsultation/admission"
	"github.com/CarrieMorar/FHELegalConsultation/constants"
	"github.com/CarrieMorar/FHELegalConsultation/db"
	"github.com/CarrieMorar/FHELegalConsultation/db/migrations"
	"github.com/CarrieMorar/FHELegalConsultation/events"
	"github.com/CarrieMorar/FHELegalConsultation/evstore"
	"github.com/CarrieMorar/FHELegalConsultation/logger"
)

type TestService struct {
	DB             *gorm.DB
	EventPublisher events.EventPublisher
	Store          *evstore.MemStore
	OracleClient   *MockOracleClient
	Limiter        *admission.Limiter

	dbPath string
}

func CreateTestService(t *testing.T) (*TestService, error) {
	logger.Init("")

	dbPath := filepath.Join(t.TempDir(), "test.db")
	gormDB, err := db.NewDB(dbPath, false)
	if err != nil {
		return nil, err
	}
	err = migrations.Migrate(gormDB)
	if err != nil {
		return nil, err
	}

	oracleClient, err := NewMockOracleClient()
	if err != nil {
		return nil, err
	}

	return &TestService{
		DB:             gormDB,
		EventPublisher: events.NewEventPublisher(),
		Store:          evstore.NewMemStore(),
		OracleClient:   oracleClient,
		Limiter:        admission.NewLimiter(constants.RATE_LIMIT_PERIOD, constants.MAX_SUBMISSIONS_PER_PERIOD),
		dbPath:         dbPath,
	}, nil
}

func (svc *TestService) Remove() {
	db.Stop(svc.DB)
	os.Remove(svc.dbPath)
}
