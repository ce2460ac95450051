package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gorm.io/gorm"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/CarrieMorar/FHELegalConsultation/admission"
	"github.com/CarrieMorar/FHELegalConsultation/config"
	"github.com/CarrieMorar/FHELegalConsultation/constants"
	"github.com/CarrieMorar/FHELegalConsultation/consultations"
	"github.com/CarrieMorar/FHELegalConsultation/db"
	"github.com/CarrieMorar/FHELegalConsultation/db/migrations"
	"github.com/CarrieMorar/FHELegalConsultation/events"
	"github.com/CarrieMorar/FHELegalConsultation/evstore"
	"github.com/CarrieMorar/FHELegalConsultation/logger"
	"github.com/CarrieMorar/FHELegalConsultation/oracle"
	"github.com/CarrieMorar/FHELegalConsultation/pkg/version"
	"github.com/CarrieMorar/FHELegalConsultation/settlement"
)

type service struct {
	cfg config.Config

	db                   *gorm.DB
	consultationsService consultations.ConsultationsService
	oracleClient         oracle.Client
	store                evstore.Store
	eventPublisher       events.EventPublisher
	ctx                  context.Context
}

func NewService(ctx context.Context) (*service, error) {
	// Load config from environment variables / .env file
	godotenv.Load(".env")
	appConfig := &config.AppConfig{}
	err := envconfig.Process("", appConfig)
	if err != nil {
		return nil, err
	}

	logger.Init(appConfig.LogLevel)
	logger.Logger.Info().Msg("ConsultHub " + version.Tag)

	if appConfig.Workdir == "" {
		appConfig.Workdir = filepath.Join(xdg.DataHome, constants.APP_IDENTIFIER)
		logger.Logger.Info().Interface("workdir", appConfig.Workdir).Msg("No workdir specified, using default")
	}
	// make sure workdir exists
	os.MkdirAll(appConfig.Workdir, os.ModePerm)

	if appConfig.LogToFile {
		err = logger.AddFileLogger(appConfig.Workdir)
		if err != nil {
			return nil, err
		}
	}

	// If DATABASE_URI is a URI or a path, leave it unchanged.
	// If it only contains a filename, prepend the workdir.
	if !strings.HasPrefix(appConfig.DatabaseUri, "file:") {
		databasePath, _ := filepath.Split(appConfig.DatabaseUri)
		if databasePath == "" {
			appConfig.DatabaseUri = filepath.Join(appConfig.Workdir, appConfig.DatabaseUri)
		}
	}

	gormDB, err := db.NewDB(appConfig.DatabaseUri, appConfig.LogDBQueries)
	if err != nil {
		return nil, err
	}
	err = migrations.Migrate(gormDB)
	if err != nil {
		return nil, err
	}

	cfg, err := config.NewConfig(appConfig, gormDB)
	if err != nil {
		return nil, err
	}

	eventPublisher := events.NewEventPublisher()

	store := evstore.NewMemStore()

	oracleClient, err := oracle.NewLocalOracle(store, eventPublisher, time.Duration(appConfig.OracleDelayMs)*time.Millisecond)
	if err != nil {
		return nil, err
	}

	limiter := admission.NewLimiter(constants.RATE_LIMIT_PERIOD, constants.MAX_SUBMISSIONS_PER_PERIOD)

	consultationsSvc := consultations.NewConsultationsService(
		gormDB,
		eventPublisher,
		store,
		oracleClient,
		settlement.NewLedgerTransport(gormDB),
		limiter,
	)

	svc := &service{
		cfg:                  cfg,
		ctx:                  ctx,
		db:                   gormDB,
		eventPublisher:       eventPublisher,
		consultationsService: consultationsSvc,
		oracleClient:         oracleClient,
		store:                store,
	}

	// oracle results arrive as events; the consultations service settles them
	eventPublisher.RegisterSubscriber(svc.consultationsService)

	eventPublisher.Publish(&events.Event{
		Event: "consulthub_started",
		Properties: map[string]interface{}{
			"version": version.Tag,
		},
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(10 * time.Minute):
				svc.sweepOverdueConsultations()
			}
		}
	}()

	return svc, nil
}

// sweepOverdueConsultations moves consultations past the overall deadline into
// the timed out state so clients become refund eligible without any caller
// action. MarkTimedOut re-checks every invariant, the query is only a filter.
func (svc *service) sweepOverdueConsultations() {
	cutoff := time.Now().Add(-constants.OVERALL_DEADLINE)

	var overdue []db.Consultation
	err := svc.db.
		Where("submitted_at < ?", cutoff).
		Where("resolved = ? AND refund_processed = ?", false, false).
		Where("status NOT IN ?", []string{
			constants.CONSULTATION_STATE_TIMED_OUT,
			constants.CONSULTATION_STATE_REFUND_REQUESTED,
			constants.CONSULTATION_STATE_REFUNDED,
		}).
		Find(&overdue).Error
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to query overdue consultations")
		return
	}

	for _, consultation := range overdue {
		err = svc.consultationsService.MarkTimedOut(svc.ctx, consultation.ID)
		if err != nil {
			logger.Logger.Error().Err(err).
				Uint("consultation_id", consultation.ID).
				Msg("Failed to time out overdue consultation")
		}
	}
}

func (svc *service) Shutdown() {
	logger.Logger.Info().Msg("Shutting down")
	svc.eventPublisher.Publish(&events.Event{
		Event: "consulthub_stopped",
	})
	// wait for any inflight events to be consumed
	time.Sleep(1 * time.Second)

	db.Stop(svc.db)
}

func (svc *service) GetDB() *gorm.DB {
	return svc.db
}

func (svc *service) GetConfig() config.Config {
	return svc.cfg
}

func (svc *service) GetEventPublisher() events.EventPublisher {
	return svc.eventPublisher
}

func (svc *service) GetConsultationsService() consultations.ConsultationsService {
	return svc.consultationsService
}

func (svc *service) GetOracleClient() oracle.Client {
	return svc.oracleClient
}

func (svc *service) GetStore() evstore.Store {
	return svc.store
}
