package service

import (
	"gorm.io/gorm"

	"github.com/CarrieMorar/FHELegalConsultation/config"
	"github.com/CarrieMorar/FHELegalConsultation/consultations"
	"github.com/CarrieMorar/FHELegalConsultation/events"
	"github.com/CarrieMorar/FHELegalConsultation/evstore"
	"github.com/CarrieMorar/FHELegalConsultation/oracle"
)

type Service interface {
	Shutdown()

	GetDB() *gorm.DB
	GetConfig() config.Config
	GetEventPublisher() events.EventPublisher
	GetConsultationsService() consultations.ConsultationsService
	GetOracleClient() oracle.Client
	GetStore() evstore.Store
}
