package migrations

import (
	"github.com/CarrieMorar/FHELegalConsultation/db"
	"gorm.io/gorm"
)

func Migrate(gormDB *gorm.DB) error {
	// AutoMigrate all core models
	return gormDB.AutoMigrate(
		&db.UserConfig{},
		&db.Consultation{},
		&db.Lawyer{},
		&db.DecryptionRequest{},
		&db.Transfer{},
	)
}
