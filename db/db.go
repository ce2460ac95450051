package db

import (
	"strings"
	"time"

	"github.com/CarrieMorar/FHELegalConsultation/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSqliteOptions = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"

// NewDB opens the configured database. Migrations are run separately by the
// caller (see migrations.Migrate) to keep this package import-cycle free.
func NewDB(uri string, logDBQueries bool) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		TranslateError: true,
	}
	if logDBQueries {
		gormConfig.Logger = gormlogger.New(&gormLogWriter{}, gormlogger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      gormlogger.Info,
		})
	}

	var dialector gorm.Dialector
	if strings.HasPrefix(uri, "postgres://") || strings.HasPrefix(uri, "postgresql://") {
		dialector = postgres.Open(uri)
	} else {
		if !strings.Contains(uri, "?") {
			uri = uri + defaultSqliteOptions
		}
		dialector = sqlite.Open(uri)
	}

	gormDB, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, err
	}

	return gormDB, nil
}

type gormLogWriter struct{}

func (w *gormLogWriter) Printf(format string, args ...interface{}) {
	logger.Logger.Debug().Msgf(format, args...)
}

func Stop(gormDB *gorm.DB) error {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
