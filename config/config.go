package config

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"

	"github.com/CarrieMorar/FHELegalConsultation/constants"
	"github.com/CarrieMorar/FHELegalConsultation/db"
	"github.com/CarrieMorar/FHELegalConsultation/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type config struct {
	Env        *AppConfig
	db         *gorm.DB
	cache      map[string]map[string]string // key -> encryptionKeyHash -> value
	cacheMutex sync.Mutex
	jwtSecret  string
}

func NewConfig(env *AppConfig, db *gorm.DB) (*config, error) {
	cfg := &config{
		db:    db,
		cache: map[string]map[string]string{},
	}
	err := cfg.init(env)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *config) init(env *AppConfig) error {
	cfg.Env = env

	if cfg.Env.JWTSecret != "" {
		err := cfg.SetUpdate("JWTSecret", cfg.Env.JWTSecret, "")
		if err != nil {
			return err
		}
	}

	return nil
}

// GetJWTSecret returns the signing secret for API tokens, generating and
// persisting one on first use.
func (cfg *config) GetJWTSecret() (string, error) {
	if cfg.jwtSecret != "" {
		return cfg.jwtSecret, nil
	}

	jwtSecret, err := cfg.Get("JWTSecret", "")
	if err != nil {
		return "", err
	}
	if jwtSecret == "" {
		jwtSecret, err = randomHex(32)
		if err != nil {
			logger.Logger.Error().Err(err).Msg("failed to generate JWT secret")
			return "", err
		}
		logger.Logger.Info().Msg("Generated new JWT secret")

		err = cfg.SetUpdate("JWTSecret", jwtSecret, "")
		if err != nil {
			logger.Logger.Error().Err(err).Msg("failed to save JWT secret")
			return "", err
		}
	}
	cfg.jwtSecret = jwtSecret
	return jwtSecret, nil
}

func (cfg *config) getEncryptionKeyHash(encryptionKey string) string {
	if encryptionKey == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(encryptionKey))
	return hex.EncodeToString(hash[:8])
}

func (cfg *config) Get(key string, encryptionKey string) (string, error) {
	cfg.cacheMutex.Lock()
	defer cfg.cacheMutex.Unlock()

	encKeyHash := cfg.getEncryptionKeyHash(encryptionKey)

	if keyCache, ok := cfg.cache[key]; ok {
		if cachedValue, ok := keyCache[encKeyHash]; ok {
			logger.Logger.Debug().Str("key", key).Msg("hit config cache")
			return cachedValue, nil
		}
	}
	logger.Logger.Debug().Str("key", key).Msg("missed config cache")

	value, err := cfg.get(key, encryptionKey, cfg.db)
	if err != nil {
		return "", err
	}

	if cfg.cache[key] == nil {
		cfg.cache[key] = make(map[string]string)
	}
	cfg.cache[key][encKeyHash] = value
	return value, nil
}

func (cfg *config) get(key string, encryptionKey string, gormDB *gorm.DB) (string, error) {
	var userConfig db.UserConfig
	err := gormDB.Where(&db.UserConfig{Key: key}).Limit(1).Find(&userConfig).Error
	if err != nil {
		return "", fmt.Errorf("failed to get configuration value: %w", err)
	}

	value := userConfig.Value
	if userConfig.Value != "" && encryptionKey != "" && userConfig.Encrypted {
		decrypted, err := AesGcmDecryptWithPassword(value, encryptionKey)
		if err != nil {
			return "", err
		}
		value = decrypted
	}
	return value, nil
}

func (cfg *config) set(key string, value string, clauses clause.OnConflict, encryptionKey string, gormDB *gorm.DB) error {
	if encryptionKey != "" {
		encrypted, err := AesGcmEncryptWithPassword(value, encryptionKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt: %v", err)
		}
		value = encrypted
	}
	userConfig := db.UserConfig{Key: key, Value: value, Encrypted: encryptionKey != ""}
	result := gormDB.Clauses(clauses).Create(&userConfig)

	if result.Error != nil {
		return fmt.Errorf("failed to save key to config: %v", result.Error)
	}

	cfg.cacheMutex.Lock()
	defer cfg.cacheMutex.Unlock()
	delete(cfg.cache, key)

	return nil
}

func (cfg *config) SetIgnore(key string, value string, encryptionKey string) error {
	clauses := clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}
	err := cfg.set(key, value, clauses, encryptionKey, cfg.db)
	if err != nil {
		logger.Logger.Error().Err(err).Str("key", key).Msg("Failed to set config key with ignore")
		return err
	}
	return nil
}

func (cfg *config) SetUpdate(key string, value string, encryptionKey string) error {
	clauses := clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "encrypted"}),
	}
	err := cfg.set(key, value, clauses, encryptionKey, cfg.db)
	if err != nil {
		logger.Logger.Error().Err(err).Str("key", key).Msg("Failed to set config key with update")
		return err
	}
	return nil
}

func (cfg *config) GetEnv() *AppConfig {
	return cfg.Env
}

func (cfg *config) GetDefaultWorkDir() string {
	if cfg.Env.Workdir != "" {
		return cfg.Env.Workdir
	}
	return filepath.Join(xdg.DataHome, constants.APP_IDENTIFIER)
}

func randomHex(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
