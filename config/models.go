package config

type AppConfig struct {
	Workdir      string `envconfig:"WORK_DIR"`
	Port         string `envconfig:"PORT" default:"8085"`
	DatabaseUri  string `envconfig:"DATABASE_URI" default:"consulthub.db"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"4"`
	LogToFile    bool   `envconfig:"LOG_TO_FILE" default:"true"`
	LogDBQueries bool   `envconfig:"LOG_DB_QUERIES" default:"false"`
	BaseUrl      string `envconfig:"BASE_URL"`
	FrontendUrl  string `envconfig:"FRONTEND_URL"`

	JWTSecret string `envconfig:"JWT_SECRET"`

	// shared secret required to mint coordinator tokens; when empty, the
	// coordinator role cannot be obtained over the API
	CoordinatorSecret string `envconfig:"COORDINATOR_SECRET"`

	// artificial latency of the in-process oracle, useful in development to
	// observe the consultation lifecycle between response and settlement
	OracleDelayMs uint64 `envconfig:"ORACLE_DELAY_MS" default:"0"`
}

func (c *AppConfig) GetBaseFrontendUrl() string {
	url := c.FrontendUrl
	if url == "" {
		url = c.BaseUrl
	}
	return url
}

type Config interface {
	Get(key string, encryptionKey string) (string, error)
	SetIgnore(key string, value string, encryptionKey string) error
	SetUpdate(key string, value string, encryptionKey string) error
	GetJWTSecret() (string, error)
	GetEnv() *AppConfig
	GetDefaultWorkDir() string
}
