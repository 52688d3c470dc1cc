package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StorageNone     = "none"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config holds server configuration, read from STEADY_* environment
// variables.
type Config struct {
	Addr string `envconfig:"ADDR" default:":8080"`

	Storage     string `envconfig:"STORAGE" default:"none"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"./steady.db"`
	PostgresDSN string `envconfig:"POSTGRES_DSN"`

	// Empty paths use the embedded catalogs.
	QuestionsPath string `envconfig:"QUESTIONS_PATH"`
	SessionsPath  string `envconfig:"SESSIONS_PATH"`

	TickInterval time.Duration `envconfig:"TICK_INTERVAL" default:"1s"`

	OTelEndpoint string `envconfig:"OTEL_ENDPOINT"`
	OTelInsecure bool   `envconfig:"OTEL_INSECURE" default:"true"`

	// DevAuth accepts requests without proxy auth headers as dev-user.
	DevAuth bool `envconfig:"DEV_AUTH" default:"false"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("steady", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage {
	case StorageNone, StorageSQLite:
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("STEADY_POSTGRES_DSN is required for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}

	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	return nil
}
