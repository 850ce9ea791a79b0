// Package config loads the daemon configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full daemon configuration. Every knob has a working
// default so a bare `charakd` starts on a development machine; only the
// signing and sealing secrets must be provided.
type Config struct {
	Addr     string `env:"CHARAK_ADDR" envDefault:":8080"`
	DataDir  string `env:"CHARAK_DATA_DIR" envDefault:"./data"`
	LogLevel string `env:"CHARAK_LOG_LEVEL" envDefault:"info"`

	ClinicID      string `env:"CHARAK_CLINIC_ID" envDefault:"clinic-dev"`
	JWTSigningKey string `env:"CHARAK_JWT_SIGNING_KEY,required"`
	SealSecret    string `env:"CHARAK_SEAL_SECRET,required"`

	Retention       time.Duration `env:"CHARAK_RETENTION" envDefault:"2160h"`
	RetentionPeriod time.Duration `env:"CHARAK_RETENTION_SWEEP_INTERVAL" envDefault:"24h"`
	RotationPeriod  time.Duration `env:"CHARAK_ROTATION_CHECK_INTERVAL" envDefault:"12h"`

	KafkaBrokers  []string `env:"CHARAK_KAFKA_BROKERS" envSeparator:","`
	ArchiveDSN    string   `env:"CHARAK_ARCHIVE_DSN"`
	RedisAddr     string   `env:"CHARAK_REDIS_ADDR"`
	RedisPassword string   `env:"CHARAK_REDIS_PASSWORD"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ExportEnabled reports whether the Kafka export pipeline should run.
func (c Config) ExportEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// ArchiveEnabled reports whether the Postgres archive should be wired.
func (c Config) ArchiveEnabled() bool {
	return c.ArchiveDSN != ""
}

// CascadeRedisEnabled reports whether cascade bookkeeping uses Redis
// instead of the in-process queue.
func (c Config) CascadeRedisEnabled() bool {
	return c.RedisAddr != ""
}
