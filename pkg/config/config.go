package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "gestiq"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GESTIQ_APP_ENV" required:"true"`
	Port         string `envconfig:"GESTIQ_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"GESTIQ_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GESTIQ_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"GESTIQ_DB_DSN"`
	Driver string `envconfig:"GESTIQ_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"GESTIQ_DB_HOST"`
	Port     int    `envconfig:"GESTIQ_DB_PORT" default:"5432"`
	User     string `envconfig:"GESTIQ_DB_USER"`
	Password string `envconfig:"GESTIQ_DB_PASSWORD"`
	Name     string `envconfig:"GESTIQ_DB_NAME"`
	SSLMode  string `envconfig:"GESTIQ_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GESTIQ_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GESTIQ_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GESTIQ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GESTIQ_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// ensureDSN assembles a DSN from the discrete fields when one is not provided.
func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("db config requires GESTIQ_DB_DSN or host/user/name fields")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"GESTIQ_REDIS_URL"`
	Address      string        `envconfig:"GESTIQ_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"GESTIQ_REDIS_PASSWORD"`
	DB           int           `envconfig:"GESTIQ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GESTIQ_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GESTIQ_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GESTIQ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GESTIQ_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"GESTIQ_REDIS_WRITE_TIMEOUT" default:"3s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GESTIQ_FEATURE_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"GESTIQ_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	InventoryTopic    string `envconfig:"GESTIQ_PUBSUB_INVENTORY_TOPIC" default:"inventory-events"`
	InterventionTopic string `envconfig:"GESTIQ_PUBSUB_INTERVENTION_TOPIC" default:"intervention-events"`
	DocumentTopic     string `envconfig:"GESTIQ_PUBSUB_DOCUMENT_TOPIC" default:"document-events"`
}

type OutboxConfig struct {
	PollInterval time.Duration `envconfig:"GESTIQ_OUTBOX_POLL_INTERVAL" default:"5s"`
	BatchSize    int           `envconfig:"GESTIQ_OUTBOX_BATCH_SIZE" default:"50"`
	MaxAttempts  int           `envconfig:"GESTIQ_OUTBOX_MAX_ATTEMPTS" default:"10"`
}
