package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/hagzilla/apiserver/internal/auth"
)

type Config struct {
	ServerPort int    `env:"SERVER_PORT, default=8080"`
	Env        string `env:"ENV, default=production"`

	Log      LogConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Storage  StorageConfig
	MQ       MQConfig
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL, default=info"`
	Pretty bool   `env:"LOG_PRETTY, default=false"`
}

type DatabaseConfig struct {
	Host     string `env:"DB_HOST, default=localhost"`
	Port     int    `env:"DB_PORT, default=5432"`
	User     string `env:"DB_USER, default=apiserver"`
	Password string `env:"DB_PASSWORD, default=password"`
	DBName   string `env:"DB_NAME, default=apiserver_db"`
	UseSSL   bool   `env:"DB_SSL, default=false"`

	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS, default=25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS, default=5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME, default=30m"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME, default=2m"`
}

// AuthConfig holds the signing and hashing settings. It is read once at
// startup; Signing derives the only auth.SigningConfig the process uses.
type AuthConfig struct {
	JWTSecret      string        `env:"JWT_SECRET"`
	JWTAlgorithm   string        `env:"JWT_ALGORITHM, default=HS256"`
	TokenTTL       time.Duration `env:"JWT_TTL, default=30m"`
	PasswordScheme string        `env:"PASSWORD_SCHEME, default=bcrypt"`
	BcryptCost     int           `env:"BCRYPT_COST, default=10"`
}

type StorageConfig struct {
	Backend string `env:"STORAGE_BACKEND, default=none"`
	Minio   MinioConfig
	GCS     GCSConfig
}

type MinioConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET, default=question-bank"`
	UseSSL    bool   `env:"MINIO_USE_SSL, default=false"`
}

type GCSConfig struct {
	Bucket          string `env:"GCS_BUCKET"`
	ProjectID       string `env:"GCS_PROJECT_ID"`
	CredentialsFile string `env:"GCS_CREDENTIALS_FILE"`
}

type MQConfig struct {
	Backend       string `env:"MQ_BACKEND, default=none"`
	AlertsChannel string `env:"ALERTS_CHANNEL, default=budget-alerts"`
	RabbitMQ      RabbitMQConfig
	PubSub        PubSubConfig
}

type RabbitMQConfig struct {
	URL             string `env:"RABBITMQ_URL"`
	QueueDurable    bool   `env:"RABBITMQ_QUEUE_DURABLE, default=true"`
	QueueAutoDelete bool   `env:"RABBITMQ_QUEUE_AUTO_DELETE, default=false"`
	PrefetchCount   int    `env:"RABBITMQ_PREFETCH, default=0"`
}

type PubSubConfig struct {
	ProjectID          string `env:"PUBSUB_PROJECT_ID"`
	CredentialsFile    string `env:"PUBSUB_CREDENTIALS_FILE"`
	SubscriptionSuffix string `env:"PUBSUB_SUBSCRIPTION_SUFFIX, default=-sub"`
}

// LoadConfig reads configuration from the environment. In dev a local .env
// file is loaded first.
func LoadConfig() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}
	return load(envconfig.OsLookuper())
}

func load(lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg.Auth.JWTSecret = strings.TrimSpace(cfg.Auth.JWTSecret)
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	cfg.MQ.Backend = strings.ToLower(strings.TrimSpace(cfg.MQ.Backend))
	return cfg, nil
}

// Signing returns the process-wide token signing configuration.
func (c Config) Signing() auth.SigningConfig {
	return auth.SigningConfig{
		Key:       []byte(c.Auth.JWTSecret),
		Algorithm: c.Auth.JWTAlgorithm,
		TTL:       c.Auth.TokenTTL,
	}
}

// Hasher returns the password hasher selected by PASSWORD_SCHEME.
func (c Config) Hasher() (*auth.PasswordHasher, error) {
	return auth.NewPasswordHasher(c.Auth.PasswordScheme, c.Auth.BcryptCost)
}
