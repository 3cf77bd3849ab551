package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v6"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"localhost"`
	Port string `env:"SERVER_PORT" envDefault:"3000"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// RealtimeConfig holds configuration specific to live subscriptions.
type RealtimeConfig struct {
	// WebSocketPath is the endpoint path for WebSocket connections.
	WebSocketPath string `env:"WEBSOCKET_PATH" envDefault:"/ws/v1/listen"`

	// ClientSendChannelBuffer is the buffer size for channels sending
	// snapshots to WebSocket clients; prevents a slow client from blocking
	// fan-out.
	ClientSendChannelBuffer int `env:"CLIENT_SEND_CHANNEL_BUFFER" envDefault:"10"`
}

// RedisConfig holds settings for the change-event journal.
type RedisConfig struct {
	Host            string `env:"REDIS_HOST"`
	Port            string `env:"REDIS_PORT" envDefault:"6379"`
	Password        string `env:"REDIS_PASSWORD"`
	Database        int    `env:"REDIS_DATABASE" envDefault:"0"`
	MaxRetries      int    `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	PoolSize        int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns    int    `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	EnableTLS       bool   `env:"REDIS_ENABLE_TLS" envDefault:"false"`
	StreamMaxLength int64  `env:"REDIS_STREAM_MAX_LENGTH" envDefault:"10000"`
}

// Enabled reports whether a journal backend was configured at all.
func (c RedisConfig) Enabled() bool { return c.Host != "" }

// GetAddr returns the host:port address.
func (c RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// StorageConfig holds object-storage settings for media uploads.
type StorageConfig struct {
	Bucket        string `env:"BLOB_S3_BUCKET"`
	Region        string `env:"BLOB_S3_REGION" envDefault:"us-east-1"`
	Endpoint      string `env:"BLOB_S3_ENDPOINT"`
	PathStyle     bool   `env:"BLOB_S3_PATH_STYLE" envDefault:"false"`
	PublicBaseURL string `env:"BLOB_PUBLIC_BASE_URL"`
}

// Config holds all configuration for the console service.
type Config struct {
	MongoURI      string `env:"MONGODB_URI"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"cowork_console"`

	// AdminJWTSecret verifies session tokens minted by the external identity
	// provider. The console never issues credentials itself.
	AdminJWTSecret string `env:"ADMIN_JWT_SECRET"`

	Server   ServerConfig
	Realtime RealtimeConfig
	Redis    RedisConfig
	Storage  StorageConfig
}

// LoadConfig loads configuration from environment variables and applies
// defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load configuration from environment: " + err.Error())
	}
	for _, nested := range []interface{}{&cfg.Server, &cfg.Realtime, &cfg.Redis, &cfg.Storage} {
		if err := env.Parse(nested); err != nil {
			return nil, errors.New("failed to load configuration from environment: " + err.Error())
		}
	}

	if cfg.MongoURI == "" {
		return nil, errors.New("MONGODB_URI environment variable is not set")
	}
	if cfg.Storage.Bucket == "" {
		return nil, errors.New("BLOB_S3_BUCKET environment variable is not set")
	}
	if cfg.AdminJWTSecret == "" {
		return nil, errors.New("ADMIN_JWT_SECRET environment variable is not set")
	}
	if cfg.Realtime.ClientSendChannelBuffer <= 0 {
		cfg.Realtime.ClientSendChannelBuffer = 10
	}

	return cfg, nil
}
