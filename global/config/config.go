// Package config holds the process-wide configuration for the chat
// backend: HTTP listen address, JWT signing parameters, the MongoDB
// credential store, the Redis presence cache, and the gateway policies.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "CHAT_CONFIG"
	// EnvJwtSecret overrides jwt.secret so the key stays out of files.
	EnvJwtSecret = "CHAT_JWT_SECRET"
)

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Alg    string        `yaml:"alg"`
	TTL    time.Duration `yaml:"ttl"`
}

type MongoConfig struct {
	URI         string `yaml:"uri"`
	Database    string `yaml:"database"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	MaxPoolSize uint64 `yaml:"max_pool_size"`
	MaxRetry    int    `yaml:"max_retry"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// OfflinePolicy names what happens when a direct message resolves to a
// recipient with no live connection.
type OfflinePolicy string

const (
	// OfflineDrop silently drops the delivery.
	OfflineDrop OfflinePolicy = "drop"
	// OfflineNotify reports "Recipient offline." back to the sender.
	OfflineNotify OfflinePolicy = "notify"
)

type GatewayConfig struct {
	// AuthTimeout bounds connection-open to authenticated; expiry closes
	// the connection as an auth failure.
	AuthTimeout time.Duration `yaml:"auth_timeout"`
	// BroadcastSelf includes the sender's own connection in group fan-out.
	BroadcastSelf bool          `yaml:"broadcast_self"`
	OfflinePolicy OfflinePolicy `yaml:"offline_policy"`
	// SendQueue is the per-connection outbound buffer size.
	SendQueue int `yaml:"send_queue"`
	// PresenceTTL is the lifetime of the best-effort Redis presence key.
	PresenceTTL time.Duration `yaml:"presence_ttl"`
}

type AppConfig struct {
	HTTP    HTTPConfig    `yaml:"http"`
	JWT     JWTConfig     `yaml:"jwt"`
	Mongo   MongoConfig   `yaml:"mongo"`
	Redis   RedisConfig   `yaml:"redis"`
	Gateway GatewayConfig `yaml:"gateway"`
}

// Load reads the YAML file at path (or $CHAT_CONFIG, or config.yaml),
// applies environment overrides and defaults, and validates the result.
// A missing file is not an error; defaults plus env must then suffice.
func Load(path string) (*AppConfig, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = "config.yaml"
	}

	cfg := &AppConfig{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env + defaults
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) applyEnv() {
	if v := os.Getenv(EnvJwtSecret); v != "" {
		c.JWT.Secret = v
	}
}

func (c *AppConfig) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.JWT.Alg == "" {
		c.JWT.Alg = "HS256"
	}
	if c.JWT.TTL <= 0 {
		c.JWT.TTL = 86400 * time.Second
	}
	if c.Mongo.URI == "" {
		c.Mongo.URI = "mongodb://localhost:27017"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "chat"
	}
	if c.Mongo.MaxPoolSize == 0 {
		c.Mongo.MaxPoolSize = 20
	}
	if c.Mongo.MaxRetry == 0 {
		c.Mongo.MaxRetry = 3
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Gateway.AuthTimeout <= 0 {
		c.Gateway.AuthTimeout = 30 * time.Second
	}
	if c.Gateway.OfflinePolicy == "" {
		c.Gateway.OfflinePolicy = OfflineDrop
	}
	if c.Gateway.SendQueue <= 0 {
		c.Gateway.SendQueue = 64
	}
	if c.Gateway.PresenceTTL <= 0 {
		c.Gateway.PresenceTTL = 2 * time.Hour
	}
}

func (c *AppConfig) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required (set it in the config file or %s)", EnvJwtSecret)
	}
	switch c.Gateway.OfflinePolicy {
	case OfflineDrop, OfflineNotify:
	default:
		return fmt.Errorf("gateway.offline_policy: unknown policy %q (use drop or notify)", c.Gateway.OfflinePolicy)
	}
	return nil
}

// JwtSecret returns the HMAC signing key as bytes.
func (c *AppConfig) JwtSecret() []byte {
	return []byte(c.JWT.Secret)
}
