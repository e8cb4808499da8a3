// Package config loads runtime settings from the environment.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every variable name, e.g. UTOPIUM_API_URL.
const Prefix = "UTOPIUM"

// Store backends.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config holds every setting shared by the commands.
type Config struct {
	// APIURL is the origin of the widget REST API.
	APIURL   string `envconfig:"API_URL"`
	APIToken string `envconfig:"API_TOKEN"`
	// HTTPTimeout bounds each outbound call. Zero waits forever.
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"0s"`

	Store      string        `envconfig:"STORE" default:"file"`
	SessionDir string        `envconfig:"SESSION_DIR" default:".utopium/sessions"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"0s"`
	RedisURL   string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	// Catalog is an optional YAML file overriding accounts, post types and models.
	Catalog string `envconfig:"CATALOG"`

	EncryptionKey string `envconfig:"ENCRYPTION_KEY"`
	// PIIKeys are field name patterns sealed individually under the encryption key.
	PIIKeys []string `envconfig:"PII_KEYS"`

	MaxInputSize int `envconfig:"MAX_INPUT_SIZE" default:"4096"`
	// MaxFileSize caps uploads to the HTTP server, in bytes (64MB).
	MaxFileSize int64  `envconfig:"MAX_FILE_SIZE" default:"67108864"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Addr        string `envconfig:"ADDR" default:":8080"`
}

// Load reads the optional .env files (default ".env") and then the environment.
// Variables already set in the environment win over the files.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreFile, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("invalid %s_STORE %q: want file, redis or memory", Prefix, c.Store)
	}
	if c.MaxInputSize < 0 {
		return fmt.Errorf("invalid %s_MAX_INPUT_SIZE %d", Prefix, c.MaxInputSize)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("invalid %s_MAX_FILE_SIZE %d", Prefix, c.MaxFileSize)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("invalid %s_HTTP_TIMEOUT %s", Prefix, c.HTTPTimeout)
	}
	key, err := c.Key()
	if err != nil {
		return err
	}
	if len(c.PIIKeys) > 0 && key == nil {
		return fmt.Errorf("%s_PII_KEYS requires %s_ENCRYPTION_KEY", Prefix, Prefix)
	}
	return nil
}

// Key decodes the encryption key. It returns nil when encryption is off.
func (c *Config) Key() ([]byte, error) {
	if c.EncryptionKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid %s_ENCRYPTION_KEY: %w", Prefix, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid %s_ENCRYPTION_KEY: want 32 bytes, got %d", Prefix, len(key))
	}
	return key, nil
}
