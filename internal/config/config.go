package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// encPrefix marks an api_token value in the config file as encrypted with
// Encrypt. Tokens without the prefix are used verbatim, so tokens supplied
// through the environment stay plain.
const encPrefix = "enc:"

// WARNING: This encryption key should be securely stored and rotated periodically.
// Set BBS_SECRET_KEY (exactly 32 bytes) to override it.
var defaultEncryptionKey = []byte("32-byte-long-encryption-key-here")

// BitbucketConfig contains the connection settings for one server.
type BitbucketConfig struct {
	BaseURL        string        `yaml:"base_url" env:"BBS_BASE_URL" env-default:"http://localhost:7990"` // Server root URL
	VersionTarget  string        `yaml:"version_target" env:"BBS_VERSION_TARGET" env-default:"9.4.16"`    // Expected server version
	ProjectKey     string        `yaml:"project_key" env:"BBS_PROJECT_KEY" env-default:"TEST"`            // Default project key
	APIToken       string        `yaml:"api_token" env:"BBS_API_TOKEN"`                                   // Bearer token, optionally enc:-prefixed
	Username       string        `yaml:"username" env:"BBS_USERNAME"`                                     // Basic-auth username
	Password       string        `yaml:"password" env:"BBS_PASSWORD"`                                     // Basic-auth password
	Timeout        time.Duration `yaml:"timeout" env:"BBS_TIMEOUT" env-default:"20s"`                     // Per-request budget
	MaxRetries     int           `yaml:"max_retries" env:"BBS_MAX_RETRIES" env-default:"2"`               // Extra attempts for idempotent requests; negative disables retries
	InitialBackoff time.Duration `yaml:"initial_backoff" env:"BBS_INITIAL_BACKOFF" env-default:"250ms"`   // First retry delay
	PageSize       int           `yaml:"page_size" env:"BBS_PAGE_SIZE" env-default:"25"`                  // Page size for listings
}

// ConcurrencyConfig contains settings for concurrent fetching.
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" env:"BBS_WORKERS" env-default:"4"` // Parallel fetches across projects
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level" env:"BBS_LOG_LEVEL" env-default:"info"`   // debug, info, warn, error
	Format string `yaml:"format" env:"BBS_LOG_FORMAT" env-default:"text"` // text or json
}

// Config contains all application configuration settings.
type Config struct {
	Bitbucket   BitbucketConfig   `yaml:"bitbucket"`   // Bitbucket Server connection settings
	Concurrency ConcurrencyConfig `yaml:"concurrency"` // Concurrency settings
	Log         LogConfig         `yaml:"log"`         // Logging settings
}

// LoadConfig reads, validates and decrypts configuration. With an empty
// path only the environment is consulted; a missing file at an explicit
// path is an error.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from environment: %w", err)
		}
	} else {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
	}

	if strings.HasPrefix(cfg.Bitbucket.APIToken, encPrefix) {
		decrypted, err := Decrypt(strings.TrimPrefix(cfg.Bitbucket.APIToken, encPrefix))
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt API token: %w", err)
		}
		cfg.Bitbucket.APIToken = decrypted
	}

	if cfg.Bitbucket.BaseURL == "" {
		return nil, errors.New("bitbucket base_url is missing")
	}
	if cfg.Bitbucket.Timeout <= 0 {
		cfg.Bitbucket.Timeout = 20 * time.Second
	}
	if cfg.Bitbucket.PageSize <= 0 {
		cfg.Bitbucket.PageSize = 25
	}
	if cfg.Concurrency.Workers <= 0 {
		cfg.Concurrency.Workers = 1
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	return &cfg, nil
}

func encryptionKey() []byte {
	if key := os.Getenv("BBS_SECRET_KEY"); len(key) == 32 {
		return []byte(key)
	}
	return defaultEncryptionKey
}

// Encrypt encrypts a token for storage in a config file. The result is
// base64 encoded and must be stored with the enc: prefix.
func Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(encryptionKey())
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(plaintext))
	iv := ciphertext[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], []byte(plaintext))

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt.
func Decrypt(ciphertext string) (string, error) {
	block, err := aes.NewCipher(encryptionKey())
	if err != nil {
		return "", err
	}

	decoded, err := base64.URLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	if len(decoded) < aes.BlockSize {
		return "", errors.New("ciphertext too short")
	}

	iv := decoded[:aes.BlockSize]
	payload := decoded[aes.BlockSize:]

	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(payload, payload)

	return string(payload), nil
}
