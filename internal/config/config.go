package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string `env:"PORT" envDefault:"8080"`
	Env      string `env:"ENV" envDefault:"development"` // development, production
	LogLevel string `env:"LOG_LEVEL"`

	Upload  UploadConfig
	Storage StorageConfig
	Auth    AuthConfig
	OCR     OCRConfig
	Mail    MailConfig

	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
}

type UploadConfig struct {
	Folder            string   `env:"UPLOAD_FOLDER" envDefault:"upload/"`
	AllowedExtensions []string `env:"ALLOWED_EXTENSIONS" envDefault:"png,jpg,jpeg,gif" envSeparator:","`
	MaxSizeMB         int      `env:"MAX_UPLOAD_SIZE_MB" envDefault:"32"`
	MaxFiles          int      `env:"MAX_FILES" envDefault:"20"`
	Keep              bool     `env:"KEEP_UPLOADS" envDefault:"true"`
}

// MaxBytes is the request body limit for uploads.
func (u UploadConfig) MaxBytes() int64 {
	return int64(u.MaxSizeMB) << 20
}

type StorageConfig struct {
	Backend   string `env:"STORAGE_BACKEND" envDefault:"local"` // local, s3
	Endpoint  string `env:"S3_ENDPOINT" envDefault:"localhost:9000"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	Bucket    string `env:"S3_BUCKET" envDefault:"uploads"`
	UseSSL    bool   `env:"S3_USE_SSL" envDefault:"false"`
}

type AuthConfig struct {
	AccessToken     string `env:"ACCESS_TOKEN" envDefault:"Levies_24_token"`
	AccessTokenHash string `env:"ACCESS_TOKEN_HASH"`
}

type OCRConfig struct {
	Engine       string        `env:"OCR_ENGINE" envDefault:"tesseract"` // tesseract, gosseract
	TesseractCmd string        `env:"TESSERACT_CMD" envDefault:"/usr/bin/tesseract"`
	Languages    []string      `env:"TESSERACT_LANGUAGES" envSeparator:"+"`
	Timeout      time.Duration `env:"OCR_TIMEOUT" envDefault:"2m"`
	Concurrency  int           `env:"OCR_CONCURRENCY" envDefault:"2"`
	Preprocess   bool          `env:"OCR_PREPROCESS" envDefault:"false"`
}

type MailConfig struct {
	Server        string `env:"MAIL_SERVER"`
	Port          int    `env:"MAIL_PORT"`
	Username      string `env:"MAIL_USERNAME"`
	Password      string `env:"MAIL_PASSWORD"`
	DefaultSender string `env:"MAIL_DEFAULT_SENDER"`
	Recipient     string `env:"MAIL_RECIPIENT"`
	UseTLS        bool   `env:"MAIL_USE_TLS" envDefault:"true"`
	UseSSL        bool   `env:"MAIL_USE_SSL" envDefault:"false"`

	PGPPublicKeyPath string `env:"PGP_PUBLIC_KEY_PATH"`
}

// Configured reports whether an SMTP relay has been set up.
func (m MailConfig) Configured() bool {
	return m.Server != ""
}

// To returns the destination address; the authenticated mailbox unless overridden.
func (m MailConfig) To() string {
	if m.Recipient != "" {
		return m.Recipient
	}
	return m.Username
}

func Load() (*Config, error) {
	// Load .env file if it exists (don't error if missing)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	exts := c.Upload.AllowedExtensions[:0]
	for _, e := range c.Upload.AllowedExtensions {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			exts = append(exts, e)
		}
	}
	c.Upload.AllowedExtensions = exts

	if c.LogLevel == "" {
		c.LogLevel = "info"
		if c.IsDevelopment() {
			c.LogLevel = "debug"
		}
	}
}

func (c *Config) Validate() error {
	if len(c.Upload.AllowedExtensions) == 0 {
		return errors.New("ALLOWED_EXTENSIONS must list at least one extension")
	}
	if c.Upload.MaxSizeMB <= 0 {
		return errors.New("MAX_UPLOAD_SIZE_MB must be positive")
	}
	if c.OCR.Concurrency < 1 {
		return errors.New("OCR_CONCURRENCY must be at least 1")
	}

	switch c.Storage.Backend {
	case "local":
		if c.Upload.Folder == "" {
			return errors.New("UPLOAD_FOLDER is required")
		}
	case "s3":
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			return errors.New("S3_ACCESS_KEY and S3_SECRET_KEY are required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}

	if c.Auth.AccessToken == "" && c.Auth.AccessTokenHash == "" {
		return errors.New("ACCESS_TOKEN or ACCESS_TOKEN_HASH is required")
	}

	// Mail may be left unconfigured while developing; messages are logged instead.
	if c.IsDevelopment() && !c.Mail.Configured() {
		return nil
	}
	required := []struct {
		key string
		set bool
	}{
		{"MAIL_SERVER", c.Mail.Server != ""},
		{"MAIL_PORT", c.Mail.Port != 0},
		{"MAIL_USERNAME", c.Mail.Username != ""},
		{"MAIL_PASSWORD", c.Mail.Password != ""},
		{"MAIL_DEFAULT_SENDER", c.Mail.DefaultSender != ""},
	}
	for _, r := range required {
		if !r.set {
			return fmt.Errorf("missing required environment variable: %s", r.key)
		}
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
