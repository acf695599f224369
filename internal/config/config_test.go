package config

import (
	"strings"
	"testing"
	"time"
)

func setMailEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MAIL_SERVER", "smtp.example.org")
	t.Setenv("MAIL_PORT", "587")
	t.Setenv("MAIL_USERNAME", "ocr@example.org")
	t.Setenv("MAIL_PASSWORD", "secret")
	t.Setenv("MAIL_DEFAULT_SENDER", "noreply@example.org")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.Upload.Folder != "upload/" {
		t.Errorf("expected upload/ folder, got %q", cfg.Upload.Folder)
	}
	if got := strings.Join(cfg.Upload.AllowedExtensions, ","); got != "png,jpg,jpeg,gif" {
		t.Errorf("unexpected allowed extensions %q", got)
	}
	if cfg.OCR.TesseractCmd != "/usr/bin/tesseract" {
		t.Errorf("unexpected tesseract command %q", cfg.OCR.TesseractCmd)
	}
	if cfg.OCR.Timeout != 2*time.Minute {
		t.Errorf("expected 2m OCR timeout, got %s", cfg.OCR.Timeout)
	}
	if !cfg.Mail.UseTLS || cfg.Mail.UseSSL {
		t.Errorf("expected TLS on and SSL off by default, got tls=%v ssl=%v", cfg.Mail.UseTLS, cfg.Mail.UseSSL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug log level in development, got %q", cfg.LogLevel)
	}
}

func TestLoadMissingMailVariableInProduction(t *testing.T) {
	cases := []string{"MAIL_SERVER", "MAIL_PORT", "MAIL_USERNAME", "MAIL_PASSWORD", "MAIL_DEFAULT_SENDER"}

	for _, key := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("ENV", "production")
			setMailEnv(t)
			t.Setenv(key, "")

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error when %s is missing", key)
			}
			if !strings.Contains(err.Error(), key) {
				t.Errorf("expected error to name %s, got %v", key, err)
			}
		})
	}
}

func TestLoadProductionWithMail(t *testing.T) {
	t.Setenv("ENV", "production")
	setMailEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Mail.Port != 587 {
		t.Errorf("expected port 587, got %d", cfg.Mail.Port)
	}
	if cfg.Mail.To() != "ocr@example.org" {
		t.Errorf("expected recipient to default to MAIL_USERNAME, got %q", cfg.Mail.To())
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected info log level in production, got %q", cfg.LogLevel)
	}
}

func TestRecipientOverride(t *testing.T) {
	m := MailConfig{Username: "box@example.org", Recipient: "team@example.org"}
	if m.To() != "team@example.org" {
		t.Errorf("expected override recipient, got %q", m.To())
	}
}

func TestAllowedExtensionsNormalized(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("ALLOWED_EXTENSIONS", " PNG, .Jpg ,,tiff")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := strings.Join(cfg.Upload.AllowedExtensions, ","); got != "png,jpg,tiff" {
		t.Errorf("unexpected normalized extensions %q", got)
	}
}

func TestLanguagesSplitOnPlus(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("TESSERACT_LANGUAGES", "eng+spa")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cfg.OCR.Languages) != 2 || cfg.OCR.Languages[1] != "spa" {
		t.Errorf("unexpected languages %v", cfg.OCR.Languages)
	}
}

func TestValidateUnknownBackend(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("STORAGE_BACKEND", "ftp")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown storage backend")
	}
}

func TestValidateS3RequiresCredentials(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("STORAGE_BACKEND", "s3")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for s3 backend without credentials")
	}
}
