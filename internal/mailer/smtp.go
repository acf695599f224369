package mailer

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	"net/smtp"
	"os"
	"strconv"
	"time"

	"github.com/imgtext/internal/config"
)

// Config holds the SMTP relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	UseTLS   bool // STARTTLS
	UseSSL   bool // implicit TLS, wins over UseTLS

	// PGPPublicKey is an armored public key; when set, bodies are encrypted.
	PGPPublicKey string
}

// NewConfigFromSettings builds the mailer configuration, reading the PGP key
// file when one is configured.
func NewConfigFromSettings(m config.MailConfig) (*Config, error) {
	cfg := &Config{
		Host:     m.Server,
		Port:     m.Port,
		Username: m.Username,
		Password: m.Password,
		From:     m.DefaultSender,
		UseTLS:   m.UseTLS,
		UseSSL:   m.UseSSL,
	}
	if to := m.To(); to != "" {
		cfg.To = []string{to}
	}
	if m.PGPPublicKeyPath != "" {
		key, err := os.ReadFile(m.PGPPublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("reading PGP public key: %w", err)
		}
		cfg.PGPPublicKey = string(key)
	}
	return cfg, nil
}

// defaultSendTimeout bounds one whole SMTP conversation.
const defaultSendTimeout = 30 * time.Second

// Mailer sends emails via SMTP.
type Mailer struct {
	cfg     *Config
	logger  *slog.Logger
	timeout time.Duration
	rootCAs *x509.CertPool // nil uses the system pool

	// sendFn delivers a fully prepared message; replaced in tests.
	sendFn func(ctx context.Context, cfg *Config, msg Message) error
	now    func() time.Time
}

func New(cfg *Config, logger *slog.Logger) *Mailer {
	m := &Mailer{cfg: cfg, logger: logger, timeout: defaultSendTimeout, now: time.Now}
	m.sendFn = m.deliver
	return m
}

// Send delivers msg, filling From and To from the configuration when empty.
// Without a configured host the message is logged and dropped.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	cfg := m.cfg
	if msg.From == "" {
		msg.From = cfg.From
	}
	if len(msg.To) == 0 {
		msg.To = cfg.To
	}

	if cfg.Host == "" {
		m.logger.Warn("mailer: no mail server configured, message not sent",
			"to", msg.To, "subject", msg.Subject, "body_bytes", len(msg.Body))
		return nil
	}
	if len(msg.To) == 0 {
		return errors.New("mailer: no recipient configured")
	}

	if cfg.PGPPublicKey != "" {
		encrypted, err := encryptBody(cfg.PGPPublicKey, msg.Body)
		if err != nil {
			return fmt.Errorf("mailer: encrypt body: %w", err)
		}
		msg.Body = encrypted
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.sendFn(ctx, cfg, msg); err != nil {
		return fmt.Errorf("mailer: %w", err)
	}
	m.logger.Info("mailer: message sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

func (m *Mailer) deliver(ctx context.Context, cfg *Config, msg Message) error {
	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return fmt.Errorf("parse sender %q: %w", msg.From, err)
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	tlsConfig := &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12, RootCAs: m.rootCAs}

	var conn net.Conn
	if cfg.UseSSL {
		d := &tls.Dialer{Config: tlsConfig}
		conn, err = d.DialContext(ctx, "tcp", addr)
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if cfg.UseTLS && !cfg.UseSSL {
		if ok, _ := c.Extension("STARTTLS"); !ok {
			return errors.New("server does not support STARTTLS")
		}
		if err := c.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
				return fmt.Errorf("auth: %w", err)
			}
		}
	}

	if err := c.Mail(from.Address); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range msg.To {
		to, err := mail.ParseAddress(rcpt)
		if err != nil {
			return fmt.Errorf("parse recipient %q: %w", rcpt, err)
		}
		if err := c.Rcpt(to.Address); err != nil {
			return fmt.Errorf("rcpt to %s: %w", to.Address, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(formatMessage(msg, m.now())); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}
	return c.Quit()
}
