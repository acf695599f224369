package app

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/imgtext/internal/auth"
	"github.com/imgtext/internal/config"
	"github.com/imgtext/internal/extract"
	"github.com/imgtext/internal/mailer"
	"github.com/imgtext/internal/ocr"
	"github.com/imgtext/internal/storage"
	"github.com/imgtext/internal/web"
	"golang.org/x/sync/errgroup"
)

// defaultAccessToken is the token used when ACCESS_TOKEN is not set.
const defaultAccessToken = "Levies_24_token"

type App struct {
	config    *config.Config
	logger    *slog.Logger
	templates *template.Template
	tokens    *auth.TokenVerifier
	engine    ocr.Engine
	extractor *extract.Service
	mailer    *mailer.Mailer
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := newLogger(cfg)

	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	engine, err := ocr.New(cfg.OCR.Engine, cfg.OCR.TesseractCmd, cfg.OCR.Timeout)
	if err != nil {
		return nil, err
	}
	if err := engine.Ping(ctx); err != nil {
		// The health check reports this too; uploads fail until it is fixed.
		logger.Warn("ocr engine not available", "engine", engine.Name(), "error", err)
	}

	languages := cfg.OCR.Languages
	if len(languages) == 0 {
		languages = ocr.DefaultLanguages
	}
	extractor := extract.NewService(store, engine, extract.Options{
		AllowedExtensions: cfg.Upload.AllowedExtensions,
		Languages:         languages,
		Preprocess:        cfg.OCR.Preprocess,
		KeepUploads:       cfg.Upload.Keep,
		Concurrency:       cfg.OCR.Concurrency,
	}, logger)

	mailCfg, err := mailer.NewConfigFromSettings(cfg.Mail)
	if err != nil {
		return nil, err
	}
	m := mailer.New(mailCfg, logger)
	if mailCfg.PGPPublicKey != "" {
		if err := m.CanEncrypt(); err != nil {
			return nil, fmt.Errorf("mail encryption: %w", err)
		}
	}

	if cfg.Auth.AccessTokenHash == "" && cfg.Auth.AccessToken == defaultAccessToken {
		logger.Warn("using the default access token; set ACCESS_TOKEN or ACCESS_TOKEN_HASH")
	}

	logger.Debug("app configured",
		"storage", cfg.Storage.Backend,
		"ocr_engine", engine.Name(),
		"languages", strings.Join(languages, "+"),
		"preprocess", cfg.OCR.Preprocess,
		"mail_configured", cfg.Mail.Configured(),
	)

	return &App{
		config:    cfg,
		logger:    logger,
		templates: web.Templates,
		tokens:    auth.NewTokenVerifier(cfg.Auth.AccessToken, cfg.Auth.AccessTokenHash),
		engine:    engine,
		extractor: extractor,
		mailer:    m,
	}, nil
}

func (app *App) Start(ctx context.Context) error {
	// Create an errgroup derived from the parent context
	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", app.config.Port),
		Handler:           app.routes(),
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		// OCR of a full upload runs inside the request.
		WriteTimeout: app.config.OCR.Timeout + time.Minute,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
	}

	g.Go(func() error {
		app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done() // Wait for OS signal or a failed listener

		app.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	app.logger.Info("stopped server")
	return nil
}

func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "s3":
		return storage.NewS3(ctx, cfg.Storage)
	default:
		return storage.NewLocal(cfg.Upload.Folder)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))

	slog.SetDefault(logger)
	return logger
}
