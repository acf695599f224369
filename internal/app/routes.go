package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/imgtext/internal/handler"
	"github.com/imgtext/internal/middleware"
	"github.com/imgtext/internal/web"
)

func (app *App) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(app.logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)

	// Static files
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.StaticFS)))

	r.Get("/api/health", handler.Health(app.engine))

	base := handler.BaseHandler{Logger: app.logger, Templates: app.templates}
	ocrHandler := handler.NewOCRHandler(base, app.tokens, app.extractor, app.config.Upload)
	emailHandler := handler.NewEmailHandler(base, app.mailer)

	r.Get("/", ocrHandler.Index)

	r.Group(func(r chi.Router) {
		if n := app.config.RateLimitPerMinute; n > 0 {
			r.Use(middleware.RateLimit(n))
		}

		r.Post("/upload", ocrHandler.Upload)
		r.Post("/send_email", emailHandler.Send)
		r.Post("/api/extract", ocrHandler.APIExtract)
	})
	return r
}
