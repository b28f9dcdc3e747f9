package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"speech-translate-service/internal/schema"
	"speech-translate-service/internal/service/translation"
)

// Deps are the services the router exposes.
type Deps struct {
	Translations *translation.Service
	Speech       SpeechConfig
	// Ready reports readiness; nil means always ready.
	Ready func() bool
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if deps.Ready != nil && !deps.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	api := &translationsAPI{svc: deps.Translations, validator: schema.New()}
	speech := newSpeechHandler(deps.Speech)

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Post("/translate", api.translate)
		r.Get("/languages", api.languages)

		r.Route("/translations", func(r chi.Router) {
			r.Get("/", api.list)
			r.Post("/", api.create)
			r.Get("/{id}", api.get)
			r.Put("/{id}", api.update)
			r.Delete("/{id}", api.delete)
		})

		r.Get("/speech/ws", speech.ServeHTTP)
	})

	return r
}

// requestLogger logs each request through zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		log.Debug().
			Str("requestId", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
