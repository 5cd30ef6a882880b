package api

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/snarg/voice-studio/internal/config"
	"github.com/snarg/voice-studio/internal/metrics"
)

// Relay is what the server needs from the transcription relay.
type Relay interface {
	Transcriber
	InFlight() int64
}

type ServerOptions struct {
	Config      *config.Config
	Relay       Relay
	WebFiles    fs.FS  // nil disables the UI
	OpenAPISpec []byte // nil disables /api/v1/openapi.yaml
	Version     string
	StartTime   time.Time
	Log         zerolog.Logger
}

type Server struct {
	http    *http.Server
	handler http.Handler
	log     zerolog.Logger
}

func NewServer(opts ServerOptions) *Server {
	cfg := opts.Config
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(opts.Log))
	r.Use(CORS(cfg.CORSOrigins))
	if cfg.MetricsEnabled {
		r.Use(metrics.InstrumentHandler)
	}

	transcribe := NewTranscribeHandler(opts.Relay, cfg.MaxUploadBytes, opts.Log)
	limit := RateLimit(cfg.RateLimit)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", StatusHandler(opts.Relay))

		r.Route("/assemblyai", func(r chi.Router) {
			r.Use(limit)
			transcribe.Routes(r)
		})

		r.Route("/v1", func(r chi.Router) {
			r.Get("/health", NewHealthHandler(opts.Relay, opts.Version, opts.StartTime).ServeHTTP)
			if opts.OpenAPISpec != nil {
				r.Get("/openapi.yaml", OpenAPIHandler(opts.OpenAPISpec))
			}
			r.Group(func(r chi.Router) {
				r.Use(limit)
				transcribe.Routes(r)
			})
		})
	})

	if cfg.MetricsEnabled {
		if err := prometheus.Register(metrics.NewCollector(opts.Relay)); err != nil {
			opts.Log.Warn().Err(err).Msg("relay collector already registered")
		}
		r.Handle("/metrics", promhttp.Handler())
	}

	if cfg.WebEnabled && opts.WebFiles != nil {
		r.Get("/*", WebHandler(opts.WebFiles))
	}

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		handler: r,
		log:     opts.Log,
	}
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
