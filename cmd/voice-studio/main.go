package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	voicestudio "github.com/snarg/voice-studio"
	"github.com/snarg/voice-studio/internal/api"
	"github.com/snarg/voice-studio/internal/config"
	"github.com/snarg/voice-studio/internal/relay"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file (default .env)")
	flag.StringVar(&overrides.HTTPAddr, "listen", "", "HTTP listen address (overrides HTTP_ADDR)")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	flag.StringVar(&overrides.AssemblyAIBaseURL, "assemblyai-url", "", "AssemblyAI API base URL (overrides ASSEMBLYAI_BASE_URL)")
	flag.StringVar(&overrides.Language, "language", "", "transcription language code (overrides TRANSCRIBE_LANGUAGE)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("voice-studio starting")

	if !cfg.ProviderConfigured() {
		log.Warn().Msg("ASSEMBLYAI_API_KEY not set; server-side transcription will answer 500 until it is configured")
	}

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Relay
	relayLog := log.With().Str("component", "relay").Logger()
	provider := relay.NewAssemblyAIClient(cfg.AssemblyAIKey, cfg.AssemblyAIBaseURL, cfg.ProviderTimeout)
	rl := relay.New(provider, relay.Options{
		Language:     cfg.Language,
		PollInterval: cfg.PollInterval,
		MaxAttempts:  cfg.PollMaxAttempts,
		Log:          relayLog,
	})

	// Embedded UI
	var webFS fs.FS
	if cfg.WebEnabled {
		sub, err := fs.Sub(voicestudio.WebFiles, "web")
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open embedded web files")
		}
		webFS = sub
	}

	// HTTP Server
	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(api.ServerOptions{
		Config:      cfg,
		Relay:       rl,
		WebFiles:    webFS,
		OpenAPISpec: voicestudio.OpenAPISpec,
		Version:     version,
		StartTime:   startTime,
		Log:         httpLog,
	})

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("voice-studio stopped")
}
