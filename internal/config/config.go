package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the relay server configuration.
type Config struct {
	// AssemblyAIKey is optional: without it the relay answers 500
	// (misconfigured) while the rest of the app keeps working.
	AssemblyAIKey     string        `env:"ASSEMBLYAI_API_KEY"`
	AssemblyAIBaseURL string        `env:"ASSEMBLYAI_BASE_URL" envDefault:"https://api.assemblyai.com/v2"`
	Language          string        `env:"TRANSCRIBE_LANGUAGE" envDefault:"en"`
	PollInterval      time.Duration `env:"TRANSCRIBE_POLL_INTERVAL" envDefault:"1s"`
	PollMaxAttempts   int           `env:"TRANSCRIBE_POLL_MAX_ATTEMPTS" envDefault:"60"`
	ProviderTimeout   time.Duration `env:"TRANSCRIBE_REQUEST_TIMEOUT" envDefault:"30s"`
	MaxUploadBytes    int64         `env:"MAX_UPLOAD_BYTES" envDefault:"33554432"`
	RateLimit         int           `env:"TRANSCRIBE_RATE_LIMIT" envDefault:"0"`

	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"120s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`

	WebEnabled     bool   `env:"WEB_ENABLED" envDefault:"true"`
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile           string
	HTTPAddr          string
	LogLevel          string
	AssemblyAIBaseURL string
	Language          string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	loadEnvFile(overrides.EnvFile)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Apply CLI overrides (non-empty values win)
	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.AssemblyAIBaseURL != "" {
		cfg.AssemblyAIBaseURL = overrides.AssemblyAIBaseURL
	}
	if overrides.Language != "" {
		cfg.Language = overrides.Language
	}

	return cfg, nil
}

// ProviderConfigured reports whether the transcription credential is set.
func (c *Config) ProviderConfigured() bool { return c.AssemblyAIKey != "" }

// ClientConfig configures the voicectl command-line client.
type ClientConfig struct {
	ServerURL      string        `env:"VOICE_STUDIO_URL" envDefault:"http://localhost:8080"`
	HistoryDir     string        `env:"VOICE_HISTORY_DIR"`
	RequestTimeout time.Duration `env:"VOICE_REQUEST_TIMEOUT" envDefault:"90s"`
	TTSCommand     string        `env:"VOICE_TTS_COMMAND"`
	Voice          string        `env:"VOICE_TTS_VOICE"`
	Lang           string        `env:"VOICE_TTS_LANG" envDefault:"en-US"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"warn"`
}

// LoadClient reads the client configuration. An empty HistoryDir resolves to
// the user config directory.
func LoadClient(envFile string) (*ClientConfig, error) {
	loadEnvFile(envFile)

	cfg := &ClientConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if cfg.HistoryDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, err
		}
		cfg.HistoryDir = dir + string(os.PathSeparator) + "voice-studio"
	}
	return cfg, nil
}

// loadEnvFile loads a .env file, silently skipping a missing one.
func loadEnvFile(path string) {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err == nil {
		_ = godotenv.Load(path)
	}
}
