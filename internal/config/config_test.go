package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	cleanup := setEnvs(t, map[string]string{
		"ASSEMBLYAI_API_KEY": "test-key",
	})
	defer cleanup()

	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.HTTPAddr != ":8080" {
			t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
		}
		if cfg.AssemblyAIBaseURL != "https://api.assemblyai.com/v2" {
			t.Errorf("AssemblyAIBaseURL = %q", cfg.AssemblyAIBaseURL)
		}
		if cfg.Language != "en" {
			t.Errorf("Language = %q, want en", cfg.Language)
		}
		if cfg.PollInterval != time.Second {
			t.Errorf("PollInterval = %v, want 1s", cfg.PollInterval)
		}
		if cfg.PollMaxAttempts != 60 {
			t.Errorf("PollMaxAttempts = %d, want 60", cfg.PollMaxAttempts)
		}
		if cfg.MaxUploadBytes != 32<<20 {
			t.Errorf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes, 32<<20)
		}
		if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
			t.Errorf("CORSOrigins = %v, want [*]", cfg.CORSOrigins)
		}
		if !cfg.WebEnabled || !cfg.MetricsEnabled {
			t.Error("WebEnabled and MetricsEnabled should default to true")
		}
	})

	t.Run("cli_overrides_take_priority", func(t *testing.T) {
		cfg, err := Load(Overrides{
			EnvFile:           "nonexistent.env",
			HTTPAddr:          ":9090",
			LogLevel:          "debug",
			AssemblyAIBaseURL: "http://localhost:4000/v2",
			Language:          "es",
		})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.HTTPAddr != ":9090" {
			t.Errorf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
		}
		if cfg.AssemblyAIBaseURL != "http://localhost:4000/v2" {
			t.Errorf("AssemblyAIBaseURL = %q, want override", cfg.AssemblyAIBaseURL)
		}
		if cfg.Language != "es" {
			t.Errorf("Language = %q, want es", cfg.Language)
		}
	})

	t.Run("env_vars_read", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.AssemblyAIKey != "test-key" {
			t.Errorf("AssemblyAIKey = %q, want test-key", cfg.AssemblyAIKey)
		}
		if !cfg.ProviderConfigured() {
			t.Error("ProviderConfigured = false, want true")
		}
	})
}

func TestLoadWithoutKey(t *testing.T) {
	cleanup := setEnvs(t, map[string]string{"ASSEMBLYAI_API_KEY": ""})
	defer cleanup()
	os.Unsetenv("ASSEMBLYAI_API_KEY")

	// The key is optional: loading succeeds and only the relay is degraded.
	cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProviderConfigured() {
		t.Error("ProviderConfigured = true, want false")
	}
}

func TestLoadEnvFile(t *testing.T) {
	cleanup := setEnvs(t, map[string]string{"TRANSCRIBE_LANGUAGE": ""})
	defer cleanup()
	os.Unsetenv("TRANSCRIBE_LANGUAGE")

	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("TRANSCRIBE_LANGUAGE=fr\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	defer os.Unsetenv("TRANSCRIBE_LANGUAGE")

	cfg, err := Load(Overrides{EnvFile: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Language != "fr" {
		t.Errorf("Language = %q, want fr", cfg.Language)
	}
}

func TestLoadClient(t *testing.T) {
	cleanup := setEnvs(t, map[string]string{
		"VOICE_STUDIO_URL":  "http://relay:8080",
		"VOICE_HISTORY_DIR": "/tmp/voice-history",
	})
	defer cleanup()

	cfg, err := LoadClient("nonexistent.env")
	if err != nil {
		t.Fatalf("LoadClient: %v", err)
	}
	if cfg.ServerURL != "http://relay:8080" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.HistoryDir != "/tmp/voice-history" {
		t.Errorf("HistoryDir = %q", cfg.HistoryDir)
	}
	if cfg.Lang != "en-US" {
		t.Errorf("Lang = %q, want en-US", cfg.Lang)
	}
	if cfg.RequestTimeout != 90*time.Second {
		t.Errorf("RequestTimeout = %v, want 90s", cfg.RequestTimeout)
	}
}

// setEnvs sets environment variables and returns a cleanup function.
func setEnvs(t *testing.T, envs map[string]string) func() {
	t.Helper()
	originals := make(map[string]string)
	unset := make([]string, 0)

	for k, v := range envs {
		if orig, ok := os.LookupEnv(k); ok {
			originals[k] = orig
		} else {
			unset = append(unset, k)
		}
		os.Setenv(k, v)
	}

	return func() {
		for k, v := range originals {
			os.Setenv(k, v)
		}
		for _, k := range unset {
			os.Unsetenv(k)
		}
	}
}
