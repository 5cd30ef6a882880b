package api

import (
	"net/http"
	"time"
)

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
}

// ProviderStatus reports whether the transcription provider is usable.
type ProviderStatus interface {
	Configured() bool
}

type HealthHandler struct {
	provider  ProviderStatus
	version   string
	startTime time.Time
}

func NewHealthHandler(provider ProviderStatus, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		provider:  provider,
		version:   version,
		startTime: startTime,
	}
}

// ServeHTTP answers GET /api/v1/health. A missing provider credential only
// degrades the service; the UI and speech features keep working.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"

	if h.provider != nil && h.provider.Configured() {
		checks["assemblyai"] = "configured"
	} else {
		checks["assemblyai"] = "not_configured"
		status = "degraded"
	}

	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
	})
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	AssemblyAI bool `json:"assemblyai"`
}

// StatusHandler tells the browser whether transcription can work, so it can
// warn about a missing API key before the user records anything.
func StatusHandler(provider ProviderStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, StatusResponse{
			AssemblyAI: provider != nil && provider.Configured(),
		})
	}
}
