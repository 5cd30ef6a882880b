package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/snarg/voice-studio/internal/apperr"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the standard error response body. Code carries the error
// kind so clients need not infer it from the status.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

// WriteErrorCode writes a JSON error response with a machine-readable code.
func WriteErrorCode(w http.ResponseWriter, status int, code, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

// WriteErrorDetail writes a JSON error response with detail.
func WriteErrorDetail(w http.ResponseWriter, status int, msg, detail string) {
	WriteJSON(w, status, ErrorResponse{Error: msg, Detail: detail})
}

// WriteAppError maps a classified error onto its status and body. Unclassified
// errors become an opaque 500; their cause only goes to the log.
func WriteAppError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status := apperr.StatusOf(err)
	e, ok := apperr.As(err)
	if !ok {
		log.Error().Err(err).Msg("unclassified error")
		WriteErrorCode(w, status, string(apperr.Internal), "internal server error")
		return
	}

	ev := log.Warn()
	if status >= 500 {
		ev = log.Error()
	}
	ev.Err(err).Str("kind", string(e.Kind)).Int("status", status).Msg("request failed")

	WriteJSON(w, status, ErrorResponse{
		Error:  e.Message,
		Code:   string(e.Kind),
		Detail: e.Detail,
	})
}
