package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/snarg/voice-studio/internal/apperr"
	"github.com/snarg/voice-studio/internal/relay"
)

// AudioField is the multipart field carrying the recording.
const AudioField = "audio"

// Transcriber runs one relay invocation.
type Transcriber interface {
	Transcribe(ctx context.Context, p relay.Payload) (*relay.Result, error)
	Configured() bool
}

// TranscribeHandler accepts a recording from the browser and relays it to the
// transcription provider.
type TranscribeHandler struct {
	relay    Transcriber
	maxBytes int64
	log      zerolog.Logger
}

// NewTranscribeHandler creates a transcribe handler. maxBytes bounds the
// multipart body.
func NewTranscribeHandler(t Transcriber, maxBytes int64, log zerolog.Logger) *TranscribeHandler {
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	return &TranscribeHandler{
		relay:    t,
		maxBytes: maxBytes,
		log:      log.With().Str("handler", "transcribe").Logger(),
	}
}

// Routes registers the transcribe endpoint.
func (h *TranscribeHandler) Routes(r chi.Router) {
	r.Post("/transcribe", h.Transcribe)
}

// Transcribe handles POST /api/assemblyai/transcribe.
// Expects a multipart form with the recording in field "audio".
func (h *TranscribeHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	p, err := h.readPayload(w, r)
	if err != nil {
		WriteAppError(w, h.log, err)
		return
	}

	res, err := h.relay.Transcribe(r.Context(), p)
	if err != nil {
		WriteAppError(w, h.log, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

func (h *TranscribeHandler) readPayload(w http.ResponseWriter, r *http.Request) (relay.Payload, error) {
	noAudio := apperr.New(apperr.MissingInput, "No audio file provided")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return relay.Payload{}, apperr.Wrap(apperr.MissingInput, "Audio file too large", err)
		}
		h.log.Debug().Err(err).Msg("invalid multipart form")
		return relay.Payload{}, noAudio
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(AudioField)
	if err != nil {
		return relay.Payload{}, noAudio
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return relay.Payload{}, apperr.Wrap(apperr.Internal, "failed to read audio file", err)
	}
	if len(data) == 0 {
		return relay.Payload{}, noAudio
	}

	return relay.Payload{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
	}, nil
}
