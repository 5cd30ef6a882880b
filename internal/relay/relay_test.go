package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/voice-studio/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAssemblyAI is an in-process stand-in for the provider's REST API.
type fakeAssemblyAI struct {
	t *testing.T

	uploadStatus int    // non-zero: fail upload with this status
	submitStatus int    // non-zero: fail submit with this status
	pollStatus   int    // non-zero: fail polls with this status
	pendingPolls int    // polls answered "processing" before the terminal state
	finalStatus  string // "completed", "error", or "" to never finish
	text         string
	confidence   float64
	jobError     string

	uploads   atomic.Int32
	submits   atomic.Int32
	polls     atomic.Int32
	mu        sync.Mutex
	lastBody  []byte
	lastLang  string
	lastAuths []string
}

func (f *fakeAssemblyAI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		f.uploads.Add(1)
		f.recordAuth(r)
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.lastBody = body
		f.mu.Unlock()
		if f.uploadStatus != 0 {
			http.Error(w, `{"error":"upload rejected"}`, f.uploadStatus)
			return
		}
		writeJSON(w, map[string]string{"upload_url": "https://cdn.example/upload/abc"})
	})
	mux.HandleFunc("POST /transcript", func(w http.ResponseWriter, r *http.Request) {
		f.submits.Add(1)
		f.recordAuth(r)
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			f.t.Errorf("decode submit body: %v", err)
		}
		if req.AudioURL != "https://cdn.example/upload/abc" {
			f.t.Errorf("audio_url = %q", req.AudioURL)
		}
		f.mu.Lock()
		f.lastLang = req.LanguageCode
		f.mu.Unlock()
		if f.submitStatus != 0 {
			http.Error(w, `{"error":"submit rejected"}`, f.submitStatus)
			return
		}
		writeJSON(w, map[string]string{"id": "job-123", "status": "queued"})
	})
	mux.HandleFunc("GET /transcript/{id}", func(w http.ResponseWriter, r *http.Request) {
		n := f.polls.Add(1)
		f.recordAuth(r)
		if r.PathValue("id") != "job-123" {
			f.t.Errorf("polled id = %q, want job-123", r.PathValue("id"))
		}
		if f.pollStatus != 0 {
			http.Error(w, `{"error":"poll rejected"}`, f.pollStatus)
			return
		}
		if int(n) <= f.pendingPolls || f.finalStatus == "" {
			writeJSON(w, map[string]any{"id": "job-123", "status": "processing", "text": nil})
			return
		}
		resp := map[string]any{"id": "job-123", "status": f.finalStatus}
		if f.finalStatus == "completed" {
			resp["text"] = f.text
			resp["confidence"] = f.confidence
		} else {
			resp["error"] = f.jobError
		}
		writeJSON(w, resp)
	})
	return mux
}

func (f *fakeAssemblyAI) recordAuth(r *http.Request) {
	f.mu.Lock()
	f.lastAuths = append(f.lastAuths, r.Header.Get("Authorization"))
	f.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newTestRelay(t *testing.T, fake *fakeAssemblyAI, apiKey string) *Relay {
	t.Helper()
	fake.t = t
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	client := NewAssemblyAIClient(apiKey, srv.URL, 5*time.Second)
	return New(client, Options{
		PollInterval: time.Millisecond,
		Log:          zerolog.Nop(),
	})
}

func audio() Payload {
	return Payload{Data: []byte("RIFF....WAVEfmt "), ContentType: "audio/wav", Filename: "clip.wav"}
}

func TestTranscribe_RoundTrip(t *testing.T) {
	fake := &fakeAssemblyAI{pendingPolls: 2, finalStatus: "completed", text: "hello world", confidence: 0.97}
	r := newTestRelay(t, fake, "secret")

	res, err := r.Transcribe(context.Background(), audio())
	require.NoError(t, err)
	assert.Equal(t, &Result{Text: "hello world", Confidence: 0.97}, res)

	assert.EqualValues(t, 1, fake.uploads.Load())
	assert.EqualValues(t, 1, fake.submits.Load())
	assert.EqualValues(t, 3, fake.polls.Load())
	assert.Equal(t, audio().Data, fake.lastBody)
	assert.Equal(t, "en", fake.lastLang)
	for _, a := range fake.lastAuths {
		assert.Equal(t, "secret", a)
	}
	assert.EqualValues(t, 0, r.InFlight())
}

func TestTranscribe_MissingInput(t *testing.T) {
	for _, p := range []Payload{{}, {Data: []byte{}, ContentType: "audio/webm"}} {
		fake := &fakeAssemblyAI{finalStatus: "completed"}
		r := newTestRelay(t, fake, "secret")

		_, err := r.Transcribe(context.Background(), p)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.MissingInput), "got %v", err)
		assert.EqualValues(t, 0, fake.uploads.Load()+fake.submits.Load()+fake.polls.Load())
	}
}

func TestTranscribe_Misconfigured(t *testing.T) {
	fake := &fakeAssemblyAI{finalStatus: "completed"}
	r := newTestRelay(t, fake, "")

	assert.False(t, r.Configured())
	_, err := r.Transcribe(context.Background(), audio())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Misconfigured), "got %v", err)
	assert.EqualValues(t, 0, fake.uploads.Load())
}

func TestTranscribe_UploadFailure(t *testing.T) {
	fake := &fakeAssemblyAI{uploadStatus: http.StatusUnauthorized, finalStatus: "completed"}
	r := newTestRelay(t, fake, "wrong")

	_, err := r.Transcribe(context.Background(), audio())
	e, ok := apperr.As(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, apperr.ProviderError, e.Kind)
	assert.Equal(t, StepUpload, e.Step)
	assert.Equal(t, http.StatusUnauthorized, e.Status)
	assert.Equal(t, http.StatusUnauthorized, e.HTTPStatus())
	assert.Contains(t, e.Detail, "upload rejected")
	assert.EqualValues(t, 0, fake.submits.Load())
	assert.EqualValues(t, 0, fake.polls.Load())
}

func TestTranscribe_SubmitFailure(t *testing.T) {
	fake := &fakeAssemblyAI{submitStatus: http.StatusBadGateway, finalStatus: "completed"}
	r := newTestRelay(t, fake, "secret")

	_, err := r.Transcribe(context.Background(), audio())
	e, ok := apperr.As(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, StepSubmit, e.Step)
	assert.Equal(t, http.StatusBadGateway, e.Status)
	assert.Equal(t, "Failed to request transcription", e.Message)
	assert.EqualValues(t, 0, fake.polls.Load())
}

func TestTranscribe_PollFailureNotRetried(t *testing.T) {
	fake := &fakeAssemblyAI{pollStatus: http.StatusServiceUnavailable, finalStatus: "completed"}
	r := newTestRelay(t, fake, "secret")

	_, err := r.Transcribe(context.Background(), audio())
	e, ok := apperr.As(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, StepPoll, e.Step)
	assert.Equal(t, http.StatusServiceUnavailable, e.HTTPStatus())
	assert.EqualValues(t, 1, fake.polls.Load())
}

func TestTranscribe_JobErrorStopsPolling(t *testing.T) {
	fake := &fakeAssemblyAI{pendingPolls: 1, finalStatus: "error", jobError: "Audio file could not be decoded"}
	r := newTestRelay(t, fake, "secret")

	_, err := r.Transcribe(context.Background(), audio())
	e, ok := apperr.As(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, apperr.ProviderError, e.Kind)
	assert.Equal(t, "Audio file could not be decoded", e.Message)
	assert.Equal(t, http.StatusInternalServerError, e.HTTPStatus())
	assert.EqualValues(t, 2, fake.polls.Load())
}

func TestTranscribe_Timeout(t *testing.T) {
	fake := &fakeAssemblyAI{}
	r := newTestRelay(t, fake, "secret")

	_, err := r.Transcribe(context.Background(), audio())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Timeout), "got %v", err)
	assert.Equal(t, http.StatusRequestTimeout, apperr.StatusOf(err))
	assert.EqualValues(t, DefaultMaxAttempts, fake.polls.Load())
}

func TestTranscribe_CustomCeiling(t *testing.T) {
	fake := &fakeAssemblyAI{t: t}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()
	r := New(NewAssemblyAIClient("secret", srv.URL, time.Second), Options{
		Language:     "de",
		PollInterval: time.Millisecond,
		MaxAttempts:  3,
		Log:          zerolog.Nop(),
	})

	_, err := r.Transcribe(context.Background(), audio())
	assert.True(t, apperr.Is(err, apperr.Timeout), "got %v", err)
	assert.EqualValues(t, 3, fake.polls.Load())
	assert.Equal(t, "de", fake.lastLang)
}

func TestTranscribe_ContextCanceledDuringPoll(t *testing.T) {
	fake := &fakeAssemblyAI{t: t}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()
	r := New(NewAssemblyAIClient("secret", srv.URL, time.Second), Options{
		PollInterval: time.Hour,
		Log:          zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := r.Transcribe(ctx, audio())
		done <- err
	}()

	require.Eventually(t, func() bool { return fake.polls.Load() == 1 }, 5*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Transcribe did not return after cancel")
	}
}

func TestTranscribe_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	r := New(NewAssemblyAIClient("secret", url, time.Second), Options{Log: zerolog.Nop()})
	_, err := r.Transcribe(context.Background(), audio())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Internal), "got %v", err)
}

func TestTranscribe_ConcurrentInvocations(t *testing.T) {
	fake := &fakeAssemblyAI{pendingPolls: 0, finalStatus: "completed", text: "hi", confidence: 0.5}
	r := newTestRelay(t, fake, "secret")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := r.Transcribe(context.Background(), audio())
			if err == nil && res.Text != "hi" {
				err = io.ErrUnexpectedEOF
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 8, fake.uploads.Load())
}

func TestAssemblyAIClient_ErrorBodyTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, strings.Repeat("x", maxErrorBody*2))
	}))
	defer srv.Close()

	c := NewAssemblyAIClient("secret", srv.URL+"/", time.Second)
	_, err := c.Upload(context.Background(), []byte("a"), "")
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Len(t, e.Detail, maxErrorBody)
}

func TestJobStatusTerminal(t *testing.T) {
	assert.True(t, JobCompleted.Terminal())
	assert.True(t, JobError.Terminal())
	assert.False(t, JobQueued.Terminal())
	assert.False(t, JobProcessing.Terminal())
	assert.False(t, JobStatus("weird").Terminal())
}
