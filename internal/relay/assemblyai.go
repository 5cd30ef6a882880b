package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/snarg/voice-studio/internal/apperr"
)

// DefaultAssemblyAIBaseURL is the v2 API root.
const DefaultAssemblyAIBaseURL = "https://api.assemblyai.com/v2"

// Relay step names, used in errors, logs and metric labels.
const (
	StepUpload = "upload"
	StepSubmit = "submit"
	StepPoll   = "poll"
)

// maxErrorBody caps how much of an upstream error body is carried in errors.
const maxErrorBody = 4096

// AssemblyAIClient calls the AssemblyAI v2 REST API.
// Implements the Provider interface.
type AssemblyAIClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// uploadResponse is the JSON response from POST /upload.
type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

// submitRequest is the JSON body for POST /transcript.
type submitRequest struct {
	AudioURL     string `json:"audio_url"`
	LanguageCode string `json:"language_code"`
}

// NewAssemblyAIClient creates a new AssemblyAI client. An empty baseURL
// selects the public API. timeout bounds each individual request.
func NewAssemblyAIClient(apiKey, baseURL string, timeout time.Duration) *AssemblyAIClient {
	if baseURL == "" {
		baseURL = DefaultAssemblyAIBaseURL
	}
	return &AssemblyAIClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name.
func (c *AssemblyAIClient) Name() string { return "assemblyai" }

// Configured reports whether an API key is set.
func (c *AssemblyAIClient) Configured() bool { return c.apiKey != "" }

// Upload sends the raw audio bytes and returns the upload URL.
func (c *AssemblyAIClient) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	var out uploadResponse
	err := c.do(ctx, StepUpload, "Failed to upload audio to AssemblyAI",
		http.MethodPost, "/upload", bytes.NewReader(data), contentType, &out)
	if err != nil {
		return "", err
	}
	if out.UploadURL == "" {
		return "", apperr.New(apperr.Internal, "upload response missing upload_url")
	}
	return out.UploadURL, nil
}

// Submit starts a transcription job for an uploaded file.
func (c *AssemblyAIClient) Submit(ctx context.Context, audioURL, language string) (string, error) {
	body, err := json.Marshal(submitRequest{AudioURL: audioURL, LanguageCode: language})
	if err != nil {
		return "", fmt.Errorf("marshal transcript request: %w", err)
	}
	var out Job
	err = c.do(ctx, StepSubmit, "Failed to request transcription",
		http.MethodPost, "/transcript", bytes.NewReader(body), "application/json", &out)
	if err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", apperr.New(apperr.Internal, "transcript response missing id")
	}
	return out.ID, nil
}

// Status fetches a transcription job.
func (c *AssemblyAIClient) Status(ctx context.Context, jobID string) (*Job, error) {
	var out Job
	err := c.do(ctx, StepPoll, "Failed to get transcription status",
		http.MethodGet, "/transcript/"+url.PathEscape(jobID), nil, "", &out)
	if err != nil {
		return nil, err
	}
	if out.ID == "" {
		out.ID = jobID
	}
	return &out, nil
}

// do issues one request. Non-2xx responses become ProviderErrors carrying the
// step, status and body; transport and decode failures are Internal.
func (c *AssemblyAIClient) do(ctx context.Context, step, failMsg, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "create "+step+" request", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.Internal, step+" request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "read "+step+" response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := string(respBody)
		if len(detail) > maxErrorBody {
			detail = detail[:maxErrorBody]
		}
		return apperr.Provider(step, failMsg, resp.StatusCode, detail)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return apperr.Wrap(apperr.Internal, "decode "+step+" response", err)
	}
	return nil
}
