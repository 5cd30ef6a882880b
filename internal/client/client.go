// Package client talks to the voice-studio relay over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/snarg/voice-studio/internal/apperr"
	"github.com/snarg/voice-studio/internal/relay"
)

// TranscribePath is the relay endpoint used for uploads.
const TranscribePath = "/api/assemblyai/transcribe"

// Client calls a relay server.
type Client struct {
	baseURL string
	http    *http.Client
}

// StatusResponse mirrors GET /api/status.
type StatusResponse struct {
	AssemblyAI bool `json:"assemblyai"`
}

// errorResponse mirrors the server's error body.
type errorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// New creates a client for the relay at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Transcribe uploads a recording as multipart field "audio".
func (c *Client) Transcribe(ctx context.Context, p relay.Payload) (*relay.Result, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	filename := p.Filename
	if filename == "" {
		filename = "recording"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename="%s"`, strings.ReplaceAll(filename, `"`, "")))
	ct := p.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(p.Data); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+TranscribePath, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out relay.Result
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status reports whether the relay has a provider credential configured.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/status", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	var out StatusResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.ClientError, "could not reach relay", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.ClientError, "read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperr.Wrap(apperr.ClientError, "decode response", err)
	}
	return nil
}

// decodeError rebuilds a classified error from a relay error response. The
// code field wins; without it the status is used.
func decodeError(status int, body []byte) error {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Error == "" {
		er.Error = strings.TrimSpace(string(body))
		if er.Error == "" {
			er.Error = http.StatusText(status)
		}
	}

	e := &apperr.Error{Message: er.Error, Detail: er.Detail, Status: status}
	if er.Code != "" {
		e.Kind = apperr.Kind(er.Code)
		return e
	}
	switch status {
	case http.StatusBadRequest:
		e.Kind = apperr.MissingInput
	case http.StatusRequestTimeout:
		e.Kind = apperr.Timeout
	case http.StatusInternalServerError:
		if strings.Contains(er.Error, "not configured") {
			e.Kind = apperr.Misconfigured
		} else {
			e.Kind = apperr.Internal
		}
	default:
		e.Kind = apperr.ProviderError
	}
	return e
}
