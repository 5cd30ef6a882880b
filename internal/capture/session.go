// Package capture turns a live audio source into one contiguous recording and
// hands it off for transcription.
package capture

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/snarg/voice-studio/internal/apperr"
	"github.com/snarg/voice-studio/internal/relay"
)

// State is the recorder state.
type State int

const (
	Idle State = iota
	Recording
	Processing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Processing:
		return "processing"
	default:
		return "unknown"
	}
}

const chunkSize = 32 << 10

// Session records from one source at a time. A new recording cannot start
// until the previous one has been handed off and marked Done.
type Session struct {
	mu          sync.Mutex
	state       State
	buf         bytes.Buffer
	src         io.Reader
	contentType string
	cancel      context.CancelFunc
	finished    chan struct{}
	readErr     error
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins buffering src. If src is an io.Closer it is closed when the
// recording stops.
func (s *Session) Start(ctx context.Context, src io.Reader, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Recording:
		return apperr.New(apperr.ClientError, "recording already in progress")
	case Processing:
		return apperr.New(apperr.ClientError, "previous recording is still being transcribed")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.state = Recording
	s.buf.Reset()
	s.src = src
	s.contentType = contentType
	s.cancel = cancel
	s.finished = make(chan struct{})
	s.readErr = nil

	go s.record(ctx, src, s.finished)
	return nil
}

func (s *Session) record(ctx context.Context, src io.Reader, finished chan struct{}) {
	defer close(finished)
	chunk := make([]byte, chunkSize)
	for {
		if ctx.Err() != nil {
			return
		}
		n, err := src.Read(chunk)
		if n > 0 {
			s.mu.Lock()
			s.buf.Write(chunk[:n])
			s.mu.Unlock()
		}
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			if ctx.Err() == nil {
				s.mu.Lock()
				s.readErr = err
				s.mu.Unlock()
			}
			return
		}
	}
}

// Finished is closed when the source reaches EOF or the recording stops.
// It is nil while idle.
func (s *Session) Finished() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// Stop ends the recording, moves the session to Processing and returns the
// captured payload. The caller must call Done after the handoff completes.
func (s *Session) Stop() (relay.Payload, error) {
	s.mu.Lock()
	if s.state != Recording {
		s.mu.Unlock()
		return relay.Payload{}, apperr.New(apperr.ClientError, "not recording")
	}
	s.cancel()
	if c, ok := s.src.(io.Closer); ok {
		c.Close()
	}
	finished := s.finished
	s.mu.Unlock()

	<-finished

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Processing
	s.src = nil
	if s.readErr != nil {
		return relay.Payload{}, apperr.Wrap(apperr.ClientError, "audio capture failed", s.readErr)
	}
	return relay.Payload{
		Data:        bytes.Clone(s.buf.Bytes()),
		ContentType: s.contentType,
	}, nil
}

// Done returns a processing session to Idle.
func (s *Session) Done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Processing {
		s.state = Idle
		s.buf.Reset()
	}
}
