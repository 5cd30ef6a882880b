package speech

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/snarg/voice-studio/internal/apperr"
)

// Hooks receive utterance lifecycle signals. Any of them may be nil.
type Hooks struct {
	OnStart func(Utterance)
	OnEnd   func(Utterance)
	OnError func(Utterance, error)
}

// Speaker speaks one utterance at a time. Starting a new utterance cancels
// the one in progress.
type Speaker struct {
	synth Synthesizer
	hooks Hooks
	log   zerolog.Logger

	mu       sync.Mutex
	seq      uint64
	cancel   context.CancelFunc
	speaking bool
}

// NewSpeaker wraps a synthesizer.
func NewSpeaker(synth Synthesizer, hooks Hooks, log zerolog.Logger) *Speaker {
	return &Speaker{synth: synth, hooks: hooks, log: log}
}

// Speaking reports whether an utterance is in progress.
func (s *Speaker) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// Speak blocks until u has been spoken, canceled, or failed. Cancellation,
// whether through ctx, Stop, or a newer Speak call, is not an error: the
// utterance ends and Speak returns nil.
func (s *Speaker) Speak(ctx context.Context, u Utterance) error {
	u.Text = strings.TrimSpace(u.Text)
	if u.Text == "" {
		return apperr.New(apperr.MissingInput, "Please enter some text to convert to speech")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	id := s.seq
	s.cancel = cancel
	s.speaking = true
	s.mu.Unlock()

	if s.hooks.OnStart != nil {
		s.hooks.OnStart(u)
	}

	err := s.synth.Speak(ctx, u)

	s.mu.Lock()
	if s.seq == id {
		s.speaking = false
		s.cancel = nil
	}
	s.mu.Unlock()

	if err != nil && !isBenign(ctx, err) {
		s.log.Error().Err(err).Msg("speech synthesis error")
		if s.hooks.OnError != nil {
			s.hooks.OnError(u, err)
		}
		if apperr.Is(err, apperr.UnsupportedCapability) {
			return err
		}
		return apperr.Wrap(apperr.ClientError, "Failed to generate speech", err)
	}

	if err != nil {
		s.log.Debug().Err(err).Msg("utterance canceled")
	}
	if s.hooks.OnEnd != nil {
		s.hooks.OnEnd(u)
	}
	return nil
}

// Stop cancels the utterance in progress, if any.
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.speaking = false
}

// isBenign reports whether err comes from a deliberate cancellation rather
// than an engine failure.
func isBenign(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "interrupted") || strings.Contains(msg, "canceled")
}
