// Package relay mediates between callers and a remote transcription provider:
// it uploads a recording, submits a job and polls the job until it finishes.
package relay

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/voice-studio/internal/apperr"
	"github.com/snarg/voice-studio/internal/metrics"
)

const (
	DefaultLanguage     = "en"
	DefaultPollInterval = time.Second
	DefaultMaxAttempts  = 60
)

// Options configures a Relay. Zero values select the defaults above.
type Options struct {
	Language     string
	PollInterval time.Duration
	MaxAttempts  int
	Log          zerolog.Logger
}

// Relay runs the upload → submit → poll workflow. It holds no per-call state,
// so one Relay serves any number of concurrent invocations.
type Relay struct {
	provider Provider
	opts     Options
	log      zerolog.Logger

	inFlight atomic.Int64
}

// New creates a relay over the given provider.
func New(provider Provider, opts Options) *Relay {
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	return &Relay{
		provider: provider,
		opts:     opts,
		log:      opts.Log,
	}
}

// Configured reports whether the provider credential is set.
func (r *Relay) Configured() bool { return r.provider.Configured() }

// InFlight returns the number of invocations currently running.
func (r *Relay) InFlight() int64 { return r.inFlight.Load() }

// Transcribe relays one payload and returns the transcribed text.
//
// Failures are *apperr.Error values: MissingInput for an empty payload,
// Misconfigured when the credential is absent (both before any network
// call), ProviderError for any upstream failure, Timeout when the job does
// not finish within the attempt ceiling.
func (r *Relay) Transcribe(ctx context.Context, p Payload) (res *Result, err error) {
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(apperr.KindOf(err))
		}
		metrics.RelayTranscriptionsTotal.WithLabelValues(outcome).Inc()
	}()

	if len(p.Data) == 0 {
		return nil, apperr.New(apperr.MissingInput, "No audio file provided")
	}
	if !r.provider.Configured() {
		return nil, apperr.New(apperr.Misconfigured,
			"AssemblyAI API key not configured. Please add ASSEMBLYAI_API_KEY to your environment variables.")
	}

	r.inFlight.Add(1)
	defer r.inFlight.Add(-1)

	start := time.Now()
	log := r.log.With().Str("provider", r.provider.Name()).Logger()

	log.Debug().Int("bytes", len(p.Data)).Str("content_type", p.ContentType).Msg("uploading audio")
	metrics.RelayUploadBytes.Observe(float64(len(p.Data)))

	var uploadURL string
	err = r.timed(StepUpload, func() (err error) {
		uploadURL, err = r.provider.Upload(ctx, p.Data, p.ContentType)
		return err
	})
	if err != nil {
		log.Error().Err(err).Msg("upload failed")
		return nil, err
	}

	var jobID string
	err = r.timed(StepSubmit, func() (err error) {
		jobID, err = r.provider.Submit(ctx, uploadURL, r.opts.Language)
		return err
	})
	if err != nil {
		log.Error().Err(err).Msg("transcription request failed")
		return nil, err
	}
	log = log.With().Str("job_id", jobID).Logger()
	log.Debug().Msg("transcription started")

	res, attempts, err := r.poll(ctx, jobID)
	metrics.RelayPollAttempts.Observe(float64(attempts))
	if err != nil {
		log.Error().Err(err).Int("attempts", attempts).Msg("transcription failed")
		return nil, err
	}

	log.Info().
		Int("attempts", attempts).
		Int("chars", len(res.Text)).
		Float64("confidence", res.Confidence).
		Dur("elapsed", time.Since(start)).
		Msg("transcription completed")
	return res, nil
}

// poll queries the job until it is terminal or the attempt ceiling is hit.
// It returns the number of status requests issued.
func (r *Relay) poll(ctx context.Context, jobID string) (*Result, int, error) {
	timer := time.NewTimer(r.opts.PollInterval)
	timer.Stop()
	defer timer.Stop()

	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		var job *Job
		err := r.timed(StepPoll, func() (err error) {
			job, err = r.provider.Status(ctx, jobID)
			return err
		})
		if err != nil {
			return nil, attempt, err
		}

		switch job.Status {
		case JobCompleted:
			return &Result{Text: job.Text, Confidence: job.Confidence}, attempt, nil
		case JobError:
			msg := strings.TrimSpace(job.Error)
			if msg == "" {
				msg = "transcription failed"
			}
			return nil, attempt, apperr.Provider(StepPoll, msg, 0, job.Error)
		}

		if attempt == r.opts.MaxAttempts {
			break
		}

		timer.Reset(r.opts.PollInterval)
		select {
		case <-ctx.Done():
			return nil, attempt, apperr.Wrap(apperr.Internal, "transcription canceled", ctx.Err())
		case <-timer.C:
		}
	}

	return nil, r.opts.MaxAttempts, apperr.New(apperr.Timeout, "Transcription timeout")
}

func (r *Relay) timed(step string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RelayStepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
	return err
}
