package relay

import "context"

// Provider is the remote transcription service the relay talks to.
// Each method is a single request; implementations do not retry.
type Provider interface {
	// Configured reports whether the provider credential is present.
	Configured() bool
	// Upload sends raw audio and returns the provider's reference to it.
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
	// Submit requests transcription of an uploaded reference and returns the job ID.
	Submit(ctx context.Context, audioURL, language string) (string, error)
	// Status fetches the current state of a job.
	Status(ctx context.Context, jobID string) (*Job, error)
	// Name identifies the provider in logs and metrics.
	Name() string
}

// JobStatus is the provider-side state of a transcription job.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobError      JobStatus = "error"
)

// Terminal reports whether no further polling is needed.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobError
}

// Job is a transcription job as reported by the provider.
type Job struct {
	ID         string    `json:"id"`
	Status     JobStatus `json:"status"`
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	Error      string    `json:"error"`
}

// Payload is one recording handed to the relay.
type Payload struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Result is the outcome of a completed transcription.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}
