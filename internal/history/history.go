// Package history keeps the client-side activity log: an ordered list of
// transcriptions and spoken texts, most recent first, persisted as a single
// entry in local storage.
package history

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StorageKey is the single entry holding the serialized activity list.
const StorageKey = "voice-activities"

// Kind is the type of activity.
type Kind string

const (
	KindTranscription Kind = "transcription"
	KindSpeech        Kind = "speech"
)

// Activity is one completed transcription or speech event.
type Activity struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"type"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the activity list with explicit load and save boundaries.
// Records are neither validated nor deduplicated.
type Store struct {
	backend Backend
	log     zerolog.Logger
	now     func() time.Time

	mu         sync.Mutex
	activities []Activity
}

// NewStore creates an empty store over backend. Call Load to rehydrate.
func NewStore(backend Backend, log zerolog.Logger) *Store {
	return &Store{
		backend: backend,
		log:     log,
		now:     time.Now,
	}
}

// Load replaces the in-memory list with the persisted one. A missing entry
// yields an empty list; so does an unreadable one, which is logged and left
// in place until the next save overwrites it.
func (s *Store) Load() error {
	data, ok, err := s.backend.Get(StorageKey)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	var loaded []Activity
	if ok {
		if err := json.Unmarshal(data, &loaded); err != nil {
			s.log.Error().Err(err).Msg("error loading activities")
			loaded = nil
		}
	}

	s.mu.Lock()
	s.activities = loaded
	s.mu.Unlock()
	return nil
}

// Add prepends a new activity and persists the list.
func (s *Store) Add(kind Kind, text string) (Activity, error) {
	a := Activity{
		ID:        uuid.NewString(),
		Kind:      kind,
		Text:      text,
		Timestamp: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities = append([]Activity{a}, s.activities...)
	if err := s.saveLocked(); err != nil {
		return a, err
	}
	return a, nil
}

// Clear removes every activity and the persisted entry.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities = nil
	if err := s.backend.Remove(StorageKey); err != nil {
		return fmt.Errorf("remove history: %w", err)
	}
	return nil
}

// List returns a copy of the activities, most recent first.
func (s *Store) List() []Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Activity, len(s.activities))
	copy(out, s.activities)
	return out
}

// Len returns the number of activities.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activities)
}

func (s *Store) saveLocked() error {
	data, err := json.Marshal(s.activities)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := s.backend.Set(StorageKey, data); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}
