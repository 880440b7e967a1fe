package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ptulin/folio/server/internal/folio/store"
)

// AccessEventStore is an in-memory append-only access log.
// It is intended for use in tests and dev environments.
type AccessEventStore struct {
	mu     sync.Mutex
	nextID int64
	events []store.AccessEventRecord
}

func NewAccessEventStore() *AccessEventStore {
	return &AccessEventStore{}
}

func (s *AccessEventStore) RecordEvent(_ context.Context, rec store.AccessEventRecord) error {
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec.ID = s.nextID
	s.events = append(s.events, rec)
	return nil
}

func (s *AccessEventStore) ListEventsSince(_ context.Context, since time.Time) ([]store.AccessEventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.AccessEventRecord
	for _, ev := range s.events {
		if !ev.OccurredAt.Before(since) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// Events returns a copy of all recorded events.  Test-only helper.
func (s *AccessEventStore) Events() []store.AccessEventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.AccessEventRecord, len(s.events))
	copy(out, s.events)
	return out
}
