package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ptulin/folio/server/internal/folio/store"
)

type RequestStore struct {
	mu       sync.Mutex
	nextID   int64
	requests []store.AccessRequestRecord
}

func NewRequestStore() *RequestStore {
	return &RequestStore{}
}

func (s *RequestStore) AppendRequest(_ context.Context, rec store.AccessRequestRecord) (int64, error) {
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec.ID = s.nextID
	s.requests = append(s.requests, rec)
	return rec.ID, nil
}

func (s *RequestStore) AssignCode(_ context.Context, id int64, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.requests {
		if s.requests[i].ID == id {
			s.requests[i].AssignedCode = code
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *RequestStore) ListRequestsSince(_ context.Context, since time.Time) ([]store.AccessRequestRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.AccessRequestRecord
	for _, r := range s.requests {
		if !r.ReceivedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Requests returns a copy of all rows.  Test-only helper.
func (s *RequestStore) Requests() []store.AccessRequestRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.AccessRequestRecord, len(s.requests))
	copy(out, s.requests)
	return out
}
