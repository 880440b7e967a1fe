package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ptulin/folio/server/internal/folio/accesscode"
	"github.com/ptulin/folio/server/internal/folio/store"
)

// CodeStore keeps access codes in table order. Allocation happens under the
// store mutex.
type CodeStore struct {
	mu     sync.Mutex
	nextID int64
	codes  []store.AccessCodeRecord
}

// NewCodeStore returns a store pre-filled with seed rows, as if an operator
// had typed them into the table.
func NewCodeStore(seed ...store.AccessCodeRecord) *CodeStore {
	s := &CodeStore{}
	for _, rec := range seed {
		s.nextID++
		rec.ID = s.nextID
		s.codes = append(s.codes, rec)
	}
	return s
}

func (s *CodeStore) IssueCode(_ context.Context, owner store.CodeOwner) (store.AccessCodeRecord, error) {
	if owner.CreatedAt.IsZero() {
		owner.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make([]string, len(s.codes))
	for i, c := range s.codes {
		existing[i] = c.Code
	}

	s.nextID++
	rec := store.AccessCodeRecord{
		ID:         s.nextID,
		Code:       accesscode.Next(existing),
		OwnerEmail: strings.TrimSpace(owner.Email),
		OwnerName:  strings.TrimSpace(owner.Name),
		Active:     accesscode.ActiveFlag,
		CreatedAt:  owner.CreatedAt,
	}
	s.codes = append(s.codes, rec)
	return rec, nil
}

func (s *CodeStore) FindByCode(_ context.Context, code string) ([]store.AccessCodeRecord, error) {
	code = strings.TrimSpace(code)
	return s.filter(func(r store.AccessCodeRecord) bool {
		return strings.TrimSpace(r.Code) == code
	}), nil
}

func (s *CodeStore) FindByEmail(_ context.Context, email string) ([]store.AccessCodeRecord, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	return s.filter(func(r store.AccessCodeRecord) bool {
		return strings.ToLower(strings.TrimSpace(r.OwnerEmail)) == email
	}), nil
}

func (s *CodeStore) MarkUsed(_ context.Context, id int64, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.codes {
		if s.codes[i].ID == id {
			used := t.UTC()
			s.codes[i].LastUsedAt = &used
			return nil
		}
	}
	return store.ErrNotFound
}

// Codes returns a copy of all rows.  Test-only helper.
func (s *CodeStore) Codes() []store.AccessCodeRecord {
	return s.filter(func(store.AccessCodeRecord) bool { return true })
}

func (s *CodeStore) filter(keep func(store.AccessCodeRecord) bool) []store.AccessCodeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.AccessCodeRecord
	for _, r := range s.codes {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
