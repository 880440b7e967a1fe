package store

import (
	"context"
	"time"

	"github.com/ptulin/folio/server/internal/folio/types"
)

// AccessEventRecord is one row of the access log. Code is empty for
// forgot-password lookups.
type AccessEventRecord struct {
	ID         int64
	OccurredAt time.Time
	Code       string
	Email      string
	Result     types.EventResult
	IP         string
	UserAgent  string
}

// AccessEventStore persists access attempts as an append-only audit log.
type AccessEventStore interface {
	RecordEvent(ctx context.Context, rec AccessEventRecord) error
	// ListEventsSince returns events with OccurredAt >= since, oldest first.
	ListEventsSince(ctx context.Context, since time.Time) ([]AccessEventRecord, error)
}
