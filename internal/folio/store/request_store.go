package store

import (
	"context"
	"time"
)

// AccessRequestRecord is one contact / access request.
type AccessRequestRecord struct {
	ID            int64
	ReceivedAt    time.Time
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	Message       string
	RequestedCode bool
	AssignedCode  string
	Active        string
	Notes         string
}

type RequestStore interface {
	AppendRequest(ctx context.Context, rec AccessRequestRecord) (int64, error)
	// AssignCode fills in the assigned code of a request after the fact.
	AssignCode(ctx context.Context, id int64, code string) error
	// ListRequestsSince returns requests with ReceivedAt >= since, oldest first.
	ListRequestsSince(ctx context.Context, since time.Time) ([]AccessRequestRecord, error)
}
