package store

import (
	"context"
	"time"
)

type AccessCodeRecord struct {
	ID         int64
	Code       string
	OwnerEmail string
	OwnerName  string
	Active     string // free text; see accesscode.IsActive
	CreatedAt  time.Time
	LastUsedAt *time.Time
}

// CodeOwner describes who a new code is issued to.
type CodeOwner struct {
	Email     string
	Name      string
	CreatedAt time.Time
}

type CodeStore interface {
	// IssueCode allocates the next PT-##### code and appends its row as one
	// serialized operation, so concurrent callers never receive the same code.
	IssueCode(ctx context.Context, owner CodeOwner) (AccessCodeRecord, error)

	// FindByCode returns rows whose trimmed code equals code, in table order.
	FindByCode(ctx context.Context, code string) ([]AccessCodeRecord, error)

	// FindByEmail returns rows whose owner email matches after trim and
	// lowercase, in table order.
	FindByEmail(ctx context.Context, email string) ([]AccessCodeRecord, error)

	MarkUsed(ctx context.Context, id int64, t time.Time) error
}
