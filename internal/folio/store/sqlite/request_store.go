package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/ptulin/folio/server/internal/db"
	"github.com/ptulin/folio/server/internal/folio/accesscode"
	"github.com/ptulin/folio/server/internal/folio/store"
)

type RequestStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewRequestStore(db *sql.DB, writer *dbpkg.Worker) *RequestStore {
	return &RequestStore{db: db, writer: writer}
}

func (s *RequestStore) AppendRequest(ctx context.Context, rec store.AccessRequestRecord) (int64, error) {
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	if rec.Active == "" {
		rec.Active = accesscode.ActiveFlag
	}

	var requested int
	if rec.RequestedCode {
		requested = 1
	}

	var id int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO access_requests(
  received_at_ms, first_name, last_name, email, phone, message,
  requested_code, assigned_code, active, notes
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			rec.ReceivedAt.UTC().UnixMilli(), rec.FirstName, rec.LastName, rec.Email,
			rec.Phone, rec.Message, requested, rec.AssignedCode, rec.Active, rec.Notes,
		)
		if err != nil {
			return fmt.Errorf("AppendRequest insert: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("AppendRequest last id: %w", err)
		}
		return nil
	})
	return id, err
}

func (s *RequestStore) AssignCode(ctx context.Context, id int64, code string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE access_requests SET assigned_code = ? WHERE id = ?;
`, code, id)
		if err != nil {
			return fmt.Errorf("AssignCode update: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

func (s *RequestStore) ListRequestsSince(ctx context.Context, since time.Time) ([]store.AccessRequestRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, received_at_ms, first_name, last_name, email, phone, message,
       requested_code, assigned_code, active, notes
FROM access_requests
WHERE received_at_ms >= ?
ORDER BY received_at_ms, id;
`, since.UTC().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("ListRequestsSince query: %w", err)
	}
	defer rows.Close()

	var out []store.AccessRequestRecord
	for rows.Next() {
		var (
			rec        store.AccessRequestRecord
			receivedMs int64
			requested  int
		)
		if err := rows.Scan(
			&rec.ID, &receivedMs, &rec.FirstName, &rec.LastName, &rec.Email, &rec.Phone,
			&rec.Message, &requested, &rec.AssignedCode, &rec.Active, &rec.Notes,
		); err != nil {
			return nil, fmt.Errorf("ListRequestsSince scan: %w", err)
		}
		rec.ReceivedAt = time.UnixMilli(receivedMs).UTC()
		rec.RequestedCode = requested == 1
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListRequestsSince rows: %w", err)
	}
	return out, nil
}
