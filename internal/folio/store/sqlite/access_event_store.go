package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/ptulin/folio/server/internal/db"
	"github.com/ptulin/folio/server/internal/folio/store"
	"github.com/ptulin/folio/server/internal/folio/types"
)

type AccessEventStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAccessEventStore(db *sql.DB, writer *dbpkg.Worker) *AccessEventStore {
	return &AccessEventStore{db: db, writer: writer}
}

func (s *AccessEventStore) RecordEvent(ctx context.Context, rec store.AccessEventRecord) error {
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}
	occurredMs := rec.OccurredAt.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO access_events(
  occurred_at_ms, code, email, result, ip, user_agent
) VALUES (?, ?, ?, ?, ?, ?);
`,
			occurredMs, strings.TrimSpace(rec.Code), strings.TrimSpace(rec.Email),
			string(rec.Result), strings.TrimSpace(rec.IP), rec.UserAgent,
		); err != nil {
			return fmt.Errorf("RecordEvent insert: %w", err)
		}
		return nil
	})
}

// ListEventsSince uses idx_access_events_time for the range scan.
func (s *AccessEventStore) ListEventsSince(ctx context.Context, since time.Time) ([]store.AccessEventRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, occurred_at_ms, code, email, result, ip, user_agent
FROM access_events
WHERE occurred_at_ms >= ?
ORDER BY occurred_at_ms, id;
`, since.UTC().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("ListEventsSince query: %w", err)
	}
	defer rows.Close()

	var out []store.AccessEventRecord
	for rows.Next() {
		var (
			rec        store.AccessEventRecord
			occurredMs int64
			result     string
		)
		if err := rows.Scan(&rec.ID, &occurredMs, &rec.Code, &rec.Email, &result, &rec.IP, &rec.UserAgent); err != nil {
			return nil, fmt.Errorf("ListEventsSince scan: %w", err)
		}
		rec.OccurredAt = time.UnixMilli(occurredMs).UTC()
		rec.Result = types.EventResult(result)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListEventsSince rows: %w", err)
	}
	return out, nil
}
