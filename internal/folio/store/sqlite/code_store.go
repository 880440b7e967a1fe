package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/ptulin/folio/server/internal/db"
	"github.com/ptulin/folio/server/internal/folio/accesscode"
	"github.com/ptulin/folio/server/internal/folio/store"
)

type CodeStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewCodeStore(db *sql.DB, writer *dbpkg.Worker) *CodeStore {
	return &CodeStore{db: db, writer: writer}
}

// IssueCode reads every existing code and inserts the next one inside a
// single worker transaction. The worker runs one transaction at a time, so
// two requests can never compute the same number; the UNIQUE index on code
// backs that up.
func (s *CodeStore) IssueCode(ctx context.Context, owner store.CodeOwner) (store.AccessCodeRecord, error) {
	if owner.CreatedAt.IsZero() {
		owner.CreatedAt = time.Now().UTC()
	}
	rec := store.AccessCodeRecord{
		OwnerEmail: strings.TrimSpace(owner.Email),
		OwnerName:  strings.TrimSpace(owner.Name),
		Active:     accesscode.ActiveFlag,
		CreatedAt:  owner.CreatedAt.UTC(),
	}

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		existing, err := allCodes(ctx, tx)
		if err != nil {
			return err
		}
		rec.Code = accesscode.Next(existing)

		res, err := tx.ExecContext(ctx, `
INSERT INTO access_codes(code, owner_email, owner_name, active, created_at_ms)
VALUES (?, ?, ?, ?, ?);
`, rec.Code, rec.OwnerEmail, rec.OwnerName, rec.Active, rec.CreatedAt.UnixMilli())
		if err != nil {
			return fmt.Errorf("IssueCode insert %s: %w", rec.Code, err)
		}
		rec.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("IssueCode last id: %w", err)
		}
		return nil
	})
	if err != nil {
		return store.AccessCodeRecord{}, err
	}
	return rec, nil
}

func allCodes(ctx context.Context, tx *sql.Tx) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT code FROM access_codes;`)
	if err != nil {
		return nil, fmt.Errorf("IssueCode scan codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("IssueCode scan code: %w", err)
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

func (s *CodeStore) FindByCode(ctx context.Context, code string) ([]store.AccessCodeRecord, error) {
	return s.query(ctx, "FindByCode", `trim(code) = ?`, strings.TrimSpace(code))
}

// FindByEmail folds case in Go. SQLite's lower() only folds ASCII, so a
// non-ASCII address would miss rows the memory store matches.
func (s *CodeStore) FindByEmail(ctx context.Context, email string) ([]store.AccessCodeRecord, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}

	rows, err := s.query(ctx, "FindByEmail", `owner_email <> ''`)
	if err != nil {
		return nil, err
	}
	var out []store.AccessCodeRecord
	for _, r := range rows {
		if strings.ToLower(strings.TrimSpace(r.OwnerEmail)) == email {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *CodeStore) query(ctx context.Context, op, where string, args ...any) ([]store.AccessCodeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, code, owner_email, owner_name, active, created_at_ms, last_used_at_ms
FROM access_codes
WHERE `+where+`
ORDER BY id;
`, args...)
	if err != nil {
		return nil, fmt.Errorf("%s query: %w", op, err)
	}
	defer rows.Close()

	var out []store.AccessCodeRecord
	for rows.Next() {
		var (
			rec       store.AccessCodeRecord
			createdMs int64
			usedMs    sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.Code, &rec.OwnerEmail, &rec.OwnerName, &rec.Active, &createdMs, &usedMs); err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		rec.CreatedAt = time.UnixMilli(createdMs).UTC()
		if usedMs.Valid {
			t := time.UnixMilli(usedMs.Int64).UTC()
			rec.LastUsedAt = &t
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", op, err)
	}
	return out, nil
}

func (s *CodeStore) MarkUsed(ctx context.Context, id int64, t time.Time) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE access_codes SET last_used_at_ms = ? WHERE id = ?;
`, t.UTC().UnixMilli(), id)
		if err != nil {
			return fmt.Errorf("MarkUsed update: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}
