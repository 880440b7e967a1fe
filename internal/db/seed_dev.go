package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type SeedDevOptions struct {
	// OwnerEmail receives the demo code. Defaults to dev@localhost.
	OwnerEmail string
}

// SeedDev inserts a demo access code (PT-00001) when the code table is empty
// so a fresh dev database can be exercised from the browser right away.
// Returns true when a row was inserted.
func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) (bool, error) {
	email := strings.TrimSpace(opt.OwnerEmail)
	if email == "" {
		email = "dev@localhost"
	}
	now := time.Now().UTC().UnixMilli()

	res, err := db.ExecContext(ctx, `
INSERT INTO access_codes(code, owner_email, owner_name, active, created_at_ms)
SELECT 'PT-00001', ?, 'Dev Visitor', 'TRUE', ?
WHERE NOT EXISTS (SELECT 1 FROM access_codes);
`, email, now)
	if err != nil {
		return false, fmt.Errorf("seed access code: %w", err)
	}

	n, _ := res.RowsAffected()
	return n > 0, nil
}
