package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/ptulin/folio/server/internal/db"
)

// openTestDB returns an in-memory SQLite connection with the same PRAGMAs
// and schema as production. The connection is closed when the test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Shared cache keeps the database alive while the pool holds a conn.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := sql.Open("sqlite", db.DSN(fmt.Sprintf("file:test_%s?mode=memory&cache=shared", name)))
	if err != nil {
		t.Fatalf("openTestDB: sql.Open: %v", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: ping: %v", err)
	}

	if err := db.Migrate(context.Background(), conn); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: migrate: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a db.Worker backed by conn, closed with the test.
func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(func() { w.Close() })
	return w
}

// seedCode inserts a raw access_codes row, bypassing allocation.
func seedCode(t *testing.T, conn *sql.DB, code, email, active string) {
	t.Helper()

	_, err := conn.ExecContext(context.Background(), `
INSERT INTO access_codes(code, owner_email, owner_name, active, created_at_ms)
VALUES (?, ?, 'Seed', ?, 0);
`, code, email, active)
	if err != nil {
		t.Fatalf("seedCode(%s): %v", code, err)
	}
}
