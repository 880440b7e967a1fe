package sqlite

import (
	"database/sql"

	dbpkg "github.com/ptulin/folio/server/internal/db"
	"github.com/ptulin/folio/server/internal/folio/store"
)

// New returns the three sqlite-backed tables sharing one connection and one
// writer.
func New(db *sql.DB, writer *dbpkg.Worker) store.Stores {
	return store.Stores{
		Requests: NewRequestStore(db, writer),
		Codes:    NewCodeStore(db, writer),
		Events:   NewAccessEventStore(db, writer),
	}
}
