package memory

import "github.com/ptulin/folio/server/internal/folio/store"

// New returns an empty in-memory row store.
func New() store.Stores {
	return store.Stores{
		Requests: NewRequestStore(),
		Codes:    NewCodeStore(),
		Events:   NewAccessEventStore(),
	}
}
