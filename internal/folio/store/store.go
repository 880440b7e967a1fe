package store

import "errors"

// ErrNotFound is returned when an update targets a row id that does not exist.
var ErrNotFound = errors.New("row not found")

// Stores bundles the three tables of the row store.
type Stores struct {
	Requests RequestStore
	Codes    CodeStore
	Events   AccessEventStore
}
