package service_test

import (
	"context"
	"errors"
	"time"

	"github.com/ptulin/folio/server/internal/folio/mailer"
	"github.com/ptulin/folio/server/internal/folio/service"
	"github.com/ptulin/folio/server/internal/folio/store"
	"github.com/ptulin/folio/server/internal/folio/store/memory"
	"github.com/ptulin/folio/server/internal/logging"
)

var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *service.AccessService
	requests *memory.RequestStore
	codes    *memory.CodeStore
	events   *memory.AccessEventStore
	mail     *mailer.Recorder
}

func newFixture(seed ...store.AccessCodeRecord) *fixture {
	f := &fixture{
		requests: memory.NewRequestStore(),
		codes:    memory.NewCodeStore(seed...),
		events:   memory.NewAccessEventStore(),
		mail:     &mailer.Recorder{},
	}
	f.svc = service.NewAccessService(
		f.stores(),
		f.mail,
		mailer.Composer{ResumeURL: "https://example.com/resume", SenderName: "Pawel"},
		logging.Discard(),
		nil,
	)
	f.svc.Now = func() time.Time { return fixedNow }
	return f
}

func (f *fixture) stores() store.Stores {
	return store.Stores{Requests: f.requests, Codes: f.codes, Events: f.events}
}

var errStoreDown = errors.New("store down")

// failingEvents rejects every write.
type failingEvents struct{}

func (failingEvents) RecordEvent(context.Context, store.AccessEventRecord) error {
	return errStoreDown
}

func (failingEvents) ListEventsSince(context.Context, time.Time) ([]store.AccessEventRecord, error) {
	return nil, errStoreDown
}
