package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptulin/folio/server/internal/folio/store"
	"github.com/ptulin/folio/server/internal/folio/store/memory"
)

func TestCodeStore_IssueCode_ConcurrentCallersGetUniqueCodes(t *testing.T) {
	cs := memory.NewCodeStore()
	ctx := context.Background()

	const n = 64
	var wg sync.WaitGroup
	codes := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := cs.IssueCode(ctx, store.CodeOwner{Email: "a@example.com", Name: "A B"})
			assert.NoError(t, err)
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, c := range codes {
		assert.False(t, seen[c], "duplicate code %s", c)
		seen[c] = true
	}
	assert.True(t, seen["PT-00001"])
	assert.True(t, seen["PT-00064"])
}

func TestCodeStore_IssueCode_ContinuesAfterSeededRows(t *testing.T) {
	cs := memory.NewCodeStore(
		store.AccessCodeRecord{Code: "PT-00007", Active: "TRUE"},
		store.AccessCodeRecord{Code: "manual entry", Active: "TRUE"},
	)

	rec, err := cs.IssueCode(context.Background(), store.CodeOwner{Email: "x@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "PT-00008", rec.Code)
	assert.Equal(t, "TRUE", rec.Active)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Nil(t, rec.LastUsedAt)
}

func TestCodeStore_FindByEmail_NormalizesCase(t *testing.T) {
	cs := memory.NewCodeStore(
		store.AccessCodeRecord{Code: "PT-00001", OwnerEmail: " Jane@Example.com ", Active: "TRUE"},
		store.AccessCodeRecord{Code: "PT-00002", OwnerEmail: "other@example.com", Active: "TRUE"},
	)

	rows, err := cs.FindByEmail(context.Background(), "jane@example.COM")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "PT-00001", rows[0].Code)
}

func TestCodeStore_FindByEmail_FoldsNonASCII(t *testing.T) {
	cs := memory.NewCodeStore(
		store.AccessCodeRecord{Code: "PT-00001", OwnerEmail: "JÖRG@Example.com", Active: "TRUE"},
		store.AccessCodeRecord{Code: "PT-00002", OwnerEmail: "", Active: "TRUE"},
	)

	rows, err := cs.FindByEmail(context.Background(), "jörg@example.com")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "PT-00001", rows[0].Code)

	rows, err = cs.FindByEmail(context.Background(), " ")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCodeStore_MarkUsed(t *testing.T) {
	cs := memory.NewCodeStore(store.AccessCodeRecord{Code: "PT-00001", Active: "TRUE"})
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, cs.MarkUsed(context.Background(), 1, at))
	rows := cs.Codes()
	require.NotNil(t, rows[0].LastUsedAt)
	assert.True(t, rows[0].LastUsedAt.Equal(at))

	assert.ErrorIs(t, cs.MarkUsed(context.Background(), 99, at), store.ErrNotFound)
}

func TestRequestStore_AssignAndList(t *testing.T) {
	rs := memory.NewRequestStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	oldID, err := rs.AppendRequest(ctx, store.AccessRequestRecord{ReceivedAt: base.Add(-48 * time.Hour)})
	require.NoError(t, err)
	newID, err := rs.AppendRequest(ctx, store.AccessRequestRecord{ReceivedAt: base, RequestedCode: true})
	require.NoError(t, err)
	assert.NotEqual(t, oldID, newID)

	require.NoError(t, rs.AssignCode(ctx, newID, "PT-00001"))
	assert.ErrorIs(t, rs.AssignCode(ctx, 42, "PT-00002"), store.ErrNotFound)

	rows, err := rs.ListRequestsSince(ctx, base.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "PT-00001", rows[0].AssignedCode)
}

func TestAccessEventStore_ListSinceIsInclusive(t *testing.T) {
	es := memory.NewAccessEventStore()
	ctx := context.Background()
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, es.RecordEvent(ctx, store.AccessEventRecord{OccurredAt: since.Add(-time.Millisecond)}))
	require.NoError(t, es.RecordEvent(ctx, store.AccessEventRecord{OccurredAt: since}))

	rows, err := es.ListEventsSince(ctx, since)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].ID)
}
