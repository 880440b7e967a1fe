package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptulin/folio/server/internal/folio/mailer"
	"github.com/ptulin/folio/server/internal/folio/service"
	"github.com/ptulin/folio/server/internal/folio/store"
	"github.com/ptulin/folio/server/internal/folio/types"
	"github.com/ptulin/folio/server/internal/logging"
)

// ═══════════════════════════════════════════════════════════════════════════
// RequestAccess
// ═══════════════════════════════════════════════════════════════════════════

func TestRequestAccess_WithCode_IssuesAndEmails(t *testing.T) {
	f := newFixture()

	res, err := f.svc.RequestAccess(context.Background(), types.RequestAccessInput{
		FirstName:     "Jane",
		LastName:      "Doe",
		Email:         "jane@example.com",
		Message:       "hello",
		RequestedCode: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "PT-00001", res.AssignedCode)

	reqs := f.requests.Requests()
	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].RequestedCode)
	assert.Equal(t, "PT-00001", reqs[0].AssignedCode)
	assert.Equal(t, "TRUE", reqs[0].Active)
	assert.True(t, reqs[0].ReceivedAt.Equal(fixedNow))

	codes := f.codes.Codes()
	require.Len(t, codes, 1)
	assert.Equal(t, "Jane Doe", codes[0].OwnerName)
	assert.Equal(t, "jane@example.com", codes[0].OwnerEmail)
	assert.Nil(t, codes[0].LastUsedAt)

	sent := f.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, mailer.KindAccessCode, sent[0].Kind)
	assert.Contains(t, sent[0].Body, "PT-00001")
	assert.Contains(t, sent[0].Body, "Hello Jane,")
}

func TestRequestAccess_WithoutCode_Acknowledges(t *testing.T) {
	f := newFixture()

	res, err := f.svc.RequestAccess(context.Background(), types.RequestAccessInput{
		FirstName: "Sam",
		Email:     "sam@example.com",
	})
	require.NoError(t, err)
	assert.Empty(t, res.AssignedCode)

	require.Len(t, f.requests.Requests(), 1)
	assert.Empty(t, f.requests.Requests()[0].AssignedCode)
	assert.Empty(t, f.codes.Codes())

	sent := f.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, mailer.KindAcknowledgement, sent[0].Kind)
}

func TestRequestAccess_EmailFailureIsSwallowed(t *testing.T) {
	f := newFixture()
	f.mail.Err = errors.New("quota exceeded")

	res, err := f.svc.RequestAccess(context.Background(), types.RequestAccessInput{
		Email:         "jane@example.com",
		RequestedCode: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "PT-00001", res.AssignedCode)
	assert.Len(t, f.codes.Codes(), 1)
}

func TestRequestAccess_Sequential(t *testing.T) {
	f := newFixture(store.AccessCodeRecord{Code: "PT-00041", Active: "TRUE"})

	for _, want := range []string{"PT-00042", "PT-00043"} {
		res, err := f.svc.RequestAccess(context.Background(), types.RequestAccessInput{
			Email:         "x@example.com",
			RequestedCode: true,
		})
		require.NoError(t, err)
		assert.Equal(t, want, res.AssignedCode)
	}
}

func TestRequestAccess_ConcurrentRequestsGetDistinctCodes(t *testing.T) {
	f := newFixture()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RequestAccess(context.Background(), types.RequestAccessInput{
				Email:         "x@example.com",
				RequestedCode: true,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, r := range f.requests.Requests() {
		assert.False(t, seen[r.AssignedCode], "duplicate %s", r.AssignedCode)
		seen[r.AssignedCode] = true
	}
	assert.Len(t, seen, n)
}

func TestRequestAccess_RejectsOversizedField(t *testing.T) {
	f := newFixture()

	_, err := f.svc.RequestAccess(context.Background(), types.RequestAccessInput{
		FirstName: strings.Repeat("a", 201),
	})
	require.ErrorIs(t, err, service.ErrInvalidInput)
	assert.Contains(t, err.Error(), "FirstName")
	assert.Empty(t, f.requests.Requests())
}

// ═══════════════════════════════════════════════════════════════════════════
// VerifyPassword
// ═══════════════════════════════════════════════════════════════════════════

func TestVerifyPassword_ActiveCode(t *testing.T) {
	f := newFixture(store.AccessCodeRecord{Code: "PT-00001", Active: "TRUE"})

	ok, err := f.svc.VerifyPassword(context.Background(), types.VerifyPasswordInput{
		Password: "  PT-00001 ",
		Email:    "jane@example.com",
	})
	require.NoError(t, err)
	assert.True(t, ok)

	codes := f.codes.Codes()
	require.NotNil(t, codes[0].LastUsedAt)
	assert.True(t, codes[0].LastUsedAt.Equal(fixedNow))

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, types.ResultSuccess, events[0].Result)
	assert.Equal(t, "PT-00001", events[0].Code)
	assert.Equal(t, "jane@example.com", events[0].Email)
}

func TestVerifyPassword_InactiveAndUnknownLookTheSame(t *testing.T) {
	f := newFixture(store.AccessCodeRecord{Code: "PT-00001", Active: "FALSE"})
	ctx := context.Background()

	revoked, err := f.svc.VerifyPassword(ctx, types.VerifyPasswordInput{Password: "PT-00001"})
	require.NoError(t, err)
	unknown, err := f.svc.VerifyPassword(ctx, types.VerifyPasswordInput{Password: "PT-99999"})
	require.NoError(t, err)

	assert.False(t, revoked)
	assert.False(t, unknown)
	assert.Nil(t, f.codes.Codes()[0].LastUsedAt)

	events := f.events.Events()
	require.Len(t, events, 2)
	assert.Equal(t, types.ResultFailed, events[0].Result)
	assert.Equal(t, types.ResultFailed, events[1].Result)
}

func TestVerifyPassword_FirstActiveRowWins(t *testing.T) {
	f := newFixture(
		store.AccessCodeRecord{Code: "PT-00005", Active: "no"},
		store.AccessCodeRecord{Code: "PT-00005", Active: "yes"},
	)

	ok, err := f.svc.VerifyPassword(context.Background(), types.VerifyPasswordInput{Password: "PT-00005"})
	require.NoError(t, err)
	assert.True(t, ok)

	codes := f.codes.Codes()
	assert.Nil(t, codes[0].LastUsedAt)
	assert.NotNil(t, codes[1].LastUsedAt)
}

func TestVerifyPassword_EmptyCandidateFails(t *testing.T) {
	f := newFixture(store.AccessCodeRecord{Code: "", Active: "TRUE"})

	ok, err := f.svc.VerifyPassword(context.Background(), types.VerifyPasswordInput{Password: "   "})
	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, f.events.Events(), 1)
	assert.Equal(t, types.ResultFailed, f.events.Events()[0].Result)
}

func TestVerifyPassword_AuditFailureDoesNotChangeAnswer(t *testing.T) {
	f := newFixture(store.AccessCodeRecord{Code: "PT-00001", Active: "TRUE"})
	st := f.stores()
	st.Events = failingEvents{}
	svc := service.NewAccessService(st, f.mail, mailer.Composer{}, logging.Discard(), nil)

	ok, err := svc.VerifyPassword(context.Background(), types.VerifyPasswordInput{Password: "PT-00001"})
	require.NoError(t, err)
	assert.True(t, ok)
}

// ═══════════════════════════════════════════════════════════════════════════
// LogAccess
// ═══════════════════════════════════════════════════════════════════════════

func TestLogAccess_RecordsSuccess(t *testing.T) {
	f := newFixture()

	err := f.svc.LogAccess(context.Background(), types.LogAccessInput{
		Code:      "PT-00003",
		Email:     "a@example.com",
		IP:        "198.51.100.4",
		UserAgent: "curl/8",
	})
	require.NoError(t, err)

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, types.ResultSuccess, events[0].Result)
	assert.Equal(t, "PT-00003", events[0].Code)
	assert.Equal(t, "198.51.100.4", events[0].IP)
	assert.Equal(t, "curl/8", events[0].UserAgent)
}

func TestLogAccess_StoreErrorIsReturned(t *testing.T) {
	f := newFixture()
	st := f.stores()
	st.Events = failingEvents{}
	svc := service.NewAccessService(st, f.mail, mailer.Composer{}, logging.Discard(), nil)

	err := svc.LogAccess(context.Background(), types.LogAccessInput{Code: "PT-00001"})
	assert.ErrorIs(t, err, errStoreDown)
}

// ═══════════════════════════════════════════════════════════════════════════
// ForgotPassword
// ═══════════════════════════════════════════════════════════════════════════

func TestForgotPassword_Found(t *testing.T) {
	f := newFixture(store.AccessCodeRecord{
		Code:       "PT-00002",
		OwnerEmail: " Jane@Example.com",
		OwnerName:  "Jane Q Doe",
		Active:     "TRUE",
	})

	msg, err := f.svc.ForgotPassword(context.Background(), types.ForgotPasswordInput{Email: "JANE@example.com "})
	require.NoError(t, err)
	assert.Equal(t, service.ForgotPasswordMessage, msg)

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, types.ResultForgotPasswordSuccess, events[0].Result)
	assert.Equal(t, "jane@example.com", events[0].Email)
	assert.Empty(t, events[0].Code)

	sent := f.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "jane@example.com", sent[0].To)
	assert.Contains(t, sent[0].Body, "Hello Jane,")
	assert.Contains(t, sent[0].Body, "PT-00002")
}

func TestForgotPassword_NotFoundLooksIdentical(t *testing.T) {
	f := newFixture(store.AccessCodeRecord{Code: "PT-00001", OwnerEmail: "jane@example.com", Active: "FALSE"})

	msg, err := f.svc.ForgotPassword(context.Background(), types.ForgotPasswordInput{Email: "jane@example.com"})
	require.NoError(t, err)
	assert.Equal(t, service.ForgotPasswordMessage, msg)

	require.Len(t, f.events.Events(), 1)
	assert.Equal(t, types.ResultForgotPasswordNotFound, f.events.Events()[0].Result)
	assert.Empty(t, f.mail.Sent())
}

func TestForgotPassword_EmptyEmail(t *testing.T) {
	f := newFixture()

	_, err := f.svc.ForgotPassword(context.Background(), types.ForgotPasswordInput{Email: "   "})
	assert.ErrorIs(t, err, service.ErrEmailRequired)
	assert.Empty(t, f.events.Events())
}

func TestForgotPassword_BlankOwnerNameFallsBackToUser(t *testing.T) {
	f := newFixture(store.AccessCodeRecord{Code: "PT-00001", OwnerEmail: "a@example.com", Active: "1"})

	_, err := f.svc.ForgotPassword(context.Background(), types.ForgotPasswordInput{Email: "a@example.com"})
	require.NoError(t, err)
	require.Len(t, f.mail.Sent(), 1)
	assert.Contains(t, f.mail.Sent()[0].Body, "Hello User,")
}

func TestFirstName(t *testing.T) {
	assert.Equal(t, "Jane", service.FirstName("Jane Doe"))
	assert.Equal(t, "Jane", service.FirstName("  Jane  "))
	assert.Equal(t, "User", service.FirstName(""))
	assert.Equal(t, "User", service.FirstName("   "))
}
