package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ptulin/folio/server/internal/folio/mailer"
	"github.com/ptulin/folio/server/internal/folio/store"
	"github.com/ptulin/folio/server/internal/folio/types"
	"github.com/ptulin/folio/server/internal/metrics"
)

// ReportWindow is how far back the daily report looks.
const ReportWindow = 24 * time.Hour

type AccessStats struct {
	Total          int
	Successful     int
	Failed         int
	ForgotFound    int
	ForgotNotFound int
}

type RequestStats struct {
	Total            int
	CodeRequests     int
	GeneralInquiries int
}

// Report is one daily activity summary. GeneratedAt is in the report's
// time zone.
type Report struct {
	GeneratedAt time.Time
	Access      AccessStats
	Requests    RequestStats
}

func TallyEvents(events []store.AccessEventRecord) AccessStats {
	var st AccessStats
	for _, ev := range events {
		st.Total++
		switch ev.Result {
		case types.ResultSuccess:
			st.Successful++
		case types.ResultFailed:
			st.Failed++
		case types.ResultForgotPasswordSuccess:
			st.ForgotFound++
		case types.ResultForgotPasswordNotFound:
			st.ForgotNotFound++
		}
	}
	return st
}

func TallyRequests(reqs []store.AccessRequestRecord) RequestStats {
	var st RequestStats
	for _, r := range reqs {
		st.Total++
		if r.RequestedCode {
			st.CodeRequests++
		} else {
			st.GeneralInquiries++
		}
	}
	return st
}

func (r Report) Subject() string {
	return "Portfolio Daily Report - " + r.GeneratedAt.Format("2006-01-02")
}

func (r Report) Text() string {
	var b strings.Builder
	b.WriteString("Daily Portfolio Activity Report\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))

	b.WriteString("ACCESS LOGS (Last 24 Hours):\n")
	fmt.Fprintf(&b, "- Total Access Attempts: %d\n", r.Access.Total)
	fmt.Fprintf(&b, "- Successful: %d\n", r.Access.Successful)
	fmt.Fprintf(&b, "- Failed: %d\n", r.Access.Failed)
	fmt.Fprintf(&b, "- Forgot Password (sent): %d\n", r.Access.ForgotFound)
	fmt.Fprintf(&b, "- Forgot Password (no match): %d\n", r.Access.ForgotNotFound)
	b.WriteString("(Total includes forgot-password lookups, so it can exceed Successful + Failed.)\n\n")

	b.WriteString("CONTACT REQUESTS (Last 24 Hours):\n")
	fmt.Fprintf(&b, "- Total Requests: %d\n", r.Requests.Total)
	fmt.Fprintf(&b, "- Password Requests: %d\n", r.Requests.CodeRequests)
	fmt.Fprintf(&b, "- General Inquiries: %d\n\n", r.Requests.GeneralInquiries)

	b.WriteString("---\nThis is an automated report from your portfolio website.")
	return b.String()
}

type ReportService struct {
	stores     store.Stores
	mail       mailer.Mailer
	adminEmail string
	loc        *time.Location
	log        logrus.FieldLogger
	metrics    *metrics.Metrics

	Now func() time.Time
}

func NewReportService(
	st store.Stores,
	m mailer.Mailer,
	adminEmail string,
	loc *time.Location,
	log logrus.FieldLogger,
	mt *metrics.Metrics,
) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{
		stores:     st,
		mail:       m,
		adminEmail: strings.TrimSpace(adminEmail),
		loc:        loc,
		log:        log,
		metrics:    mt,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

// Build tallies events and requests in [now-24h, now].
func (s *ReportService) Build(ctx context.Context) (Report, error) {
	now := s.Now()
	since := now.Add(-ReportWindow)

	events, err := s.stores.Events.ListEventsSince(ctx, since)
	if err != nil {
		return Report{}, fmt.Errorf("list events: %w", err)
	}
	reqs, err := s.stores.Requests.ListRequestsSince(ctx, since)
	if err != nil {
		return Report{}, fmt.Errorf("list requests: %w", err)
	}

	return Report{
		GeneratedAt: now.In(s.loc),
		Access:      TallyEvents(within(events, now, func(e store.AccessEventRecord) time.Time { return e.OccurredAt })),
		Requests:    TallyRequests(within(reqs, now, func(r store.AccessRequestRecord) time.Time { return r.ReceivedAt })),
	}, nil
}

// within drops rows stamped after now, which a clock skew between writers
// could produce.
func within[T any](rows []T, now time.Time, at func(T) time.Time) []T {
	out := rows[:0:0]
	for _, r := range rows {
		if !at(r).After(now) {
			out = append(out, r)
		}
	}
	return out
}

// Send builds the report and emails it to the admin address. Send errors are
// returned for the caller to log; nothing is retried.
func (s *ReportService) Send(ctx context.Context) error {
	if s.adminEmail == "" {
		s.log.Warn("Daily report skipped: no admin email configured")
		return nil
	}

	r, err := s.Build(ctx)
	if err != nil {
		s.metrics.ReportSent(err)
		return err
	}

	err = s.mail.Send(ctx, mailer.Message{
		Kind:    mailer.KindDailyReport,
		To:      s.adminEmail,
		Subject: r.Subject(),
		Body:    r.Text(),
	})
	s.metrics.EmailSent(string(mailer.KindDailyReport), err)
	s.metrics.ReportSent(err)
	if err != nil {
		return fmt.Errorf("send daily report: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"events":   r.Access.Total,
		"requests": r.Requests.Total,
	}).Info("Daily report sent")
	return nil
}
