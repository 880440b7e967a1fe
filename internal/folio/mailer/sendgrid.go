package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGrid delivers messages through the SendGrid v3 API.
type SendGrid struct {
	client  *sendgrid.Client
	from    *sgmail.Email
	sandbox bool
}

func NewSendGrid(apiKey, fromEmail, fromName string, sandbox bool) *SendGrid {
	return &SendGrid{
		client:  sendgrid.NewSendClient(apiKey),
		from:    sgmail.NewEmail(fromName, fromEmail),
		sandbox: sandbox,
	}
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	resp, err := s.client.SendWithContext(ctx, s.build(msg))
	if err != nil {
		return fmt.Errorf("sendgrid send %s: %w", msg.Kind, err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send %s: status %d: %s", msg.Kind, resp.StatusCode, resp.Body)
	}
	return nil
}

// build assembles a text-only v3 mail. NewSingleEmail always adds an HTML
// part, which the API rejects when empty.
func (s *SendGrid) build(msg Message) *sgmail.SGMailV3 {
	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.Subject = msg.Subject

	p := sgmail.NewPersonalization()
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.To))
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Body))

	m.TrackingSettings = &sgmail.TrackingSettings{
		ClickTracking: &sgmail.ClickTrackingSetting{Enable: boolPtr(false)},
	}
	if s.sandbox {
		ms := sgmail.NewMailSettings()
		ms.SetSandboxMode(sgmail.NewSetting(true))
		m.MailSettings = ms
	}
	return m
}

func boolPtr(b bool) *bool { return &b }
