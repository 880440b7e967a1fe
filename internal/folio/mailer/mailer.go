// Package mailer sends the plain-text emails of the access flow: access
// codes, acknowledgements and the daily report.
package mailer

import (
	"context"
	"fmt"
	"strings"
)

// Kind labels a message for logs and metrics.
type Kind string

const (
	KindAccessCode      Kind = "access_code"
	KindAcknowledgement Kind = "acknowledgement"
	KindDailyReport     Kind = "daily_report"
)

// Message is one plain-text email.
type Message struct {
	Kind    Kind
	To      string
	ToName  string
	Subject string
	Body    string
}

// Mailer delivers a single message. Implementations must be safe for
// concurrent use.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Composer renders the visitor-facing templates.
type Composer struct {
	ResumeURL  string
	SenderName string
}

// AccessCode is sent when a visitor requests a code and again when they ask
// for it to be resent.
func (c Composer) AccessCode(to, firstName, code string) Message {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour personal access code for the resume is:\n%s\n\nUse it here:\n%s\n\nBest,\n%s",
		greetingName(firstName), code, c.ResumeURL, c.signature(),
	)
	return Message{
		Kind:    KindAccessCode,
		To:      to,
		ToName:  firstName,
		Subject: "Your Resume Access Code - " + c.signature(),
		Body:    body,
	}
}

// Acknowledgement confirms a contact message that did not ask for a code.
func (c Composer) Acknowledgement(to, firstName string) Message {
	body := fmt.Sprintf(
		"Hello %s,\n\nThanks for reaching out. Your message has been received.\n\nBest,\n%s",
		greetingName(firstName), c.signature(),
	)
	return Message{
		Kind:    KindAcknowledgement,
		To:      to,
		ToName:  firstName,
		Subject: "Thank You for Reaching Out",
		Body:    body,
	}
}

func (c Composer) signature() string {
	if s := strings.TrimSpace(c.SenderName); s != "" {
		return s
	}
	return "Portfolio"
}

func greetingName(first string) string {
	if first = strings.TrimSpace(first); first != "" {
		return first
	}
	return "there"
}
