package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Log writes messages to the logger instead of sending them. It is used in
// dev when no SendGrid key is configured.
type Log struct {
	Logger logrus.FieldLogger
}

func (l Log) Send(_ context.Context, msg Message) error {
	l.Logger.WithFields(logrus.Fields{
		"kind":    msg.Kind,
		"to":      msg.To,
		"subject": msg.Subject,
	}).Infof("Email not sent (log mailer):\n%s", msg.Body)
	return nil
}
