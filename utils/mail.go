package utils

import (
	"context"

	"github.com/sirupsen/logrus"
)

// MailSender delivers notification mail. Delivery is an external concern;
// handlers treat it as best effort.
type MailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogMailSender logs the mail instead of sending it. Stands in until a real
// delivery service is configured.
type LogMailSender struct {
	Logger *logrus.Logger
}

func (s *LogMailSender) Send(ctx context.Context, to, subject, body string) error {
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"field":   "mail",
			"to":      to,
			"subject": subject,
		}).Info("mail suppressed: no delivery service configured")
	}
	return nil
}
