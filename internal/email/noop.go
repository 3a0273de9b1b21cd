package email

import (
	"context"

	"go.uber.org/zap"
)

// NoopSender logs mail to zap instead of delivering it. Used in development
// and wherever SMTP is left unconfigured — signup and password reset still
// work, the operator just reads the links out of the log.
type NoopSender struct {
	logger *zap.Logger
}

// NewNoopSender creates a NoopSender backed by the given logger.
func NewNoopSender(logger *zap.Logger) *NoopSender {
	return &NoopSender{logger: logger}
}

// Send logs the message and returns nil.
func (n *NoopSender) Send(_ context.Context, to, subject, body string) error {
	n.logger.Info("email not sent (no SMTP configured)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
