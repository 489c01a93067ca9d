package mail

import (
	"context"

	"go.uber.org/zap"
)

// ConsoleSender writes messages to the logger instead of delivering them.
type ConsoleSender struct {
	log         *zap.Logger
	defaultFrom string
}

func NewConsoleSender(log *zap.Logger, defaultFrom string) *ConsoleSender {
	return &ConsoleSender{log: log, defaultFrom: defaultFrom}
}

func (c *ConsoleSender) Send(_ context.Context, msg Message) error {
	msg, err := withDefaults(msg, c.defaultFrom)
	if err != nil {
		return err
	}
	c.log.Info("mail",
		zap.String("from", msg.From),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}
