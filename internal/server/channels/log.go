package channels

import (
	"context"

	"github.com/dmitrijs2005/studiosign/internal/logging"
)

// Log writes messages to the logger instead of delivering them. It exists
// for local development only since it logs the code itself.
type Log struct {
	log logging.Logger
}

func NewLog(log logging.Logger) *Log {
	return &Log{log: log.With("module", "channel.log")}
}

func (l *Log) Send(ctx context.Context, address, message string) error {
	l.log.Warn(ctx, "otp message (development channel)", "address", address, "message", message)
	return nil
}
