package notify

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogNotifier writes messages to the log instead of sending them. Used in dev mode and when mail is disabled.
type LogNotifier struct{}

// NewLogNotifier returns a LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Send implements Notifier.
func (LogNotifier) Send(ctx context.Context, to string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck
	}

	log.Info().Str("to", to).Str("subject", msg.Subject).Str("body", msg.Body).Msg("mail not sent, log notifier")

	return nil
}
