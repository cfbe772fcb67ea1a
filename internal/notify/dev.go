package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// DevMailer logs emails instead of sending them. Used in development and
// when the notify section is left unconfigured.
type DevMailer struct {
	logger *zerolog.Logger
}

func NewDevMailer(logger *zerolog.Logger) *DevMailer {
	return &DevMailer{logger: logger}
}

func (d *DevMailer) SendReservationUpdate(ctx context.Context, toEmail, subject, text, html string) error {
	d.logger.Info().
		Str("to", toEmail).
		Str("subject", subject).
		Str("text", text).
		Msg("dev mail")
	return nil
}
