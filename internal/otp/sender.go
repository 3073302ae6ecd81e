package otp

import (
	"context"
	"time"

	"homeexpense/internal/log"
)

// Sender delivers a code to the owner of a mobile number.
type Sender interface {
	Send(ctx context.Context, c Code, expiresAt time.Time) error
}

// DemoSender delivers nothing. In demo mode the code is shown on the verify page instead.
type DemoSender struct {
	Logger *log.Logger
}

func (d DemoSender) Send(ctx context.Context, c Code, expiresAt time.Time) error {
	if d.Logger != nil {
		d.Logger.DebugContext(ctx, "Code delivery simulated",
			log.FieldAccount, MaskMobile(c.Mobile),
			"expires_at", expiresAt.Format(time.RFC3339))
	}
	return nil
}

// MaskMobile keeps only the last three digits for log lines.
func MaskMobile(m string) string {
	r := []rune(m)
	if len(r) <= 3 {
		return "***"
	}
	return "***" + string(r[len(r)-3:])
}
