// Package worker contains the background consumers run by cmd/code-dispatcher.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"homeexpense/internal/amqp"
	"homeexpense/internal/log"
	"homeexpense/internal/otp"
)

// Gateway hands a text message to a phone network.
type Gateway interface {
	SendSMS(ctx context.Context, mobile, text string) error
}

// LogGateway stands in for a real SMS provider and only logs the delivery.
type LogGateway struct {
	Logger *log.Logger
}

func (g LogGateway) SendSMS(ctx context.Context, mobile, _ string) error {
	g.Logger.InfoContext(ctx, "SMS handed to gateway", log.FieldAccount, otp.MaskMobile(mobile))
	return nil
}

// CodeDispatcher turns code delivery messages into SMS.
type CodeDispatcher struct {
	gateway Gateway
	now     func() time.Time
	logger  *log.Logger

	sent    atomic.Int64
	dropped atomic.Int64
}

func NewCodeDispatcher(gateway Gateway, logger *log.Logger) *CodeDispatcher {
	if logger == nil {
		logger = log.Nop()
	}
	return &CodeDispatcher{
		gateway: gateway,
		now:     time.Now,
		logger:  logger.WithComponent(log.ComponentDispatch),
	}
}

// Text is the SMS body for a code.
func Text(code string, expiresAt time.Time, now time.Time) string {
	minutes := int(expiresAt.Sub(now).Round(time.Minute).Minutes())
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("Your Home Expense verification code is %s. It expires in %d minute(s).", code, minutes)
}

// Handle sends one message. Expired codes are acknowledged and dropped.
func (d *CodeDispatcher) Handle(ctx context.Context, msg *amqp.CodeDeliveryMessage) error {
	now := d.now()
	if msg.Expired(now) {
		d.dropped.Add(1)
		d.logger.WarnContext(ctx, "Dropping expired code", log.FieldAccount, otp.MaskMobile(msg.Mobile))
		return nil
	}

	if err := d.gateway.SendSMS(ctx, msg.Mobile, Text(msg.Code, msg.ExpiresAt, now)); err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	d.sent.Add(1)
	return nil
}

// Stats returns how many codes were sent and dropped.
func (d *CodeDispatcher) Stats() (sent, dropped int64) {
	return d.sent.Load(), d.dropped.Load()
}
