// Package notify delivers contract renewal reminders to customers.
package notify

import (
	"context"
	"log/slog"
	"strings"
)

const (
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
	ChannelLog      = "log"
)

type Message struct {
	To   string
	Body string
}

type Receipt struct {
	Channel string
	ID      string
}

type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// ChannelFor picks WhatsApp for E.164 numbers and SMS for everything else.
func ChannelFor(phone string) string {
	if strings.HasPrefix(strings.TrimSpace(phone), "+") {
		return ChannelWhatsApp
	}
	return ChannelSMS
}

// LogSender only logs reminders; used when no provider is configured.
type LogSender struct {
	logger *slog.Logger
}

var _ Sender = (*LogSender)(nil)

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "LogSender")}
}

func (s *LogSender) Send(ctx context.Context, msg Message) (Receipt, error) {
	s.logger.InfoContext(ctx, "Reminder not delivered, no provider configured",
		slog.String("to", msg.To), slog.String("body", msg.Body))
	return Receipt{Channel: ChannelLog}, nil
}
