package notify

import (
	"aquacare/internal/config"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// messageCreator is the slice of the Twilio REST API the sender uses.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type TwilioSender struct {
	api          messageCreator
	from         string
	whatsAppFrom string
	logger       *slog.Logger
}

var _ Sender = (*TwilioSender)(nil)

func NewTwilioSender(cfg config.TwilioConfig, logger *slog.Logger) (*TwilioSender, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("twilio account SID and auth token are required")
	}
	if cfg.From == "" && cfg.WhatsAppFrom == "" {
		return nil, errors.New("twilio needs at least one sender number")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newTwilioSender(client.Api, cfg, logger), nil
}

func newTwilioSender(api messageCreator, cfg config.TwilioConfig, logger *slog.Logger) *TwilioSender {
	return &TwilioSender{
		api:          api,
		from:         cfg.From,
		whatsAppFrom: cfg.WhatsAppFrom,
		logger:       logger.With("component", "TwilioSender"),
	}
}

func (s *TwilioSender) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	channel := ChannelFor(msg.To)
	if channel == ChannelWhatsApp && s.whatsAppFrom == "" {
		channel = ChannelSMS
	}

	to := strings.TrimSpace(msg.To)
	params := &twilioApi.CreateMessageParams{}
	params.SetBody(msg.Body)
	if channel == ChannelWhatsApp {
		params.SetTo("whatsapp:" + to)
		params.SetFrom("whatsapp:" + s.whatsAppFrom)
	} else {
		if s.from == "" {
			return Receipt{Channel: channel}, fmt.Errorf("no SMS sender number configured for %s", to)
		}
		params.SetTo(to)
		params.SetFrom(s.from)
	}

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to send reminder", slog.String("to", to), slog.String("channel", channel), slog.Any("error", err))
		return Receipt{Channel: channel}, fmt.Errorf("twilio %s send failed: %w", channel, err)
	}

	receipt := Receipt{Channel: channel}
	if resp != nil && resp.Sid != nil {
		receipt.ID = *resp.Sid
	}
	s.logger.InfoContext(ctx, "Reminder sent", slog.String("to", to), slog.String("channel", channel), slog.String("sid", receipt.ID))
	return receipt, nil
}
