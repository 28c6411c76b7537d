package notify

import (
	"aquacare/internal/config"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeCreator struct {
	params []*twilioApi.CreateMessageParams
	err    error
}

func (f *fakeCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestChannelFor(t *testing.T) {
	assert.Equal(t, ChannelWhatsApp, ChannelFor("+919876543210"))
	assert.Equal(t, ChannelSMS, ChannelFor("9876543210"))
}

func TestTwilioSender_Send(t *testing.T) {
	cfg := config.TwilioConfig{From: "+15550001", WhatsAppFrom: "+15550002"}

	t.Run("whatsapp for E.164 numbers", func(t *testing.T) {
		api := &fakeCreator{}
		s := newTwilioSender(api, cfg, logger)

		receipt, err := s.Send(context.Background(), Message{To: "+919876543210", Body: "renew"})
		require.NoError(t, err)
		assert.Equal(t, Receipt{Channel: ChannelWhatsApp, ID: "SM123"}, receipt)
		require.Len(t, api.params, 1)
		assert.Equal(t, "whatsapp:+919876543210", *api.params[0].To)
		assert.Equal(t, "whatsapp:+15550002", *api.params[0].From)
		assert.Equal(t, "renew", *api.params[0].Body)
	})

	t.Run("sms for local numbers", func(t *testing.T) {
		api := &fakeCreator{}
		s := newTwilioSender(api, cfg, logger)

		receipt, err := s.Send(context.Background(), Message{To: "9876543210", Body: "renew"})
		require.NoError(t, err)
		assert.Equal(t, ChannelSMS, receipt.Channel)
		assert.Equal(t, "9876543210", *api.params[0].To)
		assert.Equal(t, "+15550001", *api.params[0].From)
	})

	t.Run("provider failure", func(t *testing.T) {
		api := &fakeCreator{err: errors.New("401 unauthorized")}
		s := newTwilioSender(api, cfg, logger)

		_, err := s.Send(context.Background(), Message{To: "9876543210", Body: "renew"})
		assert.ErrorContains(t, err, "twilio sms send failed")
	})

	t.Run("no sms number configured", func(t *testing.T) {
		api := &fakeCreator{}
		s := newTwilioSender(api, config.TwilioConfig{WhatsAppFrom: "+15550002"}, logger)

		_, err := s.Send(context.Background(), Message{To: "9876543210", Body: "renew"})
		assert.Error(t, err)
		assert.Empty(t, api.params)
	})
}

func TestNewTwilioSender_RequiresCredentials(t *testing.T) {
	_, err := NewTwilioSender(config.TwilioConfig{}, logger)
	assert.Error(t, err)

	s, err := NewTwilioSender(config.TwilioConfig{AccountSID: "AC1", AuthToken: "t", From: "+1555"}, logger)
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestLogSender(t *testing.T) {
	receipt, err := NewLogSender(logger).Send(context.Background(), Message{To: "1", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, ChannelLog, receipt.Channel)
}
