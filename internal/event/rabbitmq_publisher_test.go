package event

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	declared   []string
	published  []amqp.Publishing
	keys       []string
	publishErr error
	closed     int
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.declared = append(f.declared, name+":"+kind)
	return nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed++
	return nil
}

func newTestPublisher(t *testing.T, ch *fakeChannel) *RabbitMQEventPublisher {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	pub, err := newRabbitMQEventPublisher(func() (publishChannel, error) { return ch, nil }, "aquacare", logger)
	require.NoError(t, err)
	return pub
}

func TestNewRabbitMQEventPublisher(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	t.Run("declares topic exchange", func(t *testing.T) {
		ch := &fakeChannel{}
		newTestPublisher(t, ch)
		assert.Equal(t, []string{"aquacare:topic"}, ch.declared)
		assert.Equal(t, 1, ch.closed)
	})

	t.Run("rejects empty exchange", func(t *testing.T) {
		_, err := newRabbitMQEventPublisher(func() (publishChannel, error) { return &fakeChannel{}, nil }, "", logger)
		assert.Error(t, err)
	})

	t.Run("fails when channel cannot be opened", func(t *testing.T) {
		_, err := newRabbitMQEventPublisher(func() (publishChannel, error) { return nil, errors.New("conn closed") }, "aquacare", logger)
		assert.ErrorContains(t, err, "failed to open temporary channel")
	})

	t.Run("rejects nil connection", func(t *testing.T) {
		_, err := NewRabbitMQEventPublisher(nil, "aquacare", logger)
		assert.Error(t, err)
	})
}

func TestPublishVisitAdded(t *testing.T) {
	ch := &fakeChannel{}
	pub := newTestPublisher(t, ch)

	evt := VisitAddedEvent{
		Timestamp:   time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
		VisitID:     "v-1",
		CustomerID:  "c-1",
		Date:        "2026-10-17",
		Description: "Filter change",
		TechName:    "Ramesh",
	}
	require.NoError(t, pub.PublishVisitAdded(context.Background(), evt))

	require.Len(t, ch.published, 1)
	assert.Equal(t, routingKeyVisitAdded, ch.keys[0])
	assert.Equal(t, "application/json", ch.published[0].ContentType)
	assert.Equal(t, publisherAppID, ch.published[0].AppId)

	var decoded VisitAddedEvent
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &decoded))
	assert.Equal(t, evt, decoded)
}

func TestPublishFailure(t *testing.T) {
	ch := &fakeChannel{}
	pub := newTestPublisher(t, ch)
	ch.publishErr = errors.New("broker down")

	err := pub.PublishCustomerDeleted(context.Background(), CustomerDeletedEvent{CustomerID: "c-1"})
	assert.ErrorContains(t, err, "failed to publish message")
}
