package event

import (
	"context"
	"log/slog"
)

// LogPublisher records events in the log only; used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With("component", "LogPublisher")}
}

func (p *LogPublisher) log(ctx context.Context, routingKey string, event any) error {
	p.logger.DebugContext(ctx, "Event not sent to a broker", slog.String("routingKey", routingKey), slog.Any("event", event))
	return nil
}

func (p *LogPublisher) PublishCustomerCreated(ctx context.Context, event CustomerCreatedEvent) error {
	return p.log(ctx, routingKeyCustomerCreated, event)
}

func (p *LogPublisher) PublishCustomerUpdated(ctx context.Context, event CustomerUpdatedEvent) error {
	return p.log(ctx, routingKeyCustomerUpdated, event)
}

func (p *LogPublisher) PublishCustomerDeleted(ctx context.Context, event CustomerDeletedEvent) error {
	return p.log(ctx, routingKeyCustomerDeleted, event)
}

func (p *LogPublisher) PublishVisitAdded(ctx context.Context, event VisitAddedEvent) error {
	return p.log(ctx, routingKeyVisitAdded, event)
}

func (p *LogPublisher) PublishRenewalReminded(ctx context.Context, event RenewalRemindedEvent) error {
	return p.log(ctx, routingKeyRenewalReminder, event)
}

var _ EventPublisher = (*LogPublisher)(nil)
