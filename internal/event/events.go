package event

import (
	"context"
	"time"
)

const (
	routingKeyCustomerCreated = "customer.created"
	routingKeyCustomerUpdated = "customer.updated"
	routingKeyCustomerDeleted = "customer.deleted"
	routingKeyVisitAdded      = "customer.visit.added"
	routingKeyRenewalReminder = "customer.renewal.reminded"
)

type EventPublisher interface {
	PublishCustomerCreated(ctx context.Context, event CustomerCreatedEvent) error
	PublishCustomerUpdated(ctx context.Context, event CustomerUpdatedEvent) error
	PublishCustomerDeleted(ctx context.Context, event CustomerDeletedEvent) error
	PublishVisitAdded(ctx context.Context, event VisitAddedEvent) error
	PublishRenewalReminded(ctx context.Context, event RenewalRemindedEvent) error
}

type CustomerEventPayload struct {
	CustomerID      string    `json:"customerId"`
	OwnerID         string    `json:"ownerId,omitempty"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	Model           string    `json:"model"`
	ContractType    string    `json:"contractType"`
	ContractEndDate string    `json:"contractEndDate"`
	VisitCount      int       `json:"visitCount"`
	CreatedAt       time.Time `json:"createdAt"`
}

type CustomerCreatedEvent struct {
	Timestamp time.Time            `json:"timestamp"`
	Payload   CustomerEventPayload `json:"payload"`
}

type CustomerUpdatedEvent struct {
	Timestamp time.Time            `json:"timestamp"`
	Payload   CustomerEventPayload `json:"payload"`
}

type CustomerDeletedEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	CustomerID string    `json:"customerId"`
	OwnerID    string    `json:"ownerId,omitempty"`
}

type VisitAddedEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	VisitID     string    `json:"visitId"`
	CustomerID  string    `json:"customerId"`
	OwnerID     string    `json:"ownerId,omitempty"`
	Date        string    `json:"date"`
	Description string    `json:"description"`
	TechName    string    `json:"techName"`
}

type RenewalRemindedEvent struct {
	Timestamp       time.Time `json:"timestamp"`
	CustomerID      string    `json:"customerId"`
	OwnerID         string    `json:"ownerId,omitempty"`
	Channel         string    `json:"channel"`
	ContractEndDate string    `json:"contractEndDate"`
}

func (p *RabbitMQEventPublisher) PublishCustomerCreated(ctx context.Context, event CustomerCreatedEvent) error {
	return p.publish(ctx, routingKeyCustomerCreated, event)
}

func (p *RabbitMQEventPublisher) PublishCustomerUpdated(ctx context.Context, event CustomerUpdatedEvent) error {
	return p.publish(ctx, routingKeyCustomerUpdated, event)
}

func (p *RabbitMQEventPublisher) PublishCustomerDeleted(ctx context.Context, event CustomerDeletedEvent) error {
	return p.publish(ctx, routingKeyCustomerDeleted, event)
}

func (p *RabbitMQEventPublisher) PublishVisitAdded(ctx context.Context, event VisitAddedEvent) error {
	return p.publish(ctx, routingKeyVisitAdded, event)
}

func (p *RabbitMQEventPublisher) PublishRenewalReminded(ctx context.Context, event RenewalRemindedEvent) error {
	return p.publish(ctx, routingKeyRenewalReminder, event)
}

var _ EventPublisher = (*RabbitMQEventPublisher)(nil)
