package customer

import (
	"aquacare/internal/pkg/apperrors"
	"context"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound = fmt.Errorf("customer %w", apperrors.ErrNotFound)

	ErrNilCustomer = fmt.Errorf("%w: customer cannot be nil", apperrors.ErrInvalidArgument)
)

// Repository is a persistence strategy for the customer collection. Every
// method is scoped to the owner carried in ctx (see package identity);
// strategies that are single-tenant ignore it.
type Repository interface {
	// LoadAll returns the whole collection newest-first with visits attached
	// in insertion order.
	LoadAll(ctx context.Context) ([]*Customer, error)

	Insert(ctx context.Context, customer *Customer) error

	// Update replaces the stored fields of customer; visits are untouched.
	Update(ctx context.Context, customer *Customer) error

	// Delete removes the customer and its visits. Whether an unknown id is an
	// error is up to the strategy.
	Delete(ctx context.Context, customerID uuid.UUID) error

	InsertVisit(ctx context.Context, visit *ServiceVisit) error

	// Owners lists every owner id with stored data.
	Owners(ctx context.Context) ([]string, error)
}

// SingleTenant is implemented by strategies that hold one collection for
// every owner. The store then keeps a single snapshot shared by all owners.
type SingleTenant interface {
	SingleTenant() bool
}

func requiredField(field string) error {
	return apperrors.NewValidationError(field, field+" is required")
}

func invalidField(field, message string) error {
	return apperrors.NewValidationError(field, message)
}
