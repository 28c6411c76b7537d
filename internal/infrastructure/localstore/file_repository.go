// Package localstore keeps the whole customer collection in one JSON file,
// the "local storage" strategy. It is single-tenant: owner identity is ignored.
package localstore

import (
	"aquacare/internal/domain/customer"
	"aquacare/internal/pkg/apperrors"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// DefaultKey names the slot when none is configured.
const DefaultKey = "sai-aqua-customers"

type fileRepository struct {
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	data []*customer.Customer
}

var _ customer.Repository = (*fileRepository)(nil)

// NewFileRepository opens the slot <dir>/<key>.json, reading it once. Absent or
// malformed content starts an empty collection.
func NewFileRepository(dir, key string, logger *slog.Logger) (customer.Repository, error) {
	if key == "" {
		key = DefaultKey
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.WrapStorageError(err, "failed to create local storage directory")
	}

	r := &fileRepository{
		path:   filepath.Join(dir, key+".json"),
		logger: logger.With(slog.String("component", "localstore"), slog.String("slot", key)),
	}
	r.data = r.read()
	r.logger.Info("Local storage slot opened", slog.String("path", r.path), slog.Int("customers", len(r.data)))
	return r, nil
}

func (r *fileRepository) read() []*customer.Customer {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("Failed to read local storage slot, starting empty", slog.Any("error", err))
		}
		return []*customer.Customer{}
	}

	var list []*customer.Customer
	if err := json.Unmarshal(raw, &list); err != nil {
		r.logger.Warn("Local storage slot holds malformed data, starting empty", slog.Any("error", err))
		return []*customer.Customer{}
	}

	out := make([]*customer.Customer, 0, len(list))
	for _, c := range list {
		if c == nil {
			continue
		}
		if c.ServiceVisits == nil {
			c.ServiceVisits = []customer.ServiceVisit{}
		}
		c.ContractAmount = customer.RoundAmount(c.ContractAmount)
		out = append(out, c)
	}
	return out
}

// writeLocked rewrites the slot in full; r.mu must be held.
func (r *fileRepository) writeLocked(next []*customer.Customer) error {
	raw, err := json.Marshal(next)
	if err != nil {
		return apperrors.WrapStorageError(err, "failed to encode customers")
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return apperrors.WrapStorageError(err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return apperrors.WrapStorageError(err, "failed to write temp file")
	}
	if err := tmp.Close(); err != nil {
		return apperrors.WrapStorageError(err, "failed to close temp file")
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return apperrors.WrapStorageError(err, "failed to replace local storage slot")
	}

	r.data = next
	return nil
}

func (r *fileRepository) LoadAll(ctx context.Context) ([]*customer.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return customer.CloneAll(r.data), nil
}

func (r *fileRepository) Insert(ctx context.Context, c *customer.Customer) error {
	if c == nil {
		return customer.ErrNilCustomer
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]*customer.Customer, 0, len(r.data)+1)
	next = append(next, c.Clone())
	next = append(next, r.data...)
	if err := r.writeLocked(next); err != nil {
		r.logger.ErrorContext(ctx, "Failed to persist new customer", slog.Any("error", err))
		return err
	}
	return nil
}

func (r *fileRepository) Update(ctx context.Context, c *customer.Customer) error {
	if c == nil {
		return customer.ErrNilCustomer
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexLocked(c.ID)
	if idx < 0 {
		return fmt.Errorf("update %s: %w", c.ID, customer.ErrNotFound)
	}

	next := make([]*customer.Customer, len(r.data))
	copy(next, r.data)
	updated := c.Clone()
	updated.ServiceVisits = r.data[idx].Clone().ServiceVisits
	next[idx] = updated
	return r.writeLocked(next)
}

// Delete of an absent id succeeds without touching the slot.
func (r *fileRepository) Delete(ctx context.Context, customerID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexLocked(customerID)
	if idx < 0 {
		r.logger.DebugContext(ctx, "Delete of absent customer ignored", slog.String("customerID", customerID.String()))
		return nil
	}

	next := make([]*customer.Customer, 0, len(r.data)-1)
	next = append(next, r.data[:idx]...)
	next = append(next, r.data[idx+1:]...)
	return r.writeLocked(next)
}

func (r *fileRepository) InsertVisit(ctx context.Context, v *customer.ServiceVisit) error {
	if v == nil {
		return fmt.Errorf("%w: visit cannot be nil", apperrors.ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexLocked(v.CustomerID)
	if idx < 0 {
		return fmt.Errorf("add visit to %s: %w", v.CustomerID, customer.ErrNotFound)
	}

	next := make([]*customer.Customer, len(r.data))
	copy(next, r.data)
	withVisit := r.data[idx].Clone()
	withVisit.ServiceVisits = append(withVisit.ServiceVisits, *v)
	next[idx] = withVisit
	return r.writeLocked(next)
}

func (r *fileRepository) Owners(context.Context) ([]string, error) {
	return []string{""}, nil
}

// SingleTenant reports that every owner reads the same slot.
func (r *fileRepository) SingleTenant() bool { return true }

func (r *fileRepository) indexLocked(id uuid.UUID) int {
	for i, c := range r.data {
		if c.ID == id {
			return i
		}
	}
	return -1
}
