package customer

import (
	"aquacare/internal/event"
	"aquacare/internal/infrastructure/monitoring"
	"aquacare/internal/pkg/apperrors"
	"aquacare/internal/pkg/identity"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	inputValidationPassed = "Input validation passed"
	customerNotFound      = "Customer not found in snapshot"
)

// Change kinds broadcast to snapshot watchers.
const (
	ChangeCustomerCreated = "customer.created"
	ChangeCustomerUpdated = "customer.updated"
	ChangeCustomerDeleted = "customer.deleted"
	ChangeVisitAdded      = "visit.added"
	ChangeRefreshed       = "snapshot.refreshed"
)

// Snapshot is a point-in-time deep copy of one owner's collection.
type Snapshot struct {
	Customers   []*Customer
	Loading     bool
	RefreshedAt time.Time
}

type Change struct {
	Kind       string    `json:"kind"`
	CustomerID uuid.UUID `json:"customerId,omitempty"`
	Customers  int       `json:"customers"`
	At         time.Time `json:"at"`
}

// ChangeNotifier is told whenever an owner's snapshot is replaced.
type ChangeNotifier interface {
	NotifySnapshotChanged(ownerID string, change Change)
}

// Store is the single source of truth for the customer collection.
type Store interface {
	List(ctx context.Context) (Snapshot, error)
	Get(ctx context.Context, customerID uuid.UUID) (*Customer, error)
	CreateCustomer(ctx context.Context, in CreateCustomerInput) (*Customer, error)
	UpdateCustomer(ctx context.Context, customerID uuid.UUID, patch CustomerPatch) (*Customer, error)
	DeleteCustomer(ctx context.Context, customerID uuid.UUID) error
	AddServiceVisit(ctx context.Context, customerID uuid.UUID, in AddVisitInput) (*ServiceVisit, error)
	Refresh(ctx context.Context) (Snapshot, error)
	ExpiringSoon(ctx context.Context, now time.Time) ([]*Customer, error)
	ExpiringWithin(ctx context.Context, now time.Time, window time.Duration) ([]*Customer, error)
	Expired(ctx context.Context, now time.Time) ([]*Customer, error)
	Stats(ctx context.Context, now time.Time) (Stats, error)
	Owners(ctx context.Context) ([]string, error)
}

var _ Store = (*store)(nil)

type ownerState struct {
	customers   []*Customer
	loaded      bool
	refreshedAt time.Time
	inflight    int

	// issued counts loads started; applied is the ticket of the load whose
	// result is in customers. A load older than applied is discarded.
	issued  uint64
	applied uint64
}

func (st *ownerState) snapshot() Snapshot {
	return Snapshot{
		Customers:   CloneAll(st.customers),
		Loading:     st.inflight > 0,
		RefreshedAt: st.refreshedAt,
	}
}

type store struct {
	repo     Repository
	pub      event.EventPublisher
	notifier ChangeNotifier
	logger   *slog.Logger

	// shared is set when the repository keeps one collection for every
	// owner; all owners then share one snapshot.
	shared bool

	mu     sync.Mutex
	owners map[string]*ownerState
}

func NewStore(repo Repository, eventPublisher event.EventPublisher, notifier ChangeNotifier, logger *slog.Logger) Store {
	if repo == nil {
		panic("customer repository cannot be nil")
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewStore, using default stderr handler")
	}

	if eventPublisher == nil {
		logger.Warn("Warning: No event publisher provided to NewStore, events will only be logged")
		eventPublisher = event.NewLogPublisher(logger)
	}

	shared := false
	if st, ok := repo.(SingleTenant); ok {
		shared = st.SingleTenant()
	}

	return &store{
		repo:     repo,
		pub:      eventPublisher,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "customerStore")),
		shared:   shared,
		owners:   make(map[string]*ownerState),
	}
}

func NewCustomerEventPayload(cust *Customer) event.CustomerEventPayload {
	if cust == nil {
		return event.CustomerEventPayload{}
	}
	return event.CustomerEventPayload{
		CustomerID:      cust.ID.String(),
		OwnerID:         cust.OwnerID,
		Name:            cust.Name,
		Phone:           cust.Phone,
		Model:           cust.Model,
		ContractType:    cust.ContractType.String(),
		ContractEndDate: cust.ContractEndDate.Format(DateLayout),
		VisitCount:      len(cust.ServiceVisits),
		CreatedAt:       cust.CreatedAt,
	}
}

// snapshotKey names the snapshot ctx reads from.
func (s *store) snapshotKey(ctx context.Context) string {
	if s.shared {
		return ""
	}
	return identity.OwnerFrom(ctx)
}

// stateLocked returns the state for key; s.mu must be held.
func (s *store) stateLocked(key string) *ownerState {
	st, ok := s.owners[key]
	if !ok {
		st = &ownerState{}
		s.owners[key] = st
	}
	return st
}

func (s *store) Refresh(ctx context.Context) (Snapshot, error) {
	owner := identity.OwnerFrom(ctx)
	key := s.snapshotKey(ctx)
	logger := s.logger.With(slog.String("owner", owner))
	logger.InfoContext(ctx, "Re-fetching customer collection from repository")

	s.mu.Lock()
	st := s.stateLocked(key)
	st.inflight++
	st.issued++
	ticket := st.issued
	s.mu.Unlock()

	start := time.Now()
	customers, err := s.repo.LoadAll(ctx)
	monitoring.RecordRefresh(owner, len(customers), time.Since(start), err)

	s.mu.Lock()
	defer s.mu.Unlock()
	st.inflight--

	if err != nil {
		logger.ErrorContext(ctx, "Repository failed to load customers, keeping last known snapshot", slog.Any("error", err))
		return Snapshot{}, fmt.Errorf("failed to load customers: %w", err)
	}
	if ticket < st.applied {
		logger.DebugContext(ctx, "Discarding load overtaken by a newer one",
			slog.Uint64("ticket", ticket), slog.Uint64("applied", st.applied))
		return st.snapshot(), nil
	}
	if customers == nil {
		customers = []*Customer{}
	}

	st.customers = customers
	st.loaded = true
	st.applied = ticket
	st.refreshedAt = time.Now().UTC()

	logger.InfoContext(ctx, "Snapshot replaced", slog.Int("count", len(customers)))
	return st.snapshot(), nil
}

func (s *store) List(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	st := s.stateLocked(s.snapshotKey(ctx))
	if st.loaded {
		snap := st.snapshot()
		s.mu.Unlock()
		return snap, nil
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "No snapshot yet for owner, loading", slog.String("owner", identity.OwnerFrom(ctx)))
	return s.Refresh(ctx)
}

func (s *store) Get(ctx context.Context, customerID uuid.UUID) (*Customer, error) {
	snap, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	c := find(snap.Customers, customerID)
	if c == nil {
		s.logger.WarnContext(ctx, customerNotFound, slog.String("customerID", customerID.String()))
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *store) CreateCustomer(ctx context.Context, in CreateCustomerInput) (*Customer, error) {
	owner := identity.OwnerFrom(ctx)
	logger := s.logger.With(slog.String("owner", owner))
	logger.InfoContext(ctx, "Attempting to create new customer")

	cust, err := NewCustomer(in, owner)
	if err != nil {
		logger.WarnContext(ctx, "Validation failed for new customer", slog.Any("error", err))
		return nil, err
	}
	logger = logger.With(slog.String("customerID", cust.ID.String()))
	logger.InfoContext(ctx, inputValidationPassed)

	logger.InfoContext(ctx, "Calling repository Insert")
	err = s.repo.Insert(ctx, cust)
	monitoring.RecordStoreOperation("create_customer", err)
	if err != nil {
		logger.ErrorContext(ctx, "Repository failed to insert new customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save new customer: %w", err)
	}

	created := s.afterMutation(ctx, ChangeCustomerCreated, cust.ID, cust)

	if pubErr := s.pub.PublishCustomerCreated(ctx, event.CustomerCreatedEvent{
		Timestamp: time.Now(),
		Payload:   NewCustomerEventPayload(created),
	}); pubErr != nil {
		logger.ErrorContext(ctx, "Customer created, but FAILED to publish creation event", slog.Any("error", pubErr))
	}

	logger.InfoContext(ctx, "Successfully created new customer")
	return created, nil
}

func (s *store) UpdateCustomer(ctx context.Context, customerID uuid.UUID, patch CustomerPatch) (*Customer, error) {
	logger := s.logger.With(slog.String("customerID", customerID.String()))
	logger.InfoContext(ctx, "Attempting to update customer")

	current, err := s.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}

	updated, err := current.Apply(patch)
	if err != nil {
		logger.WarnContext(ctx, "Validation failed for customer update", slog.Any("error", err))
		return nil, err
	}
	logger.InfoContext(ctx, inputValidationPassed)

	logger.InfoContext(ctx, "Calling repository Update")
	err = s.repo.Update(ctx, updated)
	monitoring.RecordStoreOperation("update_customer", err)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.WarnContext(ctx, "Customer disappeared before update completed")
			return nil, ErrNotFound
		}
		logger.ErrorContext(ctx, "Repository failed to update customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to update customer %s: %w", customerID, err)
	}

	result := s.afterMutation(ctx, ChangeCustomerUpdated, customerID, updated)

	if pubErr := s.pub.PublishCustomerUpdated(ctx, event.CustomerUpdatedEvent{
		Timestamp: time.Now(),
		Payload:   NewCustomerEventPayload(result),
	}); pubErr != nil {
		logger.ErrorContext(ctx, "Customer updated, but FAILED to publish update event", slog.Any("error", pubErr))
	}

	logger.InfoContext(ctx, "Successfully updated customer")
	return result, nil
}

func (s *store) DeleteCustomer(ctx context.Context, customerID uuid.UUID) error {
	owner := identity.OwnerFrom(ctx)
	logger := s.logger.With(slog.String("customerID", customerID.String()), slog.String("owner", owner))
	logger.InfoContext(ctx, "Attempting to delete customer")

	logger.InfoContext(ctx, "Calling repository Delete")
	err := s.repo.Delete(ctx, customerID)
	monitoring.RecordStoreOperation("delete_customer", err)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.WarnContext(ctx, "Repository reported customer not found for delete")
			return ErrNotFound
		}
		logger.ErrorContext(ctx, "Repository failed to delete customer", slog.Any("error", err))
		return fmt.Errorf("failed to delete customer %s: %w", customerID, err)
	}

	s.afterMutation(ctx, ChangeCustomerDeleted, customerID, nil)

	if pubErr := s.pub.PublishCustomerDeleted(ctx, event.CustomerDeletedEvent{
		Timestamp:  time.Now(),
		CustomerID: customerID.String(),
		OwnerID:    owner,
	}); pubErr != nil {
		logger.ErrorContext(ctx, "Customer deleted, but FAILED to publish deletion event", slog.Any("error", pubErr))
	}

	logger.InfoContext(ctx, "Successfully deleted customer")
	return nil
}

func (s *store) AddServiceVisit(ctx context.Context, customerID uuid.UUID, in AddVisitInput) (*ServiceVisit, error) {
	owner := identity.OwnerFrom(ctx)
	logger := s.logger.With(slog.String("customerID", customerID.String()), slog.String("owner", owner))
	logger.InfoContext(ctx, "Attempting to add service visit")

	visit, err := NewServiceVisit(customerID, in)
	if err != nil {
		logger.WarnContext(ctx, "Validation failed for service visit", slog.Any("error", err))
		return nil, err
	}
	logger.InfoContext(ctx, inputValidationPassed)

	if _, err := s.Get(ctx, customerID); err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Calling repository InsertVisit", slog.String("visitID", visit.ID.String()))
	err = s.repo.InsertVisit(ctx, visit)
	monitoring.RecordStoreOperation("add_visit", err)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.WarnContext(ctx, "Customer disappeared before visit was stored")
			return nil, ErrNotFound
		}
		logger.ErrorContext(ctx, "Repository failed to insert service visit", slog.Any("error", err))
		return nil, fmt.Errorf("failed to add visit to customer %s: %w", customerID, err)
	}
	monitoring.RecordVisitAdded()

	s.afterMutation(ctx, ChangeVisitAdded, customerID, nil)

	if pubErr := s.pub.PublishVisitAdded(ctx, event.VisitAddedEvent{
		Timestamp:   time.Now(),
		VisitID:     visit.ID.String(),
		CustomerID:  customerID.String(),
		OwnerID:     owner,
		Date:        visit.Date.Format(DateLayout),
		Description: visit.Description,
		TechName:    visit.TechName,
	}); pubErr != nil {
		logger.ErrorContext(ctx, "Visit added, but FAILED to publish event", slog.Any("error", pubErr))
	}

	logger.InfoContext(ctx, "Successfully added service visit")
	out := *visit
	return &out, nil
}

// afterMutation re-fetches the collection, tells watchers, and returns the
// stored copy of customerID (or fallback when the re-fetch failed).
func (s *store) afterMutation(ctx context.Context, kind string, customerID uuid.UUID, fallback *Customer) *Customer {
	owner := identity.OwnerFrom(ctx)

	snap, err := s.Refresh(ctx)
	if err != nil {
		// The write went through; force the next read to re-fetch.
		s.mu.Lock()
		s.stateLocked(s.snapshotKey(ctx)).loaded = false
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "Mutation persisted but snapshot refresh failed", slog.String("kind", kind), slog.Any("error", err))
		return fallback.Clone()
	}

	if s.notifier != nil {
		s.notifier.NotifySnapshotChanged(owner, Change{
			Kind:       kind,
			CustomerID: customerID,
			Customers:  len(snap.Customers),
			At:         snap.RefreshedAt,
		})
	}

	if c := find(snap.Customers, customerID); c != nil {
		return c
	}
	return fallback.Clone()
}

func (s *store) ExpiringSoon(ctx context.Context, now time.Time) ([]*Customer, error) {
	return s.ExpiringWithin(ctx, now, ExpiringSoonWindow)
}

func (s *store) ExpiringWithin(ctx context.Context, now time.Time, window time.Duration) ([]*Customer, error) {
	snap, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return ExpiringWithin(snap.Customers, now, window), nil
}

func (s *store) Expired(ctx context.Context, now time.Time) ([]*Customer, error) {
	snap, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return Expired(snap.Customers, now), nil
}

func (s *store) Stats(ctx context.Context, now time.Time) (Stats, error) {
	snap, err := s.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(snap.Customers, now), nil
}

func (s *store) Owners(ctx context.Context) ([]string, error) {
	owners, err := s.repo.Owners(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to list owners", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	return owners, nil
}

func find(list []*Customer, id uuid.UUID) *Customer {
	for _, c := range list {
		if c.ID == id {
			return c
		}
	}
	return nil
}
