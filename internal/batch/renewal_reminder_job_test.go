package batch

import (
	"aquacare/internal/domain/customer"
	"aquacare/internal/event"
	"aquacare/internal/infrastructure/notify"
	"aquacare/internal/pkg/apperrors"
	"aquacare/internal/pkg/identity"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeStore serves per-owner lists; methods the job never calls panic via the nil embed.
type fakeStore struct {
	customer.Store
	owners    []string
	ownersErr error
	byOwner   map[string][]*customer.Customer

	mu      sync.Mutex
	windows []time.Duration
}

func (s *fakeStore) Owners(context.Context) ([]string, error) {
	return s.owners, s.ownersErr
}

func (s *fakeStore) ExpiringWithin(ctx context.Context, now time.Time, window time.Duration) ([]*customer.Customer, error) {
	s.mu.Lock()
	s.windows = append(s.windows, window)
	s.mu.Unlock()
	return customer.ExpiringWithin(s.byOwner[identity.OwnerFrom(ctx)], now, window), nil
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg notify.Message) (notify.Receipt, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(notify.Receipt), args.Error(1)
}

func mkCustomer(name, phone string, end time.Time) *customer.Customer {
	return &customer.Customer{
		ID:              uuid.New(),
		Name:            name,
		Phone:           phone,
		Model:           "Aqua Pro",
		ContractType:    customer.ContractFull,
		ContractEndDate: end,
	}
}

func TestRenewalReminderJob_Run(t *testing.T) {
	today := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	soon := mkCustomer("Asha", "+911111", today.AddDate(0, 0, 5))
	far := mkCustomer("Ravi", "2222", today.AddDate(0, 3, 0))
	gone := mkCustomer("Old", "3333", today.AddDate(0, 0, -1))
	bobs := mkCustomer("Bob", "4444", today.AddDate(0, 0, 20))

	store := &fakeStore{
		owners: []string{"alice", "bob"},
		byOwner: map[string][]*customer.Customer{
			"alice": {soon, far, gone},
			"bob":   {bobs},
		},
	}
	sender := new(MockSender)
	sender.On("Send", mock.Anything, notify.Message{To: "+911111", Body: ReminderBody(soon)}).
		Return(notify.Receipt{Channel: notify.ChannelWhatsApp, ID: "SM1"}, nil).Once()
	sender.On("Send", mock.Anything, notify.Message{To: "4444", Body: ReminderBody(bobs)}).
		Return(notify.Receipt{Channel: notify.ChannelSMS, ID: "SM2"}, nil).Once()

	job := NewRenewalReminderJob(store, sender, event.NewLogPublisher(logger), 30, logger)
	job.now = func() time.Time { return today.Add(9 * time.Hour) }

	require.NoError(t, job.Run(context.Background()))
	sender.AssertExpectations(t)
	sender.AssertNumberOfCalls(t, "Send", 2)
	assert.Equal(t, []time.Duration{30 * 24 * time.Hour, 30 * 24 * time.Hour}, store.windows)
}

func TestRenewalReminderJob_SendFailureIsCounted(t *testing.T) {
	today := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	c := mkCustomer("Asha", "1111", today.AddDate(0, 0, 2))
	store := &fakeStore{owners: []string{""}, byOwner: map[string][]*customer.Customer{"": {c}}}
	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).
		Return(notify.Receipt{Channel: notify.ChannelSMS}, errors.New("provider down")).Once()

	job := NewRenewalReminderJob(store, sender, event.NewLogPublisher(logger), 7, logger)
	job.now = func() time.Time { return today }

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 errors")
	assert.Equal(t, []time.Duration{7 * 24 * time.Hour}, store.windows)
}

func TestRenewalReminderJob_OwnersFailure(t *testing.T) {
	store := &fakeStore{ownersErr: apperrors.ErrDatabase}
	job := NewRenewalReminderJob(store, new(MockSender), event.NewLogPublisher(logger), 0, logger)

	err := job.Run(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
}

func TestRenewalReminderJob_NoOwners(t *testing.T) {
	sender := new(MockSender)
	job := NewRenewalReminderJob(&fakeStore{}, sender, event.NewLogPublisher(logger), 0, logger)

	assert.NoError(t, job.Run(context.Background()))
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestNewRenewalReminderJob_PanicsOnNilDeps(t *testing.T) {
	assert.Panics(t, func() { NewRenewalReminderJob(nil, nil, nil, 0, logger) })
}

func TestReminderBody(t *testing.T) {
	c := mkCustomer("Asha", "1", time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC))
	body := ReminderBody(c)
	assert.Contains(t, body, "Asha")
	assert.Contains(t, body, "Full Contract (1 Year)")
	assert.Contains(t, body, "06 Mar 2025")
}
