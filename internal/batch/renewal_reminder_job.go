package batch

import (
	"aquacare/internal/domain/customer"
	"aquacare/internal/event"
	"aquacare/internal/infrastructure/monitoring"
	"aquacare/internal/infrastructure/notify"
	"aquacare/internal/pkg/identity"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const defaultReminderWindow = customer.ExpiringSoonWindow

// RenewalReminderJob messages every customer whose contract ends within the
// window, once per run, for every owner with stored data.
type RenewalReminderJob struct {
	store     customer.Store
	sender    notify.Sender
	publisher event.EventPublisher
	window    time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

func NewRenewalReminderJob(
	store customer.Store,
	sender notify.Sender,
	publisher event.EventPublisher,
	windowDays int,
	logger *slog.Logger,
) *RenewalReminderJob {
	if store == nil || sender == nil || publisher == nil || logger == nil {
		panic("RenewalReminderJob dependencies cannot be nil")
	}
	window := defaultReminderWindow
	if windowDays > 0 {
		window = time.Duration(windowDays) * 24 * time.Hour
	}
	return &RenewalReminderJob{
		store:     store,
		sender:    sender,
		publisher: publisher,
		window:    window,
		now:       time.Now,
		logger:    logger.With("job", "RenewalReminder"),
	}
}

func ReminderBody(c *customer.Customer) string {
	return fmt.Sprintf("Dear %s, your %s for the %s purifier ends on %s. Reply or call us to renew and keep your water safe.",
		c.Name, c.ContractType.LongLabel(), c.Model, c.ContractEndDate.Format("02 Jan 2006"))
}

func (j *RenewalReminderJob) Run(ctx context.Context) error {
	startTime := time.Now()
	today := customer.TruncateDate(j.now().UTC())
	j.logger.InfoContext(ctx, "Starting renewal reminder job.", slog.Time("today", today), slog.Duration("window", j.window))

	owners, err := j.store.Owners(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to list owners, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to list owners: %w", err)
	}
	if len(owners) == 0 {
		j.logger.InfoContext(ctx, "No owners with stored customers.")
		return nil
	}

	var wg sync.WaitGroup
	var sentCount, errorCount, dueCount atomic.Int32

	for _, owner := range owners {
		wg.Add(1)
		go func(owner string) {
			defer wg.Done()

			ownerCtx := identity.WithOwner(ctx, owner)
			logCtx := j.logger.With(slog.String("owner", owner))

			due, err := j.store.ExpiringWithin(ownerCtx, today, j.window)
			if err != nil {
				logCtx.ErrorContext(ctx, "Failed to load expiring customers", slog.Any("error", err))
				errorCount.Add(1)
				return
			}
			dueCount.Add(int32(len(due)))

			for _, c := range due {
				if err := ctx.Err(); err != nil {
					logCtx.WarnContext(ctx, "Job context finished before all reminders were sent", slog.Any("error", err))
					errorCount.Add(1)
					return
				}
				if j.remind(ownerCtx, logCtx, c) {
					sentCount.Add(1)
				} else {
					errorCount.Add(1)
				}
			}
		}(owner)
	}

	wg.Wait()
	summaryLog := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("owners", len(owners)),
		slog.Int("customers_due", int(dueCount.Load())),
		slog.Int("reminders_sent", int(sentCount.Load())),
		slog.Int("errors_encountered", int(errorCount.Load())),
	)
	if n := errorCount.Load(); n > 0 {
		summaryLog.WarnContext(ctx, "Renewal reminder job finished with errors.")
		return fmt.Errorf("job completed with %d errors", n)
	}
	summaryLog.InfoContext(ctx, "Renewal reminder job finished successfully.")
	return nil
}

func (j *RenewalReminderJob) remind(ctx context.Context, logCtx *slog.Logger, c *customer.Customer) bool {
	logCtx = logCtx.With(slog.String("customerID", c.ID.String()))

	receipt, err := j.sender.Send(ctx, notify.Message{To: c.Phone, Body: ReminderBody(c)})
	monitoring.RecordReminder(receipt.Channel, err)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to send renewal reminder", slog.Any("error", err))
		return false
	}

	if pubErr := j.publisher.PublishRenewalReminded(ctx, event.RenewalRemindedEvent{
		Timestamp:       time.Now(),
		CustomerID:      c.ID.String(),
		OwnerID:         identity.OwnerFrom(ctx),
		Channel:         receipt.Channel,
		ContractEndDate: c.ContractEndDate.Format(customer.DateLayout),
	}); pubErr != nil {
		logCtx.ErrorContext(ctx, "Reminder sent, but FAILED to publish event", slog.Any("error", pubErr))
	}

	logCtx.InfoContext(ctx, "Renewal reminder sent", slog.String("channel", receipt.Channel))
	return true
}
