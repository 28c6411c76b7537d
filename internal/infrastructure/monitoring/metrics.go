package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type StoreMetrics struct {
	OperationsTotal  *prometheus.CounterVec
	RefreshDuration  *prometheus.HistogramVec
	SnapshotSize     *prometheus.GaugeVec
	VisitsAddedTotal prometheus.Counter
}

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type ReminderMetrics struct {
	SentTotal   *prometheus.CounterVec
	FailedTotal *prometheus.CounterVec
}

var (
	Store = StoreMetrics{
		OperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aquacare_store_operations_total",
				Help: "Customer store operations by kind and outcome.",
			},
			[]string{"operation", "status"},
		),
		RefreshDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aquacare_store_refresh_duration_seconds",
				Help:    "Time spent re-fetching the customer collection.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"status"},
		),
		SnapshotSize: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aquacare_snapshot_customers",
				Help: "Number of customers in the latest snapshot per owner.",
			},
			[]string{"owner"},
		),
		VisitsAddedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "aquacare_service_visits_added_total",
				Help: "Total number of service visits recorded.",
			},
		),
	}

	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aquacare_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Reminders = ReminderMetrics{
		SentTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aquacare_renewal_reminders_sent_total",
				Help: "Renewal reminders delivered, by channel.",
			},
			[]string{"channel"},
		),
		FailedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aquacare_renewal_reminders_failed_total",
				Help: "Renewal reminders that could not be delivered, by channel.",
			},
			[]string{"channel"},
		),
	}
)

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func RecordStoreOperation(operation string, err error) {
	Store.OperationsTotal.WithLabelValues(operation, statusLabel(err)).Inc()
}

func RecordRefresh(owner string, size int, duration time.Duration, err error) {
	Store.RefreshDuration.WithLabelValues(statusLabel(err)).Observe(duration.Seconds())
	if err == nil {
		Store.SnapshotSize.WithLabelValues(owner).Set(float64(size))
	}
}

func RecordVisitAdded() {
	Store.VisitsAddedTotal.Inc()
}

func RecordDBQuery(queryName string, err error, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, statusLabel(err)).Observe(duration.Seconds())
}

func RecordReminder(channel string, err error) {
	if err != nil {
		Reminders.FailedTotal.WithLabelValues(channel).Inc()
		return
	}
	Reminders.SentTotal.WithLabelValues(channel).Inc()
}
