package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics счетчики бота. Регистрируются через promauto при создании.
type Metrics struct {
	UpdatesTotal          *prometheus.CounterVec
	UpdateProcessingTime  prometheus.Histogram
	BookingsCommitted     *prometheus.CounterVec
	BookingCommitFailures *prometheus.CounterVec
	RateLimitHits         prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		UpdatesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rangebook_bot_updates_total",
			Help: "Total number of Telegram updates processed by type",
		}, []string{"type"}),
		UpdateProcessingTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "rangebook_bot_update_processing_time_seconds",
			Help:    "Time spent processing a single Telegram update",
			Buckets: prometheus.DefBuckets,
		}),
		BookingsCommitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rangebook_bot_bookings_committed_total",
			Help: "Committed bookings by range name",
		}, []string{"range_name"}),
		BookingCommitFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rangebook_bot_booking_commit_failures_total",
			Help: "Booking commit failures by reason",
		}, []string{"reason"}),
		RateLimitHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rangebook_bot_rate_limit_hits_total",
			Help: "Messages dropped by the per-user rate limiter",
		}),
	}
}
