package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	PaymentsTotal      *prometheus.CounterVec
	RateUpgradesTotal  *prometheus.CounterVec
	AuctionTransitions *prometheus.CounterVec
	LoansOriginated    prometheus.Counter
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goldloan_engine_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		PaymentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldloan_engine_payments_total",
				Help: "Total number of payment attempts by outcome.",
			},
			[]string{"status"},
		),
		RateUpgradesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldloan_engine_rate_upgrades_total",
				Help: "Total number of interest rate upgrades by resulting level.",
			},
			[]string{"level"},
		),
		AuctionTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldloan_engine_auction_transitions_total",
				Help: "Total number of auction state transitions by resulting state.",
			},
			[]string{"state"},
		),
		LoansOriginated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "goldloan_engine_loans_originated_total",
				Help: "Total number of loans originated.",
			},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordPayment(status string) {
	Business.PaymentsTotal.WithLabelValues(status).Inc()
}

func RecordRateUpgrade(level int) {
	Business.RateUpgradesTotal.WithLabelValues(levelLabel(level)).Inc()
}

func RecordAuctionTransition(state string) {
	Business.AuctionTransitions.WithLabelValues(state).Inc()
}

func RecordLoanOriginated() {
	Business.LoansOriginated.Inc()
}

func levelLabel(level int) string {
	switch level {
	case 0:
		return "0"
	case 1:
		return "1"
	case 2:
		return "2"
	default:
		return "3"
	}
}
