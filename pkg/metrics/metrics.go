// Package metrics holds the Prometheus collectors shared by the services.
package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fintrack",
		Name:      "llm_request_duration_seconds",
		Help:      "Latency of inference backend calls.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 45, 90},
	}, []string{"provider", "outcome"})

	ImportStage = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fintrack",
		Name:      "import_stage_total",
		Help:      "Statement import pipeline stage outcomes.",
	}, []string{"stage", "outcome"})

	ImportedTransactions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fintrack",
		Name:      "imported_transactions_total",
		Help:      "Transactions persisted by bulk import.",
	})

	CategoryCoercions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fintrack",
		Name:      "category_coercions_total",
		Help:      "Categories replaced by the fallback because they were outside the taxonomy.",
	}, []string{"type"})

	PushDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fintrack",
		Name:      "push_deliveries_total",
		Help:      "Web push delivery attempts by outcome.",
	}, []string{"outcome"})
)

// Handler exposes the default registry as a fiber handler.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
