package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "validis_agent_query_duration_seconds",
			Help:    "End-to-end query pipeline duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"domain"},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validis_agent_query_total",
			Help: "Total number of queries processed",
		},
		[]string{"status"},
	)

	ConfidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "validis_agent_confidence_score",
			Help:    "Synthesis confidence of successful responses",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validis_agent_cache_hits_total",
			Help: "Total response cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validis_agent_cache_misses_total",
			Help: "Total response cache misses",
		},
		[]string{"cache_type"},
	)

	ClarificationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "validis_agent_clarifications_total",
			Help: "Total responses that requested clarification",
		},
	)

	OptimizationFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "validis_agent_optimization_fallbacks_total",
			Help: "Total responses returned with unoptimized SQL after an optimizer failure",
		},
	)

	TemplateMatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validis_agent_template_matches_total",
			Help: "Synthesis strategy used per query",
		},
		[]string{"strategy"},
	)

	CollaboratorSuccessRate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "validis_agent_collaborator_success_rate",
			Help: "Smoothed success rate per downstream collaborator",
		},
		[]string{"collaborator"},
	)

	ActiveFlows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "validis_agent_active_flows",
			Help: "Pipeline calls currently in flight",
		},
	)
)

func Init() {
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryTotal)
	prometheus.MustRegister(ConfidenceScore)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(ClarificationsTotal)
	prometheus.MustRegister(OptimizationFallbacks)
	prometheus.MustRegister(TemplateMatches)
	prometheus.MustRegister(CollaboratorSuccessRate)
	prometheus.MustRegister(ActiveFlows)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
