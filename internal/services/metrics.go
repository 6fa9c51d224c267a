package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Generation metrics (triage + plan)
	GenerationRequests *prometheus.CounterVec
	GenerationErrors   *prometheus.CounterVec
	CompletionLatency  prometheus.Histogram

	// Speech synthesis metrics
	SpeechRequests  prometheus.Counter
	SpeechFailures  prometheus.Counter
	SpeechCacheHits prometheus.Counter
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		GenerationRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "catchup_generation_requests_total",
			Help: "Total number of AI generation requests by kind",
		}, []string{"kind"}), // kind: "triage", "triage_stream", "plan"

		GenerationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "catchup_generation_errors_total",
			Help: "Total number of AI generation errors by kind and category",
		}, []string{"kind", "category"}),

		CompletionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "catchup_completion_duration_seconds",
			Help:    "Completion request latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120}, // up to 2 minutes for LLM responses
		}),

		SpeechRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "catchup_speech_requests_total",
			Help: "Total number of speech synthesis requests",
		}),

		SpeechFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "catchup_speech_failures_total",
			Help: "Total number of speech synthesis failures (absorbed, not surfaced)",
		}),

		SpeechCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "catchup_speech_cache_hits_total",
			Help: "Total number of synthesized audio buffers served from cache",
		}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}
