package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the LLM, embedding, discovery, and ingestion paths.
var (
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunedex",
			Name:      "llm_requests_total",
			Help:      "Total number of LLM generation requests",
		},
		[]string{"model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tunedex",
			Name:      "llm_request_duration_seconds",
			Help:      "LLM generation request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model"},
	)

	LLMTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunedex",
			Name:      "llm_tokens_total",
			Help:      "Total LLM tokens consumed",
		},
		[]string{"model", "type"}, // "input" / "output"
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunedex",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tunedex",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunedex",
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"model", "type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunedex",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunedex",
			Name:      "discovery_search_requests_total",
			Help:      "Total discovery search requests by outcome",
		},
		[]string{"code"}, // "ok" or the error code
	)

	SearchExpansionBranchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunedex",
			Name:      "query_expansion_branch_total",
			Help:      "Query expansion parse outcomes by branch",
		},
		[]string{"branch"}, // "strict" / "extracted" / "echo"
	)

	IngestTracksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunedex",
			Name:      "ingest_tracks_total",
			Help:      "Total tracks ingested by outcome",
		},
		[]string{"status"}, // "success" / "failure" / "suppressed"
	)

	IngestStepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tunedex",
			Name:      "ingest_step_duration_seconds",
			Help:      "Ingestion step duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"step"},
	)

	IngestStepRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunedex",
			Name:      "ingest_step_retries_total",
			Help:      "Total ingestion step retries",
		},
		[]string{"step"},
	)
)

var registered bool

// Register registers all tunedex metrics. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(LLMTokensTotal)
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingTokensTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchExpansionBranchTotal)
	prometheus.MustRegister(IngestTracksTotal)
	prometheus.MustRegister(IngestStepDuration)
	prometheus.MustRegister(IngestStepRetriesTotal)
	registered = true
}
