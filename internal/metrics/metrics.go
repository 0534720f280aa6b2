package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "giftboard_command_runs_total",
		Help: "Total CLI command runs",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "giftboard_command_errors_total",
		Help: "Total CLI command failures",
	}, []string{"command"})
	TokenExchanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "giftboard_token_exchanges_total",
		Help: "Token endpoint calls by grant type and outcome",
	}, []string{"grant", "outcome"})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "giftboard_api_retries_total",
		Help: "Total API retry attempts",
	}, []string{"endpoint"})
	RowsRendered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "giftboard_rows_rendered_total",
		Help: "Leaderboard rows rendered",
	})
	RowFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "giftboard_row_fallbacks_total",
		Help: "Rows replaced by a fallback because the record was malformed",
	})
	CommandDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "giftboard_command_duration_seconds",
		Help:    "CLI command wall time by command",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})
	PipelineDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "giftboard_pipeline_duration_seconds",
		Help:    "Pipeline stage duration seconds",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(CommandRuns, CommandErrors, TokenExchanges, APIRetries, RowsRendered, RowFallbacks, CommandDuration, PipelineDuration)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, mux) }()
}

// ObservePipelineDuration records a run duration
func ObservePipelineDuration(start time.Time) {
	PipelineDuration.Observe(time.Since(start).Seconds())
}

// ObserveCommandDuration records how long a CLI command took.
func ObserveCommandDuration(cmd string, start time.Time) {
	CommandDuration.WithLabelValues(cmd).Observe(time.Since(start).Seconds())
}

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

func IncCommandRun(cmd string) { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }

func IncTokenExchange(grant, outcome string) { TokenExchanges.WithLabelValues(grant, outcome).Inc() }
