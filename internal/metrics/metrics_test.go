package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposure(t *testing.T) {
	IncCommandRun("fetch")
	IncCommandError("fetch")
	IncAPIRetry("/subscriptions")
	IncTokenExchange("refresh_token", "ok")
	RowsRendered.Inc()
	RowFallbacks.Inc()
	ObservePipelineDuration(time.Now().Add(-1500 * time.Millisecond))
	ObserveCommandDuration("fetch", time.Now().Add(-time.Second))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, m := range []string{
		"giftboard_command_runs_total",
		"giftboard_command_errors_total",
		"giftboard_token_exchanges_total",
		"giftboard_api_retries_total",
		"giftboard_rows_rendered_total",
		"giftboard_row_fallbacks_total",
		"giftboard_pipeline_duration_seconds",
		"giftboard_command_duration_seconds",
	} {
		assert.Contains(t, body, m)
	}
}

func TestTokenExchangeLabels(t *testing.T) {
	before := testutil.ToFloat64(TokenExchanges.WithLabelValues("authorization_code", "failed"))
	IncTokenExchange("authorization_code", "failed")
	after := testutil.ToFloat64(TokenExchanges.WithLabelValues("authorization_code", "failed"))
	assert.Equal(t, before+1, after)
}
