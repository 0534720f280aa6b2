package cmdlog

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"giftboard/internal/auth"
	"giftboard/internal/logging"
	"giftboard/internal/metrics"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	prev := logging.SetLogger(zap.New(core))
	t.Cleanup(func() { logging.SetLogger(prev) })
	return logs
}

func TestRunCountsAndLogs(t *testing.T) {
	logs := observe(t)

	errsBefore := testutil.ToFloat64(metrics.CommandErrors.WithLabelValues("rank"))
	require.NoError(t, Run("rank", func() error { return nil }))
	err := Run("rank", func() error { return errors.New("boom") })
	require.Error(t, err)

	assert.Equal(t, errsBefore+1, testutil.ToFloat64(metrics.CommandErrors.WithLabelValues("rank")))
	ok := logs.FilterMessage("rank_ok").All()
	require.Len(t, ok, 1)
	assert.Contains(t, ok[0].ContextMap(), "duration_ms")
	failed := logs.FilterMessage("rank_error").All()
	require.Len(t, failed, 1)
	assert.NotContains(t, failed[0].ContextMap(), "hint")
	assert.GreaterOrEqual(t, testutil.CollectAndCount(metrics.CommandDuration, "giftboard_command_duration_seconds"), 1)
}

func TestRunHintsReauthorization(t *testing.T) {
	logs := observe(t)

	err := Run("auth", func() error {
		return fmt.Errorf("%w: no authorization code configured", auth.ErrCodeExhausted)
	})
	require.Error(t, err)
	failed := logs.FilterMessage("auth_error").All()
	require.Len(t, failed, 1)
	assert.Equal(t, reauthHint, failed[0].ContextMap()["hint"])
}
