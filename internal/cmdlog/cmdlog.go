// Package cmdlog wraps CLI commands with run counters, timing and a closing log line.
package cmdlog

import (
	"errors"
	"time"

	"giftboard/internal/auth"
	"giftboard/internal/logging"
	"giftboard/internal/metrics"
)

const reauthHint = "authorize the app again and set AUTHORIZATION_CODE to the new code"

// Run executes f as command cmd. Failures that can only be cleared by a new
// authorization code carry a hint in the log line.
func Run(cmd string, f func() error) error {
	start := time.Now()
	metrics.IncCommandRun(cmd)
	err := f()
	metrics.ObserveCommandDuration(cmd, start)
	fields := map[string]any{"duration_ms": time.Since(start).Milliseconds()}
	if err != nil {
		metrics.IncCommandError(cmd)
		fields["error"] = err.Error()
		if errors.Is(err, auth.ErrCodeExhausted) {
			fields["hint"] = reauthHint
		}
		logging.Error(cmd+"_error", fields)
		return err
	}
	logging.Info(cmd+"_ok", fields)
	return nil
}
