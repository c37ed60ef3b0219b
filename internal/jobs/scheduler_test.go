package jobs

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/careconnect/internal/observability/metrics"
	"github.com/wolfman30/careconnect/pkg/logging"
)

func TestSchedulerRegistration(t *testing.T) {
	s := NewScheduler(nil)
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Add(Job{Name: "a", Schedule: "@every 1h", Run: noop}))
	assert.Error(t, s.Add(Job{Name: "a", Schedule: "@every 1h", Run: noop}), "duplicate names are rejected")
	assert.Error(t, s.Add(Job{Name: "b", Schedule: "not a schedule", Run: noop}))
	assert.Error(t, s.Add(Job{Name: "c", Schedule: "@hourly"}))
	assert.Error(t, s.RunNow(context.Background(), "missing"))
}

func TestRunNowLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	s := NewScheduler(logging.NewWithWriter("info", &buf)).WithMetrics(metrics.New(prometheus.NewRegistry()))
	require.NoError(t, s.Add(Job{Name: "broken", Schedule: "@hourly", Run: func(context.Context) error {
		return errors.New("boom")
	}}))

	err := s.RunNow(context.Background(), "broken")
	require.EqualError(t, err, "boom")
	assert.Contains(t, buf.String(), `"job":"broken"`)
	assert.Contains(t, buf.String(), `"component":"jobs"`)
}

func TestRunAppliesTimeout(t *testing.T) {
	s := NewScheduler(nil)
	require.NoError(t, s.Add(Job{Name: "slow", Schedule: "@hourly", Timeout: 20 * time.Millisecond, Run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}))
	assert.ErrorIs(t, s.RunNow(context.Background(), "slow"), context.DeadlineExceeded)
}

func TestScheduledRunAndStop(t *testing.T) {
	s := NewScheduler(nil)
	var runs atomic.Int32
	fired := make(chan struct{}, 1)
	require.NoError(t, s.Add(Job{Name: "tick", Schedule: "@every 1s", Run: func(context.Context) error {
		runs.Add(1)
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	}}))

	s.Start()
	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("job never ran")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.GreaterOrEqual(t, runs.Load(), int32(1))
}
