package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/i474232898/havet-arena/internal/logger"
)

type countingRefresher struct {
	calls *atomic.Int32
}

func (r countingRefresher) Refresh(ctx context.Context) string {
	r.calls.Inc()
	return "test"
}

func TestSchedulerRunsOnInterval(t *testing.T) {
	r := countingRefresher{calls: atomic.NewInt32(0)}
	s := New(Config{Interval: 50 * time.Millisecond}, r, logger.Discard())

	require.NoError(t, s.Start())
	defer s.Stop()

	require.True(t, s.Running())
	require.Eventually(t, func() bool { return r.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerWithoutScheduleDoesNothing(t *testing.T) {
	r := countingRefresher{calls: atomic.NewInt32(0)}
	s := New(Config{}, r, logger.Discard())

	require.NoError(t, s.Start())
	defer s.Stop()

	require.False(t, s.Running())
	require.Zero(t, r.calls.Load())
}

func TestSchedulerRejectsBadCron(t *testing.T) {
	s := New(Config{Cron: "not a cron"}, countingRefresher{calls: atomic.NewInt32(0)}, logger.Discard())

	require.Error(t, s.Start())
}

func TestSchedulerAcceptsCron(t *testing.T) {
	s := New(Config{Cron: "*/30 * * * *"}, countingRefresher{calls: atomic.NewInt32(0)}, logger.Discard())

	require.NoError(t, s.Start())
	defer s.Stop()
	require.True(t, s.Running())
}
