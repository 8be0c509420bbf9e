package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingSyncer struct{ n atomic.Int32 }

func (c *countingSyncer) Sync(ctx context.Context, mode SyncMode) (*SyncResult, error) {
	c.n.Add(1)
	return &SyncResult{Mode: mode}, nil
}

func TestSchedulerDisabledWhenBlank(t *testing.T) {
	t.Parallel()
	s, err := NewScheduler("  ", &countingSyncer{}, 0, nopLog())
	require.NoError(t, err)
	require.Nil(t, s)
	s.Start()
	require.NoError(t, s.Stop(context.Background()))
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	t.Parallel()
	_, err := NewScheduler("every tuesday", &countingSyncer{}, 0, nopLog())
	require.Error(t, err)
}

func TestSchedulerRunsRecentSync(t *testing.T) {
	t.Parallel()
	syncer := &countingSyncer{}
	s, err := NewScheduler("@every 1s", syncer, time.Second, nopLog())
	require.NoError(t, err)
	s.Start()
	require.Eventually(t, func() bool { return syncer.n.Load() > 0 }, 3*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
