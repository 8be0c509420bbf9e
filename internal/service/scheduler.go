package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Syncer is what the scheduler triggers.
type Syncer interface {
	Sync(ctx context.Context, mode SyncMode) (*SyncResult, error)
}

// Scheduler runs a recent sync on a cron schedule. A run that is still going
// when the next one fires causes that tick to be skipped.
type Scheduler struct {
	cron   *cron.Cron
	base   context.Context
	cancel context.CancelFunc
	log    zerolog.Logger
}

// NewScheduler returns nil when schedule is blank. Each run is bounded by
// timeout when positive.
func NewScheduler(schedule string, syncer Syncer, timeout time.Duration, log zerolog.Logger) (*Scheduler, error) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		return nil, nil
	}
	clog := cronLogger{log: log}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)
	base, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, base: base, cancel: cancel, log: log}

	_, err := c.AddFunc(schedule, func() {
		ctx := s.base
		if timeout > 0 {
			var done context.CancelFunc
			ctx, done = context.WithTimeout(ctx, timeout)
			defer done()
		}
		log.Info().Msg("scheduler: recent sync starting")
		res, err := syncer.Sync(ctx, SyncRecent)
		if err != nil {
			log.Error().Err(err).Msg("scheduler: recent sync failed")
			return
		}
		log.Info().Int("new_transactions", res.NewTransactions).Int64("transfers", res.UpdatedDuplicates).Msg("scheduler: recent sync done")
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("invalid sync schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	if s == nil {
		return
	}
	s.cron.Start()
	s.log.Info().Int("entries", len(s.cron.Entries())).Msg("scheduler started")
}

// Stop prevents new runs, cancels the one in flight and waits for it or ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
