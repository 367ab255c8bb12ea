package retention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"geoquiz-service/internal/app"
	"geoquiz-service/internal/domain"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StatRecorder archives the summary of a deleted session.
type StatRecorder interface {
	RecordStat(ctx context.Context, stat domain.SessionStat) error
}

// Sweeper deletes sessions older than MaxAge and archives a summary of each.
type Sweeper struct {
	sessions app.SessionSweeper
	stats    StatRecorder
	maxAge   time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

type SweeperOption func(*Sweeper)

func WithClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) { s.now = now }
}

func WithLogger(logger *zap.Logger) SweeperOption {
	return func(s *Sweeper) { s.logger = logger }
}

func NewSweeper(sessions app.SessionSweeper, stats StatRecorder, maxAge time.Duration, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		sessions: sessions,
		stats:    stats,
		maxAge:   maxAge,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOnce performs one sweep and returns how many sessions were removed.
// A failing session is logged and skipped; the joined errors are returned.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	now := s.now()
	ids, err := s.sessions.CreatedBefore(ctx, now.Add(-s.maxAge))
	if err != nil {
		return 0, fmt.Errorf("list expired sessions: %w", err)
	}

	var (
		removed int
		errs    []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		session, state, err := s.sessions.Delete(ctx, id)
		if errors.Is(err, domain.ErrSessionNotFound) {
			// deleted by a concurrent sweep
			continue
		}
		if err != nil {
			s.logger.Error("delete expired session", zap.String("sessionId", id), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		removed++

		if s.stats == nil {
			continue
		}
		if err := s.stats.RecordStat(ctx, domain.StatOf(session, state, now)); err != nil {
			s.logger.Error("archive session stat", zap.String("sessionId", id), zap.Error(err))
			errs = append(errs, err)
		}
	}

	s.logger.Info("retention sweep finished",
		zap.Int("expired", len(ids)),
		zap.Int("removed", removed),
		zap.Duration("maxAge", s.maxAge),
	)
	return removed, errors.Join(errs...)
}

// Start schedules RunOnce with a cron spec such as "@every 1h" or "0 * * * *".
// The returned function stops the schedule and waits for a running sweep.
func (s *Sweeper) Start(ctx context.Context, spec string) (func(), error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Warn("retention sweep incomplete", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule retention sweep %q: %w", spec, err)
	}
	c.Start()
	return func() { <-c.Stop().Done() }, nil
}
