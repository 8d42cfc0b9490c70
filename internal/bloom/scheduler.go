package bloom

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultDailyAt is midnight UTC.
const DefaultDailyAt = "00:00"

// Scheduler triggers the fetch job once a day.
type Scheduler struct {
	job     *FetchJob
	dailyAt string
	logger  *zap.Logger
	lastRun time.Time
}

// NewScheduler constructs a Scheduler. An empty dailyAt falls back to midnight.
func NewScheduler(job *FetchJob, dailyAt string, logger *zap.Logger) *Scheduler {
	if dailyAt == "" {
		dailyAt = DefaultDailyAt
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{job: job, dailyAt: dailyAt, logger: logger}
}

// Start blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.job == nil {
		return
	}
	if _, _, err := parseDailyAt(s.dailyAt); err != nil {
		s.logger.Error("bloom scheduler disabled", zap.String("daily_at", s.dailyAt), zap.Error(err))
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !s.shouldRun(now.UTC()) {
				continue
			}
			s.runOnce(ctx, now.UTC())
		}
	}
}

func (s *Scheduler) shouldRun(now time.Time) bool {
	hour, minute, err := parseDailyAt(s.dailyAt)
	if err != nil {
		return false
	}
	if now.Hour() != hour || now.Minute() != minute {
		return false
	}
	y, m, d := now.Date()
	ly, lm, ld := s.lastRun.Date()
	return !(y == ly && m == lm && d == ld)
}

// Failures are logged; the next day's tick retries.
func (s *Scheduler) runOnce(ctx context.Context, now time.Time) {
	s.lastRun = now
	result, err := s.job.Run(ctx, now)
	if err != nil {
		s.logger.Error("bloom scheduled fetch failed", zap.Time("day", result.Day), zap.Error(err))
		return
	}
	s.logger.Info("bloom scheduled fetch done", zap.Time("day", result.Day), zap.Int("written", result.Written))
}

func parseDailyAt(value string) (int, int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
