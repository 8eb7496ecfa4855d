package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/lorrc/ohq-statistics/internal/core/domain"
	apperrors "github.com/lorrc/ohq-statistics/internal/core/errors"
	"github.com/lorrc/ohq-statistics/internal/core/ports"
)

// Trigger names how a run was started.
const (
	TriggerSchedule = "schedule"
	TriggerInterval = "interval"
	TriggerManual   = "manual"
)

const (
	dailyOperation        = "daily"
	waitEstimateOperation = "calculatewaittimes"
	historySize           = 50
)

// Config controls the in-process schedule.
type Config struct {
	Enabled              bool
	Location             *time.Location
	RunHour              int
	WaitEstimateInterval time.Duration
}

// RunRecord is one finished run kept for the admin listing.
type RunRecord struct {
	Operation string            `json:"operation"`
	Trigger   string            `json:"trigger"`
	AsOf      time.Time         `json:"asOf"`
	Report    *domain.RunReport `json:"report,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Scheduler starts batch operations on a timetable or on demand and keeps a
// short history of how they went.
type Scheduler struct {
	svc    ports.StatisticsService
	logger *slog.Logger
	cfg    Config
	now    func() time.Time

	mu       sync.Mutex
	history  []RunRecord
	inflight map[string]bool

	// base is the context manual runs inherit; it is replaced by Start.
	base context.Context
	wg   sync.WaitGroup
}

// New creates a scheduler. Nothing runs until Start or Trigger is called.
func New(svc ports.StatisticsService, logger *slog.Logger, cfg Config) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Scheduler{
		svc:      svc,
		logger:   logger.With("component", "scheduler"),
		cfg:      cfg,
		now:      time.Now,
		inflight: make(map[string]bool),
		base:     context.Background(),
	}
}

// Start runs the daily and wait-estimate loops until ctx is cancelled. It
// returns immediately when scheduling is disabled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	if !s.cfg.Enabled {
		s.logger.Info("scheduled statistics runs disabled")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.dailyLoop(ctx)
	}()

	if s.cfg.WaitEstimateInterval > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.waitEstimateLoop(ctx)
		}()
	}
}

// Wait blocks until every loop and triggered run has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) dailyLoop(ctx context.Context) {
	for {
		next := NextRun(s.now(), s.cfg.Location, s.cfg.RunHour)
		s.logger.Info("next daily statistics run scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("daily statistics loop stopped")
			return
		case <-timer.C:
			_, _ = s.run(ctx, dailyOperation, s.now(), TriggerSchedule)
		}
	}
}

func (s *Scheduler) waitEstimateLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.WaitEstimateInterval)
	defer ticker.Stop()

	s.logger.Info("wait estimate ticker started", "interval", s.cfg.WaitEstimateInterval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("wait estimate ticker stopped")
			return
		case <-ticker.C:
			_, _ = s.run(ctx, waitEstimateOperation, s.now(), TriggerInterval)
		}
	}
}

// NextRun returns the first instant after now at hour:00 in loc.
func NextRun(now time.Time, loc *time.Location, hour int) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, 0, 0, 0, loc)
	}
	return next
}

// AsOfDate turns a calendar date into the instant a run treats as "now":
// the start of that day in loc.
func AsOfDate(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
}

// Operations lists what Trigger accepts.
func (s *Scheduler) Operations() []string {
	return s.svc.Operations()
}

// Trigger starts operation in the background as of asOf. It fails fast when
// the operation is unknown or already in flight.
func (s *Scheduler) Trigger(operation string, asOf time.Time) error {
	if !slices.Contains(s.svc.Operations(), operation) {
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownOperation, operation)
	}

	s.mu.Lock()
	if s.inflight[operation] {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", apperrors.ErrJobRunning, operation)
	}
	s.inflight[operation] = true
	ctx := s.base
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.done(operation)
		_, _ = s.record(ctx, operation, asOf, TriggerManual)
	}()
	return nil
}

// RunNow runs operation synchronously and records it.
func (s *Scheduler) RunNow(ctx context.Context, operation string, asOf time.Time) (*domain.RunReport, error) {
	return s.run(ctx, operation, asOf, TriggerManual)
}

func (s *Scheduler) run(ctx context.Context, operation string, asOf time.Time, trigger string) (*domain.RunReport, error) {
	s.mu.Lock()
	if s.inflight[operation] {
		s.mu.Unlock()
		s.logger.Warn("skipping run, operation already in flight", "operation", operation, "trigger", trigger)
		return nil, fmt.Errorf("%w: %s", apperrors.ErrJobRunning, operation)
	}
	s.inflight[operation] = true
	s.mu.Unlock()
	defer s.done(operation)

	return s.record(ctx, operation, asOf, trigger)
}

func (s *Scheduler) done(operation string) {
	s.mu.Lock()
	delete(s.inflight, operation)
	s.mu.Unlock()
}

func (s *Scheduler) record(ctx context.Context, operation string, asOf time.Time, trigger string) (*domain.RunReport, error) {
	report, err := s.svc.Run(ctx, operation, asOf)

	rec := RunRecord{Operation: operation, Trigger: trigger, AsOf: asOf, Report: report}
	if err != nil {
		rec.Error = err.Error()
		level := slog.LevelError
		if errors.Is(err, apperrors.ErrPartialFailure) {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "statistics run failed", "operation", operation, "trigger", trigger, "error", err)
	}

	s.mu.Lock()
	s.history = append(s.history, rec)
	if len(s.history) > historySize {
		s.history = s.history[len(s.history)-historySize:]
	}
	s.mu.Unlock()

	return report, err
}

// History returns the recorded runs, newest first.
func (s *Scheduler) History() []RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RunRecord, len(s.history))
	for i, rec := range s.history {
		out[len(s.history)-1-i] = rec
	}
	return out
}

// LastRun returns the most recent record for operation.
func (s *Scheduler) LastRun(operation string) (RunRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].Operation == operation {
			return s.history[i], true
		}
	}
	return RunRecord{}, false
}
