package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/ohq-statistics/internal/core/domain"
	apperrors "github.com/lorrc/ohq-statistics/internal/core/errors"
	"github.com/lorrc/ohq-statistics/internal/core/ports"
	"github.com/lorrc/ohq-statistics/internal/infrastructure/logging"
	"golang.org/x/sync/errgroup"
)

// Batch operation names.
const (
	OpAvgQueueWait              = "avg_queue_wait"
	OpAvgTimeHelping            = "avg_time_helping"
	OpAvgWaitHeatmap            = "avg_wait_heatmap"
	OpAvgWaitHeatmapHist        = "avg_wait_heatmap_hist"
	OpNumQuestionsAnswered      = "num_questions_ans"
	OpNumStudentsHelped         = "num_students_helped"
	OpQuestionsPerTAHeatmap     = "questions_per_ta_heatmap"
	OpQuestionsPerTAHeatmapHist = "questions_per_ta_heatmap_hist"
	OpWaitTimeDays              = "wait_time_days"
	OpCourseStat                = "course_stat"
	OpCalculateWaitTimes        = "calculatewaittimes"
	OpDaily                     = "daily"
)

// DailyOperations are the operations the scheduled daily run performs.
var DailyOperations = []string{
	OpAvgQueueWait,
	OpAvgTimeHelping,
	OpAvgWaitHeatmap,
	OpNumQuestionsAnswered,
	OpNumStudentsHelped,
	OpQuestionsPerTAHeatmap,
	OpWaitTimeDays,
	OpCourseStat,
}

// StatisticsOptions tunes how batch operations compute and schedule work.
type StatisticsOptions struct {
	// Location decides calendar dates, weekdays and hours.
	Location *time.Location
	// HeatmapLookbackWeeks bounds heatmap history; 0 uses every question.
	HeatmapLookbackWeeks int
	// Concurrency is the number of queues or courses processed at once.
	Concurrency int
	// WaitEstimateWindow is how far back calculatewaittimes looks.
	WaitEstimateWindow time.Duration
}

// DefaultStatisticsOptions returns sequential, UTC based options.
func DefaultStatisticsOptions() StatisticsOptions {
	return StatisticsOptions{
		Location:           time.UTC,
		Concurrency:        1,
		WaitEstimateWindow: 10 * time.Minute,
	}
}

// unit is one independently failing piece of a batch run.
type unit struct {
	kind     string
	id       int64
	courseID int64
	queue    *domain.Queue
	course   *domain.Course
}

// StatisticsService drives the batch operations. Each queue (or course) is
// fetched, computed and written on its own so one failure never leaks into
// another unit's statistics.
type StatisticsService struct {
	questionRepo ports.QuestionRepository
	courseRepo   ports.CourseRepository
	statsRepo    ports.StatisticsRepository
	txManager    ports.TransactionManager
	broadcaster  ports.EventBroadcaster
	logger       *slog.Logger
	opts         StatisticsOptions

	queueJobs map[string]queueJob

	mu      sync.Mutex
	running map[string]bool
}

var _ ports.StatisticsService = (*StatisticsService)(nil)

// NewStatisticsService creates a new statistics service. broadcaster may be nil.
func NewStatisticsService(
	questionRepo ports.QuestionRepository,
	courseRepo ports.CourseRepository,
	statsRepo ports.StatisticsRepository,
	txManager ports.TransactionManager,
	broadcaster ports.EventBroadcaster,
	logger *slog.Logger,
	opts StatisticsOptions,
) *StatisticsService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.WaitEstimateWindow <= 0 {
		opts.WaitEstimateWindow = DefaultStatisticsOptions().WaitEstimateWindow
	}

	s := &StatisticsService{
		questionRepo: questionRepo,
		courseRepo:   courseRepo,
		statsRepo:    statsRepo,
		txManager:    txManager,
		broadcaster:  broadcaster,
		logger:       logger.With("component", "statistics_service"),
		opts:         opts,
		running:      make(map[string]bool),
	}
	s.queueJobs = s.buildQueueJobs()
	return s
}

// Operations lists every operation Run accepts.
func (s *StatisticsService) Operations() []string {
	ops := make([]string, 0, len(s.queueJobs)+3)
	for name := range s.queueJobs {
		ops = append(ops, name)
	}
	ops = append(ops, OpCourseStat, OpCalculateWaitTimes, OpDaily)
	sort.Strings(ops)
	return ops
}

func (s *StatisticsService) isKnown(operation string) bool {
	if _, ok := s.queueJobs[operation]; ok {
		return true
	}
	return operation == OpCourseStat || operation == OpCalculateWaitTimes || operation == OpDaily
}

func (s *StatisticsService) acquire(operation string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[operation] {
		return false
	}
	s.running[operation] = true
	return true
}

func (s *StatisticsService) release(operation string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, operation)
}

// Run executes the named operation as of now.
func (s *StatisticsService) Run(ctx context.Context, operation string, now time.Time) (*domain.RunReport, error) {
	if !s.isKnown(operation) {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownOperation, operation)
	}
	if !s.acquire(operation) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrJobRunning, operation)
	}
	defer s.release(operation)

	report := &domain.RunReport{
		RunID:     uuid.New(),
		Operation: operation,
		StartedAt: time.Now().UTC(),
	}
	ctx = logging.WithRunID(ctx, report.RunID.String())
	logger := s.logger.With("operation", operation)
	logger.InfoContext(ctx, "batch operation started", "as_of", now.In(s.opts.Location).Format(time.RFC3339))

	var errs []error
	if operation == OpDaily {
		for _, name := range DailyOperations {
			errs = append(errs, s.runOne(ctx, name, now, report)...)
		}
	} else {
		errs = s.runOne(ctx, operation, now, report)
	}
	report.FinishedAt = time.Now().UTC()

	s.broadcast(ctx, domain.Event{
		Type: domain.EventJobCompleted,
		Payload: domain.JobCompletedPayload{
			RunID:          report.RunID.String(),
			Operation:      operation,
			UnitsProcessed: report.UnitsProcessed,
			UnitsFailed:    report.UnitsFailed,
			Written:        report.StatisticsWritten,
		},
	})

	attrs := []any{
		"units_processed", report.UnitsProcessed,
		"units_failed", report.UnitsFailed,
		"statistics_written", report.StatisticsWritten,
		"duration_ms", report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	}
	if len(errs) > 0 {
		logger.WarnContext(ctx, "batch operation finished with failures", attrs...)
		return report, fmt.Errorf("%w: %w", apperrors.ErrPartialFailure, errors.Join(errs...))
	}
	logger.InfoContext(ctx, "batch operation finished", attrs...)
	return report, nil
}

// runOne runs a single, non-composite operation and returns the unit errors.
func (s *StatisticsService) runOne(ctx context.Context, operation string, now time.Time, report *domain.RunReport) []error {
	switch operation {
	case OpCourseStat:
		return s.runCourseStat(ctx, now, report)
	case OpCalculateWaitTimes:
		return s.runWaitEstimates(ctx, now, report)
	}

	job := s.queueJobs[operation]
	queues, errs := s.listQueueUnits(ctx, operation, report)
	return append(errs, s.runUnits(ctx, operation, queues, report, func(ctx context.Context, u unit) (int, error) {
		return s.runQueueJob(ctx, job, u.queue, now)
	})...)
}

// listQueueUnits enumerates the non-archived queues of non-archived courses.
// A course whose queues cannot be listed counts as a failed unit.
func (s *StatisticsService) listQueueUnits(ctx context.Context, operation string, report *domain.RunReport) ([]unit, []error) {
	courses, err := s.courseRepo.ListActiveCourses(ctx)
	if err != nil {
		report.UnitsFailed++
		return nil, []error{fmt.Errorf("%s: list courses: %w", operation, err)}
	}

	var (
		units []unit
		errs  []error
	)
	for _, course := range courses {
		queues, err := s.courseRepo.ListQueues(ctx, course.ID)
		if err != nil {
			errs = append(errs, s.unitFailed(ctx, operation, unit{kind: "course", id: course.ID, courseID: course.ID}, report, err))
			continue
		}
		for _, queue := range queues {
			if queue.Archived {
				continue
			}
			units = append(units, unit{kind: "queue", id: queue.ID, courseID: course.ID, queue: queue})
		}
	}
	return units, errs
}

// runUnits processes units with at most opts.Concurrency in flight. A failing
// unit is logged and recorded; the others keep going.
func (s *StatisticsService) runUnits(
	ctx context.Context,
	operation string,
	units []unit,
	report *domain.RunReport,
	fn func(ctx context.Context, u unit) (int, error),
) []error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(s.opts.Concurrency)

	for _, u := range units {
		u := u
		g.Go(func() error {
			written, err := fn(ctx, u)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, s.unitFailed(ctx, operation, u, report, err))
				return nil
			}
			report.UnitsProcessed++
			report.StatisticsWritten += written

			s.broadcast(ctx, domain.Event{
				Type:     domain.EventStatisticsUpdated,
				CourseID: u.courseID,
				Payload: domain.StatisticsUpdatedPayload{
					Operation: operation,
					QueueID:   queueIDOf(u),
					Written:   written,
				},
			})
			return nil
		})
	}
	_ = g.Wait()

	return errs
}

func queueIDOf(u unit) int64 {
	if u.kind == "queue" {
		return u.id
	}
	return 0
}

// unitFailed must be called with the report guarded.
func (s *StatisticsService) unitFailed(ctx context.Context, operation string, u unit, report *domain.RunReport, err error) error {
	report.UnitsFailed++
	s.logger.ErrorContext(ctx, "statistics unit failed",
		"operation", operation,
		u.kind+"_id", u.id,
		"error", err,
	)
	return &apperrors.UnitError{Operation: operation, Unit: u.kind, ID: u.id, Err: err}
}

func (s *StatisticsService) broadcast(ctx context.Context, event domain.Event) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Broadcast(event); err != nil {
		s.logger.WarnContext(ctx, "failed to broadcast statistics event",
			"event_type", event.Type,
			"error", err,
		)
	}
}
