package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/ohq-statistics/internal/core/domain"
)

// TimeRange is a half-open instant range [From, To). A nil bound is open.
type TimeRange struct {
	From *time.Time
	To   *time.Time
}

// NewTimeRange builds a closed-open range from two instants.
func NewTimeRange(from, to time.Time) *TimeRange {
	return &TimeRange{From: &from, To: &to}
}

// QuestionFilter narrows the question log. Zero-valued fields do not filter.
type QuestionFilter struct {
	QueueID  *int64
	CourseID *int64

	AskedIn           *TimeRange
	ResponseStartedIn *TimeRange
	RespondedToIn     *TimeRange

	Statuses        []domain.QuestionState
	AskedByID       *uuid.UUID
	RespondedToByID *uuid.UUID

	// AskedOnDay keeps questions asked on one heatmap weekday (Monday=0),
	// evaluated in Location.
	AskedOnDay *int
	Location   *time.Location

	RequireResponseStarted bool
	RequireRespondedTo     bool
}

// QuestionRepository is the read-only view of the question log.
type QuestionRepository interface {
	Find(ctx context.Context, filter QuestionFilter) ([]domain.Question, error)
}

// CourseRepository exposes the courses, queues and memberships the batch
// operations iterate over.
type CourseRepository interface {
	ListActiveCourses(ctx context.Context) ([]*domain.Course, error)
	GetCourse(ctx context.Context, courseID int64) (*domain.Course, error)
	ListQueues(ctx context.Context, courseID int64) ([]*domain.Queue, error)
	ListActiveQueues(ctx context.Context) ([]*domain.Queue, error)
	GetQueue(ctx context.Context, queueID int64) (*domain.Queue, error)
	ListMemberships(ctx context.Context, courseID int64) ([]*domain.Membership, error)
	UpdateEstimatedWaitTime(ctx context.Context, queueID int64, minutes int) error
}

// QueueStatisticsFilter selects stored queue statistics.
type QueueStatisticsFilter struct {
	QueueID  int64
	Metric   *domain.QueueMetric
	DateFrom *time.Time
	DateTo   *time.Time
}

// StatisticsRepository persists computed statistics with upsert semantics.
type StatisticsRepository interface {
	UpsertQueueStatistics(ctx context.Context, stats []domain.QueueStatistic) error
	UpsertMembershipStatistics(ctx context.Context, stats []domain.MembershipStatistic) error
	ListQueueStatistics(ctx context.Context, filter QueueStatisticsFilter) ([]domain.QueueStatistic, error)
	ListMembershipStatistics(ctx context.Context, courseID int64, userID uuid.UUID) ([]domain.MembershipStatistic, error)
	Leaderboard(ctx context.Context, courseID int64, metric domain.MembershipMetric, limit int) ([]domain.LeaderboardEntry, error)
}
