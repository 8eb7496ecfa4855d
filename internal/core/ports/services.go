package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/ohq-statistics/internal/core/domain"
)

// StatisticsService runs the named batch operations.
type StatisticsService interface {
	// Run executes one operation as if the current time were now. The report
	// is returned even when some units failed.
	Run(ctx context.Context, operation string, now time.Time) (*domain.RunReport, error)
	Operations() []string
}

// QueueStatisticsParams defines the input for reading queue statistics.
type QueueStatisticsParams struct {
	QueueID  int64
	Metric   *domain.QueueMetric
	DateFrom *time.Time
	DateTo   *time.Time
}

// Heatmap is a 7x24 grid of values, indexed [day][hour] with Monday=0.
type Heatmap struct {
	QueueID int64
	Metric  domain.QueueMetric
	Values  [domain.DaysPerWeek][domain.HoursPerDay]float64
}

// StatisticsQueryService defines the read side used by dashboards.
type StatisticsQueryService interface {
	QueueStatistics(ctx context.Context, params QueueStatisticsParams) ([]domain.QueueStatistic, error)
	QueueHeatmap(ctx context.Context, queueID int64, metric domain.QueueMetric) (*Heatmap, error)
	MemberStatistics(ctx context.Context, courseID int64, userID uuid.UUID) ([]domain.MembershipStatistic, error)
	Leaderboard(ctx context.Context, courseID int64, metric domain.MembershipMetric, limit int) ([]domain.LeaderboardEntry, error)
}

// EventBroadcaster defines the port for pushing real-time events.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}

// TransactionManager defines the port for running atomic operations.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
