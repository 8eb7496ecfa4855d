package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lorrc/ohq-statistics/internal/core/domain"
	apperrors "github.com/lorrc/ohq-statistics/internal/core/errors"
	"github.com/lorrc/ohq-statistics/internal/core/ports"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// StatisticsQueryService serves stored statistics to dashboards.
type StatisticsQueryService struct {
	courseRepo ports.CourseRepository
	statsRepo  ports.StatisticsRepository
}

var _ ports.StatisticsQueryService = (*StatisticsQueryService)(nil)

// NewStatisticsQueryService creates a new statistics query service
func NewStatisticsQueryService(courseRepo ports.CourseRepository, statsRepo ports.StatisticsRepository) ports.StatisticsQueryService {
	return &StatisticsQueryService{
		courseRepo: courseRepo,
		statsRepo:  statsRepo,
	}
}

// QueueStatistics lists the dated statistics of a queue.
func (s *StatisticsQueryService) QueueStatistics(ctx context.Context, params ports.QueueStatisticsParams) ([]domain.QueueStatistic, error) {
	if params.Metric != nil && !params.Metric.IsValid() {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownMetric, *params.Metric)
	}
	if params.DateFrom != nil && params.DateTo != nil && params.DateTo.Before(*params.DateFrom) {
		return nil, apperrors.ErrInvalidDateRange
	}

	if _, err := s.courseRepo.GetQueue(ctx, params.QueueID); err != nil {
		return nil, err
	}

	return s.statsRepo.ListQueueStatistics(ctx, ports.QueueStatisticsFilter{
		QueueID:  params.QueueID,
		Metric:   params.Metric,
		DateFrom: params.DateFrom,
		DateTo:   params.DateTo,
	})
}

// QueueHeatmap assembles the stored buckets of a heatmap metric into a grid.
// Buckets that were never computed read as 0.
func (s *StatisticsQueryService) QueueHeatmap(ctx context.Context, queueID int64, metric domain.QueueMetric) (*ports.Heatmap, error) {
	if !metric.IsHeatmap() {
		return nil, fmt.Errorf("%w: %s is not a heatmap metric", apperrors.ErrUnknownMetric, metric)
	}

	if _, err := s.courseRepo.GetQueue(ctx, queueID); err != nil {
		return nil, err
	}

	stats, err := s.statsRepo.ListQueueStatistics(ctx, ports.QueueStatisticsFilter{QueueID: queueID, Metric: &metric})
	if err != nil {
		return nil, err
	}

	heatmap := &ports.Heatmap{QueueID: queueID, Metric: metric}
	for _, stat := range stats {
		if stat.Day == nil || stat.Hour == nil {
			continue
		}
		bucket := domain.HeatmapBucket{Day: *stat.Day, Hour: *stat.Hour}
		if !bucket.IsValid() {
			continue
		}
		heatmap.Values[bucket.Day][bucket.Hour] = stat.Value
	}
	return heatmap, nil
}

// MemberStatistics lists one member's statistics in a course.
func (s *StatisticsQueryService) MemberStatistics(ctx context.Context, courseID int64, userID uuid.UUID) ([]domain.MembershipStatistic, error) {
	if _, err := s.courseRepo.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return s.statsRepo.ListMembershipStatistics(ctx, courseID, userID)
}

// Leaderboard ranks the course's members by one membership metric.
func (s *StatisticsQueryService) Leaderboard(ctx context.Context, courseID int64, metric domain.MembershipMetric, limit int) ([]domain.LeaderboardEntry, error) {
	if !metric.IsValid() {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownMetric, metric)
	}
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	if _, err := s.courseRepo.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return s.statsRepo.Leaderboard(ctx, courseID, metric, limit)
}
