package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/ohq-statistics/internal/core/domain"
	apperrors "github.com/lorrc/ohq-statistics/internal/core/errors"
	"github.com/lorrc/ohq-statistics/internal/core/mocks"
	"github.com/lorrc/ohq-statistics/internal/core/ports"
	"github.com/lorrc/ohq-statistics/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStatisticsQueryService_QueueStatistics(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		courses := mocks.NewMockCourseRepository()
		stats := mocks.NewMockStatisticsRepository()
		svc := services.NewStatisticsQueryService(courses, stats)

		metric := domain.MetricAvgWait
		from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		courses.On("GetQueue", ctx, int64(5)).Return(&domain.Queue{ID: 5}, nil)
		stats.On("ListQueueStatistics", ctx, ports.QueueStatisticsFilter{QueueID: 5, Metric: &metric, DateFrom: &from}).
			Return([]domain.QueueStatistic{{QueueID: 5, Metric: metric, Value: 12}}, nil)

		result, err := svc.QueueStatistics(ctx, ports.QueueStatisticsParams{QueueID: 5, Metric: &metric, DateFrom: &from})

		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, 12.0, result[0].Value)
		courses.AssertExpectations(t)
		stats.AssertExpectations(t)
	})

	t.Run("unknown metric", func(t *testing.T) {
		svc := services.NewStatisticsQueryService(mocks.NewMockCourseRepository(), mocks.NewMockStatisticsRepository())
		metric := domain.QueueMetric("MEDIAN_WAIT")

		_, err := svc.QueueStatistics(ctx, ports.QueueStatisticsParams{QueueID: 5, Metric: &metric})

		assert.ErrorIs(t, err, apperrors.ErrUnknownMetric)
	})

	t.Run("inverted date range", func(t *testing.T) {
		svc := services.NewStatisticsQueryService(mocks.NewMockCourseRepository(), mocks.NewMockStatisticsRepository())
		from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 0, -1)

		_, err := svc.QueueStatistics(ctx, ports.QueueStatisticsParams{QueueID: 5, DateFrom: &from, DateTo: &to})

		assert.ErrorIs(t, err, apperrors.ErrInvalidDateRange)
	})

	t.Run("missing queue", func(t *testing.T) {
		courses := mocks.NewMockCourseRepository()
		svc := services.NewStatisticsQueryService(courses, mocks.NewMockStatisticsRepository())
		courses.On("GetQueue", ctx, int64(5)).Return(nil, apperrors.ErrQueueNotFound)

		_, err := svc.QueueStatistics(ctx, ports.QueueStatisticsParams{QueueID: 5})

		assert.ErrorIs(t, err, apperrors.ErrQueueNotFound)
	})
}

func TestStatisticsQueryService_QueueHeatmap(t *testing.T) {
	ctx := context.Background()

	t.Run("fills the grid", func(t *testing.T) {
		courses := mocks.NewMockCourseRepository()
		stats := mocks.NewMockStatisticsRepository()
		svc := services.NewStatisticsQueryService(courses, stats)

		day, hour := 1, 17
		courses.On("GetQueue", ctx, int64(5)).Return(&domain.Queue{ID: 5}, nil)
		stats.On("ListQueueStatistics", ctx, mock.AnythingOfType("ports.QueueStatisticsFilter")).
			Return([]domain.QueueStatistic{{QueueID: 5, Metric: domain.MetricHeatmapWait, Day: &day, Hour: &hour, Value: 650}}, nil)

		heatmap, err := svc.QueueHeatmap(ctx, 5, domain.MetricHeatmapWait)

		require.NoError(t, err)
		assert.Equal(t, 650.0, heatmap.Values[1][17])
		assert.Equal(t, 0.0, heatmap.Values[0][0])
	})

	t.Run("rejects dated metrics", func(t *testing.T) {
		svc := services.NewStatisticsQueryService(mocks.NewMockCourseRepository(), mocks.NewMockStatisticsRepository())

		_, err := svc.QueueHeatmap(ctx, 5, domain.MetricAvgWait)

		assert.ErrorIs(t, err, apperrors.ErrUnknownMetric)
	})
}

func TestStatisticsQueryService_Leaderboard(t *testing.T) {
	ctx := context.Background()

	t.Run("clamps the limit", func(t *testing.T) {
		courses := mocks.NewMockCourseRepository()
		stats := mocks.NewMockStatisticsRepository()
		svc := services.NewStatisticsQueryService(courses, stats)

		courses.On("GetCourse", ctx, int64(3)).Return(&domain.Course{ID: 3}, nil)
		stats.On("Leaderboard", ctx, int64(3), domain.MetricInstrQuestionsAnswered, 100).
			Return([]domain.LeaderboardEntry{{UserID: uuid.New(), FullName: "TA One", Value: 42}}, nil)

		entries, err := svc.Leaderboard(ctx, 3, domain.MetricInstrQuestionsAnswered, 5000)

		require.NoError(t, err)
		assert.Len(t, entries, 1)
		stats.AssertExpectations(t)
	})

	t.Run("defaults the limit", func(t *testing.T) {
		courses := mocks.NewMockCourseRepository()
		stats := mocks.NewMockStatisticsRepository()
		svc := services.NewStatisticsQueryService(courses, stats)

		courses.On("GetCourse", ctx, int64(3)).Return(&domain.Course{ID: 3}, nil)
		stats.On("Leaderboard", ctx, int64(3), domain.MetricStudentQuestionsAsked, 10).Return([]domain.LeaderboardEntry{}, nil)

		_, err := svc.Leaderboard(ctx, 3, domain.MetricStudentQuestionsAsked, 0)

		require.NoError(t, err)
		stats.AssertExpectations(t)
	})

	t.Run("unknown metric", func(t *testing.T) {
		svc := services.NewStatisticsQueryService(mocks.NewMockCourseRepository(), mocks.NewMockStatisticsRepository())

		_, err := svc.Leaderboard(ctx, 3, domain.MembershipMetric("KARMA"), 10)

		assert.ErrorIs(t, err, apperrors.ErrUnknownMetric)
	})
}

func TestStatisticsQueryService_MemberStatistics(t *testing.T) {
	ctx := context.Background()
	courses := mocks.NewMockCourseRepository()
	stats := mocks.NewMockStatisticsRepository()
	svc := services.NewStatisticsQueryService(courses, stats)
	userID := uuid.New()

	courses.On("GetCourse", ctx, int64(3)).Return(nil, apperrors.ErrCourseNotFound)

	_, err := svc.MemberStatistics(ctx, 3, userID)

	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)
	stats.AssertNotCalled(t, "ListMembershipStatistics", mock.Anything, mock.Anything, mock.Anything)
}
