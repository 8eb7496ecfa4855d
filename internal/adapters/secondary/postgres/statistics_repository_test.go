package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lorrc/ohq-statistics/internal/core/domain"
	"github.com/lorrc/ohq-statistics/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatisticsRepository_UpsertQueueStatistics(t *testing.T) {
	ctx := context.Background()
	s := newSeed(t)
	repo := NewStatisticsRepository(testPool)

	queueID := s.queue(s.course(false), true, false)
	sunday := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	dated, err := domain.NewDatedQueueStatistic(queueID, domain.MetricAvgWait, sunday, 500)
	require.NoError(t, err)
	cell, err := domain.NewHeatmapQueueStatistic(queueID, domain.MetricHeatmapWait, domain.HeatmapBucket{Day: 1, Hour: 17}, 650)
	require.NoError(t, err)

	require.NoError(t, repo.UpsertQueueStatistics(ctx, []domain.QueueStatistic{dated, cell}))

	t.Run("rerun replaces values", func(t *testing.T) {
		dated.Value = 250.5
		cell.Value = 0
		require.NoError(t, repo.UpsertQueueStatistics(ctx, []domain.QueueStatistic{dated, cell}))

		stats, err := repo.ListQueueStatistics(ctx, ports.QueueStatisticsFilter{QueueID: queueID})
		require.NoError(t, err)
		require.Len(t, stats, 2)

		byMetric := map[domain.QueueMetric]domain.QueueStatistic{}
		for _, st := range stats {
			byMetric[st.Metric] = st
		}
		avg := byMetric[domain.MetricAvgWait]
		require.NotNil(t, avg.Date)
		assert.Equal(t, sunday, *avg.Date)
		assert.Nil(t, avg.Day)
		assert.InDelta(t, 250.5, avg.Value, 1e-8)

		heat := byMetric[domain.MetricHeatmapWait]
		assert.Nil(t, heat.Date)
		require.NotNil(t, heat.Day)
		require.NotNil(t, heat.Hour)
		assert.Equal(t, 1, *heat.Day)
		assert.Equal(t, 17, *heat.Hour)
		assert.Equal(t, 0.0, heat.Value)
	})

	t.Run("date filter", func(t *testing.T) {
		metric := domain.MetricAvgWait
		from := sunday.AddDate(0, 0, 1)
		stats, err := repo.ListQueueStatistics(ctx, ports.QueueStatisticsFilter{QueueID: queueID, Metric: &metric, DateFrom: &from})
		require.NoError(t, err)
		assert.Empty(t, stats)
	})

	t.Run("rejects keyless rows", func(t *testing.T) {
		err := repo.UpsertQueueStatistics(ctx, []domain.QueueStatistic{{QueueID: queueID, Metric: domain.MetricAvgWait}})
		assert.Error(t, err)
	})
}

func TestStatisticsRepository_MembershipStatistics(t *testing.T) {
	ctx := context.Background()
	s := newSeed(t)
	repo := NewStatisticsRepository(testPool)

	courseID := s.course(false)
	alice := s.user("Alice")
	bob := s.user("Bob")

	metric := domain.MetricInstrQuestionsAnswered
	require.NoError(t, repo.UpsertMembershipStatistics(ctx, []domain.MembershipStatistic{
		{UserID: alice, CourseID: courseID, Metric: metric, Value: 4},
		{UserID: bob, CourseID: courseID, Metric: metric, Value: 9},
	}))
	require.NoError(t, repo.UpsertMembershipStatistics(ctx, []domain.MembershipStatistic{
		{UserID: alice, CourseID: courseID, Metric: metric, Value: 12},
	}))

	stats, err := repo.ListMembershipStatistics(ctx, courseID, alice)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 12.0, stats[0].Value)

	board, err := repo.Leaderboard(ctx, courseID, metric, 10)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "Alice", board[0].FullName)
	assert.Equal(t, 12.0, board[0].Value)
	assert.Equal(t, bob, board[1].UserID)

	board, err = repo.Leaderboard(ctx, courseID, metric, 1)
	require.NoError(t, err)
	assert.Len(t, board, 1)
}

func TestStatisticsRepository_UpsertInTransaction(t *testing.T) {
	ctx := context.Background()
	s := newSeed(t)
	repo := NewStatisticsRepository(testPool)
	tm := NewTransactionManager(testPool)

	courseID := s.course(false)
	user := s.user("Carol")
	boom := errors.New("boom")

	err := tm.WithTransaction(ctx, func(ctx context.Context) error {
		if err := repo.UpsertMembershipStatistics(ctx, []domain.MembershipStatistic{
			{UserID: user, CourseID: courseID, Metric: domain.MetricStudentQuestionsAsked, Value: 3},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	stats, err := repo.ListMembershipStatistics(ctx, courseID, user)
	require.NoError(t, err)
	assert.Empty(t, stats, "rolled back writes must not be visible")
}
