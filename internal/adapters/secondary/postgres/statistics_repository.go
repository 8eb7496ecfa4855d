package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/ohq-statistics/internal/core/domain"
	"github.com/lorrc/ohq-statistics/internal/core/ports"
	"github.com/lorrc/ohq-statistics/internal/core/utils"
)

// StatisticsRepository stores computed statistics. Every write is an upsert
// on the statistic's natural key, so re-running a job replaces its rows.
type StatisticsRepository struct {
	pool *pgxpool.Pool
}

var _ ports.StatisticsRepository = (*StatisticsRepository)(nil)

func NewStatisticsRepository(pool *pgxpool.Pool) ports.StatisticsRepository {
	return &StatisticsRepository{pool: pool}
}

const (
	upsertDatedQueueStatistic = `
INSERT INTO queue_statistics (queue_id, metric, date, value)
VALUES ($1, $2, $3, $4)
ON CONFLICT (queue_id, metric, date) WHERE date IS NOT NULL
DO UPDATE SET value = EXCLUDED.value`

	upsertHeatmapQueueStatistic = `
INSERT INTO queue_statistics (queue_id, metric, day, hour, value)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (queue_id, metric, day, hour) WHERE day IS NOT NULL
DO UPDATE SET value = EXCLUDED.value`

	upsertMembershipStatistic = `
INSERT INTO membership_statistics (user_id, course_id, metric, value)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, course_id, metric)
DO UPDATE SET value = EXCLUDED.value`
)

// UpsertQueueStatistics writes stats in one round trip.
func (r *StatisticsRepository) UpsertQueueStatistics(ctx context.Context, stats []domain.QueueStatistic) error {
	if len(stats) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, s := range stats {
		switch {
		case s.Date != nil:
			batch.Queue(upsertDatedQueueStatistic, s.QueueID, string(s.Metric), utils.ToDate(s.Date), s.Value)
		case s.Day != nil && s.Hour != nil:
			batch.Queue(upsertHeatmapQueueStatistic, s.QueueID, string(s.Metric), utils.ToInt2(s.Day), utils.ToInt2(s.Hour), s.Value)
		default:
			return fmt.Errorf("statistic %s for queue %d has no key", s.Metric, s.QueueID)
		}
	}

	return r.sendBatch(ctx, batch)
}

// UpsertMembershipStatistics writes stats in one round trip.
func (r *StatisticsRepository) UpsertMembershipStatistics(ctx context.Context, stats []domain.MembershipStatistic) error {
	if len(stats) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, s := range stats {
		batch.Queue(upsertMembershipStatistic, s.UserID, s.CourseID, string(s.Metric), s.Value)
	}

	return r.sendBatch(ctx, batch)
}

func (r *StatisticsRepository) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	results := GetDBTX(ctx, r.pool).SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("upsert statistic %d: %w", i, err)
		}
	}
	return results.Close()
}

// ListQueueStatistics returns stored queue statistics, dated rows by date and
// heatmap rows by bucket.
func (r *StatisticsRepository) ListQueueStatistics(ctx context.Context, filter ports.QueueStatisticsFilter) ([]domain.QueueStatistic, error) {
	var b queryBuilder
	b.where("queue_id = " + b.arg(filter.QueueID))
	if filter.Metric != nil {
		b.where("metric = " + b.arg(string(*filter.Metric)))
	}
	if filter.DateFrom != nil {
		b.where("date >= " + b.arg(utils.ToDate(filter.DateFrom)))
	}
	if filter.DateTo != nil {
		b.where("date <= " + b.arg(utils.ToDate(filter.DateTo)))
	}

	const base = "SELECT queue_id, metric, date, day, hour, value::float8 FROM queue_statistics\n"
	rows, err := GetDBTX(ctx, r.pool).Query(ctx, b.sql(base, "ORDER BY metric, date, day, hour"), b.args...)
	if err != nil {
		return nil, fmt.Errorf("query queue statistics: %w", err)
	}
	defer rows.Close()

	var stats []domain.QueueStatistic
	for rows.Next() {
		var (
			s      domain.QueueStatistic
			metric string
			date   pgtype.Date
			day    pgtype.Int2
			hour   pgtype.Int2
		)
		if err := rows.Scan(&s.QueueID, &metric, &date, &day, &hour, &s.Value); err != nil {
			return nil, fmt.Errorf("scan queue statistic: %w", err)
		}
		s.Metric = domain.QueueMetric(metric)
		s.Date = utils.FromDate(date)
		s.Day = utils.FromInt2(day)
		s.Hour = utils.FromInt2(hour)
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue statistics: %w", err)
	}
	return stats, nil
}

func (r *StatisticsRepository) ListMembershipStatistics(ctx context.Context, courseID int64, userID uuid.UUID) ([]domain.MembershipStatistic, error) {
	const query = `
SELECT user_id, course_id, metric, value::float8
FROM membership_statistics
WHERE course_id = $1 AND user_id = $2
ORDER BY metric`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, courseID, userID)
	if err != nil {
		return nil, fmt.Errorf("query membership statistics: %w", err)
	}
	defer rows.Close()

	var stats []domain.MembershipStatistic
	for rows.Next() {
		var (
			s      domain.MembershipStatistic
			metric string
		)
		if err := rows.Scan(&s.UserID, &s.CourseID, &metric, &s.Value); err != nil {
			return nil, fmt.Errorf("scan membership statistic: %w", err)
		}
		s.Metric = domain.MembershipMetric(metric)
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate membership statistics: %w", err)
	}
	return stats, nil
}

// Leaderboard ranks the members of a course by metric, highest first.
func (r *StatisticsRepository) Leaderboard(ctx context.Context, courseID int64, metric domain.MembershipMetric, limit int) ([]domain.LeaderboardEntry, error) {
	const query = `
SELECT s.user_id, u.full_name, s.value::float8
FROM membership_statistics s
JOIN users u ON u.id = s.user_id
WHERE s.course_id = $1 AND s.metric = $2
ORDER BY s.value DESC, u.full_name
LIMIT $3`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, courseID, string(metric), limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.FullName, &e.Value); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}
	return entries, nil
}
