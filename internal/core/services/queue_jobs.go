package services

import (
	"context"
	"fmt"
	"time"

	"github.com/lorrc/ohq-statistics/internal/core/domain"
	"github.com/lorrc/ohq-statistics/internal/core/ports"
	"github.com/lorrc/ohq-statistics/internal/core/statistics"
)

// queueJob pairs the record store filter for one queue with the computer
// that turns the matching questions into statistics.
type queueJob struct {
	filter  func(queue *domain.Queue, now time.Time) ports.QuestionFilter
	compute func(queue *domain.Queue, questions []domain.Question, now time.Time) ([]domain.QueueStatistic, error)
}

var answered = []domain.QuestionState{domain.StateAnswered}

func (s *StatisticsService) buildQueueJobs() map[string]queueJob {
	loc := s.opts.Location

	weekly := func(now time.Time) *ports.TimeRange {
		return ports.NewTimeRange(domain.WeeklyWindow(now, loc).Bounds(loc))
	}
	weeklyStat := func(metric domain.QueueMetric, reduce func([]domain.Question) float64) func(*domain.Queue, []domain.Question, time.Time) ([]domain.QueueStatistic, error) {
		return func(queue *domain.Queue, questions []domain.Question, now time.Time) ([]domain.QueueStatistic, error) {
			stat, err := domain.NewDatedQueueStatistic(queue.ID, metric, domain.WeeklyWindow(now, loc).Start, reduce(questions))
			if err != nil {
				return nil, err
			}
			return []domain.QueueStatistic{stat}, nil
		}
	}

	return map[string]queueJob{
		OpAvgQueueWait: {
			filter: func(queue *domain.Queue, now time.Time) ports.QuestionFilter {
				return ports.QuestionFilter{QueueID: &queue.ID, AskedIn: weekly(now), RequireResponseStarted: true}
			},
			compute: weeklyStat(domain.MetricAvgWait, statistics.AverageWait),
		},
		OpAvgTimeHelping: {
			filter: func(queue *domain.Queue, now time.Time) ports.QuestionFilter {
				return ports.QuestionFilter{
					QueueID:            &queue.ID,
					Statuses:           answered,
					ResponseStartedIn:  weekly(now),
					RequireRespondedTo: true,
				}
			},
			compute: weeklyStat(domain.MetricAvgTimeHelping, statistics.AverageTimeHelping),
		},
		OpNumQuestionsAnswered: {
			filter: func(queue *domain.Queue, now time.Time) ports.QuestionFilter {
				return ports.QuestionFilter{QueueID: &queue.ID, Statuses: answered, RespondedToIn: weekly(now)}
			},
			compute: weeklyStat(domain.MetricNumAnswered, statistics.CountAnswered),
		},
		OpNumStudentsHelped: {
			filter: func(queue *domain.Queue, now time.Time) ports.QuestionFilter {
				return ports.QuestionFilter{QueueID: &queue.ID, Statuses: answered, RespondedToIn: weekly(now)}
			},
			compute: weeklyStat(domain.MetricStudentsHelped, statistics.CountDistinctAskers),
		},
		OpWaitTimeDays: {
			filter: func(queue *domain.Queue, now time.Time) ports.QuestionFilter {
				return ports.QuestionFilter{
					QueueID:                &queue.ID,
					AskedIn:                ports.NewTimeRange(domain.DailyWindow(now, loc).Bounds(loc)),
					RequireResponseStarted: true,
				}
			},
			compute: func(queue *domain.Queue, questions []domain.Question, now time.Time) ([]domain.QueueStatistic, error) {
				stat, err := domain.NewDatedQueueStatistic(queue.ID, domain.MetricListWaitTimeDays, domain.Yesterday(now, loc), statistics.AverageWait(questions))
				if err != nil {
					return nil, err
				}
				return []domain.QueueStatistic{stat}, nil
			},
		},
		OpAvgWaitHeatmap:            s.heatmapJob(domain.MetricHeatmapWait, true, false),
		OpAvgWaitHeatmapHist:        s.heatmapJob(domain.MetricHeatmapWait, true, true),
		OpQuestionsPerTAHeatmap:     s.heatmapJob(domain.MetricHeatmapQuestionsPerTA, false, false),
		OpQuestionsPerTAHeatmapHist: s.heatmapJob(domain.MetricHeatmapQuestionsPerTA, false, true),
	}
}

// heatmapJob builds a heatmap operation. Without allDays only yesterday's
// weekday is refreshed; with it the whole 7x24 grid is.
func (s *StatisticsService) heatmapJob(metric domain.QueueMetric, requireStarted, allDays bool) queueJob {
	loc := s.opts.Location

	return queueJob{
		filter: func(queue *domain.Queue, now time.Time) ports.QuestionFilter {
			filter := ports.QuestionFilter{
				QueueID:                &queue.ID,
				Location:               loc,
				RequireResponseStarted: requireStarted,
			}
			if cutoff := domain.HeatmapCutoff(now, loc, s.opts.HeatmapLookbackWeeks); cutoff != nil {
				filter.AskedIn = &ports.TimeRange{From: cutoff}
			}
			if !allDays {
				day := domain.HeatmapDay(domain.Yesterday(now, loc).Weekday())
				filter.AskedOnDay = &day
			}
			return filter
		},
		compute: func(queue *domain.Queue, questions []domain.Question, now time.Time) ([]domain.QueueStatistic, error) {
			buckets := domain.AllBuckets()
			if !allDays {
				buckets = domain.BucketsForDay(domain.HeatmapDay(domain.Yesterday(now, loc).Weekday()))
			}

			var values map[domain.HeatmapBucket]float64
			if metric == domain.MetricHeatmapWait {
				values = statistics.WaitHeatmap(questions, buckets, loc)
			} else {
				values = statistics.QuestionsPerTAHeatmap(questions, buckets, loc)
			}

			stats := make([]domain.QueueStatistic, 0, len(buckets))
			for _, b := range buckets {
				stat, err := domain.NewHeatmapQueueStatistic(queue.ID, metric, b, values[b])
				if err != nil {
					return nil, err
				}
				stats = append(stats, stat)
			}
			return stats, nil
		},
	}
}

// runQueueJob fetches, computes and stores one queue's statistics. All rows
// for the queue are written in a single transaction.
func (s *StatisticsService) runQueueJob(ctx context.Context, job queueJob, queue *domain.Queue, now time.Time) (int, error) {
	questions, err := s.questionRepo.Find(ctx, job.filter(queue, now))
	if err != nil {
		return 0, fmt.Errorf("fetch questions: %w", err)
	}

	stats, err := job.compute(queue, questions, now)
	if err != nil {
		return 0, fmt.Errorf("compute statistics: %w", err)
	}

	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		return s.statsRepo.UpsertQueueStatistics(ctx, stats)
	})
	if err != nil {
		return 0, fmt.Errorf("store statistics: %w", err)
	}
	return len(stats), nil
}
