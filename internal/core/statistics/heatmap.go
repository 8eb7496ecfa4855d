package statistics

import (
	"time"

	"github.com/lorrc/ohq-statistics/internal/core/domain"
)

// BucketQuestions splits questions into heatmap buckets by the local weekday
// and hour they were asked at.
func BucketQuestions(questions []domain.Question, loc *time.Location) map[domain.HeatmapBucket][]domain.Question {
	buckets := make(map[domain.HeatmapBucket][]domain.Question)
	for _, q := range questions {
		b := domain.BucketOf(q.TimeAsked, loc)
		buckets[b] = append(buckets[b], q)
	}
	return buckets
}

// WaitHeatmap returns the average wait for every requested bucket. Buckets
// without questions are present with a value of 0.
func WaitHeatmap(questions []domain.Question, buckets []domain.HeatmapBucket, loc *time.Location) map[domain.HeatmapBucket]float64 {
	return heatmap(questions, buckets, loc, func(qs []domain.Question) float64 {
		return AverageWait(qs)
	})
}

// QuestionsPerTAHeatmap returns the per-TA throughput for every requested
// bucket. Buckets without questions are present with a value of 0.
func QuestionsPerTAHeatmap(questions []domain.Question, buckets []domain.HeatmapBucket, loc *time.Location) map[domain.HeatmapBucket]float64 {
	return heatmap(questions, buckets, loc, func(qs []domain.Question) float64 {
		return QuestionsPerTA(qs, loc)
	})
}

func heatmap(
	questions []domain.Question,
	buckets []domain.HeatmapBucket,
	loc *time.Location,
	reduce func([]domain.Question) float64,
) map[domain.HeatmapBucket]float64 {
	grouped := BucketQuestions(questions, loc)
	values := make(map[domain.HeatmapBucket]float64, len(buckets))
	for _, b := range buckets {
		values[b] = reduce(grouped[b])
	}
	return values
}
