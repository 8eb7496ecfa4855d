// Package statistics holds the metric computers. Each one reduces a set of
// questions, already narrowed to a queue and a window by the record store, to
// a single value. They never touch storage and an empty input always yields 0.
package statistics

import (
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/ohq-statistics/internal/core/domain"
)

// mean averages whole-second samples. No samples means 0.
func mean(total int64, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}

// AverageWait is the mean wait in whole seconds over questions that were
// picked up. Questions without a usable wait are skipped.
func AverageWait(questions []domain.Question) float64 {
	var total int64
	var n int
	for _, q := range questions {
		if secs, ok := q.WaitSeconds(); ok {
			total += secs
			n++
		}
	}
	return mean(total, n)
}

// AverageTimeHelping is the mean help duration in whole seconds over answered
// questions.
func AverageTimeHelping(questions []domain.Question) float64 {
	var total int64
	var n int
	for _, q := range questions {
		if !q.IsAnswered() {
			continue
		}
		if secs, ok := q.HelpSeconds(); ok {
			total += secs
			n++
		}
	}
	return mean(total, n)
}

// CountAnswered counts answered questions.
func CountAnswered(questions []domain.Question) float64 {
	var n int
	for _, q := range questions {
		if q.IsAnswered() {
			n++
		}
	}
	return float64(n)
}

// CountDistinctAskers counts the distinct accounts behind answered questions.
func CountDistinctAskers(questions []domain.Question) float64 {
	askers := make(map[uuid.UUID]struct{})
	for _, q := range questions {
		if q.IsAnswered() && q.AskedByID != nil {
			askers[*q.AskedByID] = struct{}{}
		}
	}
	return float64(len(askers))
}

// QuestionsPerTA groups questions by the local calendar date they were asked
// on and averages questions/distinct responders across those dates. A date on
// which nobody responded contributes its raw question count.
func QuestionsPerTA(questions []domain.Question, loc *time.Location) float64 {
	type day struct {
		questions int
		tas       map[uuid.UUID]struct{}
	}
	days := make(map[time.Time]*day)

	for _, q := range questions {
		key := domain.CalendarDate(q.TimeAsked.In(loc))
		d, ok := days[key]
		if !ok {
			d = &day{tas: make(map[uuid.UUID]struct{})}
			days[key] = d
		}
		d.questions++
		if q.RespondedToByID != nil {
			d.tas[*q.RespondedToByID] = struct{}{}
		}
	}

	if len(days) == 0 {
		return 0
	}

	var sum float64
	for _, d := range days {
		if len(d.tas) == 0 {
			sum += float64(d.questions)
			continue
		}
		sum += float64(d.questions) / float64(len(d.tas))
	}
	return sum / float64(len(days))
}

// AverageWaitByDate is AverageWait restricted to questions asked on one local
// calendar date.
func AverageWaitByDate(questions []domain.Question, day time.Time, loc *time.Location) float64 {
	window := domain.DateRange{Start: day, End: day}
	matching := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if window.Contains(q.TimeAsked, loc) {
			matching = append(matching, q)
		}
	}
	return AverageWait(matching)
}
