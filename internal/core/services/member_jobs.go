package services

import (
	"context"
	"fmt"
	"time"

	"github.com/lorrc/ohq-statistics/internal/core/domain"
	"github.com/lorrc/ohq-statistics/internal/core/ports"
	"github.com/lorrc/ohq-statistics/internal/core/statistics"
)

// runCourseStat refreshes the per-member statistics of every non-archived
// course over yesterday.
func (s *StatisticsService) runCourseStat(ctx context.Context, now time.Time, report *domain.RunReport) []error {
	courses, err := s.courseRepo.ListActiveCourses(ctx)
	if err != nil {
		report.UnitsFailed++
		return []error{fmt.Errorf("%s: list courses: %w", OpCourseStat, err)}
	}

	units := make([]unit, 0, len(courses))
	for _, course := range courses {
		units = append(units, unit{kind: "course", id: course.ID, courseID: course.ID, course: course})
	}

	window := ports.NewTimeRange(domain.DailyWindow(now, s.opts.Location).Bounds(s.opts.Location))
	return s.runUnits(ctx, OpCourseStat, units, report, func(ctx context.Context, u unit) (int, error) {
		return s.runCourseMembers(ctx, u.course, window)
	})
}

// runCourseMembers writes every member's statistics for one course. Members
// without activity get zeros.
func (s *StatisticsService) runCourseMembers(ctx context.Context, course *domain.Course, window *ports.TimeRange) (int, error) {
	members, err := s.courseRepo.ListMemberships(ctx, course.ID)
	if err != nil {
		return 0, fmt.Errorf("list memberships: %w", err)
	}

	asked, err := s.questionRepo.Find(ctx, ports.QuestionFilter{CourseID: &course.ID, AskedIn: window})
	if err != nil {
		return 0, fmt.Errorf("fetch asked questions: %w", err)
	}

	answeredQuestions, err := s.questionRepo.Find(ctx, ports.QuestionFilter{
		CourseID:      &course.ID,
		Statuses:      answered,
		RespondedToIn: window,
	})
	if err != nil {
		return 0, fmt.Errorf("fetch answered questions: %w", err)
	}

	byAsker := statistics.GroupByAsker(asked)
	byResponder := statistics.GroupByResponder(answeredQuestions)

	var stats []domain.MembershipStatistic
	for _, m := range members {
		if m.IsStaff() {
			stats = append(stats, statistics.SummarizeInstructor(byResponder[m.UserID]).Statistics(m.UserID, course.ID)...)
		} else {
			stats = append(stats, statistics.SummarizeStudent(byAsker[m.UserID]).Statistics(m.UserID, course.ID)...)
		}
	}

	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		return s.statsRepo.UpsertMembershipStatistics(ctx, stats)
	})
	if err != nil {
		return 0, fmt.Errorf("store statistics: %w", err)
	}
	return len(stats), nil
}

// runWaitEstimates refreshes the estimated wait shown on each open queue from
// the questions picked up within the trailing estimate window.
func (s *StatisticsService) runWaitEstimates(ctx context.Context, now time.Time, report *domain.RunReport) []error {
	queues, err := s.courseRepo.ListActiveQueues(ctx)
	if err != nil {
		report.UnitsFailed++
		return []error{fmt.Errorf("%s: list queues: %w", OpCalculateWaitTimes, err)}
	}

	units := make([]unit, 0, len(queues))
	for _, queue := range queues {
		units = append(units, unit{kind: "queue", id: queue.ID, courseID: queue.CourseID, queue: queue})
	}

	window := ports.NewTimeRange(now.Add(-s.opts.WaitEstimateWindow), now)
	return s.runUnits(ctx, OpCalculateWaitTimes, units, report, func(ctx context.Context, u unit) (int, error) {
		questions, err := s.questionRepo.Find(ctx, ports.QuestionFilter{
			QueueID:                &u.queue.ID,
			ResponseStartedIn:      window,
			RequireResponseStarted: true,
		})
		if err != nil {
			return 0, fmt.Errorf("fetch questions: %w", err)
		}

		minutes := statistics.EstimateWaitMinutes(questions)
		if err := s.courseRepo.UpdateEstimatedWaitTime(ctx, u.queue.ID, minutes); err != nil {
			return 0, fmt.Errorf("update estimated wait: %w", err)
		}
		return 1, nil
	})
}
