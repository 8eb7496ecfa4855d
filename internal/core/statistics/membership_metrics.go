package statistics

import (
	"math"

	"github.com/google/uuid"
	"github.com/lorrc/ohq-statistics/internal/core/domain"
)

// StudentSummary holds the per-student figures for one course and window.
type StudentSummary struct {
	AvgTimeHelped   float64
	AvgTimeWaiting  float64
	QuestionsAsked  float64
	TimeBeingHelped float64
}

// InstructorSummary holds the per-staff figures for one course and window.
type InstructorSummary struct {
	AvgTimeHelping    float64
	StudentsPerHour   float64
	QuestionsAnswered float64
	TimeHelping       float64
}

// SummarizeStudent reduces the questions a student asked. The averages only
// use questions that were both picked up and finished.
func SummarizeStudent(questions []domain.Question) StudentSummary {
	var helped, waiting int64
	var n int
	for _, q := range questions {
		help, okHelp := q.HelpSeconds()
		wait, okWait := q.WaitSeconds()
		if !okHelp || !okWait {
			continue
		}
		helped += help
		waiting += wait
		n++
	}
	return StudentSummary{
		AvgTimeHelped:   mean(helped, n),
		AvgTimeWaiting:  mean(waiting, n),
		QuestionsAsked:  float64(len(questions)),
		TimeBeingHelped: float64(helped),
	}
}

// SummarizeInstructor reduces the questions a staff member answered.
// StudentsPerHour is answered questions per hour of helping, 0 when no time
// was spent.
func SummarizeInstructor(questions []domain.Question) InstructorSummary {
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

	var perHour float64
	if total > 0 {
		perHour = float64(n) / float64(total) * 3600
	}

	return InstructorSummary{
		AvgTimeHelping:    mean(total, n),
		StudentsPerHour:   perHour,
		QuestionsAnswered: float64(n),
		TimeHelping:       float64(total),
	}
}

// Statistics flattens the summary into rows for one member.
func (s StudentSummary) Statistics(userID uuid.UUID, courseID int64) []domain.MembershipStatistic {
	return []domain.MembershipStatistic{
		{UserID: userID, CourseID: courseID, Metric: domain.MetricStudentAvgTimeHelped, Value: s.AvgTimeHelped},
		{UserID: userID, CourseID: courseID, Metric: domain.MetricStudentAvgTimeWaiting, Value: s.AvgTimeWaiting},
		{UserID: userID, CourseID: courseID, Metric: domain.MetricStudentQuestionsAsked, Value: s.QuestionsAsked},
		{UserID: userID, CourseID: courseID, Metric: domain.MetricStudentTimeBeingHelped, Value: s.TimeBeingHelped},
	}
}

// Statistics flattens the summary into rows for one member.
func (s InstructorSummary) Statistics(userID uuid.UUID, courseID int64) []domain.MembershipStatistic {
	return []domain.MembershipStatistic{
		{UserID: userID, CourseID: courseID, Metric: domain.MetricInstrAvgTimeHelping, Value: s.AvgTimeHelping},
		{UserID: userID, CourseID: courseID, Metric: domain.MetricInstrAvgStudentsPerHour, Value: s.StudentsPerHour},
		{UserID: userID, CourseID: courseID, Metric: domain.MetricInstrQuestionsAnswered, Value: s.QuestionsAnswered},
		{UserID: userID, CourseID: courseID, Metric: domain.MetricInstrTimeHelping, Value: s.TimeHelping},
	}
}

// GroupByAsker buckets questions by the account that asked them.
func GroupByAsker(questions []domain.Question) map[uuid.UUID][]domain.Question {
	groups := make(map[uuid.UUID][]domain.Question)
	for _, q := range questions {
		if q.AskedByID != nil {
			groups[*q.AskedByID] = append(groups[*q.AskedByID], q)
		}
	}
	return groups
}

// GroupByResponder buckets questions by the staff member who answered them.
func GroupByResponder(questions []domain.Question) map[uuid.UUID][]domain.Question {
	groups := make(map[uuid.UUID][]domain.Question)
	for _, q := range questions {
		if q.RespondedToByID != nil {
			groups[*q.RespondedToByID] = append(groups[*q.RespondedToByID], q)
		}
	}
	return groups
}

// EstimateWaitMinutes averages the waits of recently picked up questions and
// rounds to whole minutes. It returns -1 when there is nothing to go on.
func EstimateWaitMinutes(questions []domain.Question) int {
	var total int64
	var n int
	for _, q := range questions {
		if secs, ok := q.WaitSeconds(); ok {
			total += secs
			n++
		}
	}
	if n == 0 {
		return -1
	}
	return int(math.Round(mean(total, n) / 60))
}
