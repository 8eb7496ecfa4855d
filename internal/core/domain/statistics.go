package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// QueueMetric identifies a per-queue statistic.
type QueueMetric string

const (
	MetricAvgWait               QueueMetric = "AVG_WAIT"
	MetricAvgTimeHelping        QueueMetric = "AVG_TIME_HELPING"
	MetricHeatmapWait           QueueMetric = "HEATMAP_WAIT"
	MetricNumAnswered           QueueMetric = "NUM_ANSWERED"
	MetricStudentsHelped        QueueMetric = "STUDENTS_HELPED"
	MetricHeatmapQuestionsPerTA QueueMetric = "HEATMAP_QUESTIONS_PER_TA"
	MetricListWaitTimeDays      QueueMetric = "LIST_WAIT_TIME_DAYS"
)

// QueueMetrics lists every queue metric.
var QueueMetrics = []QueueMetric{
	MetricAvgWait,
	MetricAvgTimeHelping,
	MetricHeatmapWait,
	MetricNumAnswered,
	MetricStudentsHelped,
	MetricHeatmapQuestionsPerTA,
	MetricListWaitTimeDays,
}

// IsValid reports whether m is a known queue metric.
func (m QueueMetric) IsValid() bool {
	for _, known := range QueueMetrics {
		if m == known {
			return true
		}
	}
	return false
}

// IsHeatmap reports whether the metric is keyed by (day, hour) instead of date.
func (m QueueMetric) IsHeatmap() bool {
	return m == MetricHeatmapWait || m == MetricHeatmapQuestionsPerTA
}

// QueueStatistic is a computed fact about a queue. Exactly one of Date or
// (Day, Hour) is set, depending on the metric.
type QueueStatistic struct {
	QueueID int64
	Metric  QueueMetric
	Date    *time.Time
	Day     *int
	Hour    *int
	Value   float64
}

// NewDatedQueueStatistic builds a statistic keyed by calendar date.
func NewDatedQueueStatistic(queueID int64, metric QueueMetric, date time.Time, value float64) (QueueStatistic, error) {
	if metric.IsHeatmap() {
		return QueueStatistic{}, fmt.Errorf("metric %s is keyed by day and hour", metric)
	}
	d := CalendarDate(date)
	return QueueStatistic{QueueID: queueID, Metric: metric, Date: &d, Value: value}, nil
}

// NewHeatmapQueueStatistic builds a statistic keyed by weekday and hour.
func NewHeatmapQueueStatistic(queueID int64, metric QueueMetric, bucket HeatmapBucket, value float64) (QueueStatistic, error) {
	if !metric.IsHeatmap() {
		return QueueStatistic{}, fmt.Errorf("metric %s is keyed by date", metric)
	}
	if !bucket.IsValid() {
		return QueueStatistic{}, fmt.Errorf("invalid heatmap bucket %d/%d", bucket.Day, bucket.Hour)
	}
	day, hour := bucket.Day, bucket.Hour
	return QueueStatistic{QueueID: queueID, Metric: metric, Day: &day, Hour: &hour, Value: value}, nil
}

// MembershipMetric identifies a per-user-per-course statistic.
type MembershipMetric string

const (
	MetricStudentAvgTimeHelped    MembershipMetric = "STUDENT_AVG_TIME_HELPED"
	MetricStudentAvgTimeWaiting   MembershipMetric = "STUDENT_AVG_TIME_WAITING"
	MetricInstrAvgTimeHelping     MembershipMetric = "INSTR_AVG_TIME_HELPING"
	MetricInstrAvgStudentsPerHour MembershipMetric = "INSTR_AVG_STUDENTS_PER_HOUR"
	MetricStudentQuestionsAsked   MembershipMetric = "STUDENT_QUESTIONS_ASKED"
	MetricStudentTimeBeingHelped  MembershipMetric = "STUDENT_TIME_BEING_HELPED"
	MetricInstrQuestionsAnswered  MembershipMetric = "INSTR_QUESTIONS_ANSWERED"
	MetricInstrTimeHelping        MembershipMetric = "INSTR_TIME_HELPING"
)

// MembershipMetrics lists every membership metric.
var MembershipMetrics = []MembershipMetric{
	MetricStudentAvgTimeHelped,
	MetricStudentAvgTimeWaiting,
	MetricInstrAvgTimeHelping,
	MetricInstrAvgStudentsPerHour,
	MetricStudentQuestionsAsked,
	MetricStudentTimeBeingHelped,
	MetricInstrQuestionsAnswered,
	MetricInstrTimeHelping,
}

// IsValid reports whether m is a known membership metric.
func (m MembershipMetric) IsValid() bool {
	for _, known := range MembershipMetrics {
		if m == known {
			return true
		}
	}
	return false
}

// MembershipStatistic is a computed fact about one user in one course.
type MembershipStatistic struct {
	UserID   uuid.UUID
	CourseID int64
	Metric   MembershipMetric
	Value    float64
}

// LeaderboardEntry ranks a member by one membership metric.
type LeaderboardEntry struct {
	UserID   uuid.UUID
	FullName string
	Value    float64
}

// RunReport summarizes one batch operation.
type RunReport struct {
	RunID             uuid.UUID `json:"runId"`
	Operation         string    `json:"operation"`
	StartedAt         time.Time `json:"startedAt"`
	FinishedAt        time.Time `json:"finishedAt"`
	UnitsProcessed    int       `json:"unitsProcessed"`
	UnitsFailed       int       `json:"unitsFailed"`
	StatisticsWritten int       `json:"statisticsWritten"`
}

// Succeeded reports whether every unit of work completed.
func (r *RunReport) Succeeded() bool {
	return r.UnitsFailed == 0
}
