package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/ohq-statistics/internal/core/domain"
	"github.com/lorrc/ohq-statistics/internal/core/ports"
	"github.com/lorrc/ohq-statistics/internal/core/utils"
)

// QuestionRepository reads the question log.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

var _ ports.QuestionRepository = (*QuestionRepository)(nil)

func NewQuestionRepository(pool *pgxpool.Pool) ports.QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const selectQuestions = `
SELECT q.id, q.queue_id, q.text, q.status, q.asked_by_id, q.responded_to_by_id,
       q.time_asked, q.time_response_started, q.time_responded_to, q.time_withdrawn, q.time_rejected
FROM questions q
JOIN queues qu ON qu.id = q.queue_id
`

// questionState mirrors domain.Question.State: a stored status wins, otherwise
// the state follows from which timestamps are set.
const questionState = `COALESCE(q.status, CASE
    WHEN q.time_rejected IS NOT NULL THEN 'REJECTED'
    WHEN q.time_withdrawn IS NOT NULL THEN 'WITHDRAWN'
    WHEN q.time_responded_to IS NOT NULL THEN 'ANSWERED'
    WHEN q.time_response_started IS NOT NULL THEN 'STARTED'
    ELSE 'ACTIVE' END)`

// queryBuilder accumulates WHERE conditions with positional arguments.
type queryBuilder struct {
	conds []string
	args  []any
}

func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *queryBuilder) where(cond string) {
	b.conds = append(b.conds, cond)
}

func (b *queryBuilder) timeRange(column string, r *ports.TimeRange) {
	if r == nil {
		return
	}
	if r.From != nil {
		b.where(column + " >= " + b.arg(*r.From))
	}
	if r.To != nil {
		b.where(column + " < " + b.arg(*r.To))
	}
}

func (b *queryBuilder) sql(base, tail string) string {
	var sb strings.Builder
	sb.WriteString(base)
	if len(b.conds) > 0 {
		sb.WriteString("WHERE ")
		sb.WriteString(strings.Join(b.conds, "\n  AND "))
		sb.WriteString("\n")
	}
	sb.WriteString(tail)
	return sb.String()
}

// Find returns the questions matching filter ordered by the time they were
// asked.
func (r *QuestionRepository) Find(ctx context.Context, filter ports.QuestionFilter) ([]domain.Question, error) {
	var b queryBuilder

	if filter.QueueID != nil {
		b.where("q.queue_id = " + b.arg(*filter.QueueID))
	}
	if filter.CourseID != nil {
		b.where("qu.course_id = " + b.arg(*filter.CourseID))
	}
	b.timeRange("q.time_asked", filter.AskedIn)
	b.timeRange("q.time_response_started", filter.ResponseStartedIn)
	b.timeRange("q.time_responded_to", filter.RespondedToIn)

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		b.where(questionState + " = ANY(" + b.arg(statuses) + ")")
	}
	if filter.AskedByID != nil {
		b.where("q.asked_by_id = " + b.arg(utils.ToUUID(filter.AskedByID)))
	}
	if filter.RespondedToByID != nil {
		b.where("q.responded_to_by_id = " + b.arg(utils.ToUUID(filter.RespondedToByID)))
	}
	if filter.AskedOnDay != nil {
		loc := filter.Location
		if loc == nil {
			loc = time.UTC
		}
		// ISODOW runs Monday=1..Sunday=7.
		b.where(fmt.Sprintf("EXTRACT(ISODOW FROM q.time_asked AT TIME ZONE %s)::int - 1 = %s",
			b.arg(loc.String()), b.arg(*filter.AskedOnDay)))
	}
	if filter.RequireResponseStarted {
		b.where("q.time_response_started IS NOT NULL")
	}
	if filter.RequireRespondedTo {
		b.where("q.time_responded_to IS NOT NULL")
	}

	db := GetDBTX(ctx, r.pool)
	rows, err := db.Query(ctx, b.sql(selectQuestions, "ORDER BY q.time_asked, q.id"), b.args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var (
			q         domain.Question
			status    pgtype.Text
			askedBy   pgtype.UUID
			responder pgtype.UUID
			started   pgtype.Timestamptz
			responded pgtype.Timestamptz
			withdrawn pgtype.Timestamptz
			rejected  pgtype.Timestamptz
		)
		if err := rows.Scan(
			&q.ID, &q.QueueID, &q.Text, &status, &askedBy, &responder,
			&q.TimeAsked, &started, &responded, &withdrawn, &rejected,
		); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}

		q.Status = domain.QuestionState(utils.FromString(status))
		q.AskedByID = utils.FromUUID(askedBy)
		q.RespondedToByID = utils.FromUUID(responder)
		q.TimeResponseStarted = utils.FromTimestamptz(started)
		q.TimeRespondedTo = utils.FromTimestamptz(responded)
		q.TimeWithdrawn = utils.FromTimestamptz(withdrawn)
		q.TimeRejected = utils.FromTimestamptz(rejected)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}

	return questions, nil
}
