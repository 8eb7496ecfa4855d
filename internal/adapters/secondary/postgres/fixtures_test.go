package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/ohq-statistics/internal/core/domain"
	"github.com/stretchr/testify/require"
)

// seed inserts rows directly so repository tests do not depend on each other.
type seed struct {
	t   *testing.T
	ctx context.Context
}

func newSeed(t *testing.T) *seed {
	t.Helper()
	require.NotNil(t, testPool, "testPool is nil. TestMain may not have run.")
	return &seed{t: t, ctx: context.Background()}
}

func (s *seed) user(name string) uuid.UUID {
	s.t.Helper()
	id := uuid.New()
	_, err := testPool.Exec(s.ctx,
		`INSERT INTO users (id, full_name, email) VALUES ($1, $2, $3)`,
		id, name, fmt.Sprintf("%s@example.com", id))
	require.NoError(s.t, err)
	return id
}

func (s *seed) course(archived bool) int64 {
	s.t.Helper()
	var id int64
	err := testPool.QueryRow(s.ctx,
		`INSERT INTO courses (department, course_code, title, archived) VALUES ('CS', '1110', 'Intro', $1) RETURNING id`,
		archived).Scan(&id)
	require.NoError(s.t, err)
	return id
}

func (s *seed) queue(courseID int64, active, archived bool) int64 {
	s.t.Helper()
	var id int64
	err := testPool.QueryRow(s.ctx,
		`INSERT INTO queues (course_id, name, active, archived) VALUES ($1, 'Office Hours', $2, $3) RETURNING id`,
		courseID, active, archived).Scan(&id)
	require.NoError(s.t, err)
	return id
}

func (s *seed) member(courseID int64, userID uuid.UUID, kind domain.MembershipKind) {
	s.t.Helper()
	_, err := testPool.Exec(s.ctx,
		`INSERT INTO memberships (course_id, user_id, kind) VALUES ($1, $2, $3)`,
		courseID, userID, string(kind))
	require.NoError(s.t, err)
}

// question inserts a question. A nil status is stored as NULL.
func (s *seed) question(queueID int64, status *domain.QuestionState, askedBy, respondedBy *uuid.UUID, ts domain.QuestionTimestamps) int64 {
	s.t.Helper()
	var st *string
	if status != nil {
		v := string(*status)
		st = &v
	}
	var id int64
	err := testPool.QueryRow(s.ctx, `
INSERT INTO questions (queue_id, status, asked_by_id, responded_to_by_id,
                       time_asked, time_response_started, time_responded_to, time_withdrawn, time_rejected)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		queueID, st, askedBy, respondedBy,
		ts.TimeAsked, ts.TimeResponseStarted, ts.TimeRespondedTo, ts.TimeWithdrawn, ts.TimeRejected,
	).Scan(&id)
	require.NoError(s.t, err)
	return id
}

func at(t time.Time) *time.Time { return &t }

func state(s domain.QuestionState) *domain.QuestionState { return &s }
