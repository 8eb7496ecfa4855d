package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/ohq-statistics/internal/core/domain"
	"github.com/lorrc/ohq-statistics/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionRepository_Find(t *testing.T) {
	ctx := context.Background()
	s := newSeed(t)
	repo := NewQuestionRepository(testPool)

	courseID := s.course(false)
	queueID := s.queue(courseID, true, false)
	otherQueueID := s.queue(courseID, true, false)
	student := s.user("Student")
	ta := s.user("TA")

	// 2024-03-11 is a Monday.
	monday := time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)

	answeredID := s.question(queueID, state(domain.StateAnswered), &student, &ta, domain.QuestionTimestamps{
		TimeAsked:           monday,
		TimeResponseStarted: at(monday.Add(5 * time.Minute)),
		TimeRespondedTo:     at(monday.Add(10 * time.Minute)),
	})
	// Stored without a status; derived as ANSWERED from its timestamps.
	derivedID := s.question(queueID, nil, &student, &ta, domain.QuestionTimestamps{
		TimeAsked:           tuesday,
		TimeResponseStarted: at(tuesday.Add(time.Minute)),
		TimeRespondedTo:     at(tuesday.Add(2 * time.Minute)),
	})
	withdrawnID := s.question(queueID, state(domain.StateWithdrawn), &student, nil, domain.QuestionTimestamps{
		TimeAsked:     tuesday.Add(time.Hour),
		TimeWithdrawn: at(tuesday.Add(2 * time.Hour)),
	})
	s.question(otherQueueID, state(domain.StateAnswered), &student, &ta, domain.QuestionTimestamps{
		TimeAsked:       monday,
		TimeRespondedTo: at(monday.Add(time.Minute)),
	})

	ids := func(qs []domain.Question) []int64 {
		out := make([]int64, 0, len(qs))
		for _, q := range qs {
			out = append(out, q.ID)
		}
		return out
	}

	t.Run("by queue ordered by time asked", func(t *testing.T) {
		qs, err := repo.Find(ctx, ports.QuestionFilter{QueueID: &queueID})
		require.NoError(t, err)
		assert.Equal(t, []int64{answeredID, derivedID, withdrawnID}, ids(qs))

		first := qs[0]
		assert.Equal(t, domain.StateAnswered, first.Status)
		require.NotNil(t, first.AskedByID)
		assert.Equal(t, student, *first.AskedByID)
		require.NotNil(t, first.TimeRespondedTo)
		assert.True(t, monday.Add(10*time.Minute).Equal(*first.TimeRespondedTo))
		assert.Nil(t, first.TimeWithdrawn)
	})

	t.Run("status filter uses derived state", func(t *testing.T) {
		qs, err := repo.Find(ctx, ports.QuestionFilter{
			QueueID:  &queueID,
			Statuses: []domain.QuestionState{domain.StateAnswered},
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{answeredID, derivedID}, ids(qs))
		assert.Equal(t, domain.StateAnswered, qs[1].State())
	})

	t.Run("half-open asked range", func(t *testing.T) {
		qs, err := repo.Find(ctx, ports.QuestionFilter{
			QueueID: &queueID,
			AskedIn: ports.NewTimeRange(monday, tuesday),
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{answeredID}, ids(qs))
	})

	t.Run("weekday in location", func(t *testing.T) {
		monday := 0
		qs, err := repo.Find(ctx, ports.QuestionFilter{QueueID: &queueID, AskedOnDay: &monday, Location: time.UTC})
		require.NoError(t, err)
		assert.Equal(t, []int64{answeredID}, ids(qs))

		// 10:00 UTC on Monday is still Monday in Tokyo; 10:00 UTC Tuesday is Tuesday.
		tokyo, err := time.LoadLocation("Asia/Tokyo")
		require.NoError(t, err)
		qs, err = repo.Find(ctx, ports.QuestionFilter{QueueID: &queueID, AskedOnDay: &monday, Location: tokyo})
		require.NoError(t, err)
		assert.Equal(t, []int64{answeredID}, ids(qs))

		// 10:00 UTC Monday is Monday 03:00 in Los Angeles, Sunday never matches.
		sunday := 6
		la, err := time.LoadLocation("America/Los_Angeles")
		require.NoError(t, err)
		qs, err = repo.Find(ctx, ports.QuestionFilter{QueueID: &queueID, AskedOnDay: &sunday, Location: la})
		require.NoError(t, err)
		assert.Empty(t, qs)
	})

	t.Run("by course and responder", func(t *testing.T) {
		qs, err := repo.Find(ctx, ports.QuestionFilter{CourseID: &courseID, RespondedToByID: &ta})
		require.NoError(t, err)
		assert.Len(t, qs, 3)
	})

	t.Run("require response started", func(t *testing.T) {
		qs, err := repo.Find(ctx, ports.QuestionFilter{QueueID: &queueID, RequireResponseStarted: true})
		require.NoError(t, err)
		assert.Equal(t, []int64{answeredID, derivedID}, ids(qs))
	})

	t.Run("no matches", func(t *testing.T) {
		nobody := uuid.New()
		qs, err := repo.Find(ctx, ports.QuestionFilter{AskedByID: &nobody})
		require.NoError(t, err)
		assert.Empty(t, qs)
	})
}
