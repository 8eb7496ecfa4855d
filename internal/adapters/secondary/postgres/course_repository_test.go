package postgres

import (
	"context"
	"testing"

	"github.com/lorrc/ohq-statistics/internal/core/domain"
	apperrors "github.com/lorrc/ohq-statistics/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseRepository_Courses(t *testing.T) {
	ctx := context.Background()
	s := newSeed(t)
	repo := NewCourseRepository(testPool)

	active := s.course(false)
	archived := s.course(true)

	courses, err := repo.ListActiveCourses(ctx)
	require.NoError(t, err)

	var ids []int64
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	assert.Contains(t, ids, active)
	assert.NotContains(t, ids, archived)

	course, err := repo.GetCourse(ctx, active)
	require.NoError(t, err)
	assert.Equal(t, "CS", course.Department)

	_, err = repo.GetCourse(ctx, -1)
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)
}

func TestCourseRepository_Queues(t *testing.T) {
	ctx := context.Background()
	s := newSeed(t)
	repo := NewCourseRepository(testPool)

	courseID := s.course(false)
	open := s.queue(courseID, true, false)
	closed := s.queue(courseID, false, false)
	archived := s.queue(courseID, true, true)

	queues, err := repo.ListQueues(ctx, courseID)
	require.NoError(t, err)
	assert.Len(t, queues, 3)

	activeQueues, err := repo.ListActiveQueues(ctx)
	require.NoError(t, err)
	var ids []int64
	for _, q := range activeQueues {
		ids = append(ids, q.ID)
	}
	assert.Contains(t, ids, open)
	assert.NotContains(t, ids, closed)
	assert.NotContains(t, ids, archived)

	queue, err := repo.GetQueue(ctx, open)
	require.NoError(t, err)
	assert.Equal(t, -1, queue.EstimatedWaitTime)

	require.NoError(t, repo.UpdateEstimatedWaitTime(ctx, open, 7))
	queue, err = repo.GetQueue(ctx, open)
	require.NoError(t, err)
	assert.Equal(t, 7, queue.EstimatedWaitTime)

	assert.ErrorIs(t, repo.UpdateEstimatedWaitTime(ctx, -1, 3), apperrors.ErrQueueNotFound)
	_, err = repo.GetQueue(ctx, -1)
	assert.ErrorIs(t, err, apperrors.ErrQueueNotFound)
}

func TestCourseRepository_ListMemberships(t *testing.T) {
	ctx := context.Background()
	s := newSeed(t)
	repo := NewCourseRepository(testPool)

	courseID := s.course(false)
	student := s.user("Student")
	ta := s.user("TA")
	s.member(courseID, student, domain.KindStudent)
	s.member(courseID, ta, domain.KindTA)

	members, err := repo.ListMemberships(ctx, courseID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	kinds := map[domain.MembershipKind]bool{}
	for _, m := range members {
		assert.Equal(t, courseID, m.CourseID)
		kinds[m.Kind] = true
	}
	assert.True(t, kinds[domain.KindStudent])
	assert.True(t, kinds[domain.KindTA])
}
