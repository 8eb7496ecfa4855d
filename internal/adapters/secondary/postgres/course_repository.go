package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/ohq-statistics/internal/core/domain"
	apperrors "github.com/lorrc/ohq-statistics/internal/core/errors"
	"github.com/lorrc/ohq-statistics/internal/core/ports"
)

// CourseRepository reads courses, queues and memberships.
type CourseRepository struct {
	pool *pgxpool.Pool
}

var _ ports.CourseRepository = (*CourseRepository)(nil)

func NewCourseRepository(pool *pgxpool.Pool) ports.CourseRepository {
	return &CourseRepository{pool: pool}
}

const (
	selectCourse = `SELECT id, department, course_code, title, archived FROM courses`
	selectQueue  = `SELECT id, course_id, name, archived, active, estimated_wait_time FROM queues`
)

func scanCourse(row pgx.Row) (*domain.Course, error) {
	var c domain.Course
	if err := row.Scan(&c.ID, &c.Department, &c.CourseCode, &c.Title, &c.Archived); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanQueue(row pgx.Row) (*domain.Queue, error) {
	var q domain.Queue
	if err := row.Scan(&q.ID, &q.CourseID, &q.Name, &q.Archived, &q.Active, &q.EstimatedWaitTime); err != nil {
		return nil, err
	}
	return &q, nil
}

// ListActiveCourses returns every course that is not archived.
func (r *CourseRepository) ListActiveCourses(ctx context.Context) ([]*domain.Course, error) {
	rows, err := GetDBTX(ctx, r.pool).Query(ctx, selectCourse+` WHERE NOT archived ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	var courses []*domain.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (r *CourseRepository) GetCourse(ctx context.Context, courseID int64) (*domain.Course, error) {
	c, err := scanCourse(GetDBTX(ctx, r.pool).QueryRow(ctx, selectCourse+` WHERE id = $1`, courseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCourseNotFound
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	return c, nil
}

// ListQueues returns every queue of a course, archived ones included.
func (r *CourseRepository) ListQueues(ctx context.Context, courseID int64) ([]*domain.Queue, error) {
	return r.listQueues(ctx, selectQueue+` WHERE course_id = $1 ORDER BY id`, courseID)
}

// ListActiveQueues returns the open queues of non-archived courses.
func (r *CourseRepository) ListActiveQueues(ctx context.Context) ([]*domain.Queue, error) {
	const query = `
SELECT q.id, q.course_id, q.name, q.archived, q.active, q.estimated_wait_time
FROM queues q
JOIN courses c ON c.id = q.course_id
WHERE q.active AND NOT q.archived AND NOT c.archived
ORDER BY q.id`
	return r.listQueues(ctx, query)
}

func (r *CourseRepository) listQueues(ctx context.Context, query string, args ...any) ([]*domain.Queue, error) {
	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query queues: %w", err)
	}
	defer rows.Close()

	var queues []*domain.Queue
	for rows.Next() {
		q, err := scanQueue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue: %w", err)
		}
		queues = append(queues, q)
	}
	return queues, rows.Err()
}

func (r *CourseRepository) GetQueue(ctx context.Context, queueID int64) (*domain.Queue, error) {
	q, err := scanQueue(GetDBTX(ctx, r.pool).QueryRow(ctx, selectQueue+` WHERE id = $1`, queueID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrQueueNotFound
		}
		return nil, fmt.Errorf("get queue: %w", err)
	}
	return q, nil
}

func (r *CourseRepository) ListMemberships(ctx context.Context, courseID int64) ([]*domain.Membership, error) {
	const query = `SELECT course_id, user_id, kind FROM memberships WHERE course_id = $1 ORDER BY user_id`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("query memberships: %w", err)
	}
	defer rows.Close()

	var members []*domain.Membership
	for rows.Next() {
		var (
			m    domain.Membership
			kind string
		)
		if err := rows.Scan(&m.CourseID, &m.UserID, &kind); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		m.Kind = domain.MembershipKind(kind)
		members = append(members, &m)
	}
	return members, rows.Err()
}

// UpdateEstimatedWaitTime stores the wait estimate shown on a queue.
func (r *CourseRepository) UpdateEstimatedWaitTime(ctx context.Context, queueID int64, minutes int) error {
	const query = `UPDATE queues SET estimated_wait_time = $2 WHERE id = $1`

	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, query, queueID, minutes)
	if err != nil {
		return fmt.Errorf("update estimated wait time: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrQueueNotFound
	}
	return nil
}
