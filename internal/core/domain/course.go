package domain

import (
	"github.com/google/uuid"
)

// Course groups queues and memberships for one offering of a class.
type Course struct {
	ID         int64
	Department string
	CourseCode string
	Title      string
	Archived   bool
}

// Queue is a per-course list of pending and active student questions.
type Queue struct {
	ID       int64
	CourseID int64
	Name     string
	Archived bool
	Active   bool
	// EstimatedWaitTime is in minutes, -1 when there is no recent sample.
	EstimatedWaitTime int
}

// MembershipKind is the role a user holds in a course.
type MembershipKind string

const (
	KindStudent   MembershipKind = "STUDENT"
	KindTA        MembershipKind = "TA"
	KindHeadTA    MembershipKind = "HEAD_TA"
	KindProfessor MembershipKind = "PROFESSOR"
)

// IsValid reports whether k is a known membership kind.
func (k MembershipKind) IsValid() bool {
	switch k {
	case KindStudent, KindTA, KindHeadTA, KindProfessor:
		return true
	}
	return false
}

// Membership links a user to a course.
type Membership struct {
	CourseID int64
	UserID   uuid.UUID
	Kind     MembershipKind
}

// IsStaff reports whether the member may respond to questions.
func (m Membership) IsStaff() bool {
	return m.Kind == KindTA || m.IsLeadership()
}

// IsLeadership reports whether the member runs the course.
func (m Membership) IsLeadership() bool {
	return m.Kind == KindHeadTA || m.Kind == KindProfessor
}
