package domain

import (
	"time"

	"github.com/google/uuid"
)

// QuestionState represents where a question is in its lifecycle.
type QuestionState string

const (
	StateAsked     QuestionState = "ASKED"
	StateActive    QuestionState = "ACTIVE"
	StateWithdrawn QuestionState = "WITHDRAWN"
	StateRejected  QuestionState = "REJECTED"
	StateStarted   QuestionState = "STARTED"
	StateAnswered  QuestionState = "ANSWERED"
)

// IsValid reports whether s is one of the known lifecycle states.
func (s QuestionState) IsValid() bool {
	switch s {
	case StateAsked, StateActive, StateWithdrawn, StateRejected, StateStarted, StateAnswered:
		return true
	}
	return false
}

// QuestionTimestamps are the lifecycle timestamps recorded on a question.
// Only TimeAsked is guaranteed to be set.
type QuestionTimestamps struct {
	TimeAsked           time.Time
	TimeResponseStarted *time.Time
	TimeRespondedTo     *time.Time
	TimeWithdrawn       *time.Time
	TimeRejected        *time.Time
}

// DeriveState infers the lifecycle state from which timestamps are set.
// Terminal states win over in-progress ones.
func DeriveState(ts QuestionTimestamps) QuestionState {
	switch {
	case ts.TimeRejected != nil:
		return StateRejected
	case ts.TimeWithdrawn != nil:
		return StateWithdrawn
	case ts.TimeRespondedTo != nil:
		return StateAnswered
	case ts.TimeResponseStarted != nil:
		return StateStarted
	default:
		return StateActive
	}
}

// Question is a single student question read from the record store.
type Question struct {
	ID              int64
	QueueID         int64
	Text            string
	Status          QuestionState
	AskedByID       *uuid.UUID
	RespondedToByID *uuid.UUID
	QuestionTimestamps
}

// State returns the stored status when it is valid and falls back to the
// status derived from timestamps otherwise.
func (q Question) State() QuestionState {
	if q.Status.IsValid() {
		return q.Status
	}
	return DeriveState(q.QuestionTimestamps)
}

// IsAnswered reports whether the question finished with a response.
func (q Question) IsAnswered() bool {
	return q.State() == StateAnswered
}

// WaitSeconds returns the whole seconds between asking and being picked up.
// ok is false when the question was never picked up or the timestamps are
// out of order.
func (q Question) WaitSeconds() (seconds int64, ok bool) {
	if q.TimeResponseStarted == nil || q.TimeAsked.IsZero() {
		return 0, false
	}
	return wholeSeconds(q.TimeAsked, *q.TimeResponseStarted)
}

// HelpSeconds returns the whole seconds a staff member spent on the question.
func (q Question) HelpSeconds() (seconds int64, ok bool) {
	if q.TimeResponseStarted == nil || q.TimeRespondedTo == nil {
		return 0, false
	}
	return wholeSeconds(*q.TimeResponseStarted, *q.TimeRespondedTo)
}

// wholeSeconds truncates the elapsed time to an integer number of seconds.
func wholeSeconds(from, to time.Time) (int64, bool) {
	d := to.Sub(from)
	if d < 0 {
		return 0, false
	}
	return int64(d / time.Second), true
}
