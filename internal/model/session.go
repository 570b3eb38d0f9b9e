package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// SessionStatus is the lifecycle state of a crawl session.
type SessionStatus string

const (
	SessionPending    SessionStatus = "pending"
	SessionProcessing SessionStatus = "processing"
	SessionCompleted  SessionStatus = "completed"
	SessionFailed     SessionStatus = "failed"
)

// ErrInvalidTransition is returned for a status change that would move a
// session backwards or out of a terminal state.
var ErrInvalidTransition = eris.New("model: invalid session transition")

// Terminal reports whether no further transitions are allowed.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

// CanTransition reports whether s may move to next.
// pending -> processing -> completed|failed. A pending session may also fail
// directly (e.g. the daily cap is exhausted before the first request).
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	switch s {
	case SessionPending:
		return next == SessionProcessing || next == SessionFailed
	case SessionProcessing:
		return next == SessionCompleted || next == SessionFailed
	default:
		return false
	}
}

// CrawlSession records one attempt to enrich a road/keyword pair.
type CrawlSession struct {
	ID              string        `json:"id" validate:"required"`
	RoadID          int64         `json:"road_id" validate:"gt=0"`
	Region          Region        `json:"region"`
	Keyword         string        `json:"keyword"`
	Status          SessionStatus `json:"status" validate:"required"`
	BusinessesFound int           `json:"businesses_found"`
	CreatedAt       time.Time     `json:"created_at"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	Error           *string       `json:"error,omitempty"`
}

// Transition moves the session to next, stamping the matching timestamp.
func (s *CrawlSession) Transition(next SessionStatus, at time.Time) error {
	if !s.Status.CanTransition(next) {
		return eris.Wrapf(ErrInvalidTransition, "%s -> %s", s.Status, next)
	}
	s.Status = next
	switch next {
	case SessionProcessing:
		s.StartedAt = &at
	case SessionCompleted, SessionFailed:
		s.CompletedAt = &at
	}
	return nil
}
