package models

import (
	"time"

	"github.com/Ramsey-B/fern/pkg/database"
)

// SignalStatus is the intake lifecycle state. Transitions are forward-only.
type SignalStatus string

const (
	SignalStatusNew        SignalStatus = "new"
	SignalStatusProcessing SignalStatus = "processing"
	SignalStatusAttached   SignalStatus = "attached"
	SignalStatusError      SignalStatus = "error"
)

var signalStatusRank = map[SignalStatus]int{
	SignalStatusNew:        0,
	SignalStatusProcessing: 1,
	SignalStatusAttached:   2,
	SignalStatusError:      2,
}

// Valid reports whether the status is a known lifecycle state
func (s SignalStatus) Valid() bool {
	_, ok := signalStatusRank[s]
	return ok
}

// Terminal reports whether the status ends the signal lifecycle
func (s SignalStatus) Terminal() bool {
	return s == SignalStatusAttached || s == SignalStatusError
}

// CanTransitionTo reports whether moving to next is a forward transition
func (s SignalStatus) CanTransitionTo(next SignalStatus) bool {
	cur, ok := signalStatusRank[s]
	if !ok {
		return false
	}
	n, ok := signalStatusRank[next]
	if !ok {
		return false
	}
	return n > cur
}

// Signal is an idempotent intake record. Exactly one row exists per dedupe
// key, enforced by a unique constraint even under concurrent creation.
type Signal struct {
	ID          string                         `json:"id" db:"id"`
	Source      string                         `json:"source" db:"source"`
	DedupeKey   string                         `json:"dedupe_key" db:"dedupe_key"`
	Payload     database.JSONB[map[string]any] `json:"payload" db:"payload"`
	Status      SignalStatus                   `json:"status" db:"status"`
	CreatedAt   time.Time                      `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time                     `json:"processed_at,omitempty" db:"processed_at"`
}

// CreateSignalRequest is the request for recording an intake event
type CreateSignalRequest struct {
	Source    string         `json:"source" validate:"required"`
	DedupeKey string         `json:"dedupe_key" validate:"required"`
	Payload   map[string]any `json:"payload"`
}
