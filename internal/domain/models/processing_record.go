// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package models

import (
	"time"
)

// Stage is one state in the post-meeting processing state machine.
type Stage string

const (
	StageScheduled        Stage = "scheduled"
	StageEnded            Stage = "ended"
	StageRecordingPending Stage = "recording_pending"
	StageRecordingFound   Stage = "recording_found"
	StageSummarizing      Stage = "summarizing"
	StageSummarized       Stage = "summarized"
	StageNotified         Stage = "notified"
	StageNotApplicable    Stage = "not_applicable"
	StageFailed           Stage = "failed"
)

// stageOrder gives the forward progression of the pipeline. Terminal
// alternates sit outside the ordering and are reachable from any stage.
var stageOrder = map[Stage]int{
	StageScheduled:        0,
	StageEnded:            1,
	StageRecordingPending: 2,
	StageRecordingFound:   3,
	StageSummarizing:      4,
	StageSummarized:       5,
	StageNotified:         6,
}

// Terminal reports whether no further automatic work happens in this stage.
func (s Stage) Terminal() bool {
	return s == StageNotified || s == StageNotApplicable || s == StageFailed
}

// Before reports whether s precedes other in the forward progression.
// Terminal alternates are never before anything.
func (s Stage) Before(other Stage) bool {
	so, ok1 := stageOrder[s]
	oo, ok2 := stageOrder[other]
	return ok1 && ok2 && so < oo
}

// ProcessingRecord is the durable ledger entry giving the pipeline its
// exactly-once semantics. It is the single source of truth for how far a
// meeting has progressed; completion is never inferred from the presence of
// a MeetingSummary, because summarization can be re-run after a transient
// failure.
type ProcessingRecord struct {
	MeetingRef       MeetingRef    `json:"meeting_ref"`
	Stage            Stage         `json:"stage"`
	Attempts         map[Stage]int `json:"attempts,omitempty"` // per-stage attempt counts
	NextAttemptAt    *time.Time    `json:"next_attempt_at,omitempty"`
	MeetingEndTime   time.Time     `json:"meeting_end_time"`
	LastErrorCode    string        `json:"last_error_code,omitempty"`
	LastErrorMessage string        `json:"last_error_message,omitempty"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// NewProcessingRecord seeds the ledger for a meeting occurrence.
func NewProcessingRecord(ref MeetingRef, endTime time.Time) *ProcessingRecord {
	now := time.Now().UTC()
	return &ProcessingRecord{
		MeetingRef:     ref,
		Stage:          StageScheduled,
		Attempts:       make(map[Stage]int),
		MeetingEndTime: endTime,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// CanAdvanceTo reports whether a transition from the current stage to next
// is legal: strictly forward in the progression, or to a terminal alternate
// from a non-terminal stage. A record already at or past next must treat the
// trigger as a no-op, which guards against duplicate webhook deliveries.
func (r *ProcessingRecord) CanAdvanceTo(next Stage) bool {
	if r.Stage.Terminal() {
		return false
	}
	if next == StageNotApplicable || next == StageFailed {
		return true
	}
	return r.Stage.Before(next)
}

// Advance moves the record to the next stage, clearing retry scheduling and
// stamping completion on terminal stages. Callers must persist the record
// with a revision check afterwards.
func (r *ProcessingRecord) Advance(next Stage) {
	now := time.Now().UTC()
	r.Stage = next
	r.NextAttemptAt = nil
	r.UpdatedAt = now
	if next.Terminal() {
		r.CompletedAt = &now
	}
	if next != StageFailed {
		r.LastErrorCode = ""
		r.LastErrorMessage = ""
	}
}

// RecordAttempt increments the attempt counter for a stage and returns the
// new count.
func (r *ProcessingRecord) RecordAttempt(stage Stage) int {
	if r.Attempts == nil {
		r.Attempts = make(map[Stage]int)
	}
	r.Attempts[stage]++
	r.UpdatedAt = time.Now().UTC()
	return r.Attempts[stage]
}

// RecordError keeps the most recent failure for operator visibility.
func (r *ProcessingRecord) RecordError(code, message string) {
	r.LastErrorCode = code
	r.LastErrorMessage = message
	r.UpdatedAt = time.Now().UTC()
}

// ScheduleRetry sets the next due time for the current stage.
func (r *ProcessingRecord) ScheduleRetry(at time.Time) {
	at = at.UTC()
	r.NextAttemptAt = &at
	r.UpdatedAt = time.Now().UTC()
}

// ResetForRetry is the operator action that re-arms a failed record: the
// stage moves back to the given stage with its attempt counter cleared. It
// is the only path out of StageFailed.
func (r *ProcessingRecord) ResetForRetry(stage Stage) {
	if r.Attempts == nil {
		r.Attempts = make(map[Stage]int)
	}
	r.Attempts[stage] = 0
	r.Stage = stage
	r.CompletedAt = nil
	r.NextAttemptAt = nil
	r.LastErrorCode = ""
	r.LastErrorMessage = ""
	r.UpdatedAt = time.Now().UTC()
}

// Due reports whether the record has scheduled work ready at the given
// instant. Terminal records are never due.
func (r *ProcessingRecord) Due(now time.Time) bool {
	if r.Stage.Terminal() {
		return false
	}
	if r.NextAttemptAt == nil {
		return true
	}
	return !r.NextAttemptAt.After(now)
}
