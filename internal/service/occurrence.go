// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
)

// occurrenceEndTime resolves the end time of the occurrence the pipeline
// should process next. Single events use their own end time; recurring
// events use the recurrence rule to find the first occurrence ending after
// the given instant, falling back to the most recent past occurrence when
// the series has run out.
func occurrenceEndTime(event *models.CalendarEvent, after time.Time) (time.Time, error) {
	if event.RecurrenceRule == "" {
		return event.EndTime, nil
	}

	rule, err := rrule.StrToRRule(normalizeRRule(event.RecurrenceRule))
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable recurrence rule %q: %w", event.RecurrenceRule, err)
	}
	rule.DTStart(event.StartTime)

	duration := event.EndTime.Sub(event.StartTime)
	if duration <= 0 {
		duration = time.Hour
	}

	// The occurrence currently in flight is the one starting after
	// (after - duration): its end time is the first to land past "after".
	next := rule.After(after.Add(-duration), true)
	if !next.IsZero() {
		return next.Add(duration), nil
	}

	// Series exhausted; the last occurrence is the one to process.
	last := rule.Before(after, true)
	if !last.IsZero() {
		return last.Add(duration), nil
	}

	return event.EndTime, nil
}

// normalizeRRule strips an "RRULE:" prefix if the provider included one, so
// rrule-go receives the bare rule text.
func normalizeRRule(rule string) string {
	return strings.TrimPrefix(rule, "RRULE:")
}

// pipelineRef returns the key under which the pipeline tracks one processed
// meeting. Single events use the event reference; recurring events append
// the occurrence end time, since the provider reuses one event ID for the
// whole series and each occurrence needs its own record, recording and
// summary.
func pipelineRef(event *models.CalendarEvent, occurrenceEnd time.Time) models.MeetingRef {
	if !event.IsRecurring() {
		return event.Ref()
	}
	return models.NewOccurrenceRef(event.AccountUID, event.ExternalID,
		occurrenceEnd.UTC().Format(time.RFC3339))
}
