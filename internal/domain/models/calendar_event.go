// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ConferencePlatform tags the conferencing service a calendar event links to.
type ConferencePlatform string

const (
	PlatformZoom  ConferencePlatform = "zoom"
	PlatformTeams ConferencePlatform = "teams"
	PlatformMeet  ConferencePlatform = "meet"
	PlatformNone  ConferencePlatform = "none"
)

// Attendee is a participant on a mirrored calendar event.
type Attendee struct {
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Organizer bool   `json:"organizer,omitempty"`
}

// CalendarEvent is the provider-neutral projection of a remote calendar
// event. Identity is (account UID, provider event ID); the mirror key is
// built from both so per-account uniqueness falls out of the key shape.
type CalendarEvent struct {
	AccountUID     string             `json:"account_uid"`
	ExternalID     string             `json:"external_id"`
	Title          string             `json:"title"`
	Description    string             `json:"description,omitempty"`
	StartTime      time.Time          `json:"start_time"`
	EndTime        time.Time          `json:"end_time"`
	Timezone       string             `json:"timezone,omitempty"`
	Attendees      []Attendee         `json:"attendees,omitempty"`
	OrganizerEmail string             `json:"organizer_email,omitempty"`
	JoinURL        string             `json:"join_url,omitempty"`
	Platform       ConferencePlatform `json:"platform"`
	RecurrenceRule string             `json:"recurrence_rule,omitempty"` // RRULE as supplied by the provider
	Recurring      bool               `json:"recurring,omitempty"`       // set when the provider marks the event recurring without exposing a rule
	RevisionToken  string             `json:"revision_token"`
	Cancelled      bool               `json:"cancelled"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Ref returns the meeting reference used as the storage key for this event
// and for everything derived from it (recording, summary, processing record).
func (e *CalendarEvent) Ref() MeetingRef {
	return NewMeetingRef(e.AccountUID, e.ExternalID)
}

// Ended reports whether the event's end time has elapsed at the given instant.
func (e *CalendarEvent) Ended(now time.Time) bool {
	return !e.EndTime.IsZero() && e.EndTime.Before(now)
}

// HasConference reports whether the event carries a conferencing link.
func (e *CalendarEvent) HasConference() bool {
	return e.Platform != "" && e.Platform != PlatformNone && e.JoinURL != ""
}

// IsRecurring reports whether the event repeats. Some providers expose the
// recurrence rule itself, others only a recurring flag on the series.
func (e *CalendarEvent) IsRecurring() bool {
	return e.Recurring || e.RecurrenceRule != ""
}

// RevisionNewer reports whether the incoming revision token supersedes the
// stored one. Providers hand out either monotonically increasing integers
// (Google sequence, Zoom) or opaque strings that change on every edit
// (Microsoft changeKey). Integer tokens are compared numerically; for opaque
// tokens any change is accepted as newer, since the provider offers no
// ordering beyond inequality.
func RevisionNewer(incoming, stored string) bool {
	if incoming == stored {
		return false
	}
	if stored == "" {
		return true
	}
	in, errIn := strconv.ParseUint(incoming, 10, 64)
	st, errSt := strconv.ParseUint(stored, 10, 64)
	if errIn == nil && errSt == nil {
		return in > st
	}
	return true
}

// MeetingRef identifies one meeting occurrence across the pipeline:
// "<account uid>/<provider event id>" for single meetings, with a third
// "/<occurrence end, RFC 3339>" segment for occurrences of a recurring
// series whose provider reuses one event ID across the whole series.
type MeetingRef string

// NewMeetingRef builds a meeting reference from its parts.
func NewMeetingRef(accountUID, externalID string) MeetingRef {
	return MeetingRef(accountUID + "/" + externalID)
}

// NewOccurrenceRef builds a meeting reference for one occurrence of a
// recurring series.
func NewOccurrenceRef(accountUID, externalID, occurrence string) MeetingRef {
	return MeetingRef(accountUID + "/" + externalID + "/" + occurrence)
}

// Parts splits a meeting reference back into account UID and external event
// ID, dropping any occurrence segment. Malformed references return an error
// rather than empty components.
func (r MeetingRef) Parts() (accountUID, externalID string, err error) {
	accountUID, rest, ok := strings.Cut(string(r), "/")
	if !ok || accountUID == "" || rest == "" {
		return "", "", fmt.Errorf("malformed meeting reference: %q", string(r))
	}
	externalID, _, _ = strings.Cut(rest, "/")
	if externalID == "" {
		return "", "", fmt.Errorf("malformed meeting reference: %q", string(r))
	}
	return accountUID, externalID, nil
}

// EventRef returns the reference of the underlying calendar event, stripping
// the occurrence segment when present. Mirror lookups always key on the
// event reference; pipeline artifacts key on the full reference.
func (r MeetingRef) EventRef() MeetingRef {
	accountUID, rest, ok := strings.Cut(string(r), "/")
	if !ok {
		return r
	}
	externalID, _, _ := strings.Cut(rest, "/")
	return NewMeetingRef(accountUID, externalID)
}

// Occurrence returns the occurrence segment, or "" for a non-recurring
// reference.
func (r MeetingRef) Occurrence() string {
	_, rest, ok := strings.Cut(string(r), "/")
	if !ok {
		return ""
	}
	_, occurrence, _ := strings.Cut(rest, "/")
	return occurrence
}

func (r MeetingRef) String() string {
	return string(r)
}
