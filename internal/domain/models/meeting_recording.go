// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package models

import (
	"time"
)

// MeetingRecording is the discovered recording artifact for an ended
// meeting. One recording object exists per meeting occurrence and it is
// immutable once created; re-discovery is a no-op.
type MeetingRecording struct {
	UID             string             `json:"uid"`
	MeetingRef      MeetingRef         `json:"meeting_ref"`
	Platform        ConferencePlatform `json:"platform"`
	RecordingHandle string             `json:"recording_handle"` // opaque platform identifier
	HasTranscript   bool               `json:"has_transcript"`
	DiscoveredAt    time.Time          `json:"discovered_at"`
}

// MeetingSummary is the generated summary document for a meeting, produced
// at most once per meeting occurrence.
type MeetingSummary struct {
	UID          string         `json:"uid"`
	MeetingRef   MeetingRef     `json:"meeting_ref"`
	RecordingUID string         `json:"recording_uid"`
	Content      SummaryContent `json:"content"`
	GeneratedAt  time.Time      `json:"generated_at"`
}

// SummaryContent is the structured output of the external summarizer.
type SummaryContent struct {
	Overview    string           `json:"overview"`
	ActionItems []string         `json:"action_items,omitempty"`
	Sections    []SummarySection `json:"sections,omitempty"`
}

// SummarySection is one titled section of a summary document.
type SummarySection struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}
