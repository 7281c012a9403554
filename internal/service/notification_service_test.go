// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
)

func summaryFor(event *models.CalendarEvent) *models.MeetingSummary {
	return &models.MeetingSummary{
		UID:        "sum-1",
		MeetingRef: event.Ref(),
		Content: models.SummaryContent{
			Overview:    "Decisions were made.",
			ActionItems: []string{"Follow up"},
			Sections:    []models.SummarySection{{Title: "Risks", Body: "None."}},
		},
	}
}

func TestNotifySendsToOwner(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	account := h.seedAccount("acct-1", models.ProviderZoom)
	event := h.seedEndedMeeting("acct-1", "evt-1", zoomJoinURL, models.PlatformZoom)

	require.NoError(t, h.notifier.Notify(ctx, event.Ref(), account, event, summaryFor(event)))

	require.Equal(t, 1, h.email.sentCount())
	sent := h.email.sent[0]
	assert.Equal(t, "owner@example.com", sent.RecipientEmail)
	assert.Equal(t, "Dana Owner", sent.RecipientName)
	assert.Equal(t, "Weekly planning", sent.MeetingTitle)
	assert.Equal(t, "Decisions were made.", sent.Overview)
	require.Len(t, sent.Sections, 1)
	assert.Equal(t, "Risks", sent.Sections[0].Title)
}

func TestNotifyCarriesAttendeeList(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	account := h.seedAccount("acct-1", models.ProviderZoom)
	event := h.seedEndedMeeting("acct-1", "evt-1", zoomJoinURL, models.PlatformZoom)
	event.Attendees = []models.Attendee{
		{Email: "alice@example.com", Name: "Alice A"},
		{Email: "bob@example.com"},
	}

	require.NoError(t, h.notifier.Notify(ctx, event.Ref(), account, event, summaryFor(event)))

	require.Equal(t, 1, h.email.sentCount())
	attendees := h.email.sent[0].Attendees
	require.Len(t, attendees, 2)
	assert.Equal(t, domain.EmailAttendee{Name: "Alice A", Email: "alice@example.com"}, attendees[0])
	assert.Equal(t, domain.EmailAttendee{Email: "bob@example.com"}, attendees[1])
}

func TestNotifyPropagatesSendFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	account := h.seedAccount("acct-1", models.ProviderZoom)
	event := h.seedEndedMeeting("acct-1", "evt-1", zoomJoinURL, models.PlatformZoom)

	h.email.errs = []error{domain.NewTransientError("smtp timeout")}

	err := h.notifier.Notify(ctx, event.Ref(), account, event, summaryFor(event))
	assert.Equal(t, domain.ErrorTypeTransient, domain.GetErrorType(err))
	assert.Zero(t, h.email.sentCount())
}
