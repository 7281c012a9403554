// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

// Package zoom adapts the Zoom API to the calendar and recording provider
// contracts. Zoom has no incremental event feed, so every sync pass is a
// full listing and removals are computed by the synchronizer.
package zoom

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
	"github.com/annix/fieldflow-meeting-intel/internal/infrastructure/zoom/api"
	"github.com/annix/fieldflow-meeting-intel/internal/logging"
)

// CalendarAdapter implements domain.CalendarProvider on top of the Zoom
// meetings API.
type CalendarAdapter struct {
	client api.ClientAPI
}

var _ domain.CalendarProvider = (*CalendarAdapter)(nil)

// NewCalendarAdapter creates a Zoom calendar provider adapter.
func NewCalendarAdapter(client api.ClientAPI) *CalendarAdapter {
	return &CalendarAdapter{client: client}
}

// ListEventsSince lists the account owner's scheduled meetings, including
// recently ended ones still held by the API. The cursor is Zoom's
// next_page_token; each pass is a full listing because Zoom offers no delta
// feed.
func (a *CalendarAdapter) ListEventsSince(ctx context.Context, account *models.Account, cursor string) (*domain.EventPage, error) {
	resp, err := a.client.ListMeetings(ctx, account.OwnerEmail, cursor)
	if err != nil {
		// Zoom rejects stale page tokens with a 400; surface it as a
		// cursor expiry so the synchronizer restarts from the top.
		if cursor != "" && domain.GetErrorType(err) == domain.ErrorTypePermanent {
			return nil, domain.ErrCursorInvalid
		}
		return nil, err
	}

	page := &domain.EventPage{
		NextCursor:  resp.NextPageToken,
		FullListing: true,
	}
	for i := range resp.Meetings {
		event, err := a.toCalendarEvent(account, &resp.Meetings[i])
		if err != nil {
			slog.WarnContext(ctx, "skipping unmappable Zoom meeting",
				"meeting_id", resp.Meetings[i].ID, logging.ErrKey, err)
			continue
		}
		page.Events = append(page.Events, event)
	}
	return page, nil
}

// GetEvent fetches a single meeting by its numeric ID.
func (a *CalendarAdapter) GetEvent(ctx context.Context, account *models.Account, externalID string) (*models.CalendarEvent, error) {
	meeting, err := a.client.GetMeeting(ctx, externalID)
	if err != nil {
		return nil, err
	}
	return a.toCalendarEvent(account, meeting)
}

// Refresh mints a fresh Server-to-Server token. Zoom S2S credentials are
// service-wide, so the refreshed handle is shared across zoom accounts.
func (a *CalendarAdapter) Refresh(ctx context.Context, account *models.Account) (*models.CredentialHandle, error) {
	token, err := a.client.Token(ctx)
	if err != nil {
		return nil, err
	}
	return &models.CredentialHandle{
		AccessToken: token.AccessToken,
		Expiry:      token.Expiry,
	}, nil
}

func (a *CalendarAdapter) toCalendarEvent(account *models.Account, meeting *api.Meeting) (*models.CalendarEvent, error) {
	start, err := time.Parse(time.RFC3339, meeting.StartTime)
	if err != nil {
		return nil, fmt.Errorf("meeting %d has unparseable start time %q: %w", meeting.ID, meeting.StartTime, err)
	}
	end := start.Add(time.Duration(meeting.Duration) * time.Minute)

	externalID := strconv.FormatInt(meeting.ID, 10)
	now := time.Now().UTC()
	return &models.CalendarEvent{
		AccountUID:     account.UID,
		ExternalID:     externalID,
		Title:          meeting.Topic,
		Description:    meeting.Agenda,
		StartTime:      start,
		EndTime:        end,
		Timezone:       meeting.Timezone,
		OrganizerEmail: meeting.HostEmail,
		JoinURL:        meeting.JoinURL,
		Platform:       models.PlatformZoom,
		Recurring:      meeting.Type == api.MeetingTypeRecurringNoFixedTime || meeting.Type == api.MeetingTypeRecurringFixedTime,
		RevisionToken:  contentRevision(meeting),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// contentRevision derives an opaque revision token from the mutable meeting
// fields. Zoom carries no version counter, so any content change yields a
// new token and the upsert rule treats it as newer.
func contentRevision(meeting *api.Meeting) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%s|%s|%s",
		meeting.Topic, meeting.StartTime, meeting.Duration,
		meeting.Timezone, meeting.JoinURL, meeting.Agenda)
	return hex.EncodeToString(h.Sum(nil))[:16]
}
