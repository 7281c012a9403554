// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package google

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
	"github.com/annix/fieldflow-meeting-intel/internal/logging"
	"github.com/annix/fieldflow-meeting-intel/internal/utils"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

// fullListingLookback bounds the initial full listing so a fresh account
// still picks up recently ended meetings for the post-meeting pipeline.
const fullListingLookback = 7 * 24 * time.Hour

// CalendarAdapter implements domain.CalendarProvider on top of the Google
// Calendar API, using sync tokens for incremental listing.
type CalendarAdapter struct {
	factory *ServiceFactory
}

var _ domain.CalendarProvider = (*CalendarAdapter)(nil)

// NewCalendarAdapter creates a Google calendar provider adapter.
func NewCalendarAdapter(factory *ServiceFactory) *CalendarAdapter {
	return &CalendarAdapter{factory: factory}
}

// ListEventsSince lists event changes since the sync token. Google reports
// an expired token with 410 Gone, which surfaces as ErrCursorInvalid.
// Cancelled events arrive as explicit tombstones on the incremental feed.
func (a *CalendarAdapter) ListEventsSince(ctx context.Context, account *models.Account, cursor string) (*domain.EventPage, error) {
	svc, err := a.factory.CalendarService(ctx, account)
	if err != nil {
		return nil, domain.NewInternalError("failed to build calendar client", err)
	}

	page := &domain.EventPage{FullListing: cursor == ""}
	pageToken := ""
	for {
		call := svc.Events.List("primary").Context(ctx).SingleEvents(true).MaxResults(250)
		if cursor != "" {
			call = call.SyncToken(cursor).ShowDeleted(true)
		} else {
			call = call.TimeMin(time.Now().UTC().Add(-fullListingLookback).Format(time.RFC3339))
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == http.StatusGone {
				return nil, domain.ErrCursorInvalid
			}
			return nil, mapAPIError(err)
		}

		for _, item := range resp.Items {
			if item.Status == "cancelled" {
				page.DeletedExternalIDs = append(page.DeletedExternalIDs, item.Id)
				continue
			}
			event, err := a.toCalendarEvent(account, item)
			if err != nil {
				slog.WarnContext(ctx, "skipping unmappable Google event",
					"event_id", item.Id, logging.ErrKey, err)
				continue
			}
			page.Events = append(page.Events, event)
		}

		if resp.NextPageToken != "" {
			pageToken = resp.NextPageToken
			continue
		}
		page.NextCursor = resp.NextSyncToken
		return page, nil
	}
}

// GetEvent fetches a single event from the primary calendar.
func (a *CalendarAdapter) GetEvent(ctx context.Context, account *models.Account, externalID string) (*models.CalendarEvent, error) {
	svc, err := a.factory.CalendarService(ctx, account)
	if err != nil {
		return nil, domain.NewInternalError("failed to build calendar client", err)
	}

	item, err := svc.Events.Get("primary", externalID).Context(ctx).Do()
	if err != nil {
		return nil, mapAPIError(err)
	}
	return a.toCalendarEvent(account, item)
}

// Refresh exchanges the refresh token for a new credential handle.
func (a *CalendarAdapter) Refresh(ctx context.Context, account *models.Account) (*models.CredentialHandle, error) {
	return a.factory.Refresh(ctx, account)
}

func (a *CalendarAdapter) toCalendarEvent(account *models.Account, item *calendar.Event) (*models.CalendarEvent, error) {
	start, err := parseEventTime(item.Start)
	if err != nil {
		return nil, err
	}
	end, err := parseEventTime(item.End)
	if err != nil {
		return nil, err
	}

	event := &models.CalendarEvent{
		AccountUID:     account.UID,
		ExternalID:     item.Id,
		Title:          item.Summary,
		Description:    item.Description,
		StartTime:      start,
		EndTime:        end,
		RevisionToken:  updatedRevision(item.Updated),
		RecurrenceRule: firstRRule(item.Recurrence),
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	if item.Start != nil {
		event.Timezone = item.Start.TimeZone
	}
	if item.Organizer != nil {
		event.OrganizerEmail = item.Organizer.Email
	}
	for _, att := range item.Attendees {
		event.Attendees = append(event.Attendees, models.Attendee{
			Email:     att.Email,
			Name:      att.DisplayName,
			Organizer: att.Organizer,
		})
	}

	link := utils.DetectConferenceLink(item.HangoutLink, item.Location, item.Description)
	event.Platform = link.Platform
	event.JoinURL = link.JoinURL
	return event, nil
}

// parseEventTime handles both timed events (DateTime) and all-day events
// (Date only).
func parseEventTime(t *calendar.EventDateTime) (time.Time, error) {
	if t == nil {
		return time.Time{}, nil
	}
	if t.DateTime != "" {
		return time.Parse(time.RFC3339, t.DateTime)
	}
	if t.Date != "" {
		return time.Parse("2006-01-02", t.Date)
	}
	return time.Time{}, nil
}

// updatedRevision turns the event's last-modified timestamp into a numeric
// revision token, giving the upsert rule a real ordering to compare.
func updatedRevision(updated string) string {
	t, err := time.Parse(time.RFC3339, updated)
	if err != nil {
		return updated
	}
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func firstRRule(recurrence []string) string {
	for _, line := range recurrence {
		if strings.HasPrefix(line, "RRULE:") {
			return strings.TrimPrefix(line, "RRULE:")
		}
	}
	return ""
}
