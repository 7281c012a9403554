// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package microsoft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
	"github.com/annix/fieldflow-meeting-intel/internal/logging"
	"github.com/annix/fieldflow-meeting-intel/internal/utils"
)

const (
	// deltaLookback and deltaHorizon bound the calendar view registered
	// with the delta feed.
	deltaLookback = 7 * 24 * time.Hour
	deltaHorizon  = 60 * 24 * time.Hour
)

// graphDateTime is Graph's dateTimeTimeZone shape.
type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// graphEvent is the subset of the Graph event resource the mirror needs.
type graphEvent struct {
	ID      string `json:"id"`
	Removed *struct {
		Reason string `json:"reason"`
	} `json:"@removed,omitempty"`
	Subject     string         `json:"subject"`
	BodyPreview string         `json:"bodyPreview"`
	ChangeKey   string         `json:"changeKey"`
	IsCancelled bool           `json:"isCancelled"`
	Start       *graphDateTime `json:"start"`
	End         *graphDateTime `json:"end"`
	Location    *struct {
		DisplayName string `json:"displayName"`
	} `json:"location"`
	OnlineMeeting *struct {
		JoinURL string `json:"joinUrl"`
	} `json:"onlineMeeting"`
	OnlineMeetingURL string `json:"onlineMeetingUrl"`
	Organizer        *struct {
		EmailAddress struct {
			Name    string `json:"name"`
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"organizer"`
	Attendees []struct {
		EmailAddress struct {
			Name    string `json:"name"`
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"attendees"`
	Recurrence *graphRecurrence `json:"recurrence"`
}

type graphRecurrence struct {
	Pattern struct {
		Type       string   `json:"type"`
		Interval   int      `json:"interval"`
		DaysOfWeek []string `json:"daysOfWeek"`
		DayOfMonth int      `json:"dayOfMonth"`
	} `json:"pattern"`
}

// eventsPage is the delta feed envelope.
type eventsPage struct {
	Value     []graphEvent `json:"value"`
	NextLink  string       `json:"@odata.nextLink"`
	DeltaLink string       `json:"@odata.deltaLink"`
}

// CalendarAdapter implements domain.CalendarProvider on top of the Outlook
// calendar delta query. The cursor is the full delta link URL.
type CalendarAdapter struct {
	client *Client
}

var _ domain.CalendarProvider = (*CalendarAdapter)(nil)

// NewCalendarAdapter creates a Microsoft calendar provider adapter.
func NewCalendarAdapter(client *Client) *CalendarAdapter {
	return &CalendarAdapter{client: client}
}

// ListEventsSince lists event changes since the delta link. Graph reports an
// expired sync state with 410 Gone, surfaced as ErrCursorInvalid. Removed
// events arrive as @removed tombstones.
func (a *CalendarAdapter) ListEventsSince(ctx context.Context, account *models.Account, cursor string) (*domain.EventPage, error) {
	requestURL := cursor
	if requestURL == "" {
		now := time.Now().UTC()
		query := url.Values{
			"startDateTime": []string{now.Add(-deltaLookback).Format(time.RFC3339)},
			"endDateTime":   []string{now.Add(deltaHorizon).Format(time.RFC3339)},
		}
		requestURL = a.client.BaseURLFor("/me/calendarView/delta?" + query.Encode())
	}

	page := &domain.EventPage{FullListing: cursor == ""}
	for {
		var resp eventsPage
		if err := a.client.GetJSON(ctx, account, requestURL, &resp); err != nil {
			if errors.Is(err, domain.ErrCursorInvalid) {
				return nil, domain.ErrCursorInvalid
			}
			return nil, err
		}

		for i := range resp.Value {
			item := &resp.Value[i]
			if item.Removed != nil || item.IsCancelled {
				page.DeletedExternalIDs = append(page.DeletedExternalIDs, item.ID)
				continue
			}
			event, err := a.toCalendarEvent(account, item)
			if err != nil {
				slog.WarnContext(ctx, "skipping unmappable Graph event",
					"event_id", item.ID, logging.ErrKey, err)
				continue
			}
			page.Events = append(page.Events, event)
		}

		if resp.NextLink != "" {
			requestURL = resp.NextLink
			continue
		}
		page.NextCursor = resp.DeltaLink
		return page, nil
	}
}

// GetEvent fetches a single event by its Graph ID.
func (a *CalendarAdapter) GetEvent(ctx context.Context, account *models.Account, externalID string) (*models.CalendarEvent, error) {
	var item graphEvent
	requestURL := a.client.BaseURLFor("/me/events/" + url.PathEscape(externalID))
	if err := a.client.GetJSON(ctx, account, requestURL, &item); err != nil {
		return nil, err
	}
	return a.toCalendarEvent(account, &item)
}

// Refresh exchanges the refresh token for a new credential handle.
func (a *CalendarAdapter) Refresh(ctx context.Context, account *models.Account) (*models.CredentialHandle, error) {
	return a.client.Refresh(ctx, account)
}

func (a *CalendarAdapter) toCalendarEvent(account *models.Account, item *graphEvent) (*models.CalendarEvent, error) {
	start, err := parseGraphTime(item.Start)
	if err != nil {
		return nil, err
	}
	end, err := parseGraphTime(item.End)
	if err != nil {
		return nil, err
	}

	event := &models.CalendarEvent{
		AccountUID:     account.UID,
		ExternalID:     item.ID,
		Title:          item.Subject,
		Description:    item.BodyPreview,
		StartTime:      start,
		EndTime:        end,
		RevisionToken:  item.ChangeKey,
		RecurrenceRule: recurrenceToRRule(item.Recurrence),
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	if item.Start != nil {
		event.Timezone = item.Start.TimeZone
	}
	if item.Organizer != nil {
		event.OrganizerEmail = item.Organizer.EmailAddress.Address
	}
	for _, att := range item.Attendees {
		event.Attendees = append(event.Attendees, models.Attendee{
			Email: att.EmailAddress.Address,
			Name:  att.EmailAddress.Name,
		})
	}

	var location string
	if item.Location != nil {
		location = item.Location.DisplayName
	}
	joinURL := item.OnlineMeetingURL
	if item.OnlineMeeting != nil && item.OnlineMeeting.JoinURL != "" {
		joinURL = item.OnlineMeeting.JoinURL
	}
	link := utils.DetectConferenceLink(joinURL, location, item.BodyPreview)
	event.Platform = link.Platform
	event.JoinURL = link.JoinURL
	return event, nil
}

// parseGraphTime parses Graph's dateTimeTimeZone. Delta responses return
// UTC times without an offset suffix.
func parseGraphTime(t *graphDateTime) (time.Time, error) {
	if t == nil || t.DateTime == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, t.DateTime); err == nil {
		return ts, nil
	}
	ts, err := time.Parse("2006-01-02T15:04:05.9999999", t.DateTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable graph time %q: %w", t.DateTime, err)
	}
	loc := time.UTC
	if t.TimeZone != "" && t.TimeZone != "UTC" {
		if parsed, err := time.LoadLocation(t.TimeZone); err == nil {
			loc = parsed
		}
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond(), loc), nil
}

var graphDayAbbrev = map[string]string{
	"monday": "MO", "tuesday": "TU", "wednesday": "WE", "thursday": "TH",
	"friday": "FR", "saturday": "SA", "sunday": "SU",
}

// recurrenceToRRule converts Graph's structured recurrence pattern into an
// RRULE string for the common daily/weekly/monthly shapes. Rarer patterns
// are dropped; the mirror then treats the occurrence as standalone.
func recurrenceToRRule(rec *graphRecurrence) string {
	if rec == nil {
		return ""
	}

	interval := rec.Pattern.Interval
	if interval <= 0 {
		interval = 1
	}

	switch rec.Pattern.Type {
	case "daily":
		return fmt.Sprintf("FREQ=DAILY;INTERVAL=%d", interval)
	case "weekly":
		var days []string
		for _, day := range rec.Pattern.DaysOfWeek {
			if abbrev, ok := graphDayAbbrev[strings.ToLower(day)]; ok {
				days = append(days, abbrev)
			}
		}
		rule := fmt.Sprintf("FREQ=WEEKLY;INTERVAL=%d", interval)
		if len(days) > 0 {
			rule += ";BYDAY=" + strings.Join(days, ",")
		}
		return rule
	case "absoluteMonthly":
		return fmt.Sprintf("FREQ=MONTHLY;INTERVAL=%d;BYMONTHDAY=%d", interval, rec.Pattern.DayOfMonth)
	default:
		return ""
	}
}
