// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Meeting type constants for Zoom API
const (
	MeetingTypeInstant              = 1
	MeetingTypeScheduled            = 2
	MeetingTypeRecurringNoFixedTime = 3
	MeetingTypeRecurringFixedTime   = 8
)

// Meeting represents a scheduled Zoom meeting as returned by the API.
type Meeting struct {
	ID        int64  `json:"id"`
	UUID      string `json:"uuid"`
	HostID    string `json:"host_id"`
	HostEmail string `json:"host_email"`
	Topic     string `json:"topic"`
	Type      int    `json:"type"`
	Status    string `json:"status"`
	StartTime string `json:"start_time"`
	Duration  int    `json:"duration"` // minutes
	Timezone  string `json:"timezone"`
	Agenda    string `json:"agenda"`
	CreatedAt string `json:"created_at"`
	JoinURL   string `json:"join_url"`
}

// ListMeetingsResponse represents one page of a user's scheduled meetings.
type ListMeetingsResponse struct {
	PageSize      int       `json:"page_size"`
	TotalRecords  int       `json:"total_records"`
	NextPageToken string    `json:"next_page_token"`
	Meetings      []Meeting `json:"meetings"`
}

// ListMeetings lists a user's scheduled meetings, one page at a time. The
// "scheduled" listing type also returns past meetings that have not yet
// expired, unlike "upcoming" which drops a meeting the moment it ends.
func (c *Client) ListMeetings(ctx context.Context, userID, pageToken string) (*ListMeetingsResponse, error) {
	query := url.Values{
		"type":      []string{"scheduled"},
		"page_size": []string{"300"},
	}
	if pageToken != "" {
		query.Set("next_page_token", pageToken)
	}

	path := fmt.Sprintf("/users/%s/meetings?%s", url.PathEscape(userID), query.Encode())
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, mapResponseError(resp)
	}

	var result ListMeetingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode meetings list: %w", err)
	}
	return &result, nil
}

// GetMeeting fetches a single meeting by its numeric ID.
func (c *Client) GetMeeting(ctx context.Context, meetingID string) (*Meeting, error) {
	path := fmt.Sprintf("/meetings/%s", url.PathEscape(meetingID))
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, mapResponseError(resp)
	}

	var meeting Meeting
	if err := json.NewDecoder(resp.Body).Decode(&meeting); err != nil {
		return nil, fmt.Errorf("failed to decode meeting: %w", err)
	}
	return &meeting, nil
}
