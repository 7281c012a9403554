// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package zoom

import (
	"context"
	"testing"
	"time"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
	"github.com/annix/fieldflow-meeting-intel/internal/infrastructure/zoom/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testAccount() *models.Account {
	return &models.Account{
		UID:        "acct-zoom",
		Provider:   models.ProviderZoom,
		OwnerEmail: "host@example.com",
	}
}

func TestCalendarAdapterListEventsSince(t *testing.T) {
	client := &MockClientAPI{}
	client.On("ListMeetings", mock.Anything, "host@example.com", "").Return(&api.ListMeetingsResponse{
		NextPageToken: "page-2",
		Meetings: []api.Meeting{
			{
				ID:        91234567890,
				Topic:     "Weekly sync",
				StartTime: "2026-09-01T15:00:00Z",
				Duration:  30,
				Timezone:  "UTC",
				HostEmail: "host@example.com",
				JoinURL:   "https://zoom.us/j/91234567890",
			},
			{
				// Unparseable start time gets skipped, not fatal.
				ID:        91234567891,
				Topic:     "Broken",
				StartTime: "whenever",
			},
		},
	}, nil)

	adapter := NewCalendarAdapter(client)
	page, err := adapter.ListEventsSince(context.Background(), testAccount(), "")
	require.NoError(t, err)

	assert.True(t, page.FullListing)
	assert.Equal(t, "page-2", page.NextCursor)
	require.Len(t, page.Events, 1)

	event := page.Events[0]
	assert.Equal(t, "91234567890", event.ExternalID)
	assert.Equal(t, "acct-zoom", event.AccountUID)
	assert.Equal(t, models.PlatformZoom, event.Platform)
	assert.NotEmpty(t, event.RevisionToken)
	assert.Equal(t, event.StartTime.Add(30*time.Minute), event.EndTime)
}

func TestCalendarAdapterStalePageToken(t *testing.T) {
	client := &MockClientAPI{}
	client.On("ListMeetings", mock.Anything, "host@example.com", "stale").
		Return(nil, domain.NewPermanentError("zoom API error (code 300): invalid page token"))

	adapter := NewCalendarAdapter(client)
	_, err := adapter.ListEventsSince(context.Background(), testAccount(), "stale")
	assert.ErrorIs(t, err, domain.ErrCursorInvalid)
}

func TestCalendarAdapterMarksRecurringMeetings(t *testing.T) {
	client := &MockClientAPI{}
	client.On("ListMeetings", mock.Anything, "host@example.com", "").Return(&api.ListMeetingsResponse{
		Meetings: []api.Meeting{
			{ID: 1, Topic: "One-off", Type: api.MeetingTypeScheduled, StartTime: "2026-09-01T15:00:00Z", Duration: 30},
			{ID: 2, Topic: "Standup", Type: api.MeetingTypeRecurringFixedTime, StartTime: "2026-09-02T09:00:00Z", Duration: 15},
			{ID: 3, Topic: "Ad hoc series", Type: api.MeetingTypeRecurringNoFixedTime, StartTime: "2026-09-03T09:00:00Z", Duration: 15},
		},
	}, nil)

	adapter := NewCalendarAdapter(client)
	page, err := adapter.ListEventsSince(context.Background(), testAccount(), "")
	require.NoError(t, err)
	require.Len(t, page.Events, 3)

	assert.False(t, page.Events[0].IsRecurring())
	assert.True(t, page.Events[1].IsRecurring())
	assert.True(t, page.Events[2].IsRecurring())
}

func TestContentRevisionChangesWithContent(t *testing.T) {
	base := &api.Meeting{Topic: "Sync", StartTime: "2026-09-01T15:00:00Z", Duration: 30}
	moved := &api.Meeting{Topic: "Sync", StartTime: "2026-09-01T16:00:00Z", Duration: 30}

	assert.Equal(t, contentRevision(base), contentRevision(base))
	assert.NotEqual(t, contentRevision(base), contentRevision(moved))
}

func TestRecordingAdapterFindRecording(t *testing.T) {
	client := &MockClientAPI{}
	client.On("GetMeetingRecordings", mock.Anything, "91234567890").Return(&api.RecordingsResponse{
		RecordingFiles: []api.RecordingFile{
			{FileType: api.FileTypeMP4, Status: "completed", DownloadURL: "https://zoom.us/rec/video"},
			{FileType: api.FileTypeTranscript, Status: "completed", DownloadURL: "https://zoom.us/rec/vtt"},
		},
	}, nil)

	adapter := NewRecordingAdapter(client)
	info, err := adapter.FindRecording(context.Background(), testAccount(), "91234567890")
	require.NoError(t, err)
	assert.Equal(t, "91234567890", info.Handle)
	assert.True(t, info.HasTranscript)
}

func TestRecordingAdapterEmptyRecordingSetIsNotFound(t *testing.T) {
	client := &MockClientAPI{}
	client.On("GetMeetingRecordings", mock.Anything, "91234567890").
		Return(&api.RecordingsResponse{}, nil)

	adapter := NewRecordingAdapter(client)
	_, err := adapter.FindRecording(context.Background(), testAccount(), "91234567890")
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}

func TestRecordingAdapterFetchTranscript(t *testing.T) {
	client := &MockClientAPI{}
	client.On("GetMeetingRecordings", mock.Anything, "91234567890").Return(&api.RecordingsResponse{
		RecordingFiles: []api.RecordingFile{
			{FileType: api.FileTypeTranscript, Status: "completed", DownloadURL: "https://zoom.us/rec/vtt"},
		},
	}, nil)
	client.On("DownloadFile", mock.Anything, "https://zoom.us/rec/vtt").
		Return([]byte("WEBVTT\n\n00:01 --> 00:02\nhello"), nil)

	adapter := NewRecordingAdapter(client)
	text, err := adapter.FetchTranscript(context.Background(), testAccount(), "91234567890")
	require.NoError(t, err)
	assert.Contains(t, text, "WEBVTT")
}

func TestRecordingAdapterTranscriptStillProcessing(t *testing.T) {
	client := &MockClientAPI{}
	client.On("GetMeetingRecordings", mock.Anything, "91234567890").Return(&api.RecordingsResponse{
		RecordingFiles: []api.RecordingFile{
			{FileType: api.FileTypeMP4, Status: "completed"},
			{FileType: api.FileTypeTranscript, Status: "processing"},
		},
	}, nil)

	adapter := NewRecordingAdapter(client)
	_, err := adapter.FetchTranscript(context.Background(), testAccount(), "91234567890")
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}
