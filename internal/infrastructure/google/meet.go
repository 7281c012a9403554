// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package google

import (
	"context"
	"fmt"
	"strings"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
	meet "google.golang.org/api/meet/v2"
)

// MeetRecordingAdapter implements domain.RecordingProvider on top of the
// Google Meet conference records API. The platform meeting ID is the Meet
// meeting code ("abc-defg-hij"); the recording handle is the conference
// record resource name.
type MeetRecordingAdapter struct {
	factory *ServiceFactory
}

var _ domain.RecordingProvider = (*MeetRecordingAdapter)(nil)

// NewMeetRecordingAdapter creates a Google Meet recording provider adapter.
func NewMeetRecordingAdapter(factory *ServiceFactory) *MeetRecordingAdapter {
	return &MeetRecordingAdapter{factory: factory}
}

// FindRecording looks up the conference record for a meeting code and checks
// whether any recording artifact exists yet.
func (a *MeetRecordingAdapter) FindRecording(ctx context.Context, account *models.Account, meetingExternalID string) (*domain.RecordingInfo, error) {
	svc, err := a.factory.MeetService(ctx, account)
	if err != nil {
		return nil, domain.NewInternalError("failed to build meet client", err)
	}

	filter := fmt.Sprintf(`space.meeting_code = %q`, meetingExternalID)
	records, err := svc.ConferenceRecords.List().Filter(filter).Context(ctx).Do()
	if err != nil {
		return nil, mapAPIError(err)
	}
	if len(records.ConferenceRecords) == 0 {
		return nil, domain.NewNotFoundError("no conference record for meeting code yet")
	}

	// The most recent conference record is first in the listing.
	record := records.ConferenceRecords[0]

	recordings, err := svc.ConferenceRecords.Recordings.List(record.Name).Context(ctx).Do()
	if err != nil {
		return nil, mapAPIError(err)
	}
	if len(recordings.Recordings) == 0 {
		return nil, domain.NewNotFoundError("recording not available yet")
	}

	hasTranscript := false
	transcripts, err := svc.ConferenceRecords.Transcripts.List(record.Name).Context(ctx).Do()
	if err == nil {
		for _, tr := range transcripts.Transcripts {
			if tr.State == "ENDED" || tr.State == "FILE_GENERATED" {
				hasTranscript = true
				break
			}
		}
	}

	return &domain.RecordingInfo{
		Handle:        record.Name,
		HasTranscript: hasTranscript,
	}, nil
}

// FetchTranscript assembles the transcript text from the structured entries
// of the conference record's transcript.
func (a *MeetRecordingAdapter) FetchTranscript(ctx context.Context, account *models.Account, handle string) (string, error) {
	svc, err := a.factory.MeetService(ctx, account)
	if err != nil {
		return "", domain.NewInternalError("failed to build meet client", err)
	}

	transcripts, err := svc.ConferenceRecords.Transcripts.List(handle).Context(ctx).Do()
	if err != nil {
		return "", mapAPIError(err)
	}
	if len(transcripts.Transcripts) == 0 {
		return "", domain.NewNotFoundError("transcript not available yet")
	}

	var builder strings.Builder
	call := svc.ConferenceRecords.Transcripts.Entries.List(transcripts.Transcripts[0].Name)
	err = call.Pages(ctx, func(resp *meet.ListTranscriptEntriesResponse) error {
		for _, entry := range resp.TranscriptEntries {
			fmt.Fprintf(&builder, "%s: %s\n", entry.Participant, entry.Text)
		}
		return nil
	})
	if err != nil {
		return "", mapAPIError(err)
	}

	if builder.Len() == 0 {
		return "", domain.NewNotFoundError("transcript has no entries yet")
	}
	return builder.String(), nil
}
