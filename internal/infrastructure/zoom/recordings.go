// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package zoom

import (
	"context"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
	"github.com/annix/fieldflow-meeting-intel/internal/infrastructure/zoom/api"
)

// RecordingAdapter implements domain.RecordingProvider for Zoom cloud
// recordings. The recording handle is the meeting ID; Zoom is re-queried at
// transcript fetch time because transcript processing lags the recording.
type RecordingAdapter struct {
	client api.ClientAPI
}

var _ domain.RecordingProvider = (*RecordingAdapter)(nil)

// NewRecordingAdapter creates a Zoom recording provider adapter.
func NewRecordingAdapter(client api.ClientAPI) *RecordingAdapter {
	return &RecordingAdapter{client: client}
}

// FindRecording looks up the cloud recording for a meeting. Zoom answers 404
// until cloud processing completes, which maps to NotFound and keeps the
// discovery retry loop going.
func (a *RecordingAdapter) FindRecording(ctx context.Context, account *models.Account, meetingExternalID string) (*domain.RecordingInfo, error) {
	recordings, err := a.client.GetMeetingRecordings(ctx, meetingExternalID)
	if err != nil {
		return nil, err
	}
	if len(recordings.RecordingFiles) == 0 {
		return nil, domain.NewNotFoundError("no recording files available yet")
	}

	return &domain.RecordingInfo{
		Handle:        meetingExternalID,
		HasTranscript: recordings.TranscriptFile() != nil,
	}, nil
}

// FetchTranscript downloads the VTT transcript for a recording. NotFound
// means the transcript is still processing even though the recording landed.
func (a *RecordingAdapter) FetchTranscript(ctx context.Context, account *models.Account, handle string) (string, error) {
	recordings, err := a.client.GetMeetingRecordings(ctx, handle)
	if err != nil {
		return "", err
	}

	transcript := recordings.TranscriptFile()
	if transcript == nil {
		return "", domain.NewNotFoundError("transcript not available yet")
	}

	data, err := a.client.DownloadFile(ctx, transcript.DownloadURL)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
