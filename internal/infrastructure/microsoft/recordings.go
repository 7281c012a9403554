// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package microsoft

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
)

// onlineMeeting is the subset of the Graph onlineMeeting resource needed to
// resolve a join URL to a meeting ID.
type onlineMeeting struct {
	ID         string `json:"id"`
	JoinWebURL string `json:"joinWebUrl"`
}

type onlineMeetingsPage struct {
	Value []onlineMeeting `json:"value"`
}

type artifactsPage struct {
	Value []struct {
		ID                 string `json:"id"`
		ContentCorrelation string `json:"contentCorrelationId"`
	} `json:"value"`
}

// RecordingAdapter implements domain.RecordingProvider for Teams meetings.
// The platform meeting identifier is the Teams join URL; the recording
// handle is the resolved online meeting ID.
type RecordingAdapter struct {
	client *Client
}

var _ domain.RecordingProvider = (*RecordingAdapter)(nil)

// NewRecordingAdapter creates a Teams recording provider adapter.
func NewRecordingAdapter(client *Client) *RecordingAdapter {
	return &RecordingAdapter{client: client}
}

// FindRecording resolves the join URL to an online meeting and checks for
// recording artifacts. Artifacts appear some time after the meeting ends, so
// an empty set maps to NotFound and the discovery loop keeps retrying.
func (a *RecordingAdapter) FindRecording(ctx context.Context, account *models.Account, meetingExternalID string) (*domain.RecordingInfo, error) {
	meetingID, err := a.resolveMeetingID(ctx, account, meetingExternalID)
	if err != nil {
		return nil, err
	}

	var recordings artifactsPage
	recordingsURL := a.client.BaseURLFor("/me/onlineMeetings/" + url.PathEscape(meetingID) + "/recordings")
	if err := a.client.GetJSON(ctx, account, recordingsURL, &recordings); err != nil {
		return nil, err
	}
	if len(recordings.Value) == 0 {
		return nil, domain.NewNotFoundError("teams recording not available yet")
	}

	hasTranscript := false
	var transcripts artifactsPage
	transcriptsURL := a.client.BaseURLFor("/me/onlineMeetings/" + url.PathEscape(meetingID) + "/transcripts")
	if err := a.client.GetJSON(ctx, account, transcriptsURL, &transcripts); err == nil {
		hasTranscript = len(transcripts.Value) > 0
	}

	return &domain.RecordingInfo{
		Handle:        meetingID,
		HasTranscript: hasTranscript,
	}, nil
}

// FetchTranscript downloads the VTT transcript content for the online
// meeting's first transcript artifact.
func (a *RecordingAdapter) FetchTranscript(ctx context.Context, account *models.Account, handle string) (string, error) {
	var transcripts artifactsPage
	transcriptsURL := a.client.BaseURLFor("/me/onlineMeetings/" + url.PathEscape(handle) + "/transcripts")
	if err := a.client.GetJSON(ctx, account, transcriptsURL, &transcripts); err != nil {
		return "", err
	}
	if len(transcripts.Value) == 0 {
		return "", domain.NewNotFoundError("teams transcript not available yet")
	}

	contentURL := transcriptsURL + "/" + url.PathEscape(transcripts.Value[0].ID) + "/content?$format=text/vtt"
	content, err := a.client.GetRaw(ctx, account, contentURL)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// resolveMeetingID finds the online meeting whose join URL matches. Graph
// only supports exact-match filtering on JoinWebUrl.
func (a *RecordingAdapter) resolveMeetingID(ctx context.Context, account *models.Account, joinURL string) (string, error) {
	filter := fmt.Sprintf("JoinWebUrl eq '%s'", strings.ReplaceAll(joinURL, "'", "''"))
	requestURL := a.client.BaseURLFor("/me/onlineMeetings?$filter=" + url.QueryEscape(filter))

	var meetings onlineMeetingsPage
	if err := a.client.GetJSON(ctx, account, requestURL, &meetings); err != nil {
		return "", err
	}
	if len(meetings.Value) == 0 {
		return "", domain.NewNotFoundError("no online meeting matches join URL")
	}
	return meetings.Value[0].ID, nil
}
