// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
)

// Recording file types we care about.
const (
	FileTypeMP4        = "MP4"
	FileTypeTranscript = "TRANSCRIPT"
)

// RecordingFile is one artifact of a cloud recording (video, audio, VTT
// transcript, chat log).
type RecordingFile struct {
	ID             string `json:"id"`
	MeetingID      string `json:"meeting_id"`
	FileType       string `json:"file_type"`
	FileExtension  string `json:"file_extension"`
	FileSize       int64  `json:"file_size"`
	RecordingStart string `json:"recording_start"`
	RecordingEnd   string `json:"recording_end"`
	Status         string `json:"status"`
	PlayURL        string `json:"play_url"`
	DownloadURL    string `json:"download_url"`
}

// RecordingsResponse represents a meeting's cloud recording set.
type RecordingsResponse struct {
	UUID           string          `json:"uuid"`
	ID             int64           `json:"id"`
	HostID         string          `json:"host_id"`
	Topic          string          `json:"topic"`
	StartTime      string          `json:"start_time"`
	Duration       int             `json:"duration"`
	ShareURL       string          `json:"share_url"`
	RecordingCount int             `json:"recording_count"`
	RecordingFiles []RecordingFile `json:"recording_files"`
}

// TranscriptFile returns the VTT transcript file if one has finished
// processing, or nil.
func (r *RecordingsResponse) TranscriptFile() *RecordingFile {
	for i := range r.RecordingFiles {
		f := &r.RecordingFiles[i]
		if f.FileType == FileTypeTranscript && f.Status == "completed" {
			return f
		}
	}
	return nil
}

// GetMeetingRecordings fetches the cloud recordings of a meeting. A NotFound
// error means the recording has not landed yet; Zoom returns 404 until cloud
// processing completes.
func (c *Client) GetMeetingRecordings(ctx context.Context, meetingID string) (*RecordingsResponse, error) {
	path := fmt.Sprintf("/meetings/%s/recordings", url.PathEscape(meetingID))
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, mapResponseError(resp)
	}

	var result RecordingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode recordings: %w", err)
	}
	return &result, nil
}

// DownloadFile downloads a recording artifact (such as a transcript) from
// its download URL using the client's OAuth token.
func (c *Client) DownloadFile(ctx context.Context, downloadURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.getAuthenticatedClient(ctx).Do(req)
	if err != nil {
		return nil, domain.NewTransientError("zoom download failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, mapResponseError(resp)
	}

	return io.ReadAll(resp.Body)
}
