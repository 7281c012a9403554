// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
	"github.com/annix/fieldflow-meeting-intel/internal/logging"
	"github.com/annix/fieldflow-meeting-intel/internal/utils"
)

// DiscoveryOutcome classifies one recording lookup for an ended meeting.
type DiscoveryOutcome int

const (
	// DiscoveryFound means a recording exists and has been persisted.
	DiscoveryFound DiscoveryOutcome = iota
	// DiscoveryPending means the platform has no recording yet; the
	// lookup should be retried later within the discovery window.
	DiscoveryPending
	// DiscoveryNotApplicable means no recording can ever be found for
	// this meeting, for example when it carries no conferencing link.
	DiscoveryNotApplicable
)

// DiscoveryService locates recordings for ended meetings on the meeting's
// conferencing platform.
type DiscoveryService struct {
	RecordingRepository domain.MeetingRecordingRepository
	RecordingRegistry   domain.RecordingRegistry

	now func() time.Time
}

// NewDiscoveryService creates a new recording discovery service.
func NewDiscoveryService(
	recordingRepository domain.MeetingRecordingRepository,
	recordingRegistry domain.RecordingRegistry,
) *DiscoveryService {
	return &DiscoveryService{
		RecordingRepository: recordingRepository,
		RecordingRegistry:   recordingRegistry,
		now:                 time.Now,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *DiscoveryService) ServiceReady() bool {
	return s.RecordingRepository != nil && s.RecordingRegistry != nil
}

// Discover looks up the recording for an ended meeting. The returned
// recording is non-nil only for DiscoveryFound. Discovery is idempotent: a
// meeting whose recording was already persisted reports Found again without
// touching the platform. The ref is the pipeline reference, which carries
// the occurrence segment for recurring meetings so each occurrence gets its
// own recording.
func (s *DiscoveryService) Discover(ctx context.Context, ref models.MeetingRef, account *models.Account, event *models.CalendarEvent) (DiscoveryOutcome, *models.MeetingRecording, error) {
	if !s.ServiceReady() {
		return 0, nil, domain.NewUnavailableError("discovery service not initialized")
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_ref", ref.String()))

	if existing, err := s.RecordingRepository.Get(ctx, ref); err == nil {
		return DiscoveryFound, existing, nil
	} else if domain.GetErrorType(err) != domain.ErrorTypeNotFound {
		return 0, nil, err
	}

	link := utils.DetectConferenceLink(event.JoinURL, event.Description)
	if link.Platform == models.PlatformNone {
		slog.InfoContext(ctx, "meeting has no conferencing link, skipping discovery")
		return DiscoveryNotApplicable, nil, nil
	}

	provider, err := s.RecordingRegistry.GetProvider(link.Platform)
	if err != nil {
		slog.WarnContext(ctx, "no recording adapter for platform", "platform", string(link.Platform))
		return DiscoveryNotApplicable, nil, nil
	}

	info, err := provider.FindRecording(ctx, account, link.LookupID())
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return DiscoveryPending, nil, nil
		}
		return 0, nil, err
	}

	recording := &models.MeetingRecording{
		UID:             uuid.New().String(),
		MeetingRef:      ref,
		Platform:        link.Platform,
		RecordingHandle: info.Handle,
		HasTranscript:   info.HasTranscript,
		DiscoveredAt:    s.now().UTC(),
	}
	if err := s.RecordingRepository.Create(ctx, recording); err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeConflict {
			// A concurrent worker won the write; the recording is
			// immutable so theirs is as good as ours.
			existing, getErr := s.RecordingRepository.Get(ctx, ref)
			if getErr != nil {
				return 0, nil, getErr
			}
			return DiscoveryFound, existing, nil
		}
		return 0, nil, err
	}

	slog.InfoContext(ctx, "recording discovered",
		"platform", string(link.Platform), "has_transcript", info.HasTranscript)
	return DiscoveryFound, recording, nil
}
