// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package store

import (
	"context"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
)

// NatsMeetingRecordingRepository is the NATS KV store repository for
// discovered recordings. Recordings are write-once: there is no update path.
type NatsMeetingRecordingRepository struct {
	*NatsBaseRepository[models.MeetingRecording]
	keyBuilder *KeyBuilder
}

// NewNatsMeetingRecordingRepository creates a new NATS KV store repository for meeting recordings.
func NewNatsMeetingRecordingRepository(kvStore INatsKeyValue) *NatsMeetingRecordingRepository {
	return &NatsMeetingRecordingRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.MeetingRecording](kvStore, "meeting recording"),
		keyBuilder:         NewKeyBuilder(),
	}
}

// Create stores a discovered recording keyed by its meeting reference.
func (r *NatsMeetingRecordingRepository) Create(ctx context.Context, recording *models.MeetingRecording) error {
	if recording.MeetingRef == "" {
		return domain.NewValidationError("recording meeting reference is required")
	}
	return r.NatsBaseRepository.Create(ctx, r.keyBuilder.RefKey(recording.MeetingRef), recording)
}

// Get retrieves a recording by meeting reference.
func (r *NatsMeetingRecordingRepository) Get(ctx context.Context, ref models.MeetingRef) (*models.MeetingRecording, error) {
	return r.NatsBaseRepository.Get(ctx, r.keyBuilder.RefKey(ref))
}

// Exists checks whether a recording was already discovered for a meeting.
func (r *NatsMeetingRecordingRepository) Exists(ctx context.Context, ref models.MeetingRef) (bool, error) {
	return r.NatsBaseRepository.Exists(ctx, r.keyBuilder.RefKey(ref))
}
