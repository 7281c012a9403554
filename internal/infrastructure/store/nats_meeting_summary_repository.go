// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package store

import (
	"context"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
)

// NatsMeetingSummaryRepository is the NATS KV store repository for generated
// meeting summaries.
type NatsMeetingSummaryRepository struct {
	*NatsBaseRepository[models.MeetingSummary]
	keyBuilder *KeyBuilder
}

// NewNatsMeetingSummaryRepository creates a new NATS KV store repository for meeting summaries.
func NewNatsMeetingSummaryRepository(kvStore INatsKeyValue) *NatsMeetingSummaryRepository {
	return &NatsMeetingSummaryRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.MeetingSummary](kvStore, "meeting summary"),
		keyBuilder:         NewKeyBuilder(),
	}
}

// Create stores a generated summary keyed by its meeting reference.
func (r *NatsMeetingSummaryRepository) Create(ctx context.Context, summary *models.MeetingSummary) error {
	if summary.MeetingRef == "" {
		return domain.NewValidationError("summary meeting reference is required")
	}
	return r.NatsBaseRepository.Create(ctx, r.keyBuilder.RefKey(summary.MeetingRef), summary)
}

// Get retrieves a summary by meeting reference.
func (r *NatsMeetingSummaryRepository) Get(ctx context.Context, ref models.MeetingRef) (*models.MeetingSummary, error) {
	return r.NatsBaseRepository.Get(ctx, r.keyBuilder.RefKey(ref))
}
