// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package store

import (
	"context"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
)

// NatsProcessingRecordRepository is the NATS KV store repository for the
// pipeline ledger. Stage transitions go through GetWithRevision and Update so
// that concurrent workers conflict on the revision instead of clobbering
// each other's progress.
type NatsProcessingRecordRepository struct {
	*NatsBaseRepository[models.ProcessingRecord]
	keyBuilder *KeyBuilder
}

// NewNatsProcessingRecordRepository creates a new NATS KV store repository for processing records.
func NewNatsProcessingRecordRepository(kvStore INatsKeyValue) *NatsProcessingRecordRepository {
	return &NatsProcessingRecordRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.ProcessingRecord](kvStore, "processing record"),
		keyBuilder:         NewKeyBuilder(),
	}
}

// Create stores a new ledger record keyed by its meeting reference.
func (r *NatsProcessingRecordRepository) Create(ctx context.Context, record *models.ProcessingRecord) error {
	if record.MeetingRef == "" {
		return domain.NewValidationError("processing record meeting reference is required")
	}
	return r.NatsBaseRepository.Create(ctx, r.keyBuilder.RefKey(record.MeetingRef), record)
}

// Get retrieves a ledger record by meeting reference.
func (r *NatsProcessingRecordRepository) Get(ctx context.Context, ref models.MeetingRef) (*models.ProcessingRecord, error) {
	return r.NatsBaseRepository.Get(ctx, r.keyBuilder.RefKey(ref))
}

// GetWithRevision retrieves a ledger record along with its KV revision.
func (r *NatsProcessingRecordRepository) GetWithRevision(ctx context.Context, ref models.MeetingRef) (*models.ProcessingRecord, uint64, error) {
	return r.NatsBaseRepository.GetWithRevision(ctx, r.keyBuilder.RefKey(ref))
}

// Update replaces a ledger record at the given revision.
func (r *NatsProcessingRecordRepository) Update(ctx context.Context, record *models.ProcessingRecord, revision uint64) error {
	if record.MeetingRef == "" {
		return domain.NewValidationError("processing record meeting reference is required")
	}
	return r.NatsBaseRepository.Update(ctx, r.keyBuilder.RefKey(record.MeetingRef), record, revision)
}

// Delete removes a ledger record, used when the mirrored event is cancelled.
func (r *NatsProcessingRecordRepository) Delete(ctx context.Context, ref models.MeetingRef) error {
	return r.DeleteWithoutRevision(ctx, r.keyBuilder.RefKey(ref))
}

// ListAll returns every ledger record.
func (r *NatsProcessingRecordRepository) ListAll(ctx context.Context) ([]*models.ProcessingRecord, error) {
	return r.ListEntities(ctx, "")
}

// ListByAccount returns the ledger records for one account's meetings.
func (r *NatsProcessingRecordRepository) ListByAccount(ctx context.Context, accountUID string) ([]*models.ProcessingRecord, error) {
	return r.ListEntities(ctx, r.keyBuilder.AccountPrefix(accountUID))
}
