// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package store

import (
	"context"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
)

// NatsAccountRepository is the NATS KV store repository for calendar accounts.
// Account UIDs are generated UUIDs, so they are stored unencoded.
type NatsAccountRepository struct {
	*NatsBaseRepository[models.Account]
}

// NewNatsAccountRepository creates a new NATS KV store repository for calendar accounts.
func NewNatsAccountRepository(kvStore INatsKeyValue) *NatsAccountRepository {
	return &NatsAccountRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.Account](kvStore, "account"),
	}
}

// Create stores a new account keyed by its UID.
func (r *NatsAccountRepository) Create(ctx context.Context, account *models.Account) error {
	if account.UID == "" {
		return domain.NewValidationError("account UID is required")
	}
	return r.NatsBaseRepository.Create(ctx, account.UID, account)
}

// Get retrieves an account by UID.
func (r *NatsAccountRepository) Get(ctx context.Context, uid string) (*models.Account, error) {
	return r.NatsBaseRepository.Get(ctx, uid)
}

// GetWithRevision retrieves an account along with its KV revision.
func (r *NatsAccountRepository) GetWithRevision(ctx context.Context, uid string) (*models.Account, uint64, error) {
	return r.NatsBaseRepository.GetWithRevision(ctx, uid)
}

// Update replaces an account at the given revision.
func (r *NatsAccountRepository) Update(ctx context.Context, account *models.Account, revision uint64) error {
	if account.UID == "" {
		return domain.NewValidationError("account UID is required")
	}
	return r.NatsBaseRepository.Update(ctx, account.UID, account, revision)
}

// Delete removes an account at the given revision.
func (r *NatsAccountRepository) Delete(ctx context.Context, uid string, revision uint64) error {
	return r.NatsBaseRepository.Delete(ctx, uid, revision)
}

// ListAll returns every connected account.
func (r *NatsAccountRepository) ListAll(ctx context.Context) ([]*models.Account, error) {
	return r.ListEntities(ctx, "")
}
