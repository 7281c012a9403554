// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"log/slog"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
	"github.com/annix/fieldflow-meeting-intel/internal/logging"
)

// NatsCalendarEventRepository is the NATS KV store repository for the
// normalized calendar event mirror. Events are keyed by their encoded
// meeting reference so that one account's events share a key prefix.
type NatsCalendarEventRepository struct {
	*NatsBaseRepository[models.CalendarEvent]
	keyBuilder *KeyBuilder
}

// NewNatsCalendarEventRepository creates a new NATS KV store repository for calendar events.
func NewNatsCalendarEventRepository(kvStore INatsKeyValue) *NatsCalendarEventRepository {
	return &NatsCalendarEventRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.CalendarEvent](kvStore, "calendar event"),
		keyBuilder:         NewKeyBuilder(),
	}
}

// Create stores a new calendar event.
func (r *NatsCalendarEventRepository) Create(ctx context.Context, event *models.CalendarEvent) error {
	if event.AccountUID == "" || event.ExternalID == "" {
		return domain.NewValidationError("calendar event account UID and external ID are required")
	}
	return r.NatsBaseRepository.Create(ctx, r.keyBuilder.RefKey(event.Ref()), event)
}

// Get retrieves a calendar event by meeting reference.
func (r *NatsCalendarEventRepository) Get(ctx context.Context, ref models.MeetingRef) (*models.CalendarEvent, error) {
	return r.NatsBaseRepository.Get(ctx, r.keyBuilder.RefKey(ref))
}

// GetWithRevision retrieves a calendar event along with its KV revision.
func (r *NatsCalendarEventRepository) GetWithRevision(ctx context.Context, ref models.MeetingRef) (*models.CalendarEvent, uint64, error) {
	return r.NatsBaseRepository.GetWithRevision(ctx, r.keyBuilder.RefKey(ref))
}

// Update replaces a calendar event at the given revision.
func (r *NatsCalendarEventRepository) Update(ctx context.Context, event *models.CalendarEvent, revision uint64) error {
	if event.AccountUID == "" || event.ExternalID == "" {
		return domain.NewValidationError("calendar event account UID and external ID are required")
	}
	return r.NatsBaseRepository.Update(ctx, r.keyBuilder.RefKey(event.Ref()), event, revision)
}

// Delete removes a calendar event regardless of revision. Deletions arrive
// from the provider, which is authoritative, so there is nothing to race.
func (r *NatsCalendarEventRepository) Delete(ctx context.Context, ref models.MeetingRef) error {
	return r.DeleteWithoutRevision(ctx, r.keyBuilder.RefKey(ref))
}

// ListByAccount returns every mirrored event belonging to an account.
func (r *NatsCalendarEventRepository) ListByAccount(ctx context.Context, accountUID string) ([]*models.CalendarEvent, error) {
	return r.ListEntities(ctx, r.keyBuilder.AccountPrefix(accountUID))
}

// DeleteByAccount removes every mirrored event belonging to an account.
func (r *NatsCalendarEventRepository) DeleteByAccount(ctx context.Context, accountUID string) error {
	keys, err := r.ListKeys(ctx)
	if err != nil {
		return err
	}

	prefix := r.keyBuilder.AccountPrefix(accountUID)
	for _, key := range keys {
		if len(key) < len(prefix) || key[:len(prefix)] != prefix {
			continue
		}
		if err := r.DeleteWithoutRevision(ctx, key); err != nil {
			if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
				continue
			}
			slog.ErrorContext(ctx, "error deleting calendar event during account cleanup",
				logging.ErrKey, err, "key", key, "account_uid", accountUID)
			return err
		}
	}
	return nil
}
