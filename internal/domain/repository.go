// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
)

// AccountRepository defines storage operations for calendar accounts.
// Implementations use optimistic concurrency: updates and deletes carry the
// revision observed at read time and fail with a Conflict error when stale.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	Get(ctx context.Context, uid string) (*models.Account, error)
	GetWithRevision(ctx context.Context, uid string) (*models.Account, uint64, error)
	Update(ctx context.Context, account *models.Account, revision uint64) error
	Delete(ctx context.Context, uid string, revision uint64) error
	ListAll(ctx context.Context) ([]*models.Account, error)
}

// CalendarEventRepository defines storage operations for the event mirror.
type CalendarEventRepository interface {
	Create(ctx context.Context, event *models.CalendarEvent) error
	Get(ctx context.Context, ref models.MeetingRef) (*models.CalendarEvent, error)
	GetWithRevision(ctx context.Context, ref models.MeetingRef) (*models.CalendarEvent, uint64, error)
	Update(ctx context.Context, event *models.CalendarEvent, revision uint64) error
	Delete(ctx context.Context, ref models.MeetingRef) error
	ListByAccount(ctx context.Context, accountUID string) ([]*models.CalendarEvent, error)
	DeleteByAccount(ctx context.Context, accountUID string) error
}

// MeetingRecordingRepository defines storage operations for discovered
// recordings. Recordings are immutable once created.
type MeetingRecordingRepository interface {
	Create(ctx context.Context, recording *models.MeetingRecording) error
	Get(ctx context.Context, ref models.MeetingRef) (*models.MeetingRecording, error)
	Exists(ctx context.Context, ref models.MeetingRef) (bool, error)
}

// MeetingSummaryRepository defines storage operations for generated
// summaries.
type MeetingSummaryRepository interface {
	Create(ctx context.Context, summary *models.MeetingSummary) error
	Get(ctx context.Context, ref models.MeetingRef) (*models.MeetingSummary, error)
}

// ProcessingRecordRepository defines storage operations for the pipeline
// ledger. Every stage transition goes through GetWithRevision followed by
// Update, so concurrent workers race on the revision rather than the data.
type ProcessingRecordRepository interface {
	Create(ctx context.Context, record *models.ProcessingRecord) error
	Get(ctx context.Context, ref models.MeetingRef) (*models.ProcessingRecord, error)
	GetWithRevision(ctx context.Context, ref models.MeetingRef) (*models.ProcessingRecord, uint64, error)
	Update(ctx context.Context, record *models.ProcessingRecord, revision uint64) error
	Delete(ctx context.Context, ref models.MeetingRef) error
	ListAll(ctx context.Context) ([]*models.ProcessingRecord, error)
	ListByAccount(ctx context.Context, accountUID string) ([]*models.ProcessingRecord, error)
}
