// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"errors"

	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
)

// ErrCursorInvalid is returned by a calendar provider when the stored sync
// cursor has expired or been rejected. The synchronizer reacts by falling
// back to a full listing.
var ErrCursorInvalid = errors.New("sync cursor invalid or expired")

// EventPage is one page of results from a provider listing.
type EventPage struct {
	// Events are upsert candidates in provider-neutral form.
	Events []*models.CalendarEvent
	// DeletedExternalIDs are explicit deletion tombstones from an
	// incremental feed. Absence from an incremental page never implies
	// deletion.
	DeletedExternalIDs []string
	// NextCursor is the opaque token to persist once the page's upserts
	// are durably applied.
	NextCursor string
	// FullListing marks a complete (non-incremental) listing; removals
	// are then computed by set difference against the known mirror.
	FullListing bool
}

// CalendarProvider is the uniform capability set every calendar provider
// adapter implements. Callers never branch on provider kind.
type CalendarProvider interface {
	// ListEventsSince lists changes since the cursor. An empty cursor
	// requests a full listing. ErrCursorInvalid signals cursor expiry.
	ListEventsSince(ctx context.Context, account *models.Account, cursor string) (*EventPage, error)

	// GetEvent fetches a single event by its provider ID.
	GetEvent(ctx context.Context, account *models.Account, externalID string) (*models.CalendarEvent, error)

	// Refresh exchanges the account's refresh token for a new credential
	// handle. Called once after an AuthExpired error.
	Refresh(ctx context.Context, account *models.Account) (*models.CredentialHandle, error)
}

// CalendarRegistry resolves calendar provider adapters by provider kind.
type CalendarRegistry interface {
	GetProvider(provider models.Provider) (CalendarProvider, error)
	RegisterProvider(provider models.Provider, p CalendarProvider)
}

// RecordingInfo is a discovered recording handle for an ended meeting.
type RecordingInfo struct {
	Handle        string
	HasTranscript bool
}

// RecordingProvider is the uniform capability set every conferencing
// platform adapter implements for recording discovery.
type RecordingProvider interface {
	// FindRecording looks up the recording for a conference meeting ID.
	// A NotFound error means no recording is available yet; it is not
	// necessarily permanent.
	FindRecording(ctx context.Context, account *models.Account, meetingExternalID string) (*RecordingInfo, error)

	// FetchTranscript downloads the transcript text for a recording
	// handle. NotFound means the transcript is still processing.
	FetchTranscript(ctx context.Context, account *models.Account, handle string) (string, error)
}

// RecordingRegistry resolves recording adapters by conferencing platform.
type RecordingRegistry interface {
	GetProvider(platform models.ConferencePlatform) (RecordingProvider, error)
	RegisterProvider(platform models.ConferencePlatform, p RecordingProvider)
}
