// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
	"github.com/annix/fieldflow-meeting-intel/internal/logging"
	"github.com/annix/fieldflow-meeting-intel/pkg/concurrent"
	"github.com/annix/fieldflow-meeting-intel/pkg/utils"
)

// maxSyncPages bounds one sync pass so a misbehaving provider cannot pin a
// worker forever.
const maxSyncPages = 50

// SyncResult reports what one sync pass changed in the mirror.
type SyncResult struct {
	Added      int
	Updated    int
	Removed    int
	NextCursor string
}

// SyncService maintains the local calendar-event mirror per account.
type SyncService struct {
	AccountRepository domain.AccountRepository
	EventRepository   domain.CalendarEventRepository
	RecordRepository  domain.ProcessingRecordRepository
	CalendarRegistry  domain.CalendarRegistry
	Config            ServiceConfig

	syncLocks *concurrent.KeyedMutex
	now       func() time.Time
}

// NewSyncService creates a new calendar synchronizer.
func NewSyncService(
	accountRepository domain.AccountRepository,
	eventRepository domain.CalendarEventRepository,
	recordRepository domain.ProcessingRecordRepository,
	calendarRegistry domain.CalendarRegistry,
	config ServiceConfig,
) *SyncService {
	return &SyncService{
		AccountRepository: accountRepository,
		EventRepository:   eventRepository,
		RecordRepository:  recordRepository,
		CalendarRegistry:  calendarRegistry,
		Config:            config,
		syncLocks:         concurrent.NewKeyedMutex(),
		now:               time.Now,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *SyncService) ServiceReady() bool {
	return s.AccountRepository != nil &&
		s.EventRepository != nil &&
		s.RecordRepository != nil &&
		s.CalendarRegistry != nil
}

// listing accumulates all pages of one provider traversal.
type listing struct {
	events  []*models.CalendarEvent
	deleted []string
	cursor  string
	full    bool
}

// SyncAccount runs one sync pass for the account. Concurrent calls for the
// same account serialize; distinct accounts run independently.
func (s *SyncService) SyncAccount(ctx context.Context, accountUID string) (*SyncResult, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "sync service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("sync service not initialized")
	}

	s.syncLocks.Lock(accountUID)
	defer s.syncLocks.Unlock(accountUID)

	ctx = logging.AppendCtx(ctx, slog.String("account_uid", accountUID))

	account, accountRevision, err := s.AccountRepository.GetWithRevision(ctx, accountUID)
	if err != nil {
		return nil, err
	}
	ctx = logging.AppendCtx(ctx, slog.String("provider", string(account.Provider)))

	provider, err := s.CalendarRegistry.GetProvider(account.Provider)
	if err != nil {
		return nil, err
	}

	list, err := s.listWithRecovery(ctx, provider, account)
	if err != nil {
		s.recordSyncFailure(ctx, account, accountRevision, err)
		return nil, err
	}

	result, err := s.applyListing(ctx, account, list)
	if err != nil {
		s.recordSyncFailure(ctx, account, accountRevision, err)
		return nil, err
	}

	// The cursor is persisted only now, after every upsert in the batch
	// is durably applied. A crash mid-batch re-processes the same page
	// instead of leaving a silent gap.
	now := s.now().UTC()
	account.SyncCursor = list.cursor
	account.LastSyncAt = utils.Ptr(now)
	account.SyncStatus = models.SyncStatusActive
	account.LastSyncError = ""
	account.UpdatedAt = now
	if err := s.updateAccount(ctx, account, accountRevision); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "account sync completed",
		"added", result.Added, "updated", result.Updated, "removed", result.Removed,
		"full_listing", list.full)
	return result, nil
}

// listWithRecovery traverses the provider listing, falling back to a full
// listing when the cursor has expired and refreshing the credential once on
// an auth failure.
func (s *SyncService) listWithRecovery(ctx context.Context, provider domain.CalendarProvider, account *models.Account) (*listing, error) {
	list, err := s.collectPages(ctx, provider, account, account.SyncCursor)
	if err == nil {
		return list, nil
	}

	if errors.Is(err, domain.ErrCursorInvalid) && account.SyncCursor != "" {
		slog.InfoContext(ctx, "sync cursor expired, falling back to full listing")
		list, err = s.collectPages(ctx, provider, account, "")
		if err == nil {
			list.full = true
			return list, nil
		}
	}

	if domain.GetErrorType(err) == domain.ErrorTypeAuthExpired {
		if refreshErr := s.refreshCredential(ctx, provider, account); refreshErr != nil {
			return nil, refreshErr
		}
		return s.collectPages(ctx, provider, account, account.SyncCursor)
	}

	return nil, err
}

// collectPages walks the provider's pagination until the traversal is
// complete.
func (s *SyncService) collectPages(ctx context.Context, provider domain.CalendarProvider, account *models.Account, cursor string) (*listing, error) {
	list := &listing{cursor: cursor}
	for page := 1; ; page++ {
		p, err := provider.ListEventsSince(ctx, account, list.cursor)
		if err != nil {
			return nil, err
		}

		list.events = append(list.events, p.Events...)
		list.deleted = append(list.deleted, p.DeletedExternalIDs...)
		list.full = list.full || p.FullListing
		list.cursor = p.NextCursor

		if list.cursor == "" {
			return list, nil
		}
		if len(p.Events) == 0 && len(p.DeletedExternalIDs) == 0 {
			return list, nil
		}
		if page >= maxSyncPages {
			slog.WarnContext(ctx, "sync stopped at page limit", "pages", page)
			return list, nil
		}
	}
}

// applyListing upserts every fetched event, applies explicit tombstones,
// and on a full listing removes mirror entries absent from the fetch.
// Incremental pages never imply deletion.
func (s *SyncService) applyListing(ctx context.Context, account *models.Account, list *listing) (*SyncResult, error) {
	result := &SyncResult{NextCursor: list.cursor}

	var known map[string]bool
	if list.full {
		prior, err := s.EventRepository.ListByAccount(ctx, account.UID)
		if err != nil {
			return nil, err
		}
		known = make(map[string]bool, len(prior))
		for _, event := range prior {
			known[event.ExternalID] = true
		}
	}

	fetched := make(map[string]bool, len(list.events))
	for _, event := range list.events {
		fetched[event.ExternalID] = true
		added, updated := s.upsertEvent(ctx, event)
		if added {
			result.Added++
		}
		if updated {
			result.Updated++
		}
	}

	removals := list.deleted
	if list.full {
		now := s.now().UTC()
		for externalID := range known {
			if fetched[externalID] {
				continue
			}
			// Some providers drop ended meetings from their listing.
			// An absent meeting whose pipeline has not finished is not
			// a cancellation; removing it here would cut discovery off
			// before the recording ever appears.
			ref := models.NewMeetingRef(account.UID, externalID)
			if s.pipelineStillOwed(ctx, ref, now) {
				slog.InfoContext(ctx, "keeping vanished event until its pipeline settles",
					"meeting_ref", ref.String())
				continue
			}
			removals = append(removals, externalID)
		}
	}

	for _, externalID := range removals {
		ref := models.NewMeetingRef(account.UID, externalID)
		if err := s.EventRepository.Delete(ctx, ref); err != nil {
			if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
				continue
			}
			return nil, err
		}
		result.Removed++
	}

	return result, nil
}

// pipelineStillOwed reports whether the event still backs a non-terminal
// processing record for an ended meeting inside the discovery window. Such
// events stay in the mirror even when a full listing no longer returns
// them. A future meeting absent from a full listing is a real cancellation
// and is never owed.
func (s *SyncService) pipelineStillOwed(ctx context.Context, ref models.MeetingRef, now time.Time) bool {
	event, err := s.EventRepository.Get(ctx, ref)
	if err != nil {
		return false
	}

	recordRef := ref
	if event.IsRecurring() {
		endTime, err := occurrenceEndTime(event, now)
		if err != nil {
			endTime = event.EndTime
		}
		recordRef = pipelineRef(event, endTime)
	}

	record, err := s.RecordRepository.Get(ctx, recordRef)
	if err != nil || record.Stage.Terminal() {
		return false
	}
	if record.MeetingEndTime.After(now) {
		return false
	}
	return now.Sub(record.MeetingEndTime) <= s.Config.DiscoveryMaxElapsed
}

// upsertEvent applies one remote event to the mirror under the
// revision-token ordering rule. A stale revision or a lost CAS race is not
// an error; the write is discarded and logged for observability.
func (s *SyncService) upsertEvent(ctx context.Context, incoming *models.CalendarEvent) (added, updated bool) {
	ref := incoming.Ref()

	stored, revision, err := s.EventRepository.GetWithRevision(ctx, ref)
	if err != nil {
		if domain.GetErrorType(err) != domain.ErrorTypeNotFound {
			slog.ErrorContext(ctx, "failed to read mirror event", logging.ErrKey, err, "meeting_ref", ref.String())
			return false, false
		}
		if err := s.EventRepository.Create(ctx, incoming); err != nil {
			if domain.GetErrorType(err) == domain.ErrorTypeConflict {
				slog.InfoContext(ctx, "discarding event create lost to concurrent writer", "meeting_ref", ref.String())
				return false, false
			}
			slog.ErrorContext(ctx, "failed to create mirror event", logging.ErrKey, err, "meeting_ref", ref.String())
			return false, false
		}
		s.seedProcessingRecord(ctx, incoming)
		return true, false
	}

	if !models.RevisionNewer(incoming.RevisionToken, stored.RevisionToken) {
		slog.InfoContext(ctx, "discarding stale event revision",
			"meeting_ref", ref.String(),
			"incoming_revision", incoming.RevisionToken,
			"stored_revision", stored.RevisionToken)
		// An unchanged recurring series still rolls over to new
		// occurrences; each needs its own ledger entry.
		if stored.IsRecurring() {
			s.seedProcessingRecord(ctx, stored)
		}
		return false, false
	}

	incoming.CreatedAt = stored.CreatedAt
	incoming.UpdatedAt = s.now().UTC()
	if err := s.EventRepository.Update(ctx, incoming, revision); err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeConflict {
			slog.InfoContext(ctx, "discarding event update lost to concurrent writer", "meeting_ref", ref.String())
			return false, false
		}
		slog.ErrorContext(ctx, "failed to update mirror event", logging.ErrKey, err, "meeting_ref", ref.String())
		return false, false
	}
	s.seedProcessingRecord(ctx, incoming)
	return false, true
}

// seedProcessingRecord makes sure a ledger entry exists for the event's
// next occurrence, so the orchestrator can derive pending work purely from
// storage after a restart. Recurring events key the entry by occurrence, so
// each pass of the series gets its own pipeline.
func (s *SyncService) seedProcessingRecord(ctx context.Context, event *models.CalendarEvent) {
	endTime, err := occurrenceEndTime(event, s.now().UTC())
	if err != nil {
		slog.WarnContext(ctx, "falling back to event end time", logging.ErrKey, err, "meeting_ref", event.Ref().String())
		endTime = event.EndTime
	}

	ref := pipelineRef(event, endTime)
	if _, err := s.RecordRepository.Get(ctx, ref); err == nil {
		return
	} else if domain.GetErrorType(err) != domain.ErrorTypeNotFound {
		slog.ErrorContext(ctx, "failed to read processing record", logging.ErrKey, err, "meeting_ref", ref.String())
		return
	}

	record := models.NewProcessingRecord(ref, endTime)
	if err := s.RecordRepository.Create(ctx, record); err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeConflict {
			return
		}
		slog.ErrorContext(ctx, "failed to seed processing record", logging.ErrKey, err, "meeting_ref", ref.String())
	}
}

// refreshCredential exchanges the account's refresh token once and persists
// the new handle. A failed refresh marks the account expired so operators
// can see it needs re-authorization.
func (s *SyncService) refreshCredential(ctx context.Context, provider domain.CalendarProvider, account *models.Account) error {
	handle, err := provider.Refresh(ctx, account)
	if err != nil {
		slog.WarnContext(ctx, "credential refresh failed", logging.ErrKey, err)
		account.SyncStatus = models.SyncStatusExpired
		account.LastSyncError = err.Error()
		account.UpdatedAt = s.now().UTC()
		if _, current, getErr := s.AccountRepository.GetWithRevision(ctx, account.UID); getErr == nil {
			_ = s.AccountRepository.Update(ctx, account, current)
		}
		return err
	}

	account.Credential = *handle
	account.UpdatedAt = s.now().UTC()
	_, current, err := s.AccountRepository.GetWithRevision(ctx, account.UID)
	if err != nil {
		return err
	}
	if err := s.AccountRepository.Update(ctx, account, current); err != nil {
		return err
	}
	slog.InfoContext(ctx, "account credential refreshed")
	return nil
}

// updateAccount persists sync bookkeeping, absorbing one CAS race by
// re-reading the revision; the per-account lock makes a second loss a real
// error.
func (s *SyncService) updateAccount(ctx context.Context, account *models.Account, revision uint64) error {
	err := s.AccountRepository.Update(ctx, account, revision)
	if err == nil {
		return nil
	}
	if domain.GetErrorType(err) != domain.ErrorTypeConflict {
		return err
	}

	_, current, err := s.AccountRepository.GetWithRevision(ctx, account.UID)
	if err != nil {
		return err
	}
	return s.AccountRepository.Update(ctx, account, current)
}

// recordSyncFailure stores the failure on the account for operator
// visibility. Best effort; the sync error itself is what propagates.
func (s *SyncService) recordSyncFailure(ctx context.Context, account *models.Account, revision uint64, syncErr error) {
	if domain.GetErrorType(syncErr) == domain.ErrorTypeAuthExpired {
		account.SyncStatus = models.SyncStatusExpired
	} else {
		account.SyncStatus = models.SyncStatusError
	}
	account.LastSyncError = syncErr.Error()
	account.UpdatedAt = s.now().UTC()
	if err := s.updateAccount(ctx, account, revision); err != nil {
		slog.WarnContext(ctx, "failed to record sync failure", logging.ErrKey, err)
	}
}
