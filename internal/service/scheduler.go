// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
	"github.com/annix/fieldflow-meeting-intel/internal/logging"
	"github.com/annix/fieldflow-meeting-intel/pkg/concurrent"
)

// Scheduler is the polling backstop and the consumer of the work queue. It
// ticks on an interval so every account gets synced and every due meeting
// gets advanced even when no webhook ever arrives, and it handles the same
// work items that webhooks publish.
type Scheduler struct {
	AccountRepository domain.AccountRepository
	RecordRepository  domain.ProcessingRecordRepository
	Sync              *SyncService
	Orchestrator      *OrchestratorService
	Config            ServiceConfig

	pool *concurrent.WorkerPool
	now  func() time.Time
}

// NewScheduler creates a new scheduler with the given worker parallelism.
func NewScheduler(
	accountRepository domain.AccountRepository,
	recordRepository domain.ProcessingRecordRepository,
	sync *SyncService,
	orchestrator *OrchestratorService,
	config ServiceConfig,
	workerCount int,
) *Scheduler {
	return &Scheduler{
		AccountRepository: accountRepository,
		RecordRepository:  recordRepository,
		Sync:              sync,
		Orchestrator:      orchestrator,
		Config:            config,
		pool:              concurrent.NewWorkerPool(workerCount),
		now:               time.Now,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *Scheduler) ServiceReady() bool {
	return s.AccountRepository != nil &&
		s.RecordRepository != nil &&
		s.Sync != nil &&
		s.Orchestrator != nil &&
		s.pool != nil
}

// Run ticks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Config.SyncInterval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "scheduler started", "interval", s.Config.SyncInterval.String())
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one polling pass: accounts due for sync, then meetings with due
// ledger work. One entity failing never stops the rest of the batch.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "scheduler not initialized", logging.PriorityCritical())
		return
	}

	s.tickAccounts(ctx)
	s.tickMeetings(ctx)
}

func (s *Scheduler) tickAccounts(ctx context.Context) {
	accounts, err := s.AccountRepository.ListAll(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list accounts for sync pass", logging.ErrKey, err)
		return
	}

	now := s.now().UTC()
	var jobs []func() error
	for _, account := range accounts {
		if !s.accountDue(account, now) {
			continue
		}
		uid := account.UID
		jobs = append(jobs, func() error {
			if _, err := s.Sync.SyncAccount(ctx, uid); err != nil {
				slog.WarnContext(ctx, "scheduled sync failed", logging.ErrKey, err, "account_uid", uid)
			}
			return nil
		})
	}

	s.pool.RunAll(ctx, jobs...)
}

// accountDue reports whether the account's last sync is older than the
// polling interval. Expired accounts are skipped until the user
// re-authorizes; retrying them every tick only burns provider quota.
func (s *Scheduler) accountDue(account *models.Account, now time.Time) bool {
	if account.SyncStatus == models.SyncStatusExpired {
		return false
	}
	if account.LastSyncAt == nil {
		return true
	}
	return now.Sub(*account.LastSyncAt) >= s.Config.SyncInterval
}

func (s *Scheduler) tickMeetings(ctx context.Context) {
	records, err := s.RecordRepository.ListAll(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list processing records", logging.ErrKey, err)
		return
	}

	now := s.now().UTC()
	var jobs []func() error
	for _, record := range records {
		if !record.Due(now) {
			continue
		}
		ref := record.MeetingRef
		jobs = append(jobs, func() error {
			if err := s.Orchestrator.AdvanceMeeting(ctx, ref); err != nil {
				slog.WarnContext(ctx, "scheduled meeting advance failed", logging.ErrKey, err, "meeting_ref", ref.String())
			}
			return nil
		})
	}

	s.pool.RunAll(ctx, jobs...)
}

// HandleMessage consumes one work item from the queue. Malformed items are
// logged and dropped; queue redelivery cannot fix a bad payload.
func (s *Scheduler) HandleMessage(ctx context.Context, msg domain.Message) {
	if !s.HandlerReady() {
		slog.ErrorContext(ctx, "scheduler not ready for messages", logging.PriorityCritical())
		return
	}

	var item domain.WorkItem
	if err := json.Unmarshal(msg.Data(), &item); err != nil {
		slog.WarnContext(ctx, "dropping malformed work item", logging.ErrKey, err, "subject", msg.Subject())
		return
	}

	switch item.Kind {
	case domain.WorkSyncAccount:
		if _, err := s.Sync.SyncAccount(ctx, item.AccountUID); err != nil {
			slog.WarnContext(ctx, "work item sync failed", logging.ErrKey, err, "account_uid", item.AccountUID)
		}
	case domain.WorkAdvanceMeeting:
		if err := s.Orchestrator.AdvanceMeeting(ctx, item.MeetingRef); err != nil {
			slog.WarnContext(ctx, "work item advance failed", logging.ErrKey, err, "meeting_ref", item.MeetingRef.String())
		}
	default:
		slog.WarnContext(ctx, "dropping work item of unknown kind", "kind", string(item.Kind))
	}
}

// HandlerReady reports whether the scheduler can consume messages.
func (s *Scheduler) HandlerReady() bool {
	return s.ServiceReady()
}
