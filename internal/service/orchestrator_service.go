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
	"github.com/annix/fieldflow-meeting-intel/pkg/concurrent"
)

// OrchestratorService drives the post-meeting pipeline. All progress is
// recorded in the processing ledger under compare-and-set updates, so any
// number of workers and duplicate triggers collapse to exactly-once stage
// transitions.
type OrchestratorService struct {
	AccountRepository   domain.AccountRepository
	EventRepository     domain.CalendarEventRepository
	RecordRepository    domain.ProcessingRecordRepository
	RecordingRepository domain.MeetingRecordingRepository
	SummaryRepository   domain.MeetingSummaryRepository
	CalendarRegistry    domain.CalendarRegistry
	RecordingRegistry   domain.RecordingRegistry
	Discovery           *DiscoveryService
	Notifier            *NotificationService
	Summarizer          domain.Summarizer
	Config              ServiceConfig

	meetingLocks *concurrent.KeyedMutex
	now          func() time.Time
}

// NewOrchestratorService creates a new pipeline orchestrator.
func NewOrchestratorService(
	accountRepository domain.AccountRepository,
	eventRepository domain.CalendarEventRepository,
	recordRepository domain.ProcessingRecordRepository,
	recordingRepository domain.MeetingRecordingRepository,
	summaryRepository domain.MeetingSummaryRepository,
	calendarRegistry domain.CalendarRegistry,
	recordingRegistry domain.RecordingRegistry,
	discovery *DiscoveryService,
	notifier *NotificationService,
	summarizer domain.Summarizer,
	config ServiceConfig,
) *OrchestratorService {
	return &OrchestratorService{
		AccountRepository:   accountRepository,
		EventRepository:     eventRepository,
		RecordRepository:    recordRepository,
		RecordingRepository: recordingRepository,
		SummaryRepository:   summaryRepository,
		CalendarRegistry:    calendarRegistry,
		RecordingRegistry:   recordingRegistry,
		Discovery:           discovery,
		Notifier:            notifier,
		Summarizer:          summarizer,
		Config:              config,
		meetingLocks:        concurrent.NewKeyedMutex(),
		now:                 time.Now,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *OrchestratorService) ServiceReady() bool {
	return s.AccountRepository != nil &&
		s.EventRepository != nil &&
		s.RecordRepository != nil &&
		s.RecordingRepository != nil &&
		s.SummaryRepository != nil &&
		s.CalendarRegistry != nil &&
		s.RecordingRegistry != nil &&
		s.Discovery != nil &&
		s.Notifier != nil &&
		s.Summarizer != nil
}

// AdvanceMeeting drives the meeting's pipeline as far as it can go right
// now. It is safe to call from any number of workers with any number of
// duplicate triggers: a meeting already being worked is skipped, and every
// stage transition is guarded by the ledger revision.
func (s *OrchestratorService) AdvanceMeeting(ctx context.Context, ref models.MeetingRef) error {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "orchestrator service not initialized", logging.PriorityCritical())
		return domain.NewUnavailableError("orchestrator service not initialized")
	}

	// Triggers arrive keyed by event; recurring meetings track one
	// pipeline per occurrence, so resolve the working reference first.
	ref = s.resolvePipelineRef(ctx, ref)

	if !s.meetingLocks.TryLock(ref.String()) {
		// Another worker holds this meeting; its pass will observe any
		// state this trigger was delivering.
		return nil
	}
	defer s.meetingLocks.Unlock(ref.String())

	ctx = logging.AppendCtx(ctx, slog.String("meeting_ref", ref.String()))

	for {
		proceed, err := s.step(ctx, ref)
		if err != nil {
			return err
		}
		if !proceed {
			return nil
		}
	}
}

// resolvePipelineRef maps an event-keyed trigger to the ledger key of the
// occurrence currently in flight. References that already carry an
// occurrence segment, and references to unknown or single events, pass
// through unchanged.
func (s *OrchestratorService) resolvePipelineRef(ctx context.Context, ref models.MeetingRef) models.MeetingRef {
	if ref.Occurrence() != "" {
		return ref
	}
	event, err := s.EventRepository.Get(ctx, ref)
	if err != nil || !event.IsRecurring() {
		return ref
	}
	endTime, err := occurrenceEndTime(event, s.now().UTC())
	if err != nil {
		endTime = event.EndTime
	}
	return pipelineRef(event, endTime)
}

// step performs at most one stage transition and reports whether another
// step should follow immediately.
func (s *OrchestratorService) step(ctx context.Context, ref models.MeetingRef) (bool, error) {
	record, revision, err := s.RecordRepository.GetWithRevision(ctx, ref)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return s.seedFromEvent(ctx, ref)
		}
		return false, err
	}

	now := s.now().UTC()
	if record.Stage.Terminal() || !record.Due(now) {
		return false, nil
	}

	event, err := s.EventRepository.Get(ctx, ref.EventRef())
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			slog.InfoContext(ctx, "meeting removed from mirror, closing pipeline")
			record.Advance(models.StageNotApplicable)
			return false, s.persist(ctx, record, revision)
		}
		return false, err
	}
	if event.Cancelled {
		record.Advance(models.StageNotApplicable)
		return false, s.persist(ctx, record, revision)
	}

	accountUID, _, err := ref.Parts()
	if err != nil {
		return false, domain.NewValidationError("invalid meeting reference", err)
	}
	account, err := s.AccountRepository.Get(ctx, accountUID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			record.Advance(models.StageNotApplicable)
			return false, s.persist(ctx, record, revision)
		}
		return false, err
	}

	var proceed bool
	switch record.Stage {
	case models.StageScheduled:
		if record.MeetingEndTime.After(now) {
			return false, nil
		}
		record.Advance(models.StageEnded)
		proceed = true
	case models.StageEnded:
		record.Advance(models.StageRecordingPending)
		proceed = true
	case models.StageRecordingPending:
		proceed = s.stepDiscovery(ctx, account, event, record, now)
	case models.StageRecordingFound:
		record.Advance(models.StageSummarizing)
		proceed = true
	case models.StageSummarizing:
		proceed = s.stepSummarize(ctx, account, event, record, now)
	case models.StageSummarized:
		// stepNotify owns its ledger writes: the notified stage is
		// claimed under the observed revision before the email goes
		// out, so a concurrent worker can never send twice.
		return false, s.stepNotify(ctx, account, event, record, revision, now)
	default:
		slog.WarnContext(ctx, "unknown pipeline stage", "stage", string(record.Stage))
		return false, nil
	}

	if err := s.persist(ctx, record, revision); err != nil {
		return false, err
	}
	return proceed, nil
}

// stepDiscovery runs one recording lookup. Every lookup counts as an
// attempt; a missing recording retries on the discovery backoff until the
// elapsed window closes, while provider errors are bounded by the attempt
// budget.
func (s *OrchestratorService) stepDiscovery(ctx context.Context, account *models.Account, event *models.CalendarEvent, record *models.ProcessingRecord, now time.Time) bool {
	if now.Sub(record.MeetingEndTime) > s.Config.DiscoveryMaxElapsed {
		slog.InfoContext(ctx, "discovery window elapsed without a recording")
		record.Advance(models.StageNotApplicable)
		return false
	}

	attempts := record.RecordAttempt(models.StageRecordingPending)

	outcome, _, err := s.Discovery.Discover(ctx, record.MeetingRef, account, event)
	if err != nil && domain.GetErrorType(err) == domain.ErrorTypeAuthExpired {
		if refreshErr := s.refreshCredential(ctx, account); refreshErr == nil {
			outcome, _, err = s.Discovery.Discover(ctx, record.MeetingRef, account, event)
		}
	}
	if err != nil {
		s.handleStageError(ctx, record, err, attempts, s.Config.DiscoveryMaxAttempts, now)
		return false
	}

	switch outcome {
	case DiscoveryFound:
		record.Advance(models.StageRecordingFound)
		return true
	case DiscoveryNotApplicable:
		record.Advance(models.StageNotApplicable)
		return false
	default:
		delay := backoffDelay(s.Config.DiscoveryInitialBackoff, s.Config.DiscoveryMaxBackoff, attempts)
		slog.InfoContext(ctx, "recording not available yet", "attempt", attempts, "retry_in", delay.String())
		record.ScheduleRetry(now.Add(delay))
		return false
	}
}

// stepSummarize fetches the transcript and produces the summary document.
func (s *OrchestratorService) stepSummarize(ctx context.Context, account *models.Account, event *models.CalendarEvent, record *models.ProcessingRecord, now time.Time) bool {
	if _, err := s.SummaryRepository.Get(ctx, record.MeetingRef); err == nil {
		record.Advance(models.StageSummarized)
		return true
	}

	attempts := record.RecordAttempt(models.StageSummarizing)

	recording, err := s.RecordingRepository.Get(ctx, record.MeetingRef)
	if err != nil {
		s.handleStageError(ctx, record, err, attempts, s.Config.SummarizeMaxAttempts, now)
		return false
	}

	provider, err := s.RecordingRegistry.GetProvider(recording.Platform)
	if err != nil {
		s.handleStageError(ctx, record, domain.NewPermanentError("no recording adapter for platform", err), attempts, s.Config.SummarizeMaxAttempts, now)
		return false
	}

	transcript, err := provider.FetchTranscript(ctx, account, recording.RecordingHandle)
	if err != nil && domain.GetErrorType(err) == domain.ErrorTypeAuthExpired {
		if refreshErr := s.refreshCredential(ctx, account); refreshErr == nil {
			transcript, err = provider.FetchTranscript(ctx, account, recording.RecordingHandle)
		}
	}
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			// The platform is still producing the transcript.
			delay := backoffDelay(s.Config.ErrorInitialBackoff, s.Config.DiscoveryMaxBackoff, attempts)
			slog.InfoContext(ctx, "transcript not ready yet", "attempt", attempts, "retry_in", delay.String())
			record.ScheduleRetry(now.Add(delay))
			return false
		}
		s.handleStageError(ctx, record, err, attempts, s.Config.SummarizeMaxAttempts, now)
		return false
	}

	participants := make([]string, 0, len(event.Attendees))
	for _, attendee := range event.Attendees {
		participants = append(participants, attendee.Email)
	}
	content, err := s.Summarizer.Summarize(ctx, domain.SummaryRequest{
		Transcript:   transcript,
		Title:        event.Title,
		Participants: participants,
		Duration:     event.EndTime.Sub(event.StartTime),
	})
	if err != nil {
		s.handleStageError(ctx, record, err, attempts, s.Config.SummarizeMaxAttempts, now)
		return false
	}

	summary := &models.MeetingSummary{
		UID:          uuid.New().String(),
		MeetingRef:   record.MeetingRef,
		RecordingUID: recording.UID,
		Content:      *content,
		GeneratedAt:  now,
	}
	if err := s.SummaryRepository.Create(ctx, summary); err != nil {
		if domain.GetErrorType(err) != domain.ErrorTypeConflict {
			s.handleStageError(ctx, record, err, attempts, s.Config.SummarizeMaxAttempts, now)
			return false
		}
		// A concurrent worker already stored a summary; use theirs.
	}

	record.Advance(models.StageSummarized)
	return true
}

// stepNotify delivers the summary email. The notified stage is claimed in
// the ledger under the observed revision before the send; the claim, not
// the in-process meeting lock, is what keeps the email at-most-once across
// replicas. A worker that loses the claim never sends.
func (s *OrchestratorService) stepNotify(ctx context.Context, account *models.Account, event *models.CalendarEvent, record *models.ProcessingRecord, revision uint64, now time.Time) error {
	attempts := record.RecordAttempt(models.StageSummarized)

	summary, err := s.SummaryRepository.Get(ctx, record.MeetingRef)
	if err != nil {
		s.handleStageError(ctx, record, err, attempts, s.Config.NotifyMaxAttempts, now)
		return s.persist(ctx, record, revision)
	}

	record.Advance(models.StageNotified)
	if err := s.RecordRepository.Update(ctx, record, revision); err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeConflict {
			slog.InfoContext(ctx, "notification claim lost to concurrent worker")
			return nil
		}
		return err
	}

	if err := s.Notifier.Notify(ctx, record.MeetingRef, account, event, summary); err != nil {
		s.releaseNotifyClaim(ctx, record.MeetingRef, err, attempts, now)
	}
	return nil
}

// releaseNotifyClaim moves a claimed but undelivered notification back to
// the summarized stage so a later pass retries the send, or fails the
// pipeline once the attempt budget is spent.
func (s *OrchestratorService) releaseNotifyClaim(ctx context.Context, ref models.MeetingRef, sendErr error, attempts int, now time.Time) {
	record, revision, err := s.RecordRepository.GetWithRevision(ctx, ref)
	if err != nil {
		slog.ErrorContext(ctx, "failed to re-read ledger after undelivered notification",
			logging.ErrKey, err, logging.PriorityCritical())
		return
	}
	record.Stage = models.StageSummarized
	record.CompletedAt = nil
	s.handleStageError(ctx, record, sendErr, attempts, s.Config.NotifyMaxAttempts, now)
	if err := s.RecordRepository.Update(ctx, record, revision); err != nil {
		slog.ErrorContext(ctx, "failed to release notification claim",
			logging.ErrKey, err, logging.PriorityCritical())
	}
}

// handleStageError applies the retry taxonomy to a failed stage action:
// retryable errors back off until the attempt budget is spent, everything
// else fails the pipeline immediately.
func (s *OrchestratorService) handleStageError(ctx context.Context, record *models.ProcessingRecord, err error, attempts, maxAttempts int, now time.Time) {
	errType := domain.GetErrorType(err)
	record.RecordError(errType.String(), err.Error())

	if !domain.IsRetryable(err) || attempts >= maxAttempts {
		slog.WarnContext(ctx, "pipeline stage failed",
			logging.ErrKey, err, "stage", string(record.Stage),
			"attempt", attempts, "error_type", errType.String())
		record.Advance(models.StageFailed)
		return
	}

	delay := domain.RetryAfterHint(err)
	if delay <= 0 {
		delay = backoffDelay(s.Config.ErrorInitialBackoff, s.Config.DiscoveryMaxBackoff, attempts)
	}
	slog.InfoContext(ctx, "pipeline stage retry scheduled",
		logging.ErrKey, err, "stage", string(record.Stage),
		"attempt", attempts, "retry_in", delay.String())
	record.ScheduleRetry(now.Add(delay))
}

// refreshCredential exchanges the account's refresh token through its
// calendar provider and persists the new handle. Used once per stage action
// when a provider reports an expired credential.
func (s *OrchestratorService) refreshCredential(ctx context.Context, account *models.Account) error {
	provider, err := s.CalendarRegistry.GetProvider(account.Provider)
	if err != nil {
		return err
	}
	handle, err := provider.Refresh(ctx, account)
	if err != nil {
		slog.WarnContext(ctx, "credential refresh failed", logging.ErrKey, err, "account_uid", account.UID)
		return err
	}
	account.Credential = *handle
	account.UpdatedAt = s.now().UTC()
	_, revision, err := s.AccountRepository.GetWithRevision(ctx, account.UID)
	if err != nil {
		return err
	}
	return s.AccountRepository.Update(ctx, account, revision)
}

// persist writes the mutated record under its observed revision. Losing the
// compare-and-set race means another worker advanced this meeting; the
// local mutation is discarded.
func (s *OrchestratorService) persist(ctx context.Context, record *models.ProcessingRecord, revision uint64) error {
	err := s.RecordRepository.Update(ctx, record, revision)
	if err == nil {
		return nil
	}
	if domain.GetErrorType(err) == domain.ErrorTypeConflict {
		slog.InfoContext(ctx, "discarding pipeline transition lost to concurrent worker", "stage", string(record.Stage))
		return nil
	}
	return err
}

// seedFromEvent creates the ledger entry for a meeting that arrived through
// a trigger before its sync pass, for example a platform webhook firing for
// a meeting the mirror has not stored a record for yet.
func (s *OrchestratorService) seedFromEvent(ctx context.Context, ref models.MeetingRef) (bool, error) {
	event, err := s.EventRepository.Get(ctx, ref.EventRef())
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			slog.InfoContext(ctx, "trigger for unknown meeting ignored")
			return false, nil
		}
		return false, err
	}

	endTime, err := occurrenceEndTime(event, s.now().UTC())
	if err != nil {
		endTime = event.EndTime
	}
	if occurrence := ref.Occurrence(); occurrence != "" {
		if parsed, err := time.Parse(time.RFC3339, occurrence); err == nil {
			endTime = parsed
		}
	}
	if err := s.RecordRepository.Create(ctx, models.NewProcessingRecord(ref, endTime)); err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeConflict {
			return true, nil
		}
		return false, err
	}
	return true, nil
}

// ListFailed returns every meeting whose pipeline ended in the failed
// stage, newest first left to the caller to sort.
func (s *OrchestratorService) ListFailed(ctx context.Context) ([]*models.ProcessingRecord, error) {
	if !s.ServiceReady() {
		return nil, domain.NewUnavailableError("orchestrator service not initialized")
	}
	all, err := s.RecordRepository.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	failed := make([]*models.ProcessingRecord, 0)
	for _, record := range all {
		if record.Stage == models.StageFailed {
			failed = append(failed, record)
		}
	}
	return failed, nil
}

// RetryFailed is the operator action that re-arms a failed pipeline. The
// resume stage is derived from the artifacts already produced, so completed
// work is never redone: an existing summary resumes at notification, an
// existing recording resumes at summarization, otherwise discovery restarts.
func (s *OrchestratorService) RetryFailed(ctx context.Context, ref models.MeetingRef) (*models.ProcessingRecord, error) {
	if !s.ServiceReady() {
		return nil, domain.NewUnavailableError("orchestrator service not initialized")
	}

	record, revision, err := s.RecordRepository.GetWithRevision(ctx, ref)
	if err != nil {
		return nil, err
	}
	if record.Stage != models.StageFailed {
		return nil, domain.NewValidationError("only failed meetings can be retried")
	}

	stage := models.StageEnded
	if _, err := s.SummaryRepository.Get(ctx, ref); err == nil {
		stage = models.StageSummarized
	} else if exists, err := s.RecordingRepository.Exists(ctx, ref); err == nil && exists {
		stage = models.StageRecordingFound
	}

	record.ResetForRetry(stage)
	if err := s.RecordRepository.Update(ctx, record, revision); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "failed pipeline re-armed",
		"meeting_ref", ref.String(), "resume_stage", string(stage))
	return record, nil
}
