// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"sync"
	"time"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
	"github.com/annix/fieldflow-meeting-intel/internal/infrastructure/providers"
	"github.com/annix/fieldflow-meeting-intel/internal/infrastructure/store"
)

// fakeListResult scripts one ListEventsSince call.
type fakeListResult struct {
	page *domain.EventPage
	err  error
}

// fakeCalendarProvider replays scripted listing results. The last result
// repeats once the script is exhausted, so "always fails" needs one entry.
type fakeCalendarProvider struct {
	mu           sync.Mutex
	results      []fakeListResult
	listCalls    int
	listAccounts []string
	listCursors  []string

	refreshHandle *models.CredentialHandle
	refreshErr    error
	refreshCalls  int
}

func (f *fakeCalendarProvider) ListEventsSince(ctx context.Context, account *models.Account, cursor string) (*domain.EventPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.listAccounts = append(f.listAccounts, account.UID)
	f.listCursors = append(f.listCursors, cursor)
	if len(f.results) == 0 {
		return &domain.EventPage{}, nil
	}
	res := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return res.page, res.err
}

func (f *fakeCalendarProvider) GetEvent(ctx context.Context, account *models.Account, externalID string) (*models.CalendarEvent, error) {
	return nil, domain.NewNotFoundError("event not found")
}

func (f *fakeCalendarProvider) Refresh(ctx context.Context, account *models.Account) (*models.CredentialHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	if f.refreshHandle != nil {
		return f.refreshHandle, nil
	}
	return &models.CredentialHandle{AccessToken: "refreshed-token"}, nil
}

// fakeFindResult scripts one FindRecording call.
type fakeFindResult struct {
	info *domain.RecordingInfo
	err  error
}

// fakeRecordingProvider replays scripted discovery and transcript results,
// last result repeating.
type fakeRecordingProvider struct {
	mu        sync.Mutex
	finds     []fakeFindResult
	findCalls int
	lookupIDs []string

	transcript      string
	transcriptErrs  []error
	transcriptCalls int
}

func (f *fakeRecordingProvider) FindRecording(ctx context.Context, account *models.Account, meetingExternalID string) (*domain.RecordingInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	f.lookupIDs = append(f.lookupIDs, meetingExternalID)
	if len(f.finds) == 0 {
		return nil, domain.NewNotFoundError("no recording available")
	}
	res := f.finds[0]
	if len(f.finds) > 1 {
		f.finds = f.finds[1:]
	}
	return res.info, res.err
}

func (f *fakeRecordingProvider) FetchTranscript(ctx context.Context, account *models.Account, handle string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcriptCalls++
	if len(f.transcriptErrs) > 0 {
		err := f.transcriptErrs[0]
		f.transcriptErrs = f.transcriptErrs[1:]
		if err != nil {
			return "", err
		}
	}
	return f.transcript, nil
}

func (f *fakeRecordingProvider) findCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findCalls
}

// fakeSummarizeResult scripts one Summarize call.
type fakeSummarizeResult struct {
	content *models.SummaryContent
	err     error
}

type fakeSummarizer struct {
	mu      sync.Mutex
	results []fakeSummarizeResult
	calls   int
}

func (f *fakeSummarizer) Summarize(ctx context.Context, req domain.SummaryRequest) (*models.SummaryContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.results) == 0 {
		return &models.SummaryContent{Overview: "canned overview"}, nil
	}
	res := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return res.content, res.err
}

func (f *fakeSummarizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeEmailService struct {
	mu   sync.Mutex
	errs []error
	sent []domain.EmailSummaryNotification
}

func (f *fakeEmailService) SendSummaryNotification(ctx context.Context, notification domain.EmailSummaryNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return err
		}
	}
	f.sent = append(f.sent, notification)
	return nil
}

func (f *fakeEmailService) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakeMessage implements domain.Message for handler tests.
type fakeMessage struct {
	subject string
	data    []byte
}

func (m *fakeMessage) Subject() string { return m.subject }
func (m *fakeMessage) Data() []byte    { return m.data }

// harness wires real repositories over in-memory KV stores with every
// external capability faked and the clock frozen.
type harness struct {
	now time.Time

	accounts   *store.NatsAccountRepository
	events     *store.NatsCalendarEventRepository
	records    *store.NatsProcessingRecordRepository
	recordings *store.NatsMeetingRecordingRepository
	summaries  *store.NatsMeetingSummaryRepository

	calendars *providers.CalendarRegistry
	recorders *providers.RecordingRegistry

	calendar   *fakeCalendarProvider
	recorder   *fakeRecordingProvider
	summarizer *fakeSummarizer
	email      *fakeEmailService

	config       ServiceConfig
	sync         *SyncService
	discovery    *DiscoveryService
	notifier     *NotificationService
	orchestrator *OrchestratorService
	scheduler    *Scheduler
}

func newHarness() *harness {
	h := &harness{
		now:        time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		accounts:   store.NewNatsAccountRepository(store.NewMockNatsKeyValue()),
		events:     store.NewNatsCalendarEventRepository(store.NewMockNatsKeyValue()),
		records:    store.NewNatsProcessingRecordRepository(store.NewMockNatsKeyValue()),
		recordings: store.NewNatsMeetingRecordingRepository(store.NewMockNatsKeyValue()),
		summaries:  store.NewNatsMeetingSummaryRepository(store.NewMockNatsKeyValue()),
		calendars:  providers.NewCalendarRegistry(),
		recorders:  providers.NewRecordingRegistry(),
		calendar:   &fakeCalendarProvider{},
		recorder:   &fakeRecordingProvider{},
		summarizer: &fakeSummarizer{},
		email:      &fakeEmailService{},
		config:     NewServiceConfig(),
	}

	h.calendars.RegisterProvider(models.ProviderGoogle, h.calendar)
	h.calendars.RegisterProvider(models.ProviderZoom, h.calendar)
	h.recorders.RegisterProvider(models.PlatformZoom, h.recorder)
	h.recorders.RegisterProvider(models.PlatformMeet, h.recorder)

	clock := func() time.Time { return h.now }

	h.sync = NewSyncService(h.accounts, h.events, h.records, h.calendars, h.config)
	h.sync.now = clock

	h.discovery = NewDiscoveryService(h.recordings, h.recorders)
	h.discovery.now = clock

	h.notifier = NewNotificationService(h.email)

	h.orchestrator = NewOrchestratorService(
		h.accounts, h.events, h.records, h.recordings, h.summaries,
		h.calendars, h.recorders, h.discovery, h.notifier, h.summarizer, h.config)
	h.orchestrator.now = clock

	h.scheduler = NewScheduler(h.accounts, h.records, h.sync, h.orchestrator, h.config, 4)
	h.scheduler.now = clock

	return h
}

func (h *harness) advanceClock(d time.Duration) {
	h.now = h.now.Add(d)
}

func (h *harness) seedAccount(uid string, provider models.Provider) *models.Account {
	account := &models.Account{
		UID:        uid,
		Provider:   provider,
		OwnerEmail: "owner@example.com",
		OwnerName:  "Dana Owner",
		Credential: models.CredentialHandle{AccessToken: "token", RefreshToken: "refresh"},
		SyncStatus: models.SyncStatusActive,
		CreatedAt:  h.now,
		UpdatedAt:  h.now,
	}
	_ = h.accounts.Create(context.Background(), account)
	return account
}

// seedEndedMeeting stores a mirrored event that ended an hour ago with its
// scheduled ledger entry.
func (h *harness) seedEndedMeeting(accountUID, externalID, joinURL string, platform models.ConferencePlatform) *models.CalendarEvent {
	event := &models.CalendarEvent{
		AccountUID:     accountUID,
		ExternalID:     externalID,
		Title:          "Weekly planning",
		StartTime:      h.now.Add(-2 * time.Hour),
		EndTime:        h.now.Add(-time.Hour),
		Timezone:       "UTC",
		Attendees:      []models.Attendee{{Email: "alice@example.com"}, {Email: "bob@example.com"}},
		OrganizerEmail: "alice@example.com",
		JoinURL:        joinURL,
		Platform:       platform,
		RevisionToken:  "1",
		CreatedAt:      h.now,
		UpdatedAt:      h.now,
	}
	_ = h.events.Create(context.Background(), event)
	_ = h.records.Create(context.Background(), models.NewProcessingRecord(event.Ref(), event.EndTime))
	return event
}

// driveToCompletion repeatedly advances the meeting, moving the clock past
// any scheduled retry, until the ledger reaches a terminal stage.
func (h *harness) driveToCompletion(ctx context.Context, ref models.MeetingRef, maxPasses int) (*models.ProcessingRecord, error) {
	for i := 0; i < maxPasses; i++ {
		if err := h.orchestrator.AdvanceMeeting(ctx, ref); err != nil {
			return nil, err
		}
		record, err := h.records.Get(ctx, ref)
		if err != nil {
			return nil, err
		}
		if record.Stage.Terminal() {
			return record, nil
		}
		if record.NextAttemptAt != nil && record.NextAttemptAt.After(h.now) {
			h.now = record.NextAttemptAt.Add(time.Second)
		}
	}
	record, err := h.records.Get(ctx, ref)
	return record, err
}
