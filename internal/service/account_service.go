// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
	"github.com/annix/fieldflow-meeting-intel/internal/logging"
)

// ConnectAccountRequest carries the inputs for connecting a new calendar
// account.
type ConnectAccountRequest struct {
	Provider     models.Provider
	OwnerEmail   string
	OwnerName    string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
}

// AccountService manages the lifecycle of connected calendar accounts.
type AccountService struct {
	AccountRepository domain.AccountRepository
	EventRepository   domain.CalendarEventRepository
	RecordRepository  domain.ProcessingRecordRepository
}

// NewAccountService creates a new account lifecycle service.
func NewAccountService(
	accountRepository domain.AccountRepository,
	eventRepository domain.CalendarEventRepository,
	recordRepository domain.ProcessingRecordRepository,
) *AccountService {
	return &AccountService{
		AccountRepository: accountRepository,
		EventRepository:   eventRepository,
		RecordRepository:  recordRepository,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *AccountService) ServiceReady() bool {
	return s.AccountRepository != nil &&
		s.EventRepository != nil &&
		s.RecordRepository != nil
}

func validProvider(p models.Provider) bool {
	switch p {
	case models.ProviderGoogle, models.ProviderMicrosoft, models.ProviderZoom:
		return true
	}
	return false
}

// Connect registers a new provider connection. The first sync pass is the
// caller's responsibility; the account starts active with an empty cursor
// so that pass is a full listing.
func (s *AccountService) Connect(ctx context.Context, req ConnectAccountRequest) (*models.Account, error) {
	if !s.ServiceReady() {
		return nil, domain.NewUnavailableError("account service not initialized")
	}

	if !validProvider(req.Provider) {
		return nil, domain.NewValidationError("unsupported provider: " + string(req.Provider))
	}
	ownerEmail := strings.TrimSpace(strings.ToLower(req.OwnerEmail))
	if ownerEmail == "" || !strings.Contains(ownerEmail, "@") {
		return nil, domain.NewValidationError("owner email is required")
	}
	if req.AccessToken == "" {
		return nil, domain.NewValidationError("access token is required")
	}

	now := time.Now().UTC()
	account := &models.Account{
		UID:        uuid.New().String(),
		Provider:   req.Provider,
		OwnerEmail: ownerEmail,
		OwnerName:  strings.TrimSpace(req.OwnerName),
		Credential: models.CredentialHandle{
			AccessToken:  req.AccessToken,
			RefreshToken: req.RefreshToken,
			Expiry:       req.TokenExpiry,
		},
		SyncStatus: models.SyncStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.AccountRepository.Create(ctx, account); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "account connected",
		"account_uid", account.UID,
		"provider", string(account.Provider),
		"owner_email", account.OwnerEmail)
	return account, nil
}

// Get returns one account by UID.
func (s *AccountService) Get(ctx context.Context, uid string) (*models.Account, error) {
	if !s.ServiceReady() {
		return nil, domain.NewUnavailableError("account service not initialized")
	}
	return s.AccountRepository.Get(ctx, uid)
}

// List returns every connected account.
func (s *AccountService) List(ctx context.Context) ([]*models.Account, error) {
	if !s.ServiceReady() {
		return nil, domain.NewUnavailableError("account service not initialized")
	}
	return s.AccountRepository.ListAll(ctx)
}

// Disconnect removes an account and cascades to its mirrored events and
// processing records. Recordings and summaries already produced are kept;
// they are artifacts the user may still be reading.
func (s *AccountService) Disconnect(ctx context.Context, uid string) error {
	if !s.ServiceReady() {
		return domain.NewUnavailableError("account service not initialized")
	}

	ctx = logging.AppendCtx(ctx, slog.String("account_uid", uid))

	_, revision, err := s.AccountRepository.GetWithRevision(ctx, uid)
	if err != nil {
		return err
	}
	if err := s.AccountRepository.Delete(ctx, uid, revision); err != nil {
		return err
	}

	if err := s.EventRepository.DeleteByAccount(ctx, uid); err != nil {
		slog.WarnContext(ctx, "failed to remove mirrored events for disconnected account", logging.ErrKey, err)
	}

	records, err := s.RecordRepository.ListByAccount(ctx, uid)
	if err != nil {
		slog.WarnContext(ctx, "failed to list processing records for disconnected account", logging.ErrKey, err)
		return nil
	}
	for _, record := range records {
		if err := s.RecordRepository.Delete(ctx, record.MeetingRef); err != nil &&
			domain.GetErrorType(err) != domain.ErrorTypeNotFound {
			slog.WarnContext(ctx, "failed to remove processing record", logging.ErrKey, err,
				"meeting_ref", record.MeetingRef.String())
		}
	}

	slog.InfoContext(ctx, "account disconnected")
	return nil
}
