// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

// Package google adapts the Google Calendar and Meet APIs to the calendar
// and recording provider contracts.
package google

import (
	"context"
	"fmt"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	meet "google.golang.org/api/meet/v2"
	"google.golang.org/api/option"
)

// Scopes requested when accounts are connected.
var Scopes = []string{
	calendar.CalendarReadonlyScope,
	"https://www.googleapis.com/auth/meetings.space.readonly",
}

// Config holds the OAuth application credentials for Google connections.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Optional: override API endpoint for testing
	Endpoint string
}

// ServiceFactory builds per-account Google API service clients from stored
// credential handles.
type ServiceFactory struct {
	oauthConfig *oauth2.Config
	endpoint    string
}

// NewServiceFactory creates a service factory for the given OAuth app.
func NewServiceFactory(config Config) *ServiceFactory {
	return &ServiceFactory{
		oauthConfig: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Endpoint:     googleoauth.Endpoint,
			Scopes:       Scopes,
		},
		endpoint: config.Endpoint,
	}
}

func (f *ServiceFactory) clientOptions(ctx context.Context, account *models.Account) []option.ClientOption {
	opts := []option.ClientOption{option.WithTokenSource(f.tokenSource(ctx, account))}
	if f.endpoint != "" {
		opts = append(opts, option.WithEndpoint(f.endpoint))
	}
	return opts
}

func (f *ServiceFactory) tokenSource(ctx context.Context, account *models.Account) oauth2.TokenSource {
	return f.oauthConfig.TokenSource(ctx, &oauth2.Token{
		AccessToken:  account.Credential.AccessToken,
		RefreshToken: account.Credential.RefreshToken,
		Expiry:       account.Credential.Expiry,
	})
}

// CalendarService builds a Calendar API client for one account.
func (f *ServiceFactory) CalendarService(ctx context.Context, account *models.Account) (*calendar.Service, error) {
	svc, err := calendar.NewService(ctx, f.clientOptions(ctx, account)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return svc, nil
}

// MeetService builds a Meet API client for one account.
func (f *ServiceFactory) MeetService(ctx context.Context, account *models.Account) (*meet.Service, error) {
	svc, err := meet.NewService(ctx, f.clientOptions(ctx, account)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Meet service: %w", err)
	}
	return svc, nil
}

// Refresh exchanges the account's refresh token for a fresh access token.
func (f *ServiceFactory) Refresh(ctx context.Context, account *models.Account) (*models.CredentialHandle, error) {
	if account.Credential.RefreshToken == "" {
		return nil, domain.NewAuthExpiredError("google account has no refresh token")
	}

	token, err := f.oauthConfig.TokenSource(ctx, &oauth2.Token{
		RefreshToken: account.Credential.RefreshToken,
	}).Token()
	if err != nil {
		return nil, domain.NewAuthExpiredError("failed to refresh google credential", err)
	}

	refreshToken := token.RefreshToken
	if refreshToken == "" {
		// Google omits the refresh token on renewal; keep the stored one.
		refreshToken = account.Credential.RefreshToken
	}
	return &models.CredentialHandle{
		AccessToken:  token.AccessToken,
		RefreshToken: refreshToken,
		Expiry:       token.Expiry,
	}, nil
}
