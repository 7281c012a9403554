// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

// Package microsoft adapts the Microsoft Graph API to the calendar and
// recording provider contracts: Outlook calendar via the delta query feed,
// Teams recordings via the online meetings artifact APIs.
package microsoft

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

const (
	// BaseURL is the Microsoft Graph v1.0 endpoint.
	BaseURL = "https://graph.microsoft.com/v1.0"
	// DefaultClientTimeout is the default HTTP client timeout for Graph requests
	DefaultClientTimeout = 30 * time.Second
)

// Config holds the OAuth application credentials for Microsoft connections.
type Config struct {
	ClientID     string
	ClientSecret string
	TenantID     string
	RedirectURL  string
	// Optional: override base URL for testing
	BaseURL string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
}

// Scopes requested when accounts are connected.
var Scopes = []string{
	"offline_access",
	"Calendars.Read",
	"OnlineMeetings.Read",
	"OnlineMeetingRecording.Read.All",
	"OnlineMeetingTranscript.Read.All",
}

// Client is a thin Microsoft Graph REST client. Unlike the Zoom client it
// does not retry internally; Graph throttling surfaces as RateLimited and
// the pipeline's own backoff handles the pacing.
type Client struct {
	httpClient  *http.Client
	config      Config
	oauthConfig *oauth2.Config
}

// NewClient creates a new Graph client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}
	tenant := config.TenantID
	if tenant == "" {
		tenant = "common"
	}

	return &Client{
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
		oauthConfig: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Endpoint:     microsoft.AzureADEndpoint(tenant),
			Scopes:       Scopes,
		},
	}
}

// BaseURLFor joins a Graph path onto the configured base URL.
func (c *Client) BaseURLFor(path string) string {
	return c.config.BaseURL + path
}

// GetJSON performs an authenticated GET against a fully qualified Graph URL
// and decodes the response into out. Delta links are full URLs, so callers
// pass complete URLs rather than paths.
func (c *Client) GetJSON(ctx context.Context, account *models.Account, requestURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+account.Credential.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewTransientError("graph request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return mapResponseError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode graph response: %w", err)
	}
	return nil
}

// GetRaw performs an authenticated GET and returns the raw body, used for
// transcript content downloads.
func (c *Client) GetRaw(ctx context.Context, account *models.Account, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+account.Credential.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewTransientError("graph request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, mapResponseError(resp)
	}
	return io.ReadAll(resp.Body)
}

// Refresh exchanges the account's refresh token for a fresh access token.
func (c *Client) Refresh(ctx context.Context, account *models.Account) (*models.CredentialHandle, error) {
	if account.Credential.RefreshToken == "" {
		return nil, domain.NewAuthExpiredError("microsoft account has no refresh token")
	}

	token, err := c.oauthConfig.TokenSource(ctx, &oauth2.Token{
		RefreshToken: account.Credential.RefreshToken,
	}).Token()
	if err != nil {
		return nil, domain.NewAuthExpiredError("failed to refresh microsoft credential", err)
	}

	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = account.Credential.RefreshToken
	}
	return &models.CredentialHandle{
		AccessToken:  token.AccessToken,
		RefreshToken: refreshToken,
		Expiry:       token.Expiry,
	}, nil
}

// graphError is the Graph API error envelope.
type graphError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// mapResponseError converts a non-2xx Graph response into a typed domain
// error following the provider error taxonomy.
func mapResponseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	message := fmt.Sprintf("graph API error: status %d", resp.StatusCode)
	var envelope graphError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Code != "" {
		message = fmt.Sprintf("graph API error (%s): %s", envelope.Error.Code, envelope.Error.Message)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return domain.NewAuthExpiredError(message)
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.NewRateLimitedError(message, retryAfterHeader(resp))
	case resp.StatusCode == http.StatusNotFound:
		return domain.NewNotFoundError(message)
	case resp.StatusCode == http.StatusGone:
		// Delta sync state expiry; the calendar adapter translates this
		// into a cursor reset.
		return domain.ErrCursorInvalid
	case resp.StatusCode >= http.StatusInternalServerError:
		return domain.NewTransientError(message)
	default:
		return domain.NewPermanentError(message)
	}
}

func retryAfterHeader(resp *http.Response) time.Duration {
	seconds, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
