// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

// Package summarizer is the HTTP client for the external summarization
// capability.
package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
)

const defaultTimeout = 120 * time.Second

// Config holds the summarizer service configuration.
type Config struct {
	// BaseURL is the root of the summarization service.
	BaseURL string
	// APIKey is sent as a bearer token when set.
	APIKey string
	// Timeout bounds one summarization call. Summaries of long
	// transcripts can take a while, so the default is generous.
	Timeout time.Duration
}

// Client implements domain.Summarizer over HTTP. The client carries no
// retry loop of its own; the pipeline's stage budget governs retries, so a
// failed call surfaces immediately with its taxonomy classification.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new summarizer client.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Ensure Client implements Summarizer
var _ domain.Summarizer = (*Client)(nil)

// summarizeRequest is the wire form of a summarization call.
type summarizeRequest struct {
	Transcript      string   `json:"transcript"`
	Title           string   `json:"title,omitempty"`
	Participants    []string `json:"participants,omitempty"`
	DurationMinutes int      `json:"duration_minutes,omitempty"`
}

// summarizeResponse is the wire form of a summarization result.
type summarizeResponse struct {
	Overview    string   `json:"overview"`
	ActionItems []string `json:"action_items"`
	Sections    []struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	} `json:"sections"`
}

// Summarize implements domain.Summarizer
func (c *Client) Summarize(ctx context.Context, req domain.SummaryRequest) (*models.SummaryContent, error) {
	if req.Transcript == "" {
		return nil, domain.NewValidationError("transcript is empty")
	}

	payload, err := json.Marshal(summarizeRequest{
		Transcript:      req.Transcript,
		Title:           req.Title,
		Participants:    req.Participants,
		DurationMinutes: int(req.Duration.Minutes()),
	})
	if err != nil {
		return nil, domain.NewInternalError("failed to marshal summarize request", err)
	}

	url := c.config.BaseURL + "/v1/summarize"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, domain.NewInternalError("failed to build summarize request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewTransientError(fmt.Sprintf("summarizer request failed: %v", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewTransientError(fmt.Sprintf("failed to read summarizer response: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.mapResponseError(resp, body)
	}

	var result summarizeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, domain.NewPermanentError("summarizer returned unparseable response")
	}
	if result.Overview == "" {
		return nil, domain.NewPermanentError("summarizer returned an empty overview")
	}

	slog.DebugContext(ctx, "summarization completed",
		"duration", time.Since(start).String(),
		"transcript_bytes", len(req.Transcript),
	)

	content := &models.SummaryContent{
		Overview:    result.Overview,
		ActionItems: result.ActionItems,
	}
	for _, section := range result.Sections {
		content.Sections = append(content.Sections, models.SummarySection{
			Title: section.Title,
			Body:  section.Body,
		})
	}

	return content, nil
}

// mapResponseError classifies a non-200 response into the error taxonomy.
func (c *Client) mapResponseError(resp *http.Response, body []byte) error {
	message := fmt.Sprintf("summarizer returned status %d: %s", resp.StatusCode, truncate(body, 200))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.NewAuthExpiredError(message)
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.NewRateLimitedError(message, retryAfterHeader(resp))
	case resp.StatusCode >= 500:
		return domain.NewTransientError(message)
	default:
		return domain.NewPermanentError(message)
	}
}

// retryAfterHeader parses the Retry-After header from a 429 response.
func retryAfterHeader(resp *http.Response) time.Duration {
	seconds, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// Static summarizer fallback for local development: NoOpSummarizer returns
// a canned summary so the pipeline can run end to end without the external
// service.
type NoOpSummarizer struct{}

// Summarize implements domain.Summarizer
func (NoOpSummarizer) Summarize(_ context.Context, req domain.SummaryRequest) (*models.SummaryContent, error) {
	return &models.SummaryContent{
		Overview: fmt.Sprintf("Summary unavailable for %q; summarization service not configured.", req.Title),
	}, nil
}
