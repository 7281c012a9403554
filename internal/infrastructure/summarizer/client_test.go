// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package summarizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
)

func TestSummarize(t *testing.T) {
	t.Run("successful summarization", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/summarize", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "WEBVTT transcript", req["transcript"])
			assert.Equal(t, "Standup", req["title"])
			assert.Equal(t, float64(30), req["duration_minutes"])

			_ = json.NewEncoder(w).Encode(map[string]any{
				"overview":     "Team synced on release status.",
				"action_items": []string{"Dana to cut the release branch"},
				"sections": []map[string]string{
					{"title": "Decisions", "body": "Release on Friday."},
				},
			})
		}))
		defer server.Close()

		client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})
		content, err := client.Summarize(context.Background(), domain.SummaryRequest{
			Transcript: "WEBVTT transcript",
			Title:      "Standup",
			Duration:   30 * time.Minute,
		})
		require.NoError(t, err)

		assert.Equal(t, "Team synced on release status.", content.Overview)
		require.Len(t, content.ActionItems, 1)
		require.Len(t, content.Sections, 1)
		assert.Equal(t, "Decisions", content.Sections[0].Title)
	})

	t.Run("empty transcript is a validation error", func(t *testing.T) {
		client := NewClient(Config{BaseURL: "http://unused.invalid"})
		_, err := client.Summarize(context.Background(), domain.SummaryRequest{})
		assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
	})

	t.Run("error taxonomy", func(t *testing.T) {
		tests := []struct {
			name       string
			status     int
			expected   domain.ErrorType
			retryAfter string
		}{
			{name: "unauthorized", status: http.StatusUnauthorized, expected: domain.ErrorTypeAuthExpired},
			{name: "rate limited", status: http.StatusTooManyRequests, expected: domain.ErrorTypeRateLimited, retryAfter: "12"},
			{name: "server error", status: http.StatusBadGateway, expected: domain.ErrorTypeTransient},
			{name: "bad request", status: http.StatusBadRequest, expected: domain.ErrorTypePermanent},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					if tt.retryAfter != "" {
						w.Header().Set("Retry-After", tt.retryAfter)
					}
					w.WriteHeader(tt.status)
				}))
				defer server.Close()

				client := NewClient(Config{BaseURL: server.URL})
				_, err := client.Summarize(context.Background(), domain.SummaryRequest{Transcript: "t"})
				require.Error(t, err)
				assert.Equal(t, tt.expected, domain.GetErrorType(err))
				if tt.retryAfter != "" {
					assert.Equal(t, 12*time.Second, domain.RetryAfterHint(err))
				}
			})
		}
	})

	t.Run("empty overview is permanent", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"overview":""}`))
		}))
		defer server.Close()

		client := NewClient(Config{BaseURL: server.URL})
		_, err := client.Summarize(context.Background(), domain.SummaryRequest{Transcript: "t"})
		assert.Equal(t, domain.ErrorTypePermanent, domain.GetErrorType(err))
	})

	t.Run("connection failure is transient", func(t *testing.T) {
		client := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
		_, err := client.Summarize(context.Background(), domain.SummaryRequest{Transcript: "t"})
		assert.Equal(t, domain.ErrorTypeTransient, domain.GetErrorType(err))
	})
}

func TestNoOpSummarizer(t *testing.T) {
	content, err := NoOpSummarizer{}.Summarize(context.Background(), domain.SummaryRequest{
		Transcript: "t",
		Title:      "Standup",
	})
	require.NoError(t, err)
	assert.Contains(t, content.Overview, "Standup")
}
