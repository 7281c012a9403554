// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package google

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"google.golang.org/api/googleapi"
)

// mapAPIError converts googleapi errors into the provider error taxonomy.
// The 410 Gone case is handled by the calendar adapter before this runs,
// since only the events feed uses sync tokens.
func mapAPIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return domain.NewTransientError("google API request failed", err)
	}

	switch {
	case apiErr.Code == http.StatusUnauthorized:
		return domain.NewAuthExpiredError("google access token rejected", err)
	case apiErr.Code == http.StatusTooManyRequests || isQuotaError(apiErr):
		return domain.NewRateLimitedError("google API rate limit exceeded", retryAfter(apiErr), err)
	case apiErr.Code == http.StatusNotFound:
		return domain.NewNotFoundError("google resource not found", err)
	case apiErr.Code >= http.StatusInternalServerError:
		return domain.NewTransientError("google API server error", err)
	default:
		return domain.NewPermanentError("google API request rejected", err)
	}
}

// isQuotaError recognizes the 403-with-quota-reason shape Google uses for
// per-user rate limits.
func isQuotaError(apiErr *googleapi.Error) bool {
	if apiErr.Code != http.StatusForbidden {
		return false
	}
	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded":
			return true
		}
	}
	return false
}

func retryAfter(apiErr *googleapi.Error) time.Duration {
	if apiErr.Header == nil {
		return 0
	}
	seconds, err := strconv.Atoi(apiErr.Header.Get("Retry-After"))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
