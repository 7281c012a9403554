// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"time"

	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
)

// SummaryRequest is the input handed to the external summarization
// capability: the transcript plus enough meeting metadata to anchor it.
type SummaryRequest struct {
	Transcript   string
	Title        string
	Participants []string
	Duration     time.Duration
}

// Summarizer is the contract for the external summarization capability.
// The orchestrator treats failures as retryable up to the stage budget;
// summarization is never skipped silently.
type Summarizer interface {
	Summarize(ctx context.Context, req SummaryRequest) (*models.SummaryContent, error)
}
