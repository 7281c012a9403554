// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package email

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
)

// MockEmailService is a mock implementation of domain.EmailService.
type MockEmailService struct {
	mock.Mock
}

// SendSummaryNotification is a mock method
func (m *MockEmailService) SendSummaryNotification(ctx context.Context, notification domain.EmailSummaryNotification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

// MockTemplateManager is a mock implementation of SummaryTemplateManager.
type MockTemplateManager struct {
	mock.Mock
}

// RenderSummaryNotification is a mock method
func (m *MockTemplateManager) RenderSummaryNotification(data domain.EmailSummaryNotification) (*RenderedEmail, error) {
	args := m.Called(data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RenderedEmail), args.Error(1)
}
