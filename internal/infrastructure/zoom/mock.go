// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package zoom

import (
	"context"

	"github.com/annix/fieldflow-meeting-intel/internal/infrastructure/zoom/api"
	"github.com/stretchr/testify/mock"
	"golang.org/x/oauth2"
)

// MockClientAPI is a testify mock of api.ClientAPI.
type MockClientAPI struct {
	mock.Mock
}

var _ api.ClientAPI = (*MockClientAPI)(nil)

func (m *MockClientAPI) ListMeetings(ctx context.Context, userID, pageToken string) (*api.ListMeetingsResponse, error) {
	args := m.Called(ctx, userID, pageToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.ListMeetingsResponse), args.Error(1)
}

func (m *MockClientAPI) GetMeeting(ctx context.Context, meetingID string) (*api.Meeting, error) {
	args := m.Called(ctx, meetingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.Meeting), args.Error(1)
}

func (m *MockClientAPI) GetMeetingRecordings(ctx context.Context, meetingID string) (*api.RecordingsResponse, error) {
	args := m.Called(ctx, meetingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.RecordingsResponse), args.Error(1)
}

func (m *MockClientAPI) DownloadFile(ctx context.Context, downloadURL string) ([]byte, error) {
	args := m.Called(ctx, downloadURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockClientAPI) Token(ctx context.Context) (*oauth2.Token, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.Token), args.Error(1)
}
