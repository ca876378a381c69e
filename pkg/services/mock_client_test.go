package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/soarhub-io/helios-connector/pkg/helios"
)

// MockClient is a mock implementation of the HeliosClient interface
type MockClient struct {
	mock.Mock
}

// Ensure MockClient implements HeliosClient
var _ helios.HeliosClient = (*MockClient)(nil)

func (m *MockClient) GetRansomwareAlerts(ctx context.Context, query helios.AlertQuery) ([]helios.Alert, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]helios.Alert), args.Error(1)
}

func (m *MockClient) SuppressAlert(ctx context.Context, alertID string) error {
	args := m.Called(ctx, alertID)
	return args.Error(0)
}

func (m *MockClient) ResolveAlert(ctx context.Context, alertID string) error {
	args := m.Called(ctx, alertID)
	return args.Error(0)
}

func (m *MockClient) RestoreVMObject(ctx context.Context, clusterID string, request *helios.RestoreRequest) error {
	args := m.Called(ctx, clusterID, request)
	return args.Error(0)
}
