package helios

import (
	"context"
)

// HeliosClient defines the interface for a Helios API client
// This allows us to mock the client for testing
type HeliosClient interface {
	GetRansomwareAlerts(ctx context.Context, query AlertQuery) ([]Alert, error)
	SuppressAlert(ctx context.Context, alertID string) error
	ResolveAlert(ctx context.Context, alertID string) error
	RestoreVMObject(ctx context.Context, clusterID string, request *RestoreRequest) error
}

// Ensure Client implements HeliosClient
var _ HeliosClient = (*Client)(nil)
