package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/soarhub-io/helios-connector/pkg/helios"
)

func openAlert(id, object string, severity helios.Severity) helios.Alert {
	return helios.Alert{
		ID:         id,
		AlertCode:  helios.RansomwareAlertCode,
		Severity:   severity,
		AlertState: helios.StateOpen,
		AlertDocument: helios.AlertDocument{
			AlertName:        "Anomaly on " + object,
			AlertDescription: "desc",
			AlertCause:       "cause",
		},
		PropertyList: []helios.Property{
			{Key: "object", Value: object},
			{Key: "environment", Value: "kVMware"},
			{Key: "jobId", Value: "101"},
			{Key: "jobInstanceId", Value: "2002"},
			{Key: "jobStartTimeUsecs", Value: "1631471400000000"},
			{Key: "entityId", Value: "55"},
			{Key: "cid", Value: "cluster-1"},
		},
	}
}

func TestIgnoreAnomalousObjectSuppressesMatch(t *testing.T) {
	client := new(MockClient)
	service := NewAlertService(client, 20)

	alerts := []helios.Alert{
		openAlert("1", "vm-a", helios.SeverityWarning),
		openAlert("2", "vm-b", helios.SeverityCritical),
	}
	client.On("GetRansomwareAlerts", mock.Anything, mock.Anything).Return(alerts, nil)
	client.On("SuppressAlert", mock.Anything, "2").Return(nil)

	alertID, err := service.IgnoreAnomalousObject(context.Background(), "vm-b")
	require.NoError(t, err)
	assert.Equal(t, "2", alertID)

	// Exactly one suppress call, for the matched alert only.
	client.AssertNumberOfCalls(t, "SuppressAlert", 1)
}

func TestIgnoreAnomalousObjectFirstMatchWins(t *testing.T) {
	client := new(MockClient)
	service := NewAlertService(client, 20)

	// Two open alerts share the object name; scan order decides.
	alerts := []helios.Alert{
		openAlert("first", "vm-a", helios.SeverityCritical),
		openAlert("second", "vm-a", helios.SeverityCritical),
	}
	client.On("GetRansomwareAlerts", mock.Anything, mock.Anything).Return(alerts, nil)
	client.On("SuppressAlert", mock.Anything, "first").Return(nil)

	alertID, err := service.IgnoreAnomalousObject(context.Background(), "vm-a")
	require.NoError(t, err)
	assert.Equal(t, "first", alertID)
}

func TestIgnoreAnomalousObjectNotFound(t *testing.T) {
	client := new(MockClient)
	service := NewAlertService(client, 20)

	alerts := []helios.Alert{openAlert("1", "vm-a", helios.SeverityWarning)}
	client.On("GetRansomwareAlerts", mock.Anything, mock.Anything).Return(alerts, nil)

	_, err := service.IgnoreAnomalousObject(context.Background(), "vm-z")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.ErrorContains(t, err, "vm-z")

	// No state-changing call may be issued on a miss.
	client.AssertNotCalled(t, "SuppressAlert", mock.Anything, mock.Anything)
}

func TestRestoreRequiresCriticalOpen(t *testing.T) {
	client := new(MockClient)
	service := NewAlertService(client, 20)

	// Right object name, but not critical: must not match.
	alerts := []helios.Alert{openAlert("1", "vm-a", helios.SeverityWarning)}
	client.On("GetRansomwareAlerts", mock.Anything, mock.Anything).Return(alerts, nil)

	_, err := service.RestoreLatestCleanSnapshot(context.Background(), "vm-a")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	client.AssertNotCalled(t, "RestoreVMObject", mock.Anything, mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "ResolveAlert", mock.Anything, mock.Anything)
}

func TestRestoreLatestCleanSnapshot(t *testing.T) {
	client := new(MockClient)
	service := NewAlertService(client, 20)
	service.now = func() time.Time { return time.UnixMilli(1700000000000) }

	alerts := []helios.Alert{openAlert("7", "vm-a", helios.SeverityCritical)}
	client.On("GetRansomwareAlerts", mock.Anything, mock.Anything).Return(alerts, nil)

	var gotRequest *helios.RestoreRequest
	client.On("RestoreVMObject", mock.Anything, "cluster-1", mock.Anything).
		Run(func(args mock.Arguments) {
			gotRequest = args.Get(2).(*helios.RestoreRequest)
		}).Return(nil)
	client.On("ResolveAlert", mock.Anything, "7").Return(nil)

	alertID, err := service.RestoreLatestCleanSnapshot(context.Background(), "vm-a")
	require.NoError(t, err)
	assert.Equal(t, "7", alertID)

	require.NotNil(t, gotRequest)
	assert.Equal(t, "SOAR_triggered_restore_task_vm-a", gotRequest.Name)
	assert.Equal(t, "kRecoverVMs", gotRequest.Type)
	assert.True(t, gotRequest.VMwareParameters.PoweredOn)
	assert.Equal(t, "Recover-", gotRequest.VMwareParameters.Prefix)
	assert.Equal(t, "-VM-1700000000000", gotRequest.VMwareParameters.Suffix)

	require.Len(t, gotRequest.Objects, 1)
	obj := gotRequest.Objects[0]
	assert.Equal(t, int64(101), obj.JobID)
	assert.Equal(t, int64(2002), obj.JobRunID)
	assert.Equal(t, int64(1631471400000000), obj.StartedTimeUsecs)
	assert.Equal(t, "vm-a", obj.SourceName)
	assert.Equal(t, int64(55), obj.ProtectionSourceID)

	client.AssertNumberOfCalls(t, "ResolveAlert", 1)
}

func TestRestoreSuffixUniqueAcrossTimes(t *testing.T) {
	client := new(MockClient)
	service := NewAlertService(client, 20)

	alerts := []helios.Alert{openAlert("7", "vm-a", helios.SeverityCritical)}
	client.On("GetRansomwareAlerts", mock.Anything, mock.Anything).Return(alerts, nil)
	client.On("ResolveAlert", mock.Anything, "7").Return(nil)

	var suffixes []string
	client.On("RestoreVMObject", mock.Anything, "cluster-1", mock.Anything).
		Run(func(args mock.Arguments) {
			req := args.Get(2).(*helios.RestoreRequest)
			suffixes = append(suffixes, req.VMwareParameters.Suffix)
		}).Return(nil)

	service.now = func() time.Time { return time.UnixMilli(1700000000000) }
	_, err := service.RestoreLatestCleanSnapshot(context.Background(), "vm-a")
	require.NoError(t, err)

	service.now = func() time.Time { return time.UnixMilli(1700000000001) }
	_, err = service.RestoreLatestCleanSnapshot(context.Background(), "vm-a")
	require.NoError(t, err)

	require.Len(t, suffixes, 2)
	assert.NotEqual(t, suffixes[0], suffixes[1])
}

func TestRestoreResolveFailureSurfacesResolveError(t *testing.T) {
	client := new(MockClient)
	service := NewAlertService(client, 20)

	alerts := []helios.Alert{openAlert("7", "vm-a", helios.SeverityCritical)}
	client.On("GetRansomwareAlerts", mock.Anything, mock.Anything).Return(alerts, nil)
	client.On("RestoreVMObject", mock.Anything, "cluster-1", mock.Anything).Return(nil)
	client.On("ResolveAlert", mock.Anything, "7").Return(errors.New("resolve exploded"))

	_, err := service.RestoreLatestCleanSnapshot(context.Background(), "vm-a")
	require.Error(t, err)
	// The restore already happened; the surfaced error names the resolve step.
	assert.ErrorContains(t, err, "resolving alert 7 failed")
	assert.ErrorContains(t, err, "resolve exploded")

	client.AssertNumberOfCalls(t, "RestoreVMObject", 1)
}

func TestRestoreFailureSkipsResolve(t *testing.T) {
	client := new(MockClient)
	service := NewAlertService(client, 20)

	alerts := []helios.Alert{openAlert("7", "vm-a", helios.SeverityCritical)}
	client.On("GetRansomwareAlerts", mock.Anything, mock.Anything).Return(alerts, nil)
	client.On("RestoreVMObject", mock.Anything, "cluster-1", mock.Anything).Return(errors.New("restore failed"))

	_, err := service.RestoreLatestCleanSnapshot(context.Background(), "vm-a")
	require.Error(t, err)

	// Resolve is only attempted after a successful restore submission.
	client.AssertNotCalled(t, "ResolveAlert", mock.Anything, mock.Anything)
}

func TestRestoreMissingNumericProperty(t *testing.T) {
	client := new(MockClient)
	service := NewAlertService(client, 20)

	alert := openAlert("7", "vm-a", helios.SeverityCritical)
	// Drop jobId from the property list.
	props := alert.PropertyList[:0]
	for _, p := range alert.PropertyList {
		if p.Key != "jobId" {
			props = append(props, p)
		}
	}
	alert.PropertyList = props

	client.On("GetRansomwareAlerts", mock.Anything, mock.Anything).Return([]helios.Alert{alert}, nil)

	_, err := service.RestoreLatestCleanSnapshot(context.Background(), "vm-a")
	require.Error(t, err)
	assert.ErrorContains(t, err, "jobId")

	client.AssertNotCalled(t, "RestoreVMObject", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetRansomwareAlertsDetails(t *testing.T) {
	client := new(MockClient)
	service := NewAlertService(client, 20)

	alerts := []helios.Alert{openAlert("1", "vm-a", helios.SeverityCritical)}
	var gotQuery helios.AlertQuery
	client.On("GetRansomwareAlerts", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotQuery = args.Get(1).(helios.AlertQuery)
		}).Return(alerts, nil)

	details, err := service.GetRansomwareAlerts(context.Background(), GetAlertsArgs{
		CreatedAfterMillis:  1000,
		CreatedBeforeMillis: 2000,
		AlertSeverities:     []string{"kCritical"},
		Limit:               5,
	})
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "1", details[0].AlertID)
	assert.Equal(t, "vm-a", details[0].AnomalousObjectName)

	assert.Equal(t, int64(1000), gotQuery.StartTimeMillis)
	assert.Equal(t, int64(2000), gotQuery.EndTimeMillis)
	assert.Equal(t, 5, gotQuery.MaxAlerts)
	assert.Equal(t, []string{"kCritical"}, gotQuery.AlertSeverities)
}

func TestConnectivityTest(t *testing.T) {
	client := new(MockClient)
	service := NewAlertService(client, 20)

	client.On("GetRansomwareAlerts", mock.Anything, mock.Anything).Return([]helios.Alert{}, nil).Once()
	assert.NoError(t, service.ConnectivityTest(context.Background()))

	client.On("GetRansomwareAlerts", mock.Anything, mock.Anything).
		Return(nil, &helios.APIError{Status: 403, Body: "Forbidden"}).Once()
	err := service.ConnectivityTest(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "authorization error")
	assert.ErrorContains(t, err, "API key")

	client.On("GetRansomwareAlerts", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused")).Once()
	err = service.ConnectivityTest(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "authorization error")
}
