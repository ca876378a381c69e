package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soarhub-io/helios-connector/pkg/helios"
	"github.com/soarhub-io/helios-connector/pkg/metrics"
	"github.com/soarhub-io/helios-connector/pkg/models"
)

// restoreTaskPrefix names restore jobs triggered through this connector.
const restoreTaskPrefix = "SOAR_triggered_restore_task_"

// connectivityProbeStartMillis is the fixed window start for the
// connectivity self-test; the exact value only needs to be a valid past time.
const connectivityProbeStartMillis = 1631471400000

// AlertService implements the operator-facing alert workflows: listing
// ransomware alerts, suppressing the alert for an anomalous object and
// restoring an object from its latest clean snapshot.
type AlertService struct {
	client   helios.HeliosClient
	maxFetch int

	// now is swapped out in tests
	now func() time.Time
}

// NewAlertService creates a new alert service
func NewAlertService(client helios.HeliosClient, maxFetch int) *AlertService {
	if maxFetch <= 0 {
		maxFetch = 20
	}
	return &AlertService{
		client:   client,
		maxFetch: maxFetch,
		now:      time.Now,
	}
}

// GetAlertsArgs holds the optional filters for listing ransomware alerts.
type GetAlertsArgs struct {
	CreatedAfterMillis  int64
	CreatedBeforeMillis int64
	AlertIDs            []string
	AlertSeverities     []string
	Limit               int
}

// GetRansomwareAlerts fetches ransomware alerts and parses them into their
// readable detail views.
func (s *AlertService) GetRansomwareAlerts(ctx context.Context, args GetAlertsArgs) ([]models.AlertDetails, error) {
	limit := args.Limit
	if limit <= 0 {
		limit = s.maxFetch
	}

	alerts, err := s.client.GetRansomwareAlerts(ctx, helios.AlertQuery{
		StartTimeMillis: args.CreatedAfterMillis,
		EndTimeMillis:   args.CreatedBeforeMillis,
		AlertIDs:        args.AlertIDs,
		AlertSeverities: args.AlertSeverities,
		MaxAlerts:       limit,
	})
	if err != nil {
		return nil, err
	}
	logrus.Debugf("Got %d alerts between %d and %d", len(alerts), args.CreatedAfterMillis, args.CreatedBeforeMillis)

	details := make([]models.AlertDetails, 0, len(alerts))
	for _, alert := range alerts {
		details = append(details, models.NewAlertDetails(alert))
	}
	return details, nil
}

// findAlertByObject scans the live open alert list in response order and
// returns the first alert whose object property equals objectName. When
// criticalOpenOnly is set, only critical open alerts are considered.
//
// First match wins: if more than one open alert shares an object name, which
// one is acted on depends solely on response order. The service provides no
// secondary disambiguator, so this is kept as the documented policy.
func (s *AlertService) findAlertByObject(ctx context.Context, objectName string, criticalOpenOnly bool) (helios.Alert, helios.Properties, error) {
	alerts, err := s.client.GetRansomwareAlerts(ctx, helios.AlertQuery{MaxAlerts: s.maxFetch})
	if err != nil {
		return helios.Alert{}, helios.Properties{}, err
	}

	for _, alert := range alerts {
		if criticalOpenOnly && (alert.Severity != helios.SeverityCritical || alert.AlertState != helios.StateOpen) {
			continue
		}
		props := helios.DecodeProperties(alert.PropertyList)
		if props.Object == objectName {
			return alert, props, nil
		}
	}

	return helios.Alert{}, helios.Properties{}, &NotFoundError{Object: objectName}
}

// IgnoreAnomalousObject suppresses the open ransomware alert for the given
// object name. Returns the id of the suppressed alert.
func (s *AlertService) IgnoreAnomalousObject(ctx context.Context, objectName string) (string, error) {
	logrus.Debugf("Performing ignore anomaly operation for object %s", objectName)

	alert, _, err := s.findAlertByObject(ctx, objectName, false)
	if err != nil {
		return "", err
	}

	if err := s.client.SuppressAlert(ctx, alert.ID); err != nil {
		return "", err
	}

	metrics.ActionsExecuted.WithLabelValues("suppress").Inc()
	logrus.Infof("Ignored object %s (alert %s)", objectName, alert.ID)
	return alert.ID, nil
}

// RestoreLatestCleanSnapshot restores the latest clean snapshot of the given
// object, then resolves the matched alert. The two calls are not
// transactional: when the resolve call fails after a successful restore
// submission, the alert stays open and the resolve failure is surfaced even
// though the restore already happened.
func (s *AlertService) RestoreLatestCleanSnapshot(ctx context.Context, objectName string) (string, error) {
	logrus.Debugf("Performing restore operation for object %s", objectName)

	alert, props, err := s.findAlertByObject(ctx, objectName, true)
	if err != nil {
		return "", err
	}

	request, err := s.buildRestoreRequest(props)
	if err != nil {
		return "", fmt.Errorf("cannot build restore request for object %s: %w", objectName, err)
	}

	if props.ClusterID == "" {
		return "", fmt.Errorf("cannot build restore request for object %s: alert property %q is missing", objectName, "cid")
	}

	if err := s.client.RestoreVMObject(ctx, props.ClusterID, request); err != nil {
		return "", err
	}
	metrics.ActionsExecuted.WithLabelValues("restore").Inc()

	if err := s.client.ResolveAlert(ctx, alert.ID); err != nil {
		return "", fmt.Errorf("restore for object %s submitted, but resolving alert %s failed: %w", objectName, alert.ID, err)
	}

	logrus.Infof("Restored object %s (alert %s resolved)", objectName, alert.ID)
	return alert.ID, nil
}

// buildRestoreRequest derives the recover-VMs payload from the matched
// alert's properties. The generated VM name suffix embeds the current epoch
// millis so repeated restores of the same object stay unique.
func (s *AlertService) buildRestoreRequest(props helios.Properties) (*helios.RestoreRequest, error) {
	jobID, err := props.JobIDInt()
	if err != nil {
		return nil, err
	}
	jobRunID, err := props.JobInstanceIDInt()
	if err != nil {
		return nil, err
	}
	startedTimeUsecs, err := props.JobStartTimeUsecsInt()
	if err != nil {
		return nil, err
	}
	sourceID, err := props.EntityIDInt()
	if err != nil {
		return nil, err
	}

	nowMillis := s.now().UnixMilli()
	return &helios.RestoreRequest{
		Name: restoreTaskPrefix + props.Object,
		Type: "kRecoverVMs",
		VMwareParameters: helios.VMwareParameters{
			PoweredOn: true,
			Prefix:    "Recover-",
			Suffix:    "-VM-" + strconv.FormatInt(nowMillis, 10),
		},
		Objects: []helios.RestoreObject{
			{
				JobID:              jobID,
				JobRunID:           jobRunID,
				StartedTimeUsecs:   startedTimeUsecs,
				SourceName:         props.Object,
				ProtectionSourceID: sourceID,
			},
		},
	}, nil
}

// ConnectivityTest performs one bounded alert fetch to verify reachability
// and authentication. Authorization failures are reported distinctly so the
// operator knows to check the API key.
func (s *AlertService) ConnectivityTest(ctx context.Context) error {
	_, err := s.client.GetRansomwareAlerts(ctx, helios.AlertQuery{
		StartTimeMillis: connectivityProbeStartMillis,
		MaxAlerts:       1,
	})
	if err == nil {
		return nil
	}
	if IsAuthorizationError(err) {
		return fmt.Errorf("authorization error: make sure the API key is correctly set: %w", err)
	}
	return err
}
