package commands

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/soarhub-io/helios-connector/pkg/metrics"
	"github.com/soarhub-io/helios-connector/pkg/services"
)

// Command names the host platform may dispatch.
const (
	CmdConnectivityTest    = "connectivity-test"
	CmdGetRansomwareAlerts = "get-ransomware-alerts"
	CmdIgnoreObject        = "ignore-anomalous-object"
	CmdRestoreSnapshot     = "restore-latest-clean-snapshot"
	CmdFetchIncidents      = "fetch-incidents"
)

// Args is the free-form argument mapping a command is invoked with.
type Args map[string]string

// Result is the structured outcome of a successful command.
type Result struct {
	Message string      `json:"message"`
	Outputs interface{} `json:"outputs,omitempty"`
}

// UserError is an operator-facing failure with a descriptive message.
type UserError struct {
	Message string
	Cause   error
}

func (e *UserError) Error() string {
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Cause
}

// Dispatcher routes host platform commands to the alert and fetch services.
type Dispatcher struct {
	alerts *services.AlertService
	fetch  *services.FetchService
}

// NewDispatcher creates a new command dispatcher
func NewDispatcher(alerts *services.AlertService, fetch *services.FetchService) *Dispatcher {
	return &Dispatcher{
		alerts: alerts,
		fetch:  fetch,
	}
}

// Execute runs one command to completion and returns its result. Any panic
// from a handler is logged with its stack and reported as a generic failure
// carrying the underlying message; no retry happens at this layer.
func (d *Dispatcher) Execute(ctx context.Context, command string, args Args) (result *Result, err error) {
	invocationID := uuid.NewString()
	logrus.Debugf("Command being called is %s (invocation %s)", command, invocationID)

	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("Panic executing %s (invocation %s): %v\n%s", command, invocationID, r, debug.Stack())
			err = fmt.Errorf("failed to execute %s command: %v", command, r)
		}
		if err != nil {
			metrics.CommandFailures.WithLabelValues(command).Inc()
		}
	}()

	switch command {
	case CmdConnectivityTest:
		return d.connectivityTest(ctx)
	case CmdGetRansomwareAlerts:
		return d.getRansomwareAlerts(ctx, args)
	case CmdIgnoreObject:
		return d.ignoreAnomalousObject(ctx, args)
	case CmdRestoreSnapshot:
		return d.restoreLatestCleanSnapshot(ctx, args)
	case CmdFetchIncidents:
		return d.fetchIncidents(ctx)
	default:
		return nil, &UserError{Message: fmt.Sprintf("unknown command: %s", command)}
	}
}

func (d *Dispatcher) connectivityTest(ctx context.Context) (*Result, error) {
	if err := d.alerts.ConnectivityTest(ctx); err != nil {
		return nil, &UserError{Message: err.Error(), Cause: err}
	}
	return &Result{Message: "ok"}, nil
}

func (d *Dispatcher) getRansomwareAlerts(ctx context.Context, args Args) (*Result, error) {
	createdAfter, err := parseTimeMillis(args["created_after"])
	if err != nil {
		return nil, &UserError{Message: fmt.Sprintf("invalid created_after: %v", err), Cause: err}
	}
	createdBefore, err := parseTimeMillis(args["created_before"])
	if err != nil {
		return nil, &UserError{Message: fmt.Sprintf("invalid created_before: %v", err), Cause: err}
	}

	limit := 0
	if raw := args["limit"]; raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return nil, &UserError{Message: fmt.Sprintf("invalid limit: %q", raw), Cause: err}
		}
	}

	details, err := d.alerts.GetRansomwareAlerts(ctx, services.GetAlertsArgs{
		CreatedAfterMillis:  createdAfter,
		CreatedBeforeMillis: createdBefore,
		AlertIDs:            splitList(args["alert_id_list"]),
		AlertSeverities:     splitList(args["alert_severity_list"]),
		Limit:               limit,
	})
	if err != nil {
		return nil, wrapCommandError(CmdGetRansomwareAlerts, err)
	}

	return &Result{
		Message: fmt.Sprintf("Fetched %d ransomware alerts.", len(details)),
		Outputs: details,
	}, nil
}

func (d *Dispatcher) ignoreAnomalousObject(ctx context.Context, args Args) (*Result, error) {
	objectName := args["object_name"]
	if objectName == "" {
		return nil, &UserError{Message: "object_name is required"}
	}

	if _, err := d.alerts.IgnoreAnomalousObject(ctx, objectName); err != nil {
		if services.IsNotFound(err) {
			return nil, &UserError{Message: err.Error(), Cause: err}
		}
		return nil, wrapCommandError(CmdIgnoreObject, err)
	}

	return &Result{Message: fmt.Sprintf("Ignored object %s.", objectName)}, nil
}

func (d *Dispatcher) restoreLatestCleanSnapshot(ctx context.Context, args Args) (*Result, error) {
	objectName := args["object_name"]
	if objectName == "" {
		return nil, &UserError{Message: "object_name is required"}
	}

	if _, err := d.alerts.RestoreLatestCleanSnapshot(ctx, objectName); err != nil {
		if services.IsNotFound(err) {
			return nil, &UserError{Message: err.Error(), Cause: err}
		}
		return nil, wrapCommandError(CmdRestoreSnapshot, err)
	}

	return &Result{Message: fmt.Sprintf("Restored object %s.", objectName)}, nil
}

func (d *Dispatcher) fetchIncidents(ctx context.Context) (*Result, error) {
	count, err := d.fetch.Run(ctx)
	if err != nil {
		return nil, wrapCommandError(CmdFetchIncidents, err)
	}
	return &Result{Message: fmt.Sprintf("Pushed %d incidents.", count)}, nil
}

func wrapCommandError(command string, err error) error {
	return fmt.Errorf("failed to execute %s command: %w", command, err)
}

// parseTimeMillis accepts an RFC 3339 timestamp or raw epoch milliseconds.
// Empty input means "not set" and yields zero.
func parseTimeMillis(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UnixMilli(), nil
	}
	if millis, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return millis, nil
	}
	return 0, fmt.Errorf("expected RFC 3339 timestamp or epoch millis, got %q", raw)
}

// splitList parses a comma-separated argument into its entries.
func splitList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
