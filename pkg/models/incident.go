package models

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soarhub-io/helios-connector/pkg/helios"
)

// IncidentType tags every incident created from a Helios ransomware alert.
const IncidentType = "Cohesity-Helios-Ransomware-Incident"

// OccurredTimeFormat is ISO 8601 with UTC at second precision.
const OccurredTimeFormat = "2006-01-02T15:04:05Z"

// IncidentSeverity is the host platform severity scale.
type IncidentSeverity float64

const (
	SeverityUnknown IncidentSeverity = 0
	SeverityInfo    IncidentSeverity = 0.5
	SeverityLow     IncidentSeverity = 1
	SeverityHigh    IncidentSeverity = 3
)

// CustomFields carries the alert metadata surfaced on an incident.
type CustomFields struct {
	AlertDescription string `json:"alert_description"`
	AlertCause       string `json:"alert_cause"`
	AnomalousObject  string `json:"anomalous_object"`
	Environment      string `json:"environment"`
	AnomalyStrength  string `json:"anomaly_strength"`
}

// Incident is the host platform record derived from one ransomware alert.
// Ownership passes to the host ingestion sink as soon as it is created.
type Incident struct {
	Name         string           `json:"name"`
	Type         string           `json:"type"`
	EventID      string           `json:"event_id"`
	Occurred     string           `json:"occurred"`
	CustomFields CustomFields     `json:"CustomFields"`
	RawJSON      string           `json:"rawJSON"`
	Severity     IncidentSeverity `json:"severity"`
}

// AlertDetails is the readable per-alert view returned by the
// get-ransomware-alerts command.
type AlertDetails struct {
	AlertID             string          `json:"alert_id"`
	OccurrenceTime      string          `json:"occurrence_time"`
	Severity            helios.Severity `json:"severity"`
	AlertDescription    string          `json:"alert_description"`
	AlertCause          string          `json:"alert_cause"`
	AnomalousObjectName string          `json:"anomalous_object_name"`
	AnomalousObjectEnv  string          `json:"anomalous_object_env"`
	AnomalyStrength     string          `json:"anomaly_strength"`
}

// MapSeverity maps a Helios alert severity to the host incident severity.
// The lookup is closed with an explicit default; unknown strings map to
// SeverityUnknown and never fail.
func MapSeverity(severity helios.Severity) IncidentSeverity {
	switch severity {
	case helios.SeverityInfo:
		return SeverityInfo
	case helios.SeverityWarning:
		return SeverityLow
	case helios.SeverityCritical:
		return SeverityHigh
	default:
		return SeverityUnknown
	}
}

// OccurredTime converts an alert timestamp in epoch microseconds to the
// host's UTC timestamp format. A zero timestamp yields the epoch.
func OccurredTime(timestampUsecs int64) string {
	return time.UnixMicro(timestampUsecs).UTC().Format(OccurredTimeFormat)
}

// NewIncident creates a host incident from one ransomware alert. The full
// source alert is preserved verbatim in RawJSON for audit and debugging.
func NewIncident(alert helios.Alert) Incident {
	props := helios.DecodeProperties(alert.PropertyList)

	raw, err := json.Marshal(alert)
	if err != nil {
		// Alert came from a JSON decode, so this should not happen.
		logrus.Errorf("Failed to serialize alert %s: %v", alert.ID, err)
	}

	return Incident{
		Name:     alert.AlertDocument.AlertName,
		Type:     IncidentType,
		EventID:  alert.ID,
		Occurred: OccurredTime(alert.LatestTimestampUsecs),
		CustomFields: CustomFields{
			AlertDescription: alert.AlertDocument.AlertDescription,
			AlertCause:       alert.AlertDocument.AlertCause,
			AnomalousObject:  props.Object,
			Environment:      props.Environment,
			AnomalyStrength:  props.AnomalyStrength,
		},
		RawJSON:  string(raw),
		Severity: MapSeverity(alert.Severity),
	}
}

// NewAlertDetails parses a ransomware alert into its readable detail view.
func NewAlertDetails(alert helios.Alert) AlertDetails {
	props := helios.DecodeProperties(alert.PropertyList)

	return AlertDetails{
		AlertID:             alert.ID,
		OccurrenceTime:      OccurredTime(alert.LatestTimestampUsecs),
		Severity:            alert.Severity,
		AlertDescription:    alert.AlertDocument.AlertDescription,
		AlertCause:          alert.AlertDocument.AlertCause,
		AnomalousObjectName: props.Object,
		AnomalousObjectEnv:  props.Environment,
		AnomalyStrength:     props.AnomalyStrength,
	}
}
