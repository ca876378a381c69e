package helios

// RansomwareAlertCode is the Helios alert code for anomalous/ransomware-like
// activity. Only alerts carrying this code are ever surfaced by the client.
const RansomwareAlertCode = "CE01516011"

// Severity is the Helios alert severity as delivered on the wire. Unknown
// values are passed through rather than rejected so that new severities the
// service introduces do not break decoding.
type Severity string

const (
	SeverityInfo     Severity = "kInfo"
	SeverityWarning  Severity = "kWarning"
	SeverityCritical Severity = "kCritical"
)

// Recognized reports whether the severity is one of the documented values.
func (s Severity) Recognized() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// AlertState is the Helios alert lifecycle state.
type AlertState string

const (
	StateOpen       AlertState = "kOpen"
	StateSuppressed AlertState = "kSuppressed"
	StateResolved   AlertState = "kResolved"
)

// Recognized reports whether the state is one of the documented values.
func (s AlertState) Recognized() bool {
	switch s {
	case StateOpen, StateSuppressed, StateResolved:
		return true
	}
	return false
}

// Property is one key/value entry from an alert's property list.
type Property struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// AlertDocument carries the human-readable description of an alert.
type AlertDocument struct {
	AlertName        string `json:"alertName"`
	AlertDescription string `json:"alertDescription"`
	AlertCause       string `json:"alertCause"`
}

// Alert is a Helios security alert. The connector only reads alerts and
// requests state transitions against them; it never creates or deletes them.
type Alert struct {
	ID                   string        `json:"id"`
	AlertCode            string        `json:"alertCode"`
	Severity             Severity      `json:"severity"`
	AlertState           AlertState    `json:"alertState"`
	LatestTimestampUsecs int64         `json:"latestTimestampUsecs"`
	AlertDocument        AlertDocument `json:"alertDocument"`
	PropertyList         []Property    `json:"propertyList"`
}

// RestoreObject identifies one protected object inside a restore job request.
type RestoreObject struct {
	JobID              int64  `json:"jobId"`
	JobRunID           int64  `json:"jobRunId"`
	StartedTimeUsecs   int64  `json:"startedTimeUsecs"`
	SourceName         string `json:"sourceName"`
	ProtectionSourceID int64  `json:"protectionSourceId"`
}

// VMwareParameters holds VM power and naming options for a restore job.
type VMwareParameters struct {
	PoweredOn bool   `json:"poweredOn"`
	Prefix    string `json:"prefix"`
	Suffix    string `json:"suffix"`
}

// RestoreRequest is the recover-VMs job payload posted to Helios.
type RestoreRequest struct {
	Name             string           `json:"name"`
	Type             string           `json:"type"`
	VMwareParameters VMwareParameters `json:"vmwareParameters"`
	Objects          []RestoreObject  `json:"objects"`
}
