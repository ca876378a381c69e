package helios

import (
	"fmt"
	"strconv"
)

// Property keys the connector reads from an alert's property list.
const (
	propObject            = "object"
	propEnvironment       = "environment"
	propAnomalyStrength   = "anomalyStrength"
	propJobID             = "jobId"
	propJobInstanceID     = "jobInstanceId"
	propJobStartTimeUsecs = "jobStartTimeUsecs"
	propEntityID          = "entityId"
	propClusterID         = "cid"
)

// FlattenProperties converts an alert's property list into a direct mapping.
// Duplicate keys are silently overwritten by the later occurrence.
func FlattenProperties(list []Property) map[string]string {
	m := make(map[string]string, len(list))
	for _, p := range list {
		m[p.Key] = p.Value
	}
	return m
}

// Properties is the typed view of an alert's flattened property list. Fields
// are empty strings when the corresponding key is absent; numeric coercion is
// deferred to the accessors so listing alerts never fails on a bad value.
type Properties struct {
	Object            string
	Environment       string
	AnomalyStrength   string
	JobID             string
	JobInstanceID     string
	JobStartTimeUsecs string
	EntityID          string
	ClusterID         string
}

// DecodeProperties flattens the property list and picks out the known keys.
func DecodeProperties(list []Property) Properties {
	m := FlattenProperties(list)
	return Properties{
		Object:            m[propObject],
		Environment:       m[propEnvironment],
		AnomalyStrength:   m[propAnomalyStrength],
		JobID:             m[propJobID],
		JobInstanceID:     m[propJobInstanceID],
		JobStartTimeUsecs: m[propJobStartTimeUsecs],
		EntityID:          m[propEntityID],
		ClusterID:         m[propClusterID],
	}
}

// intField coerces a property value to int64, naming the key on failure.
func intField(key, value string) (int64, error) {
	if value == "" {
		return 0, fmt.Errorf("alert property %q is missing", key)
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("alert property %q is not numeric: %q", key, value)
	}
	return n, nil
}

// JobIDInt returns the backup job id as an integer.
func (p Properties) JobIDInt() (int64, error) {
	return intField(propJobID, p.JobID)
}

// JobInstanceIDInt returns the backup job run id as an integer.
func (p Properties) JobInstanceIDInt() (int64, error) {
	return intField(propJobInstanceID, p.JobInstanceID)
}

// JobStartTimeUsecsInt returns the job start time in microseconds.
func (p Properties) JobStartTimeUsecsInt() (int64, error) {
	return intField(propJobStartTimeUsecs, p.JobStartTimeUsecs)
}

// EntityIDInt returns the protection source id as an integer.
func (p Properties) EntityIDInt() (int64, error) {
	return intField(propEntityID, p.EntityID)
}
