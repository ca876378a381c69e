package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AlertsFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helios_connector_alerts_fetched_total",
			Help: "Total number of ransomware alerts fetched from Helios",
		},
	)

	IncidentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helios_connector_incidents_created_total",
			Help: "Total number of incidents pushed to the host platform",
		},
		[]string{"severity"},
	)

	ActionsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helios_connector_actions_executed_total",
			Help: "Total number of remediation actions executed",
		},
		[]string{"action"},
	)

	CommandFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helios_connector_command_failures_total",
			Help: "Total number of failed command executions",
		},
		[]string{"command"},
	)
)
