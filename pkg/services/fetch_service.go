package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soarhub-io/helios-connector/pkg/helios"
	"github.com/soarhub-io/helios-connector/pkg/metrics"
	"github.com/soarhub-io/helios-connector/pkg/models"
	"github.com/soarhub-io/helios-connector/pkg/state"
)

// DefaultLookback is the fetch window used on the first run, before any
// watermark has been stored.
const DefaultLookback = 7 * 24 * time.Hour

// IncidentSink receives incident records created from fetched alerts. The
// host platform's ingestion endpoint sits behind this interface.
type IncidentSink interface {
	PushIncidents(ctx context.Context, incidents []models.Incident) error
}

// FetchService runs one incident fetch cycle: compute the window from the
// stored watermark, fetch ransomware alerts, map them to incidents, push
// them to the sink and advance the watermark.
type FetchService struct {
	client   helios.HeliosClient
	store    state.Store
	sink     IncidentSink
	maxFetch int
	lookback time.Duration

	// now is swapped out in tests
	now func() time.Time
}

// NewFetchService creates a new fetch service
func NewFetchService(client helios.HeliosClient, store state.Store, sink IncidentSink, maxFetch int, lookback time.Duration) *FetchService {
	if maxFetch <= 0 {
		maxFetch = 20
	}
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &FetchService{
		client:   client,
		store:    store,
		sink:     sink,
		maxFetch: maxFetch,
		lookback: lookback,
		now:      time.Now,
	}
}

// Run executes one fetch cycle and returns the number of incidents pushed.
//
// The watermark advances to the window end unconditionally once the fetch
// succeeds, before incident delivery is confirmed. A failed downstream push
// is therefore not retried against the same window; incident creation is
// at-most-once on top of an at-least-once fetch. Overlapping windows from
// clock skew can duplicate incidents downstream and are not guarded against.
func (s *FetchService) Run(ctx context.Context) (int, error) {
	startMillis, endMillis, err := s.nextWindow(ctx)
	if err != nil {
		return 0, err
	}

	alerts, err := s.client.GetRansomwareAlerts(ctx, helios.AlertQuery{
		StartTimeMillis: startMillis,
		EndTimeMillis:   endMillis,
		MaxAlerts:       s.maxFetch,
	})
	if err != nil {
		// Watermark untouched; the same window is retried next cycle.
		return 0, fmt.Errorf("fetch cycle failed: %w", err)
	}
	logrus.Debugf("Got %d alerts between %d and %d", len(alerts), startMillis, endMillis)
	metrics.AlertsFetched.Add(float64(len(alerts)))

	if err := s.store.SetLastRun(ctx, endMillis); err != nil {
		return 0, fmt.Errorf("failed to store watermark: %w", err)
	}

	incidents := make([]models.Incident, 0, len(alerts))
	for _, alert := range alerts {
		incident := models.NewIncident(alert)
		incidents = append(incidents, incident)
		metrics.IncidentsCreated.WithLabelValues(string(alert.Severity)).Inc()
	}

	if err := s.sink.PushIncidents(ctx, incidents); err != nil {
		return 0, fmt.Errorf("failed to push %d incidents: %w", len(incidents), err)
	}

	return len(incidents), nil
}

// nextWindow computes the fetch window for this cycle: start at the stored
// watermark when present, otherwise the configured lookback before now; end
// at now.
func (s *FetchService) nextWindow(ctx context.Context) (int64, int64, error) {
	now := s.now()
	endMillis := now.UnixMilli()

	startMillis, ok, err := s.store.GetLastRun(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read watermark: %w", err)
	}
	if !ok {
		startMillis = now.Add(-s.lookback).UnixMilli()
	}

	return startMillis, endMillis, nil
}
