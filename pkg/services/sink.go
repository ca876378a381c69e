package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soarhub-io/helios-connector/pkg/models"
)

// LogSink writes incidents to the log only. It is the default sink when no
// host ingestion endpoint is configured, useful for dry runs.
type LogSink struct{}

func (LogSink) PushIncidents(_ context.Context, incidents []models.Incident) error {
	for _, incident := range incidents {
		logrus.Infof("Incident %q (event %s, severity %v) created at %s",
			incident.Name, incident.EventID, incident.Severity, incident.Occurred)
	}
	return nil
}

// HTTPSink posts incident batches to the host platform's ingestion endpoint.
type HTTPSink struct {
	url        string
	httpClient *http.Client
}

// NewHTTPSink creates a sink posting to the given ingestion URL.
func NewHTTPSink(url string) *HTTPSink {
	return &HTTPSink{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *HTTPSink) PushIncidents(ctx context.Context, incidents []models.Incident) error {
	payload, err := json.Marshal(incidents)
	if err != nil {
		return fmt.Errorf("failed to encode incidents: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build ingest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ingest request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ingest endpoint returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	logrus.Debugf("Pushed %d incidents to %s", len(incidents), s.url)
	return nil
}

var (
	_ IncidentSink = LogSink{}
	_ IncidentSink = (*HTTPSink)(nil)
)
