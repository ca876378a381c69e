package helios

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/soarhub-io/helios-connector/pkg/config"
)

// Retry budget for all Helios calls. Transient failures (network errors and
// 5xx responses) are retried this many times with linear backoff before the
// call fails.
const (
	numRetries  = 3
	backoffStep = time.Second
)

const (
	alertsPath  = "/mcm/alerts"
	restorePath = "/irisservices/api/v1/public/restore/recover"
)

// APIError is a non-2xx response from Helios after the retry budget is spent.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("helios API error: status %d: %s", e.Status, e.Body)
}

// StatusCode returns the HTTP status carried by the error.
func (e *APIError) StatusCode() int {
	return e.Status
}

// AlertQuery holds the optional filters for listing ransomware alerts. Zero
// values mean "not set" and are omitted from the request.
type AlertQuery struct {
	StartTimeMillis int64
	EndTimeMillis   int64
	MaxAlerts       int
	AlertIDs        []string
	AlertStates     []string
	AlertSeverities []string
	RegionIDs       []string
	ClusterIDs      []string
}

// Client is an authenticated HTTP client for the Cohesity Helios API
type Client struct {
	httpClient *retryablehttp.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a new Helios client from configuration
func NewClient(cfg *config.HeliosConfig) (*Client, error) {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("helios base URL is required")
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", cfg.ProxyURL, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = numRetries
	rc.RetryWaitMin = backoffStep
	rc.RetryWaitMax = numRetries * backoffStep
	rc.Backoff = linearBackoff
	rc.HTTPClient = &http.Client{Transport: transport, Timeout: 30 * time.Second}
	rc.Logger = logrus.StandardLogger()

	return &Client{
		httpClient: rc,
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
	}, nil
}

// linearBackoff waits attemptNum * RetryWaitMin between attempts, capped at max.
func linearBackoff(min, max time.Duration, attemptNum int, _ *http.Response) time.Duration {
	wait := time.Duration(attemptNum+1) * min
	if wait > max {
		wait = max
	}
	return wait
}

// GetRansomwareAlerts lists Helios security alerts for the given query and
// filters them down to ransomware alerts. The time window arrives in epoch
// milliseconds and is translated to the microseconds the API expects.
func (c *Client) GetRansomwareAlerts(ctx context.Context, query AlertQuery) ([]Alert, error) {
	maxAlerts := query.MaxAlerts
	if maxAlerts <= 0 {
		maxAlerts = 20
	}

	params := url.Values{}
	params.Set("maxAlerts", strconv.Itoa(maxAlerts))
	params.Set("alertCategoryList", "kSecurity")
	params.Set("alertStateList", "kOpen")
	params.Set("_includeTenantInfo", "true")

	if query.StartTimeMillis > 0 {
		params.Set("startDateUsecs", strconv.FormatInt(query.StartTimeMillis*1000, 10))
	}
	if query.EndTimeMillis > 0 {
		params.Set("endDateUsecs", strconv.FormatInt(query.EndTimeMillis*1000, 10))
	}
	if len(query.AlertIDs) > 0 {
		params.Set("alertIdList", strings.Join(query.AlertIDs, ","))
	}
	if len(query.AlertStates) > 0 {
		params.Set("alertStateList", strings.Join(query.AlertStates, ","))
	}
	if len(query.AlertSeverities) > 0 {
		params.Set("alertSeverityList", strings.Join(query.AlertSeverities, ","))
	}
	if len(query.RegionIDs) > 0 {
		params.Set("region_ids", strings.Join(query.RegionIDs, ","))
	}
	if len(query.ClusterIDs) > 0 {
		params.Set("clusterIdentifiers", strings.Join(query.ClusterIDs, ","))
	}

	body, err := c.do(ctx, http.MethodGet, alertsPath+"?"+params.Encode(), nil, nil)
	if err != nil {
		return nil, err
	}

	var alerts []Alert
	if err := json.Unmarshal(body, &alerts); err != nil {
		return nil, fmt.Errorf("failed to decode alerts response: %w", err)
	}

	// Filter ransomware alerts.
	ransomware := make([]Alert, 0, len(alerts))
	for _, alert := range alerts {
		if alert.AlertCode == RansomwareAlertCode {
			ransomware = append(ransomware, alert)
		}
	}

	logrus.Debugf("Fetched %d alerts, %d ransomware", len(alerts), len(ransomware))
	return ransomware, nil
}

// SuppressAlert marks the alert suppressed on Helios.
func (c *Client) SuppressAlert(ctx context.Context, alertID string) error {
	return c.patchAlertStatus(ctx, alertID, StateSuppressed)
}

// ResolveAlert marks the alert resolved on Helios.
func (c *Client) ResolveAlert(ctx context.Context, alertID string) error {
	return c.patchAlertStatus(ctx, alertID, StateResolved)
}

func (c *Client) patchAlertStatus(ctx context.Context, alertID string, status AlertState) error {
	payload, err := json.Marshal(map[string]AlertState{"status": status})
	if err != nil {
		return fmt.Errorf("failed to encode alert status: %w", err)
	}

	_, err = c.do(ctx, http.MethodPatch, alertsPath+"/"+url.PathEscape(alertID), payload, nil)
	if err != nil {
		return fmt.Errorf("failed to set alert %s to %s: %w", alertID, status, err)
	}

	logrus.Infof("Alert %s set to %s", alertID, status)
	return nil
}

// RestoreVMObject posts a recover-VMs job to Helios. The target cluster is
// identified by a request header, not a body field; the API requires this.
func (c *Client) RestoreVMObject(ctx context.Context, clusterID string, request *RestoreRequest) error {
	payload, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to encode restore request: %w", err)
	}

	headers := map[string]string{"clusterid": clusterID}
	if _, err := c.do(ctx, http.MethodPost, restorePath, payload, headers); err != nil {
		return fmt.Errorf("failed to submit restore job %q: %w", request.Name, err)
	}

	logrus.Infof("Submitted restore job %q to cluster %s", request.Name, clusterID)
	return nil
}

// do issues one request with the standard auth headers and returns the
// response body, mapping any non-2xx status to an APIError.
func (c *Client) do(ctx context.Context, method, path string, body []byte, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s request: %w", method, path, err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("helios request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read helios response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	return respBody, nil
}
