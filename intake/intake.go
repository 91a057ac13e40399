package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rocicorp/datadog-util/domain"
	"github.com/rocicorp/datadog-util/domain/series"
)

// DefaultEndpoint is the Datadog v1 distribution-points intake.
const DefaultEndpoint = "https://api.datadoghq.com/api/v1/distribution_points"

// APIKeyHeader is the header Datadog expects the API key under.
const APIKeyHeader = "DD-API-KEY"

// Doer executes a single HTTP request. *http.Client satisfies it; a
// caller may inject any implementation.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is returned when the intake answers with a non-success
// status. It carries the response body so a rejected payload can be
// diagnosed from logs alone.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("intake responded %s: %s", e.Status, e.Body)
}

// payload is the request body shape: all series under a single key.
type payload struct {
	Series []series.Series `json:"series"`
}

// Post submits the series list to url as a single JSON POST through
// doer. Content-Type is set first and the caller's headers are applied
// after it, so a caller-supplied Content-Type wins.
//
// A non-2xx response is returned as a *StatusError with the body
// already read. On success the response is returned unread, so the
// caller may inspect the body and is responsible for closing it.
func Post(ctx context.Context, doer Doer, url string, headers map[string]string, s []series.Series) (*http.Response, error) {
	body, err := json.Marshal(payload{Series: s})
	if err != nil {
		return nil, fmt.Errorf("encoding series: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building intake request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting series: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		text, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(text),
		}
	}

	return resp, nil
}

// Client submits series to a fixed endpoint with fixed headers.
// It implements the domain.Submitter interface.
var _ domain.Submitter = (*Client)(nil)

type Client struct {
	// Endpoint is the intake URL. If empty, DefaultEndpoint is used.
	Endpoint string

	// Headers is applied to every request, typically the API key.
	Headers map[string]string

	// HTTPClient executes the requests. If nil, http.DefaultClient is
	// used.
	HTTPClient Doer
}

// NewClient creates a client for the default Datadog intake
// authenticated with apiKey.
func NewClient(apiKey string) *Client {
	return &Client{
		Headers: map[string]string{APIKeyHeader: apiKey},
	}
}

// Submit posts the series and discards the response body. There is no
// retry: a failed submission is reported once and dropped.
func (c *Client) Submit(ctx context.Context, s []series.Series) error {
	doer := c.HTTPClient
	if doer == nil {
		doer = http.DefaultClient
	}
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	resp, err := Post(ctx, doer, endpoint, c.Headers, s)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
