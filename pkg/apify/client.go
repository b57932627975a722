// Package apify is a minimal client for the Apify v2 actor-run API.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Default base URL for the Apify v2 API.
const defaultBaseURL = "https://api.apify.com/v2"

// Actor run statuses reported by Apify.
const (
	StatusReady     = "READY"
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusAborting  = "ABORTING"
	StatusAborted   = "ABORTED"
	StatusTimingOut = "TIMING-OUT"
	StatusTimedOut  = "TIMED-OUT"
)

// Client defines the Apify API operations the engine uses.
type Client interface {
	StartActorRun(ctx context.Context, actorID string, input any) (*Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListDatasetItems(ctx context.Context, datasetID string) ([]map[string]any, error)
}

// Run is an actor run as reported by Apify.
type Run struct {
	ID               string `json:"id"`
	ActorID          string `json:"actId"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

// runEnvelope is the {"data": ...} wrapper Apify puts around single objects.
type runEnvelope struct {
	Data Run `json:"data"`
}

// APIError is returned when Apify responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apify: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing requests per second. Apify enforces per-token
// limits; exceeding them turns every call into a 429.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new Apify client.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(10), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) StartActorRun(ctx context.Context, actorID string, input any) (*Run, error) {
	var resp runEnvelope
	if err := c.post(ctx, fmt.Sprintf("/acts/%s/runs", actorID), input, &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("apify: start actor run %s", actorID))
	}
	return &resp.Data, nil
}

func (c *httpClient) GetRun(ctx context.Context, runID string) (*Run, error) {
	var resp runEnvelope
	if err := c.get(ctx, fmt.Sprintf("/actor-runs/%s", runID), &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("apify: get run %s", runID))
	}
	return &resp.Data, nil
}

func (c *httpClient) ListDatasetItems(ctx context.Context, datasetID string) ([]map[string]any, error) {
	var items []map[string]any
	if err := c.get(ctx, fmt.Sprintf("/datasets/%s/items?clean=true&format=json", datasetID), &items); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("apify: list dataset items %s", datasetID))
	}
	return items, nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(req, out)
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(req, out)
}

func (c *httpClient) do(req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return eris.Wrap(err, "rate limit wait")
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}

	return nil
}
