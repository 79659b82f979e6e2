// Package rest provides a RecordSource adapter for the compliance system's
// paginated JSON API.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/complyline/kbengine/internal/core/domain"
	"github.com/complyline/kbengine/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.RecordSource = (*Client)(nil)

// Default configuration values.
const (
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerSecond throttles calls to the source system so a
	// long ingestion run does not hammer it.
	DefaultRequestsPerSecond = 2.0
)

// Config holds configuration for the source API client.
type Config struct {
	// BaseURL is the root of the compliance system's API (required).
	BaseURL string

	// APIToken authenticates requests, sent as a bearer token.
	APIToken string

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration

	// RequestsPerSecond is the proactive throttle rate (default: 2).
	RequestsPerSecond float64
}

// Client fetches source records over the compliance system's JSON API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
}

// recordPayload is the API's wire representation of a record.
type recordPayload struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Status     string    `json:"status"`
	Category   string    `json:"category"`
	Team       string    `json:"team"`
	ModifiedAt time.Time `json:"modified_at"`
}

// NewClient creates a new source API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("source: base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		token:   cfg.APIToken,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}, nil
}

// Count returns the number of records matching the query.
func (c *Client) Count(ctx context.Context, q driven.RecordQuery) (int, error) {
	var payload struct {
		Count int `json:"count"`
	}
	if err := c.get(ctx, "/api/v1/records/count", queryValues(q, 0, 0), &payload); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return payload.Count, nil
}

// FetchPage returns one page of matching records. Pages are numbered from 1.
func (c *Client) FetchPage(ctx context.Context, q driven.RecordQuery, page, pageSize int) ([]domain.SourceRecord, error) {
	if page < 1 || pageSize < 1 {
		return nil, fmt.Errorf("fetch page: %w: page=%d size=%d", domain.ErrInvalidInput, page, pageSize)
	}

	var payload struct {
		Records []recordPayload `json:"records"`
	}
	if err := c.get(ctx, "/api/v1/records", queryValues(q, page, pageSize), &payload); err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", page, err)
	}

	records := make([]domain.SourceRecord, 0, len(payload.Records))
	for _, r := range payload.Records {
		records = append(records, domain.SourceRecord{
			ExternalID: r.ID,
			OrgID:      q.OrgID,
			Kind:       q.Kind,
			Title:      r.Title,
			Body:       r.Body,
			Status:     r.Status,
			Category:   r.Category,
			Team:       r.Team,
			ModifiedAt: r.ModifiedAt,
		})
	}
	return records, nil
}

// get issues a throttled GET request and decodes the JSON response.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("source API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// queryValues encodes a record query as URL parameters. Zero page/size are
// omitted (count requests).
func queryValues(q driven.RecordQuery, page, pageSize int) url.Values {
	params := url.Values{}
	params.Set("org", q.OrgID)
	params.Set("kind", string(q.Kind))
	if q.ModifiedAfter != nil {
		params.Set("modified_after", q.ModifiedAfter.UTC().Format(time.RFC3339Nano))
	}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
		params.Set("limit", strconv.Itoa(pageSize))
	}
	return params
}
