// Package instantly implements a client for the Instantly v2 API, covering
// the two operations the bulk analytics jobs consume: campaign listing and
// per-campaign daily analytics.
package instantly

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ignite/instantly-rollup/internal/config"
)

const (
	// listPageSize is the maximum page size the campaign listing accepts.
	listPageSize = 100

	dateFormat = "2006-01-02"
)

// Client is an Instantly API client bound to one workspace API key.
// Retry on transient failures is the caller's responsibility (see
// internal/pkg/httpretry); the client itself performs each request once.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new Instantly API client for the given workspace key.
func NewClient(cfg config.InstantlyConfig, apiKey string) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

// doRequest makes an HTTP request to the Instantly API
func (c *Client) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// ListCampaignIDs fetches every campaign ID in the workspace, following
// the starting_after cursor until the listing is exhausted.
func (c *Client) ListCampaignIDs(ctx context.Context) ([]string, error) {
	var ids []string
	startingAfter := ""

	for {
		params := url.Values{}
		params.Set("limit", fmt.Sprintf("%d", listPageSize))
		if startingAfter != "" {
			params.Set("starting_after", startingAfter)
		}

		body, err := c.doRequest(ctx, "/campaigns", params)
		if err != nil {
			return nil, fmt.Errorf("fetching campaigns: %w", err)
		}

		var page campaignListResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("parsing campaigns: %w", err)
		}

		for _, item := range page.Items {
			if item.ID != "" {
				ids = append(ids, item.ID)
			}
		}

		if page.NextStartingAfter == "" || len(page.Items) == 0 {
			break
		}
		startingAfter = page.NextStartingAfter
	}

	return ids, nil
}

// GetDailyAnalytics fetches daily analytics for one campaign over an
// inclusive date range. The upstream endpoint accepts at most a 7-day
// span per call; callers window longer ranges before fetching.
func (c *Client) GetDailyAnalytics(ctx context.Context, campaignID string, start, end time.Time) ([]DayRecord, error) {
	params := url.Values{}
	params.Set("campaign_id", campaignID)
	params.Set("start_date", start.Format(dateFormat))
	params.Set("end_date", end.Format(dateFormat))

	body, err := c.doRequest(ctx, "/campaigns/analytics/daily", params)
	if err != nil {
		return nil, fmt.Errorf("fetching daily analytics: %w", err)
	}

	var records []DayRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("parsing daily analytics: %w", err)
	}

	return records, nil
}
