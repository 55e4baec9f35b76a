package instantly

import (
	"fmt"
	"net/http"
)

// DayRecord is one day of campaign analytics as returned by the
// /campaigns/analytics/daily endpoint.
type DayRecord struct {
	Date    string `json:"date"` // YYYY-MM-DD
	Sent    int64  `json:"sent"`
	Opened  int64  `json:"opened"`
	Clicks  int64  `json:"clicks"`
	Replies int64  `json:"replies"`
}

// campaignListResponse is one page of the paginated campaign listing.
type campaignListResponse struct {
	Items             []campaignItem `json:"items"`
	NextStartingAfter string         `json:"next_starting_after"`
}

type campaignItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// APIError represents a non-2xx response from the Instantly API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("instantly API error (status %d): %s", e.StatusCode, e.Body)
}

// RateLimited reports whether the request was throttled upstream.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Retryable reports whether the request may succeed on retry.
// Rate limiting and server errors are retryable; other client errors
// (bad request, invalid key) are permanent.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
