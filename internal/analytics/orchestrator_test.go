package analytics

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/instantly-rollup/internal/config"
	"github.com/ignite/instantly-rollup/internal/instantly"
	"github.com/ignite/instantly-rollup/internal/pkg/httpretry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI implements CampaignAPI with pluggable behavior per test.
type fakeAPI struct {
	listFunc  func(ctx context.Context) ([]string, error)
	fetchFunc func(ctx context.Context, campaignID string, start, end time.Time) ([]instantly.DayRecord, error)
}

func (f *fakeAPI) ListCampaignIDs(ctx context.Context) ([]string, error) {
	return f.listFunc(ctx)
}

func (f *fakeAPI) GetDailyAnalytics(ctx context.Context, campaignID string, start, end time.Time) ([]instantly.DayRecord, error) {
	return f.fetchFunc(ctx, campaignID, start, end)
}

func constantDays(start, end time.Time, sent int64) []instantly.DayRecord {
	var records []instantly.DayRecord
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		records = append(records, instantly.DayRecord{Date: d.Format("2006-01-02"), Sent: sent})
	}
	return records
}

func newTestOrchestrator(store JobStore, factory ClientFactory) *Orchestrator {
	o := NewOrchestrator(store, factory, config.JobsConfig{
		MaxConcurrency: 10,
		WindowDays:     7,
		MaxRetries:     5,
	})
	o.Retry = httpretry.Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
	return o
}

func waitForTerminal(t *testing.T, store JobStore, id uuid.UUID) *JobRecord {
	t.Helper()
	var job *JobRecord
	require.Eventually(t, func() bool {
		var err error
		job, err = store.Get(context.Background(), id)
		return err == nil && job.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond, "job never reached a terminal state")
	return job
}

func TestSubmitRejectsEmptyWorkspaces(t *testing.T) {
	store := NewMemoryStore()
	o := newTestOrchestrator(store, nil)
	defer o.Close()

	id, err := o.Submit(context.Background(), nil, day("2025-01-01"), day("2025-01-02"))
	assert.ErrorIs(t, err, ErrNoWorkspaces)
	assert.Equal(t, uuid.Nil, id)
}

func TestSubmitRejectsInvertedRange(t *testing.T) {
	store := NewMemoryStore()
	o := newTestOrchestrator(store, nil)
	defer o.Close()

	id, err := o.Submit(context.Background(), []string{"key-1"}, day("2025-02-10"), day("2025-02-01"))
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.Equal(t, uuid.Nil, id, "no run id may be issued for an invalid request")
}

// The reference scenario: one workspace, two campaigns over
// 2025-01-01..2025-01-10 (two windows: days 1-7 and 8-10). Campaign A
// sends 5/day in window 1 and 3/day in window 2; campaign B's window-2
// fetch fails permanently.
func TestJobEndToEnd(t *testing.T) {
	store := NewMemoryStore()

	factory := func(apiKey string) CampaignAPI {
		return &fakeAPI{
			listFunc: func(ctx context.Context) ([]string, error) {
				return []string{"camp-a", "camp-b"}, nil
			},
			fetchFunc: func(ctx context.Context, campaignID string, start, end time.Time) ([]instantly.DayRecord, error) {
				secondWindow := start.Equal(day("2025-01-08"))
				switch {
				case campaignID == "camp-a" && !secondWindow:
					return constantDays(start, end, 5), nil
				case campaignID == "camp-a":
					return constantDays(start, end, 3), nil
				case !secondWindow:
					return constantDays(start, end, 1), nil
				default:
					return nil, &instantly.APIError{StatusCode: http.StatusBadRequest, Body: "no such range"}
				}
			},
		}
	}

	o := newTestOrchestrator(store, factory)
	defer o.Close()

	id, err := o.Submit(context.Background(), []string{"key-workspace-1"}, day("2025-01-01"), day("2025-01-10"))
	require.NoError(t, err)

	job := waitForTerminal(t, store, id)

	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, 100, job.Completion)
	assert.Empty(t, job.Error)

	require.Contains(t, job.Workspaces, "key-workspace-1")
	ws := job.Workspaces["key-workspace-1"]
	assert.Empty(t, ws.Error)
	require.Len(t, ws.Campaigns, 2)

	a := ws.Campaigns["camp-a"]
	assert.Empty(t, a.Error)
	assert.Equal(t, int64(44), a.TotalSent) // 5*7 + 3*3
	assert.Len(t, a.DailySends, 10)
	assert.Equal(t, int64(5), a.DailySends["2025-01-07"])
	assert.Equal(t, int64(3), a.DailySends["2025-01-08"])

	b := ws.Campaigns["camp-b"]
	assert.Contains(t, b.Error, "Failed to fetch analytics")
	assert.Len(t, b.DailySends, 7, "only window 1 days survive the window-2 failure")
	assert.Equal(t, int64(7), b.TotalSent)

	assert.Equal(t, int64(51), ws.TotalSent)
	assert.Equal(t, int64(51), job.TotalSends)
	assert.Equal(t, int64(6), job.DailyTotals["2025-01-01"]) // 5 + 1
	assert.Equal(t, int64(3), job.DailyTotals["2025-01-10"]) // camp-a only
	assert.Len(t, job.DailyTotals, 10)
}

func TestWorkspaceListingFailureIsolation(t *testing.T) {
	store := NewMemoryStore()

	factory := func(apiKey string) CampaignAPI {
		if apiKey == "key-bad" {
			return &fakeAPI{
				listFunc: func(ctx context.Context) ([]string, error) {
					return nil, &instantly.APIError{StatusCode: http.StatusUnauthorized, Body: "invalid key"}
				},
			}
		}
		return &fakeAPI{
			listFunc: func(ctx context.Context) ([]string, error) {
				return []string{"camp-1"}, nil
			},
			fetchFunc: func(ctx context.Context, campaignID string, start, end time.Time) ([]instantly.DayRecord, error) {
				return constantDays(start, end, 2), nil
			},
		}
	}

	o := newTestOrchestrator(store, factory)
	defer o.Close()

	id, err := o.Submit(context.Background(), []string{"key-bad", "key-good"}, day("2025-01-01"), day("2025-01-03"))
	require.NoError(t, err)

	job := waitForTerminal(t, store, id)

	assert.Equal(t, StatusCompleted, job.Status, "one bad credential never fails the job")
	assert.Equal(t, 100, job.Completion)

	bad := job.Workspaces["key-bad"]
	assert.Contains(t, bad.Error, "Failed to fetch campaign IDs")
	assert.Empty(t, bad.Campaigns)
	assert.Zero(t, bad.TotalSent)

	good := job.Workspaces["key-good"]
	assert.Empty(t, good.Error)
	assert.Equal(t, int64(6), good.TotalSent)
	assert.Equal(t, int64(6), job.TotalSends)
}

func TestTransientFetchFailuresAreRetried(t *testing.T) {
	store := NewMemoryStore()

	var fetchCalls int64
	factory := func(apiKey string) CampaignAPI {
		return &fakeAPI{
			listFunc: func(ctx context.Context) ([]string, error) {
				return []string{"camp-1"}, nil
			},
			fetchFunc: func(ctx context.Context, campaignID string, start, end time.Time) ([]instantly.DayRecord, error) {
				if atomic.AddInt64(&fetchCalls, 1) <= 2 {
					return nil, &instantly.APIError{StatusCode: http.StatusTooManyRequests, Body: "slow down"}
				}
				return constantDays(start, end, 4), nil
			},
		}
	}

	o := newTestOrchestrator(store, factory)
	defer o.Close()

	id, err := o.Submit(context.Background(), []string{"key-1"}, day("2025-01-01"), day("2025-01-02"))
	require.NoError(t, err)

	job := waitForTerminal(t, store, id)

	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, int64(3), atomic.LoadInt64(&fetchCalls), "two rate limits then success")

	camp := job.Workspaces["key-1"].Campaigns["camp-1"]
	assert.Empty(t, camp.Error)
	assert.Equal(t, int64(8), camp.TotalSent)
}

func TestCompletionAdvancesPerWorkspace(t *testing.T) {
	store := NewMemoryStore()

	release := make(chan struct{})
	factory := func(apiKey string) CampaignAPI {
		return &fakeAPI{
			listFunc: func(ctx context.Context) ([]string, error) {
				if apiKey == "key-2" {
					<-release // hold the job at 50% until the test looked
				}
				return nil, &instantly.APIError{StatusCode: http.StatusUnauthorized, Body: "nope"}
			},
		}
	}

	o := newTestOrchestrator(store, factory)
	defer o.Close()

	id, err := o.Submit(context.Background(), []string{"key-1", "key-2"}, day("2025-01-01"), day("2025-01-01"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		job, err := store.Get(context.Background(), id)
		return err == nil && job.Completion == 50
	}, 5*time.Second, 5*time.Millisecond)

	close(release)
	job := waitForTerminal(t, store, id)
	assert.Equal(t, 100, job.Completion)
	assert.Equal(t, StatusCompleted, job.Status)
}

func TestSingleDayRangeProducesOneWindowJob(t *testing.T) {
	store := NewMemoryStore()

	var windows int64
	factory := func(apiKey string) CampaignAPI {
		return &fakeAPI{
			listFunc: func(ctx context.Context) ([]string, error) {
				return []string{"camp-1"}, nil
			},
			fetchFunc: func(ctx context.Context, campaignID string, start, end time.Time) ([]instantly.DayRecord, error) {
				atomic.AddInt64(&windows, 1)
				assert.True(t, start.Equal(end))
				return constantDays(start, end, 9), nil
			},
		}
	}

	o := newTestOrchestrator(store, factory)
	defer o.Close()

	id, err := o.Submit(context.Background(), []string{"key-1"}, day("2025-06-01"), day("2025-06-01"))
	require.NoError(t, err)

	job := waitForTerminal(t, store, id)
	assert.Equal(t, int64(1), atomic.LoadInt64(&windows))
	assert.Equal(t, int64(9), job.TotalSends)
}
