package analytics

import (
	"github.com/google/uuid"
)

// Status is the lifecycle state of a bulk analytics job.
// Transitions only move forward: pending -> processing -> completed|failed.
// Terminal states are never left.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CampaignResult holds the rolled-up daily sends for one campaign.
// A set Error means fetching stopped for that campaign at some window;
// DailySends keeps the partial data from windows that already succeeded.
type CampaignResult struct {
	DailySends map[string]int64 `json:"daily_sends"` // date (YYYY-MM-DD) -> sends
	TotalSent  int64            `json:"total_sent"`
	Error      string           `json:"error,omitempty"`
}

// WorkspaceResult holds results for one workspace (one API key).
// Error is set only when campaign listing itself failed; per-campaign
// failures live inside the campaign results.
type WorkspaceResult struct {
	Campaigns map[string]*CampaignResult `json:"campaign_analytics"`
	TotalSent int64                      `json:"total_sent"`
	Error     string                     `json:"error,omitempty"`
}

// JobRecord is the full state of one bulk analytics job. It is mutated
// only by the orchestrator goroutine that owns the job; pollers read
// copy-on-write snapshots from the store.
type JobRecord struct {
	ID          uuid.UUID                   `json:"run_id"`
	Status      Status                      `json:"status"`
	Completion  int                         `json:"completion"` // 0..100, floor, monotonically non-decreasing
	Workspaces  map[string]*WorkspaceResult `json:"data"`       // keyed by workspace API key
	DailyTotals map[string]int64            `json:"daily_totals"`
	TotalSends  int64                       `json:"total_sends"`
	Error       string                      `json:"error,omitempty"`
}

// NewJobRecord returns an empty job in the pending state.
func NewJobRecord(id uuid.UUID) *JobRecord {
	return &JobRecord{
		ID:          id,
		Status:      StatusPending,
		Workspaces:  make(map[string]*WorkspaceResult),
		DailyTotals: make(map[string]int64),
	}
}

// Clone returns a deep copy of the record, so a snapshot handed to a
// poller never aliases state the orchestrator is still mutating.
func (j *JobRecord) Clone() *JobRecord {
	out := &JobRecord{
		ID:          j.ID,
		Status:      j.Status,
		Completion:  j.Completion,
		Workspaces:  make(map[string]*WorkspaceResult, len(j.Workspaces)),
		DailyTotals: make(map[string]int64, len(j.DailyTotals)),
		TotalSends:  j.TotalSends,
		Error:       j.Error,
	}
	for key, ws := range j.Workspaces {
		out.Workspaces[key] = ws.clone()
	}
	for date, sends := range j.DailyTotals {
		out.DailyTotals[date] = sends
	}
	return out
}

func (w *WorkspaceResult) clone() *WorkspaceResult {
	out := &WorkspaceResult{
		Campaigns: make(map[string]*CampaignResult, len(w.Campaigns)),
		TotalSent: w.TotalSent,
		Error:     w.Error,
	}
	for id, c := range w.Campaigns {
		cc := &CampaignResult{
			DailySends: make(map[string]int64, len(c.DailySends)),
			TotalSent:  c.TotalSent,
			Error:      c.Error,
		}
		for date, sends := range c.DailySends {
			cc.DailySends[date] = sends
		}
		out.Campaigns[id] = cc
	}
	return out
}
