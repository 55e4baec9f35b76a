package analytics

import (
	"fmt"

	"github.com/ignite/instantly-rollup/internal/instantly"
)

// AggregateCampaigns folds the ordered (campaign x window) fetch results
// into per-campaign rollups. results must be parallel to the cross-product
// of campaignIDs and windows in input order: task i covers campaign
// campaignIDs[i/len(windows)] over window windows[i%len(windows)].
//
// Day counts merge additively, so aggregation order never changes totals.
// The first failing window sets the campaign's error; successes from other
// windows of the same campaign are still merged in (partial data is better
// than none when a single window hits retry exhaustion).
func AggregateCampaigns(campaignIDs []string, windows []Window, results []Result[[]instantly.DayRecord]) map[string]*CampaignResult {
	campaigns := make(map[string]*CampaignResult, len(campaignIDs))
	for _, id := range campaignIDs {
		campaigns[id] = &CampaignResult{DailySends: make(map[string]int64)}
	}

	if len(windows) == 0 {
		return campaigns
	}

	for i, result := range results {
		campaignIdx := i / len(windows)
		if campaignIdx >= len(campaignIDs) {
			break
		}
		campaign := campaigns[campaignIDs[campaignIdx]]

		if result.Err != nil {
			if campaign.Error == "" {
				campaign.Error = fmt.Sprintf("Failed to fetch analytics: %v", result.Err)
			}
			continue
		}

		for _, day := range result.Value {
			campaign.DailySends[day.Date] += day.Sent
			campaign.TotalSent += day.Sent
		}
	}

	return campaigns
}

// workspaceTotal sums the campaign totals of one workspace.
func workspaceTotal(campaigns map[string]*CampaignResult) int64 {
	var total int64
	for _, c := range campaigns {
		total += c.TotalSent
	}
	return total
}

// mergeWorkspace stores a finished workspace result on the job and rolls
// its daily sends into the job-level combined totals.
func mergeWorkspace(job *JobRecord, apiKey string, ws *WorkspaceResult) {
	job.Workspaces[apiKey] = ws
	for _, c := range ws.Campaigns {
		for date, sends := range c.DailySends {
			job.DailyTotals[date] += sends
			job.TotalSends += sends
		}
	}
}
