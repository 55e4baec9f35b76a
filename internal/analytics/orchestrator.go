// Package analytics implements the bulk campaign-analytics job orchestrator:
// date-range windowing, bounded-concurrency fetch scheduling, retry-wrapped
// upstream calls, multi-level rollups, and the asynchronous job store that
// backs the start/poll protocol.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/instantly-rollup/internal/config"
	"github.com/ignite/instantly-rollup/internal/instantly"
	"github.com/ignite/instantly-rollup/internal/pkg/httpretry"
	"github.com/ignite/instantly-rollup/internal/pkg/logger"
)

// ErrNoWorkspaces is returned when a job is submitted with no API keys.
var ErrNoWorkspaces = errors.New("api_keys array cannot be empty")

// CampaignAPI is the upstream surface one workspace credential unlocks.
// *instantly.Client satisfies it; tests substitute fakes.
type CampaignAPI interface {
	ListCampaignIDs(ctx context.Context) ([]string, error)
	GetDailyAnalytics(ctx context.Context, campaignID string, start, end time.Time) ([]instantly.DayRecord, error)
}

// ClientFactory builds a CampaignAPI for one workspace API key.
type ClientFactory func(apiKey string) CampaignAPI

// Orchestrator drives bulk analytics jobs: one background goroutine per
// submitted job, workspaces processed in submission order, fetches fanned
// out through the bounded scheduler.
type Orchestrator struct {
	store     JobStore
	newClient ClientFactory
	jobs      config.JobsConfig

	// Retry is the backoff policy applied to every upstream call.
	// Defaults to httpretry.DefaultPolicy; tests shrink the delays.
	Retry httpretry.Policy

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates an orchestrator using the given job store and
// upstream client factory.
func NewOrchestrator(store JobStore, factory ClientFactory, jobs config.JobsConfig) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())

	retry := httpretry.DefaultPolicy()
	if jobs.MaxRetries > 0 {
		retry.MaxAttempts = jobs.MaxRetries
	}

	return &Orchestrator{
		store:     store,
		newClient: factory,
		jobs:      jobs,
		Retry:     retry,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Submit validates the request, registers a job, and launches the
// background body. It never blocks on upstream I/O: validation failures
// surface synchronously and no job is created for them.
func (o *Orchestrator) Submit(ctx context.Context, apiKeys []string, start, end time.Time) (uuid.UUID, error) {
	if len(apiKeys) == 0 {
		return uuid.Nil, ErrNoWorkspaces
	}
	windows, err := SplitRange(start, end, o.jobs.WindowDaysOrDefault())
	if err != nil {
		return uuid.Nil, err
	}

	id, err := o.store.Create(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("creating job: %w", err)
	}

	logger.Info("bulk analytics job accepted",
		"run_id", id,
		"workspaces", len(apiKeys),
		"windows", len(windows),
		"start_date", start.Format("2006-01-02"),
		"end_date", end.Format("2006-01-02"))

	o.wg.Add(1)
	go o.run(id, apiKeys, windows)

	return id, nil
}

// Close stops in-flight jobs from issuing new fetches and waits for their
// goroutines to wind down. Fetches already issued run to completion.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

// run is the background job body. Per-workspace and per-campaign failures
// are captured in-band; only an orchestration-level fault (panic, store
// write failure) moves the job to failed.
func (o *Orchestrator) run(id uuid.UUID, apiKeys []string, windows []Window) {
	defer o.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("bulk job panicked", "run_id", id, "panic", fmt.Sprintf("%v", r))
			o.fail(id, fmt.Sprintf("orchestration error: %v", r))
		}
	}()

	ctx := o.ctx

	if err := o.store.Update(ctx, id, func(j *JobRecord) {
		j.Status = StatusProcessing
	}); err != nil {
		logger.Error("failed to start job", "run_id", id, "error", err)
		o.fail(id, "failed to start job: "+err.Error())
		return
	}

	total := len(apiKeys)
	for i, apiKey := range apiKeys {
		ws := o.processWorkspace(ctx, apiKey, windows)

		processed := i + 1
		if err := o.store.Update(ctx, id, func(j *JobRecord) {
			mergeWorkspace(j, apiKey, ws)
			j.Completion = processed * 100 / total
		}); err != nil {
			logger.Error("failed to store workspace result", "run_id", id, "error", err)
			o.fail(id, "failed to store workspace result: "+err.Error())
			return
		}
	}

	if err := o.store.Update(ctx, id, func(j *JobRecord) {
		j.Status = StatusCompleted
		j.Completion = 100
	}); err != nil {
		logger.Error("failed to complete job", "run_id", id, "error", err)
		o.fail(id, "failed to complete job: "+err.Error())
		return
	}

	logger.Info("bulk analytics job completed", "run_id", id, "workspaces", total)
}

// processWorkspace lists the workspace's campaigns and fans the
// campaign x window fetch cross-product through the bounded scheduler.
// A listing failure is fatal for the workspace only.
func (o *Orchestrator) processWorkspace(ctx context.Context, apiKey string, windows []Window) *WorkspaceResult {
	client := o.newClient(apiKey)
	ws := &WorkspaceResult{Campaigns: make(map[string]*CampaignResult)}

	campaignIDs, err := httpretry.Do(ctx, o.Retry, func(ctx context.Context) ([]string, error) {
		return client.ListCampaignIDs(ctx)
	})
	if err != nil {
		ws.Error = fmt.Sprintf("Failed to fetch campaign IDs: %v", err)
		logger.Warn("campaign listing failed", "api_key", apiKey, "error", err)
		return ws
	}

	logger.Info("campaign list fetched", "api_key", apiKey, "campaigns", len(campaignIDs))

	tasks := make([]func(context.Context) ([]instantly.DayRecord, error), 0, len(campaignIDs)*len(windows))
	for _, campaignID := range campaignIDs {
		for _, w := range windows {
			campaignID, w := campaignID, w
			tasks = append(tasks, func(ctx context.Context) ([]instantly.DayRecord, error) {
				return httpretry.Do(ctx, o.Retry, func(ctx context.Context) ([]instantly.DayRecord, error) {
					return client.GetDailyAnalytics(ctx, campaignID, w.Start, w.End)
				})
			})
		}
	}

	maxConcurrency := o.jobs.MaxConcurrencyOrDefault()
	logger.Info("scheduling analytics fetches",
		"api_key", apiKey,
		"tasks", len(tasks),
		"windows", len(windows),
		"max_concurrency", maxConcurrency)

	results := RunAll(ctx, tasks, maxConcurrency)

	succeeded := 0
	for _, r := range results {
		if r.Err == nil {
			succeeded++
		}
	}
	logger.Info("analytics fetches finished",
		"api_key", apiKey,
		"succeeded", succeeded,
		"failed", len(results)-succeeded)

	ws.Campaigns = AggregateCampaigns(campaignIDs, windows, results)
	ws.TotalSent = workspaceTotal(ws.Campaigns)
	return ws
}

// fail marks the job failed unless it already reached a terminal state.
// Uses a fresh context so the write still lands after Close.
func (o *Orchestrator) fail(id uuid.UUID, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := o.store.Update(ctx, id, func(j *JobRecord) {
		if j.Status.Terminal() {
			return
		}
		j.Status = StatusFailed
		j.Error = msg
	}); err != nil {
		logger.Error("failed to mark job failed", "run_id", id, "error", err)
	}
}
