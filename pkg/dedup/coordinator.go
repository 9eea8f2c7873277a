package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/redis"
	"github.com/Ramsey-B/clover/internal/tracing"
	"github.com/Ramsey-B/clover/pkg/merging"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
)

// ErrRunInFlight is returned when a run is rejected because another
// run holds the lock
var ErrRunInFlight = errors.New("deduplication run already in flight")

const (
	runLockKey       = "dedup:run"
	autoMergeLockKey = "dedup:automerge"
)

// RunGuard serializes engine entry points across instances
type RunGuard interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error
}

// RunLog persists the audit trail of engine runs
type RunLog interface {
	Start(ctx context.Context, runType models.RunType, windowDays *int) (*models.DedupRun, error)
	Finish(ctx context.Context, runID string, status models.RunStatus, summary *models.RunSummary, errorDetail *string) error
}

// Merger executes qualified merges
type Merger interface {
	MergeQualified(ctx context.Context) (*merging.Result, error)
}

// PendingCounter reports the review backlog
type PendingCounter interface {
	CountPending(ctx context.Context) (int, error)
}

// Notifier emits run lifecycle events
type Notifier interface {
	EmitRunCompleted(ctx context.Context, runType models.RunType, summary *models.RunSummary) error
	EmitRunFailed(ctx context.Context, runType models.RunType, runID string, reason string) error
	EmitListingsMerged(ctx context.Context, runID string, canonicalID string, mergedIDs []string) error
	EmitReviewPending(ctx context.Context, runID string, pendingCount int, priority bool) error
}

// CoordinatorConfig tunes run coordination
type CoordinatorConfig struct {
	DefaultWindowDays    int
	RunTimeout           time.Duration
	ReviewAlertThreshold int
}

// Coordinator owns the two engine entry points. Runs are single-flight
// per entry point; a second trigger while one is running returns
// ErrRunInFlight instead of queueing.
type Coordinator struct {
	logger   ectologger.Logger
	engine   *Engine
	merger   Merger
	guard    RunGuard
	runLog   RunLog
	pending  PendingCounter
	notifier Notifier
	config   CoordinatorConfig
}

// NewCoordinator creates a new run coordinator
func NewCoordinator(
	logger ectologger.Logger,
	engine *Engine,
	merger Merger,
	guard RunGuard,
	runLog RunLog,
	pending PendingCounter,
	notifier Notifier,
	config CoordinatorConfig,
) *Coordinator {
	if config.DefaultWindowDays < 1 {
		config.DefaultWindowDays = 7
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = 5 * time.Minute
	}
	if config.ReviewAlertThreshold < 1 {
		config.ReviewAlertThreshold = 10
	}
	return &Coordinator{
		logger:   logger,
		engine:   engine,
		merger:   merger,
		guard:    guard,
		runLog:   runLog,
		pending:  pending,
		notifier: notifier,
		config:   config,
	}
}

// RunDeduplication scans the listing window, generates candidates,
// merges the qualified ones, and reports the run summary. A run that
// hits per-pair or per-group errors still commits its completed work
// and reports partial success.
func (c *Coordinator) RunDeduplication(ctx context.Context, windowDays int) (*models.RunSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Coordinator.RunDeduplication")
	defer span.End()

	if windowDays < 1 {
		windowDays = c.config.DefaultWindowDays
	}

	var summary *models.RunSummary
	err := c.guard.WithLock(ctx, runLockKey, c.lockTTL(), func() error {
		var err error
		summary, err = c.runFull(ctx, windowDays)
		return err
	})
	if errors.Is(err, redis.ErrLockNotAcquired) {
		metrics.RunLockContention.WithLabelValues(string(models.RunTypeFull)).Inc()
		return nil, ErrRunInFlight
	}
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// AutoMergeCandidates merges already-qualified candidates without
// scanning for new ones. Returns the number of merge groups executed.
func (c *Coordinator) AutoMergeCandidates(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Coordinator.AutoMergeCandidates")
	defer span.End()

	merged := 0
	err := c.guard.WithLock(ctx, autoMergeLockKey, c.lockTTL(), func() error {
		var err error
		merged, err = c.runAutoMerge(ctx)
		return err
	})
	if errors.Is(err, redis.ErrLockNotAcquired) {
		metrics.RunLockContention.WithLabelValues(string(models.RunTypeAutoMerge)).Inc()
		return 0, ErrRunInFlight
	}
	if err != nil {
		return 0, err
	}

	return merged, nil
}

func (c *Coordinator) runFull(ctx context.Context, windowDays int) (*models.RunSummary, error) {
	start := time.Now()

	run, err := c.runLog.Start(ctx, models.RunTypeFull, &windowDays)
	if err != nil {
		return nil, err
	}

	log := c.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":      run.ID,
		"window_days": windowDays,
	})
	log.Info("Starting deduplication run")

	runCtx, cancel := context.WithTimeout(ctx, c.config.RunTimeout)
	defer cancel()

	generated, err := c.engine.GenerateCandidates(runCtx, windowDays, run.ID)
	if err != nil {
		// The window read failing means no work happened at all
		reason := err.Error()
		c.finishRun(ctx, run.ID, models.RunStatusFailed, nil, &reason)
		c.notifier.EmitRunFailed(ctx, models.RunTypeFull, run.ID, reason)
		metrics.RunsTotal.WithLabelValues(string(models.RunTypeFull), string(models.RunStatusFailed)).Inc()
		return nil, fmt.Errorf("deduplication run %s failed: %w", run.ID, err)
	}

	summary := &models.RunSummary{
		RunID:           run.ID,
		ListingsScanned: generated.ListingsScanned,
		PairsCompared:   generated.PairsCompared,
		CandidatesFound: generated.CandidatesFound,
		Errors:          generated.Errors,
	}

	// Merging uses the parent ctx: generated candidates should merge
	// even when generation was cut short by the run timeout
	mergeResult, err := c.merger.MergeQualified(ctx)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("merge pass: %v", err))
	} else {
		summary.GroupsCreated = mergeResult.GroupsCreated
		summary.AutoMerged = len(mergeResult.Merged)
		summary.Errors = append(summary.Errors, mergeResult.Errors...)
		c.emitMerged(ctx, run.ID, mergeResult)
	}

	c.finishFull(ctx, models.RunTypeFull, summary)

	metrics.RunDuration.WithLabelValues(string(models.RunTypeFull)).Observe(time.Since(start).Seconds())
	log.WithFields(map[string]any{
		"listings_scanned": summary.ListingsScanned,
		"pairs_compared":   summary.PairsCompared,
		"candidates_found": summary.CandidatesFound,
		"groups_created":   summary.GroupsCreated,
		"auto_merged":      summary.AutoMerged,
		"pending_review":   summary.PendingReview,
		"errors":           len(summary.Errors),
	}).Info("Deduplication run finished")

	return summary, nil
}

func (c *Coordinator) runAutoMerge(ctx context.Context) (int, error) {
	start := time.Now()

	run, err := c.runLog.Start(ctx, models.RunTypeAutoMerge, nil)
	if err != nil {
		return 0, err
	}

	runCtx, cancel := context.WithTimeout(ctx, c.config.RunTimeout)
	defer cancel()

	summary := &models.RunSummary{RunID: run.ID}

	mergeResult, err := c.merger.MergeQualified(runCtx)
	if err != nil {
		reason := err.Error()
		c.finishRun(ctx, run.ID, models.RunStatusFailed, nil, &reason)
		c.notifier.EmitRunFailed(ctx, models.RunTypeAutoMerge, run.ID, reason)
		metrics.RunsTotal.WithLabelValues(string(models.RunTypeAutoMerge), string(models.RunStatusFailed)).Inc()
		return 0, fmt.Errorf("auto-merge run %s failed: %w", run.ID, err)
	}

	summary.GroupsCreated = mergeResult.GroupsCreated
	summary.AutoMerged = len(mergeResult.Merged)
	summary.Errors = mergeResult.Errors
	c.emitMerged(ctx, run.ID, mergeResult)

	c.finishFull(ctx, models.RunTypeAutoMerge, summary)

	metrics.RunDuration.WithLabelValues(string(models.RunTypeAutoMerge)).Observe(time.Since(start).Seconds())

	return summary.AutoMerged, nil
}

// finishFull settles pending accounting, persists the run record, and
// emits the completion and review signals
func (c *Coordinator) finishFull(ctx context.Context, runType models.RunType, summary *models.RunSummary) {
	pendingCount, err := c.pending.CountPending(ctx)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("pending count: %v", err))
	} else {
		summary.PendingReview = pendingCount
		metrics.PendingReview.Set(float64(pendingCount))
	}

	status := models.RunStatusSuccess
	var errorDetail *string
	if summary.Partial() {
		status = models.RunStatusPartial
		joined := joinErrors(summary.Errors)
		errorDetail = &joined
	}

	c.finishRun(ctx, summary.RunID, status, summary, errorDetail)
	metrics.RunsTotal.WithLabelValues(string(runType), string(status)).Inc()

	if err := c.notifier.EmitRunCompleted(ctx, runType, summary); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Run completed but audit event emission failed")
	}

	// The signal fires only when the backlog outgrew what the run
	// resolved on its own
	if summary.PendingReview > 0 && summary.PendingReview > summary.AutoMerged {
		priority := summary.PendingReview > c.config.ReviewAlertThreshold
		if err := c.notifier.EmitReviewPending(ctx, summary.RunID, summary.PendingReview, priority); err != nil {
			c.logger.WithContext(ctx).WithError(err).Warn("Failed to emit review backlog signal")
		}
	}
}

// lockTTL is the run lock lifetime. The merge pass runs on the parent
// ctx after the generation timeout, so the lock must outlive RunTimeout.
func (c *Coordinator) lockTTL() time.Duration {
	return 2 * c.config.RunTimeout
}

func (c *Coordinator) emitMerged(ctx context.Context, runID string, result *merging.Result) {
	for _, group := range result.Merged {
		metrics.ListingsMerged.Add(float64(len(group.MergedIDs)))
		if err := c.notifier.EmitListingsMerged(ctx, runID, group.CanonicalID, group.MergedIDs); err != nil {
			c.logger.WithContext(ctx).WithError(err).Warn("Failed to emit listings.merged event")
		}
	}
}

func (c *Coordinator) finishRun(ctx context.Context, runID string, status models.RunStatus, summary *models.RunSummary, errorDetail *string) {
	if err := c.runLog.Finish(ctx, runID, status, summary, errorDetail); err != nil {
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"run_id": runID}).Error("Failed to record run finish")
	}
}

func joinErrors(errs []string) string {
	joined := ""
	for i, e := range errs {
		if i > 0 {
			joined += "; "
		}
		joined += e
	}
	return joined
}
