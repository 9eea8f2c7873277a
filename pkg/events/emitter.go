// Package events handles event emission for dedup lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/tracing"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Publisher is the outbound transport the emitter writes to
type Publisher interface {
	PublishDedupEvent(ctx context.Context, event *kafka.DedupEvent) error
}

// Emitter handles event emission for Clover
type Emitter struct {
	producer Publisher
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitRunCompleted emits the audit summary of a finished run
func (e *Emitter) EmitRunCompleted(ctx context.Context, runType models.RunType, summary *models.RunSummary) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRunCompleted")
	defer span.End()

	data := map[string]any{
		"schema_version":   SchemaVersion,
		"run_type":         runType,
		"listings_scanned": summary.ListingsScanned,
		"pairs_compared":   summary.PairsCompared,
		"candidates_found": summary.CandidatesFound,
		"groups_created":   summary.GroupsCreated,
		"auto_merged":      summary.AutoMerged,
		"pending_review":   summary.PendingReview,
		"errors":           summary.Errors,
	}
	dataJSON, _ := json.Marshal(data)

	event := &kafka.DedupEvent{
		EventType: "run.completed",
		RunID:     summary.RunID,
		Key:       summary.RunID,
		Data:      dataJSON,
	}

	if err := e.producer.PublishDedupEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit run.completed event")
		return err
	}

	return nil
}

// EmitRunFailed emits a run failure event
func (e *Emitter) EmitRunFailed(ctx context.Context, runType models.RunType, runID string, reason string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRunFailed")
	defer span.End()

	data := map[string]any{
		"schema_version": SchemaVersion,
		"run_type":       runType,
		"reason":         reason,
	}
	dataJSON, _ := json.Marshal(data)

	event := &kafka.DedupEvent{
		EventType: "run.failed",
		RunID:     runID,
		Key:       runID,
		Data:      dataJSON,
	}

	if err := e.producer.PublishDedupEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit run.failed event")
		return err
	}

	return nil
}

// EmitListingsMerged emits one event per executed merge group
func (e *Emitter) EmitListingsMerged(ctx context.Context, runID string, canonicalID string, mergedIDs []string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitListingsMerged")
	defer span.End()

	data := map[string]any{
		"schema_version": SchemaVersion,
		"canonical_id":   canonicalID,
		"merged_ids":     mergedIDs,
	}
	dataJSON, _ := json.Marshal(data)

	event := &kafka.DedupEvent{
		EventType: "listings.merged",
		RunID:     runID,
		Key:       canonicalID,
		Data:      dataJSON,
	}

	if err := e.producer.PublishDedupEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit listings.merged event")
		return err
	}

	return nil
}

// EmitReviewPending signals the notification service that candidates
// await manual review. Priority is set when the backlog is unusually
// large for the run.
func (e *Emitter) EmitReviewPending(ctx context.Context, runID string, pendingCount int, priority bool) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitReviewPending")
	defer span.End()

	data := map[string]any{
		"schema_version": SchemaVersion,
		"pending_count":  pendingCount,
		"priority":       priority,
	}
	dataJSON, _ := json.Marshal(data)

	event := &kafka.DedupEvent{
		EventType: "review.pending",
		RunID:     runID,
		Key:       runID,
		Data:      dataJSON,
	}

	if err := e.producer.PublishDedupEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit review.pending event")
		return err
	}

	return nil
}
