package dedup

import (
	"context"
	"errors"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/tracing"
	"github.com/Ramsey-B/clover/pkg/kafka"
)

// TriggerHandler turns scrape.completed events into deduplication runs
type TriggerHandler struct {
	logger      ectologger.Logger
	coordinator *Coordinator
	windowDays  int
}

// NewTriggerHandler creates a new trigger handler
func NewTriggerHandler(logger ectologger.Logger, coordinator *Coordinator, windowDays int) *TriggerHandler {
	return &TriggerHandler{
		logger:      logger,
		coordinator: coordinator,
		windowDays:  windowDays,
	}
}

// Handle processes a scrape completion message. A run already in flight
// is not an error; the in-flight run covers the same window, so the
// message is consumed without retry.
func (h *TriggerHandler) Handle(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "dedup.TriggerHandler.Handle")
	defer span.End()

	evt, err := msg.ParseScrapeCompleted()
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to parse scrape.completed message")
		// Malformed payloads never become parseable; consume them
		return nil
	}

	log := h.logger.WithContext(ctx).WithFields(map[string]any{
		"platform":     evt.Platform,
		"execution_id": evt.ExecutionID,
		"status":       evt.Status,
	})

	if evt.Status == "failed" {
		log.Info("Skipping dedup run for failed scrape execution")
		return nil
	}

	summary, err := h.coordinator.RunDeduplication(ctx, h.windowDays)
	if err != nil {
		if errors.Is(err, ErrRunInFlight) {
			log.Info("Deduplication run already in flight, skipping trigger")
			return nil
		}
		return err
	}

	log.WithFields(map[string]any{
		"run_id":           summary.RunID,
		"candidates_found": summary.CandidatesFound,
		"auto_merged":      summary.AutoMerged,
	}).Info("Deduplication run triggered by scrape completion")

	return nil
}
