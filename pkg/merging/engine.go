// Package merging executes transactional merges of duplicate listings
package merging

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/tracing"
	"github.com/Ramsey-B/clover/pkg/clustering"
	"github.com/Ramsey-B/clover/pkg/models"
)

// errGroupHeld aborts a group transaction without treating it as a failure
var errGroupHeld = errors.New("group held for review")

// ListingStore is the listing persistence the merge engine depends on
type ListingStore interface {
	GetByIDs(ctx context.Context, ids []string) ([]models.Listing, error)
	Supersede(ctx context.Context, ids []string, canonicalID string) error
	ReassignReferences(ctx context.Context, fromIDs []string, toID string) error
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CandidateStore is the candidate persistence the merge engine depends on
type CandidateStore interface {
	ListOpen(ctx context.Context) ([]models.DedupCandidate, error)
	ListOpenByListings(ctx context.Context, listingIDs []string) ([]models.DedupCandidate, error)
	MarkMerged(ctx context.Context, ids []string) error
}

// MergedGroup reports one executed merge
type MergedGroup struct {
	CanonicalID string
	MergedIDs   []string
}

// Result summarizes a merge pass. GroupsCreated counts the duplicate
// groups materialized from the open edges, merged or not.
type Result struct {
	GroupsCreated int
	Merged        []MergedGroup
	Errors        []string
}

// Engine folds groups of qualified duplicate candidates into their
// canonical listing. Groups connect at the review threshold; a group
// merges only when every open edge between its members is approved or
// scores at the auto-merge threshold. Each group merges in its own
// transaction; a failed group rolls back without touching the others.
type Engine struct {
	logger          ectologger.Logger
	listings        ListingStore
	candidates      CandidateStore
	reviewThreshold float64
	autoThreshold   float64
}

// NewEngine creates a new merge engine
func NewEngine(logger ectologger.Logger, listings ListingStore, candidates CandidateStore, reviewThreshold, autoThreshold float64) *Engine {
	return &Engine{
		logger:          logger,
		listings:        listings,
		candidates:      candidates,
		reviewThreshold: reviewThreshold,
		autoThreshold:   autoThreshold,
	}
}

// MergeQualified builds duplicate groups from the open candidate edges
// and merges every group whose edges all qualify. A group with any open
// edge below the bar is left untouched for review.
func (e *Engine) MergeQualified(ctx context.Context) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.MergeQualified")
	defer span.End()

	open, err := e.candidates.ListOpen(ctx)
	if err != nil {
		return nil, err
	}

	// Groups connect through edges a reviewer would see together:
	// anything at or above the review threshold, plus approvals
	connecting := make([]models.DedupCandidate, 0, len(open))
	for _, edge := range open {
		if edge.Status == models.CandidateStatusApproved || edge.Score >= e.reviewThreshold {
			connecting = append(connecting, edge)
		}
	}
	if len(connecting) == 0 {
		return &Result{}, nil
	}

	groups := clustering.Build(connecting, 0)

	result := &Result{GroupsCreated: len(groups)}
	for _, group := range groups {
		merged, err := e.mergeGroup(ctx, group)
		if err != nil {
			e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"members": group.Members,
			}).Error("Failed to merge candidate group")
			result.Errors = append(result.Errors, fmt.Sprintf("group %s: %v", group.Members[0], err))
			continue
		}
		if merged != nil {
			result.Merged = append(result.Merged, *merged)
		}
	}

	return result, nil
}

// mergeGroup gates and executes one group inside a transaction.
// Returns nil without error when the group does not qualify.
func (e *Engine) mergeGroup(ctx context.Context, group models.DedupGroup) (*MergedGroup, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.mergeGroup")
	defer span.End()

	inGroup := make(map[string]bool, len(group.Members))
	for _, id := range group.Members {
		inGroup[id] = true
	}

	var merged *MergedGroup
	err := e.listings.InTx(ctx, func(ctx context.Context) error {
		// Re-read the open edges inside the transaction so a resolution
		// landing after grouping still holds or releases the group
		openEdges, err := e.candidates.ListOpenByListings(ctx, group.Members)
		if err != nil {
			return err
		}

		edgeIDs := make([]string, 0, len(openEdges))
		for _, edge := range openEdges {
			if !inGroup[edge.ListingAID] || !inGroup[edge.ListingBID] {
				continue
			}
			if !e.mergeable(&edge) {
				e.logger.WithContext(ctx).WithFields(map[string]any{
					"candidate_id": edge.ID,
					"score":        edge.Score,
				}).Debug("Group held for review by unqualified edge")
				return errGroupHeld
			}
			edgeIDs = append(edgeIDs, edge.ID)
		}
		if len(edgeIDs) == 0 {
			return errGroupHeld
		}

		// Re-fetch inside the transaction so a concurrent merge or
		// delete aborts this group instead of double-merging
		listings, err := e.listings.GetByIDs(ctx, group.Members)
		if err != nil {
			return err
		}
		if len(listings) != len(group.Members) {
			return fmt.Errorf("group member missing: expected %d listings, found %d", len(group.Members), len(listings))
		}

		active := make([]*models.Listing, 0, len(listings))
		for i := range listings {
			if !listings[i].IsActive() {
				return fmt.Errorf("listing %s is no longer active", listings[i].ID)
			}
			active = append(active, &listings[i])
		}

		canonical := clustering.SelectCanonical(active)

		mergedIDs := make([]string, 0, len(active)-1)
		for _, l := range active {
			if l.ID != canonical.ID {
				mergedIDs = append(mergedIDs, l.ID)
			}
		}

		if err := e.listings.ReassignReferences(ctx, mergedIDs, canonical.ID); err != nil {
			return err
		}
		if err := e.listings.Supersede(ctx, mergedIDs, canonical.ID); err != nil {
			return err
		}
		if err := e.candidates.MarkMerged(ctx, edgeIDs); err != nil {
			return err
		}

		merged = &MergedGroup{
			CanonicalID: canonical.ID,
			MergedIDs:   mergedIDs,
		}
		return nil
	})
	if errors.Is(err, errGroupHeld) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"canonical_id": merged.CanonicalID,
		"merged_count": len(merged.MergedIDs),
	}).Info("Merged duplicate listings")

	return merged, nil
}

func (e *Engine) mergeable(edge *models.DedupCandidate) bool {
	if edge.Status == models.CandidateStatusApproved {
		return true
	}
	return edge.Status == models.CandidateStatusPending && edge.Score >= e.autoThreshold
}
