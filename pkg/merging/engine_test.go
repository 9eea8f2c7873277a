package merging

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func ptr[T any](v T) *T {
	return &v
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// fakeStore backs both engine store interfaces with in-memory state.
// InTx snapshots the state and restores it when the callback fails, so
// rollback behavior is observable.
type fakeStore struct {
	listings   map[string]*models.Listing
	candidates map[string]*models.DedupCandidate
	references map[string]string // reference id -> listing id

	supersedeErr  error
	markMergedErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		listings:   make(map[string]*models.Listing),
		candidates: make(map[string]*models.DedupCandidate),
		references: make(map[string]string),
	}
}

func (f *fakeStore) addListing(l *models.Listing) {
	copied := *l
	f.listings[l.ID] = &copied
}

func (f *fakeStore) addCandidate(c *models.DedupCandidate) {
	copied := *c
	f.candidates[c.ID] = &copied
}

func (f *fakeStore) GetByIDs(ctx context.Context, ids []string) ([]models.Listing, error) {
	var out []models.Listing
	for _, id := range ids {
		if l, ok := f.listings[id]; ok {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeStore) Supersede(ctx context.Context, ids []string, canonicalID string) error {
	if f.supersedeErr != nil {
		return f.supersedeErr
	}
	for _, id := range ids {
		f.listings[id].SupersededBy = &canonicalID
	}
	return nil
}

func (f *fakeStore) ReassignReferences(ctx context.Context, fromIDs []string, toID string) error {
	from := make(map[string]bool, len(fromIDs))
	for _, id := range fromIDs {
		from[id] = true
	}
	for ref, listingID := range f.references {
		if from[listingID] {
			f.references[ref] = toID
		}
	}
	return nil
}

func (f *fakeStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snapListings := make(map[string]*models.Listing, len(f.listings))
	for id, l := range f.listings {
		copied := *l
		snapListings[id] = &copied
	}
	snapCandidates := make(map[string]*models.DedupCandidate, len(f.candidates))
	for id, c := range f.candidates {
		copied := *c
		snapCandidates[id] = &copied
	}
	snapReferences := make(map[string]string, len(f.references))
	for ref, id := range f.references {
		snapReferences[ref] = id
	}

	if err := fn(ctx); err != nil {
		f.listings = snapListings
		f.candidates = snapCandidates
		f.references = snapReferences
		return err
	}
	return nil
}

func (f *fakeStore) ListOpen(ctx context.Context) ([]models.DedupCandidate, error) {
	var out []models.DedupCandidate
	for _, c := range f.candidates {
		if c.Status == models.CandidateStatusPending || c.Status == models.CandidateStatusApproved {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ListOpenByListings(ctx context.Context, listingIDs []string) ([]models.DedupCandidate, error) {
	ids := make(map[string]bool, len(listingIDs))
	for _, id := range listingIDs {
		ids[id] = true
	}
	var out []models.DedupCandidate
	for _, c := range f.candidates {
		if c.Status != models.CandidateStatusPending && c.Status != models.CandidateStatusApproved {
			continue
		}
		if ids[c.ListingAID] || ids[c.ListingBID] {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) MarkMerged(ctx context.Context, ids []string) error {
	if f.markMergedErr != nil {
		return f.markMergedErr
	}
	for _, id := range ids {
		f.candidates[id].Status = models.CandidateStatusMerged
	}
	return nil
}

func activeListing(id string, completeness int, lastSeen time.Time) *models.Listing {
	l := &models.Listing{ID: id, Platform: "bizbuysell", Title: "Joe's Plumbing", State: "TX", TradeCategory: "plumbing", LastSeenAt: lastSeen}
	if completeness > 0 {
		l.AskingPrice = ptr(450_000.0)
	}
	if completeness > 1 {
		l.Address = ptr("123 main st")
	}
	if completeness > 2 {
		l.AnnualRevenue = ptr(1_200_000.0)
	}
	return l
}

func candidate(id, a, b string, score float64, status models.CandidateStatus) *models.DedupCandidate {
	return &models.DedupCandidate{ID: id, ListingAID: a, ListingBID: b, Score: score, Status: status}
}

func TestMergeQualifiedPair(t *testing.T) {
	seen := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.addListing(activeListing("listing-a", 1, seen))
	store.addListing(activeListing("listing-b", 3, seen))
	store.addCandidate(candidate("c1", "listing-a", "listing-b", 0.95, models.CandidateStatusPending))
	store.references["opp-1"] = "listing-a"

	engine := NewEngine(testLogger(), store, store, 0.60, 0.92)
	result, err := engine.MergeQualified(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.GroupsCreated)
	require.Len(t, result.Merged, 1)
	assert.Equal(t, "listing-b", result.Merged[0].CanonicalID)
	assert.Equal(t, []string{"listing-a"}, result.Merged[0].MergedIDs)
	assert.Empty(t, result.Errors)

	// Duplicate superseded, references moved, candidate consumed
	require.NotNil(t, store.listings["listing-a"].SupersededBy)
	assert.Equal(t, "listing-b", *store.listings["listing-a"].SupersededBy)
	assert.Nil(t, store.listings["listing-b"].SupersededBy)
	assert.Equal(t, "listing-b", store.references["opp-1"])
	assert.Equal(t, models.CandidateStatusMerged, store.candidates["c1"].Status)
}

func TestMergeApprovedBelowThreshold(t *testing.T) {
	seen := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.addListing(activeListing("listing-a", 1, seen))
	store.addListing(activeListing("listing-b", 1, seen))
	store.addCandidate(candidate("c1", "listing-a", "listing-b", 0.70, models.CandidateStatusApproved))

	engine := NewEngine(testLogger(), store, store, 0.60, 0.92)
	result, err := engine.MergeQualified(context.Background())
	require.NoError(t, err)

	// Reviewer approval overrides the score gate
	require.Len(t, result.Merged, 1)
	assert.Equal(t, models.CandidateStatusMerged, store.candidates["c1"].Status)
}

func TestMergeGroupHeldByUncertainEdge(t *testing.T) {
	seen := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.addListing(activeListing("listing-a", 1, seen))
	store.addListing(activeListing("listing-b", 1, seen))
	store.addListing(activeListing("listing-c", 1, seen))
	// a-b and b-c qualify, but the open a-c edge sits below the bar
	store.addCandidate(candidate("c1", "listing-a", "listing-b", 0.95, models.CandidateStatusPending))
	store.addCandidate(candidate("c2", "listing-b", "listing-c", 0.94, models.CandidateStatusPending))
	store.addCandidate(candidate("c3", "listing-a", "listing-c", 0.80, models.CandidateStatusPending))

	engine := NewEngine(testLogger(), store, store, 0.60, 0.92)
	result, err := engine.MergeQualified(context.Background())
	require.NoError(t, err)

	// The group still materialized, it just was not merged
	assert.Equal(t, 1, result.GroupsCreated)
	assert.Empty(t, result.Merged)
	assert.Empty(t, result.Errors)
	for _, c := range store.candidates {
		assert.Equal(t, models.CandidateStatusPending, c.Status)
	}
	for _, l := range store.listings {
		assert.Nil(t, l.SupersededBy)
	}
}

func TestMergeTransitiveGroup(t *testing.T) {
	seen := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.addListing(activeListing("listing-a", 1, seen))
	store.addListing(activeListing("listing-b", 3, seen))
	store.addListing(activeListing("listing-c", 1, seen))
	store.addCandidate(candidate("c1", "listing-a", "listing-b", 0.95, models.CandidateStatusPending))
	store.addCandidate(candidate("c2", "listing-b", "listing-c", 0.94, models.CandidateStatusPending))

	engine := NewEngine(testLogger(), store, store, 0.60, 0.92)
	result, err := engine.MergeQualified(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Merged, 1)
	assert.Equal(t, "listing-b", result.Merged[0].CanonicalID)
	assert.ElementsMatch(t, []string{"listing-a", "listing-c"}, result.Merged[0].MergedIDs)
}

func TestMergeRollsBackOnFailure(t *testing.T) {
	seen := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.addListing(activeListing("listing-a", 1, seen))
	store.addListing(activeListing("listing-b", 3, seen))
	store.addCandidate(candidate("c1", "listing-a", "listing-b", 0.95, models.CandidateStatusPending))
	store.references["opp-1"] = "listing-a"
	store.markMergedErr = errors.New("deadlock detected")

	engine := NewEngine(testLogger(), store, store, 0.60, 0.92)
	result, err := engine.MergeQualified(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.Merged)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "deadlock detected")

	// Everything restored: no partial merge survives
	assert.Nil(t, store.listings["listing-a"].SupersededBy)
	assert.Equal(t, "listing-a", store.references["opp-1"])
	assert.Equal(t, models.CandidateStatusPending, store.candidates["c1"].Status)
}

func TestMergeSkipsInactiveListing(t *testing.T) {
	seen := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	store := newFakeStore()
	superseded := activeListing("listing-a", 1, seen)
	superseded.SupersededBy = ptr("listing-z")
	store.addListing(superseded)
	store.addListing(activeListing("listing-b", 1, seen))
	store.addCandidate(candidate("c1", "listing-a", "listing-b", 0.95, models.CandidateStatusPending))

	engine := NewEngine(testLogger(), store, store, 0.60, 0.92)
	result, err := engine.MergeQualified(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.Merged)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "no longer active")
}

func TestMergeFailedGroupDoesNotBlockOthers(t *testing.T) {
	seen := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	store := newFakeStore()
	// First group has a missing member, second group is clean
	store.addListing(activeListing("listing-b", 1, seen))
	store.addCandidate(candidate("c1", "listing-a", "listing-b", 0.95, models.CandidateStatusPending))
	store.addListing(activeListing("listing-x", 1, seen))
	store.addListing(activeListing("listing-y", 3, seen))
	store.addCandidate(candidate("c2", "listing-x", "listing-y", 0.96, models.CandidateStatusPending))

	engine := NewEngine(testLogger(), store, store, 0.60, 0.92)
	result, err := engine.MergeQualified(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.GroupsCreated)
	require.Len(t, result.Merged, 1)
	assert.Equal(t, "listing-y", result.Merged[0].CanonicalID)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "group member missing")
}

func TestMergeNothingToDo(t *testing.T) {
	store := newFakeStore()

	engine := NewEngine(testLogger(), store, store, 0.60, 0.92)
	result, err := engine.MergeQualified(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.GroupsCreated)
	assert.Empty(t, result.Merged)
	assert.Empty(t, result.Errors)
}
