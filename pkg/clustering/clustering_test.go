package clustering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func ptr[T any](v T) *T {
	return &v
}

func edge(a, b string, score float64) models.DedupCandidate {
	return models.DedupCandidate{
		ID:         a + ":" + b,
		ListingAID: a,
		ListingBID: b,
		Score:      score,
		Status:     models.CandidateStatusPending,
	}
}

func TestBuildTransitiveGroup(t *testing.T) {
	// A-B and B-C above the bar: one group of three even though A-C
	// was never compared
	edges := []models.DedupCandidate{
		edge("a", "b", 0.95),
		edge("b", "c", 0.93),
	}

	groups := Build(edges, 0.6)

	require.Len(t, groups, 1)
	assert.Equal(t, []string{"a", "b", "c"}, groups[0].Members)
	assert.Len(t, groups[0].Edges, 2)
}

func TestBuildWeakEdgesDoNotConnect(t *testing.T) {
	edges := []models.DedupCandidate{
		edge("a", "b", 0.95),
		edge("c", "d", 0.40),
	}

	groups := Build(edges, 0.6)

	require.Len(t, groups, 1)
	assert.Equal(t, []string{"a", "b"}, groups[0].Members)
}

func TestBuildWeakEdgeInsideGroupIsAttached(t *testing.T) {
	// The a-c edge is too weak to connect on its own but both ends are
	// already in the group, so it rides along as a group edge
	edges := []models.DedupCandidate{
		edge("a", "b", 0.95),
		edge("b", "c", 0.93),
		edge("a", "c", 0.50),
	}

	groups := Build(edges, 0.6)

	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Edges, 3)
}

func TestBuildMultipleGroupsDeterministicOrder(t *testing.T) {
	edges := []models.DedupCandidate{
		edge("x", "y", 0.9),
		edge("a", "b", 0.9),
		edge("m", "n", 0.9),
	}

	groups := Build(edges, 0.6)

	require.Len(t, groups, 3)
	assert.Equal(t, []string{"a", "b"}, groups[0].Members)
	assert.Equal(t, []string{"m", "n"}, groups[1].Members)
	assert.Equal(t, []string{"x", "y"}, groups[2].Members)
}

func TestBuildEmpty(t *testing.T) {
	assert.Empty(t, Build(nil, 0.6))
}

func listing(id string, completenessFields int, lastSeen time.Time) *models.Listing {
	l := &models.Listing{ID: id, LastSeenAt: lastSeen}
	if completenessFields > 0 {
		l.AskingPrice = ptr(100_000.0)
	}
	if completenessFields > 1 {
		l.Address = ptr("123 main st")
	}
	if completenessFields > 2 {
		l.AnnualRevenue = ptr(500_000.0)
	}
	if completenessFields > 3 {
		l.EBITDA = ptr(80_000.0)
	}
	return l
}

func TestSelectCanonicalPrefersCompleteness(t *testing.T) {
	seen := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	sparse := listing("a", 1, seen.Add(time.Hour))
	complete := listing("b", 4, seen)

	canonical := SelectCanonical([]*models.Listing{sparse, complete})
	require.NotNil(t, canonical)
	assert.Equal(t, "b", canonical.ID)
}

func TestSelectCanonicalTiesBreakOnRecency(t *testing.T) {
	seen := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	older := listing("a", 2, seen)
	newer := listing("b", 2, seen.Add(time.Hour))

	canonical := SelectCanonical([]*models.Listing{older, newer})
	assert.Equal(t, "b", canonical.ID)
}

func TestSelectCanonicalFinalTieBreaksOnID(t *testing.T) {
	seen := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	first := listing("a", 2, seen)
	second := listing("b", 2, seen)

	assert.Equal(t, "a", SelectCanonical([]*models.Listing{second, first}).ID)
	// Input order does not matter
	assert.Equal(t, "a", SelectCanonical([]*models.Listing{first, second}).ID)
}

func TestSelectCanonicalEmpty(t *testing.T) {
	assert.Nil(t, SelectCanonical(nil))
}
