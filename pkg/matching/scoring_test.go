package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		name     string
		a        string
		b        string
		expected float64
	}{
		{"identical", "plumbing", "plumbing", 1.0},
		{"both empty", "", "", 1.0},
		{"one empty", "abc", "", 0.0},
		{"single substitution", "mainst", "maimst", 1.0 - 1.0/6.0},
		{"completely different", "abc", "xyz", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, scorer.Levenshtein(tt.a, tt.b), 1e-9)
		})
	}
}

func TestLevenshteinDistance(t *testing.T) {
	scorer := NewScorer()

	assert.Equal(t, 0, scorer.LevenshteinDistance("same", "same"))
	assert.Equal(t, 3, scorer.LevenshteinDistance("kitten", "sitting"))
	assert.Equal(t, 4, scorer.LevenshteinDistance("", "four"))
}

func TestJaccard(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		name     string
		a        []string
		b        []string
		expected float64
	}{
		{"identical sets", []string{"joes", "plumbing"}, []string{"joes", "plumbing"}, 1.0},
		{"reordered tokens", []string{"plumbing", "joes"}, []string{"joes", "plumbing"}, 1.0},
		{"partial overlap", []string{"joes", "plumbing"}, []string{"joes", "heating"}, 1.0 / 3.0},
		{"no overlap", []string{"joes"}, []string{"bakery"}, 0.0},
		{"both empty", nil, nil, 1.0},
		{"one empty", []string{"joes"}, nil, 0.0},
		{"duplicate tokens counted once", []string{"joes", "joes", "plumbing"}, []string{"joes", "plumbing"}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, scorer.Jaccard(tt.a, tt.b), 1e-9)
		})
	}
}

func TestNumericRatio(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		name     string
		a        float64
		b        float64
		expected float64
	}{
		{"equal", 450_000, 450_000, 1.0},
		{"close", 450_000, 455_000, 1.0 - 5_000.0/455_000.0},
		{"order independent", 455_000, 450_000, 1.0 - 5_000.0/455_000.0},
		{"far apart", 100, 1_000_000, 1.0 - 999_900.0/1_000_000.0},
		{"zero versus nonzero", 0, 500, 0.0},
		{"both zero", 0, 0, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, scorer.NumericRatio(tt.a, tt.b), 1e-9)
		})
	}
}

func TestWeightedScoreRenormalizes(t *testing.T) {
	scorer := NewScorer()
	weights := map[string]float64{"title": 0.35, "address": 0.20, "price": 0.15}

	// Only title present: the composite is the title score alone
	assert.InDelta(t, 0.8, scorer.WeightedScore(map[string]float64{"title": 0.8}, weights), 1e-9)

	// Two fields present: weighted by their relative weights
	scores := map[string]float64{"title": 1.0, "price": 0.5}
	expected := (0.35*1.0 + 0.15*0.5) / 0.50
	assert.InDelta(t, expected, scorer.WeightedScore(scores, weights), 1e-9)
}

func TestWeightedScoreEmpty(t *testing.T) {
	scorer := NewScorer()
	assert.Equal(t, 0.0, scorer.WeightedScore(nil, nil))
}
