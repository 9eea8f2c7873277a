package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/fingerprint"
	"github.com/Ramsey-B/clover/pkg/models"
)

func ptr[T any](v T) *T {
	return &v
}

func features(t *testing.T, listing *models.Listing) *fingerprint.Features {
	t.Helper()
	return fingerprint.Extract(listing)
}

func crossPlatformPair() (*models.Listing, *models.Listing) {
	seen := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	a := &models.Listing{
		ID:            "listing-a",
		Platform:      "bizbuysell",
		Title:         "Joe's Plumbing LLC",
		Address:       ptr("123 Main Street"),
		State:         "TX",
		TradeCategory: "plumbing",
		AskingPrice:   ptr(450_000.0),
		BrokerPhone:   ptr("(512) 555-0182"),
		LastSeenAt:    seen,
	}
	b := &models.Listing{
		ID:            "listing-b",
		Platform:      "bizquest",
		Title:         "Joes Plumbing",
		Address:       ptr("123 Main St"),
		State:         "TX",
		TradeCategory: "plumbing",
		AskingPrice:   ptr(455_000.0),
		BrokerPhone:   ptr("512-555-0182"),
		LastSeenAt:    seen,
	}
	return a, b
}

func TestCompareCrossPlatformDuplicate(t *testing.T) {
	sim := NewSimilarity()
	listingA, listingB := crossPlatformPair()

	result := sim.Compare(features(t, listingA), features(t, listingB))

	// Same business on two platforms with a slightly different price
	assert.GreaterOrEqual(t, result.Score, 0.92)
	require.NotNil(t, result.FieldScores.Title)
	assert.InDelta(t, 1.0, *result.FieldScores.Title, 1e-9)
	require.NotNil(t, result.FieldScores.Broker)
	assert.InDelta(t, 1.0, *result.FieldScores.Broker, 1e-9)
	require.NotNil(t, result.FieldScores.Price)
	assert.InDelta(t, 1.0-5_000.0/455_000.0, *result.FieldScores.Price, 1e-9)

	// Revenue and EBITDA were missing on both sides
	assert.Nil(t, result.FieldScores.Revenue)
	assert.Nil(t, result.FieldScores.EBITDA)
}

func TestCompareIsSymmetric(t *testing.T) {
	sim := NewSimilarity()
	listingA, listingB := crossPlatformPair()

	ab := sim.Compare(features(t, listingA), features(t, listingB))
	ba := sim.Compare(features(t, listingB), features(t, listingA))

	assert.InDelta(t, ab.Score, ba.Score, 1e-9)
}

func TestCompareMissingFieldsAreNeutral(t *testing.T) {
	sim := NewSimilarity()
	listingA, listingB := crossPlatformPair()

	withPrice := sim.Compare(features(t, listingA), features(t, listingB))

	// Dropping the price from one side excludes the field entirely
	// instead of counting it against the pair
	listingB.AskingPrice = nil
	withoutPrice := sim.Compare(features(t, listingA), features(t, listingB))

	assert.Nil(t, withoutPrice.FieldScores.Price)
	assert.Greater(t, withoutPrice.Score, withPrice.Score)
}

func TestCompareAddressIsExactOrZero(t *testing.T) {
	sim := NewSimilarity()
	listingA, listingB := crossPlatformPair()

	// Identical once normalized: Street vs St
	same := sim.Compare(features(t, listingA), features(t, listingB))
	require.NotNil(t, same.FieldScores.Address)
	assert.Equal(t, 1.0, *same.FieldScores.Address)

	// Same street, different number. Near-identical strings must not
	// earn partial credit: two doors apart is two different businesses.
	listingA.Address = ptr("100 Oak Street")
	listingB.Address = ptr("900 Oak Street")
	diff := sim.Compare(features(t, listingA), features(t, listingB))
	require.NotNil(t, diff.FieldScores.Address)
	assert.Equal(t, 0.0, *diff.FieldScores.Address)
}

func TestCompareBrokerMismatchScoresZero(t *testing.T) {
	sim := NewSimilarity()
	listingA, listingB := crossPlatformPair()
	listingB.BrokerPhone = ptr("512-555-9999")

	result := sim.Compare(features(t, listingA), features(t, listingB))

	require.NotNil(t, result.FieldScores.Broker)
	assert.Equal(t, 0.0, *result.FieldScores.Broker)
}

func TestCompareBrokerEmailFallback(t *testing.T) {
	sim := NewSimilarity()
	listingA, listingB := crossPlatformPair()
	listingA.BrokerPhone = ptr("512-555-1111")
	listingB.BrokerPhone = ptr("512-555-2222")
	listingA.BrokerEmail = ptr("Bob@Broker.com")
	listingB.BrokerEmail = ptr("bob@broker.com")

	result := sim.Compare(features(t, listingA), features(t, listingB))

	require.NotNil(t, result.FieldScores.Broker)
	assert.InDelta(t, 1.0, *result.FieldScores.Broker, 1e-9)
}

func TestCompareBrokerNotComparable(t *testing.T) {
	sim := NewSimilarity()
	listingA, listingB := crossPlatformPair()
	listingA.BrokerPhone = nil
	listingA.BrokerEmail = ptr("bob@broker.com")
	listingB.BrokerEmail = nil

	// One side only has a phone, the other only an email
	result := sim.Compare(features(t, listingA), features(t, listingB))

	assert.Nil(t, result.FieldScores.Broker)
}

func TestCompareUnrelatedListingsScoreLow(t *testing.T) {
	sim := NewSimilarity()
	seen := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	listingA := &models.Listing{
		ID: "a", Platform: "bizbuysell", Title: "Joe's Plumbing LLC",
		State: "TX", TradeCategory: "plumbing",
		AskingPrice: ptr(450_000.0), LastSeenAt: seen,
	}
	listingB := &models.Listing{
		ID: "b", Platform: "bizquest", Title: "Sunrise Bakery",
		State: "TX", TradeCategory: "plumbing",
		AskingPrice: ptr(120_000.0), LastSeenAt: seen,
	}

	result := sim.Compare(features(t, listingA), features(t, listingB))
	assert.Less(t, result.Score, 0.55)
}

func TestExactResult(t *testing.T) {
	sim := NewSimilarity()
	result := sim.ExactResult()

	assert.Equal(t, 1.0, result.Score)
	require.NotNil(t, result.FieldScores.Title)
	assert.Equal(t, 1.0, *result.FieldScores.Title)
	require.NotNil(t, result.FieldScores.Broker)
	assert.Equal(t, 1.0, *result.FieldScores.Broker)
}
