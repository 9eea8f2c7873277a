package fingerprint

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

func baseListing() *models.Listing {
	return &models.Listing{
		ID:              "listing-1",
		Platform:        "bizbuysell",
		SourceListingID: "src-1",
		Title:           "Joe's Plumbing LLC",
		Address:         ptr("123 Main Street"),
		State:           "tx",
		TradeCategory:   "Plumbing",
		AskingPrice:     ptr(450_000.0),
		AnnualRevenue:   ptr(1_200_000.0),
		BrokerPhone:     ptr("(512) 555-0182"),
		BrokerEmail:     ptr("Bob@Broker.com"),
		LastSeenAt:      time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
	}
}

func TestExtract(t *testing.T) {
	f := Extract(baseListing())

	assert.Equal(t, "listing-1", f.ListingID)
	assert.Equal(t, "joes plumbing", f.TitleNorm)
	assert.Equal(t, []string{"joes", "plumbing"}, f.TitleTokens)
	require.NotNil(t, f.AddressNorm)
	assert.Equal(t, "123 main st", *f.AddressNorm)
	assert.Equal(t, "TX", f.State)
	assert.Equal(t, "plumbing", f.TradeCategory)
	require.NotNil(t, f.BrokerPhone)
	assert.Equal(t, "5125550182", *f.BrokerPhone)
	require.NotNil(t, f.BrokerEmail)
	assert.Equal(t, "bob@broker.com", *f.BrokerEmail)
}

func TestExtractMissingFields(t *testing.T) {
	listing := baseListing()
	listing.Address = nil
	listing.BrokerPhone = ptr("  ")
	listing.BrokerEmail = nil
	listing.AskingPrice = nil

	f := Extract(listing)

	assert.Nil(t, f.AddressNorm)
	assert.Nil(t, f.BrokerPhone)
	assert.Nil(t, f.BrokerEmail)
	assert.Nil(t, f.AskingPrice)
}

func TestPriceBand(t *testing.T) {
	tests := []struct {
		name     string
		price    *float64
		expected string
	}{
		{"nil price", nil, "na"},
		{"lowest band", ptr(10_000.0), "b0"},
		{"band boundary inclusive", ptr(50_000.0), "b0"},
		{"just over boundary", ptr(50_001.0), "b1"},
		{"mid band", ptr(450_000.0), "b3"},
		{"above all bands", ptr(90_000_000.0), "b9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PriceBand(tt.price))
		})
	}
}

func TestBlockingKey(t *testing.T) {
	f := Extract(baseListing())
	assert.Equal(t, "TX|plumbing|b3", f.BlockingKey())
}

func TestBlockingKeySeparatesStates(t *testing.T) {
	a := baseListing()
	b := baseListing()
	b.State = "OK"

	assert.NotEqual(t, Extract(a).BlockingKey(), Extract(b).BlockingKey())
}

func TestContentHashStableAcrossFormatting(t *testing.T) {
	a := baseListing()

	b := baseListing()
	b.ID = "listing-2"
	b.Platform = "bizquest"
	b.Title = "Joes Plumbing, LLC"
	b.Address = ptr("123 Main St")
	b.State = "TX"
	b.BrokerPhone = ptr("+1 512-555-0182")
	b.BrokerEmail = ptr("bob@broker.com")

	assert.Equal(t, Extract(a).ContentHash(), Extract(b).ContentHash())
}

func TestContentHashDiffersOnPrice(t *testing.T) {
	a := baseListing()
	b := baseListing()
	b.AskingPrice = ptr(460_000.0)

	assert.NotEqual(t, Extract(a).ContentHash(), Extract(b).ContentHash())
}

func TestContentHashMissingVersusZero(t *testing.T) {
	a := baseListing()
	a.EBITDA = nil
	b := baseListing()
	b.EBITDA = ptr(0.0)

	assert.NotEqual(t, Extract(a).ContentHash(), Extract(b).ContentHash())
}
