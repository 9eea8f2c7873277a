// Package fingerprint extracts comparable features and blocking keys from listings
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
)

// Features is the normalized feature vector of a listing used for
// candidate generation and scoring. Nil pointers mean the field was
// absent on the source listing.
type Features struct {
	ListingID     string
	Platform      string
	TitleNorm     string
	TitleTokens   []string
	AddressNorm   *string
	State         string
	TradeCategory string
	AskingPrice   *float64
	AnnualRevenue *float64
	EBITDA        *float64
	BrokerPhone   *string
	BrokerEmail   *string
	LastSeenAt    int64
}

// Extract builds the feature vector for a listing
func Extract(listing *models.Listing) *Features {
	f := &Features{
		ListingID:     listing.ID,
		Platform:      listing.Platform,
		TitleNorm:     normalizers.Apply(listing.Title, "ntitle"),
		State:         normalizers.Apply(listing.State, "nstate"),
		TradeCategory: normalizers.ApplyChain(listing.TradeCategory, "trim", "lowercase"),
		AskingPrice:   listing.AskingPrice,
		AnnualRevenue: listing.AnnualRevenue,
		EBITDA:        listing.EBITDA,
		LastSeenAt:    listing.LastSeenAt.Unix(),
	}

	if f.TitleNorm != "" {
		f.TitleTokens = strings.Fields(f.TitleNorm)
	}

	if listing.Address != nil && strings.TrimSpace(*listing.Address) != "" {
		addr := normalizers.Apply(*listing.Address, "naddress")
		f.AddressNorm = &addr
	}

	if listing.BrokerPhone != nil {
		phone := normalizers.Apply(*listing.BrokerPhone, "nphone")
		if phone != "" {
			f.BrokerPhone = &phone
		}
	}
	if listing.BrokerEmail != nil {
		email := normalizers.Apply(*listing.BrokerEmail, "nemail")
		if email != "" {
			f.BrokerEmail = &email
		}
	}

	return f
}

// priceBands are the upper bounds of the asking price bands used for
// blocking. Listings with no price share the "na" band.
var priceBands = []float64{
	50_000, 100_000, 250_000, 500_000, 1_000_000,
	2_500_000, 5_000_000, 10_000_000, 25_000_000,
}

// PriceBand returns the blocking band label for an asking price
func PriceBand(price *float64) string {
	if price == nil {
		return "na"
	}
	for i, bound := range priceBands {
		if *price <= bound {
			return "b" + strconv.Itoa(i)
		}
	}
	return "b" + strconv.Itoa(len(priceBands))
}

// BlockingKey groups listings that are worth comparing pairwise.
// Listings in different blocks are never compared.
func (f *Features) BlockingKey() string {
	return f.State + "|" + f.TradeCategory + "|" + PriceBand(f.AskingPrice)
}

// ContentHash is a deterministic digest of the normalized comparable
// fields. Two listings with equal hashes are exact duplicates and skip
// field scoring.
func (f *Features) ContentHash() string {
	var b strings.Builder
	b.WriteString(f.TitleNorm)
	b.WriteByte('|')
	if f.AddressNorm != nil {
		b.WriteString(*f.AddressNorm)
	}
	b.WriteByte('|')
	b.WriteString(f.State)
	b.WriteByte('|')
	b.WriteString(f.TradeCategory)
	b.WriteByte('|')
	writeAmount(&b, f.AskingPrice)
	b.WriteByte('|')
	writeAmount(&b, f.AnnualRevenue)
	b.WriteByte('|')
	writeAmount(&b, f.EBITDA)
	b.WriteByte('|')
	if f.BrokerPhone != nil {
		b.WriteString(*f.BrokerPhone)
	}
	b.WriteByte('|')
	if f.BrokerEmail != nil {
		b.WriteString(*f.BrokerEmail)
	}

	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}

func writeAmount(b *strings.Builder, v *float64) {
	if v == nil {
		return
	}
	fmt.Fprintf(b, "%.2f", *v)
}

