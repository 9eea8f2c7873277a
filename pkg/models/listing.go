package models

import (
	"time"
)

// Listing represents a business-for-sale listing scraped from a brokerage platform.
// Field order matches schema: id, platform, source_listing_id, title, ...
type Listing struct {
	ID              string     `json:"id" db:"id"`
	Platform        string     `json:"platform" db:"platform"`
	SourceListingID string     `json:"source_listing_id" db:"source_listing_id"`
	Title           string     `json:"title" db:"title"`
	Address         *string    `json:"address,omitempty" db:"address"`
	City            *string    `json:"city,omitempty" db:"city"`
	State           string     `json:"state" db:"state"`
	TradeCategory   string     `json:"trade_category" db:"trade_category"`
	AskingPrice     *float64   `json:"asking_price,omitempty" db:"asking_price"`
	AnnualRevenue   *float64   `json:"annual_revenue,omitempty" db:"annual_revenue"`
	EBITDA          *float64   `json:"ebitda,omitempty" db:"ebitda"`
	BrokerName      *string    `json:"broker_name,omitempty" db:"broker_name"`
	BrokerPhone     *string    `json:"broker_phone,omitempty" db:"broker_phone"`
	BrokerEmail     *string    `json:"broker_email,omitempty" db:"broker_email"`
	FirstSeenAt     time.Time  `json:"first_seen_at" db:"first_seen_at"`
	LastSeenAt      time.Time  `json:"last_seen_at" db:"last_seen_at"`
	SupersededBy    *string    `json:"superseded_by,omitempty" db:"superseded_by"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsActive returns true if the listing has not been folded into another record
func (l *Listing) IsActive() bool {
	return l.SupersededBy == nil && l.DeletedAt == nil
}

// ListingListResponse is the response for listing queries
type ListingListResponse struct {
	Items      []Listing `json:"items"`
	TotalCount int       `json:"total_count"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
}
