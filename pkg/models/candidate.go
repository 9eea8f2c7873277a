package models

import (
	"time"
)

// CandidateStatus is the review lifecycle state of a duplicate candidate
type CandidateStatus string

const (
	// CandidateStatusPending awaits auto-merge or manual review
	CandidateStatusPending CandidateStatus = "PENDING"
	// CandidateStatusApproved was confirmed as a duplicate by a reviewer
	CandidateStatusApproved CandidateStatus = "APPROVED"
	// CandidateStatusRejected was dismissed by a reviewer
	CandidateStatusRejected CandidateStatus = "REJECTED"
	// CandidateStatusMerged was consumed by an executed merge
	CandidateStatusMerged CandidateStatus = "MERGED"
)

// IsOpen returns true if the candidate still blocks re-admission of its pair
func (s CandidateStatus) IsOpen() bool {
	return s != CandidateStatusRejected
}

// FieldScores is the per-field similarity breakdown behind a composite score.
// A nil entry means the field was missing on one or both listings and was
// excluded from the composite.
type FieldScores struct {
	Title   *float64 `json:"title,omitempty" db:"-"`
	Address *float64 `json:"address,omitempty" db:"-"`
	Price   *float64 `json:"price,omitempty" db:"-"`
	Revenue *float64 `json:"revenue,omitempty" db:"-"`
	EBITDA  *float64 `json:"ebitda,omitempty" db:"-"`
	Broker  *float64 `json:"broker,omitempty" db:"-"`
}

// DedupCandidate is a scored pair of listings suspected to be duplicates.
// ListingAID < ListingBID always holds so each unordered pair has one row.
type DedupCandidate struct {
	ID          string          `json:"id" db:"id"`
	ListingAID  string          `json:"listing_a_id" db:"listing_a_id"`
	ListingBID  string          `json:"listing_b_id" db:"listing_b_id"`
	Score       float64         `json:"score" db:"score"`
	FieldScores FieldScores     `json:"field_scores" db:"-"`
	Status      CandidateStatus `json:"status" db:"status"`
	RunID       *string         `json:"run_id,omitempty" db:"run_id"`
	ResolvedBy  *string         `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty" db:"resolved_at"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// PairKey returns the ordered pair identity of the candidate
func (c *DedupCandidate) PairKey() (string, string) {
	return c.ListingAID, c.ListingBID
}

// DedupGroup is a connected set of listings linked by review-grade candidates
type DedupGroup struct {
	Members     []string         `json:"members"`
	Edges       []DedupCandidate `json:"edges"`
	CanonicalID string           `json:"canonical_id"`
}

// CandidateListResponse is the response for candidate review queries
type CandidateListResponse struct {
	Items      []DedupCandidate `json:"items"`
	TotalCount int              `json:"total_count"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
}

// ResolveCandidateRequest is the request body for approve/reject
type ResolveCandidateRequest struct {
	Reason *string `json:"reason,omitempty"`
}
