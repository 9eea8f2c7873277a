package models

import (
	"time"
)

// RunType distinguishes the two engine entry points
type RunType string

const (
	// RunTypeFull scans the window, generates candidates, then auto-merges
	RunTypeFull RunType = "full"
	// RunTypeAutoMerge only merges already-qualified candidates
	RunTypeAutoMerge RunType = "auto_merge"
)

// RunStatus is the terminal state of a dedup run
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusPartial RunStatus = "partial"
	RunStatusFailed  RunStatus = "failed"
)

// DedupRun is the persisted audit record of one engine execution
type DedupRun struct {
	ID               string     `json:"id" db:"id"`
	RunType          RunType    `json:"run_type" db:"run_type"`
	Status           RunStatus  `json:"status" db:"status"`
	WindowDays       *int       `json:"window_days,omitempty" db:"window_days"`
	ListingsScanned  int        `json:"listings_scanned" db:"listings_scanned"`
	PairsCompared    int        `json:"pairs_compared" db:"pairs_compared"`
	CandidatesFound  int        `json:"candidates_found" db:"candidates_found"`
	GroupsCreated    int        `json:"groups_created" db:"groups_created"`
	AutoMerged       int        `json:"auto_merged" db:"auto_merged"`
	PendingReview    int        `json:"pending_review" db:"pending_review"`
	ErrorDetail      *string    `json:"error_detail,omitempty" db:"error_detail"`
	StartedAt        time.Time  `json:"started_at" db:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}

// RunSummary is the in-memory result returned to the caller of a run
type RunSummary struct {
	RunID           string   `json:"run_id"`
	ListingsScanned int      `json:"listings_scanned"`
	PairsCompared   int      `json:"pairs_compared"`
	CandidatesFound int      `json:"candidates_found"`
	GroupsCreated   int      `json:"groups_created"`
	AutoMerged      int      `json:"auto_merged"`
	PendingReview   int      `json:"pending_review"`
	Errors          []string `json:"errors,omitempty"`
}

// Partial returns true if the run committed work but also collected errors
func (s *RunSummary) Partial() bool {
	return len(s.Errors) > 0
}

// TriggerRunRequest is the request body for a manually triggered full run
type TriggerRunRequest struct {
	WindowDays int `json:"window_days" validate:"omitempty,min=1,max=90"`
}
