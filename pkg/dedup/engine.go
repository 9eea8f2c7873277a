// Package dedup generates duplicate candidates and coordinates runs
package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/tracing"
	"github.com/Ramsey-B/clover/pkg/fingerprint"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
)

// ListingSource provides the listings to scan
type ListingSource interface {
	GetWindow(ctx context.Context, since time.Time) ([]models.Listing, error)
}

// CandidateWriter persists admitted candidates
type CandidateWriter interface {
	InsertIfAbsent(ctx context.Context, candidate *models.DedupCandidate) (bool, error)
}

// Config tunes candidate generation
type Config struct {
	AdmissionThreshold     float64
	WorkerCount            int
	AllowSamePlatformPairs bool
}

// GenerationResult reports one generation pass
type GenerationResult struct {
	ListingsScanned int
	PairsCompared   int
	CandidatesFound int
	Errors          []string
}

// Engine generates duplicate candidates from a window of listings.
// Listings are bucketed by blocking key; only pairs within a bucket
// are scored.
type Engine struct {
	logger     ectologger.Logger
	listings   ListingSource
	candidates CandidateWriter
	similarity *matching.Similarity
	config     Config
}

// NewEngine creates a new candidate generation engine
func NewEngine(logger ectologger.Logger, listings ListingSource, candidates CandidateWriter, config Config) *Engine {
	if config.WorkerCount < 1 {
		config.WorkerCount = 4
	}
	return &Engine{
		logger:     logger,
		listings:   listings,
		candidates: candidates,
		similarity: matching.NewSimilarity(),
		config:     config,
	}
}

// pair is one comparison unit handed to the score workers
type pair struct {
	a *fingerprint.Features
	b *fingerprint.Features
}

// GenerateCandidates scans the window and persists every pair scoring
// at or above the admission threshold. Pair-level failures are
// collected and do not stop the pass; the listing read failing aborts.
func (e *Engine) GenerateCandidates(ctx context.Context, windowDays int, runID string) (*GenerationResult, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Engine.GenerateCandidates")
	defer span.End()

	since := time.Now().UTC().AddDate(0, 0, -windowDays)
	listings, err := e.listings.GetWindow(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load listing window: %w", err)
	}

	result := &GenerationResult{ListingsScanned: len(listings)}

	// Bucket by blocking key
	buckets := make(map[string][]*fingerprint.Features)
	for i := range listings {
		features := fingerprint.Extract(&listings[i])
		key := features.BlockingKey()
		buckets[key] = append(buckets[key], features)
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":   runID,
		"listings": len(listings),
		"buckets":  len(buckets),
	}).Info("Generating dedup candidates")

	pairs := make(chan pair)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < e.config.WorkerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range pairs {
				compared, found, err := e.scorePair(ctx, p.a, p.b, runID)
				mu.Lock()
				if compared {
					result.PairsCompared++
				}
				if found {
					result.CandidatesFound++
				}
				if err != nil {
					result.Errors = append(result.Errors, err.Error())
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, bucket := range buckets {
		for i := 0; i < len(bucket); i++ {
			for j := i + 1; j < len(bucket); j++ {
				select {
				case <-ctx.Done():
					break feed
				case pairs <- pair{a: bucket[i], b: bucket[j]}:
				}
			}
		}
	}
	close(pairs)
	wg.Wait()

	if ctx.Err() != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("generation stopped early: %v", ctx.Err()))
	}

	metrics.PairsCompared.Add(float64(result.PairsCompared))
	metrics.CandidatesFound.Add(float64(result.CandidatesFound))

	return result, nil
}

// scorePair compares one pair and persists it when admitted. Returns
// whether the pair was compared and whether a candidate was created.
func (e *Engine) scorePair(ctx context.Context, a, b *fingerprint.Features, runID string) (bool, bool, error) {
	if !e.config.AllowSamePlatformPairs && a.Platform == b.Platform {
		return false, false, nil
	}

	var scored matching.Result
	if a.ContentHash() == b.ContentHash() {
		scored = e.similarity.ExactResult()
	} else {
		scored = e.similarity.Compare(a, b)
	}

	if scored.Score < e.config.AdmissionThreshold {
		return true, false, nil
	}

	listingA, listingB := a.ListingID, b.ListingID
	if listingA > listingB {
		listingA, listingB = listingB, listingA
	}

	candidate := &models.DedupCandidate{
		ListingAID:  listingA,
		ListingBID:  listingB,
		Score:       scored.Score,
		FieldScores: scored.FieldScores,
		Status:      models.CandidateStatusPending,
		RunID:       &runID,
	}

	created, err := e.candidates.InsertIfAbsent(ctx, candidate)
	if err != nil {
		return true, false, fmt.Errorf("pair %s/%s: %v", listingA, listingB, err)
	}

	return true, created, nil
}
