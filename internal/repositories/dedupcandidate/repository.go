package dedupcandidate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/internal/database"
	"github.com/Ramsey-B/clover/internal/tracing"
	"github.com/Ramsey-B/clover/pkg/models"
)

const candidateColumns = "id, listing_a_id, listing_b_id, score, field_scores, status, run_id, resolved_by, resolved_at, created_at, updated_at"

// candidateRow carries the JSONB field_scores column alongside the model
type candidateRow struct {
	models.DedupCandidate
	FieldScoresJSON json.RawMessage `db:"field_scores"`
}

func (row *candidateRow) toModel() (models.DedupCandidate, error) {
	candidate := row.DedupCandidate
	if len(row.FieldScoresJSON) > 0 {
		if err := json.Unmarshal(row.FieldScoresJSON, &candidate.FieldScores); err != nil {
			return candidate, fmt.Errorf("failed to decode field scores for candidate %s: %w", candidate.ID, err)
		}
	}
	return candidate, nil
}

// Repository handles dedup candidate persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new dedup candidate repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// DB exposes the underlying database for transaction control
func (r *Repository) DB() database.DB {
	return r.db
}

// InsertIfAbsent creates a candidate unless an open candidate already
// exists for the pair. Relies on the partial unique index over
// (listing_a_id, listing_b_id) WHERE status <> 'REJECTED'. Returns true
// when a row was inserted.
func (r *Repository) InsertIfAbsent(ctx context.Context, candidate *models.DedupCandidate) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "dedupcandidate.Repository.InsertIfAbsent")
	defer span.End()

	if candidate.ListingAID >= candidate.ListingBID {
		return false, httperror.NewHTTPError(http.StatusBadRequest, "candidate pair must be ordered")
	}

	if candidate.ID == "" {
		candidate.ID = uuid.New().String()
	}
	candidate.CreatedAt = time.Now().UTC()
	candidate.UpdatedAt = candidate.CreatedAt
	if candidate.Status == "" {
		candidate.Status = models.CandidateStatusPending
	}

	fieldScores, err := json.Marshal(candidate.FieldScores)
	if err != nil {
		return false, fmt.Errorf("failed to encode field scores: %w", err)
	}

	query, args := database.NewInsertBuilder().
		InsertInto("dedup_candidates").
		Cols("id", "listing_a_id", "listing_b_id", "score", "field_scores", "status", "run_id", "created_at", "updated_at").
		Values(candidate.ID, candidate.ListingAID, candidate.ListingBID, candidate.Score, fieldScores, candidate.Status, candidate.RunID, candidate.CreatedAt, candidate.UpdatedAt).
		OnConflictDoNothing().
		Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"listing_a_id": candidate.ListingAID, "listing_b_id": candidate.ListingBID}).Error("Failed to create dedup candidate")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create dedup candidate")
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// Get retrieves a candidate by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.DedupCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "dedupcandidate.Repository.Get")
	defer span.End()

	query := "SELECT " + candidateColumns + " FROM dedup_candidates WHERE id = $1"

	var row candidateRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("dedup candidate %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get dedup candidate")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get dedup candidate")
	}

	candidate, err := row.toModel()
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to decode dedup candidate")
	}

	return &candidate, nil
}

// GetByPair gets an existing open candidate for an unordered pair
func (r *Repository) GetByPair(ctx context.Context, listingA, listingB string) (*models.DedupCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "dedupcandidate.Repository.GetByPair")
	defer span.End()

	query := "SELECT " + candidateColumns + ` FROM dedup_candidates
		WHERE ((listing_a_id = $1 AND listing_b_id = $2) OR (listing_a_id = $2 AND listing_b_id = $1))
		AND status <> $3
		LIMIT 1`

	var row candidateRow
	if err := r.db.GetContext(ctx, &row, query, listingA, listingB, models.CandidateStatusRejected); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil // No open candidate
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get dedup candidate by pair")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get dedup candidate")
	}

	candidate, err := row.toModel()
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to decode dedup candidate")
	}

	return &candidate, nil
}

// ListPending retrieves pending candidates for review, highest score first
func (r *Repository) ListPending(ctx context.Context, limit int) ([]models.DedupCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "dedupcandidate.Repository.ListPending")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(candidateColumns)
	sb.From("dedup_candidates")
	sb.Where(sb.Equal("status", models.CandidateStatusPending))
	sb.OrderBy("score DESC", "created_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	return r.selectCandidates(ctx, query, args...)
}

// ListOpen retrieves every open edge (pending or approved). The merge
// engine builds its groups from this set.
func (r *Repository) ListOpen(ctx context.Context) ([]models.DedupCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "dedupcandidate.Repository.ListOpen")
	defer span.End()

	query := "SELECT " + candidateColumns + ` FROM dedup_candidates
		WHERE status IN ($1, $2)
		ORDER BY listing_a_id, listing_b_id`

	return r.selectCandidates(ctx, query, models.CandidateStatusPending, models.CandidateStatusApproved)
}

// ListOpenByListings retrieves all open candidates touching any of the
// given listings. Used to gate merge groups on conflicting edges.
func (r *Repository) ListOpenByListings(ctx context.Context, listingIDs []string) ([]models.DedupCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "dedupcandidate.Repository.ListOpenByListings")
	defer span.End()

	if len(listingIDs) == 0 {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(candidateColumns)
	sb.From("dedup_candidates")
	ids := idsToAny(listingIDs)
	sb.Where(
		sb.Or(sb.In("listing_a_id", ids...), sb.In("listing_b_id", ids...)),
		sb.In("status", models.CandidateStatusPending, models.CandidateStatusApproved),
	)
	sb.OrderBy("listing_a_id", "listing_b_id")

	query, args := sb.Build()
	return r.selectCandidates(ctx, query, args...)
}

// CountPending counts candidates awaiting review
func (r *Repository) CountPending(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "dedupcandidate.Repository.CountPending")
	defer span.End()

	var count int
	query := "SELECT COUNT(*) FROM dedup_candidates WHERE status = $1"
	if err := r.db.GetContext(ctx, &count, query, models.CandidateStatusPending); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count pending candidates")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count pending candidates")
	}

	return count, nil
}

// Resolve transitions a pending candidate to APPROVED or REJECTED
func (r *Repository) Resolve(ctx context.Context, id string, status models.CandidateStatus, resolvedBy *string) error {
	ctx, span := tracing.StartSpan(ctx, "dedupcandidate.Repository.Resolve")
	defer span.End()

	if status != models.CandidateStatusApproved && status != models.CandidateStatusRejected {
		return httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid candidate resolution %s", status))
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("dedup_candidates")
	sb.Set(
		sb.Assign("status", status),
		sb.Assign("resolved_at", now),
		sb.Assign("resolved_by", resolvedBy),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("status", models.CandidateStatusPending),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to resolve dedup candidate")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve dedup candidate")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("pending dedup candidate %s not found", id))
	}

	return nil
}

// MarkMerged marks candidates consumed by an executed merge
func (r *Repository) MarkMerged(ctx context.Context, ids []string) error {
	ctx, span := tracing.StartSpan(ctx, "dedupcandidate.Repository.MarkMerged")
	defer span.End()

	if len(ids) == 0 {
		return nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("dedup_candidates")
	sb.Set(
		sb.Assign("status", models.CandidateStatusMerged),
		sb.Assign("resolved_at", now),
		sb.Assign("updated_at", now),
	)
	sb.Where(sb.In("id", idsToAny(ids)...))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to mark candidates as merged")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark candidates as merged")
	}

	return nil
}

func (r *Repository) selectCandidates(ctx context.Context, query string, args ...any) ([]models.DedupCandidate, error) {
	var rows []candidateRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list dedup candidates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list dedup candidates")
	}

	candidates := make([]models.DedupCandidate, 0, len(rows))
	for i := range rows {
		candidate, err := rows[i].toModel()
		if err != nil {
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to decode dedup candidate")
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

func idsToAny(ids []string) []any {
	result := make([]any, len(ids))
	for i, id := range ids {
		result[i] = id
	}
	return result
}
