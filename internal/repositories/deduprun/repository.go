package deduprun

import (
	"context"
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

// Repository is the write-only audit log of engine runs
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new dedup run repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Start records a new run in the running state
func (r *Repository) Start(ctx context.Context, runType models.RunType, windowDays *int) (*models.DedupRun, error) {
	ctx, span := tracing.StartSpan(ctx, "deduprun.Repository.Start")
	defer span.End()

	run := &models.DedupRun{
		ID:         uuid.New().String(),
		RunType:    runType,
		Status:     models.RunStatusRunning,
		WindowDays: windowDays,
		StartedAt:  time.Now().UTC(),
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("dedup_runs")
	sb.Cols("id", "run_type", "status", "window_days", "started_at")
	sb.Values(run.ID, run.RunType, run.Status, run.WindowDays, run.StartedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to record dedup run start")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to record dedup run")
	}

	return run, nil
}

// Finish records the terminal state and counters of a run
func (r *Repository) Finish(ctx context.Context, runID string, status models.RunStatus, summary *models.RunSummary, errorDetail *string) error {
	ctx, span := tracing.StartSpan(ctx, "deduprun.Repository.Finish")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("dedup_runs")
	assignments := []string{
		sb.Assign("status", status),
		sb.Assign("finished_at", now),
		sb.Assign("error_detail", errorDetail),
	}
	if summary != nil {
		assignments = append(assignments,
			sb.Assign("listings_scanned", summary.ListingsScanned),
			sb.Assign("pairs_compared", summary.PairsCompared),
			sb.Assign("candidates_found", summary.CandidatesFound),
			sb.Assign("groups_created", summary.GroupsCreated),
			sb.Assign("auto_merged", summary.AutoMerged),
			sb.Assign("pending_review", summary.PendingReview),
		)
	}
	sb.Set(assignments...)
	sb.Where(sb.Equal("id", runID))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to record dedup run finish")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to record dedup run")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("dedup run %s not found", runID))
	}

	return nil
}

// Get retrieves a run by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.DedupRun, error) {
	ctx, span := tracing.StartSpan(ctx, "deduprun.Repository.Get")
	defer span.End()

	query := `SELECT id, run_type, status, window_days, listings_scanned, pairs_compared, candidates_found, groups_created, auto_merged, pending_review, error_detail, started_at, finished_at
		FROM dedup_runs WHERE id = $1`

	var run models.DedupRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("dedup run %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get dedup run")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get dedup run")
	}

	return &run, nil
}
