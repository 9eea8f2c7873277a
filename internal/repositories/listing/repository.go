package listing

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/internal/database"
	"github.com/Ramsey-B/clover/internal/tracing"
	"github.com/Ramsey-B/clover/pkg/models"
)

const listingColumns = "id, platform, source_listing_id, title, address, city, state, trade_category, asking_price, annual_revenue, ebitda, broker_name, broker_phone, broker_email, first_seen_at, last_seen_at, superseded_by, created_at, updated_at, deleted_at"

// referencingTables carry a listing_id foreign key that must follow the
// canonical listing when a merge folds records together
var referencingTables = []string{"opportunities", "documents", "notes"}

// Repository handles listing persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new listing repository
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

// InTx runs fn inside a transaction carried on the context. Nested
// calls join the outer transaction; only the outermost call commits.
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ctxTx, tx, err := r.db.GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctxTx); err != nil {
		return err
	}

	return tx.Commit(ctxTx)
}

// Get retrieves a listing by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Listing, error) {
	ctx, span := tracing.StartSpan(ctx, "listing.Repository.Get")
	defer span.End()

	query := "SELECT " + listingColumns + " FROM listings WHERE id = $1"

	var listing models.Listing
	if err := r.db.GetContext(ctx, &listing, query, id); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("listing %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get listing")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get listing")
	}

	return &listing, nil
}

// GetWindow retrieves active listings seen since the given time
func (r *Repository) GetWindow(ctx context.Context, since time.Time) ([]models.Listing, error) {
	ctx, span := tracing.StartSpan(ctx, "listing.Repository.GetWindow")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(listingColumns)
	sb.From("listings")
	sb.Where(
		sb.GreaterEqualThan("last_seen_at", since),
		sb.IsNull("superseded_by"),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("id")

	query, args := sb.Build()
	var listings []models.Listing
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load listing window")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load listing window")
	}

	return listings, nil
}

// GetByIDs retrieves listings by their IDs
func (r *Repository) GetByIDs(ctx context.Context, ids []string) ([]models.Listing, error) {
	ctx, span := tracing.StartSpan(ctx, "listing.Repository.GetByIDs")
	defer span.End()

	if len(ids) == 0 {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(listingColumns)
	sb.From("listings")
	sb.Where(sb.In("id", idsToAny(ids)...))

	query, args := sb.Build()
	var listings []models.Listing
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get listings by ids")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get listings")
	}

	return listings, nil
}

// Supersede points the given listings at their canonical survivor
func (r *Repository) Supersede(ctx context.Context, ids []string, canonicalID string) error {
	ctx, span := tracing.StartSpan(ctx, "listing.Repository.Supersede")
	defer span.End()

	if len(ids) == 0 {
		return nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("listings")
	sb.Set(
		sb.Assign("superseded_by", canonicalID),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.In("id", idsToAny(ids)...),
		sb.IsNull("superseded_by"),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to supersede listings")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to supersede listings")
	}

	rows, _ := result.RowsAffected()
	if rows != int64(len(ids)) {
		return httperror.NewHTTPError(http.StatusConflict, "listing state changed during merge")
	}

	return nil
}

// ReassignReferences moves listing foreign keys from the merged
// listings onto the canonical survivor
func (r *Repository) ReassignReferences(ctx context.Context, fromIDs []string, toID string) error {
	ctx, span := tracing.StartSpan(ctx, "listing.Repository.ReassignReferences")
	defer span.End()

	if len(fromIDs) == 0 {
		return nil
	}

	for _, table := range referencingTables {
		sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
		sb.Update(table)
		sb.Set(sb.Assign("listing_id", toID))
		sb.Where(sb.In("listing_id", idsToAny(fromIDs)...))

		query, args := sb.Build()
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"table": table}).Error("Failed to reassign listing references")
			return httperror.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to reassign %s references", table))
		}
	}

	return nil
}

func idsToAny(ids []string) []any {
	result := make([]any, len(ids))
	for i, id := range ids {
		result[i] = id
	}
	return result
}
