package candidate

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/internal/appcontext"
	"github.com/Ramsey-B/clover/internal/repositories/dedupcandidate"
	"github.com/Ramsey-B/clover/pkg/models"
)

// Register registers duplicate candidate review routes
func Register(g *echo.Group) {
	g.GET("", ListCandidates)
	g.GET("/:id", GetCandidate)
	g.POST("/:id/approve", ApproveCandidate)
	g.POST("/:id/reject", RejectCandidate)
}

// ListCandidates lists candidates awaiting review, highest score first
func ListCandidates(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return httperror.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	ctx, repo, err := ectoinject.GetContext[*dedupcandidate.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	listingA := c.QueryParam("listing_a_id")
	listingB := c.QueryParam("listing_b_id")
	if listingA != "" || listingB != "" {
		if listingA == "" || listingB == "" {
			return httperror.NewHTTPError(http.StatusBadRequest, "listing_a_id and listing_b_id must be provided together")
		}
		candidate, err := repo.GetByPair(ctx, listingA, listingB)
		if err != nil {
			return err
		}
		items := []models.DedupCandidate{}
		if candidate != nil {
			items = append(items, *candidate)
		}
		return c.JSON(http.StatusOK, items)
	}

	candidates, err := repo.ListPending(ctx, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, candidates)
}

// GetCandidate gets a candidate by ID
func GetCandidate(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*dedupcandidate.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	candidate, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, candidate)
}

// ApproveCandidate confirms a pending candidate as a true duplicate.
// The pair merges on the next auto-merge pass regardless of score.
func ApproveCandidate(c echo.Context) error {
	return resolveCandidate(c, models.CandidateStatusApproved, "Approved duplicate candidate")
}

// RejectCandidate dismisses a pending candidate as a false positive
func RejectCandidate(c echo.Context) error {
	return resolveCandidate(c, models.CandidateStatusRejected, "Rejected duplicate candidate")
}

func resolveCandidate(c echo.Context, status models.CandidateStatus, logMsg string) error {
	ctx := c.Request().Context()

	id := c.Param("id")

	var req models.ResolveCandidateRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var resolvedBy *string
	if userID := appcontext.GetUserID(ctx); userID != "" {
		resolvedBy = &userID
	}

	ctx, repo, err := ectoinject.GetContext[*dedupcandidate.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Resolve(ctx, id, status, resolvedBy); err != nil {
		return err
	}

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
	if logger != nil {
		fields := map[string]any{"id": id}
		if req.Reason != nil {
			fields["reason"] = *req.Reason
		}
		logger.WithContext(ctx).WithFields(fields).Info(logMsg)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": string(status)})
}
