package run

import (
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/internal/repositories/deduprun"
	"github.com/Ramsey-B/clover/pkg/dedup"
	"github.com/Ramsey-B/clover/pkg/models"
)

var validate = validator.New()

// Register registers dedup run routes
func Register(g *echo.Group) {
	g.POST("", TriggerRun)
	g.POST("/automerge", TriggerAutoMerge)
	g.GET("/:id", GetRun)
}

// TriggerRun starts a full deduplication run and returns its summary.
// Responds 409 when a run is already in flight.
func TriggerRun(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.TriggerRunRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, coordinator, err := ectoinject.GetContext[*dedup.Coordinator](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	summary, err := coordinator.RunDeduplication(ctx, req.WindowDays)
	if err != nil {
		if errors.Is(err, dedup.ErrRunInFlight) {
			return httperror.NewHTTPError(http.StatusConflict, "a deduplication run is already in flight")
		}
		return err
	}

	return c.JSON(http.StatusOK, summary)
}

// TriggerAutoMerge merges already-qualified candidates without scanning
func TriggerAutoMerge(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, coordinator, err := ectoinject.GetContext[*dedup.Coordinator](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	merged, err := coordinator.AutoMergeCandidates(ctx)
	if err != nil {
		if errors.Is(err, dedup.ErrRunInFlight) {
			return httperror.NewHTTPError(http.StatusConflict, "an auto-merge run is already in flight")
		}
		return err
	}

	return c.JSON(http.StatusOK, map[string]int{"merged_groups": merged})
}

// GetRun gets a run audit record by ID
func GetRun(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*deduprun.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	record, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, record)
}
