package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Capybaralifestyle/moonshot-poc/internal/domain"
)

// LatestProject returns the caller's most recent persisted run, optionally
// filtered by a description query parameter. A valid bearer token is
// required; history is always scoped to the token's subject.
// GET /projects/latest
func (h *Handler) LatestProject(c echo.Context) error {
	claims := h.claims(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": domain.ErrUnauthorized.Error()})
	}
	if h.store == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "persistence is not configured"})
	}

	ctx := c.Request().Context()
	var (
		run *domain.PersistedRun
		err error
	)
	if description := c.QueryParam("description"); description != "" {
		run, err = h.store.LatestRunByDescription(ctx, claims.Subject, description)
	} else {
		run, err = h.store.LatestRun(ctx, claims.Subject)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no runs found"})
	}
	if err != nil {
		h.logger.Error("history query failed", "user_id", claims.Subject, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to query history"})
	}
	return c.JSON(http.StatusOK, run)
}
