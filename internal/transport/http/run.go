package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Capybaralifestyle/moonshot-poc/internal/auth"
	"github.com/Capybaralifestyle/moonshot-poc/internal/domain"
	"github.com/Capybaralifestyle/moonshot-poc/policy"
)

// Run executes the selected agents over the request's description.
// POST /run and POST /projects/run
func (h *Handler) Run(c echo.Context) error {
	var req domain.RunRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	claims := h.claims(c)
	decision := h.persistDecision(c.Request().Context(), claims != nil, req.Persist)
	if decision == policy.DecisionReject {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": domain.ErrUnauthorized.Error()})
	}

	// A client disconnect must not abort in-flight agent calls.
	runCtx := context.WithoutCancel(c.Request().Context())
	results, err := h.orchestrator.Run(runCtx, req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyDescription),
			errors.Is(err, domain.ErrNoAgents),
			errors.Is(err, domain.ErrUnknownAgent):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}

	if decision == policy.DecisionPersist && h.store != nil && claims != nil {
		run := &domain.PersistedRun{
			ID:          uuid.New().String(),
			UserID:      claims.Subject,
			Description: req.Description,
			Results:     results,
			CreatedAt:   time.Now().UTC(),
		}
		// Persistence failures never alter the response already produced.
		if err := h.store.SaveRun(runCtx, run); err != nil {
			h.logger.Error("failed to persist run", "user_id", claims.Subject, "err", err)
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"results": results})
}

// claims verifies the bearer token, if any. Invalid tokens degrade to
// anonymous; the policy engine decides whether that is acceptable.
func (h *Handler) claims(c echo.Context) *auth.Claims {
	token := auth.BearerToken(c.Request().Header.Get("Authorization"))
	if token == "" || h.verifier == nil {
		return nil
	}
	claims, err := h.verifier.Verify(token)
	if err != nil {
		h.logger.Warn("bearer token rejected", "err", err)
		return nil
	}
	return claims
}

func (h *Handler) persistDecision(ctx context.Context, authenticated, persistRequested bool) string {
	if h.policy == nil {
		if authenticated {
			return policy.DecisionPersist
		}
		if persistRequested {
			return policy.DecisionReject
		}
		return policy.DecisionAnonymous
	}
	decision, err := h.policy.Evaluate(ctx, policy.Input{
		Authenticated:    authenticated,
		PersistRequested: persistRequested,
	})
	if err != nil {
		h.logger.Error("policy evaluation failed", "err", err)
		return policy.DecisionAnonymous
	}
	return decision
}
