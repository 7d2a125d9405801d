package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Capybaralifestyle/moonshot-poc/internal/auth"
)

// rateLimit throttles run requests per caller: the token when one is
// presented, the remote address otherwise. Redis errors fail open so a
// cache hiccup never turns into an outage.
func (h *Handler) rateLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if h.limiter == nil || !h.bucket.Enabled() {
				return next(c)
			}

			subject := auth.BearerToken(c.Request().Header.Get("Authorization"))
			if subject == "" {
				subject = c.RealIP()
			}

			dec, err := h.limiter.Allow(c.Request().Context(), "run", subject, h.bucket)
			if err != nil {
				h.logger.Warn("rate limit check failed", "err", err)
				return next(c)
			}
			if !dec.Allowed {
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(dec.RetryAfter.Seconds())))
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}
