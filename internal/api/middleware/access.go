package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/investae/investments-api/internal/api/metrics"
	"github.com/investae/investments-api/internal/core/domain"
	"github.com/investae/investments-api/internal/core/policy"
)

// RequireRole rejects requests without a principal (401) or whose principal
// holds none of the allowed roles (403).
func RequireRole(allowed ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := policy.Authorize(c.Request().Context(), allowed...); err != nil {
				metrics.AccessDeniedTotal.WithLabelValues(domain.KindOf(err).String()).Inc()
				return err
			}
			return next(c)
		}
	}
}

// RequireOwner applies the ownership gate to the national ID in path param
// name. ADMIN passes for any ID. The route must already require a role.
func RequireOwner(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			target, err := domain.ParseNationalID(c.Param(param))
			if err != nil {
				return err
			}
			if _, err := policy.AuthorizeOwner(c.Request().Context(), target, policy.AnyRole...); err != nil {
				metrics.AccessDeniedTotal.WithLabelValues(domain.KindOf(err).String()).Inc()
				return err
			}
			return next(c)
		}
	}
}
