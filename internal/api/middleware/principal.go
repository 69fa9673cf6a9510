package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/investae/investments-api/internal/api/metrics"
	"github.com/investae/investments-api/internal/core/domain"
	"github.com/investae/investments-api/internal/core/ports"
)

const bearerScheme = "bearer"

// ResolvePrincipal verifies the bearer token, if any, and installs the
// matching principal into the request context. It never rejects a request:
// a missing or bad token leaves the request anonymous and the access gates
// further down decide. Role and national ID come from the identity store, so
// a role change applies to tokens issued before it.
func ResolvePrincipal(tokens ports.TokenCodec, store ports.IdentityStore, clock ports.Clock, log zerolog.Logger) echo.MiddlewareFunc {
	if clock == nil {
		clock = time.Now
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return next(c)
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, bearerScheme) || strings.TrimSpace(token) == "" {
				metrics.TokenRejectionsTotal.WithLabelValues("malformed_header").Inc()
				return next(c)
			}

			claims, err := tokens.Verify(strings.TrimSpace(token), clock())
			if err != nil {
				metrics.TokenRejectionsTotal.WithLabelValues("invalid_token").Inc()
				log.Debug().Str("path", c.Path()).Msg("bearer token rejected")
				return next(c)
			}

			ctx := c.Request().Context()
			cred, err := store.FindByUsername(ctx, claims.Subject)
			if err != nil {
				if errors.Is(err, domain.ErrCredentialNotFound) {
					metrics.TokenRejectionsTotal.WithLabelValues("unknown_subject").Inc()
					log.Debug().Str("username", claims.Subject).Msg("token subject no longer registered")
				} else {
					log.Warn().Err(err).Str("username", claims.Subject).Msg("principal lookup failed")
				}
				return next(c)
			}

			p := domain.Principal{Username: cred.Username, Role: cred.Role, NationalID: cred.NationalID}
			c.SetRequest(c.Request().WithContext(domain.WithPrincipal(ctx, p)))
			return next(c)
		}
	}
}
