package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/investae/investments-api/internal/core/domain"
)

// caller returns the principal installed by the resolver middleware, or nil
// for anonymous requests.
func caller(c echo.Context) *domain.Principal {
	p, ok := domain.PrincipalFromContext(c.Request().Context())
	if !ok {
		return nil
	}
	return &p
}

// bindAndValidate decodes the body into req and runs struct validation.
// Decode failures are reported as validation errors on the body.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.NewValidationError("body", "invalid payload")
	}
	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(req)
}
