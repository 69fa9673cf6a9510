// Package policy holds the authorization gates applied after a principal has
// been resolved for a request.
//
//	UNAUTHENTICATED -> AUTHENTICATED -> AUTHORIZED (role gate) -> PERMITTED (ownership gate)
//
// A failed transition is terminal for the request.
package policy

import (
	"context"

	"github.com/investae/investments-api/internal/core/domain"
)

// Role sets used by the HTTP routes.
var (
	AnyRole   = []domain.Role{domain.RoleUser, domain.RoleAdmin}
	AdminOnly = []domain.Role{domain.RoleAdmin}
)

// Authenticated returns the principal in ctx or ErrUnauthenticated.
func Authenticated(ctx context.Context) (domain.Principal, error) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok || p.Username == "" {
		return domain.Principal{}, domain.ErrUnauthenticated
	}
	return p, nil
}

// RoleGate passes when the principal's role is in allowed.
func RoleGate(p domain.Principal, allowed ...domain.Role) error {
	for _, r := range allowed {
		if p.Role == r {
			return nil
		}
	}
	return domain.ErrForbidden
}

// OwnershipGate passes for ADMIN unconditionally, otherwise only when target
// is the principal's own national ID.
func OwnershipGate(p domain.Principal, target domain.NationalID) error {
	if p.IsAdmin() {
		return nil
	}
	if p.NationalID.IsZero() || target.IsZero() || !p.NationalID.Equal(target) {
		return domain.ErrForbidden
	}
	return nil
}

// Authorize runs the authentication check and the role gate in order.
func Authorize(ctx context.Context, allowed ...domain.Role) (domain.Principal, error) {
	p, err := Authenticated(ctx)
	if err != nil {
		return p, err
	}
	if err := RoleGate(p, allowed...); err != nil {
		return p, err
	}
	return p, nil
}

// AuthorizeOwner runs Authorize and then the ownership gate against target.
func AuthorizeOwner(ctx context.Context, target domain.NationalID, allowed ...domain.Role) (domain.Principal, error) {
	p, err := Authorize(ctx, allowed...)
	if err != nil {
		return p, err
	}
	if err := OwnershipGate(p, target); err != nil {
		return p, err
	}
	return p, nil
}
