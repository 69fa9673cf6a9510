package ports

import (
	"context"

	"github.com/investae/investments-api/internal/core/domain"
)

// InvestorRepository persists investor records and their investments.
type InvestorRepository interface {
	// EnsureInvestor creates the investor if absent. created is false when it already existed.
	EnsureInvestor(ctx context.Context, id domain.NationalID) (created bool, err error)
	FindInvestor(ctx context.Context, id domain.NationalID) (*domain.Investor, error)
	ListInvestors(ctx context.Context) ([]*domain.Investor, error)
	// DeleteInvestor removes the investor and every investment it owns.
	DeleteInvestor(ctx context.Context, id domain.NationalID) error

	CreateInvestment(ctx context.Context, inv *domain.Investment) error
	FindInvestment(ctx context.Context, id string) (*domain.Investment, error)
	ListInvestments(ctx context.Context) ([]*domain.Investment, error)
	ListInvestmentsByOwner(ctx context.Context, owner domain.NationalID) ([]*domain.Investment, error)
	UpdateInvestment(ctx context.Context, inv *domain.Investment) error
	DeleteInvestment(ctx context.Context, id string) error
	// ReplaceInvestments drops every investment owned by owner and stores invs
	// in their place.
	ReplaceInvestments(ctx context.Context, owner domain.NationalID, invs []*domain.Investment) error
}

// IdempotencyGuard claims a client-supplied idempotency key once per TTL.
type IdempotencyGuard interface {
	// Claim returns false when the key was already claimed.
	Claim(ctx context.Context, scope, key string) (bool, error)
	// Release forgets a claim so the key can be retried. Releasing an
	// unclaimed key is not an error.
	Release(ctx context.Context, scope, key string) error
}

// ProvisioningQueue retries investor provisioning in the background.
type ProvisioningQueue interface {
	// Enqueue schedules id and reports false when the queue is full.
	Enqueue(id domain.NationalID) bool
}
