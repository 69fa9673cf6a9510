package ports

import (
	"context"
	"time"

	"github.com/investae/investments-api/internal/core/domain"
)

// DailyReturnInput is one raw daily-return row as received from a client.
type DailyReturnInput struct {
	Date              string // dd-MM-yyyy
	SharePrice        float64
	DailyRate         float64
	AccumulatedAmount float64
}

// InvestmentInput carries the mutable fields of an investment.
type InvestmentInput struct {
	BankName          string
	Name              string
	Type              string
	InitialAmount     float64
	InitialSharePrice float64
	ReturnRate        float64
	InitialShares     int
	DailyReturns      []DailyReturnInput
}

// InvestmentService exposes investor and investment operations. Every method
// authorizes against the principal carried in ctx.
type InvestmentService interface {
	CreateOwn(ctx context.Context, in InvestmentInput, idempotencyKey string) (*domain.Investment, error)
	ListOwn(ctx context.Context) ([]*domain.Investment, error)
	ListByOwner(ctx context.Context, owner string) ([]*domain.Investment, error)
	ListAll(ctx context.Context) ([]*domain.Investment, error)
	Update(ctx context.Context, id string, in InvestmentInput) (*domain.Investment, error)
	Delete(ctx context.Context, id string) error
	// ReplaceInvestments overwrites the whole portfolio of an existing investor.
	ReplaceInvestments(ctx context.Context, nationalID string, in []InvestmentInput) ([]*domain.Investment, error)

	CreateInvestor(ctx context.Context, nationalID string) (*domain.Investor, error)
	GetInvestor(ctx context.Context, nationalID string) (*domain.Investor, error)
	ListInvestors(ctx context.Context) ([]*domain.Investor, error)
	DeleteInvestor(ctx context.Context, nationalID string) error
}

// DailyReturnDateLayout is the wire layout for daily-return dates.
const DailyReturnDateLayout = "02-01-2006"

// Clock returns the current time; services take one so tests can pin it.
type Clock func() time.Time
