package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/investae/investments-api/internal/core/domain"
	"github.com/investae/investments-api/internal/core/policy"
	"github.com/investae/investments-api/internal/core/ports"
)

// InvestmentService manages investor records and their investments. Every
// method reads the principal from ctx and applies the role and ownership gates
// itself, so handlers never make access decisions.
type InvestmentService struct {
	repo   ports.InvestorRepository
	guard  ports.IdempotencyGuard
	clock  ports.Clock
	logger zerolog.Logger
}

// NewInvestmentService wires the service. guard may be nil, in which case
// idempotency keys are ignored.
func NewInvestmentService(repo ports.InvestorRepository, guard ports.IdempotencyGuard, clock ports.Clock, logger zerolog.Logger) *InvestmentService {
	if clock == nil {
		clock = time.Now
	}
	return &InvestmentService{repo: repo, guard: guard, clock: clock, logger: logger}
}

// CreateOwn records an investment for the calling principal. A repeated
// idempotency key is rejected as a conflict; a failed write releases the key.
func (s *InvestmentService) CreateOwn(ctx context.Context, in ports.InvestmentInput, idempotencyKey string) (*domain.Investment, error) {
	p, err := policy.Authorize(ctx, policy.AnyRole...)
	if err != nil {
		return nil, err
	}
	if err := s.requireInvestor(ctx, p.NationalID); err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	inv, err := buildInvestment(in)
	if err != nil {
		return nil, err
	}

	key := strings.TrimSpace(idempotencyKey)
	if key != "" && s.guard != nil {
		claimed, err := s.guard.Claim(ctx, p.Username, key)
		if err != nil {
			return nil, domain.NewInternalError("claim idempotency key", err)
		}
		if !claimed {
			s.logger.Info().Str("username", p.Username).Str("idempotency_key", key).Msg("duplicate investment request")
			return nil, domain.NewConflictError("Idempotency-Key", "request already processed")
		}
	}

	inv.ID = uuid.NewString()
	inv.NationalID = p.NationalID
	inv.CreatedAt = now
	inv.UpdatedAt = now
	if err := s.repo.CreateInvestment(ctx, inv); err != nil {
		s.logger.Error().Err(err).Str("username", p.Username).Msg("failed to create investment")
		if key != "" && s.guard != nil {
			if rerr := s.guard.Release(ctx, p.Username, key); rerr != nil {
				s.logger.Error().Err(rerr).Str("username", p.Username).Str("idempotency_key", key).Msg("failed to release idempotency key")
			}
		}
		return nil, repoError("create investment", err)
	}

	s.logger.Info().Str("investment_id", inv.ID).Str("username", p.Username).Msg("investment created")
	return inv, nil
}

// ListOwn returns the calling principal's investments.
func (s *InvestmentService) ListOwn(ctx context.Context) ([]*domain.Investment, error) {
	p, err := policy.Authorize(ctx, policy.AnyRole...)
	if err != nil {
		return nil, err
	}
	return s.listFor(ctx, p.NationalID)
}

// ListByOwner returns the investments of owner. Non-admin callers may only
// name themselves.
func (s *InvestmentService) ListByOwner(ctx context.Context, owner string) ([]*domain.Investment, error) {
	p, err := policy.Authorize(ctx, policy.AnyRole...)
	if err != nil {
		return nil, err
	}
	id, err := domain.ParseNationalID(owner)
	if err != nil {
		return nil, err
	}
	if err := policy.OwnershipGate(p, id); err != nil {
		return nil, err
	}
	return s.listFor(ctx, id)
}

// ListAll returns every investment. ADMIN only.
func (s *InvestmentService) ListAll(ctx context.Context) ([]*domain.Investment, error) {
	if _, err := policy.Authorize(ctx, policy.AdminOnly...); err != nil {
		return nil, err
	}
	list, err := s.repo.ListInvestments(ctx)
	if err != nil {
		return nil, repoError("list investments", err)
	}
	return list, nil
}

// Update replaces the mutable fields of investment id. The owner and
// creation time never change.
func (s *InvestmentService) Update(ctx context.Context, id string, in ports.InvestmentInput) (*domain.Investment, error) {
	p, existing, err := s.ownedInvestment(ctx, id)
	if err != nil {
		return nil, err
	}

	inv, err := buildInvestment(in)
	if err != nil {
		return nil, err
	}
	inv.ID = existing.ID
	inv.NationalID = existing.NationalID
	inv.CreatedAt = existing.CreatedAt
	inv.UpdatedAt = s.clock().UTC()

	if err := s.repo.UpdateInvestment(ctx, inv); err != nil {
		return nil, repoError("update investment", err)
	}
	s.logger.Info().Str("investment_id", inv.ID).Str("username", p.Username).Msg("investment updated")
	return inv, nil
}

// Delete removes investment id.
func (s *InvestmentService) Delete(ctx context.Context, id string) error {
	p, existing, err := s.ownedInvestment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteInvestment(ctx, existing.ID); err != nil {
		return repoError("delete investment", err)
	}
	s.logger.Info().Str("investment_id", existing.ID).Str("username", p.Username).Msg("investment deleted")
	return nil
}

// ReplaceInvestments discards every investment of nationalID and stores in
// instead. The investor must exist and in must not be empty.
func (s *InvestmentService) ReplaceInvestments(ctx context.Context, nationalID string, in []ports.InvestmentInput) ([]*domain.Investment, error) {
	p, err := policy.Authorize(ctx, policy.AnyRole...)
	if err != nil {
		return nil, err
	}
	id, err := domain.ParseNationalID(nationalID)
	if err != nil {
		return nil, err
	}
	if err := policy.OwnershipGate(p, id); err != nil {
		return nil, err
	}
	if len(in) == 0 {
		return nil, domain.NewValidationError("investments", "investments must not be empty")
	}
	if err := s.requireInvestor(ctx, id); err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	invs := make([]*domain.Investment, 0, len(in))
	for _, item := range in {
		inv, err := buildInvestment(item)
		if err != nil {
			return nil, err
		}
		inv.ID = uuid.NewString()
		inv.NationalID = id
		inv.CreatedAt = now
		inv.UpdatedAt = now
		invs = append(invs, inv)
	}

	if err := s.repo.ReplaceInvestments(ctx, id, invs); err != nil {
		return nil, repoError("replace investments", err)
	}
	s.logger.Info().Str("username", p.Username).Int("count", len(invs)).Msg("investments replaced")
	return invs, nil
}

// CreateInvestor provisions an investor record. ADMIN only.
func (s *InvestmentService) CreateInvestor(ctx context.Context, nationalID string) (*domain.Investor, error) {
	p, err := policy.Authorize(ctx, policy.AdminOnly...)
	if err != nil {
		return nil, err
	}
	id, err := domain.ParseNationalID(nationalID)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.EnsureInvestor(ctx, id)
	if err != nil {
		return nil, repoError("create investor", err)
	}
	if !created {
		return nil, domain.NewConflictError("nationalId", "investor already exists")
	}
	s.logger.Info().Str("username", p.Username).Msg("investor provisioned")

	inv, err := s.repo.FindInvestor(ctx, id)
	if err != nil {
		return nil, repoError("find investor", err)
	}
	return inv, nil
}

// GetInvestor returns the investor record for nationalID, subject to ownership.
func (s *InvestmentService) GetInvestor(ctx context.Context, nationalID string) (*domain.Investor, error) {
	p, err := policy.Authorize(ctx, policy.AnyRole...)
	if err != nil {
		return nil, err
	}
	id, err := domain.ParseNationalID(nationalID)
	if err != nil {
		return nil, err
	}
	if err := policy.OwnershipGate(p, id); err != nil {
		return nil, err
	}

	inv, err := s.repo.FindInvestor(ctx, id)
	if err != nil {
		return nil, repoError("find investor", err)
	}
	return inv, nil
}

// ListInvestors returns every investor record. ADMIN only.
func (s *InvestmentService) ListInvestors(ctx context.Context) ([]*domain.Investor, error) {
	if _, err := policy.Authorize(ctx, policy.AdminOnly...); err != nil {
		return nil, err
	}
	list, err := s.repo.ListInvestors(ctx)
	if err != nil {
		return nil, repoError("list investors", err)
	}
	return list, nil
}

// DeleteInvestor removes an investor and its investments. ADMIN only.
func (s *InvestmentService) DeleteInvestor(ctx context.Context, nationalID string) error {
	p, err := policy.Authorize(ctx, policy.AdminOnly...)
	if err != nil {
		return err
	}
	id, err := domain.ParseNationalID(nationalID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteInvestor(ctx, id); err != nil {
		return repoError("delete investor", err)
	}
	s.logger.Info().Str("username", p.Username).Msg("investor deleted")
	return nil
}

func (s *InvestmentService) requireInvestor(ctx context.Context, id domain.NationalID) error {
	if id.IsZero() {
		return domain.ErrInvestorNotFound
	}
	if _, err := s.repo.FindInvestor(ctx, id); err != nil {
		return repoError("find investor", err)
	}
	return nil
}

func (s *InvestmentService) listFor(ctx context.Context, id domain.NationalID) ([]*domain.Investment, error) {
	if err := s.requireInvestor(ctx, id); err != nil {
		return nil, err
	}
	list, err := s.repo.ListInvestmentsByOwner(ctx, id)
	if err != nil {
		return nil, repoError("list investments", err)
	}
	return list, nil
}

// ownedInvestment loads investment id and applies the ownership gate against
// its owner.
func (s *InvestmentService) ownedInvestment(ctx context.Context, id string) (domain.Principal, *domain.Investment, error) {
	p, err := policy.Authorize(ctx, policy.AnyRole...)
	if err != nil {
		return p, nil, err
	}
	existing, err := s.repo.FindInvestment(ctx, id)
	if err != nil {
		return p, nil, repoError("find investment", err)
	}
	if err := policy.OwnershipGate(p, existing.NationalID); err != nil {
		s.logger.Warn().Str("username", p.Username).Str("investment_id", id).Msg("ownership check failed")
		return p, nil, err
	}
	return p, existing, nil
}

// buildInvestment validates in and returns an investment without identity fields.
func buildInvestment(in ports.InvestmentInput) (*domain.Investment, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "name is required")
	}
	typ, err := domain.ParseInvestmentType(in.Type)
	if err != nil {
		return nil, err
	}
	if in.InitialAmount <= 0 {
		return nil, domain.NewValidationError("initialAmount", "initialAmount must be greater than zero")
	}
	if in.InitialSharePrice < 0 {
		return nil, domain.NewValidationError("initialSharePrice", "initialSharePrice must not be negative")
	}
	if in.InitialShares < 0 {
		return nil, domain.NewValidationError("initialShares", "initialShares must not be negative")
	}

	returns := make([]domain.DailyReturn, 0, len(in.DailyReturns))
	for _, dr := range in.DailyReturns {
		date, err := time.Parse(ports.DailyReturnDateLayout, strings.TrimSpace(dr.Date))
		if err != nil {
			return nil, domain.NewValidationError("dailyReturns.date", "date must use the dd-MM-yyyy layout")
		}
		returns = append(returns, domain.DailyReturn{
			Date:              date,
			SharePrice:        dr.SharePrice,
			DailyRate:         dr.DailyRate,
			AccumulatedAmount: dr.AccumulatedAmount,
		})
	}

	return &domain.Investment{
		BankName:          strings.TrimSpace(in.BankName),
		Name:              name,
		Type:              typ,
		InitialAmount:     in.InitialAmount,
		InitialSharePrice: in.InitialSharePrice,
		ReturnRate:        in.ReturnRate,
		InitialShares:     in.InitialShares,
		DailyReturns:      returns,
	}, nil
}

// repoError keeps tagged repository errors and wraps anything else as internal.
func repoError(op string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.NewInternalError(op, err)
}
