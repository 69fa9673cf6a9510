// Package memory holds process-local implementations of the storage ports,
// used by `serve --memory` and by HTTP tests. Data is lost on exit.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/investae/investments-api/internal/core/domain"
)

// IdentityStore keeps credentials in a map keyed by username and enforces
// the same uniqueness rules as the Mongo indexes.
type IdentityStore struct {
	mu     sync.RWMutex
	byName map[string]domain.Credential
	seq    int
}

func NewIdentityStore() *IdentityStore {
	return &IdentityStore{byName: make(map[string]domain.Credential)}
}

func (s *IdentityStore) Create(_ context.Context, cred *domain.Credential) (*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.byName {
		switch {
		case c.Username == cred.Username:
			return nil, domain.NewConflictError("username", "username already registered")
		case cred.Email != "" && c.Email == cred.Email:
			return nil, domain.NewConflictError("email", "email already registered")
		case c.NationalID.Equal(cred.NationalID):
			return nil, domain.NewConflictError("nationalId", "nationalId already registered")
		}
	}

	s.seq++
	stored := *cred
	stored.ID = strconv.Itoa(s.seq)
	s.byName[stored.Username] = stored
	out := stored
	return &out, nil
}

func (s *IdentityStore) FindByUsername(_ context.Context, username string) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byName[username]
	if !ok {
		return nil, domain.ErrCredentialNotFound
	}
	return &c, nil
}

func (s *IdentityStore) FindByEmail(_ context.Context, email string) (*domain.Credential, error) {
	return s.find(func(c domain.Credential) bool { return email != "" && c.Email == email })
}

func (s *IdentityStore) FindByNationalID(_ context.Context, id domain.NationalID) (*domain.Credential, error) {
	return s.find(func(c domain.Credential) bool { return c.NationalID.Equal(id) })
}

func (s *IdentityStore) List(_ context.Context) ([]*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Credential, 0, len(s.byName))
	for _, c := range s.byName {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *IdentityStore) find(match func(domain.Credential) bool) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.byName {
		if match(c) {
			return &c, nil
		}
	}
	return nil, domain.ErrCredentialNotFound
}

// InvestorRepository keeps investors and investments in maps.
type InvestorRepository struct {
	mu          sync.RWMutex
	investors   map[string]domain.Investor
	investments map[string]*domain.Investment
	now         func() time.Time
}

func NewInvestorRepository() *InvestorRepository {
	return &InvestorRepository{
		investors:   make(map[string]domain.Investor),
		investments: make(map[string]*domain.Investment),
		now:         time.Now,
	}
}

func (r *InvestorRepository) EnsureInvestor(_ context.Context, id domain.NationalID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.investors[id.String()]; ok {
		return false, nil
	}
	r.investors[id.String()] = domain.Investor{NationalID: id, CreatedAt: r.now().UTC()}
	return true, nil
}

func (r *InvestorRepository) FindInvestor(_ context.Context, id domain.NationalID) (*domain.Investor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.investors[id.String()]
	if !ok {
		return nil, domain.ErrInvestorNotFound
	}
	return &inv, nil
}

func (r *InvestorRepository) ListInvestors(_ context.Context) ([]*domain.Investor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Investor, 0, len(r.investors))
	for _, inv := range r.investors {
		inv := inv
		out = append(out, &inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NationalID.String() < out[j].NationalID.String() })
	return out, nil
}

func (r *InvestorRepository) DeleteInvestor(_ context.Context, id domain.NationalID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.investors[id.String()]; !ok {
		return domain.ErrInvestorNotFound
	}
	delete(r.investors, id.String())
	for key, inv := range r.investments {
		if inv.NationalID.Equal(id) {
			delete(r.investments, key)
		}
	}
	return nil
}

func (r *InvestorRepository) CreateInvestment(_ context.Context, inv *domain.Investment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.investments[inv.ID] = copyInvestment(inv)
	return nil
}

func (r *InvestorRepository) FindInvestment(_ context.Context, id string) (*domain.Investment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.investments[id]
	if !ok {
		return nil, domain.ErrInvestmentNotFound
	}
	return copyInvestment(inv), nil
}

func (r *InvestorRepository) ListInvestments(_ context.Context) ([]*domain.Investment, error) {
	return r.filter(func(*domain.Investment) bool { return true }), nil
}

func (r *InvestorRepository) ListInvestmentsByOwner(_ context.Context, owner domain.NationalID) ([]*domain.Investment, error) {
	return r.filter(func(inv *domain.Investment) bool { return inv.NationalID.Equal(owner) }), nil
}

func (r *InvestorRepository) UpdateInvestment(_ context.Context, inv *domain.Investment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.investments[inv.ID]; !ok {
		return domain.ErrInvestmentNotFound
	}
	r.investments[inv.ID] = copyInvestment(inv)
	return nil
}

func (r *InvestorRepository) DeleteInvestment(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.investments[id]; !ok {
		return domain.ErrInvestmentNotFound
	}
	delete(r.investments, id)
	return nil
}

func (r *InvestorRepository) ReplaceInvestments(_ context.Context, owner domain.NationalID, invs []*domain.Investment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.investors[owner.String()]; !ok {
		return domain.ErrInvestorNotFound
	}
	for key, inv := range r.investments {
		if inv.NationalID.Equal(owner) {
			delete(r.investments, key)
		}
	}
	for _, inv := range invs {
		r.investments[inv.ID] = copyInvestment(inv)
	}
	return nil
}

func (r *InvestorRepository) filter(match func(*domain.Investment) bool) []*domain.Investment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Investment, 0)
	for _, inv := range r.investments {
		if match(inv) {
			out = append(out, copyInvestment(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func copyInvestment(inv *domain.Investment) *domain.Investment {
	out := *inv
	out.DailyReturns = append([]domain.DailyReturn(nil), inv.DailyReturns...)
	return &out
}

// IdempotencyGuard remembers claimed keys until ttl elapses.
type IdempotencyGuard struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	claimed map[string]time.Time
}

func NewIdempotencyGuard(ttl time.Duration) *IdempotencyGuard {
	return &IdempotencyGuard{ttl: ttl, now: time.Now, claimed: make(map[string]time.Time)}
}

func (g *IdempotencyGuard) Claim(_ context.Context, scope, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	k := scope + ":" + key
	now := g.now()
	if exp, ok := g.claimed[k]; ok && now.Before(exp) {
		return false, nil
	}
	g.claimed[k] = now.Add(g.ttl)
	return true, nil
}

func (g *IdempotencyGuard) Release(_ context.Context, scope, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claimed, scope+":"+key)
	return nil
}
