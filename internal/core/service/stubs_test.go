package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/investae/investments-api/internal/core/domain"
	"github.com/investae/investments-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory identity store
// ---------------------------------------------------------------------------

type stubIdentityStore struct {
	mu        sync.Mutex
	byName    map[string]*domain.Credential
	nextID    int
	findErr   error // if set, every Find* returns this error
	createErr error // if set, Create returns this error
	creates   int
}

func newStubIdentityStore() *stubIdentityStore {
	return &stubIdentityStore{byName: make(map[string]*domain.Credential)}
}

func cloneCredential(c *domain.Credential) *domain.Credential {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

func (s *stubIdentityStore) find(match func(*domain.Credential) bool) (*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, c := range s.byName {
		if match(c) {
			return cloneCredential(c), nil
		}
	}
	return nil, domain.ErrCredentialNotFound
}

func (s *stubIdentityStore) FindByUsername(_ context.Context, username string) (*domain.Credential, error) {
	return s.find(func(c *domain.Credential) bool { return c.Username == username })
}

func (s *stubIdentityStore) FindByEmail(_ context.Context, email string) (*domain.Credential, error) {
	return s.find(func(c *domain.Credential) bool { return c.Email != "" && c.Email == email })
}

func (s *stubIdentityStore) FindByNationalID(_ context.Context, id domain.NationalID) (*domain.Credential, error) {
	return s.find(func(c *domain.Credential) bool { return c.NationalID.Equal(id) })
}

func (s *stubIdentityStore) Create(_ context.Context, cred *domain.Credential) (*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.createErr != nil {
		return nil, s.createErr
	}
	if _, exists := s.byName[cred.Username]; exists {
		return nil, domain.NewConflictError("username", "username taken")
	}
	s.nextID++
	clone := cloneCredential(cred)
	clone.ID = "cred-" + strconv.Itoa(s.nextID)
	s.byName[clone.Username] = clone
	return cloneCredential(clone), nil
}

func (s *stubIdentityStore) List(_ context.Context) ([]*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	out := make([]*domain.Credential, 0, len(s.byName))
	for _, c := range s.byName {
		out = append(out, cloneCredential(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *stubIdentityStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byName)
}

// ---------------------------------------------------------------------------
// In-memory investor repository
// ---------------------------------------------------------------------------

type stubInvestorRepo struct {
	mu          sync.Mutex
	investors   map[string]*domain.Investor
	investments map[string]*domain.Investment
	ensureErr   error
	ensureCalls int
	createErrs  []error // consumed one per CreateInvestment call
	replaceErr  error
}

func newStubInvestorRepo() *stubInvestorRepo {
	return &stubInvestorRepo{
		investors:   make(map[string]*domain.Investor),
		investments: make(map[string]*domain.Investment),
	}
}

func cloneInvestment(inv *domain.Investment) *domain.Investment {
	clone := *inv
	clone.DailyReturns = append([]domain.DailyReturn(nil), inv.DailyReturns...)
	return &clone
}

func (r *stubInvestorRepo) EnsureInvestor(_ context.Context, id domain.NationalID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureCalls++
	if r.ensureErr != nil {
		return false, r.ensureErr
	}
	if _, ok := r.investors[id.String()]; ok {
		return false, nil
	}
	r.investors[id.String()] = &domain.Investor{NationalID: id, CreatedAt: time.Unix(0, 0).UTC()}
	return true, nil
}

func (r *stubInvestorRepo) FindInvestor(_ context.Context, id domain.NationalID) (*domain.Investor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.investors[id.String()]
	if !ok {
		return nil, domain.ErrInvestorNotFound
	}
	clone := *inv
	return &clone, nil
}

func (r *stubInvestorRepo) ListInvestors(_ context.Context) ([]*domain.Investor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Investor, 0, len(r.investors))
	for _, inv := range r.investors {
		clone := *inv
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NationalID.String() < out[j].NationalID.String() })
	return out, nil
}

func (r *stubInvestorRepo) DeleteInvestor(_ context.Context, id domain.NationalID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.investors[id.String()]; !ok {
		return domain.ErrInvestorNotFound
	}
	delete(r.investors, id.String())
	for k, inv := range r.investments {
		if inv.NationalID.Equal(id) {
			delete(r.investments, k)
		}
	}
	return nil
}

func (r *stubInvestorRepo) CreateInvestment(_ context.Context, inv *domain.Investment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.createErrs) > 0 {
		err := r.createErrs[0]
		r.createErrs = r.createErrs[1:]
		if err != nil {
			return err
		}
	}
	r.investments[inv.ID] = cloneInvestment(inv)
	return nil
}

func (r *stubInvestorRepo) ReplaceInvestments(_ context.Context, owner domain.NationalID, invs []*domain.Investment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replaceErr != nil {
		return r.replaceErr
	}
	for key, inv := range r.investments {
		if inv.NationalID.Equal(owner) {
			delete(r.investments, key)
		}
	}
	for _, inv := range invs {
		r.investments[inv.ID] = cloneInvestment(inv)
	}
	return nil
}

func (r *stubInvestorRepo) FindInvestment(_ context.Context, id string) (*domain.Investment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.investments[id]
	if !ok {
		return nil, domain.ErrInvestmentNotFound
	}
	return cloneInvestment(inv), nil
}

func (r *stubInvestorRepo) list(match func(*domain.Investment) bool) []*domain.Investment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Investment, 0)
	for _, inv := range r.investments {
		if match(inv) {
			out = append(out, cloneInvestment(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *stubInvestorRepo) ListInvestments(_ context.Context) ([]*domain.Investment, error) {
	return r.list(func(*domain.Investment) bool { return true }), nil
}

func (r *stubInvestorRepo) ListInvestmentsByOwner(_ context.Context, owner domain.NationalID) ([]*domain.Investment, error) {
	return r.list(func(inv *domain.Investment) bool { return inv.NationalID.Equal(owner) }), nil
}

func (r *stubInvestorRepo) UpdateInvestment(_ context.Context, inv *domain.Investment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.investments[inv.ID]; !ok {
		return domain.ErrInvestmentNotFound
	}
	r.investments[inv.ID] = cloneInvestment(inv)
	return nil
}

func (r *stubInvestorRepo) DeleteInvestment(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.investments[id]; !ok {
		return domain.ErrInvestmentNotFound
	}
	delete(r.investments, id)
	return nil
}

// ---------------------------------------------------------------------------
// Idempotency guard and token codec fakes
// ---------------------------------------------------------------------------

type stubGuard struct {
	mu      sync.Mutex
	claimed map[string]bool
	err     error
}

func newStubGuard() *stubGuard { return &stubGuard{claimed: make(map[string]bool)} }

func (g *stubGuard) Claim(_ context.Context, scope, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	k := scope + ":" + key
	if g.claimed[k] {
		return false, nil
	}
	g.claimed[k] = true
	return true, nil
}

func (g *stubGuard) Release(_ context.Context, scope, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claimed, scope+":"+key)
	return nil
}

type fakeCodec struct {
	issued []string
	err    error
}

func (f *fakeCodec) Issue(subject, role string, now time.Time) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	tok := subject + "|" + role + "|" + strconv.FormatInt(now.Unix(), 10)
	f.issued = append(f.issued, tok)
	return tok, nil
}

func (f *fakeCodec) Verify(string, time.Time) (ports.TokenClaims, error) {
	return ports.TokenClaims{}, ports.ErrInvalidToken
}

func (f *fakeCodec) TTL() time.Duration { return time.Hour }

// plainHasher stores passwords reversed so tests can tell hash from plaintext
// without paying for bcrypt.
type plainHasher struct{ err error }

func (h plainHasher) Hash(password string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	b := []byte(password)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return "rev:" + string(b), nil
}

func (h plainHasher) Verify(hash, password string) bool {
	want, _ := plainHasher{}.Hash(password)
	return hash == want
}

var errBackend = errors.New("backend unavailable")

var fixedNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }
