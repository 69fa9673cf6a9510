package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/investae/investments-api/internal/core/domain"
)

func TestIdentityStore_Uniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewIdentityStore()
	id := domain.MustParseNationalID("12345678909")

	created, err := s.Create(ctx, &domain.Credential{Username: "alice", Email: "a@x.io", NationalID: id})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	cases := map[string]*domain.Credential{
		"username":   {Username: "alice", NationalID: domain.MustParseNationalID("11144477735")},
		"email":      {Username: "bob", Email: "a@x.io", NationalID: domain.MustParseNationalID("11144477735")},
		"nationalId": {Username: "bob", NationalID: id},
	}
	for field, cred := range cases {
		_, err := s.Create(ctx, cred)
		var de *domain.Error
		require.ErrorAs(t, err, &de, field)
		assert.Equal(t, domain.KindConflict, de.Kind)
		assert.Equal(t, field, de.Field)
	}

	got, err := s.FindByNationalID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = s.FindByEmail(ctx, "")
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
}

func TestInvestorRepository_CascadeDelete(t *testing.T) {
	ctx := context.Background()
	r := NewInvestorRepository()
	id := domain.MustParseNationalID("12345678909")

	created, err := r.EnsureInvestor(ctx, id)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = r.EnsureInvestor(ctx, id)
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, r.CreateInvestment(ctx, &domain.Investment{ID: "a", NationalID: id}))
	require.NoError(t, r.DeleteInvestor(ctx, id))

	_, err = r.FindInvestment(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrInvestmentNotFound)
}

func TestIdempotencyGuard_Expires(t *testing.T) {
	g := NewIdempotencyGuard(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	ok, _ := g.Claim(context.Background(), "alice", "k")
	assert.True(t, ok)
	ok, _ = g.Claim(context.Background(), "alice", "k")
	assert.False(t, ok)

	now = now.Add(time.Minute)
	ok, _ = g.Claim(context.Background(), "alice", "k")
	assert.True(t, ok)
}

func TestIdempotencyGuard_Release(t *testing.T) {
	ctx := context.Background()
	g := NewIdempotencyGuard(time.Minute)

	ok, _ := g.Claim(ctx, "alice", "k")
	assert.True(t, ok)
	require.NoError(t, g.Release(ctx, "alice", "k"))
	ok, _ = g.Claim(ctx, "alice", "k")
	assert.True(t, ok, "released key can be claimed again")
	require.NoError(t, g.Release(ctx, "bob", "k"))
}

func TestInvestorRepository_ReplaceInvestments(t *testing.T) {
	ctx := context.Background()
	r := NewInvestorRepository()
	alice := domain.MustParseNationalID("12345678909")
	bob := domain.MustParseNationalID("11144477735")

	assert.ErrorIs(t, r.ReplaceInvestments(ctx, alice, nil), domain.ErrInvestorNotFound)

	for _, id := range []domain.NationalID{alice, bob} {
		_, err := r.EnsureInvestor(ctx, id)
		require.NoError(t, err)
	}
	require.NoError(t, r.CreateInvestment(ctx, &domain.Investment{ID: "old", NationalID: alice}))
	require.NoError(t, r.CreateInvestment(ctx, &domain.Investment{ID: "kept", NationalID: bob}))

	require.NoError(t, r.ReplaceInvestments(ctx, alice, []*domain.Investment{
		{ID: "n1", NationalID: alice},
		{ID: "n2", NationalID: alice},
	}))

	mine, err := r.ListInvestmentsByOwner(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "n1", mine[0].ID)
	_, err = r.FindInvestment(ctx, "old")
	assert.ErrorIs(t, err, domain.ErrInvestmentNotFound)
	_, err = r.FindInvestment(ctx, "kept")
	assert.NoError(t, err)
}
