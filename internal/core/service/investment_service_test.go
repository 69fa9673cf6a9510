package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/investae/investments-api/internal/core/domain"
	"github.com/investae/investments-api/internal/core/ports"
)

const (
	aliceID = "12345678909"
	bobID   = "11144477735"
)

func principalCtx(username string, role domain.Role, nationalID string) context.Context {
	p := domain.Principal{Username: username, Role: role}
	if nationalID != "" {
		p.NationalID = domain.MustParseNationalID(nationalID)
	}
	return domain.WithPrincipal(context.Background(), p)
}

var (
	aliceCtx = principalCtx("alice", domain.RoleUser, aliceID)
	bobCtx   = principalCtx("bob", domain.RoleUser, bobID)
	adminCtx = principalCtx("root", domain.RoleAdmin, "")
)

func sampleInput() ports.InvestmentInput {
	return ports.InvestmentInput{
		BankName:          "Nubank",
		Name:              "CDB 120%",
		Type:              "cdb",
		InitialAmount:     1000,
		InitialSharePrice: 10,
		ReturnRate:        0.12,
		InitialShares:     100,
		DailyReturns: []ports.DailyReturnInput{
			{Date: "01-03-2025", SharePrice: 10.01, DailyRate: 0.001, AccumulatedAmount: 1001},
		},
	}
}

type investmentFixture struct {
	repo  *stubInvestorRepo
	guard *stubGuard
	svc   *InvestmentService
}

func newInvestmentFixture(t *testing.T, investors ...string) *investmentFixture {
	t.Helper()
	f := &investmentFixture{repo: newStubInvestorRepo(), guard: newStubGuard()}
	f.svc = NewInvestmentService(f.repo, f.guard, fixedClock, zerolog.Nop())
	for _, id := range investors {
		_, err := f.repo.EnsureInvestor(context.Background(), domain.MustParseNationalID(id))
		require.NoError(t, err)
	}
	return f
}

func TestInvestmentService_CreateOwn(t *testing.T) {
	f := newInvestmentFixture(t, aliceID)

	inv, err := f.svc.CreateOwn(aliceCtx, sampleInput(), "")
	require.NoError(t, err)

	assert.NotEmpty(t, inv.ID)
	assert.Equal(t, aliceID, inv.NationalID.String())
	assert.Equal(t, domain.TypeCDB, inv.Type)
	assert.Equal(t, fixedNow, inv.CreatedAt)
	require.Len(t, inv.DailyReturns, 1)
	assert.Equal(t, 2025, inv.DailyReturns[0].Date.Year())
	assert.Equal(t, 3, int(inv.DailyReturns[0].Date.Month()))

	stored, err := f.repo.FindInvestment(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.Name, stored.Name)
}

func TestInvestmentService_CreateOwn_RequiresPrincipal(t *testing.T) {
	f := newInvestmentFixture(t, aliceID)

	_, err := f.svc.CreateOwn(context.Background(), sampleInput(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestInvestmentService_CreateOwn_UnprovisionedInvestor(t *testing.T) {
	f := newInvestmentFixture(t)

	_, err := f.svc.CreateOwn(aliceCtx, sampleInput(), "")
	assert.ErrorIs(t, err, domain.ErrInvestorNotFound)
}

func TestInvestmentService_CreateOwn_Validation(t *testing.T) {
	tests := []struct {
		name  string
		tweak func(*ports.InvestmentInput)
		field string
	}{
		{"missing name", func(in *ports.InvestmentInput) { in.Name = " " }, "name"},
		{"unknown type", func(in *ports.InvestmentInput) { in.Type = "BOND" }, "type"},
		{"zero amount", func(in *ports.InvestmentInput) { in.InitialAmount = 0 }, "initialAmount"},
		{"negative share price", func(in *ports.InvestmentInput) { in.InitialSharePrice = -1 }, "initialSharePrice"},
		{"negative shares", func(in *ports.InvestmentInput) { in.InitialShares = -1 }, "initialShares"},
		{"iso date", func(in *ports.InvestmentInput) { in.DailyReturns[0].Date = "2025-03-01" }, "dailyReturns.date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newInvestmentFixture(t, aliceID)
			in := sampleInput()
			tt.tweak(&in)

			_, err := f.svc.CreateOwn(aliceCtx, in, "")
			var de *domain.Error
			require.True(t, errors.As(err, &de), "expected domain error, got %v", err)
			assert.Equal(t, domain.KindValidation, de.Kind)
			assert.Equal(t, tt.field, de.Field)
		})
	}
}

func TestInvestmentService_CreateOwn_IdempotencyKey(t *testing.T) {
	f := newInvestmentFixture(t, aliceID, bobID)

	_, err := f.svc.CreateOwn(aliceCtx, sampleInput(), "key-1")
	require.NoError(t, err)

	_, err = f.svc.CreateOwn(aliceCtx, sampleInput(), "key-1")
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	// Keys are scoped per principal.
	_, err = f.svc.CreateOwn(bobCtx, sampleInput(), "key-1")
	require.NoError(t, err)

	all, _ := f.repo.ListInvestments(context.Background())
	assert.Len(t, all, 2)
}

func TestInvestmentService_CreateOwn_FailedWriteReleasesKey(t *testing.T) {
	f := newInvestmentFixture(t, aliceID)
	f.repo.createErrs = []error{errBackend}

	_, err := f.svc.CreateOwn(aliceCtx, sampleInput(), "key-1")
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))

	inv, err := f.svc.CreateOwn(aliceCtx, sampleInput(), "key-1")
	require.NoError(t, err, "retry with the same key after a failed write")
	assert.NotEmpty(t, inv.ID)

	_, err = f.svc.CreateOwn(aliceCtx, sampleInput(), "key-1")
	assert.Equal(t, domain.KindConflict, domain.KindOf(err), "key is held once the write succeeds")

	all, _ := f.repo.ListInvestments(context.Background())
	assert.Len(t, all, 1)
}

func TestInvestmentService_CreateOwn_GuardFailure(t *testing.T) {
	f := newInvestmentFixture(t, aliceID)
	f.guard.err = errBackend

	_, err := f.svc.CreateOwn(aliceCtx, sampleInput(), "key-1")
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
	assert.ErrorIs(t, err, errBackend)
}

func TestInvestmentService_ListByOwner_Ownership(t *testing.T) {
	f := newInvestmentFixture(t, aliceID, bobID)
	_, err := f.svc.CreateOwn(aliceCtx, sampleInput(), "")
	require.NoError(t, err)

	own, err := f.svc.ListByOwner(aliceCtx, "123.456.789-09")
	require.NoError(t, err)
	assert.Len(t, own, 1)

	_, err = f.svc.ListByOwner(bobCtx, aliceID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	viaAdmin, err := f.svc.ListByOwner(adminCtx, aliceID)
	require.NoError(t, err)
	assert.Len(t, viaAdmin, 1)

	_, err = f.svc.ListByOwner(aliceCtx, "12345678900")
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = f.svc.ListByOwner(context.Background(), aliceID)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestInvestmentService_ListOwnAndAll(t *testing.T) {
	f := newInvestmentFixture(t, aliceID, bobID)
	_, err := f.svc.CreateOwn(aliceCtx, sampleInput(), "")
	require.NoError(t, err)
	_, err = f.svc.CreateOwn(bobCtx, sampleInput(), "")
	require.NoError(t, err)

	mine, err := f.svc.ListOwn(bobCtx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, bobID, mine[0].NationalID.String())

	_, err = f.svc.ListAll(aliceCtx)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	all, err := f.svc.ListAll(adminCtx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestInvestmentService_UpdateAndDelete_Ownership(t *testing.T) {
	f := newInvestmentFixture(t, aliceID, bobID)
	inv, err := f.svc.CreateOwn(aliceCtx, sampleInput(), "")
	require.NoError(t, err)

	changed := sampleInput()
	changed.Name = "CDB 130%"

	_, err = f.svc.Update(bobCtx, inv.ID, changed)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, f.svc.Delete(bobCtx, inv.ID), domain.ErrForbidden)

	updated, err := f.svc.Update(aliceCtx, inv.ID, changed)
	require.NoError(t, err)
	assert.Equal(t, "CDB 130%", updated.Name)
	assert.Equal(t, inv.ID, updated.ID)
	assert.True(t, updated.NationalID.Equal(inv.NationalID))
	assert.Equal(t, inv.CreatedAt, updated.CreatedAt)

	require.NoError(t, f.svc.Delete(adminCtx, inv.ID))
	_, err = f.svc.Update(aliceCtx, inv.ID, changed)
	assert.ErrorIs(t, err, domain.ErrInvestmentNotFound)
}

func TestInvestmentService_Investors(t *testing.T) {
	f := newInvestmentFixture(t)

	_, err := f.svc.CreateInvestor(aliceCtx, aliceID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	created, err := f.svc.CreateInvestor(adminCtx, "123.456.789-09")
	require.NoError(t, err)
	assert.Equal(t, aliceID, created.NationalID.String())

	_, err = f.svc.CreateInvestor(adminCtx, aliceID)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	got, err := f.svc.GetInvestor(aliceCtx, aliceID)
	require.NoError(t, err)
	assert.Equal(t, aliceID, got.NationalID.String())

	_, err = f.svc.GetInvestor(bobCtx, aliceID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.ListInvestors(bobCtx)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	list, err := f.svc.ListInvestors(adminCtx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestInvestmentService_DeleteInvestorCascades(t *testing.T) {
	f := newInvestmentFixture(t, aliceID)
	_, err := f.svc.CreateOwn(aliceCtx, sampleInput(), "")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteInvestor(aliceCtx, aliceID), domain.ErrForbidden)
	require.NoError(t, f.svc.DeleteInvestor(adminCtx, aliceID))

	all, _ := f.repo.ListInvestments(context.Background())
	assert.Empty(t, all)

	_, err = f.svc.ListOwn(aliceCtx)
	assert.ErrorIs(t, err, domain.ErrInvestorNotFound)

	assert.ErrorIs(t, f.svc.DeleteInvestor(adminCtx, aliceID), domain.ErrInvestorNotFound)
}

func TestInvestmentService_ReplaceInvestments(t *testing.T) {
	f := newInvestmentFixture(t, aliceID, bobID)
	old, err := f.svc.CreateOwn(aliceCtx, sampleInput(), "")
	require.NoError(t, err)
	_, err = f.svc.CreateOwn(bobCtx, sampleInput(), "")
	require.NoError(t, err)

	second := sampleInput()
	second.Name = "LCI 95%"
	second.Type = "LCI"
	got, err := f.svc.ReplaceInvestments(aliceCtx, "123.456.789-09", []ports.InvestmentInput{sampleInput(), second})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.NotEqual(t, got[0].ID, got[1].ID)
	for _, inv := range got {
		assert.Equal(t, aliceID, inv.NationalID.String())
		assert.Equal(t, fixedNow, inv.CreatedAt)
	}

	mine, err := f.svc.ListOwn(aliceCtx)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	_, err = f.repo.FindInvestment(context.Background(), old.ID)
	assert.ErrorIs(t, err, domain.ErrInvestmentNotFound)

	theirs, err := f.svc.ListOwn(bobCtx)
	require.NoError(t, err)
	assert.Len(t, theirs, 1, "other investors are untouched")
}

func TestInvestmentService_ReplaceInvestments_Rejections(t *testing.T) {
	f := newInvestmentFixture(t, aliceID, bobID)
	_, err := f.svc.CreateOwn(aliceCtx, sampleInput(), "")
	require.NoError(t, err)

	bad := sampleInput()
	bad.Name = ""
	unprovisioned := "52998224725"

	tests := []struct {
		name  string
		ctx   context.Context
		owner string
		in    []ports.InvestmentInput
		kind  domain.ErrorKind
	}{
		{"anonymous", context.Background(), aliceID, []ports.InvestmentInput{sampleInput()}, domain.KindAuthentication},
		{"foreign owner", bobCtx, aliceID, []ports.InvestmentInput{sampleInput()}, domain.KindAuthorization},
		{"bad national ID", aliceCtx, "123", []ports.InvestmentInput{sampleInput()}, domain.KindValidation},
		{"empty list", aliceCtx, aliceID, nil, domain.KindValidation},
		{"invalid item", aliceCtx, aliceID, []ports.InvestmentInput{sampleInput(), bad}, domain.KindValidation},
		{"unknown investor", adminCtx, unprovisioned, []ports.InvestmentInput{sampleInput()}, domain.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ReplaceInvestments(tt.ctx, tt.owner, tt.in)
			assert.Equal(t, tt.kind, domain.KindOf(err), "%v", err)
		})
	}

	mine, err := f.svc.ListOwn(aliceCtx)
	require.NoError(t, err)
	assert.Len(t, mine, 1, "rejected replacements leave the portfolio intact")
}

func TestInvestmentService_ReplaceInvestments_AdminAndBackendFailure(t *testing.T) {
	f := newInvestmentFixture(t, aliceID)

	got, err := f.svc.ReplaceInvestments(adminCtx, aliceID, []ports.InvestmentInput{sampleInput()})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	f.repo.replaceErr = errBackend
	_, err = f.svc.ReplaceInvestments(aliceCtx, aliceID, []ports.InvestmentInput{sampleInput()})
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
	assert.ErrorIs(t, err, errBackend)
}
