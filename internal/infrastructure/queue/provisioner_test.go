package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/investae/investments-api/internal/core/domain"
	"github.com/investae/investments-api/internal/core/ports"
)

// flakyRepo fails EnsureInvestor a fixed number of times per ID.
type flakyRepo struct {
	ports.InvestorRepository

	mu       sync.Mutex
	failures int
	calls    map[string]int
	ensured  map[string]bool
}

func newFlakyRepo(failures int) *flakyRepo {
	return &flakyRepo{failures: failures, calls: map[string]int{}, ensured: map[string]bool{}}
}

func (r *flakyRepo) EnsureInvestor(_ context.Context, id domain.NationalID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[id.String()]++
	if r.calls[id.String()] <= r.failures {
		return false, errors.New("mongo: connection reset")
	}
	created := !r.ensured[id.String()]
	r.ensured[id.String()] = true
	return created, nil
}

func (r *flakyRepo) snapshot(id string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[id], r.ensured[id]
}

func TestProvisioner_RetriesUntilSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := newFlakyRepo(2)
	p := NewProvisioner(2, repo, zerolog.Nop(), WithBackoff(time.Millisecond))
	p.Start(ctx)

	id := domain.MustParseNationalID("12345678909")
	require.True(t, p.Enqueue(id))

	require.Eventually(t, func() bool {
		_, ok := repo.snapshot(id.String())
		return ok
	}, time.Second, 5*time.Millisecond)

	calls, _ := repo.snapshot(id.String())
	assert.Equal(t, 3, calls)
}

func TestProvisioner_GivesUpAfterAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := newFlakyRepo(100)
	p := NewProvisioner(1, repo, zerolog.Nop(), WithAttempts(3), WithBackoff(time.Millisecond))
	p.Start(ctx)

	id := domain.MustParseNationalID("11144477735")
	require.True(t, p.Enqueue(id))

	require.Eventually(t, func() bool {
		calls, _ := repo.snapshot(id.String())
		return calls == 3
	}, time.Second, 5*time.Millisecond)

	// No fourth attempt follows.
	time.Sleep(20 * time.Millisecond)
	calls, ensured := repo.snapshot(id.String())
	assert.Equal(t, 3, calls)
	assert.False(t, ensured)
}

func TestProvisioner_EnqueueNeverBlocks(t *testing.T) {
	p := NewProvisioner(1, newFlakyRepo(0), zerolog.Nop())
	id := domain.MustParseNationalID("12345678909")

	for i := 0; i < channelBuffer; i++ {
		require.True(t, p.Enqueue(id))
	}
	assert.False(t, p.Enqueue(id), "a full shard rejects instead of blocking")
}

func TestProvisioner_ShardIndexIsStable(t *testing.T) {
	p := NewProvisioner(8, newFlakyRepo(0), zerolog.Nop())
	id := domain.MustParseNationalID("52998224725")

	first := p.shardIndex(id)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, p.shardIndex(id))
	}
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, 8)
}

func TestProvisioner_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	repo := newFlakyRepo(100)
	p := NewProvisioner(1, repo, zerolog.Nop(), WithAttempts(10), WithBackoff(time.Hour))
	p.Start(ctx)

	id := domain.MustParseNationalID("12345678909")
	require.True(t, p.Enqueue(id))
	require.Eventually(t, func() bool {
		calls, _ := repo.snapshot(id.String())
		return calls == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)
	calls, _ := repo.snapshot(id.String())
	assert.Equal(t, 1, calls)
}
