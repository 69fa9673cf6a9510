package queue

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/rs/zerolog"

	"github.com/investae/investments-api/internal/core/domain"
	"github.com/investae/investments-api/internal/core/ports"
)

const (
	defaultWorkers  = 4
	defaultAttempts = 5
	defaultBackoff  = 2 * time.Second
	channelBuffer   = 256
)

// Provisioner retries investor provisioning on a fixed set of workers. IDs are
// sharded on the national ID, so attempts for one investor never overlap.
type Provisioner struct {
	workers  []chan domain.NationalID
	repo     ports.InvestorRepository
	attempts int
	backoff  time.Duration
	log      zerolog.Logger
}

// Option tunes a Provisioner.
type Option func(*Provisioner)

// WithAttempts caps the provisioning attempts per ID. Values <= 0 are ignored.
func WithAttempts(n int) Option {
	return func(p *Provisioner) {
		if n > 0 {
			p.attempts = n
		}
	}
}

// WithBackoff sets the delay before the first retry. It doubles after each one.
func WithBackoff(d time.Duration) Option {
	return func(p *Provisioner) {
		if d > 0 {
			p.backoff = d
		}
	}
}

// NewProvisioner creates a Provisioner with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewProvisioner(numWorkers int, repo ports.InvestorRepository, log zerolog.Logger, opts ...Option) *Provisioner {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	p := &Provisioner{
		workers:  make([]chan domain.NationalID, numWorkers),
		repo:     repo,
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
		log:      log,
	}
	for _, opt := range opts {
		opt(p)
	}
	for i := range p.workers {
		p.workers[i] = make(chan domain.NationalID, channelBuffer)
	}
	return p
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (p *Provisioner) Start(ctx context.Context) {
	for i, ch := range p.workers {
		go p.runWorker(ctx, i, ch)
	}
}

// Enqueue hands id to the worker responsible for it. It never blocks and
// returns false when that worker's buffer is full.
func (p *Provisioner) Enqueue(id domain.NationalID) bool {
	select {
	case p.workers[p.shardIndex(id)] <- id:
		return true
	default:
		p.log.Warn().Int("worker_id", p.shardIndex(id)).Msg("provisioning queue full")
		return false
	}
}

// shardIndex maps a national ID deterministically to a worker index.
func (p *Provisioner) shardIndex(id domain.NationalID) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id.String()))
	return int(h.Sum32() % uint32(len(p.workers)))
}

func (p *Provisioner) runWorker(ctx context.Context, wid int, ch <-chan domain.NationalID) {
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-ch:
			if !ok {
				return
			}
			p.provision(ctx, wid, id)
		}
	}
}

func (p *Provisioner) provision(ctx context.Context, wid int, id domain.NationalID) {
	delay := p.backoff
	for attempt := 1; ; attempt++ {
		created, err := p.repo.EnsureInvestor(ctx, id)
		if err == nil {
			p.log.Info().Int("worker_id", wid).Int("attempt", attempt).Bool("created", created).
				Msg("investor provisioning retried")
			return
		}
		if attempt >= p.attempts {
			p.log.Error().Err(err).Int("worker_id", wid).Int("attempts", attempt).
				Msg("investor provisioning abandoned")
			return
		}
		p.log.Warn().Err(err).Int("worker_id", wid).Int("attempt", attempt).Dur("retry_in", delay).
			Msg("investor provisioning failed")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
	}
}
