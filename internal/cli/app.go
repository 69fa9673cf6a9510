package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/investae/investments-api/internal/api/handler"
	"github.com/investae/investments-api/internal/core/ports"
	"github.com/investae/investments-api/internal/core/service"
	"github.com/investae/investments-api/internal/infrastructure/config"
	"github.com/investae/investments-api/internal/infrastructure/db/memory"
	mongostore "github.com/investae/investments-api/internal/infrastructure/db/mongo"
	redisstore "github.com/investae/investments-api/internal/infrastructure/db/redis"
	"github.com/investae/investments-api/internal/infrastructure/queue"
	"github.com/investae/investments-api/internal/infrastructure/security"
)

// app is the fully wired object graph shared by the commands.
type app struct {
	identities  ports.IdentityStore
	investors   ports.InvestorRepository
	guard       ports.IdempotencyGuard
	health      map[string]handler.Pinger
	tokens      *security.JWTCodec
	auth        *service.AuthService
	investments *service.InvestmentService

	closers []func(context.Context) error
}

// newApp opens the storage backends and builds the services on top of them.
// With inMemory set nothing outside the process is contacted.
func newApp(ctx context.Context, cfg *config.Config, inMemory bool, log zerolog.Logger) (*app, error) {
	a := &app{health: map[string]handler.Pinger{}}

	if inMemory {
		a.identities = memory.NewIdentityStore()
		a.investors = memory.NewInvestorRepository()
		a.guard = memory.NewIdempotencyGuard(cfg.Redis.IdempotencyTTL)
		log.Warn().Msg("running with in-memory storage, state is lost on exit")
	} else if err := a.openStores(ctx, cfg, log); err != nil {
		_ = a.close(context.Background())
		return nil, err
	}

	tokens, err := security.NewJWTCodec(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	if err != nil {
		_ = a.close(context.Background())
		return nil, fmt.Errorf("token codec: %w", err)
	}
	a.tokens = tokens

	// Workers live as long as ctx.
	retry := queue.NewProvisioner(
		cfg.Provisioning.Workers,
		a.investors,
		log.With().Str("component", "provisioner").Logger(),
		queue.WithAttempts(cfg.Provisioning.Attempts),
		queue.WithBackoff(cfg.Provisioning.Backoff),
	)
	retry.Start(ctx)

	a.auth = service.NewAuthService(
		a.identities,
		a.investors,
		security.NewBcryptHasher(cfg.Auth.BcryptCost),
		tokens,
		service.AuthOptions{
			AllowAdminSelfRegistration: cfg.Auth.AllowAdminSelfRegistration,
			Retry:                      retry,
		},
		log.With().Str("component", "auth").Logger(),
	)
	a.investments = service.NewInvestmentService(
		a.investors,
		a.guard,
		nil,
		log.With().Str("component", "investments").Logger(),
	)
	return a, nil
}

func (a *app) openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	a.closers = append(a.closers, client.Disconnect)
	if err := mongostore.EnsureIndexes(ctx, db); err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}
	a.identities = mongostore.NewIdentityStore(db)
	a.investors = mongostore.NewInvestorRepository(db)
	a.health["mongo"] = handler.PingFunc(func(ctx context.Context) error {
		return mongostore.Ping(ctx, db)
	})
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongo")

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
	a.guard = redisstore.NewIdempotencyGuard(rdb, cfg.Redis.IdempotencyTTL)
	a.health["redis"] = handler.PingFunc(func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")
	return nil
}

// close releases the backends in reverse order of opening.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}
