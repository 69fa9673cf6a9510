package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/investae/investments-api/internal/api"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		port     string
		inMemory bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				opts.cfg.Port = port
			}
			return runServe(cmd.Context(), opts, inMemory)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "override PORT")
	cmd.Flags().BoolVar(&inMemory, "memory", false, "keep all state in process memory instead of MongoDB and Redis")
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions, inMemory bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log := opts.cfg, opts.log

	a, err := newApp(ctx, cfg, inMemory, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to close backends")
		}
	}()

	e := api.NewRouter(api.Deps{
		Auth:        a.auth,
		Investments: a.investments,
		Tokens:      a.tokens,
		Identities:  a.identities,
		Logger:      log,
		Health:      a.health,
		AuthRate:    cfg.RateLimit.RPS,
		AuthBurst:   cfg.RateLimit.Burst,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting http server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
