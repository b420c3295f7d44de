package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Alp4ka/gotable"
	"github.com/Alp4ka/gotable/htmlrender"
	"github.com/Alp4ka/gotable/internal/config"
	"github.com/Alp4ka/gotable/internal/demo"
	"github.com/Alp4ka/gotable/redisstore"
)

const serveExamples = `  # Serve the events table from an in-memory sqlite database:
  gotable serve --seed 500

  # Serve from the configured database:
  gotable serve --config gotable.toml --listen :9000`

const shutdownTimeout = 10 * time.Second

type ServeArgs struct {
	*RootArgs

	Listen string
	Seed   int
}

func NewServeArgs(rootArgs *RootArgs) *ServeArgs {
	return &ServeArgs{RootArgs: rootArgs}
}

func (sa *ServeArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sa.Listen, "listen", "", "Address to listen on, overrides server.listen")
	cmd.Flags().IntVar(&sa.Seed, "seed", 0, "Insert this many sample events into an empty database")
}

func NewServeCmd(sa *ServeArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the sample events table over HTTP",
		Example: serveExamples,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := sa.Config()
			if err != nil {
				return err
			}

			if sa.Listen != "" {
				cfg.Server.Listen = sa.Listen
			}

			return serve(cmd.Context(), cfg, sa.Seed)
		},
	}

	sa.AddFlags(cmd)
	bindEnvVars(cmd)

	return cmd
}

func serve(ctx context.Context, cfg *config.Config, seed int) error {
	log := slog.Default()

	db, err := demo.OpenDatabase(cfg.Database, log)
	if err != nil {
		return err
	}

	if err = demo.Migrate(ctx, db); err != nil {
		return err
	}

	if seed > 0 {
		if err = demo.Seed(ctx, db, seed); err != nil {
			return err
		}
	}

	sessions, closeSessions, err := newSessionStore(cfg.Session)
	if err != nil {
		return err
	}
	defer closeSessions()

	renderer, err := htmlrender.New()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           demo.NewMux(demo.NewHandler(db, sessions, renderer, cfg.Table, log)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", slog.String("addr", srv.Addr), slog.String("dialect", cfg.Database.Dialect))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("shutting down")
	if err = srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

// newSessionStore returns the configured session backend and its cleanup.
func newSessionStore(cfg config.SessionConfig) (gotable.SessionStore, func(), error) {
	switch cfg.Backend {
	case config.SessionMemory:
		return gotable.NewMemorySessions(), func() {}, nil
	case config.SessionRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		closeFn := func() {
			if err := rdb.Close(); err != nil {
				slog.Error("close redis client", slog.Any("err", err))
			}
		}

		return redisstore.New(rdb, redisstore.WithTTL(cfg.TTL())), closeFn, nil
	}

	return nil, nil, fmt.Errorf("%w: session.backend = %s", config.ErrInvalidConfig, cfg.Backend)
}
