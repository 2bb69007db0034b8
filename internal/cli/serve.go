package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"idsync/internal/platform/httpserver"
	"idsync/internal/reconcile/handler"
	"idsync/internal/reconcile/scheduler"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run cycles on a schedule and expose the admin API",
		Long: `Serve runs one cycle at start and then one every sync.interval, and exposes
/healthz, /metrics and the /admin/sync endpoints on admin.addr.

Example:
  idsync serve --config ./idsync.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd, rootOpts)
		},
	}
	return cmd
}

func serve(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	hopts := []handler.Option{handler.WithGatherer(a.registry)}
	if a.db != nil {
		hopts = append(hopts, handler.WithHealthCheck("postgres", a.db.PingContext))
	}
	if a.redis != nil {
		hopts = append(hopts, handler.WithHealthCheck("redis", a.redis.Health))
	}
	h := handler.New(a.runner, cfg.Admin.Token, a.logger, hopts...)
	srv := httpserver.New(cfg.Admin.Addr, h.Router(), cfg.Sync.Deadline+cfg.Sync.DrainTimeout+time.Minute)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := scheduler.New(a.runner, cfg.Sync.Interval, scheduler.WithLogger(a.logger)).Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		a.logger.InfoContext(gctx, "admin server listening", "addr", cfg.Admin.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	a.logger.InfoContext(ctx, "idsync stopped")
	return err
}
