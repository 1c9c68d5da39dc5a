package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
)

func (r *runner) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stay running and push queued changes whenever the server is reachable",
		Args:  cobra.NoArgs,
		RunE: r.run(func(ctx context.Context, a *App, _ []string) error {
			if err := a.requireCache(); err != nil {
				return err
			}
			return a.Watch(ctx)
		}),
	}
}

// Watch blocks until ctx is done. Reconnects trigger a drain through the
// monitor's online subscription.
func (a *App) Watch(ctx context.Context) error {
	stop := a.serveMetrics(ctx)
	defer stop()

	if n, err := a.cache.ClearExpired(ctx); err != nil {
		a.log.Warn(ctx, "cannot purge expired cache entries", "error", err)
	} else if n > 0 {
		a.log.Info(ctx, "expired cache entries purged", "count", n)
	}

	a.pushIfOnline(ctx)

	a.log.Info(ctx, "watching connectivity", "interval", a.cfg.OnlineCheckInterval)
	err := a.net.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// serveMetrics starts the Prometheus listener when configured and returns
// a function that shuts it down.
func (a *App) serveMetrics(ctx context.Context) func() {
	if a.cfg.MetricsAddr == "" || a.metrics == nil {
		return func() {}
	}

	router := chi.NewRouter()
	router.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error(ctx, "metrics listener failed", "error", err)
		}
	}()
	a.log.Info(ctx, "serving metrics", "addr", a.cfg.MetricsAddr)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
