// Command simulator runs the tricore book/router/quoter pipeline over a
// CSV-replayed market-data stream and serves the same admin surface
// (health, version, metrics) the rest of the ambient stack expects.
package main

import (
	"context"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"tricore/internal/backtest"
	"tricore/internal/config"
	"tricore/internal/csvfeed"
	"tricore/internal/infra/health"
	"tricore/internal/infra/http/middleware"
	"tricore/internal/infra/log"
	"tricore/internal/infra/metrics"
	"tricore/internal/infra/netutil"
	"tricore/internal/infra/runner"
	"tricore/internal/infra/version"
	"tricore/internal/report"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	logger := log.NewLogger(cfg)

	registry := metrics.Init(logger)
	mux := http.NewServeMux()
	adminCIDRs := netutil.MustParseCIDRs(cfg.Server.AdminAllowCIDRs)
	mux.Handle("/metrics", middleware.AdminGate(adminCIDRs, metrics.Handler(registry)))
	mux.HandleFunc("/healthz", health.Healthz)
	mux.HandleFunc("/readyz", health.Readyz)
	mux.HandleFunc("/version", version.Handler)
	if cfg.Server.Pprof {
		mux.Handle("/debug/pprof/", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Index)))
		mux.Handle("/debug/pprof/cmdline", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Cmdline)))
		mux.Handle("/debug/pprof/profile", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Profile)))
		mux.Handle("/debug/pprof/symbol", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Symbol)))
		mux.Handle("/debug/pprof/trace", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Trace)))
	}

	handler := middleware.RequestID(middleware.Logger(logger)(mux))
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	logger.Info().Str("region", cfg.Network.Region).Str("addr", cfg.Server.Addr).Msg("simulator started")

	g := &runner.Group{}
	workerErrCh := g.Go(ctx, func(ctx context.Context) error {
		return runReplay(ctx, cfg, logger)
	})

	health.SetReady(true)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-ctx.Done():
	case s := <-sigCh:
		logger.Info().Str("signal", s.String()).Msg("shutdown signal received")
	case err := <-workerErrCh:
		if err != nil {
			logger.Error().Err(err).Msg("replay worker error")
		}
	}

	health.SetReady(false)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("shutdown complete")
}

// runReplay drives the backtest.Driver over the CSV file named by
// TRICORE_REPLAY_CSV, rendering trade and state records to stdout as one
// aligned table that is written out when the replay returns. With no
// file configured it idles until ctx is cancelled.
func runReplay(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	path := os.Getenv("TRICORE_REPLAY_CSV")
	if path == "" {
		<-ctx.Done()
		return ctx.Err()
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	updates, err := csvfeed.ReadAll(f)
	if err != nil {
		return err
	}

	driver := backtest.NewDriver(cfg, logger)
	table := report.NewTable(os.Stdout)
	defer table.Flush()

	for _, u := range updates {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		state, trades, err := driver.Cycle(u)
		if err != nil {
			logger.Warn().Err(err).Msg("simulator: cycle failed")
			continue
		}
		table.RenderState(state)
		for _, tr := range trades {
			table.RenderTrade(tr)
		}
	}
	return nil
}
