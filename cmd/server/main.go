package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"solar_yield/internal/api"
	"solar_yield/internal/batch"
	"solar_yield/internal/config"
	"solar_yield/internal/ingest"
	"solar_yield/internal/logging"
	"solar_yield/internal/solar"
	"solar_yield/internal/store"
	"solar_yield/internal/ws"
	"solar_yield/internal/yield"
)

func main() {
	cfg, err := config.Parse("server", os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	grid, err := ingest.LoadGrid(cfg.Dataset)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}
	logGrid(logger, cfg.Dataset, grid)

	engine := yield.New(solar.NewInterpolator(grid))
	hub := ws.NewHub(logger)
	bridge := ws.NewBridge(hub)
	processor := batch.NewProcessor(engine, cfg.Workers, cfg.BlendFactor, logger)
	apiServer := api.NewServer(engine, processor, store.New(cfg.MaxJobs), bridge, cfg.BlendFactor, logger)

	mux := newMux(apiServer, ws.NewHandler(hub, engine, cfg.BlendFactor, logger), cfg.FrontendDir, logger)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("starting server")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	return apiServer.Shutdown(shutdownCtx)
}

func newMux(apiServer *api.Server, wsHandler http.Handler, frontendDir string, logger zerolog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	apiServer.Register(mux)
	mux.Handle("/ws", wsHandler)

	if frontendDir != "" {
		if info, err := os.Stat(frontendDir); err == nil && info.IsDir() {
			logger.Info().Str("dir", frontendDir).Msg("serving frontend")
			mux.Handle("/", http.FileServer(http.Dir(frontendDir)))
		} else {
			logger.Warn().Str("dir", frontendDir).Msg("frontend directory not found, skipping")
		}
	}
	return mux
}

func logGrid(logger zerolog.Logger, path string, g *solar.Grid) {
	nLon, nLat, _ := g.Shape()
	b := g.Bounds()
	ev := logger.Info().
		Str("dataset", path).
		Int("lons", nLon).
		Int("lats", nLat).
		Float64("min_lon", b.MinLon).
		Float64("max_lon", b.MaxLon).
		Float64("min_lat", b.MinLat).
		Float64("max_lat", b.MaxLat)
	if n := g.NaNCells(); n > 0 {
		ev = ev.Int("nan_cells", n)
	}
	ev.Msg("dataset loaded")
}
