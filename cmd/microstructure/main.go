package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"microstructure-analyzer/internal/config"
	"microstructure-analyzer/internal/pipeline"
	"microstructure-analyzer/internal/replay"
	"microstructure-analyzer/internal/server"
	"microstructure-analyzer/internal/state"
)

func main() {
	_ = godotenv.Load() // best-effort: .env is optional

	cfgPath := flag.String("config", "config.yaml", "YAML or TOML config file")
	flag.Parse()

	path := *cfgPath
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !flagSet("config") {
		path = "" // no default file: defaults plus MSA_* environment
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.LogLevel)
	logger.Info("microstructure analyzer starting",
		slog.Int("port", cfg.Port),
		slog.String("symbol", cfg.Symbol),
		slog.String("replay_file", cfg.ReplayFile),
	)

	st := state.NewState(cfg.Cooldown(), cfg.Params())
	st.SetSymbol(cfg.Symbol)

	var feed replay.Feed
	if cfg.ReplayFile != "" {
		feed = replay.NewFileFeed(cfg.ReplayFile, cfg.ReplayInterval(), cfg.ReplayLoop, logger)
	}
	mon := pipeline.NewMonitor(st, cfg.LevelsToScan, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	srv := server.NewHTTPServer(ctx, cfg, st, feed, logger)
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("HTTP server listening", slog.Int("port", cfg.Port))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down...")
		shCtx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shCtx)
	})

	if feed != nil {
		g.Go(func() error {
			feed.Run(ctx, func(connected bool) {
				st.SetConnected(connected)
				srv.BroadcastStatus()
			})
			return nil
		})
		g.Go(func() error {
			pump(ctx, feed, mon, srv, logger)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("exit", slog.String("err", err.Error()))
		os.Exit(1)
	}
	logger.Info("bye")
}

// pump moves replayed records through the monitor to websocket clients
// until the feed finishes or ctx ends.
func pump(ctx context.Context, feed replay.Feed, mon *pipeline.Monitor, srv *server.HTTPServer, logger *slog.Logger) {
	errs := feed.Errors()
	for {
		select {
		case rec, ok := <-feed.Updates():
			if !ok {
				drainErrors(errs, srv, logger)
				logger.Info("replay finished")
				return
			}
			if res, ok := mon.Process(rec); ok {
				srv.Publish(res)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Error("replay feed error", slog.String("err", err.Error()))
			srv.BroadcastError(err.Error())
		case <-ctx.Done():
			return
		}
	}
}

func drainErrors(errs <-chan error, srv *server.HTTPServer, logger *slog.Logger) {
	for {
		select {
		case err, ok := <-errs:
			if !ok {
				return
			}
			logger.Error("replay feed error", slog.String("err", err.Error()))
			srv.BroadcastError(err.Error())
		default:
			return
		}
	}
}

func flagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
