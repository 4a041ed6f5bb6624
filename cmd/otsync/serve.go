package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/otsync/internal/config"
	"github.com/aretw0/otsync/internal/simulation"
	httpAdapter "github.com/aretw0/otsync/pkg/adapters/http"
	"github.com/aretw0/otsync/pkg/adapters/loam"
	"github.com/aretw0/otsync/pkg/adapters/memory"
	"github.com/aretw0/otsync/pkg/adapters/redis"
	"github.com/aretw0/otsync/pkg/delta"
	"github.com/aretw0/otsync/pkg/domain"
	"github.com/aretw0/otsync/pkg/observability"
	"github.com/aretw0/otsync/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve document snapshots and metrics over HTTP",
	Long: `Starts an HTTP server exposing GET /documents/{id}/snapshot for client resyncs
and /metrics for Prometheus, with its OpenAPI description at /openapi.yaml.
Snapshots live in memory, in Redis with --redis, or as files under --data-dir.
With --warmup-edits the configured documents are filled by a simulation run first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("port") {
			cfg.Server.Port, _ = flags.GetInt("port")
		}
		if flags.Changed("redis") {
			cfg.Server.Redis, _ = flags.GetString("redis")
		}
		if flags.Changed("data-dir") {
			cfg.Server.DataDir, _ = flags.GetString("data-dir")
		}

		store, closeStore, err := openStore(cfg.Server, logger)
		if err != nil {
			return err
		}
		defer closeStore()

		reg := prometheus.NewRegistry()
		metrics, err := observability.NewMetrics(reg)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		warmup, _ := flags.GetInt("warmup-edits")
		if err := seedDocuments(ctx, cfg, store, metrics, warmup, logger); err != nil {
			return err
		}

		r := chi.NewRouter()
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		r.Mount("/", httpAdapter.NewHandler(store, logger))

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: r,
		}
		return run(srv, logger)
	},
}

func openStore(cfg config.Server, logger *slog.Logger) (ports.SnapshotStore, func(), error) {
	if cfg.Redis == "" {
		if cfg.DataDir != "" {
			store, err := loam.Open(cfg.DataDir, loam.WithLogger(logger))
			if err != nil {
				return nil, nil, err
			}
			return store, func() {}, nil
		}
		return memory.NewSnapshotStore(), func() {}, nil
	}
	ttl, err := cfg.TTL()
	if err != nil {
		return nil, nil, err
	}
	opts := []redis.Option{redis.WithTTL(ttl)}
	if cfg.RedisPrefix != "" {
		opts = append(opts, redis.WithPrefix(cfg.RedisPrefix))
	}
	store := redis.New(cfg.Redis, "", 0, opts...)
	return store, func() { _ = store.Close() }, nil
}

// seedDocuments makes sure every configured document has a snapshot. With warmup
// edits, each missing document is produced by a simulation run instead of left blank.
func seedDocuments(ctx context.Context, cfg config.Config, store ports.SnapshotStore, metrics *observability.Metrics, warmup int, logger *slog.Logger) error {
	for _, id := range cfg.Server.Documents {
		_, err := store.Snapshot(ctx, id)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			return err
		}

		if warmup <= 0 {
			if err := store.Save(ctx, &domain.Snapshot{
				DocumentID: id,
				Contents:   delta.FromText("\n", nil),
				UpdatedAt:  time.Now(),
			}); err != nil {
				return err
			}
			continue
		}

		sim := simulation.New(
			simulation.WithLogger(logger),
			simulation.WithSnapshotStore(store),
			simulation.WithHooks(func(client string) domain.LifecycleHooks {
				return metrics.Hooks(id + "/" + client)
			}),
		)
		report, err := sim.Run(ctx, simulation.Config{
			Clients:    cfg.Simulation.Clients,
			Edits:      warmup,
			Seed:       cfg.Simulation.Seed,
			DropRate:   cfg.Simulation.DropRate,
			RejectRate: cfg.Simulation.RejectRate,
			DocumentID: id,
			Initial:    cfg.Simulation.Initial,
		})
		if err != nil {
			return fmt.Errorf("warmup of %s failed: %w", id, err)
		}
		logger.Info("document warmed up", "document", id, "revision", report.Revision, "converged", report.Converged)
	}
	return nil
}

func run(srv *http.Server, logger *slog.Logger) error {
	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("starting otsync server", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt or terminate signals.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("start shutdown", "signal", sig)

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown did not complete", "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		logger.Info("otsync server stopped gracefully")
		return nil
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for snapshots (memory when empty)")
	serveCmd.Flags().String("data-dir", "", "Directory for file snapshots, used when --redis is empty")
	serveCmd.Flags().Int("warmup-edits", 0, "Fill missing documents with a simulation of this many edits")
}
