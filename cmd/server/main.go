package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Simplici0/printshop/internal/cache"
	"github.com/Simplici0/printshop/internal/config"
	"github.com/Simplici0/printshop/internal/db"
	"github.com/Simplici0/printshop/internal/logger"
	"github.com/Simplici0/printshop/internal/metrics"
	"github.com/Simplici0/printshop/internal/migrations"
	"github.com/Simplici0/printshop/internal/pricing"
	"github.com/Simplici0/printshop/internal/seed"
	"github.com/Simplici0/printshop/internal/store"
)

const (
	appName         = "printshop"
	shutdownTimeout = 10 * time.Second
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "3D print cost estimator and quoting service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(serveCmd(), migrateCmd(), seedCmd(), estimateCmd(), &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, version)
		},
	})
	return cmd
}

// env bundles what every database-backed command needs.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sql.DB
}

func openEnv(ctx context.Context) (*env, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.IsDev())
	if err != nil {
		return nil, nil, err
	}
	for _, w := range cfg.Warnings() {
		log.Warn("config", zap.String("warning", w))
	}

	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}

	cleanup := func() {
		_ = database.Close()
		_ = log.Sync()
	}
	return &env{cfg: cfg, logger: log, db: database}, cleanup, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	e, cleanup, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	log := e.logger

	if e.cfg.IsDev() {
		if err := migrations.Up(ctx, e.db); err != nil {
			return err
		}
	}

	stats, err := seed.Run(ctx, e.db, seed.Config{
		AdminEmail:    e.cfg.AdminEmail,
		AdminPassword: e.cfg.AdminPassword,
		Currency:      e.cfg.Currency,
	})
	if err != nil {
		return err
	}
	log.Info("seed finished", zap.Int("inserts", stats.Inserts))

	tiers, err := config.LoadTiers(e.cfg.TiersFile)
	if err != nil {
		return err
	}
	estimator, err := pricing.NewEstimator(tiers)
	if err != nil {
		return err
	}

	var materials cache.Materials = cache.Noop{}
	if e.cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cache.Options{
			Addr:     e.cfg.RedisAddr,
			Password: e.cfg.RedisPassword,
			DB:       e.cfg.RedisDB,
			TTL:      e.cfg.RedisTTL,
		}, log)
		if err != nil {
			return err
		}
		materials = rc
	}
	defer materials.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	st := store.New(e.db)
	srv := &server{
		auth:      newAuthService(st.Users, e.cfg.SessionSecret),
		store:     st,
		estimator: estimator,
		materials: materials,
		metrics:   m,
		logger:    log,
	}

	httpServer := &http.Server{
		Addr:              e.cfg.Addr(),
		Handler:           srv.routes(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", httpServer.Addr), zap.Int("tiers", len(tiers)))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped gracefully")
	return nil
}

func migrateCmd() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, cleanup, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if down {
				err = migrations.Down(ctx, e.db)
			} else {
				err = migrations.Up(ctx, e.db)
			}
			if err != nil {
				return err
			}

			v, err := migrations.Version(ctx, e.db)
			if err != nil {
				return err
			}
			e.logger.Info("migrations applied", zap.Int64("version", v))
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "Roll back the most recent migration")
	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the admin user and default catalog rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, cleanup, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := seed.Run(ctx, e.db, seed.Config{
				AdminEmail:    e.cfg.AdminEmail,
				AdminPassword: e.cfg.AdminPassword,
				Currency:      e.cfg.Currency,
			})
			if err != nil {
				return err
			}
			e.logger.Info("seed finished", zap.Int("inserts", stats.Inserts))
			return nil
		},
	}
}

func estimateCmd() *cobra.Command {
	var tiersFile string
	cmd := &cobra.Command{
		Use:   "estimate [file]",
		Short: "Compute an estimate from a JSON request (file or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open request: %w", err)
				}
				defer f.Close()
				in = f
			}
			return runEstimate(in, cmd.OutOrStdout(), tiersFile)
		},
	}
	cmd.Flags().StringVar(&tiersFile, "tiers", os.Getenv("TIERS_FILE"), "YAML margin tiers file")
	return cmd
}

func runEstimate(in io.Reader, out io.Writer, tiersFile string) error {
	tiers, err := config.LoadTiers(tiersFile)
	if err != nil {
		return err
	}
	estimator, err := pricing.NewEstimator(tiers)
	if err != nil {
		return err
	}

	var req pricing.EstimateRequest
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}

	est, err := estimator.CalculateFullPrice(req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(est)
}
