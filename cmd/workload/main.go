package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"Bookstore/internal/bookstore"
	"Bookstore/internal/config"
	"Bookstore/internal/inventory"
	"Bookstore/internal/workload"
	"Bookstore/pkg/kit"
)

const service = "workload"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()

	cmd := &cobra.Command{
		Use:   "workload",
		Short: "Drive concurrent customer and stock-manager traffic against a bookstore",
		Long: `workload wipes the target bookstore, loads generated titles, then runs
concurrent workers issuing a mix of rare stock-manager, frequent
stock-manager and customer interactions, and reports throughput and latency.

With no --server the workers share an in-process engine.

Configuration sources, highest first: flags, BOOKSTORE_* environment
variables, the config file (BOOKSTORE_CONFIG or ./bookstore.yaml), defaults.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), v)
		},
	}

	f := cmd.Flags()
	f.String("server", "", "bookstore base URL, e.g. http://localhost:8081")
	f.Int("workers", 0, "concurrent workers")
	f.Int("warmup-runs", 0, "interactions per worker discarded before measuring")
	f.Int("actual-runs", 0, "measured interactions per worker")
	f.Int("initial-books", 0, "titles loaded before the run")
	f.Int("rare-percent", 0, "share of rare stock-manager interactions")
	f.Int("frequent-percent", 0, "share of frequent stock-manager interactions")
	f.String("log-level", "", "debug|info|warn|error")

	bind(v, cmd, map[string]string{
		"workload.server":           "server",
		"workload.workers":          "workers",
		"workload.warmup_runs":      "warmup-runs",
		"workload.actual_runs":      "actual-runs",
		"workload.initial_books":    "initial-books",
		"workload.rare_percent":     "rare-percent",
		"workload.frequent_percent": "frequent-percent",
		"log.level":                 "log-level",
	})
	return cmd
}

// bind maps config keys onto flags. An unset flag leaves the key to env,
// file or default.
func bind(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind %s: %v", flag, err))
		}
	}
}

func run(ctx context.Context, v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	log, err := kit.NewLogger(service, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		sm inventory.StockManager
		bs inventory.BookStore
	)
	if cfg.Workload.Server == "" {
		engine := inventory.NewEngine(log.Named("inventory"))
		sm, bs = engine, engine
		log.Info("using in-process engine")
	} else {
		client := bookstore.NewClient(cfg.Workload.Server)
		sm, bs = client, client
		log.Info("using remote bookstore", zap.String("server", cfg.Workload.Server))
	}

	rep, err := workload.Run(ctx, cfg.Workload, sm, bs, log)
	if err != nil {
		return err
	}
	_, err = rep.WriteTo(os.Stdout)
	return err
}
