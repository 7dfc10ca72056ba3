package main

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"Bookstore/internal/bookstore"
	"Bookstore/internal/config"
	"Bookstore/internal/inventory"
	"Bookstore/internal/seed"
	"Bookstore/pkg/kit"
)

const service = "bookstore"

func main() {
	cfg, err := config.Load(config.New())
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	log, err := kit.NewLogger(service, cfg.Log.Level)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	engine := inventory.NewEngine(log.Named("inventory"))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var ready atomic.Bool
	s := &bookstore.Server{
		Store: engine,
		Log:   log,
		Ready: ready.Load,
	}

	h := bookstore.NewHandler(s, bookstore.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsToken:   cfg.Metrics.Token,
		StockRateLimit: cfg.RateLimit.StockPerMin,
	})

	go func() {
		defer ready.Store(true)
		if cfg.Seed.DatabaseURL == "" {
			return
		}
		if err := seedCatalog(ctx, engine, cfg.Seed, log); err != nil {
			log.Error("seeding failed, starting with an empty catalog", zap.Error(err))
		}
	}()

	if err := kit.RunHTTPServer(ctx, cfg.HTTP.Addr(), h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func seedCatalog(ctx context.Context, sm inventory.StockManager, cfg config.SeedConfig, log *zap.Logger) error {
	src, err := seed.OpenPostgres(ctx, cfg.DatabaseURL, cfg.Timeout)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	_, err = seed.Apply(ctx, sm, src, log)
	return err
}
