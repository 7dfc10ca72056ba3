package workload

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"Bookstore/internal/config"
	"Bookstore/internal/inventory"
)

const firstISBN = 1

// Report aggregates every worker's actual runs.
type Report struct {
	RunID   uuid.UUID `json:"run_id"`
	Workers []Result  `json:"workers"`

	Successful         int           `json:"successful"`
	Total              int           `json:"total"`
	CustomerSuccessful int           `json:"customer_successful"`
	CustomerTotal      int           `json:"customer_total"`
	Elapsed            time.Duration `json:"elapsed"`

	// AggregatedThroughput is the sum over workers of successful customer
	// interactions per second.
	AggregatedThroughput float64 `json:"aggregated_throughput"`
	// AverageLatency is the mean over workers of time per successful customer
	// interaction.
	AverageLatency time.Duration `json:"average_latency"`
}

// Initialize wipes the store and loads n generated titles, marking
// pickPercent of them as editor picks.
func Initialize(ctx context.Context, sm inventory.StockManager, gen *Generator, n, pickPercent int) error {
	if err := sm.RemoveAllBooks(ctx); err != nil {
		return fmt.Errorf("workload: wipe: %w", err)
	}

	books := gen.NextStockBooks(n)
	if err := sm.AddBooks(ctx, books); err != nil {
		return fmt.Errorf("workload: add initial books: %w", err)
	}

	numPicks := n * pickPercent / 100
	picks := make([]inventory.BookEditorPick, 0, numPicks)
	for _, b := range books[:numPicks] {
		picks = append(picks, inventory.BookEditorPick{ISBN: b.ISBN, EditorPick: true})
	}
	if err := sm.UpdateEditorPicks(ctx, picks); err != nil {
		return fmt.Errorf("workload: set editor picks: %w", err)
	}
	return nil
}

// Run initializes the store, runs cfg.Workers workers concurrently and
// aggregates their results.
func Run(ctx context.Context, cfg config.WorkloadConfig, sm inventory.StockManager, bs inventory.BookStore, log *zap.Logger) (Report, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}

	runID := uuid.New()
	log = log.With(zap.String("run_id", runID.String()))

	gen := NewGenerator(firstISBN)
	if err := Initialize(ctx, sm, gen, cfg.InitialBooks, cfg.EditorPickPercent); err != nil {
		return Report{}, err
	}
	log.Info("workload initialized", zap.Int("books", cfg.InitialBooks), zap.Int("workers", cfg.Workers))

	results := make([]Result, cfg.Workers)
	g, gctx := errgroup.WithContext(ctx)
	for i := range cfg.Workers {
		w := NewWorker(cfg, sm, bs, gen)
		g.Go(func() error {
			res, err := w.Run(gctx)
			if err != nil {
				return fmt.Errorf("worker %s: %w", w.ID, err)
			}
			results[i] = res
			log.Debug("worker finished",
				zap.String("worker_id", w.ID.String()),
				zap.Int("successful", res.Successful),
				zap.Duration("elapsed", res.Elapsed),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	rep := Aggregate(runID, results)
	log.Info("workload finished",
		zap.Int("successful", rep.Successful),
		zap.Int("total", rep.Total),
		zap.Int("customer_successful", rep.CustomerSuccessful),
		zap.Int("customer_total", rep.CustomerTotal),
		zap.Duration("elapsed", rep.Elapsed),
		zap.Float64("aggregated_throughput", rep.AggregatedThroughput),
		zap.Duration("average_latency", rep.AverageLatency),
	)
	return rep, nil
}

func Aggregate(runID uuid.UUID, results []Result) Report {
	rep := Report{RunID: runID, Workers: results}

	var latency time.Duration
	measured := 0
	for _, r := range results {
		rep.Successful += r.Successful
		rep.Total += r.Total
		rep.CustomerSuccessful += r.CustomerSuccessful
		rep.CustomerTotal += r.CustomerTotal
		rep.Elapsed += r.Elapsed

		if r.CustomerSuccessful == 0 || r.Elapsed <= 0 {
			continue
		}
		rep.AggregatedThroughput += float64(r.CustomerSuccessful) / r.Elapsed.Seconds()
		latency += r.Elapsed / time.Duration(r.CustomerSuccessful)
		measured++
	}
	if measured > 0 {
		rep.AverageLatency = latency / time.Duration(measured)
	}
	return rep
}

func (r Report) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w,
		"run %s\n"+
			"successful interactions: %d of %d\n"+
			"successful customer interactions: %d of %d\n"+
			"elapsed time: %s\n"+
			"aggregated throughput: %.2f interactions/s\n"+
			"average latency: %s\n",
		r.RunID,
		r.Successful, r.Total,
		r.CustomerSuccessful, r.CustomerTotal,
		r.Elapsed,
		r.AggregatedThroughput,
		r.AverageLatency,
	)
	return int64(n), err
}
