package workload

import (
	"cmp"
	"context"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"

	"Bookstore/internal/config"
	"Bookstore/internal/inventory"
)

// Result is what one worker measured over its actual runs.
type Result struct {
	WorkerID           uuid.UUID     `json:"worker_id"`
	Successful         int           `json:"successful"`
	Total              int           `json:"total"`
	CustomerSuccessful int           `json:"customer_successful"`
	CustomerTotal      int           `json:"customer_total"`
	Elapsed            time.Duration `json:"elapsed"`
}

type interaction int

const (
	rareStock interaction = iota
	frequentStock
	customer
)

type Worker struct {
	ID  uuid.UUID
	cfg config.WorkloadConfig
	sm  inventory.StockManager
	bs  inventory.BookStore
	gen *Generator

	// roll returns a value in [0, 100).
	roll func() float64
}

func NewWorker(cfg config.WorkloadConfig, sm inventory.StockManager, bs inventory.BookStore, gen *Generator) *Worker {
	return &Worker{
		ID:   uuid.New(),
		cfg:  cfg,
		sm:   sm,
		bs:   bs,
		gen:  gen,
		roll: func() float64 { return rand.Float64() * 100 },
	}
}

// Run does the warm-up runs, discards them, then times the actual runs.
// Interaction failures are counted, not returned; only ctx ends a run early.
func (w *Worker) Run(ctx context.Context) (Result, error) {
	for range w.cfg.WarmupRuns {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		w.runOnce(ctx, &Result{})
	}

	res := Result{WorkerID: w.ID}
	start := time.Now()
	for range w.cfg.ActualRuns {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		w.runOnce(ctx, &res)
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

func (w *Worker) runOnce(ctx context.Context, res *Result) {
	kind := w.choose(w.roll())

	var err error
	switch kind {
	case rareStock:
		err = w.rareStockInteraction(ctx)
	case frequentStock:
		err = w.frequentStockInteraction(ctx)
	default:
		res.CustomerTotal++
		err = w.customerInteraction(ctx)
		if err == nil {
			res.CustomerSuccessful++
		}
	}

	res.Total++
	if err == nil {
		res.Successful++
	}
}

func (w *Worker) choose(p float64) interaction {
	rare := float64(w.cfg.RarePercent)
	switch {
	case p < rare:
		return rareStock
	case p < rare+float64(w.cfg.FrequentPercent):
		return frequentStock
	default:
		return customer
	}
}

// rareStockInteraction adds whichever freshly generated titles the store
// does not have yet.
func (w *Worker) rareStockInteraction(ctx context.Context) error {
	all, err := w.sm.ListBooks(ctx)
	if err != nil {
		return err
	}

	present := make(map[int]struct{}, len(all))
	for _, b := range all {
		present[b.ISBN] = struct{}{}
	}

	missing := make([]inventory.StockBook, 0, w.cfg.NumBooksToAdd)
	for _, b := range w.gen.NextStockBooks(w.cfg.NumBooksToAdd) {
		if _, ok := present[b.ISBN]; !ok {
			missing = append(missing, b)
		}
	}
	return w.sm.AddBooks(ctx, missing)
}

// frequentStockInteraction restocks the titles with the fewest copies.
func (w *Worker) frequentStockInteraction(ctx context.Context) error {
	all, err := w.sm.ListBooks(ctx)
	if err != nil {
		return err
	}

	slices.SortFunc(all, func(a, b inventory.StockBook) int {
		if c := cmp.Compare(a.NumCopies, b.NumCopies); c != 0 {
			return c
		}
		return cmp.Compare(a.ISBN, b.ISBN)
	})

	n := min(w.cfg.NumBooksWithLeastCopies, len(all))
	copies := make([]inventory.BookCopy, 0, n)
	for _, b := range all[:n] {
		copies = append(copies, inventory.BookCopy{ISBN: b.ISBN, NumCopies: w.cfg.NumAddCopies})
	}
	return w.sm.AddCopies(ctx, copies)
}

// customerInteraction buys a few of the current editor picks.
func (w *Worker) customerInteraction(ctx context.Context) error {
	picks, err := w.bs.GetEditorPicks(ctx, w.cfg.NumEditorPicksToGet)
	if err != nil {
		return err
	}

	isbns := make([]int, 0, len(picks))
	for _, b := range picks {
		isbns = append(isbns, b.ISBN)
	}

	chosen := SampleISBNs(isbns, w.cfg.NumBooksToBuy)
	copies := make([]inventory.BookCopy, 0, len(chosen))
	for _, isbn := range chosen {
		copies = append(copies, inventory.BookCopy{ISBN: isbn, NumCopies: w.cfg.NumBookCopiesToBuy})
	}
	return w.bs.BuyBooks(ctx, copies)
}
