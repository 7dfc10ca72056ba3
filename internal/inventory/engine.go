package inventory

import (
	"context"
	"math"
	"slices"
	"sync"

	"go.uber.org/zap"
)

const (
	minRating = 0
	maxRating = 5
)

var (
	_ StockManager = (*Engine)(nil)
	_ BookStore    = (*Engine)(nil)
)

// Engine is the in-memory inventory. It owns every record; all values it
// returns are copies.
//
// Locking: structural operations (AddBooks, RemoveBooks, RemoveAllBooks) hold
// global exclusively. Everything else holds global shared for its whole run
// and, beneath it, one RWMutex per isbn taken in ascending isbn order.
type Engine struct {
	global sync.RWMutex
	books  map[int]*record
	locks  *lockTable

	log *zap.Logger
}

func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		books: make(map[int]*record),
		locks: newLockTable(),
		log:   log,
	}
}

func (e *Engine) lockSet() *lockSet { return newLockSet(&e.global, e.locks) }

func (e *Engine) AddBooks(_ context.Context, books []StockBook) error {
	if books == nil {
		return errNullInput
	}

	e.global.Lock()
	defer e.global.Unlock()

	seen := make(map[int]struct{}, len(books))
	for _, b := range books {
		if err := validateNewBook(b); err != nil {
			return err
		}
		if _, ok := e.books[b.ISBN]; ok {
			return errorf(ErrAlreadyExists, "isbn %d is duplicated", b.ISBN)
		}
		if _, ok := seen[b.ISBN]; ok {
			return errorf(ErrAlreadyExists, "isbn %d is duplicated", b.ISBN)
		}
		seen[b.ISBN] = struct{}{}
	}

	for _, b := range books {
		e.books[b.ISBN] = newRecord(b)
		e.locks.add(b.ISBN)
	}

	e.log.Debug("books added", zap.Int("count", len(books)), zap.Int("total", len(e.books)))
	return nil
}

func validateNewBook(b StockBook) error {
	switch {
	case b.ISBN < 1:
		return invalidISBN(b.ISBN)
	case b.Title == "":
		return errorf(ErrInvalidArgument, "book %d: empty title is invalid", b.ISBN)
	case b.Author == "":
		return errorf(ErrInvalidArgument, "book %d: empty author is invalid", b.ISBN)
	case b.NumCopies < 1:
		return errorf(ErrInvalidArgument, "book %d: number of copies %d is invalid", b.ISBN, b.NumCopies)
	case !(b.Price >= 0):
		return errorf(ErrInvalidArgument, "book %d: price %v is invalid", b.ISBN, b.Price)
	}
	return nil
}

func (e *Engine) RemoveBooks(_ context.Context, isbns []int) error {
	if isbns == nil {
		return errNullInput
	}

	e.global.Lock()
	defer e.global.Unlock()

	for _, isbn := range isbns {
		if isbn < 1 {
			return invalidISBN(isbn)
		}
		if _, ok := e.books[isbn]; !ok {
			return unknownISBN(isbn)
		}
	}

	for _, isbn := range isbns {
		delete(e.books, isbn)
		e.locks.remove(isbn)
	}

	e.log.Debug("books removed", zap.Int("count", len(isbns)), zap.Int("total", len(e.books)))
	return nil
}

func (e *Engine) RemoveAllBooks(_ context.Context) error {
	e.global.Lock()
	defer e.global.Unlock()

	clear(e.books)
	e.locks.clear()

	e.log.Debug("catalog wiped")
	return nil
}

func (e *Engine) AddCopies(_ context.Context, copies []BookCopy) error {
	if copies == nil {
		return errNullInput
	}

	isbns := make([]int, 0, len(copies))
	for _, c := range copies {
		if c.ISBN < 1 {
			return invalidISBN(c.ISBN)
		}
		if c.NumCopies < 1 {
			return errorf(ErrInvalidArgument, "isbn %d: number of copies %d is invalid", c.ISBN, c.NumCopies)
		}
		isbns = append(isbns, c.ISBN)
	}

	ls := e.lockSet()
	defer ls.releaseAll()

	if err := ls.acquireAll(canonical(isbns), writeMode); err != nil {
		return err
	}

	added := make(map[int]int, len(copies))
	for _, c := range copies {
		if added[c.ISBN] > math.MaxInt-e.books[c.ISBN].copies-c.NumCopies {
			return errorf(ErrInvalidArgument, "isbn %d: adding %d copies overflows stock", c.ISBN, c.NumCopies)
		}
		added[c.ISBN] += c.NumCopies
	}

	for _, c := range copies {
		e.books[c.ISBN].addCopies(c.NumCopies)
	}
	return nil
}

func (e *Engine) UpdateEditorPicks(_ context.Context, picks []BookEditorPick) error {
	if picks == nil {
		return errNullInput
	}

	isbns := make([]int, 0, len(picks))
	for _, p := range picks {
		if p.ISBN < 1 {
			return invalidISBN(p.ISBN)
		}
		isbns = append(isbns, p.ISBN)
	}

	ls := e.lockSet()
	defer ls.releaseAll()

	if err := ls.acquireAll(canonical(isbns), writeMode); err != nil {
		return err
	}

	for _, p := range picks {
		e.books[p.ISBN].editorPick = p.EditorPick
	}
	return nil
}

// BuyBooks either sells every requested copy or none. When some title is
// short, its sale misses grow by the shortfall even though the purchase
// fails. Repeated isbns in one request are summed.
func (e *Engine) BuyBooks(_ context.Context, copies []BookCopy) error {
	if copies == nil {
		return errNullInput
	}

	requested := make(map[int]int, len(copies))
	isbns := make([]int, 0, len(copies))
	for _, c := range copies {
		if c.ISBN < 1 {
			return invalidISBN(c.ISBN)
		}
		if c.NumCopies < 1 {
			return errorf(ErrInvalidArgument, "isbn %d: number of copies %d is invalid", c.ISBN, c.NumCopies)
		}
		sum, ok := requested[c.ISBN]
		if !ok {
			isbns = append(isbns, c.ISBN)
		}
		if sum > math.MaxInt-c.NumCopies {
			return errorf(ErrInvalidArgument, "isbn %d: requested copies overflow", c.ISBN)
		}
		requested[c.ISBN] = sum + c.NumCopies
	}
	slices.Sort(isbns)

	ls := e.lockSet()
	defer ls.releaseAll()

	if err := ls.acquireAll(isbns, writeMode); err != nil {
		return err
	}

	misses := make(map[int]int)
	for _, isbn := range isbns {
		if short := e.books[isbn].shortfall(requested[isbn]); short > 0 {
			misses[isbn] = short
		}
	}

	if len(misses) > 0 {
		for isbn, short := range misses {
			e.books[isbn].addSaleMisses(short)
		}
		return errorf(ErrInsufficientStock, "books are not available: %d of %d titles short", len(misses), len(isbns))
	}

	for _, isbn := range isbns {
		e.books[isbn].copies -= requested[isbn]
	}
	return nil
}

func (e *Engine) RateBooks(_ context.Context, ratings []BookRating) error {
	if ratings == nil {
		return errNullInput
	}

	isbns := make([]int, 0, len(ratings))
	for _, r := range ratings {
		if r.ISBN < 1 {
			return invalidISBN(r.ISBN)
		}
		if r.Rating < minRating || r.Rating > maxRating {
			return errorf(ErrInvalidArgument, "isbn %d: rating %d is invalid", r.ISBN, r.Rating)
		}
		isbns = append(isbns, r.ISBN)
	}

	ls := e.lockSet()
	defer ls.releaseAll()

	if err := ls.acquireAll(canonical(isbns), writeMode); err != nil {
		return err
	}

	for _, r := range ratings {
		e.books[r.ISBN].addRating(r.Rating)
	}
	return nil
}

// GetBooksByISBN returns stock copies in ascending isbn order, one per
// distinct isbn.
func (e *Engine) GetBooksByISBN(_ context.Context, isbns []int) ([]StockBook, error) {
	recs, release, err := e.readLocked(isbns)
	defer release()
	if err != nil {
		return nil, err
	}

	out := make([]StockBook, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.stockBook())
	}
	return out, nil
}

func (e *Engine) GetBooks(_ context.Context, isbns []int) ([]Book, error) {
	recs, release, err := e.readLocked(isbns)
	defer release()
	if err != nil {
		return nil, err
	}

	out := make([]Book, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.book())
	}
	return out, nil
}

// readLocked read-locks every isbn and returns their records. The caller
// copies what it needs and then calls release, which is always non-nil.
func (e *Engine) readLocked(isbns []int) ([]*record, func(), error) {
	if isbns == nil {
		return nil, func() {}, errNullInput
	}
	for _, isbn := range isbns {
		if isbn < 1 {
			return nil, func() {}, invalidISBN(isbn)
		}
	}

	ls := e.lockSet()
	ids := canonical(isbns)
	if err := ls.acquireAll(ids, readMode); err != nil {
		return nil, ls.releaseAll, err
	}

	recs := make([]*record, 0, len(ids))
	for _, isbn := range ids {
		recs = append(recs, e.books[isbn])
	}
	return recs, ls.releaseAll, nil
}

// ListBooks visits every title in ascending isbn order, holding each title's
// read lock only while copying it. The set of titles cannot change during the
// walk, but the contents of titles not yet visited can: the result is not a
// single point-in-time snapshot.
func (e *Engine) ListBooks(_ context.Context) ([]StockBook, error) {
	return e.scan(func(*record) bool { return true })
}

func (e *Engine) GetBooksInDemand(_ context.Context) ([]StockBook, error) {
	return e.scan(func(r *record) bool { return r.saleMisses > 0 })
}

func (e *Engine) scan(keep func(*record) bool) ([]StockBook, error) {
	ls := e.lockSet()
	defer ls.releaseAll()

	ls.enter()
	isbns := e.locks.isbns()

	out := make([]StockBook, 0, len(isbns))
	for _, isbn := range isbns {
		h, err := ls.acquireRead(isbn)
		if err != nil {
			return nil, err
		}
		if r := e.books[isbn]; keep(r) {
			out = append(out, r.stockBook())
		}
		ls.release(h)
	}
	return out, nil
}

// Len is the number of live titles.
func (e *Engine) Len() int {
	e.global.RLock()
	defer e.global.RUnlock()
	return e.locks.len()
}
