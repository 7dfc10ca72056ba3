package inventory

import (
	"context"
	"math"
)

const unrated = -1.0

// StockBook is the stock manager's view of a title.
type StockBook struct {
	ISBN          int     `json:"isbn"`
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Price         float64 `json:"price"`
	NumCopies     int     `json:"num_copies"`
	NumSaleMisses int64   `json:"num_sale_misses"`
	NumTimesRated int64   `json:"num_times_rated"`
	TotalRating   int64   `json:"total_rating"`
	EditorPick    bool    `json:"editor_pick"`
}

// AverageRating is TotalRating/NumTimesRated, or -1 for a title nobody rated.
func (b StockBook) AverageRating() float64 {
	return averageRating(b.TotalRating, b.NumTimesRated)
}

// Book is the customer's view of a title.
type Book struct {
	ISBN          int     `json:"isbn"`
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Price         float64 `json:"price"`
	AverageRating float64 `json:"average_rating"`
}

type BookCopy struct {
	ISBN      int `json:"isbn"`
	NumCopies int `json:"num_copies"`
}

type BookEditorPick struct {
	ISBN       int  `json:"isbn"`
	EditorPick bool `json:"editor_pick"`
}

type BookRating struct {
	ISBN   int `json:"isbn"`
	Rating int `json:"rating"`
}

// StockManager is the back-office side of the store.
type StockManager interface {
	AddBooks(ctx context.Context, books []StockBook) error
	AddCopies(ctx context.Context, copies []BookCopy) error
	ListBooks(ctx context.Context) ([]StockBook, error)
	GetBooksByISBN(ctx context.Context, isbns []int) ([]StockBook, error)
	GetBooksInDemand(ctx context.Context) ([]StockBook, error)
	UpdateEditorPicks(ctx context.Context, picks []BookEditorPick) error
	RemoveBooks(ctx context.Context, isbns []int) error
	RemoveAllBooks(ctx context.Context) error
}

// BookStore is the customer side of the store.
type BookStore interface {
	BuyBooks(ctx context.Context, copies []BookCopy) error
	RateBooks(ctx context.Context, ratings []BookRating) error
	GetBooks(ctx context.Context, isbns []int) ([]Book, error)
	GetEditorPicks(ctx context.Context, n int) ([]Book, error)
	GetTopRatedBooks(ctx context.Context, n int) ([]Book, error)
}

// record is the engine-owned mutable state of one title. It never leaves the
// engine; callers only see StockBook and Book copies.
type record struct {
	isbn   int
	title  string
	author string
	price  float64

	copies      int
	totalRating int64
	timesRated  int64
	saleMisses  int64
	editorPick  bool
}

func newRecord(b StockBook) *record {
	return &record{
		isbn:   b.ISBN,
		title:  b.Title,
		author: b.Author,
		price:  b.Price,
		copies: b.NumCopies,
	}
}

func (r *record) addCopies(n int) {
	r.copies += n
	r.saleMisses = 0
}

// addSaleMisses saturates at MaxInt64.
func (r *record) addSaleMisses(n int) {
	if int64(n) > math.MaxInt64-r.saleMisses {
		r.saleMisses = math.MaxInt64
		return
	}
	r.saleMisses += int64(n)
}

// shortfall is how many of n requested copies are missing from stock.
func (r *record) shortfall(n int) int {
	if n <= r.copies {
		return 0
	}
	return n - r.copies
}

func (r *record) addRating(rating int) {
	r.totalRating += int64(rating)
	r.timesRated++
}

func (r *record) averageRating() float64 {
	return averageRating(r.totalRating, r.timesRated)
}

func (r *record) stockBook() StockBook {
	return StockBook{
		ISBN:          r.isbn,
		Title:         r.title,
		Author:        r.author,
		Price:         r.price,
		NumCopies:     r.copies,
		NumSaleMisses: r.saleMisses,
		NumTimesRated: r.timesRated,
		TotalRating:   r.totalRating,
		EditorPick:    r.editorPick,
	}
}

func (r *record) book() Book {
	return Book{
		ISBN:          r.isbn,
		Title:         r.title,
		Author:        r.author,
		Price:         r.price,
		AverageRating: r.averageRating(),
	}
}

func averageRating(total, times int64) float64 {
	if times == 0 {
		return unrated
	}
	return float64(total) / float64(times)
}
