package inventory

import (
	"cmp"
	"context"
	"math/rand/v2"
	"slices"
)

// GetEditorPicks returns min(n, picks) distinct editor picks chosen uniformly
// at random. Order is unspecified.
func (e *Engine) GetEditorPicks(_ context.Context, n int) ([]Book, error) {
	if n < 0 {
		return nil, errorf(ErrInvalidArgument, "number of books %d is invalid", n)
	}

	picks, err := e.scan(func(r *record) bool { return r.editorPick })
	if err != nil {
		return nil, err
	}

	chosen := sample(len(picks), n)
	out := make([]Book, 0, len(chosen))
	for _, i := range chosen {
		out = append(out, bookOf(picks[i]))
	}
	return out, nil
}

// sample returns min(n, size) distinct indexes in [0, size).
func sample(size, n int) []int {
	if size <= n {
		all := make([]int, size)
		for i := range all {
			all[i] = i
		}
		return all
	}

	seen := make(map[int]struct{}, n)
	out := make([]int, 0, n)
	for len(out) < n {
		i := rand.IntN(size)
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	return out
}

// GetTopRatedBooks returns up to n titles by descending average rating. Ties
// go to the lower isbn and unrated titles come last.
func (e *Engine) GetTopRatedBooks(_ context.Context, n int) ([]Book, error) {
	if n < 0 {
		return nil, errorf(ErrInvalidArgument, "number of books %d is invalid", n)
	}

	all, err := e.scan(func(*record) bool { return true })
	if err != nil {
		return nil, err
	}

	books := make([]Book, 0, len(all))
	for _, b := range all {
		books = append(books, bookOf(b))
	}
	slices.SortStableFunc(books, func(a, b Book) int {
		if c := cmp.Compare(b.AverageRating, a.AverageRating); c != 0 {
			return c
		}
		return cmp.Compare(a.ISBN, b.ISBN)
	})

	if len(books) > n {
		books = books[:n]
	}
	return books, nil
}

func bookOf(b StockBook) Book {
	return Book{
		ISBN:          b.ISBN,
		Title:         b.Title,
		Author:        b.Author,
		Price:         b.Price,
		AverageRating: b.AverageRating(),
	}
}
