package inventory

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stockBook(isbn, copies int) StockBook {
	return StockBook{
		ISBN:      isbn,
		Title:     "Title",
		Author:    "Author",
		Price:     10,
		NumCopies: copies,
	}
}

func newTestEngine(t *testing.T, books ...StockBook) *Engine {
	t.Helper()
	e := NewEngine(nil)
	if len(books) > 0 {
		require.NoError(t, e.AddBooks(context.Background(), books))
	}
	return e
}

func TestAddBooks(t *testing.T) {
	ctx := context.Background()

	t.Run("stored fields match input", func(t *testing.T) {
		in := StockBook{
			ISBN: 3044560, Title: "Harry Potter", Author: "J.K. Rowling", Price: 10.5, NumCopies: 5,
			NumSaleMisses: 9, NumTimesRated: 9, TotalRating: 9, EditorPick: true,
		}
		e := newTestEngine(t, in)

		got, err := e.GetBooksByISBN(ctx, []int{in.ISBN})
		require.NoError(t, err)
		require.Len(t, got, 1)

		assert.Equal(t, StockBook{
			ISBN: in.ISBN, Title: in.Title, Author: in.Author, Price: in.Price, NumCopies: in.NumCopies,
		}, got[0])
		assert.Equal(t, -1.0, got[0].AverageRating())
	})

	t.Run("invalid book leaves catalog unchanged", func(t *testing.T) {
		cases := map[string]StockBook{
			"zero isbn":      stockBook(0, 1),
			"negative isbn":  stockBook(-3, 1),
			"empty title":    {ISBN: 9, Author: "a", Price: 1, NumCopies: 1},
			"empty author":   {ISBN: 9, Title: "t", Price: 1, NumCopies: 1},
			"zero copies":    stockBook(9, 0),
			"negative price": {ISBN: 9, Title: "t", Author: "a", Price: -1, NumCopies: 1},
		}
		for name, bad := range cases {
			t.Run(name, func(t *testing.T) {
				e := newTestEngine(t, stockBook(1, 5))

				err := e.AddBooks(ctx, []StockBook{stockBook(2, 1), bad})
				require.ErrorIs(t, err, ErrInvalidArgument)

				all, err := e.ListBooks(ctx)
				require.NoError(t, err)
				require.Len(t, all, 1)
				assert.Equal(t, 1, all[0].ISBN)
			})
		}
	})

	t.Run("existing isbn", func(t *testing.T) {
		e := newTestEngine(t, stockBook(1, 5))
		err := e.AddBooks(ctx, []StockBook{stockBook(2, 1), stockBook(1, 1)})
		require.ErrorIs(t, err, ErrAlreadyExists)
		assert.Equal(t, 1, e.Len())
	})

	t.Run("isbn repeated in batch", func(t *testing.T) {
		e := newTestEngine(t)
		err := e.AddBooks(ctx, []StockBook{stockBook(2, 1), stockBook(2, 3)})
		require.ErrorIs(t, err, ErrAlreadyExists)
		assert.Equal(t, 0, e.Len())
	})

	t.Run("nil and empty", func(t *testing.T) {
		e := newTestEngine(t)
		require.ErrorIs(t, e.AddBooks(ctx, nil), ErrNullInput)
		require.NoError(t, e.AddBooks(ctx, []StockBook{}))
	})
}

func TestInvalidAddThenLookupIsNotFound(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	err := e.AddBooks(ctx, []StockBook{{ISBN: 7, Title: "t", Author: "a", Price: -1, NumCopies: 3}})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = e.GetBooksByISBN(ctx, []int{7})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveBooks(t *testing.T) {
	ctx := context.Background()

	t.Run("removes records and locks", func(t *testing.T) {
		e := newTestEngine(t, stockBook(1, 1), stockBook(2, 1), stockBook(3, 1))
		require.NoError(t, e.RemoveBooks(ctx, []int{1, 3}))

		all, err := e.ListBooks(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, 2, all[0].ISBN)
		assert.Equal(t, []int{2}, e.locks.isbns())
	})

	t.Run("all or nothing", func(t *testing.T) {
		e := newTestEngine(t, stockBook(1, 1), stockBook(2, 1))
		require.ErrorIs(t, e.RemoveBooks(ctx, []int{1, 42}), ErrNotFound)
		require.ErrorIs(t, e.RemoveBooks(ctx, []int{1, 0}), ErrInvalidArgument)
		assert.Equal(t, 2, e.Len())
	})

	t.Run("nil", func(t *testing.T) {
		e := newTestEngine(t)
		require.ErrorIs(t, e.RemoveBooks(ctx, nil), ErrNullInput)
	})
}

func TestRemoveAllBooksTwice(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, stockBook(1, 1), stockBook(2, 1))

	for i := 0; i < 2; i++ {
		require.NoError(t, e.RemoveAllBooks(ctx))
		all, err := e.ListBooks(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
		assert.Equal(t, 0, e.locks.len())
	}
}

func TestAddCopies(t *testing.T) {
	ctx := context.Background()

	t.Run("adds and resets sale misses", func(t *testing.T) {
		e := newTestEngine(t, stockBook(1, 1), stockBook(2, 1))
		require.ErrorIs(t, e.BuyBooks(ctx, []BookCopy{{ISBN: 1, NumCopies: 4}, {ISBN: 2, NumCopies: 2}}), ErrInsufficientStock)

		require.NoError(t, e.AddCopies(ctx, []BookCopy{{ISBN: 1, NumCopies: 2}, {ISBN: 2, NumCopies: 1}}))

		got, err := e.GetBooksByISBN(ctx, []int{1, 2})
		require.NoError(t, err)
		assert.Equal(t, 3, got[0].NumCopies)
		assert.Equal(t, int64(0), got[0].NumSaleMisses)
		assert.Equal(t, 2, got[1].NumCopies)
		assert.Equal(t, int64(0), got[1].NumSaleMisses)
	})

	t.Run("all or nothing", func(t *testing.T) {
		e := newTestEngine(t, stockBook(1, 1))

		require.ErrorIs(t, e.AddCopies(ctx, []BookCopy{{ISBN: 1, NumCopies: 1}, {ISBN: 5, NumCopies: 1}}), ErrNotFound)
		require.ErrorIs(t, e.AddCopies(ctx, []BookCopy{{ISBN: 1, NumCopies: 1}, {ISBN: 1, NumCopies: 0}}), ErrInvalidArgument)
		require.ErrorIs(t, e.AddCopies(ctx, []BookCopy{{ISBN: -1, NumCopies: 1}}), ErrInvalidArgument)
		require.ErrorIs(t, e.AddCopies(ctx, nil), ErrNullInput)

		got, err := e.GetBooksByISBN(ctx, []int{1})
		require.NoError(t, err)
		assert.Equal(t, 1, got[0].NumCopies)
	})

	t.Run("repeated isbn accumulates", func(t *testing.T) {
		e := newTestEngine(t, stockBook(1, 1))
		require.NoError(t, e.AddCopies(ctx, []BookCopy{{ISBN: 1, NumCopies: 2}, {ISBN: 1, NumCopies: 3}}))

		got, err := e.GetBooksByISBN(ctx, []int{1})
		require.NoError(t, err)
		assert.Equal(t, 6, got[0].NumCopies)
	})

	t.Run("stock cannot overflow", func(t *testing.T) {
		cases := []struct {
			name   string
			copies []BookCopy
		}{
			{"single count", []BookCopy{{ISBN: 1, NumCopies: math.MaxInt}}},
			{"repeated isbn", []BookCopy{{ISBN: 1, NumCopies: math.MaxInt - 10}, {ISBN: 1, NumCopies: 6}}},
			{"second title", []BookCopy{{ISBN: 2, NumCopies: 1}, {ISBN: 1, NumCopies: math.MaxInt - 4}}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				e := newTestEngine(t, stockBook(1, 5), stockBook(2, 1))
				require.ErrorIs(t, e.AddCopies(ctx, tc.copies), ErrInvalidArgument)

				got, err := e.GetBooksByISBN(ctx, []int{1, 2})
				require.NoError(t, err)
				assert.Equal(t, 5, got[0].NumCopies)
				assert.Equal(t, 1, got[1].NumCopies)
			})
		}
	})

	t.Run("fills stock up to the limit", func(t *testing.T) {
		e := newTestEngine(t, stockBook(1, 5))
		require.NoError(t, e.AddCopies(ctx, []BookCopy{{ISBN: 1, NumCopies: math.MaxInt - 6}, {ISBN: 1, NumCopies: 1}}))

		got, err := e.GetBooksByISBN(ctx, []int{1})
		require.NoError(t, err)
		assert.Equal(t, math.MaxInt, got[0].NumCopies)
	})
}

func TestBuyBooks(t *testing.T) {
	ctx := context.Background()

	t.Run("success decrements every title", func(t *testing.T) {
		e := newTestEngine(t, stockBook(1, 5), stockBook(2, 3))
		require.NoError(t, e.BuyBooks(ctx, []BookCopy{{ISBN: 1, NumCopies: 5}, {ISBN: 2, NumCopies: 1}}))

		got, err := e.GetBooksByISBN(ctx, []int{1, 2})
		require.NoError(t, err)
		assert.Equal(t, 0, got[0].NumCopies)
		assert.Equal(t, 2, got[1].NumCopies)
	})

	t.Run("shortfall records misses and sells nothing", func(t *testing.T) {
		e := newTestEngine(t, stockBook(1, 5), stockBook(2, 3), stockBook(3, 1))
		err := e.BuyBooks(ctx, []BookCopy{
			{ISBN: 1, NumCopies: 2},
			{ISBN: 2, NumCopies: 7},
			{ISBN: 3, NumCopies: 3},
		})
		require.ErrorIs(t, err, ErrInsufficientStock)

		got, err := e.GetBooksByISBN(ctx, []int{1, 2, 3})
		require.NoError(t, err)
		assert.Equal(t, []int{5, 3, 1}, []int{got[0].NumCopies, got[1].NumCopies, got[2].NumCopies})
		assert.Equal(t, []int64{0, 4, 2}, []int64{got[0].NumSaleMisses, got[1].NumSaleMisses, got[2].NumSaleMisses})

		demand, err := e.GetBooksInDemand(ctx)
		require.NoError(t, err)
		require.Len(t, demand, 2)
		assert.Equal(t, 2, demand[0].ISBN)
		assert.Equal(t, 3, demand[1].ISBN)
	})

	t.Run("repeated isbn is summed", func(t *testing.T) {
		e := newTestEngine(t, stockBook(1, 3))
		err := e.BuyBooks(ctx, []BookCopy{{ISBN: 1, NumCopies: 2}, {ISBN: 1, NumCopies: 2}})
		require.ErrorIs(t, err, ErrInsufficientStock)

		got, err := e.GetBooksByISBN(ctx, []int{1})
		require.NoError(t, err)
		assert.Equal(t, 3, got[0].NumCopies)
		assert.Equal(t, int64(1), got[0].NumSaleMisses)
	})

	t.Run("requested total cannot overflow", func(t *testing.T) {
		cases := []struct {
			name   string
			copies []BookCopy
		}{
			{"max then two", []BookCopy{{ISBN: 1, NumCopies: math.MaxInt}, {ISBN: 1, NumCopies: 2}}},
			{"two then max", []BookCopy{{ISBN: 1, NumCopies: 2}, {ISBN: 1, NumCopies: math.MaxInt}}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				e := newTestEngine(t, stockBook(1, 5))
				require.ErrorIs(t, e.BuyBooks(ctx, tc.copies), ErrInvalidArgument)

				got, err := e.GetBooksByISBN(ctx, []int{1})
				require.NoError(t, err)
				assert.Equal(t, 5, got[0].NumCopies)
				assert.Equal(t, int64(0), got[0].NumSaleMisses)
			})
		}
	})

	t.Run("huge request is a sale miss", func(t *testing.T) {
		e := newTestEngine(t, stockBook(1, 5))
		require.ErrorIs(t, e.BuyBooks(ctx, []BookCopy{{ISBN: 1, NumCopies: math.MaxInt}}), ErrInsufficientStock)
		require.ErrorIs(t, e.BuyBooks(ctx, []BookCopy{{ISBN: 1, NumCopies: math.MaxInt}}), ErrInsufficientStock)

		got, err := e.GetBooksByISBN(ctx, []int{1})
		require.NoError(t, err)
		assert.Equal(t, 5, got[0].NumCopies)
		assert.Equal(t, int64(math.MaxInt64), got[0].NumSaleMisses)
	})

	t.Run("validation errors touch nothing", func(t *testing.T) {
		e := newTestEngine(t, stockBook(1, 1))
		require.ErrorIs(t, e.BuyBooks(ctx, []BookCopy{{ISBN: 1, NumCopies: 5}, {ISBN: 9, NumCopies: 1}}), ErrNotFound)
		require.ErrorIs(t, e.BuyBooks(ctx, []BookCopy{{ISBN: 1, NumCopies: 5}, {ISBN: 1, NumCopies: -1}}), ErrInvalidArgument)
		require.ErrorIs(t, e.BuyBooks(ctx, nil), ErrNullInput)

		got, err := e.GetBooksByISBN(ctx, []int{1})
		require.NoError(t, err)
		assert.Equal(t, int64(0), got[0].NumSaleMisses)
	})
}

func TestUpdateEditorPicks(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, stockBook(1, 1), stockBook(2, 1))

	require.NoError(t, e.UpdateEditorPicks(ctx, []BookEditorPick{{ISBN: 1, EditorPick: true}, {ISBN: 2, EditorPick: true}}))
	require.ErrorIs(t, e.UpdateEditorPicks(ctx, []BookEditorPick{{ISBN: 2, EditorPick: false}, {ISBN: 3, EditorPick: true}}), ErrNotFound)
	require.ErrorIs(t, e.UpdateEditorPicks(ctx, nil), ErrNullInput)

	got, err := e.GetBooksByISBN(ctx, []int{1, 2})
	require.NoError(t, err)
	assert.True(t, got[0].EditorPick)
	assert.True(t, got[1].EditorPick)

	require.NoError(t, e.UpdateEditorPicks(ctx, []BookEditorPick{{ISBN: 1, EditorPick: true}, {ISBN: 1, EditorPick: false}}))
	got, err = e.GetBooksByISBN(ctx, []int{1})
	require.NoError(t, err)
	assert.False(t, got[0].EditorPick, "last entry wins")
}

func TestGetEditorPicks(t *testing.T) {
	ctx := context.Background()

	var books []StockBook
	var picks []BookEditorPick
	for i := 1; i <= 20; i++ {
		books = append(books, stockBook(i, 1))
		picks = append(picks, BookEditorPick{ISBN: i, EditorPick: i%2 == 0})
	}
	e := newTestEngine(t, books...)
	require.NoError(t, e.UpdateEditorPicks(ctx, picks))

	for _, n := range []int{0, 1, 4, 10, 15} {
		got, err := e.GetEditorPicks(ctx, n)
		require.NoError(t, err)
		require.Len(t, got, min(n, 10))

		seen := map[int]bool{}
		for _, b := range got {
			assert.Zero(t, b.ISBN%2, "isbn %d is not a pick", b.ISBN)
			assert.False(t, seen[b.ISBN], "isbn %d returned twice", b.ISBN)
			seen[b.ISBN] = true
		}
	}

	_, err := e.GetEditorPicks(ctx, -1)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRatings(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, stockBook(1, 1), stockBook(2, 1), stockBook(3, 1), stockBook(4, 1))

	require.NoError(t, e.RateBooks(ctx, []BookRating{
		{ISBN: 1, Rating: 3},
		{ISBN: 2, Rating: 5},
		{ISBN: 2, Rating: 4},
		{ISBN: 3, Rating: 3},
	}))
	require.ErrorIs(t, e.RateBooks(ctx, []BookRating{{ISBN: 1, Rating: 6}}), ErrInvalidArgument)
	require.ErrorIs(t, e.RateBooks(ctx, []BookRating{{ISBN: 1, Rating: 5}, {ISBN: 8, Rating: 5}}), ErrNotFound)

	books, err := e.GetBooks(ctx, []int{2})
	require.NoError(t, err)
	assert.Equal(t, 4.5, books[0].AverageRating)

	top, err := e.GetTopRatedBooks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 4)
	assert.Equal(t, []int{2, 1, 3, 4}, []int{top[0].ISBN, top[1].ISBN, top[2].ISBN, top[3].ISBN})
	assert.Equal(t, -1.0, top[3].AverageRating)

	top, err = e.GetTopRatedBooks(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)

	_, err = e.GetTopRatedBooks(ctx, -2)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, stockBook(1, 5))

	got, err := e.ListBooks(ctx)
	require.NoError(t, err)
	got[0].NumCopies = 100
	got[0].Title = "changed"

	again, err := e.GetBooksByISBN(ctx, []int{1})
	require.NoError(t, err)
	assert.Equal(t, 5, again[0].NumCopies)
	assert.Equal(t, "Title", again[0].Title)
}

func TestErrorKindsRoundTrip(t *testing.T) {
	for _, kind := range []string{KindInvalidArgument, KindNotFound, KindAlreadyExists, KindInsufficientStock, KindNullInput} {
		err := FromKind(kind, "boom")
		assert.Equal(t, kind, KindOf(err))
		assert.Equal(t, "boom", err.Error())
	}

	assert.Equal(t, "", KindOf(errors.New("other")))
	assert.Equal(t, "", KindOf(FromKind("nope", "x")))
}
