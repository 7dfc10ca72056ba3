package bookstore

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Bookstore/internal/inventory"
	"Bookstore/pkg/kit"
)

type Server struct {
	Store   Inventory
	Log     *zap.Logger
	Metrics *kit.InventoryMetrics

	// Ready reports whether initial seeding finished. Nil means always ready.
	Ready func() bool
}

// Routes mounts the customer and stock-manager API. stockMW wraps only the
// /stock routes.
func (s *Server) Routes(stockMW ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.readyz)

	r.Group(func(sr chi.Router) {
		sr.Use(stockMW...)
		sr.Post(pathAddBooks, s.addBooks)
		sr.Post(pathAddCopies, s.addCopies)
		sr.Get(pathListBooks, s.listBooks)
		sr.Post(pathUpdateEditorPicks, s.updateEditorPicks)
		sr.Post(pathRemoveBooks, s.removeBooks)
		sr.Post(pathRemoveAllBooks, s.removeAllBooks)
		sr.Post(pathStockBooksByISBN, s.stockBooksByISBN)
		sr.Get(pathBooksInDemand, s.booksInDemand)
	})

	r.Post(pathBuyBooks, s.buyBooks)
	r.Post(pathRateBooks, s.rateBooks)
	r.Post(pathGetBooks, s.getBooks)
	r.Get(pathEditorPicks, s.editorPicks)
	r.Get(pathTopRated, s.topRated)

	return r
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.Ready != nil && !s.Ready() {
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) addBooks(w http.ResponseWriter, r *http.Request) {
	books, ok := decodeBody[[]inventory.StockBook](s, w, r)
	if !ok {
		return
	}
	s.finish(w, r, "add_books", s.Store.AddBooks(r.Context(), books))
}

func (s *Server) addCopies(w http.ResponseWriter, r *http.Request) {
	copies, ok := decodeBody[[]inventory.BookCopy](s, w, r)
	if !ok {
		return
	}
	err := s.Store.AddCopies(r.Context(), copies)
	if err == nil && s.Metrics != nil {
		s.Metrics.CopiesAdded.Add(float64(totalCopies(copies)))
	}
	s.finish(w, r, "add_copies", err)
}

func (s *Server) listBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.Store.ListBooks(r.Context())
	finishList(s, w, r, "list_books", books, err)
}

func (s *Server) updateEditorPicks(w http.ResponseWriter, r *http.Request) {
	picks, ok := decodeBody[[]inventory.BookEditorPick](s, w, r)
	if !ok {
		return
	}
	s.finish(w, r, "update_editor_picks", s.Store.UpdateEditorPicks(r.Context(), picks))
}

func (s *Server) removeBooks(w http.ResponseWriter, r *http.Request) {
	isbns, ok := decodeBody[[]int](s, w, r)
	if !ok {
		return
	}
	s.finish(w, r, "remove_books", s.Store.RemoveBooks(r.Context(), isbns))
}

func (s *Server) removeAllBooks(w http.ResponseWriter, r *http.Request) {
	s.finish(w, r, "remove_all_books", s.Store.RemoveAllBooks(r.Context()))
}

func (s *Server) stockBooksByISBN(w http.ResponseWriter, r *http.Request) {
	isbns, ok := decodeBody[[]int](s, w, r)
	if !ok {
		return
	}
	books, err := s.Store.GetBooksByISBN(r.Context(), isbns)
	finishList(s, w, r, "get_stock_books_by_isbn", books, err)
}

func (s *Server) booksInDemand(w http.ResponseWriter, r *http.Request) {
	books, err := s.Store.GetBooksInDemand(r.Context())
	finishList(s, w, r, "books_in_demand", books, err)
}

func (s *Server) buyBooks(w http.ResponseWriter, r *http.Request) {
	copies, ok := decodeBody[[]inventory.BookCopy](s, w, r)
	if !ok {
		return
	}
	err := s.Store.BuyBooks(r.Context(), copies)
	if s.Metrics != nil {
		switch {
		case err == nil:
			s.Metrics.CopiesSold.Add(totalCopies(copies))
		case errors.Is(err, inventory.ErrInsufficientStock):
			s.Metrics.FailedPurchaseCopies.Add(totalCopies(copies))
		}
	}
	s.finish(w, r, "buy_books", err)
}

func (s *Server) rateBooks(w http.ResponseWriter, r *http.Request) {
	ratings, ok := decodeBody[[]inventory.BookRating](s, w, r)
	if !ok {
		return
	}
	s.finish(w, r, "rate_books", s.Store.RateBooks(r.Context(), ratings))
}

func (s *Server) getBooks(w http.ResponseWriter, r *http.Request) {
	isbns, ok := decodeBody[[]int](s, w, r)
	if !ok {
		return
	}
	books, err := s.Store.GetBooks(r.Context(), isbns)
	finishList(s, w, r, "get_books", books, err)
}

func (s *Server) editorPicks(w http.ResponseWriter, r *http.Request) {
	n, ok := numBooks(w, r)
	if !ok {
		return
	}
	books, err := s.Store.GetEditorPicks(r.Context(), n)
	finishList(s, w, r, "editor_picks", books, err)
}

func (s *Server) topRated(w http.ResponseWriter, r *http.Request) {
	n, ok := numBooks(w, r)
	if !ok {
		return
	}
	books, err := s.Store.GetTopRatedBooks(r.Context(), n)
	finishList(s, w, r, "top_rated", books, err)
}

func numBooks(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get(paramNumBooks)
	n, err := strconv.Atoi(raw)
	if err != nil {
		kit.WriteKindError(w, r, http.StatusBadRequest, inventory.KindInvalidArgument,
			"number_of_books must be an integer", map[string]any{paramNumBooks: raw})
		return 0, false
	}
	return n, true
}

// decodeBody reads one JSON value. A JSON null decodes to a nil slice, which
// the engine rejects as null input.
func decodeBody[T any](s *Server, w http.ResponseWriter, r *http.Request) (T, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var v T
	err := dec.Decode(&v)
	if err == nil && dec.Decode(&struct{}{}) != io.EOF {
		err = errors.New("extra data after json value")
	}
	if err != nil {
		if s.Log != nil {
			s.Log.Debug("bad request body", zap.Error(err), zap.String("path", r.URL.Path))
		}
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		var zero T
		return zero, false
	}
	return v, true
}

func (s *Server) finish(w http.ResponseWriter, r *http.Request, op string, err error) {
	if err != nil {
		s.writeStoreError(w, r, op, err)
		return
	}
	s.Metrics.Observe(op, "ok")
	kit.WriteJSON(w, http.StatusOK, emptyResponse{})
}

func finishList[T any](s *Server, w http.ResponseWriter, r *http.Request, op string, list []T, err error) {
	if err != nil {
		s.writeStoreError(w, r, op, err)
		return
	}
	if list == nil {
		list = []T{}
	}
	s.Metrics.Observe(op, "ok")
	kit.WriteJSON(w, http.StatusOK, listResponse[T]{List: list})
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	kind := inventory.KindOf(err)
	if kind == "" {
		s.Metrics.Observe(op, "error")
		if s.Log != nil {
			s.Log.Error("store operation failed", zap.String("op", op), zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	s.Metrics.Observe(op, kind)
	if s.Log != nil {
		s.Log.Warn("store operation rejected", zap.String("op", op), zap.String("kind", kind), zap.Error(err))
	}
	kit.WriteKindError(w, r, statusFor(kind), kind, err.Error(), nil)
}

func totalCopies(copies []inventory.BookCopy) float64 {
	var n float64
	for _, c := range copies {
		n += float64(c.NumCopies)
	}
	return n
}
