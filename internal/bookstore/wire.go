package bookstore

import (
	"net/http"

	"Bookstore/internal/inventory"
)

const (
	pathAddBooks          = "/stock/addbooks"
	pathAddCopies         = "/stock/addcopies"
	pathListBooks         = "/stock/listbooks"
	pathUpdateEditorPicks = "/stock/updateeditorpicks"
	pathRemoveBooks       = "/stock/removebooks"
	pathRemoveAllBooks    = "/stock/removeallbooks"
	pathStockBooksByISBN  = "/stock/getstockbooksbyisbn"
	pathBooksInDemand     = "/stock/booksindemand"

	pathBuyBooks    = "/buybooks"
	pathRateBooks   = "/ratebooks"
	pathGetBooks    = "/getbooks"
	pathEditorPicks = "/editorpicks"
	pathTopRated    = "/toprated"

	paramNumBooks = "number_of_books"

	maxBodyBytes = 4 << 20
)

// Inventory is everything the transport serves.
type Inventory interface {
	inventory.StockManager
	inventory.BookStore
}

type listResponse[T any] struct {
	List []T `json:"list"`
}

type emptyResponse struct{}

// statusFor maps an engine error kind onto an HTTP status.
func statusFor(kind string) int {
	switch kind {
	case inventory.KindInvalidArgument, inventory.KindNullInput:
		return http.StatusBadRequest
	case inventory.KindNotFound:
		return http.StatusNotFound
	case inventory.KindAlreadyExists, inventory.KindInsufficientStock:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
