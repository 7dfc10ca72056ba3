package bookstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"Bookstore/internal/inventory"
	"Bookstore/pkg/kit"
)

var (
	ErrUnavailable = errors.New("bookstore unavailable")
	ErrBadStatus   = errors.New("bookstore bad status")
)

// Client talks to a bookstore server. It satisfies both inventory interfaces,
// and engine errors come back with their kind intact.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

var _ Inventory = (*Client)(nil)

func NewClient(baseURL string) *Client {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) AddBooks(ctx context.Context, books []inventory.StockBook) error {
	return c.do(ctx, http.MethodPost, pathAddBooks, books, nil)
}

func (c *Client) AddCopies(ctx context.Context, copies []inventory.BookCopy) error {
	return c.do(ctx, http.MethodPost, pathAddCopies, copies, nil)
}

func (c *Client) ListBooks(ctx context.Context) ([]inventory.StockBook, error) {
	var out listResponse[inventory.StockBook]
	err := c.do(ctx, http.MethodGet, pathListBooks, nil, &out)
	return out.List, err
}

func (c *Client) GetBooksByISBN(ctx context.Context, isbns []int) ([]inventory.StockBook, error) {
	var out listResponse[inventory.StockBook]
	err := c.do(ctx, http.MethodPost, pathStockBooksByISBN, isbns, &out)
	return out.List, err
}

func (c *Client) GetBooksInDemand(ctx context.Context) ([]inventory.StockBook, error) {
	var out listResponse[inventory.StockBook]
	err := c.do(ctx, http.MethodGet, pathBooksInDemand, nil, &out)
	return out.List, err
}

func (c *Client) UpdateEditorPicks(ctx context.Context, picks []inventory.BookEditorPick) error {
	return c.do(ctx, http.MethodPost, pathUpdateEditorPicks, picks, nil)
}

func (c *Client) RemoveBooks(ctx context.Context, isbns []int) error {
	return c.do(ctx, http.MethodPost, pathRemoveBooks, isbns, nil)
}

func (c *Client) RemoveAllBooks(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, pathRemoveAllBooks, struct{}{}, nil)
}

func (c *Client) BuyBooks(ctx context.Context, copies []inventory.BookCopy) error {
	return c.do(ctx, http.MethodPost, pathBuyBooks, copies, nil)
}

func (c *Client) RateBooks(ctx context.Context, ratings []inventory.BookRating) error {
	return c.do(ctx, http.MethodPost, pathRateBooks, ratings, nil)
}

func (c *Client) GetBooks(ctx context.Context, isbns []int) ([]inventory.Book, error) {
	var out listResponse[inventory.Book]
	err := c.do(ctx, http.MethodPost, pathGetBooks, isbns, &out)
	return out.List, err
}

func (c *Client) GetEditorPicks(ctx context.Context, n int) ([]inventory.Book, error) {
	var out listResponse[inventory.Book]
	err := c.do(ctx, http.MethodGet, withNumBooks(pathEditorPicks, n), nil, &out)
	return out.List, err
}

func (c *Client) GetTopRatedBooks(ctx context.Context, n int) ([]inventory.Book, error) {
	var out listResponse[inventory.Book]
	err := c.do(ctx, http.MethodGet, withNumBooks(pathTopRated, n), nil, &out)
	return out.List, err
}

func withNumBooks(path string, n int) string {
	return path + "?" + url.Values{paramNumBooks: {strconv.Itoa(n)}}.Encode()
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if method != http.MethodGet {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var er kit.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Kind == "" {
		return fmt.Errorf("%w: status=%d", ErrBadStatus, resp.StatusCode)
	}
	if err := inventory.FromKind(er.Kind, er.Error); inventory.KindOf(err) != "" {
		return err
	}
	return fmt.Errorf("%w: status=%d kind=%s: %s", ErrBadStatus, resp.StatusCode, er.Kind, er.Error)
}
