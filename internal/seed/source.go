package seed

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"Bookstore/internal/inventory"
)

const (
	driverName   = "pgx"
	pingTimeout  = 1 * time.Second
	pgUndefTable = "42P01"
)

// ErrNoCatalog means the database has no books table to seed from.
var ErrNoCatalog = errors.New("seed: books table missing")

// Source yields the titles to load at startup.
type Source interface {
	Books(ctx context.Context) ([]inventory.StockBook, error)
}

// PostgresSource reads titles from a books table. It never writes; the
// catalog stays in memory.
type PostgresSource struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresSource(db *sql.DB, timeout time.Duration) *PostgresSource {
	return &PostgresSource{db: db, timeout: timeout}
}

// OpenPostgres opens dsn with the pgx driver and checks it is reachable.
func OpenPostgres(ctx context.Context, dsn string, timeout time.Duration) (*PostgresSource, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	s := NewPostgresSource(db, timeout)
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresSource) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *PostgresSource) Close() error { return s.db.Close() }

func (s *PostgresSource) Books(ctx context.Context) ([]inventory.StockBook, error) {
	out := make([]inventory.StockBook, 0, 64)

	err := withTimeout(ctx, s.timeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT isbn, title, author, price, num_copies, editor_pick
			FROM books
			ORDER BY isbn ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var b inventory.StockBook
			if err := rows.Scan(&b.ISBN, &b.Title, &b.Author, &b.Price, &b.NumCopies, &b.EditorPick); err != nil {
				return err
			}
			out = append(out, b)
		}
		return rows.Err()
	})

	if isUndefinedTable(err) {
		return nil, ErrNoCatalog
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	if d <= 0 {
		return fn(parent)
	}
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefTable
}
