package repository

import (
	"context"
	"database/sql"
)

// Store bundles all persistence operations behind one handle.  Methods
// that take part in a multi-seat operation must run inside WithTx; they
// pick the transaction up from the context so the service layer never
// touches *sql.Tx directly.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store bound to the provided database pool.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// DB exposes the underlying pool for health checks and shutdown.
func (s *Store) DB() *sql.DB { return s.db }

type txKey struct{}

// WithTx runs fn inside a database transaction.  The transaction is
// committed when fn returns nil and rolled back on any error or panic, so
// a batch that fails half-way leaves no partial state behind.  Nested
// calls reuse the transaction already carried by the context.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// q returns the transaction carried by ctx, falling back to the pool.
func (s *Store) q(ctx context.Context) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return s.db
}
