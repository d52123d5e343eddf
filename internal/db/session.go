package db

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aster-analytics/olistload/pkg/olist"
)

// ErrNoTransaction is returned by Commit when no transaction is open.
var ErrNoTransaction = errors.New("no transaction in progress")

// ErrSessionClosed is returned by every call made after Close.
var ErrSessionClosed = errors.New("session is closed")

// Session holds one dedicated connection for the lifetime of a load.
// Statements, COPY streams and pg_temp staging tables all share that
// connection, so everything issued between Begin and Commit is one
// transaction.
//
// Thread-Safety: NOT safe for concurrent use.
//
// Lifecycle:
//  1. Created by Open()
//  2. Begin / Exec / BulkLoad / Commit or Rollback, repeated per phase
//  3. Cleaned up via Close() (idempotent)
type Session struct {
	pool   *pgxpool.Pool
	conn   *pgxpool.Conn
	tx     pgx.Tx
	closer io.Closer
}

var _ olist.TxSession = (*Session)(nil)

// Open connects through connector and pins one connection from the pool.
// If the connector implements io.Closer it is closed together with the session.
func Open(ctx context.Context, connector olist.Connector) (*Session, error) {
	pool, err := connector.Connect(ctx)
	if err != nil {
		CloseConnector(connector)
		return nil, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		CloseConnector(connector)
		return nil, fmt.Errorf("failed to acquire connection: %w: %w", olist.ErrConnectionFailed, err)
	}

	s := &Session{pool: pool, conn: conn}
	if c, ok := connector.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

// CloseConnector releases a connector that holds resources of its own, such
// as a cloud credential refresher.
func CloseConnector(connector olist.Connector) {
	if c, ok := connector.(io.Closer); ok {
		_ = c.Close()
	}
}

// Begin opens a transaction on the session's connection.
func (s *Session) Begin(ctx context.Context) error {
	if s.conn == nil {
		return ErrSessionClosed
	}
	if s.tx != nil {
		return fmt.Errorf("transaction already in progress")
	}
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	s.tx = tx
	return nil
}

// Commit commits the open transaction.
func (s *Session) Commit(ctx context.Context) error {
	if s.tx == nil {
		return ErrNoTransaction
	}
	tx := s.tx
	s.tx = nil
	return tx.Commit(ctx)
}

// Rollback aborts the open transaction; without one it does nothing.
func (s *Session) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// InTransaction reports whether Begin has been called without Commit or Rollback.
func (s *Session) InTransaction() bool {
	return s.tx != nil
}

// Exec runs sql inside the open transaction, or in autocommit mode without one.
func (s *Session) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if s.conn == nil {
		return pgconn.CommandTag{}, ErrSessionClosed
	}
	if s.tx != nil {
		return s.tx.Exec(ctx, sql, args...)
	}
	return s.conn.Exec(ctx, sql, args...)
}

// QueryRow runs a single-row query on the session's connection.
func (s *Session) QueryRow(ctx context.Context, sql string, args ...any) olist.Row {
	if s.conn == nil {
		return errRow{err: ErrSessionClosed}
	}
	if s.tx != nil {
		return s.tx.QueryRow(ctx, sql, args...)
	}
	return s.conn.QueryRow(ctx, sql, args...)
}

// BulkLoad streams r through COPY FROM STDIN. The transaction, when open,
// lives on this same connection, so the rows belong to it.
func (s *Session) BulkLoad(ctx context.Context, r io.Reader, dest olist.Destination) (int64, error) {
	if s.conn == nil {
		return 0, ErrSessionClosed
	}
	tag, err := s.conn.Conn().PgConn().CopyFrom(ctx, r, dest.CopySQL())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Close releases all resources associated with the session.
// This method is idempotent and safe to call multiple times.
//
// Resource cleanup order:
//  1. Release the acquired connection back to the pool
//  2. Close the connection pool
//  3. Close the connector, if it holds resources (Cloud SQL dialer)
//
// An open transaction is abandoned; PostgreSQL rolls it back when the
// connection closes.
func (s *Session) Close() error {
	s.tx = nil

	if s.conn != nil {
		s.conn.Release()
		s.conn = nil
	}

	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}

	if s.closer != nil {
		err := s.closer.Close()
		s.closer = nil
		return err
	}

	return nil
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

// PoolAdapter adapts *pgxpool.Pool to olist.DBConnection for management
// operations that need no dedicated connection.
//
// Thread-Safety: Safe for concurrent use (pgxpool.Pool is thread-safe).
type PoolAdapter struct {
	pool *pgxpool.Pool
}

// NewPoolAdapter creates a new PoolAdapter wrapping the given pool.
func NewPoolAdapter(pool *pgxpool.Pool) *PoolAdapter {
	return &PoolAdapter{pool: pool}
}

// Exec executes a query without returning any rows.
func (p *PoolAdapter) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return p.pool.Exec(ctx, sql, args...)
}

// QueryRow executes a query that is expected to return at most one row.
func (p *PoolAdapter) QueryRow(ctx context.Context, sql string, args ...any) olist.Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

var _ olist.DBConnection = (*PoolAdapter)(nil)
