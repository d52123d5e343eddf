package olist

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Row represents a single row returned by QueryRow.
// This interface decouples from pgx.Row.
type Row interface {
	// Scan reads the values from the row into dest values.
	Scan(dest ...any) error
}

// Session is the statement surface the loader components work against.
// Every call runs on one dedicated connection and, while a transaction is
// open, inside that transaction.
//
// Thread-Safety: NOT safe for concurrent use.
type Session interface {
	// Exec executes a statement without returning rows.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// QueryRow executes a query expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) Row

	// BulkLoad streams r into dest using the server's COPY protocol.
	// The stream must be CSV without a header row. Returns rows copied.
	BulkLoad(ctx context.Context, r io.Reader, dest Destination) (int64, error)
}

// TxSession is a Session that owns its transaction boundaries.
type TxSession interface {
	Session

	// Begin opens a transaction. Only one may be open at a time.
	Begin(ctx context.Context) error

	// Commit commits the open transaction.
	Commit(ctx context.Context) error

	// Rollback aborts the open transaction. A no-op when none is open.
	Rollback(ctx context.Context) error

	// Close releases the connection and pool.
	Close() error
}

// Destination describes where a bulk load writes: a permanent table in a
// namespace or a session-scoped staging table.
type Destination struct {
	// Schema is the namespace; ignored when Temporary is set.
	Schema string

	// Table is the unqualified table name.
	Table string

	// Columns lists the target columns in source file order.
	Columns []string

	// Temporary marks a pg_temp staging table.
	Temporary bool
}

// Identifier returns the qualified table identifier.
func (d Destination) Identifier() pgx.Identifier {
	if d.Temporary {
		return pgx.Identifier{"pg_temp", d.Table}
	}
	return pgx.Identifier{d.Schema, d.Table}
}

// QualifiedName returns the quoted, schema-qualified table name.
func (d Destination) QualifiedName() string {
	return d.Identifier().Sanitize()
}

// ColumnList returns the quoted, comma-separated column list.
func (d Destination) ColumnList() string {
	quoted := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

// CopySQL returns the COPY statement that streams headerless CSV into the destination.
func (d Destination) CopySQL() string {
	return fmt.Sprintf("COPY %s (%s) FROM STDIN WITH (FORMAT csv, DELIMITER ',')",
		d.QualifiedName(), d.ColumnList())
}

// String returns a readable name for logs.
func (d Destination) String() string {
	if d.Temporary {
		return "pg_temp." + d.Table
	}
	return d.Schema + "." + d.Table
}
