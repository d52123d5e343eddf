// Package fakes provides in-memory stand-ins for the database session and
// logger, so loader components can be tested without a server.
package fakes

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aster-analytics/olistload/pkg/olist"
)

// Transaction markers recorded in Session.Log.
const (
	LogBegin    = "BEGIN"
	LogCommit   = "COMMIT"
	LogRollback = "ROLLBACK"
)

// BulkLoadCall records one BulkLoad invocation.
type BulkLoadCall struct {
	Dest olist.Destination
	Data string
}

// Session records every statement it receives and answers from hooks.
// Without hooks, Exec succeeds with an empty tag, QueryRow returns a row
// whose Scan fails, and BulkLoad counts CSV records.
type Session struct {
	// Log holds statements and transaction markers in call order.
	Log   []string
	Args  [][]any
	Loads []BulkLoadCall

	ExecFunc     func(sql string, args []any) (pgconn.CommandTag, error)
	QueryRowFunc func(sql string, args []any) olist.Row
	BulkLoadFunc func(data string, dest olist.Destination) (int64, error)

	BeginErr    error
	CommitErr   error
	RollbackErr error

	inTx   bool
	closed bool
}

var _ olist.TxSession = (*Session)(nil)

// NewSession returns an empty recording session.
func NewSession() *Session {
	return &Session{}
}

func (s *Session) Begin(ctx context.Context) error {
	if s.BeginErr != nil {
		return s.BeginErr
	}
	if s.inTx {
		return errors.New("transaction already open")
	}
	s.inTx = true
	s.Log = append(s.Log, LogBegin)
	return nil
}

func (s *Session) Commit(ctx context.Context) error {
	if !s.inTx {
		return errors.New("no transaction open")
	}
	s.inTx = false
	if s.CommitErr != nil {
		return s.CommitErr
	}
	s.Log = append(s.Log, LogCommit)
	return nil
}

func (s *Session) Rollback(ctx context.Context) error {
	if !s.inTx {
		return nil
	}
	s.inTx = false
	s.Log = append(s.Log, LogRollback)
	return s.RollbackErr
}

func (s *Session) Close() error {
	s.closed = true
	return nil
}

// InTransaction reports whether Begin was called without Commit or Rollback.
func (s *Session) InTransaction() bool { return s.inTx }

// Closed reports whether Close was called.
func (s *Session) Closed() bool { return s.closed }

func (s *Session) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if err := ctx.Err(); err != nil {
		return pgconn.CommandTag{}, err
	}
	s.record(sql, args)
	if s.ExecFunc != nil {
		return s.ExecFunc(sql, args)
	}
	return pgconn.CommandTag{}, nil
}

func (s *Session) QueryRow(ctx context.Context, sql string, args ...any) olist.Row {
	if err := ctx.Err(); err != nil {
		return ErrRow(err)
	}
	s.record(sql, args)
	if s.QueryRowFunc != nil {
		return s.QueryRowFunc(sql, args)
	}
	return ErrRow(fmt.Errorf("no row configured for %q", firstLine(sql)))
}

func (s *Session) BulkLoad(ctx context.Context, r io.Reader, dest olist.Destination) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.record(dest.CopySQL(), nil)
	s.Loads = append(s.Loads, BulkLoadCall{Dest: dest, Data: string(data)})

	if s.BulkLoadFunc != nil {
		return s.BulkLoadFunc(string(data), dest)
	}
	cr := csv.NewReader(strings.NewReader(string(data)))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return 0, err
	}
	return int64(len(records)), nil
}

func (s *Session) record(sql string, args []any) {
	s.Log = append(s.Log, sql)
	s.Args = append(s.Args, args)
}

// Statements returns logged statements containing substr.
func (s *Session) Statements(substr string) []string {
	var out []string
	for _, stmt := range s.Log {
		if strings.Contains(stmt, substr) {
			out = append(out, stmt)
		}
	}
	return out
}

// Row is a canned query result.
type Row struct {
	values []any
	err    error
}

// ValuesRow returns a row that scans values into destinations by position.
func ValuesRow(values ...any) *Row {
	return &Row{values: values}
}

// ErrRow returns a row whose Scan fails with err.
func ErrRow(err error) *Row {
	return &Row{err: err}
}

func (r *Row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(r.values))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d)
		if target.Kind() != reflect.Pointer || target.IsNil() {
			return fmt.Errorf("scan: destination %d is not a pointer", i)
		}
		value := reflect.ValueOf(r.values[i])
		if !value.Type().AssignableTo(target.Elem().Type()) {
			return fmt.Errorf("scan: cannot assign %T to %s", r.values[i], target.Elem().Type())
		}
		target.Elem().Set(value)
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
