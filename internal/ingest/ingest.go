// Package ingest streams CSV source files into PostgreSQL tables with COPY.
package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aster-analytics/olistload/internal/pgerr"
	"github.com/aster-analytics/olistload/internal/source"
	"github.com/aster-analytics/olistload/pkg/olist"
)

// Ingestor copies one source file into one destination per call. The header
// row is checked against the destination columns and never sent to the server.
type Ingestor struct {
	provider source.Provider
	logger   olist.Logger
}

// NewIngestor creates an Ingestor reading files from provider.
//
// Panics if any dependency is nil (programmer error).
func NewIngestor(provider source.Provider, logger olist.Logger) *Ingestor {
	if provider == nil {
		panic("provider cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Ingestor{provider: provider, logger: logger}
}

// Ingest streams the file name into dest inside the session's current
// transaction and returns the number of rows copied.
//
// Errors: ErrSourceNotFound when the file is missing, ErrMalformedRow for a
// bad header or a row the server rejects, ErrStructural when the server
// rejects the destination itself, ErrDuplicateKey or ErrOrphanRows
// when a constraint on dest rejects a row, ErrConnectionFailed when the
// session is lost.
func (i *Ingestor) Ingest(ctx context.Context, s olist.Session, name string, dest olist.Destination) (int64, error) {
	rc, err := i.provider.Open(name)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	r := source.SkipBOM(rc)
	if err := checkHeader(r, dest.Columns); err != nil {
		return 0, fmt.Errorf("%s: %w", i.provider.Location(name), err)
	}

	rows, err := s.BulkLoad(ctx, r, dest)
	if err != nil {
		i.logger.Verbose("COPY into %s failed: %s", dest, pgerr.Describe(err))
		return 0, pgerr.Wrap(copyErrorKind(err), err, "failed to load %s into %s%s",
			i.provider.Location(name), dest, copyPosition(err))
	}

	i.logger.Verbose("Copied %d rows from %s into %s", rows, name, dest)
	return rows, nil
}

// copyErrorKind maps a failed COPY to an error kind. A server error outside
// the data and integrity classes means the destination itself is wrong.
func copyErrorKind(err error) error {
	var pgErr *pgconn.PgError
	switch {
	case pgerr.IsUniqueViolation(err):
		return olist.ErrDuplicateKey
	case pgerr.IsForeignKeyViolation(err):
		return olist.ErrOrphanRows
	case pgerr.IsDataError(err):
		return olist.ErrMalformedRow
	case errors.As(err, &pgErr):
		return olist.ErrStructural
	default:
		return olist.ErrMalformedRow
	}
}

// copyPosition returns the server's "COPY t, line n" context, if any.
func copyPosition(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Where != "" {
		return " (" + pgErr.Where + ")"
	}
	return ""
}

// checkHeader consumes the first line of r and compares it with columns.
// Names compare case-insensitively after trimming spaces.
func checkHeader(r *bufio.Reader, columns []string) error {
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if strings.TrimSpace(line) == "" {
		return fmt.Errorf("missing header row: %w", olist.ErrMalformedRow)
	}

	header, err := csv.NewReader(strings.NewReader(line)).Read()
	if err != nil {
		return fmt.Errorf("unparseable header row: %w: %w", olist.ErrMalformedRow, err)
	}

	if len(header) != len(columns) {
		return fmt.Errorf("header has %d columns, expected %d (%s): %w",
			len(header), len(columns), strings.Join(columns, ","), olist.ErrMalformedRow)
	}
	for idx, got := range header {
		if !strings.EqualFold(strings.TrimSpace(got), columns[idx]) {
			return fmt.Errorf("header column %d is %q, expected %q: %w",
				idx+1, got, columns[idx], olist.ErrMalformedRow)
		}
	}
	return nil
}
