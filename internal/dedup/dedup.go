// Package dedup loads tables whose source files may repeat keys. Rows go to
// a session-scoped staging table first and are reconciled into the final
// table keeping one row per key, the first one in file order.
package dedup

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/aster-analytics/olistload/internal/pgerr"
	"github.com/aster-analytics/olistload/internal/schema"
	"github.com/aster-analytics/olistload/pkg/olist"
)

const (
	stagingPrefix = "_stg_"

	// OrdinalColumn records the file order of staged rows.
	OrdinalColumn = "_stg_ordinal"
)

// Ingester copies a source file into a destination.
type Ingester interface {
	Ingest(ctx context.Context, s olist.Session, name string, dest olist.Destination) (int64, error)
}

// Result summarizes one reconcile.
type Result struct {
	Table string

	// Staged is the number of rows read from the source file.
	Staged int64

	// DistinctKeys counts distinct keys among staged rows.
	DistinctKeys int64

	// EligibleKeys counts keys with at least one row whose required
	// parents exist. Equals DistinctKeys when nothing is required.
	EligibleKeys int64

	// Inserted is the number of rows written to the final table.
	Inserted int64
}

// Duplicates is the number of staged rows dropped for repeating a key.
func (r Result) Duplicates() int64 { return r.Staged - r.DistinctKeys }

// OrphanKeys is the number of keys dropped because no row had its parents.
func (r Result) OrphanKeys() int64 { return r.DistinctKeys - r.EligibleKeys }

// Deduplicator stages and reconciles keyed tables.
type Deduplicator struct {
	ingester Ingester
	logger   olist.Logger
}

// New creates a Deduplicator.
//
// Panics if any dependency is nil (programmer error).
func New(ingester Ingester, logger olist.Logger) *Deduplicator {
	if ingester == nil {
		panic("ingester cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Deduplicator{ingester: ingester, logger: logger}
}

// StagingDestination returns the pg_temp table the source of t is staged in.
func StagingDestination(t schema.Table) olist.Destination {
	return olist.Destination{Table: stagingPrefix + t.Name, Columns: t.ColumnNames(), Temporary: true}
}

// Reconcile loads t's source through staging into namespace.t. It must run
// inside a transaction; the staging table is dropped on commit at the latest.
func (d *Deduplicator) Reconcile(ctx context.Context, s olist.Session, namespace string, t schema.Table) (Result, error) {
	res := Result{Table: t.Name}
	if !t.HasKey() {
		return res, fmt.Errorf("table %s has no key to deduplicate on: %w", t.Name, olist.ErrStructural)
	}

	stg := StagingDestination(t)
	if err := d.exec(ctx, s, olist.ErrStructural, DropStagingSQL(t)); err != nil {
		return res, err
	}
	if err := d.exec(ctx, s, olist.ErrStructural, CreateStagingSQL(t)); err != nil {
		return res, err
	}

	if _, err := d.ingester.Ingest(ctx, s, t.Source, stg); err != nil {
		return res, err
	}

	if err := s.QueryRow(ctx, StatsSQL(t)).Scan(&res.Staged, &res.DistinctKeys); err != nil {
		return res, pgerr.Wrap(olist.ErrMalformedRow, err, "failed to measure %s", stg)
	}
	res.EligibleKeys = res.DistinctKeys
	if len(t.RequireParents) > 0 {
		if err := s.QueryRow(ctx, EligibleSQL(t, namespace)).Scan(&res.EligibleKeys); err != nil {
			return res, pgerr.Wrap(olist.ErrMalformedRow, err, "failed to measure %s", stg)
		}
	}

	tag, err := s.Exec(ctx, InsertSQL(t, namespace))
	if err != nil {
		kind := olist.ErrMalformedRow
		if pgerr.IsForeignKeyViolation(err) {
			kind = olist.ErrOrphanRows
		}
		return res, pgerr.Wrap(kind, err, "failed to reconcile %s into %s.%s", stg, namespace, t.Name)
	}
	res.Inserted = tag.RowsAffected()

	if err := d.exec(ctx, s, olist.ErrStructural, DropStagingSQL(t)); err != nil {
		return res, err
	}

	d.logger.Verbose("Reconciled %s: staged=%d distinct=%d inserted=%d duplicates=%d orphan_keys=%d",
		t.Name, res.Staged, res.DistinctKeys, res.Inserted, res.Duplicates(), res.OrphanKeys())
	return res, nil
}

func (d *Deduplicator) exec(ctx context.Context, s olist.Session, kind error, stmt string) error {
	if _, err := s.Exec(ctx, stmt); err != nil {
		return pgerr.Wrap(kind, err, "statement failed: %s", firstLine(stmt))
	}
	return nil
}

// CreateStagingSQL creates the staging table for t. Unqualified TEMP tables
// land in pg_temp.
func CreateStagingSQL(t schema.Table) string {
	defs := append(t.ColumnDefs(), fmt.Sprintf("%s bigint GENERATED ALWAYS AS IDENTITY", ident(OrdinalColumn)))
	return fmt.Sprintf("CREATE TEMP TABLE %s (\n    %s\n) ON COMMIT DROP",
		ident(stagingPrefix+t.Name), strings.Join(defs, ",\n    "))
}

// DropStagingSQL drops t's staging table if a previous attempt left one.
func DropStagingSQL(t schema.Table) string {
	return "DROP TABLE IF EXISTS " + StagingDestination(t).QualifiedName()
}

// StatsSQL counts staged rows and distinct keys.
func StatsSQL(t schema.Table) string {
	return fmt.Sprintf("SELECT count(*), count(DISTINCT (%s)) FROM %s",
		prefixed("s", t.PrimaryKey), stagingFrom(t))
}

// EligibleSQL counts distinct keys among staged rows whose required parents exist.
func EligibleSQL(t schema.Table, namespace string) string {
	return fmt.Sprintf("SELECT count(DISTINCT (%s)) FROM %s%s",
		prefixed("s", t.PrimaryKey), stagingFrom(t), parentJoins(t, namespace))
}

// InsertSQL moves one row per key from staging into the final table. Rows
// missing a required parent are filtered before DISTINCT ON picks the first
// row per key in file order.
func InsertSQL(t schema.Table, namespace string) string {
	key := prefixed("s", t.PrimaryKey)
	return fmt.Sprintf("INSERT INTO %s (%s)\nSELECT DISTINCT ON (%s) %s\nFROM %s%s\nORDER BY %s, s.%s\nON CONFLICT (%s) DO NOTHING",
		t.Qualified(namespace), schema.QuoteList(t.ColumnNames()),
		key, prefixed("s", t.ColumnNames()),
		stagingFrom(t), parentJoins(t, namespace),
		key, ident(OrdinalColumn),
		schema.QuoteList(t.PrimaryKey))
}

func stagingFrom(t schema.Table) string {
	return StagingDestination(t).QualifiedName() + " AS s"
}

func parentJoins(t schema.Table, namespace string) string {
	var b strings.Builder
	for i, fk := range t.RequireParents {
		alias := fmt.Sprintf("p%d", i+1)
		fmt.Fprintf(&b, "\nJOIN %s AS %s ON %s.%s = s.%s",
			pgx.Identifier{namespace, fk.RefTable}.Sanitize(), alias,
			alias, ident(fk.RefColumn), ident(fk.Column))
	}
	return b.String()
}

func prefixed(alias string, columns []string) string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = alias + "." + ident(c)
	}
	return strings.Join(out, ", ")
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}
