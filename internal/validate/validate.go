// Package validate checks loaded tables for duplicate keys and orphaned
// references. It reads only; the caller decides whether a violation rolls
// the load back.
package validate

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aster-analytics/olistload/internal/pgerr"
	"github.com/aster-analytics/olistload/internal/schema"
	"github.com/aster-analytics/olistload/pkg/olist"
)

// Validator runs integrity checks against a namespace.
type Validator struct {
	catalog *schema.Catalog
	logger  olist.Logger
}

// New creates a Validator for catalog.
//
// Panics if any dependency is nil (programmer error).
func New(catalog *schema.Catalog, logger olist.Logger) *Validator {
	if catalog == nil {
		panic("catalog cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Validator{catalog: catalog, logger: logger}
}

// ValidateUnique compares t's row count with its distinct key count and
// returns a *olist.DuplicateKeyError when they differ.
func (v *Validator) ValidateUnique(ctx context.Context, s olist.Session, namespace string, t schema.Table) error {
	var total, distinct int64
	if err := s.QueryRow(ctx, UniqueSQL(t, namespace)).Scan(&total, &distinct); err != nil {
		return pgerr.Wrap(olist.ErrStructural, err, "failed to check uniqueness of %s.%s", namespace, t.Name)
	}
	if total != distinct {
		return &olist.DuplicateKeyError{Table: t.Name, Key: t.PrimaryKey, Total: total, Distinct: distinct}
	}
	v.logger.Verbose("%s.%s: %d rows, keys unique", namespace, t.Name, total)
	return nil
}

// ValidateReferences counts rows of t whose fk column matches no parent row
// and returns a *olist.OrphanRowError when any exist. NULLs are not orphans.
func (v *Validator) ValidateReferences(ctx context.Context, s olist.Session, namespace string, t schema.Table, fk schema.ForeignKey) error {
	var orphans int64
	if err := s.QueryRow(ctx, OrphanSQL(t, fk, namespace)).Scan(&orphans); err != nil {
		return pgerr.Wrap(olist.ErrStructural, err, "failed to check %s.%s references", t.Name, fk.Column)
	}
	if orphans > 0 {
		return &olist.OrphanRowError{Table: t.Name, Column: fk.Column, Parent: fk.RefTable, Count: orphans}
	}
	return nil
}

// ValidateAll checks every keyed table for uniqueness and every required
// parent reference. All violations are joined into one error; a failed query
// is returned at once.
func (v *Validator) ValidateAll(ctx context.Context, s olist.Session, namespace string) error {
	var violations []error
	collect := func(err error) error {
		if err == nil {
			return nil
		}
		var dup *olist.DuplicateKeyError
		var orphan *olist.OrphanRowError
		if errors.As(err, &dup) || errors.As(err, &orphan) {
			v.logger.Error("Integrity violation: %v", err)
			violations = append(violations, err)
			return nil
		}
		return err
	}

	for _, t := range v.catalog.Tables() {
		if t.HasKey() {
			if err := collect(v.ValidateUnique(ctx, s, namespace, t)); err != nil {
				return err
			}
		}
		for _, fk := range t.RequireParents {
			if err := collect(v.ValidateReferences(ctx, s, namespace, t, fk)); err != nil {
				return err
			}
		}
	}

	if len(violations) > 0 {
		return fmt.Errorf("integrity validation failed: %w", errors.Join(violations...))
	}
	return nil
}

// UniqueSQL returns the row count and distinct key count of t.
func UniqueSQL(t schema.Table, namespace string) string {
	return fmt.Sprintf("SELECT count(*), count(DISTINCT (%s)) FROM %s",
		schema.QuoteList(t.PrimaryKey), t.Qualified(namespace))
}

// OrphanSQL counts rows of t whose fk column has no parent.
func OrphanSQL(t schema.Table, fk schema.ForeignKey, namespace string) string {
	col := pgx.Identifier{fk.Column}.Sanitize()
	return fmt.Sprintf("SELECT count(*) FROM %s AS c WHERE c.%s IS NOT NULL AND NOT EXISTS (SELECT 1 FROM %s AS p WHERE p.%s = c.%s)",
		t.Qualified(namespace), col,
		pgx.Identifier{namespace, fk.RefTable}.Sanitize(), pgx.Identifier{fk.RefColumn}.Sanitize(), col)
}
