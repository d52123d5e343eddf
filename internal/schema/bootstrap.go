package schema

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aster-analytics/olistload/internal/pgerr"
	"github.com/aster-analytics/olistload/pkg/olist"
)

// legacyTranslationPattern matches renamed copies of the translation table
// left behind by older scripts.
const legacyTranslationPattern = "product_category%translation%"

const queryLegacyTables = `
	SELECT coalesce(array_agg(tablename::text ORDER BY tablename), '{}')
	FROM pg_tables
	WHERE schemaname = $1
	  AND (tablename = ANY($2) OR tablename LIKE $3)
`

// Bootstrapper issues the structural statements that give a run its fresh
// namespace. It never touches data and never opens transactions: the caller
// decides the transaction scope.
type Bootstrapper struct {
	catalog *Catalog
	logger  olist.Logger
}

// NewBootstrapper creates a Bootstrapper for catalog.
//
// Panics if any dependency is nil (programmer error).
func NewBootstrapper(catalog *Catalog, logger olist.Logger) *Bootstrapper {
	if catalog == nil {
		panic("catalog cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Bootstrapper{catalog: catalog, logger: logger}
}

// Reset drops any existing namespace, together with same-named legacy tables
// in the public schema, and creates the namespace empty.
//
// The public schema is never dropped: only the catalog's own tables in it
// are, so unrelated objects and default grants survive.
func (b *Bootstrapper) Reset(ctx context.Context, s olist.Session, namespace string) error {
	if err := olist.ValidateNamespace(namespace); err != nil {
		return err
	}

	if namespace == olist.LegacySchema {
		return b.resetShared(ctx, s, namespace)
	}

	if err := b.dropLegacyTables(ctx, s); err != nil {
		return err
	}

	ns := pgx.Identifier{namespace}.Sanitize()
	if err := b.exec(ctx, s, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", ns)); err != nil {
		return err
	}
	if err := b.exec(ctx, s, fmt.Sprintf("CREATE SCHEMA %s", ns)); err != nil {
		return err
	}

	b.logger.Verbose("Namespace %s reset", namespace)
	return nil
}

func (b *Bootstrapper) resetShared(ctx context.Context, s olist.Session, namespace string) error {
	if err := b.exec(ctx, s, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pgx.Identifier{namespace}.Sanitize())); err != nil {
		return err
	}
	for _, name := range b.catalog.TableNames() {
		stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", pgx.Identifier{namespace, name}.Sanitize())
		if err := b.exec(ctx, s, stmt); err != nil {
			return err
		}
	}
	b.logger.Verbose("Catalog tables in %s dropped", namespace)
	return nil
}

func (b *Bootstrapper) dropLegacyTables(ctx context.Context, s olist.Session) error {
	var legacy []string
	err := s.QueryRow(ctx, queryLegacyTables, olist.LegacySchema, b.catalog.TableNames(), legacyTranslationPattern).Scan(&legacy)
	if err != nil {
		return pgerr.Wrap(olist.ErrStructural, err, "failed to list legacy tables in %s", olist.LegacySchema)
	}

	for _, name := range legacy {
		b.logger.Info("Dropping legacy table %s.%s", olist.LegacySchema, name)
		stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", pgx.Identifier{olist.LegacySchema, name}.Sanitize())
		if err := b.exec(ctx, s, stmt); err != nil {
			return err
		}
	}
	return nil
}

// CreateTables creates every catalog table in dependency order. Each
// statement is CREATE TABLE IF NOT EXISTS, so repeating it is harmless.
func (b *Bootstrapper) CreateTables(ctx context.Context, s olist.Session, namespace string) error {
	tables, err := b.catalog.Order()
	if err != nil {
		return err
	}

	for _, t := range tables {
		if err := b.exec(ctx, s, t.CreateSQL(namespace)); err != nil {
			return err
		}
		b.logger.Verbose("Created table %s.%s", namespace, t.Name)
	}
	return nil
}

func (b *Bootstrapper) exec(ctx context.Context, s olist.Session, stmt string) error {
	if _, err := s.Exec(ctx, stmt); err != nil {
		return pgerr.Wrap(olist.ErrStructural, err, "statement failed: %s", firstLine(stmt))
	}
	return nil
}

func firstLine(stmt string) string {
	for i, r := range stmt {
		if r == '\n' {
			return stmt[:i]
		}
	}
	return stmt
}
