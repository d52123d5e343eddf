// Package index creates the catalog's secondary indexes.
package index

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"

	"github.com/aster-analytics/olistload/internal/pgerr"
	"github.com/aster-analytics/olistload/internal/schema"
	"github.com/aster-analytics/olistload/pkg/olist"
)

// Result lists the indexes ensured and those skipped under best-effort.
type Result struct {
	Created []string
	Skipped []olist.IndexFailure
}

// Builder issues CREATE INDEX IF NOT EXISTS for every catalog index.
type Builder struct {
	catalog *schema.Catalog
	policy  olist.IndexPolicy
	logger  olist.Logger
}

// NewBuilder creates a Builder. An empty policy means strict.
//
// Panics if any dependency is nil (programmer error).
func NewBuilder(catalog *schema.Catalog, policy olist.IndexPolicy, logger olist.Logger) *Builder {
	if catalog == nil {
		panic("catalog cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if policy == "" {
		policy = olist.IndexPolicyStrict
	}
	return &Builder{catalog: catalog, policy: policy, logger: logger}
}

// EnsureIndexes creates every index in namespace inside the session's
// transaction. Under the strict policy the first failure is returned. Under
// best-effort each index runs behind a savepoint; a failure rolls back to it
// and the index is reported as skipped.
func (b *Builder) EnsureIndexes(ctx context.Context, s olist.Session, namespace string) (Result, error) {
	var res Result
	for _, idx := range b.catalog.Indexes() {
		var err error
		if b.policy == olist.IndexPolicyBestEffort {
			err = b.createGuarded(ctx, s, namespace, idx)
		} else {
			err = b.create(ctx, s, namespace, idx)
		}

		if err == nil {
			res.Created = append(res.Created, idx.Name)
			b.logger.Verbose("Index %s ready", idx.Name)
			continue
		}
		if b.policy != olist.IndexPolicyBestEffort || pgerr.IsConnectionError(err) || pgerr.IsCanceled(err) {
			return res, err
		}
		b.logger.Error("Skipping index %s: %v", idx.Name, err)
		res.Skipped = append(res.Skipped, olist.IndexFailure{Name: idx.Name, Err: err})
	}
	return res, nil
}

func (b *Builder) create(ctx context.Context, s olist.Session, namespace string, idx schema.Index) error {
	tbl, ok := b.catalog.Table(idx.Table)
	if !ok {
		return fmt.Errorf("index %s targets undeclared table %q: %w", idx.Name, idx.Table, olist.ErrStructural)
	}
	for _, col := range idx.Columns {
		if !slices.Contains(tbl.ColumnNames(), col) {
			return fmt.Errorf("index %s targets unknown column %s.%s: %w", idx.Name, idx.Table, col, olist.ErrStructural)
		}
	}

	if _, err := s.Exec(ctx, idx.CreateSQL(namespace)); err != nil {
		return pgerr.Wrap(olist.ErrStructural, err, "failed to create index %s", idx.Name)
	}
	return nil
}

func (b *Builder) createGuarded(ctx context.Context, s olist.Session, namespace string, idx schema.Index) error {
	sp := pgx.Identifier{"sp_" + idx.Name}.Sanitize()
	if _, err := s.Exec(ctx, "SAVEPOINT "+sp); err != nil {
		return pgerr.Wrap(olist.ErrStructural, err, "failed to set savepoint for index %s", idx.Name)
	}

	createErr := b.create(ctx, s, namespace, idx)
	if createErr == nil {
		if _, err := s.Exec(ctx, "RELEASE SAVEPOINT "+sp); err != nil {
			return pgerr.Wrap(olist.ErrStructural, err, "failed to release savepoint for index %s", idx.Name)
		}
		return nil
	}

	if _, err := s.Exec(ctx, "ROLLBACK TO SAVEPOINT "+sp); err != nil {
		return fmt.Errorf("%w (rollback to savepoint also failed: %v)", createErr, err)
	}
	return createErr
}
