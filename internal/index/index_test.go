package index

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aster-analytics/olistload/internal/schema"
	"github.com/aster-analytics/olistload/internal/testing/fakes"
	"github.com/aster-analytics/olistload/pkg/olist"
)

var insufficientResources = &pgconn.PgError{Code: "53200", Message: "out of memory"}

func failOn(name string, err error) func(string, []any) (pgconn.CommandTag, error) {
	return func(sql string, _ []any) (pgconn.CommandTag, error) {
		if strings.HasPrefix(sql, "CREATE INDEX") && strings.Contains(sql, `"`+name+`"`) {
			return pgconn.CommandTag{}, err
		}
		return pgconn.CommandTag{}, nil
	}
}

func TestEnsureIndexes_Strict(t *testing.T) {
	s := fakes.NewSession()

	res, err := NewBuilder(schema.Olist(), olist.IndexPolicyStrict, fakes.NewLogger()).EnsureIndexes(context.Background(), s, "olist")
	require.NoError(t, err)

	assert.Len(t, res.Created, 9)
	assert.Empty(t, res.Skipped)
	require.Len(t, s.Log, 9)
	assert.Equal(t, `CREATE INDEX IF NOT EXISTS "idx_orders_customer_id" ON "olist"."orders" ("customer_id")`, s.Log[0])
	assert.Empty(t, s.Statements("SAVEPOINT"))
}

func TestEnsureIndexes_StrictStopsAtFailure(t *testing.T) {
	s := fakes.NewSession()
	s.ExecFunc = failOn("idx_order_items_product_id", insufficientResources)

	res, err := NewBuilder(schema.Olist(), "", fakes.NewLogger()).EnsureIndexes(context.Background(), s, "olist")
	require.Error(t, err)

	assert.ErrorIs(t, err, olist.ErrStructural)
	assert.Contains(t, err.Error(), "idx_order_items_product_id")
	assert.Equal(t, []string{"idx_orders_customer_id", "idx_order_items_order_id"}, res.Created)
	assert.Len(t, s.Log, 3)
}

func TestEnsureIndexes_UndeclaredTarget(t *testing.T) {
	tables := schema.Olist().Tables()
	indexes := []schema.Index{
		{Name: "idx_ghost", Table: "ghosts", Columns: []string{"id"}},
		{Name: "idx_orders_typo", Table: "orders", Columns: []string{"customer"}},
		{Name: "idx_orders_customer_id", Table: "orders", Columns: []string{"customer_id"}},
	}
	catalog := schema.NewCatalog(tables, indexes)

	t.Run("strict", func(t *testing.T) {
		s := fakes.NewSession()
		_, err := NewBuilder(catalog, olist.IndexPolicyStrict, fakes.NewLogger()).EnsureIndexes(context.Background(), s, "olist")
		assert.ErrorIs(t, err, olist.ErrStructural)
		assert.Contains(t, err.Error(), `undeclared table "ghosts"`)
		assert.Empty(t, s.Log, "nothing reaches the server")
	})

	t.Run("best effort", func(t *testing.T) {
		s := fakes.NewSession()
		res, err := NewBuilder(catalog, olist.IndexPolicyBestEffort, fakes.NewLogger()).EnsureIndexes(context.Background(), s, "olist")
		require.NoError(t, err)
		assert.Equal(t, []string{"idx_orders_customer_id"}, res.Created)
		require.Len(t, res.Skipped, 2)
		assert.Contains(t, res.Skipped[1].Err.Error(), "unknown column orders.customer")
		assert.Len(t, s.Statements("CREATE INDEX"), 1)
	})
}

func TestEnsureIndexes_BestEffortSkipsFailure(t *testing.T) {
	s := fakes.NewSession()
	s.ExecFunc = failOn("idx_products_category", insufficientResources)
	logger := fakes.NewLogger()

	res, err := NewBuilder(schema.Olist(), olist.IndexPolicyBestEffort, logger).EnsureIndexes(context.Background(), s, "olist")
	require.NoError(t, err)

	assert.Len(t, res.Created, 8)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "idx_products_category", res.Skipped[0].Name)
	assert.ErrorIs(t, res.Skipped[0].Err, olist.ErrStructural)
	assert.True(t, logger.Contains("Skipping index idx_products_category"))

	assert.Len(t, s.Statements("ROLLBACK TO SAVEPOINT"), 1)
	assert.Contains(t, s.Statements("ROLLBACK TO SAVEPOINT")[0], `"sp_idx_products_category"`)
	assert.Len(t, s.Statements("RELEASE SAVEPOINT"), 8)
	assert.Len(t, s.Statements("SAVEPOINT \""), 9+8+1)
}

func TestEnsureIndexes_BestEffortStillFailsOnConnectionLoss(t *testing.T) {
	s := fakes.NewSession()
	s.ExecFunc = failOn("idx_orders_customer_id", &pgconn.PgError{Code: "08006", Message: "connection failure"})

	_, err := NewBuilder(schema.Olist(), olist.IndexPolicyBestEffort, fakes.NewLogger()).EnsureIndexes(context.Background(), s, "olist")
	assert.ErrorIs(t, err, olist.ErrConnectionFailed)
}

func TestNewBuilder_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewBuilder(nil, "", fakes.NewLogger()) })
	assert.Panics(t, func() { NewBuilder(schema.Olist(), "", nil) })
}
