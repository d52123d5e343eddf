package dedup

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aster-analytics/olistload/internal/schema"
	"github.com/aster-analytics/olistload/internal/testing/fakes"
	"github.com/aster-analytics/olistload/pkg/olist"
)

type fakeIngester struct {
	calls []olist.Destination
	names []string
	err   error
}

func (f *fakeIngester) Ingest(ctx context.Context, s olist.Session, name string, dest olist.Destination) (int64, error) {
	f.calls = append(f.calls, dest)
	f.names = append(f.names, name)
	return 0, f.err
}

func table(t *testing.T, name string) schema.Table {
	t.Helper()
	tbl, ok := schema.Olist().Table(name)
	require.True(t, ok)
	return tbl
}

func statsSession(staged, distinct, eligible int64, inserted string) *fakes.Session {
	s := fakes.NewSession()
	s.QueryRowFunc = func(sql string, _ []any) olist.Row {
		if strings.Contains(sql, "count(*)") {
			return fakes.ValuesRow(staged, distinct)
		}
		return fakes.ValuesRow(eligible)
	}
	s.ExecFunc = func(sql string, _ []any) (pgconn.CommandTag, error) {
		if strings.HasPrefix(sql, "INSERT") {
			return pgconn.NewCommandTag(inserted), nil
		}
		return pgconn.CommandTag{}, nil
	}
	return s
}

func TestReconcile_OrderItems(t *testing.T) {
	ing := &fakeIngester{}
	s := statsSession(5, 4, 3, "INSERT 0 3")
	items := table(t, "order_items")

	res, err := New(ing, fakes.NewLogger()).Reconcile(context.Background(), s, "olist", items)
	require.NoError(t, err)

	assert.Equal(t, Result{Table: "order_items", Staged: 5, DistinctKeys: 4, EligibleKeys: 3, Inserted: 3}, res)
	assert.EqualValues(t, 1, res.Duplicates())
	assert.EqualValues(t, 1, res.OrphanKeys())

	require.Len(t, ing.calls, 1)
	assert.Equal(t, "olist_order_items_dataset.csv", ing.names[0])
	assert.True(t, ing.calls[0].Temporary)
	assert.Equal(t, "_stg_order_items", ing.calls[0].Table)
	assert.Equal(t, items.ColumnNames(), ing.calls[0].Columns, "ordinal column is filled by the server")

	require.Len(t, s.Log, 6)
	assert.Equal(t, `DROP TABLE IF EXISTS "pg_temp"."_stg_order_items"`, s.Log[0])
	assert.True(t, strings.HasPrefix(s.Log[1], `CREATE TEMP TABLE "_stg_order_items"`))
	assert.Contains(t, s.Log[2], "count(*)")
	assert.Contains(t, s.Log[3], "JOIN")
	assert.True(t, strings.HasPrefix(s.Log[4], `INSERT INTO "olist"."order_items"`))
	assert.Equal(t, s.Log[0], s.Log[5])
}

func TestReconcile_NoRequiredParentsSkipsEligibility(t *testing.T) {
	s := statsSession(3, 2, 99, "INSERT 0 2")

	res, err := New(&fakeIngester{}, fakes.NewLogger()).Reconcile(context.Background(), s, "olist", table(t, "order_reviews"))
	require.NoError(t, err)

	assert.EqualValues(t, 2, res.EligibleKeys)
	assert.Zero(t, res.OrphanKeys())
	assert.Empty(t, s.Statements("JOIN"))
}

func TestReconcile_RequiresKey(t *testing.T) {
	s := fakes.NewSession()
	_, err := New(&fakeIngester{}, fakes.NewLogger()).Reconcile(context.Background(), s, "olist", table(t, "geolocation"))
	assert.ErrorIs(t, err, olist.ErrStructural)
	assert.Empty(t, s.Log)
}

func TestReconcile_IngestErrorPropagates(t *testing.T) {
	ing := &fakeIngester{err: fmt.Errorf("memory:x.csv: %w", olist.ErrSourceNotFound)}
	s := statsSession(0, 0, 0, "INSERT 0 0")

	_, err := New(ing, fakes.NewLogger()).Reconcile(context.Background(), s, "olist", table(t, "order_payments"))
	assert.ErrorIs(t, err, olist.ErrSourceNotFound)
	assert.Empty(t, s.Statements("INSERT"))
}

func TestReconcile_InsertFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"missing order", &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"}, olist.ErrOrphanRows},
		{"null key", &pgconn.PgError{Code: "23502", Message: "null value in column"}, olist.ErrMalformedRow},
		{"lost connection", &pgconn.PgError{Code: "57P01", Message: "terminating connection"}, olist.ErrConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := statsSession(1, 1, 1, "")
			s.ExecFunc = func(sql string, _ []any) (pgconn.CommandTag, error) {
				if strings.HasPrefix(sql, "INSERT") {
					return pgconn.CommandTag{}, tt.err
				}
				return pgconn.CommandTag{}, nil
			}

			_, err := New(&fakeIngester{}, fakes.NewLogger()).Reconcile(context.Background(), s, "olist", table(t, "order_payments"))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReconcile_StagingDDLFailureIsStructural(t *testing.T) {
	s := fakes.NewSession()
	s.ExecFunc = func(sql string, _ []any) (pgconn.CommandTag, error) {
		return pgconn.CommandTag{}, &pgconn.PgError{Code: "42501", Message: "permission denied to create temporary tables"}
	}

	_, err := New(&fakeIngester{}, fakes.NewLogger()).Reconcile(context.Background(), s, "olist", table(t, "order_reviews"))
	assert.ErrorIs(t, err, olist.ErrStructural)
}

func TestCreateStagingSQL(t *testing.T) {
	want := `CREATE TEMP TABLE "_stg_order_payments" (
    "order_id" TEXT,
    "payment_sequential" INTEGER,
    "payment_type" TEXT,
    "payment_installments" INTEGER,
    "payment_value" NUMERIC(12,2),
    "_stg_ordinal" bigint GENERATED ALWAYS AS IDENTITY
) ON COMMIT DROP`
	assert.Equal(t, want, CreateStagingSQL(table(t, "order_payments")))
}

func TestInsertSQL_OrderItems(t *testing.T) {
	want := `INSERT INTO "olist"."order_items" ("order_id", "order_item_id", "product_id", "seller_id", "shipping_limit_date", "price", "freight_value")
SELECT DISTINCT ON (s."order_id", s."order_item_id") s."order_id", s."order_item_id", s."product_id", s."seller_id", s."shipping_limit_date", s."price", s."freight_value"
FROM "pg_temp"."_stg_order_items" AS s
JOIN "olist"."products" AS p1 ON p1."product_id" = s."product_id"
JOIN "olist"."sellers" AS p2 ON p2."seller_id" = s."seller_id"
ORDER BY s."order_id", s."order_item_id", s."_stg_ordinal"
ON CONFLICT ("order_id", "order_item_id") DO NOTHING`
	assert.Equal(t, want, InsertSQL(table(t, "order_items"), "olist"))
}

func TestInsertSQL_Reviews(t *testing.T) {
	got := InsertSQL(table(t, "order_reviews"), "shop")
	assert.Contains(t, got, `FROM "pg_temp"."_stg_order_reviews" AS s`+"\nORDER BY")
	assert.Contains(t, got, `ORDER BY s."review_id", s."_stg_ordinal"`)
	assert.Contains(t, got, `ON CONFLICT ("review_id") DO NOTHING`)
}

func TestStatsSQL(t *testing.T) {
	assert.Equal(t,
		`SELECT count(*), count(DISTINCT (s."order_id", s."payment_sequential")) FROM "pg_temp"."_stg_order_payments" AS s`,
		StatsSQL(table(t, "order_payments")))
}

func TestNew_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { New(nil, fakes.NewLogger()) })
	assert.Panics(t, func() { New(&fakeIngester{}, nil) })
}
