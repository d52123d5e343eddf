package schema

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aster-analytics/olistload/internal/testing/fakes"
	"github.com/aster-analytics/olistload/pkg/olist"
)

func newBootstrapper() *Bootstrapper {
	return NewBootstrapper(Olist(), fakes.NewLogger())
}

func TestNewBootstrapper_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewBootstrapper(nil, fakes.NewLogger()) })
	assert.Panics(t, func() { NewBootstrapper(Olist(), nil) })
}

func TestReset_DropsLegacyThenRecreatesNamespace(t *testing.T) {
	s := fakes.NewSession()
	s.QueryRowFunc = func(sql string, args []any) olist.Row {
		return fakes.ValuesRow([]string{"orders", "product_category_name_translation_old"})
	}

	require.NoError(t, newBootstrapper().Reset(context.Background(), s, "olist"))

	require.Len(t, s.Log, 5)
	assert.Contains(t, s.Log[0], "FROM pg_tables")
	assert.Equal(t, []any{"public", Olist().TableNames(), "product_category%translation%"}, s.Args[0])
	assert.Equal(t, `DROP TABLE IF EXISTS "public"."orders" CASCADE`, s.Log[1])
	assert.Equal(t, `DROP TABLE IF EXISTS "public"."product_category_name_translation_old" CASCADE`, s.Log[2])
	assert.Equal(t, `DROP SCHEMA IF EXISTS "olist" CASCADE`, s.Log[3])
	assert.Equal(t, `CREATE SCHEMA "olist"`, s.Log[4])
}

func TestReset_PublicNamespaceDropsOnlyCatalogTables(t *testing.T) {
	s := fakes.NewSession()

	require.NoError(t, newBootstrapper().Reset(context.Background(), s, "public"))

	names := Olist().TableNames()
	require.Len(t, s.Log, 1+len(names))
	assert.Equal(t, `CREATE SCHEMA IF NOT EXISTS "public"`, s.Log[0])
	for i, name := range names {
		assert.Equal(t, `DROP TABLE IF EXISTS "public"."`+name+`" CASCADE`, s.Log[i+1])
	}
	assert.Empty(t, s.Statements("DROP SCHEMA"), "public itself is never dropped")
	assert.Empty(t, s.Statements("pg_tables"), "no pattern-based cleanup in a shared schema")
}

func TestReset_InvalidNamespace(t *testing.T) {
	s := fakes.NewSession()

	err := newBootstrapper().Reset(context.Background(), s, "pg_catalog")
	assert.ErrorIs(t, err, olist.ErrInvalidConfig)
	assert.Empty(t, s.Log)
}

func TestReset_FailureIsStructural(t *testing.T) {
	s := fakes.NewSession()
	s.QueryRowFunc = func(string, []any) olist.Row { return fakes.ValuesRow([]string{}) }
	s.ExecFunc = func(sql string, _ []any) (pgconn.CommandTag, error) {
		if strings.HasPrefix(sql, "CREATE SCHEMA") {
			return pgconn.CommandTag{}, &pgconn.PgError{Code: "42501", Message: "permission denied for database"}
		}
		return pgconn.CommandTag{}, nil
	}

	err := newBootstrapper().Reset(context.Background(), s, "olist")
	require.Error(t, err)
	assert.ErrorIs(t, err, olist.ErrStructural)
	assert.Contains(t, err.Error(), `CREATE SCHEMA "olist"`)
	assert.Equal(t, olist.ExitStructuralError, olist.ExitCodeForError(err))
}

func TestReset_LegacyQueryConnectionLoss(t *testing.T) {
	s := fakes.NewSession()
	s.QueryRowFunc = func(string, []any) olist.Row {
		return fakes.ErrRow(&pgconn.PgError{Code: "08006", Message: "connection failure"})
	}

	err := newBootstrapper().Reset(context.Background(), s, "olist")
	assert.ErrorIs(t, err, olist.ErrConnectionFailed)
	assert.False(t, errors.Is(err, olist.ErrStructural))
}

func TestCreateTables_DependencyOrder(t *testing.T) {
	s := fakes.NewSession()

	require.NoError(t, newBootstrapper().CreateTables(context.Background(), s, "olist"))

	require.Len(t, s.Log, 9)
	for _, stmt := range s.Log {
		assert.True(t, strings.HasPrefix(stmt, "CREATE TABLE IF NOT EXISTS"), stmt)
	}
	assert.Contains(t, s.Log[4], `"olist"."products"`)
	assert.Contains(t, s.Log[5], `"olist"."orders"`)
	assert.Contains(t, s.Log[6], `REFERENCES "olist"."sellers" ("seller_id")`)
	assert.NotContains(t, s.Log[8], "FOREIGN KEY")
}

func TestCreateTables_StopsAtFirstFailure(t *testing.T) {
	s := fakes.NewSession()
	calls := 0
	s.ExecFunc = func(string, []any) (pgconn.CommandTag, error) {
		calls++
		if calls == 3 {
			return pgconn.CommandTag{}, &pgconn.PgError{Code: "42P07", Message: "relation already exists"}
		}
		return pgconn.CommandTag{}, nil
	}

	err := newBootstrapper().CreateTables(context.Background(), s, "olist")
	assert.ErrorIs(t, err, olist.ErrStructural)
	assert.Len(t, s.Log, 3)
}

func TestCreateTables_CycleRejectedBeforeAnyStatement(t *testing.T) {
	catalog := NewCatalog([]Table{{Name: "a", After: []string{"b"}}, {Name: "b", After: []string{"a"}}}, nil)
	s := fakes.NewSession()

	err := NewBootstrapper(catalog, fakes.NewLogger()).CreateTables(context.Background(), s, "olist")
	assert.ErrorIs(t, err, olist.ErrStructural)
	assert.Empty(t, s.Log)
}
