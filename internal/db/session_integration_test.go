package db_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aster-analytics/olistload/internal/db"
	"github.com/aster-analytics/olistload/internal/logging"
	testhelpers "github.com/aster-analytics/olistload/internal/testing"
	"github.com/aster-analytics/olistload/pkg/olist"
)

func openSession(t *testing.T) *db.Session {
	t.Helper()
	cfg := testhelpers.NewTestDatabase(t)

	connector, err := db.NewConnector(cfg, logging.NewNullLogger())
	require.NoError(t, err)

	s, err := db.Open(context.Background(), connector)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionIntegration_BulkLoadInsideTransaction(t *testing.T) {
	ctx := context.Background()
	s := openSession(t)

	_, err := s.Exec(ctx, `CREATE TABLE public.people (id integer PRIMARY KEY, name text)`)
	require.NoError(t, err)

	dest := olist.Destination{Schema: "public", Table: "people", Columns: []string{"id", "name"}}

	require.NoError(t, s.Begin(ctx))
	assert.True(t, s.InTransaction())
	n, err := s.BulkLoad(ctx, strings.NewReader("1,ana\n2,\n3,\"o'neil, jr\"\n"), dest)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	require.NoError(t, s.Rollback(ctx))

	var count int
	require.NoError(t, s.QueryRow(ctx, `SELECT count(*) FROM public.people`).Scan(&count))
	assert.Zero(t, count, "rolled back COPY leaves nothing")

	require.NoError(t, s.Begin(ctx))
	_, err = s.BulkLoad(ctx, strings.NewReader("1,ana\n2,\n"), dest)
	require.NoError(t, err)
	require.NoError(t, s.Commit(ctx))

	var nulls int
	require.NoError(t, s.QueryRow(ctx, `SELECT count(*) FROM public.people WHERE name IS NULL`).Scan(&nulls))
	assert.Equal(t, 1, nulls)
}

func TestSessionIntegration_TempTableSurvivesAcrossStatements(t *testing.T) {
	ctx := context.Background()
	s := openSession(t)

	require.NoError(t, s.Begin(ctx))
	_, err := s.Exec(ctx, `CREATE TEMP TABLE "_stg_x" (v text, "_stg_ordinal" bigint GENERATED ALWAYS AS IDENTITY) ON COMMIT DROP`)
	require.NoError(t, err)

	_, err = s.BulkLoad(ctx, strings.NewReader("b\na\n"), olist.Destination{Table: "_stg_x", Columns: []string{"v"}, Temporary: true})
	require.NoError(t, err)

	var first string
	require.NoError(t, s.QueryRow(ctx, `SELECT v FROM pg_temp."_stg_x" ORDER BY "_stg_ordinal" LIMIT 1`).Scan(&first))
	assert.Equal(t, "b", first, "ordinal follows file order")
	require.NoError(t, s.Commit(ctx))

	var exists bool
	require.NoError(t, s.QueryRow(ctx, `SELECT to_regclass('pg_temp._stg_x') IS NOT NULL`).Scan(&exists))
	assert.False(t, exists, "dropped on commit")
}

func TestSessionIntegration_TransactionMisuse(t *testing.T) {
	ctx := context.Background()
	s := openSession(t)

	assert.ErrorIs(t, s.Commit(ctx), db.ErrNoTransaction)
	assert.NoError(t, s.Rollback(ctx))

	require.NoError(t, s.Begin(ctx))
	assert.Error(t, s.Begin(ctx))
	require.NoError(t, s.Rollback(ctx))
}

func TestSessionIntegration_Closed(t *testing.T) {
	ctx := context.Background()
	s := openSession(t)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Exec(ctx, "SELECT 1")
	assert.True(t, errors.Is(err, db.ErrSessionClosed))
	assert.ErrorIs(t, s.QueryRow(ctx, "SELECT 1").Scan(), db.ErrSessionClosed)
	assert.ErrorIs(t, s.Begin(ctx), db.ErrSessionClosed)
	_, err = s.BulkLoad(ctx, strings.NewReader(""), olist.Destination{Schema: "public", Table: "t"})
	assert.ErrorIs(t, err, db.ErrSessionClosed)
}
