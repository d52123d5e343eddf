package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aster-analytics/olistload/internal/db"
	testhelpers "github.com/aster-analytics/olistload/internal/testing"
	"github.com/aster-analytics/olistload/internal/testing/fixtures"
	"github.com/aster-analytics/olistload/pkg/olist"
)

func TestLoadCmdIntegration_EndToEnd(t *testing.T) {
	conn := testhelpers.NewTestDatabase(t)
	dir := isolate(t)
	fixtures.NewDatasetBuilder().WriteTo(t, dir)

	target := *conn
	target.AppName = ""
	stdout, stderr, err := execute(t, "load",
		"--data-dir", dir,
		"--connection", db.BuildConnectionString(&target),
		"--schema", "olist_cli")
	require.NoError(t, err, stderr)

	assert.Contains(t, stdout, "Loaded namespace olist_cli")
	assert.Contains(t, stdout, "state indexed")
	assert.Contains(t, stderr, "committed")

	pool := testhelpers.GetTestPool(t, conn)
	assert.EqualValues(t, len(fixtures.Consistent["orders"]), testhelpers.CountRows(t, pool, "olist_cli", "orders"))
}

func TestLoadCmdIntegration_OrphanExitCode(t *testing.T) {
	conn := testhelpers.NewTestDatabase(t)
	dir := isolate(t)
	fixtures.NewDatasetBuilder().
		AppendRows("order_items", []string{"o-missing", "1", "p1", "s1", "2018-07-30 03:24:27", "10.00", "1.00"}).
		WriteTo(t, dir)

	target := *conn
	target.AppName = ""
	_, _, err := execute(t, "load", "--data-dir", dir, "--connection", db.BuildConnectionString(&target))
	require.Error(t, err)
	assert.Equal(t, olist.ExitOrphanRows, olist.ExitCodeForError(err))

	var exists bool
	require.NoError(t, testhelpers.GetTestPool(t, conn).QueryRow(context.Background(),
		`SELECT EXISTS (SELECT 1 FROM olist.customers)`).Scan(&exists))
	assert.False(t, exists, "failed load leaves no data")
}

func TestLoadCmdIntegration_MissingFileExitCode(t *testing.T) {
	conn := testhelpers.NewTestDatabase(t)
	target := *conn
	target.AppName = ""
	connection := db.BuildConnectionString(&target)

	dir := isolate(t)
	fixtures.NewDatasetBuilder().WriteTo(t, dir)
	_, stderr, err := execute(t, "load", "--data-dir", dir, "--connection", connection)
	require.NoError(t, err, stderr)

	require.NoError(t, os.Remove(filepath.Join(dir, "olist_orders_dataset.csv")))
	_, stderr, err = execute(t, "load", "--data-dir", dir, "--connection", connection)
	require.Error(t, err)
	assert.Equal(t, olist.ExitSourceNotFound, olist.ExitCodeForError(err))
	assert.Contains(t, stderr, "state schema-only")

	pool := testhelpers.GetTestPool(t, conn)
	assert.Zero(t, testhelpers.CountRows(t, pool, "olist", "customers"), "the previous load is gone")
}
