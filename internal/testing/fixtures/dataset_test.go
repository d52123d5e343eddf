package fixtures

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aster-analytics/olistload/internal/schema"
)

func TestDatasetBuilder_DefaultMatchesCatalog(t *testing.T) {
	files := NewDatasetBuilder().Build()
	catalog := schema.Olist()

	require.Len(t, files, len(catalog.Tables()))
	for _, table := range catalog.Tables() {
		content, ok := files[table.Source]
		require.True(t, ok, "missing %s", table.Source)

		records, err := csv.NewReader(strings.NewReader(content)).ReadAll()
		require.NoError(t, err, table.Source)
		assert.Equal(t, table.ColumnNames(), records[0], table.Source)
		for _, rec := range records[1:] {
			assert.Len(t, rec, len(table.Columns), table.Source)
		}
	}
}

func TestDatasetBuilder_Modifiers(t *testing.T) {
	b := NewDatasetBuilder().
		AppendRows("sellers", []string{"s3", "1", "x", "SP"}).
		Set("customers", []string{"c9", "u9", "1", "y", "RJ"}).
		WithBOM("orders").
		Without("geolocation")

	files := b.Build()

	_, ok := files["olist_geolocation_dataset.csv"]
	assert.False(t, ok)
	assert.True(t, strings.HasPrefix(files["olist_orders_dataset.csv"], "\xEF\xBB\xBForder_id,"))
	assert.Contains(t, files["olist_sellers_dataset.csv"], "s3,1,x,SP")
	assert.Equal(t, 3, b.RowCount("sellers"))
	assert.Equal(t, "customer_id,customer_unique_id,customer_zip_code_prefix,customer_city,customer_state\nc9,u9,1,y,RJ\n",
		files["olist_customers_dataset.csv"])
}

func TestDatasetBuilder_DoesNotShareRows(t *testing.T) {
	b := NewDatasetBuilder().Set("sellers")
	assert.Equal(t, 0, b.RowCount("sellers"))
	assert.Len(t, Consistent["sellers"], 2)
}

func TestDatasetBuilder_UnknownTablePanics(t *testing.T) {
	assert.Panics(t, func() { NewDatasetBuilder().Without("nope") })
}

func TestDatasetBuilder_ProviderAndWriteTo(t *testing.T) {
	b := NewDatasetBuilder().WithRaw("geolocation", "raw")

	rc, err := b.Provider().Open("olist_geolocation_dataset.csv")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "raw", string(data))

	dir := b.WriteTo(t, t.TempDir())
	data, err = os.ReadFile(filepath.Join(dir, "olist_geolocation_dataset.csv"))
	require.NoError(t, err)
	assert.Equal(t, "raw", string(data))
}
