package fixtures

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/aster-analytics/olistload/internal/schema"
	"github.com/aster-analytics/olistload/internal/source"
)

// DatasetBuilder provides a fluent API for building Olist CSV fixtures.
// It starts from a small dataset in which every reference resolves, and
// tests bend it into the shape they need.
//
// Example usage:
//
//	provider := NewDatasetBuilder().
//	    AppendRows("order_items", []string{"o1", "1", "p2", "s1", "2018-01-01 00:00:00", "1.00", "0.50"}).
//	    Without("sellers").
//	    Provider()
type DatasetBuilder struct {
	catalog *schema.Catalog
	headers map[string][]string
	rows    map[string][][]string
	bom     map[string]bool
	removed map[string]bool
	raw     map[string]string
}

// NewDatasetBuilder creates a builder pre-populated with Consistent rows.
func NewDatasetBuilder() *DatasetBuilder {
	b := &DatasetBuilder{
		catalog: schema.Olist(),
		headers: make(map[string][]string),
		rows:    make(map[string][][]string),
		bom:     make(map[string]bool),
		removed: make(map[string]bool),
		raw:     make(map[string]string),
	}
	for _, t := range b.catalog.Tables() {
		b.headers[t.Name] = t.ColumnNames()
		b.rows[t.Name] = cloneRows(Consistent[t.Name])
	}
	return b
}

// Set replaces every data row of table.
func (b *DatasetBuilder) Set(table string, rows ...[]string) *DatasetBuilder {
	b.mustTable(table)
	b.rows[table] = cloneRows(rows)
	return b
}

// AppendRows adds data rows after the existing ones.
func (b *DatasetBuilder) AppendRows(table string, rows ...[]string) *DatasetBuilder {
	b.mustTable(table)
	b.rows[table] = append(b.rows[table], cloneRows(rows)...)
	return b
}

// WithHeader overrides the header row written for table.
func (b *DatasetBuilder) WithHeader(table string, header ...string) *DatasetBuilder {
	b.mustTable(table)
	b.headers[table] = header
	return b
}

// WithBOM prefixes table's file with a UTF-8 byte order mark.
func (b *DatasetBuilder) WithBOM(table string) *DatasetBuilder {
	b.mustTable(table)
	b.bom[table] = true
	return b
}

// WithRaw replaces table's file with content written verbatim.
func (b *DatasetBuilder) WithRaw(table, content string) *DatasetBuilder {
	b.mustTable(table)
	b.raw[table] = content
	return b
}

// Without leaves table's source file out of the dataset.
func (b *DatasetBuilder) Without(table string) *DatasetBuilder {
	b.mustTable(table)
	b.removed[table] = true
	return b
}

// Build renders the dataset as file name -> content.
func (b *DatasetBuilder) Build() map[string]string {
	files := make(map[string]string)
	for _, t := range b.catalog.Tables() {
		if b.removed[t.Name] {
			continue
		}
		if raw, ok := b.raw[t.Name]; ok {
			files[t.Source] = raw
			continue
		}

		var buf bytes.Buffer
		if b.bom[t.Name] {
			buf.WriteString("\xEF\xBB\xBF")
		}
		w := csv.NewWriter(&buf)
		_ = w.Write(b.headers[t.Name])
		_ = w.WriteAll(b.rows[t.Name])
		files[t.Source] = buf.String()
	}
	return files
}

// Provider returns the dataset as an in-memory source.
func (b *DatasetBuilder) Provider() *source.MemoryProvider {
	return source.NewMemoryProvider(b.Build())
}

// WriteTo writes the dataset into dir and returns dir.
func (b *DatasetBuilder) WriteTo(t *testing.T, dir string) string {
	t.Helper()

	files := b.Build()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(files[name]), 0644); err != nil {
			t.Fatalf("Failed to write fixture %s: %v", name, err)
		}
	}
	return dir
}

// RowCount returns the number of data rows currently set for table.
func (b *DatasetBuilder) RowCount(table string) int {
	return len(b.rows[table])
}

func (b *DatasetBuilder) mustTable(table string) {
	if _, ok := b.headers[table]; !ok {
		panic("unknown fixture table: " + table)
	}
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// Consistent is a tiny dataset without duplicates or orphans. Empty fields
// load as NULL.
var Consistent = map[string][][]string{
	"geolocation": {
		{"01037", "-23.5456", "-46.6393", "sao paulo", "SP"},
		{"01037", "-23.5461", "-46.6392", "sao paulo", "SP"},
	},
	"product_category_name_translation": {
		{"beleza_saude", "health_beauty"},
		{"informatica_acessorios", "computers_accessories"},
	},
	"customers": {
		{"c1", "u1", "14409", "franca", "SP"},
		{"c2", "u2", "9790", "sao bernardo do campo", "SP"},
	},
	"sellers": {
		{"s1", "13023", "campinas", "SP"},
		{"s2", "3703", "sao paulo", "SP"},
	},
	"products": {
		{"p1", "beleza_saude", "40", "287", "1", "225", "16", "10", "14"},
		{"p2", "", "", "", "", "1000", "30", "20", "20"},
	},
	"orders": {
		{"o1", "c1", "delivered", "2017-10-02 10:56:33", "2017-10-02 11:07:15", "2017-10-04 19:55:00", "2017-10-10 21:25:13", "2017-10-18 00:00:00"},
		{"o2", "c2", "shipped", "2018-07-24 20:41:37", "2018-07-26 03:24:27", "2018-07-26 14:31:00", "", "2018-08-13 00:00:00"},
	},
	"order_items": {
		{"o1", "1", "p1", "s1", "2017-10-06 11:07:15", "29.99", "8.72"},
		{"o1", "2", "p2", "s2", "2017-10-06 11:07:15", "118.70", "22.76"},
		{"o2", "1", "p2", "s1", "2018-07-30 03:24:27", "159.90", "19.22"},
	},
	"order_payments": {
		{"o1", "1", "credit_card", "1", "18.12"},
		{"o1", "2", "voucher", "1", "159.35"},
		{"o2", "1", "boleto", "1", "179.12"},
	},
	"order_reviews": {
		{"r1", "o1", "4", "", "", "2018-01-18 00:00:00", "2018-01-18 21:46:59"},
		{"r2", "o2", "5", "", "Recebi bem antes do prazo.", "2018-03-10 00:00:00", "2018-03-11 03:05:13"},
	},
}
