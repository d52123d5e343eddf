// Package report renders load and setup summaries for the terminal.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/aster-analytics/olistload/pkg/olist"
)

// Renderer writes summaries either styled or plain.
type Renderer struct {
	s styles
}

// NewRenderer returns a styled renderer when styled is set, a plain one otherwise.
func NewRenderer(styled bool) *Renderer {
	if styled {
		return &Renderer{s: styledSet()}
	}
	return &Renderer{s: plainSet()}
}

// Load writes the summary of a finished load.
func (r *Renderer) Load(w io.Writer, rep *olist.LoadReport) error {
	var b strings.Builder

	b.WriteString(r.s.title.Render(fmt.Sprintf("Loaded namespace %s", rep.Namespace)))
	b.WriteString("\n")
	b.WriteString(r.s.muted.Render(fmt.Sprintf("run %s, state %s, %s",
		shortID(rep), rep.State, rep.Duration.Round(time.Millisecond))))
	b.WriteString("\n\n")

	rows := make([][]string, 0, len(rep.Tables)+1)
	var source, dups, orphans int64
	for _, t := range rep.Tables {
		rows = append(rows, []string{
			t.Table,
			count(t.SourceRows),
			count(t.LoadedRows),
			optional(t.Staged, t.Duplicates),
			optional(t.Staged, t.Orphans),
		})
		source += t.SourceRows
		dups += t.Duplicates
		orphans += t.Orphans
	}
	rows = append(rows, []string{"total", count(source), count(rep.TotalRows()), count(dups), count(orphans)})

	tbl := table.New().
		Border(r.s.table).
		BorderStyle(r.s.border).
		Headers("table", "source rows", "loaded", "duplicates", "orphans").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return r.s.header
			case col == 0:
				return r.s.cell
			default:
				return r.s.number
			}
		})
	b.WriteString(tbl.String())
	b.WriteString("\n")

	if len(rep.Indexes) > 0 {
		b.WriteString(r.s.success.Render(fmt.Sprintf("%d indexes created", len(rep.Indexes))))
		b.WriteString("\n")
	}
	for _, f := range rep.Skipped {
		b.WriteString(r.s.warning.Render(fmt.Sprintf("skipped index %s: %v", f.Name, f.Err)))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Schemas writes the result of setup.
func (r *Renderer) Schemas(w io.Writer, database string, created bool, schemas []string) error {
	var b strings.Builder
	verb := "found"
	if created {
		verb = "created"
	}
	b.WriteString(r.s.title.Render(fmt.Sprintf("Database %s %s", database, verb)))
	b.WriteString("\n")
	for _, name := range schemas {
		b.WriteString("  " + r.s.cell.Render(name) + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func shortID(rep *olist.LoadReport) string {
	return rep.RunID.String()[:8]
}

func count(n int64) string {
	return strconv.FormatInt(n, 10)
}

func optional(applies bool, n int64) string {
	if !applies {
		return "-"
	}
	return count(n)
}
