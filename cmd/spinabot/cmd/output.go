package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"github.com/spinabot/spinabot/internal/query"
)

// isTerminal reports whether f is an interactive terminal.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type column struct {
	header string
	width  int // 0 sizes the column to its widest cell
}

// table renders rows aligned by display width when pretty is set, and as
// tab-separated values otherwise so output pipes cleanly into cut or awk.
type table struct {
	cols   []column
	rows   [][]string
	pretty bool
}

func newTable(pretty bool, cols ...column) *table {
	return &table{cols: cols, pretty: pretty}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(w io.Writer) {
	if !t.pretty {
		headers := make([]string, len(t.cols))
		for i, c := range t.cols {
			headers[i] = strings.ToUpper(c.header)
		}
		fmt.Fprintln(w, strings.Join(headers, "\t"))
		for _, row := range t.rows {
			cells := make([]string, len(row))
			for i, cell := range row {
				cells[i] = strings.NewReplacer("\t", " ", "\n", " ").Replace(cell)
			}
			fmt.Fprintln(w, strings.Join(cells, "\t"))
		}
		return
	}

	widths := make([]int, len(t.cols))
	for i, c := range t.cols {
		widths[i] = c.width
		if widths[i] > 0 {
			continue
		}
		widths[i] = runewidth.StringWidth(c.header)
		for _, row := range t.rows {
			if i < len(row) {
				widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
			}
		}
	}

	line := func(cells []string) {
		parts := make([]string, len(widths))
		for i, wd := range widths {
			var cell string
			if i < len(cells) {
				cell = cells[i]
			}
			cell = runewidth.Truncate(cell, wd, "…")
			if i == len(widths)-1 {
				parts[i] = cell
			} else {
				parts[i] = runewidth.FillRight(cell, wd)
			}
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	headers := make([]string, len(t.cols))
	rules := make([]string, len(t.cols))
	for i, c := range t.cols {
		headers[i] = strings.ToUpper(c.header)
		rules[i] = strings.Repeat("─", widths[i])
	}
	line(headers)
	line(rules)
	for _, row := range t.rows {
		line(row)
	}
}

// emailTable builds the list/search table.
func emailTable(emails []query.Email, pretty bool) *table {
	t := newTable(pretty,
		column{header: "ID"},
		column{header: "Date"},
		column{header: "Priority"},
		column{header: "Category"},
		column{header: "From", width: 20},
		column{header: "Company", width: 18},
		column{header: "Subject", width: 50},
		column{header: "Flags"},
	)
	for _, e := range emails {
		t.add(
			e.ID,
			e.ReceivedAt.Local().Format("2006-01-02 15:04"),
			query.PriorityName(e.Priority),
			string(e.Category),
			e.Sender.Name,
			e.Sender.Company,
			e.Subject,
			emailFlags(e),
		)
	}
	return t
}

// emailFlags summarizes state as a compact string: U unread, * starred,
// T task, A attachments.
func emailFlags(e query.Email) string {
	var b strings.Builder
	if !e.IsRead {
		b.WriteByte('U')
	}
	if e.IsStarred {
		b.WriteByte('*')
	}
	if e.HasTask {
		b.WriteByte('T')
	}
	if e.AttachmentCount > 0 {
		b.WriteByte('A')
	}
	return b.String()
}

func printPage(w io.Writer, page *query.Page, pretty bool) {
	if page.Total == 0 {
		fmt.Fprintln(w, "No emails found.")
		return
	}
	emailTable(page.Items, pretty).render(w)
	if pretty {
		fmt.Fprintf(w, "\nPage %d of %d (%d emails)\n", page.Page, page.TotalPages, page.Total)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
