package tabular

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is a header plus data rows. Column lookups are case-insensitive and
// ignore spaces, dashes, and underscores, so "Asking Price", "asking_price",
// and "askingPrice" all name the same column.
type Table struct {
	Header []string
	Rows   [][]string

	index map[string]int
}

// NewTable builds a Table whose first record is the header. Blank rows are
// dropped.
func NewTable(records [][]string) *Table {
	t := &Table{index: map[string]int{}}
	if len(records) == 0 {
		return t
	}
	t.Header = records[0]
	for i, h := range t.Header {
		key := normalizeColumn(h)
		if _, dup := t.index[key]; !dup {
			t.index[key] = i
		}
	}
	for _, r := range records[1:] {
		if blank(r) {
			continue
		}
		t.Rows = append(t.Rows, r)
	}
	return t
}

// Has reports whether the table has a column with the given name.
func (t *Table) Has(column string) bool {
	_, ok := t.index[normalizeColumn(column)]
	return ok
}

// Get returns the value of column in row i, or "" when the column or cell
// is missing.
func (t *Table) Get(i int, column string) string {
	idx, ok := t.index[normalizeColumn(column)]
	if !ok || i < 0 || i >= len(t.Rows) || idx >= len(t.Rows[i]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[i][idx])
}

// ReadFile reads a CSV or XLSX file, chosen by extension.
func ReadFile(ctx context.Context, path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "tabular: open file")
		}
		defer f.Close()
		return ReadCSV(ctx, f)
	case ".xlsx":
		return ReadXLSX(path, XLSXOptions{})
	default:
		return nil, eris.Errorf("tabular: unsupported file type %q", filepath.Ext(path))
	}
}

// WriteFile writes a CSV or XLSX file, chosen by extension.
func WriteFile(path string, header []string, rows [][]string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrap(err, "tabular: create file")
		}
		if err := WriteCSV(f, header, rows); err != nil {
			f.Close()
			return err
		}
		return eris.Wrap(f.Close(), "tabular: close file")
	case ".xlsx":
		return WriteXLSX(path, "Results", header, rows)
	default:
		return eris.Errorf("tabular: unsupported file type %q", filepath.Ext(path))
	}
}

func normalizeColumn(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
