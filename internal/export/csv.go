// Package export renders expenses for use outside the app: CSV files and
// spreadsheet rows.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"expensekeeper/internal/core"
)

// Header is the first row of every export.
var Header = []string{"Date", "Amount", "Vendor", "Item", "Category", "Recurring", "Tags", "Notes"}

const (
	DateLayout     = "02 Jan 2006"
	fileNameLayout = "20060102_150405"
)

// FileName names an export file created at now, e.g. expenses_20240601_093000.csv.
func FileName(now time.Time) string {
	return "expenses_" + now.Format(fileNameLayout) + ".csv"
}

// Row renders one expense as cell values in Header order. Dates are shown in
// loc.
func Row(e core.Expense, loc *time.Location) []string {
	recurring := "No"
	if e.IsRecurring() {
		recurring = "Yes"
	}
	return []string{
		e.Date.In(loc).Format(DateLayout),
		core.FormatAmount(e.Amount),
		e.VendorName,
		e.ItemBought,
		e.Category,
		recurring,
		strings.Join(e.Tags, ","),
		e.Notes,
	}
}

// quoted marks the columns that are always quoted: vendor, item, category,
// tags and notes.
var quoted = [...]bool{false, false, true, true, true, false, true, true}

// WriteCSV writes the header and one line per expense. Free-text columns are
// always wrapped in double quotes with embedded quotes doubled, so tags
// joined by commas stay in one cell.
func WriteCSV(w io.Writer, expenses []core.Expense, loc *time.Location) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(Header, ",") + "\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range expenses {
		cells := Row(e, loc)
		for i, c := range cells {
			if quoted[i] {
				cells[i] = `"` + strings.ReplaceAll(c, `"`, `""`) + `"`
			}
		}
		if _, err := bw.WriteString(strings.Join(cells, ",") + "\n"); err != nil {
			return fmt.Errorf("write expense %d: %w", e.ID, err)
		}
	}
	return bw.Flush()
}
