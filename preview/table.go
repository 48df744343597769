// Package preview prints the first rows of an envelope as an aligned text
// table. Widths are display widths, so full-width Japanese text lines up.
package preview

import (
	"fmt"
	"io"
	"strings"

	"github.com/giygas/iyakuhin-supply/config"
	"github.com/giygas/iyakuhin-supply/supplyparser/entities"
	"github.com/mattn/go-runewidth"
)

// MaxCellWidth caps a column's display width; longer values are truncated.
const MaxCellWidth = 40

var headers = []string{"#", "成分名", "品名", "出荷対応の状況"}

// WriteTable writes up to limit rows showing the generic, brand and status
// columns. A non-positive limit writes nothing.
func WriteTable(w io.Writer, rows []entities.DataRow, columns config.ColumnLayout, limit int) error {
	if limit <= 0 {
		return nil
	}
	if limit > len(rows) {
		limit = len(rows)
	}

	table := [][]string{headers}
	for i, row := range rows[:limit] {
		table = append(table, []string{
			fmt.Sprintf("%d", i+1),
			cell(row, columns.Generic),
			cell(row, columns.Brand),
			cell(row, columns.Status),
		})
	}

	widths := make([]int, len(headers))
	for _, row := range table {
		for i, value := range row {
			if width := runewidth.StringWidth(value); width > widths[i] {
				widths[i] = width
			}
		}
	}

	for i, row := range table {
		if _, err := io.WriteString(w, formatLine(row, widths)); err != nil {
			return err
		}
		if i == 0 {
			separator := make([]string, len(widths))
			for j, width := range widths {
				separator[j] = strings.Repeat("-", width)
			}
			if _, err := io.WriteString(w, formatLine(separator, widths)); err != nil {
				return err
			}
		}
	}

	if remaining := len(rows) - limit; remaining > 0 {
		if _, err := fmt.Fprintf(w, "... %d more rows\n", remaining); err != nil {
			return err
		}
	}
	return nil
}

func formatLine(row []string, widths []int) string {
	var sb strings.Builder
	sb.WriteString("|")
	for i, value := range row {
		sb.WriteString(" ")
		sb.WriteString(runewidth.FillRight(value, widths[i]))
		sb.WriteString(" |")
	}
	sb.WriteString("\n")
	return sb.String()
}

// cell returns the display value of row[idx], single-lined and truncated
func cell(row entities.DataRow, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	value := strings.Join(strings.Fields(row[idx]), " ")
	return runewidth.Truncate(value, MaxCellWidth, "…")
}
