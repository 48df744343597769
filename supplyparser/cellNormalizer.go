package supplyparser

import (
	"math"
	"strconv"
	"strings"

	"github.com/giygas/iyakuhin-supply/supplyparser/entities"
)

const dateLayout = "2006-01-02"

// NormalizeCell reduces a raw cell to its canonical string. It is total:
// every input yields a string.
func NormalizeCell(cell entities.RawCell) string {
	switch cell.Kind {
	case entities.CellEmpty:
		return ""
	case entities.CellDate:
		return cell.Time.Format(dateLayout)
	case entities.CellNumber:
		return formatNumber(cell.Text)
	case entities.CellBool:
		if cell.Bool {
			return "True"
		}
		return "False"
	default:
		return cell.Text
	}
}

// formatNumber renders a stored numeric literal the way the source values
// are conventionally printed: integers as-is, decimals in shortest form with
// at least one fractional digit, scientific notation only for very large or
// very small magnitudes. No grouping, no locale.
func formatNumber(literal string) string {
	literal = strings.TrimSpace(literal)
	if literal == "" {
		return ""
	}

	if i, err := strconv.ParseInt(literal, 10, 64); err == nil {
		return strconv.FormatInt(i, 10)
	}

	f, err := strconv.ParseFloat(literal, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return literal
	}

	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
