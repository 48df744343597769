package supplyparser

import (
	"bytes"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/giygas/iyakuhin-supply/supplyparser/entities"
	"github.com/xuri/excelize/v2"
)

// RowReader yields the rows of one sheet in order.
type RowReader interface {
	Next() bool
	Row() ([]entities.RawCell, error)
	Close() error
}

// sheetReader reads the active sheet of an xlsx workbook as RawCells. Values
// are read raw (no number formatting, cached formula results only); dates are
// recognized from the cell type or the cell's number format.
//
// The raw values come from one streaming pass over the sheet. Per-cell type
// and style lookups are costly, so they are only made for values that could
// belong to a non-text cell.
type sheetReader struct {
	file       *excelize.File
	sheet      string
	rows       [][]string
	cur        int
	maxCols    int
	date1904   bool
	dateStyles map[int]bool
}

// openActiveSheet opens the workbook bytes and prepares a reader over the
// active sheet. Rows are cut to maxCols cells; zero keeps every cell.
// Failures are reported as *ParseError.
func openActiveSheet(content []byte, maxCols int) (*sheetReader, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, &ParseError{Stage: "open", Err: err}
	}

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		_ = f.Close()
		return nil, &ParseError{Stage: "sheet", Err: errors.New("workbook has no active sheet")}
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		_ = f.Close()
		return nil, &ParseError{Stage: "rows", Err: err}
	}

	r := &sheetReader{
		file:       f,
		sheet:      sheet,
		rows:       rows,
		maxCols:    maxCols,
		dateStyles: make(map[int]bool),
	}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		r.date1904 = *props.Date1904
	}
	return r, nil
}

func (r *sheetReader) Next() bool {
	if r.cur >= len(r.rows) {
		return false
	}
	r.cur++
	return true
}

// Row returns the current row. Only the cells up to the last non-empty one
// are returned.
func (r *sheetReader) Row() ([]entities.RawCell, error) {
	values := r.rows[r.cur-1]
	if r.maxCols > 0 && len(values) > r.maxCols {
		values = values[:r.maxCols]
	}
	cells := make([]entities.RawCell, len(values))
	for i, value := range values {
		if value == "" {
			cells[i] = entities.EmptyCell()
			continue
		}
		if !mayBeTyped(value) {
			cells[i] = entities.TextCell(value)
			continue
		}
		name, err := excelize.CoordinatesToCellName(i+1, r.cur)
		if err != nil {
			return nil, &ParseError{Stage: "rows", Err: err}
		}
		cells[i] = r.classify(name, value)
	}
	return cells, nil
}

func (r *sheetReader) Close() error {
	return r.file.Close()
}

func (r *sheetReader) classify(cell, value string) entities.RawCell {
	cellType, err := r.file.GetCellType(r.sheet, cell)
	if err != nil {
		return entities.TextCell(value)
	}

	switch cellType {
	case excelize.CellTypeBool:
		return entities.BoolCell(value == "1" || strings.EqualFold(value, "true"))
	case excelize.CellTypeDate:
		if t, ok := parseISODate(value); ok {
			return entities.DateCell(t)
		}
		return entities.TextCell(value)
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		serial, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return entities.TextCell(value)
		}
		if r.isDateStyled(cell) {
			if t, err := serialToTime(serial, r.date1904); err == nil {
				return entities.DateCell(t)
			}
		}
		return entities.NumberCell(value)
	default:
		return entities.TextCell(value)
	}
}

// mayBeTyped reports whether a raw value could come from a number, boolean or
// date cell. Raw booleans are "1"/"0" and date cells hold ISO text; any other
// value is a shared or inline string or an error value, which reads as text.
func mayBeTyped(value string) bool {
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return true
	}
	_, ok := parseISODate(value)
	return ok
}

// timeOnlyDate is the date given to serials below one day, which carry a
// time of day only.
var timeOnlyDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// serialToTime converts a date-formatted serial. Serials below one day are
// placed on 1900-01-01. In the 1900 system, serials below 60 precede the
// 1900-02-29 that Excel counts but which never existed, so they are
// shifted forward one day to keep the dates Excel displays.
func serialToTime(serial float64, date1904 bool) (time.Time, error) {
	if serial >= 0 && serial < 1 {
		return timeOnlyDate.Add(time.Duration(math.Round(serial*86400)) * time.Second), nil
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return time.Time{}, err
	}
	if !date1904 && serial < 60 {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

func (r *sheetReader) isDateStyled(cell string) bool {
	styleID, err := r.file.GetCellStyle(r.sheet, cell)
	if err != nil {
		return false
	}
	if isDate, ok := r.dateStyles[styleID]; ok {
		return isDate
	}

	isDate := false
	if style, err := r.file.GetStyle(styleID); err == nil && style != nil {
		isDate = isBuiltinDateFormat(style.NumFmt) ||
			(style.CustomNumFmt != nil && isDateFormatCode(*style.CustomNumFmt))
	}
	r.dateStyles[styleID] = isDate
	return isDate
}

// isBuiltinDateFormat reports whether a built-in number format id renders a
// date or time, including the CJK and Thai locale ranges.
func isBuiltinDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22,
		id >= 27 && id <= 36,
		id >= 45 && id <= 47,
		id >= 50 && id <= 58,
		id >= 71 && id <= 81:
		return true
	}
	return false
}

// isDateFormatCode reports whether a custom format code contains date or
// time tokens once literals, escapes, padding and bracketed modifiers are
// removed. Only the first (positive) section is considered.
func isDateFormatCode(code string) bool {
	var b strings.Builder
	runes := []rune(code)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '"':
			for i++; i < len(runes) && runes[i] != '"'; i++ {
			}
		case '\\', '_', '*':
			i++
		case '[':
			end := i + 1
			for end < len(runes) && runes[end] != ']' {
				end++
			}
			if isElapsedToken(strings.ToLower(string(runes[i+1 : end]))) {
				return true
			}
			i = end
		case ';':
			return strings.ContainsAny(strings.ToLower(b.String()), "ymdhs")
		default:
			b.WriteRune(c)
		}
	}
	return strings.ContainsAny(strings.ToLower(b.String()), "ymdhs")
}

// isElapsedToken matches [h], [mm], [ss] and friends
func isElapsedToken(s string) bool {
	if s == "" {
		return false
	}
	first := s[0]
	if first != 'h' && first != 'm' && first != 's' {
		return false
	}
	return strings.Trim(s, string(first)) == ""
}

func parseISODate(value string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
