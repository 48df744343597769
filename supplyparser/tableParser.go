package supplyparser

import (
	"strings"
	"unicode/utf8"

	"github.com/giygas/iyakuhin-supply/config"
	"github.com/giygas/iyakuhin-supply/supplyparser/entities"
)

// ParserState is the state of the table automaton.
type ParserState int

const (
	// StateScanning skips leading boilerplate until the first data row.
	StateScanning ParserState = iota
	// StateCollecting extracts every named row until the end of the sheet.
	StateCollecting
)

func (s ParserState) String() string {
	if s == StateCollecting {
		return "COLLECTING"
	}
	return "SCANNING"
}

// IsDataStart reports whether a stringified status cell opens the data
// region: its first character must be one of the marker glyphs.
func IsDataStart(status, markers string) bool {
	first, size := utf8.DecodeRuneInString(status)
	if size == 0 || first == utf8.RuneError {
		return false
	}
	return strings.ContainsRune(markers, first)
}

// TableParser walks sheet rows and keeps the ones inside the data region.
// The only transition is SCANNING -> COLLECTING, taken at most once.
type TableParser struct {
	columns config.ColumnLayout
	markers string
	state   ParserState
	rows    []entities.DataRow
}

func NewTableParser(columns config.ColumnLayout, markers string) *TableParser {
	return &TableParser{
		columns: columns,
		markers: markers,
		state:   StateScanning,
		rows:    make([]entities.DataRow, 0),
	}
}

func (p *TableParser) State() ParserState {
	return p.state
}

// Rows returns the rows collected so far.
func (p *TableParser) Rows() []entities.DataRow {
	return p.rows
}

// Feed processes the next sheet row. The row that triggers the transition is
// itself processed as a data row.
func (p *TableParser) Feed(cells []entities.RawCell) {
	window := p.window(cells)

	if p.state == StateScanning {
		if !IsDataStart(NormalizeCell(window[p.columns.Status]), p.markers) {
			return
		}
		p.state = StateCollecting
	}

	brand := strings.TrimSpace(NormalizeCell(window[p.columns.Brand]))
	generic := strings.TrimSpace(NormalizeCell(window[p.columns.Generic]))
	if brand == "" && generic == "" {
		return
	}

	row := make(entities.DataRow, len(window))
	for i, cell := range window {
		row[i] = NormalizeCell(cell)
	}
	p.rows = append(p.rows, row)
}

// window cuts or pads cells to exactly the configured width
func (p *TableParser) window(cells []entities.RawCell) []entities.RawCell {
	window := make([]entities.RawCell, p.columns.Width)
	copy(window, cells)
	return window
}

// ParseRows drains reader through a fresh TableParser. Reaching the end
// without finding the data region yields an empty, non-nil slice.
func ParseRows(reader RowReader, columns config.ColumnLayout, markers string) ([]entities.DataRow, error) {
	parser := NewTableParser(columns, markers)
	for reader.Next() {
		cells, err := reader.Row()
		if err != nil {
			return nil, err
		}
		parser.Feed(cells)
	}
	return parser.Rows(), nil
}

// ParseWorkbook extracts the data rows from the active sheet of an xlsx file.
func ParseWorkbook(content []byte, columns config.ColumnLayout, markers string) ([]entities.DataRow, error) {
	reader, err := openActiveSheet(content, columns.Width)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = reader.Close()
	}()

	return ParseRows(reader, columns, markers)
}
