package entities

import "time"

// CellKind identifies which variant a RawCell holds.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellBool
	CellDate
)

func (k CellKind) String() string {
	switch k {
	case CellEmpty:
		return "empty"
	case CellText:
		return "text"
	case CellNumber:
		return "number"
	case CellBool:
		return "bool"
	case CellDate:
		return "date"
	}
	return "unknown"
}

// RawCell is one spreadsheet value as read from the sheet, before normalization.
// Text carries the string for CellText and the stored numeric literal for CellNumber.
type RawCell struct {
	Kind CellKind
	Text string
	Bool bool
	Time time.Time
}

func EmptyCell() RawCell {
	return RawCell{Kind: CellEmpty}
}

func TextCell(s string) RawCell {
	return RawCell{Kind: CellText, Text: s}
}

// NumberCell keeps the literal as stored in the workbook (e.g. "12", "0.25").
func NumberCell(literal string) RawCell {
	return RawCell{Kind: CellNumber, Text: literal}
}

func BoolCell(b bool) RawCell {
	return RawCell{Kind: CellBool, Bool: b}
}

func DateCell(t time.Time) RawCell {
	return RawCell{Kind: CellDate, Time: t}
}
