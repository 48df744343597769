package supplyparser

import (
	"errors"
	"testing"
	"time"

	"github.com/giygas/iyakuhin-supply/supplyparser/entities"
	"github.com/xuri/excelize/v2"
)

// buildWorkbook writes rows into Sheet1 of a fresh workbook; nil values are
// left unset.
func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	writeRows(t, f, "Sheet1", rows)

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("Failed to write workbook: %v", err)
	}
	return buf.Bytes()
}

func writeRows(t *testing.T, f *excelize.File, sheet string, rows [][]any) {
	t.Helper()
	for r, row := range rows {
		for c, value := range row {
			if value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("Invalid coordinates: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				t.Fatalf("Failed to set %s: %v", cell, err)
			}
		}
	}
}

// dataRow builds a 16-wide row with the name and status columns filled in
func dataRow(generic, brand, status string) []any {
	row := make([]any, 16)
	if generic != "" {
		row[2] = generic
	}
	if brand != "" {
		row[5] = brand
	}
	if status != "" {
		row[11] = status
	}
	return row
}

func readAllCells(t *testing.T, content []byte) [][]entities.RawCell {
	t.Helper()

	reader, err := openActiveSheet(content, 0)
	if err != nil {
		t.Fatalf("openActiveSheet failed: %v", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	var rows [][]entities.RawCell
	for reader.Next() {
		cells, err := reader.Row()
		if err != nil {
			t.Fatalf("Row failed: %v", err)
		}
		rows = append(rows, cells)
	}
	return rows
}

func TestSheetReaderCellKinds(t *testing.T) {
	content := buildWorkbook(t, [][]any{
		{"text", 42, 2.5, true, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), nil, "last"},
	})

	rows := readAllCells(t, content)
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}

	cells := rows[0]
	wantKinds := []entities.CellKind{
		entities.CellText, entities.CellNumber, entities.CellNumber,
		entities.CellBool, entities.CellDate, entities.CellEmpty, entities.CellText,
	}
	if len(cells) != len(wantKinds) {
		t.Fatalf("Expected %d cells, got %d", len(wantKinds), len(cells))
	}
	for i, kind := range wantKinds {
		if cells[i].Kind != kind {
			t.Errorf("Cell %d: expected kind %s, got %s", i, kind, cells[i].Kind)
		}
	}

	want := []string{"text", "42", "2.5", "True", "2024-03-01", "", "last"}
	for i, w := range want {
		if got := NormalizeCell(cells[i]); got != w {
			t.Errorf("Cell %d: expected %q, got %q", i, w, got)
		}
	}
}

func TestSheetReaderCustomDateFormat(t *testing.T) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	format := "yyyy\"年\"m\"月\"d\"日\""
	style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &format})
	if err != nil {
		t.Fatalf("Failed to create style: %v", err)
	}
	// 45352 is 2024-03-01 in the 1900 date system
	if err := f.SetCellValue("Sheet1", "A1", 45352); err != nil {
		t.Fatalf("Failed to set value: %v", err)
	}
	if err := f.SetCellStyle("Sheet1", "A1", "A1", style); err != nil {
		t.Fatalf("Failed to set style: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "B1", 45352); err != nil {
		t.Fatalf("Failed to set value: %v", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("Failed to write workbook: %v", err)
	}

	rows := readAllCells(t, buf.Bytes())
	if got := NormalizeCell(rows[0][0]); got != "2024-03-01" {
		t.Errorf("Expected date-formatted serial to normalize to 2024-03-01, got %q", got)
	}
	if got := NormalizeCell(rows[0][1]); got != "45352" {
		t.Errorf("Expected unformatted serial to stay a number, got %q", got)
	}
}

func TestSheetReaderActiveSheetOnly(t *testing.T) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	writeRows(t, f, "Sheet1", [][]any{dataRow("ignored", "Ignored", "①欠品")})

	idx, err := f.NewSheet("Supply")
	if err != nil {
		t.Fatalf("Failed to add sheet: %v", err)
	}
	writeRows(t, f, "Supply", [][]any{dataRow("active", "Active", "②調整中")})
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("Failed to write workbook: %v", err)
	}

	rows, err := ParseWorkbook(buf.Bytes(), defaultColumns(), defaultMarkers)
	if err != nil {
		t.Fatalf("ParseWorkbook failed: %v", err)
	}
	if len(rows) != 1 || rows[0][2] != "active" {
		t.Errorf("Expected only the active sheet's row, got %v", rows)
	}
}

func TestOpenActiveSheetInvalidBytes(t *testing.T) {
	_, err := openActiveSheet([]byte("<html>not a workbook</html>"), 0)
	if err == nil {
		t.Fatal("Expected error for non-xlsx content")
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected *ParseError, got %T", err)
	}
	if perr.Stage != "open" {
		t.Errorf("Expected stage open, got %s", perr.Stage)
	}
}

func TestIsDateFormatCode(t *testing.T) {
	testCases := []struct {
		code string
		want bool
	}{
		{"yyyy/m/d", true},
		{"yyyy\"年\"m\"月\"d\"日\"", true},
		{"[$-411]ggge\"年\"m\"月\"d\"日\"", true},
		{"h:mm:ss", true},
		{"[h]:mm", true},
		{"#,##0", false},
		{"0.00", false},
		{"\"days\" 0", false},
		{"[Red]#,##0", false},
		{"0;[Red]-0", false},
		{"@", false},
		{"#,##0_);(#,##0)", false},
	}

	for _, tc := range testCases {
		t.Run(tc.code, func(t *testing.T) {
			if got := isDateFormatCode(tc.code); got != tc.want {
				t.Errorf("isDateFormatCode(%q) = %v, want %v", tc.code, got, tc.want)
			}
		})
	}
}

func TestIsBuiltinDateFormat(t *testing.T) {
	for _, id := range []int{14, 22, 27, 36, 45, 57, 81} {
		if !isBuiltinDateFormat(id) {
			t.Errorf("Expected built-in format %d to be a date", id)
		}
	}
	for _, id := range []int{0, 1, 4, 10, 49, 164} {
		if isBuiltinDateFormat(id) {
			t.Errorf("Expected built-in format %d not to be a date", id)
		}
	}
}

func TestSerialToTime(t *testing.T) {
	testCases := []struct {
		name     string
		serial   float64
		date1904 bool
		want     string
	}{
		{"time only", 0.5, false, "1900-01-01"},
		{"zero", 0, false, "1900-01-01"},
		{"first day", 1, false, "1900-01-01"},
		{"before phantom leap day", 59, false, "1900-02-28"},
		{"after phantom leap day", 61, false, "1900-03-01"},
		{"modern date", 45352, false, "2024-03-01"},
		{"time only in 1904 system", 0.25, true, "1900-01-01"},
		{"1904 system", 1, true, "1904-01-02"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := serialToTime(tc.serial, tc.date1904)
			if err != nil {
				t.Fatalf("serialToTime(%v) failed: %v", tc.serial, err)
			}
			if got.Format(dateLayout) != tc.want {
				t.Errorf("serialToTime(%v, %v) = %s, want %s", tc.serial, tc.date1904, got.Format(dateLayout), tc.want)
			}
		})
	}

	if _, err := serialToTime(-1, false); err == nil {
		t.Error("Expected error for a negative serial")
	}
}

func TestSheetReaderTimeOnlyFormat(t *testing.T) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	// Built-in format 20 is h:mm
	style, err := f.NewStyle(&excelize.Style{NumFmt: 20})
	if err != nil {
		t.Fatalf("Failed to create style: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "A1", 0.5); err != nil {
		t.Fatalf("Failed to set value: %v", err)
	}
	if err := f.SetCellStyle("Sheet1", "A1", "A1", style); err != nil {
		t.Fatalf("Failed to set style: %v", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("Failed to write workbook: %v", err)
	}

	rows := readAllCells(t, buf.Bytes())
	if rows[0][0].Kind != entities.CellDate {
		t.Fatalf("Expected a date cell, got %s", rows[0][0].Kind)
	}
	if got := NormalizeCell(rows[0][0]); got != "1900-01-01" {
		t.Errorf("Expected time-only cell to normalize to 1900-01-01, got %q", got)
	}
}

func TestSheetReaderNumericText(t *testing.T) {
	content := buildWorkbook(t, [][]any{{"007", "3.0", "#N/A", 7}})

	cells := readAllCells(t, content)[0]
	want := []struct {
		kind  entities.CellKind
		value string
	}{
		{entities.CellText, "007"},
		{entities.CellText, "3.0"},
		{entities.CellText, "#N/A"},
		{entities.CellNumber, "7"},
	}
	for i, w := range want {
		if cells[i].Kind != w.kind {
			t.Errorf("Cell %d: expected kind %s, got %s", i, w.kind, cells[i].Kind)
		}
		if got := NormalizeCell(cells[i]); got != w.value {
			t.Errorf("Cell %d: expected %q, got %q", i, w.value, got)
		}
	}
}

func TestSheetReaderMaxCols(t *testing.T) {
	content := buildWorkbook(t, [][]any{{"a", 1, "b", 2, "c"}})

	reader, err := openActiveSheet(content, 3)
	if err != nil {
		t.Fatalf("openActiveSheet failed: %v", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	if !reader.Next() {
		t.Fatal("Expected one row")
	}
	cells, err := reader.Row()
	if err != nil {
		t.Fatalf("Row failed: %v", err)
	}
	if len(cells) != 3 {
		t.Errorf("Expected row cut to 3 cells, got %d", len(cells))
	}
}

func TestMayBeTyped(t *testing.T) {
	testCases := map[string]bool{
		"42":                  true,
		"45352.5":             true,
		"1":                   true,
		"2024-03-01T00:00:00": true,
		"①通常出荷":               false,
		"アセトアミノフェン":           false,
		"#N/A":                false,
		"1,000":               false,
	}
	for value, want := range testCases {
		if got := mayBeTyped(value); got != want {
			t.Errorf("mayBeTyped(%q) = %v, want %v", value, got, want)
		}
	}
}
