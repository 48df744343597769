// Package validation checks output envelopes before they are written and
// summarizes the quality of the extracted rows.
package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/giygas/iyakuhin-supply/config"
	"github.com/giygas/iyakuhin-supply/interfaces"
	"github.com/giygas/iyakuhin-supply/supplyparser/entities"
)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

// ValidateEnvelope checks the structural invariants of an envelope: an ISO
// calendar fetch date, a source name, and rows that have exactly the layout
// width and at least one name field.
func (v *DataValidatorImpl) ValidateEnvelope(env *entities.ResultEnvelope, columns config.ColumnLayout) error {
	if env == nil {
		return fmt.Errorf("envelope is nil")
	}

	if _, err := time.Parse(time.DateOnly, env.FetchDate); err != nil {
		return fmt.Errorf("invalid fetchDate %q: %w", env.FetchDate, err)
	}

	if strings.TrimSpace(env.Source) == "" {
		return fmt.Errorf("missing source filename")
	}

	if env.Rows == nil {
		return fmt.Errorf("rows must not be nil")
	}

	for i, row := range env.Rows {
		if len(row) != columns.Width {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), columns.Width)
		}
		if strings.TrimSpace(row[columns.Generic]) == "" && strings.TrimSpace(row[columns.Brand]) == "" {
			return fmt.Errorf("row %d has neither generic nor brand name", i)
		}
	}

	return nil
}

// ReportDataQuality counts rows per status marker and rows missing one of
// the two name fields.
func (v *DataValidatorImpl) ReportDataQuality(rows []entities.DataRow, columns config.ColumnLayout, markers string) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		TotalRows:    len(rows),
		StatusCounts: make(map[string]int),
	}

	for _, row := range rows {
		if len(row) != columns.Width {
			continue
		}

		first, size := utf8.DecodeRuneInString(row[columns.Status])
		if size > 0 && strings.ContainsRune(markers, first) {
			report.StatusCounts[string(first)]++
		} else {
			report.UnrecognizedStatus++
		}

		if strings.TrimSpace(row[columns.Generic]) == "" {
			report.MissingGeneric++
		}
		if strings.TrimSpace(row[columns.Brand]) == "" {
			report.MissingBrand++
		}
	}

	return report
}
