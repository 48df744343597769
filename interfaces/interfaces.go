// Package interfaces defines the core abstractions shared by the pipeline,
// the scheduler and the HTTP surface, so each can be tested with mocks.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/giygas/iyakuhin-supply/config"
	"github.com/giygas/iyakuhin-supply/supplyparser/entities"
)

// DataQualityReport summarizes the rows of one run. It is informational only:
// a run never fails because of it.
type DataQualityReport struct {
	TotalRows          int            `json:"total_rows"`
	StatusCounts       map[string]int `json:"status_counts"` // keyed by marker glyph
	UnrecognizedStatus int            `json:"unrecognized_status"`
	MissingGeneric     int            `json:"missing_generic"`
	MissingBrand       int            `json:"missing_brand"`
}

// RunResult is everything a successful pipeline run produced.
type RunResult struct {
	Envelope      *entities.ResultEnvelope
	Encoded       []byte // exact bytes written to the output file
	Report        *DataQualityReport
	WorkbookURL   string
	WorkbookBytes int
}

// Pipeline runs one complete fetch-parse-write pass.
type Pipeline interface {
	Run(ctx context.Context) (*RunResult, error)
}

// DataStore holds the latest published envelope for the HTTP surface.
// Updates are atomic: readers see either the old or the new envelope.
type DataStore interface {
	GetEnvelope() *entities.ResultEnvelope
	GetEncoded() []byte
	GetETag() string
	GetDataQualityReport() *DataQualityReport
	GetLastUpdated() time.Time
	GetServerStartTime() time.Time
	IsUpdating() bool
	GetUpdateStartedAt() time.Time

	UpdateData(envelope *entities.ResultEnvelope, encoded []byte, report *DataQualityReport)
	BeginUpdate() bool
	EndUpdate()
}

// Scheduler defines the contract for job scheduling and health monitoring.
type Scheduler interface {
	Start() error
	Stop()
}

// HealthChecker reports whether the served data is fresh enough.
type HealthChecker interface {
	HealthCheck() (status string, details map[string]any, httpStatus int)
	CalculateNextUpdate() time.Time
}

// DataValidator checks envelope invariants and summarizes row quality.
type DataValidator interface {
	ValidateEnvelope(env *entities.ResultEnvelope, columns config.ColumnLayout) error
	ReportDataQuality(rows []entities.DataRow, columns config.ColumnLayout, markers string) *DataQualityReport
}

// HTTPHandler lists the endpoints of the serve mode.
type HTTPHandler interface {
	ServeData(w http.ResponseWriter, r *http.Request)
	ServeReport(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}
