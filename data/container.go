// Package data keeps the latest published supply envelope in memory for the
// serve mode. Updates swap a whole snapshot at once so readers never see the
// envelope and its encoded bytes out of step.
package data

import (
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/giygas/iyakuhin-supply/interfaces"
	"github.com/giygas/iyakuhin-supply/logging"
	"github.com/giygas/iyakuhin-supply/supplyparser/entities"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

// snapshot is one published envelope together with everything derived from it
type snapshot struct {
	envelope *entities.ResultEnvelope
	encoded  []byte
	etag     string
	report   *interfaces.DataQualityReport
}

// DataContainer holds the data with atomic pointers for zero-downtime updates
type DataContainer struct {
	current         atomic.Pointer[snapshot]
	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	updateStartedAt atomic.Value // time.Time, zero when idle
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a new DataContainer with no envelope
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.current.Store(&snapshot{})
	dc.lastUpdated.Store(time.Time{})
	dc.updateStartedAt.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

// GetEnvelope returns the latest envelope, or nil before the first update
func (dc *DataContainer) GetEnvelope() *entities.ResultEnvelope {
	return dc.current.Load().envelope
}

// GetEncoded returns the exact bytes that were written to the output file
func (dc *DataContainer) GetEncoded() []byte {
	return dc.current.Load().encoded
}

// GetETag returns the strong entity tag of the encoded envelope
func (dc *DataContainer) GetETag() string {
	return dc.current.Load().etag
}

// GetDataQualityReport returns the report of the run that produced the envelope
func (dc *DataContainer) GetDataQualityReport() *interfaces.DataQualityReport {
	return dc.current.Load().report
}

// GetLastUpdated returns the timestamp of the last data update
func (dc *DataContainer) GetLastUpdated() time.Time {
	if v := dc.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating returns true if a pipeline run is currently in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// UpdateData atomically publishes a new envelope
func (dc *DataContainer) UpdateData(envelope *entities.ResultEnvelope, encoded []byte, report *interfaces.DataQualityReport) {
	dc.RestoreData(envelope, encoded, report, time.Now())
}

// RestoreData publishes an envelope produced earlier, e.g. the output file
// found on disk at startup, keeping its original timestamp.
func (dc *DataContainer) RestoreData(envelope *entities.ResultEnvelope, encoded []byte, report *interfaces.DataQualityReport, updatedAt time.Time) {
	dc.current.Store(&snapshot{
		envelope: envelope,
		encoded:  encoded,
		etag:     computeETag(encoded),
		report:   report,
	})
	dc.lastUpdated.Store(updatedAt)
}

// BeginUpdate marks the start of a pipeline run and records its start time.
// Returns true if the run can proceed, false if another run is in progress
func (dc *DataContainer) BeginUpdate() bool {
	if !dc.updating.CompareAndSwap(false, true) {
		return false
	}
	dc.updateStartedAt.Store(time.Now())
	return true
}

// EndUpdate marks the end of a pipeline run
func (dc *DataContainer) EndUpdate() {
	dc.updateStartedAt.Store(time.Time{})
	dc.updating.Store(false)
}

// GetUpdateStartedAt returns when the running update began, or the zero time
// when no update is running
func (dc *DataContainer) GetUpdateStartedAt() time.Time {
	if v, ok := dc.updateStartedAt.Load().(time.Time); ok {
		return v
	}
	return time.Time{}
}

func computeETag(encoded []byte) string {
	if len(encoded) == 0 {
		return ""
	}
	sum := sha256.Sum256(encoded)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}
