// Package health reports the freshness of the published supply data.
package health

import (
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/giygas/iyakuhin-supply/config"
	"github.com/giygas/iyakuhin-supply/interfaces"
)

// Data age thresholds. The source is refreshed once a day, so one missed
// run degrades and two make the service unhealthy.
const (
	degradedAge      = 25 * time.Hour
	unhealthyAge     = 49 * time.Hour
	slowUpdateAge    = 6 * time.Hour
	defaultRunHour   = 6
	defaultRunMinute = 0
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore interfaces.DataStore
	schedule  []config.ScheduleTime
	now       func() time.Time
}

// NewHealthChecker creates a new health checker with injected dependencies.
// schedule lists the daily run times used for the next-update estimate.
func NewHealthChecker(dataStore interfaces.DataStore, schedule []config.ScheduleTime) interfaces.HealthChecker {
	times := append([]config.ScheduleTime(nil), schedule...)
	if len(times) == 0 {
		times = []config.ScheduleTime{{Hour: defaultRunHour, Minute: defaultRunMinute}}
	}
	sort.Slice(times, func(i, j int) bool {
		if times[i].Hour != times[j].Hour {
			return times[i].Hour < times[j].Hour
		}
		return times[i].Minute < times[j].Minute
	})

	return &HealthCheckerImpl{
		dataStore: dataStore,
		schedule:  times,
		now:       time.Now,
	}
}

// HealthCheck returns the health status, its details and the HTTP status for /health
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	envelope := h.dataStore.GetEnvelope()
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()
	now := h.now()

	dataAge := now.Sub(lastUpdate)
	var updateDuration time.Duration
	if startedAt := h.dataStore.GetUpdateStartedAt(); isUpdating && !startedAt.IsZero() {
		updateDuration = now.Sub(startedAt)
	}

	switch {
	case envelope == nil:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > unhealthyAge:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > degradedAge:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case updateDuration > slowUpdateAge:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"last_update":    lastUpdate.Format(time.RFC3339),
		"data_age_hours": math.Round(dataAge.Hours()*10) / 10,
		"rows":           0,
		"is_updating":    isUpdating,
		"next_update":    h.CalculateNextUpdate().Format(time.RFC3339),
	}
	if isUpdating {
		data["update_running_minutes"] = math.Round(updateDuration.Minutes())
	}
	if envelope != nil {
		data["rows"] = len(envelope.Rows)
		data["source"] = envelope.Source
		data["fetch_date"] = envelope.FetchDate
	}

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled run time
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	now := h.now()

	for _, st := range h.schedule {
		candidate := time.Date(now.Year(), now.Month(), now.Day(), st.Hour, st.Minute, 0, 0, now.Location())
		if now.Before(candidate) {
			return candidate
		}
	}

	first := h.schedule[0]
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), first.Hour, first.Minute, 0, 0, now.Location())
}
