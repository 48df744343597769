package metrics

import "time"

// Run results used as the supply_pipeline_runs_total label
const (
	ResultSuccess         = "success"
	ResultResolutionError = "resolution_error"
	ResultTransportError  = "transport_error"
	ResultParseError      = "parse_error"
	ResultError           = "error"
)

// ObserveRun records one finished pipeline run. rows is only used on success.
func ObserveRun(result string, duration time.Duration, rows int) {
	PipelineRunsTotal.WithLabelValues(result).Inc()
	PipelineDuration.Observe(duration.Seconds())

	if result == ResultSuccess {
		SupplyRows.Set(float64(rows))
		LastSuccessTimestamp.SetToCurrentTime()
	}
}
