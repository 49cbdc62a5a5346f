package ports

// Metric names understood by Observability implementations.
const (
	MetricReadingsRecorded      = "plcbridge_readings_recorded_total"
	MetricReadFailures          = "plcbridge_read_failures_total"
	MetricResolveFailures       = "plcbridge_resolve_failures_total"
	MetricWriteFailures         = "plcbridge_write_failures_total"
	MetricSourceConnectFailures = "plcbridge_source_connect_failures_total"
	MetricSinkReconnects        = "plcbridge_sink_reconnects_total"
	MetricCycles                = "plcbridge_cycles_total"
	MetricSourcesUp             = "plcbridge_sources_up"
	MetricCadenceSeconds        = "plcbridge_cadence_seconds"
	MetricCycleDuration         = "plcbridge_cycle_duration_seconds"
)
