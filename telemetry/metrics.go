package telemetry

// PublishBuckets for a single bus round trip
var PublishBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Notification Metrics
var (
	// NotificationsTotal counts host notifications by kind (account, transaction, slot, block, entry)
	NotificationsTotal CounterVec = noopCounterVec{}

	// ProtocolFaultsTotal counts unsupported payload versions by kind
	ProtocolFaultsTotal CounterVec = noopCounterVec{}

	// DecodeErrorsTotal counts ingest messages that could not be decoded
	DecodeErrorsTotal Counter = NoopStat{}

	// SlotLatest tracks the highest slot seen per status
	SlotLatest GaugeVec = noopGaugeVec{}
)

// Forwarding Metrics
var (
	// FilterResultsTotal counts transactions by filter result (match, no_match)
	FilterResultsTotal CounterVec = noopCounterVec{}

	// PublishTotal counts publish attempts by result (success, failed)
	PublishTotal CounterVec = noopCounterVec{}

	// PublishDurationSeconds measures publish latency by result
	PublishDurationSeconds HistogramVec = noopHistogramVec{}

	// TargetPrograms is the size of the identifier set
	TargetPrograms Gauge = NoopStat{}

	// StreamSubscribers is the number of in-process match subscribers
	StreamSubscribers Gauge = NoopStat{}

	// StreamDroppedTotal counts matches dropped for slow subscribers
	StreamDroppedTotal Gauge = NoopStat{}
)

// InitMetrics initializes all metrics. Called after InitializeTelemetry.
func InitMetrics() {
	NotificationsTotal = NewCounterVec(
		"notifications_total",
		"Host notifications received by kind",
		[]string{"kind"},
	)
	ProtocolFaultsTotal = NewCounterVec(
		"protocol_faults_total",
		"Notifications with an unsupported payload version by kind",
		[]string{"kind"},
	)
	DecodeErrorsTotal = NewCounter(
		"decode_errors_total",
		"Ingest messages skipped because they could not be decoded",
	)
	SlotLatest = NewGaugeVec(
		"slot_latest",
		"Highest slot seen per status",
		[]string{"status"},
	)

	FilterResultsTotal = NewCounterVec(
		"filter_results_total",
		"Transactions by filter result",
		[]string{"result"},
	)
	PublishTotal = NewCounterVec(
		"publish_total",
		"Publish attempts by result",
		[]string{"result"},
	)
	PublishDurationSeconds = NewHistogramVec(
		"publish_duration_seconds",
		"Publish latency in seconds",
		[]string{"result"},
		PublishBuckets,
	)
	TargetPrograms = NewGauge(
		"target_programs",
		"Number of target program identifiers",
	)
	StreamSubscribers = NewGauge(
		"stream_subscribers",
		"Active in-process match subscribers",
	)
	StreamDroppedTotal = NewGauge(
		"stream_dropped",
		"Matches dropped because a subscriber was too slow",
	)
}
