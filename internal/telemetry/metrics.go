package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/huddlehq/huddle"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Reconciler metrics
	CyclesTotal             metric.Int64Counter
	MeetingsActivatedTotal  metric.Int64Counter
	MeetingsEndedTotal      metric.Int64Counter
	RoomDeleteFailuresTotal metric.Int64Counter

	// Token issuance metrics
	TokensIssuedTotal       metric.Int64Counter
	TokenIssueFailuresTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.CyclesTotal, _ = meter.Int64Counter(
		"huddle.reconciler.cycles.total",
		metric.WithDescription("Total number of reconciliation cycles run"),
		metric.WithUnit("{cycle}"),
	)

	m.MeetingsActivatedTotal, _ = meter.Int64Counter(
		"huddle.reconciler.meetings.activated.total",
		metric.WithDescription("Total number of meetings transitioned to active"),
		metric.WithUnit("{meeting}"),
	)

	m.MeetingsEndedTotal, _ = meter.Int64Counter(
		"huddle.reconciler.meetings.ended.total",
		metric.WithDescription("Total number of meetings transitioned to ended"),
		metric.WithUnit("{meeting}"),
	)

	m.RoomDeleteFailuresTotal, _ = meter.Int64Counter(
		"huddle.reconciler.room_delete.failures.total",
		metric.WithDescription("Total number of media room deletions that failed"),
		metric.WithUnit("{error}"),
	)

	m.TokensIssuedTotal, _ = meter.Int64Counter(
		"huddle.tokens.issued.total",
		metric.WithDescription("Total number of access tokens issued"),
		metric.WithUnit("{token}"),
	)

	m.TokenIssueFailuresTotal, _ = meter.Int64Counter(
		"huddle.tokens.issue.failures.total",
		metric.WithDescription("Total number of access token requests rejected"),
		metric.WithUnit("{error}"),
	)

	return m
}
