package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "polyflow_events_published_total", Help: "Events published on the bus by type"},
		[]string{"type"},
	)
	HandlerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "polyflow_handler_errors_total", Help: "Subscriber handler failures"},
		[]string{"handler"},
	)
	SignalsValidated = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "polyflow_signals_validated_total", Help: "Signals that passed the dual-confirmation join"},
	)
	RiskRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "polyflow_risk_rejections_total", Help: "Signals rejected by the risk gate by reason"},
		[]string{"reason"},
	)
	TradesExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "polyflow_trades_executed_total", Help: "Execution fills by status"},
		[]string{"status"},
	)
	IngestionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "polyflow_ingestion_failures_total", Help: "Failed fetch cycles by source"},
		[]string{"source"},
	)
	BusHistorySize = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "polyflow_bus_history_size", Help: "Current bounded event history length"},
	)
)

func init() {
	prometheus.MustRegister(
		EventsPublished,
		HandlerErrors,
		SignalsValidated,
		RiskRejections,
		TradesExecuted,
		IngestionFailures,
		BusHistorySize,
	)
}
