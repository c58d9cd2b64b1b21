// Package telemetry exposes process counters in Prometheus format.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "microstructure_analyses_total", Help: "Snapshots and batches analyzed"},
		[]string{"kind"}, // book, tape, profile
	)
	PatternsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "microstructure_patterns_total", Help: "Patterns detected"},
		[]string{"pattern"},
	)
	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "microstructure_alerts_total", Help: "Pattern alerts broadcast after cooldown"},
		[]string{"pattern"},
	)
	ReplayRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "microstructure_replay_records_total", Help: "Records read from the replay file"},
		[]string{"type"},
	)
	WSClients = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "microstructure_ws_clients", Help: "Connected websocket clients"},
	)
)

func init() {
	prometheus.MustRegister(AnalysesTotal, PatternsTotal, AlertsTotal, ReplayRecordsTotal, WSClients)
}

func Handler() http.Handler { return promhttp.Handler() }
