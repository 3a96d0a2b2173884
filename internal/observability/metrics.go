// Package observability keeps in-process counters for the GTP session. There
// is no scrape endpoint: the process speaks stdio only, so the counters are
// gathered and written to the diagnostic channel when the session quits.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
)

var (
	registerOnce sync.Once

	gtpCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tengen",
			Subsystem: "gtp",
			Name:      "commands_total",
			Help:      "GTP commands handled.",
		},
		[]string{"command", "status"},
	)
	thinks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tengen",
			Subsystem: "search",
			Name:      "thinks_total",
			Help:      "Think operations started.",
		},
		[]string{"kind"},
	)
	thinkCancels = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tengen",
			Subsystem: "search",
			Name:      "think_cancels_total",
			Help:      "Cooperative think cancellations.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(gtpCommands, thinks, thinkCancels)
	})
}

func RecordCommand(command string, success bool) {
	RegisterMetrics()
	status := "ok"
	if !success {
		status = "failed"
	}
	gtpCommands.WithLabelValues(command, status).Inc()
}

// RecordThink counts a think start; kind is "genmove", "ponder" or "analyze".
func RecordThink(kind string) {
	RegisterMetrics()
	thinks.WithLabelValues(kind).Inc()
}

func RecordThinkCancel() {
	RegisterMetrics()
	thinkCancels.Inc()
}

// LogSummary gathers the registered counters and writes one diagnostic line
// per non-zero series. Called once, on quit.
func LogSummary(log zerolog.Logger) {
	RegisterMetrics()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		log.Warn().Err(err).Msg("metrics gather failed")
		return
	}
	for _, mf := range families {
		if mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		for _, m := range mf.GetMetric() {
			v := m.GetCounter().GetValue()
			if v == 0 {
				continue
			}
			ev := log.Info().Str("metric", mf.GetName()).Float64("value", v)
			for _, lp := range m.GetLabel() {
				ev = ev.Str(lp.GetName(), lp.GetValue())
			}
			ev.Msg("session counter")
		}
	}
}
