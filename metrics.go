package flume

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors fed by NewMetricsHooks. Any
// nil collector is simply skipped.
type Metrics struct {
	// Pulled counts elements taken from the source.
	Pulled prometheus.Counter
	// Finished counts completed user-function calls.
	Finished prometheus.Counter
	// Failed counts completed calls that returned an error.
	Failed prometheus.Counter
	// ActiveSlots tracks how many slots are executing right now.
	ActiveSlots prometheus.Gauge
}

// NewMetricsHooks adapts m into a hook bundle. The returned bundle is
// safe for concurrent slots because Prometheus collectors are.
func NewMetricsHooks(m *Metrics) Hooks {
	if m == nil {
		return Hooks{}
	}

	var h Hooks
	if m.Pulled != nil {
		h.OnPull = m.Pulled.Inc
	}
	if m.ActiveSlots != nil {
		h.OnStart = func(int) { m.ActiveSlots.Inc() }
	}
	if m.ActiveSlots != nil || m.Finished != nil || m.Failed != nil {
		h.OnFinish = func(_ int, err error) {
			if m.ActiveSlots != nil {
				m.ActiveSlots.Dec()
			}
			if m.Finished != nil {
				m.Finished.Inc()
			}
			if err != nil && m.Failed != nil {
				m.Failed.Inc()
			}
		}
	}
	return h
}
