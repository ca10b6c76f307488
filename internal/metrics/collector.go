// Package metrics exports guard activity as Prometheus counters.
package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/worm/internal/worm"
)

// Collector implements worm.Observer with Prometheus counters.
type Collector struct {
	guarded  *prometheus.CounterVec
	fixed    prometheus.Counter
	rejected *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

var _ worm.Observer = (*Collector)(nil)

// NewCollector creates a collector registered on its own registry, so
// several collectors can coexist in one process.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		guarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worm_fields_guarded_total",
				Help: "Keys processed by the installer, by resulting state",
			},
			[]string{"state"},
		),
		fixed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "worm_fields_fixed_total",
				Help: "First writes that fixed a guarded field",
			},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worm_writes_rejected_total",
				Help: "Writes and deletes refused on guarded fields",
			},
			[]string{"op", "mode"},
		),
		gatherer: reg,
	}
	reg.MustRegister(c.guarded, c.fixed, c.rejected)
	return c
}

// FieldGuarded implements worm.Observer.
func (c *Collector) FieldGuarded(_, _ string, state worm.State) {
	c.guarded.WithLabelValues(state.String()).Inc()
}

// FieldFixed implements worm.Observer.
func (c *Collector) FieldFixed(_, _ string) {
	c.fixed.Inc()
}

// WriteRejected implements worm.Observer.
func (c *Collector) WriteRejected(_, _ string, op worm.Op, mode worm.Mode) {
	c.rejected.WithLabelValues(string(op), mode.String()).Inc()
}

// Gatherer exposes the collector's registry.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.gatherer
}

// WriteText writes all metrics in the Prometheus text exposition format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.gatherer.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
