package unionfs

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/picofiber/picofiber/pkg/vfs"
)

// Metrics is the optional instrumentation surface SPEC_FULL.md's Metrics
// section calls for on the union-mount front-end: a counter of operations
// dispatched to a delegate backend, labelled by operation and backend
// type. Grounded on github.com/prometheus/client_golang, the same
// collector-construction idiom as pkg/fiber.Metrics and the teacher's
// internal/metrics. A nil *Metrics (the New default) disables
// instrumentation entirely.
type Metrics struct {
	ops *prometheus.CounterVec
}

// NewMetrics builds the union front-end's collector and registers it
// against reg. reg may be nil, in which case the collector is created but
// never exposed.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "picofiber_vfs_ops_total",
			Help: "Total filesystem operations dispatched through the union-mount front-end.",
		}, []string{"op", "backend"}),
	}
	if reg != nil {
		reg.MustRegister(m.ops)
	}
	return m
}

// WithMetrics attaches m, recording every resolved operation it serves.
func WithMetrics(m *Metrics) Option {
	return func(fs *FS) { fs.metrics = m }
}

func (fs *FS) observe(op string, b vfs.Backend) {
	if fs.metrics == nil {
		return
	}
	fs.metrics.ops.WithLabelValues(op, fmt.Sprintf("%T", b)).Inc()
}
