package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once
	pending      []prometheus.Collector
)

// register queues a collector during package init. Each file in this
// package declares its collectors as vars and enqueues them here.
func register(cs ...prometheus.Collector) {
	pending = append(pending, cs...)
}

// MustRegister attaches every queued collector to the default registry.
// The web server calls it before mounting /metrics; repeat calls are
// no-ops.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(pending...)
	})
}
