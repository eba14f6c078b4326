package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// group is a set of collectors registered on the default registry at most once,
// so tests and both binaries can call the Register* functions freely.
type group struct {
	once       sync.Once
	collectors []prometheus.Collector
}

func newGroup(cs ...prometheus.Collector) *group {
	return &group{collectors: cs}
}

func (g *group) register() {
	g.once.Do(func() {
		prometheus.MustRegister(g.collectors...)
	})
}
