// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package. It keeps every Prometheus-specific dependency out of the
// pipeline itself: the importer records counters through metrics.Backend and
// this package maps them onto CounterVec collectors pushed per run.
package prompush

import (
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"cadimport/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	mu       sync.Mutex
	counters map[string]*prometheus.CounterVec
}

// New constructs a Backend pushing to gatewayURL under jobName.
func New(gatewayURL, jobName string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("pushgateway URL must not be empty")
	}
	return &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
	}, nil
}

// IncCounter implements metrics.Backend. Collectors are created lazily per
// metric name; the label key set of the first observation wins.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.mu.Lock()
	cv, ok := b.counters[name]
	if !ok {
		cv = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, keys)
		if err := b.reg.Register(cv); err != nil {
			b.mu.Unlock()
			return
		}
		b.counters[name] = cv
	}
	b.mu.Unlock()

	cv.With(prometheus.Labels(labels)).Add(delta)
}

// Flush pushes all collected metrics to the gateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push()
}
