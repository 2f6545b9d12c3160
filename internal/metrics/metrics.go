// Package metrics is a small, backend-agnostic abstraction for recording
// operational counters from the import pipeline. The global backend defaults
// to a no-op so instrumentation is always safe to call; a real backend
// (Prometheus Pushgateway, see the prompush subpackage) is plugged in at
// startup when configured.
package metrics

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// Flush pushes collected metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels) {}
func (nopBackend) Flush() error                       { return nil }

var backend Backend = nopBackend{}

// SetBackend installs the process-wide metrics backend. Call once at startup.
func SetBackend(b Backend) {
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

// IncCounter increments a counter on the installed backend.
func IncCounter(name string, delta float64, labels Labels) {
	backend.IncCounter(name, delta, labels)
}

// Flush flushes the installed backend.
func Flush() error { return backend.Flush() }
