package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type captureBackend struct {
	names   []string
	deltas  []float64
	labels  []Labels
	flushed int
}

func (c *captureBackend) IncCounter(name string, delta float64, labels Labels) {
	c.names = append(c.names, name)
	c.deltas = append(c.deltas, delta)
	c.labels = append(c.labels, labels)
}

func (c *captureBackend) Flush() error {
	c.flushed++
	return nil
}

func TestDefaultBackendIsSafe(t *testing.T) {
	SetBackend(nil)
	IncCounter("anything", 1, Labels{"k": "v"})
	assert.NoError(t, Flush())
}

func TestSetBackendRoutes(t *testing.T) {
	c := &captureBackend{}
	SetBackend(c)
	defer SetBackend(nil)

	IncCounter("import_rows_created", 3, Labels{"target": "pessoas"})
	assert.NoError(t, Flush())

	assert.Equal(t, []string{"import_rows_created"}, c.names)
	assert.Equal(t, []float64{3}, c.deltas)
	assert.Equal(t, Labels{"target": "pessoas"}, c.labels[0])
	assert.Equal(t, 1, c.flushed)
}
