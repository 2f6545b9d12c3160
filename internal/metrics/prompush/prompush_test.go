package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadimport/internal/metrics"
)

func TestNewRequiresURL(t *testing.T) {
	_, err := New("", "job")
	assert.Error(t, err)
}

func TestFlushPushesToGateway(t *testing.T) {
	var (
		gotPath string
		gotBody []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := New(srv.URL, "cadimport")
	require.NoError(t, err)

	b.IncCounter("import_rows_created", 3, metrics.Labels{"target": "pessoas"})
	b.IncCounter("import_rows_created", 2, metrics.Labels{"target": "pessoas"})
	require.NoError(t, b.Flush())

	assert.Equal(t, "/metrics/job/cadimport", gotPath)
	assert.Contains(t, string(gotBody), "import_rows_created")
}

func TestFlushReportsGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	b, err := New(srv.URL, "cadimport")
	require.NoError(t, err)
	b.IncCounter("import_rows_rejected", 1, nil)
	assert.Error(t, b.Flush())
}
