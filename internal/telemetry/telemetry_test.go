package telemetry

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/perrrseus/OpenSaga/internal/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordBucket("modularity")
	m.RecordBucket("modularity")
	m.RecordBucket("components")
	m.RecordMalformed("collaborations", "self_loop", 3)
	m.RecordMalformed("collaborations", "self_loop", 0)
	m.RecordFallback("components")
	m.BucketCacheHits.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BucketsProcessed.WithLabelValues("modularity")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BucketsProcessed.WithLabelValues("components")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.MalformedRecords.WithLabelValues("collaborations", "self_loop")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommunityFallbacks.WithLabelValues("components")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BucketCacheHits))
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.RecordFallback("components")

	require.NoError(t, m.WriteTextfile(""))

	path := filepath.Join(t.TempDir(), "metrics", "collabgraph.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `collabgraph_community_fallback_total{strategy="components"} 1`)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	err = m.WriteTextfile(filepath.Join(blocker, "metrics", "collabgraph.prom"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeFileSystem))
}

func TestInitTracing(t *testing.T) {
	ctx := context.Background()

	shutdown, err := InitTracing(ctx, TracingConfig{Exporter: "none"})
	require.NoError(t, err)
	require.NoError(t, shutdown(ctx))

	_, err = InitTracing(ctx, TracingConfig{Exporter: "jaeger"})
	assert.ErrorIs(t, err, ErrUnknownExporter)

	var buf bytes.Buffer
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown, err = InitTracing(ctx, TracingConfig{Exporter: "stdout", Writer: &buf, Version: "test"})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(ctx, "bucket")
	span.End()
	require.NoError(t, shutdown(ctx))

	assert.Contains(t, buf.String(), `"Name": "bucket"`)
}
