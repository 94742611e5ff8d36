package obs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitTracerNoneExporter(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), TracingConfig{
		ServiceName: "grocery-api",
		Exporter:    "none",
	})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitTracerUnknownExporter(t *testing.T) {
	_, err := InitTracer(context.Background(), TracingConfig{Exporter: "jaeger"})
	require.Error(t, err)
}

func TestSQLVerb(t *testing.T) {
	require.Equal(t, "select", sqlVerb("SELECT id FROM items"))
	require.Equal(t, "insert", sqlVerb("  insert into prices values ($1)"))
	require.Equal(t, "query", sqlVerb("   "))
}

func TestClipSQLTruncatesLongStatements(t *testing.T) {
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'x'
	}
	clipped := clipSQL(string(long))
	require.Len(t, clipped, 303)
	require.Equal(t, "...", clipped[300:])
}
