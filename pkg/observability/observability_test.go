package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracingExportsPullSpans(t *testing.T) {
	var out bytes.Buffer
	shutdown, err := InitTracing(TracingConfig{
		ServiceName:    "blockstream-test",
		ServiceVersion: "test",
		SamplingRate:   1.0,
		Output:         &out,
	})
	require.NoError(t, err)

	_, span := StartPull(context.Background(), "NullableAdapter", "NullableAdapter(Memory)")
	EndPull(span, 42, false, nil)

	_, span = StartPull(context.Background(), "NullableAdapter", "NullableAdapter(Memory)")
	EndPull(span, 0, false, errors.New("boom"))

	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, out.String(), "NullableAdapter.Next")
	assert.Contains(t, out.String(), "batch.rows")
	assert.Contains(t, out.String(), "boom")
}

func TestTracerDefaultsToUsable(t *testing.T) {
	_, span := StartPull(context.Background(), "PassThrough", "PassThrough(x)")
	EndPull(span, 0, true, nil)
	assert.NotNil(t, Tracer())
}
