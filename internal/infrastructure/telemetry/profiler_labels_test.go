package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithProfilingLabels(t *testing.T) {
	long := strings.Repeat("x", 300)
	called := false

	WithProfilingLabels(context.Background(), map[string]string{
		ProfilingLabelRoute:  "/api/tenant/:tenantId/files",
		ProfilingLabelMethod: "POST",
		ProfilingLabelArea:   long,
		"empty":              "",
	}, func(ctx context.Context) {
		called = true
		route, ok := pprof.Label(ctx, ProfilingLabelRoute)
		assert.True(t, ok)
		assert.Equal(t, "/api/tenant/:tenantId/files", route)

		area, _ := pprof.Label(ctx, ProfilingLabelArea)
		assert.Len(t, area, maxLabelValueLength)

		_, ok = pprof.Label(ctx, "empty")
		assert.False(t, ok)
	})
	assert.True(t, called)
}

func TestWithProfilingLabels_NoLabels(t *testing.T) {
	ctx := context.Background()
	WithProfilingLabels(ctx, nil, func(got context.Context) {
		assert.Equal(t, ctx, got)
	})
}
