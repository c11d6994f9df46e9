package infrastructure

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func TestSystemMetrics_Collect(t *testing.T) {
	meter := sdkmetric.NewMeterProvider().Meter("test")
	sm, err := NewSystemMetrics(meter)
	require.NoError(t, err)

	start := time.Now().Add(-5 * time.Second)
	stats := sm.Collect(context.Background(), start)
	require.NotNil(t, stats)

	assert.Greater(t, stats.GoRoutines, int64(0))
	assert.Greater(t, stats.MemoryUsage, int64(0))
	assert.Greater(t, stats.MemorySystem, int64(0))
	assert.Equal(t, runtime.NumCPU(), stats.CPUCount)
	assert.GreaterOrEqual(t, stats.ProcessUptime, 5*time.Second)
	assert.False(t, stats.Timestamp.IsZero())
}

func TestSystemMetrics_CollectTracksGCDelta(t *testing.T) {
	meter := sdkmetric.NewMeterProvider().Meter("test")
	sm, err := NewSystemMetrics(meter)
	require.NoError(t, err)

	start := time.Now()
	first := sm.Collect(context.Background(), start)

	runtime.GC()
	second := sm.Collect(context.Background(), start)

	assert.Greater(t, second.GCCount, first.GCCount)
}

func TestSystemStats_FormatStats(t *testing.T) {
	stats := &SystemStats{
		GoRoutines:      12,
		MemoryUsage:     64 * 1024 * 1024,
		MemoryAllocated: 256 * 1024 * 1024,
		MemorySystem:    128 * 1024 * 1024,
		GCCount:         4,
		LastGCPause:     3 * time.Millisecond,
		CPUCount:        8,
		ProcessUptime:   90 * time.Second,
		Timestamp:       time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}

	formatted := stats.FormatStats()

	rt, ok := formatted["runtime"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, int64(12), rt["goroutines"])
	assert.Equal(t, int64(64), rt["memory_usage_mb"])
	assert.Equal(t, int64(256), rt["memory_alloc_mb"])
	assert.Equal(t, int64(128), rt["memory_system_mb"])
	assert.Equal(t, uint32(4), rt["gc_count"])
	assert.Equal(t, int64(3), rt["last_gc_pause_ms"])

	sys, ok := formatted["system"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 8, sys["cpu_count"])
	assert.Equal(t, 90.0, sys["uptime_seconds"])

	assert.Equal(t, "2025-06-01T10:00:00Z", formatted["timestamp"])
}

func TestSystemMetricsCollector(t *testing.T) {
	meter := sdkmetric.NewMeterProvider().Meter("test")
	collector, err := NewSystemMetricsCollector(meter, 10*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, collector.GetMetrics())

	done := make(chan struct{})
	go func() {
		collector.Start(context.Background())
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	collector.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}

	stats := collector.GetCurrentStats(context.Background())
	require.NotNil(t, stats)
	assert.Greater(t, stats.GoRoutines, int64(0))
}

func TestSystemMetricsCollector_StopsOnContextCancel(t *testing.T) {
	meter := sdkmetric.NewMeterProvider().Meter("test")
	collector, err := NewSystemMetricsCollector(meter, 10*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		collector.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop on context cancellation")
	}
}
