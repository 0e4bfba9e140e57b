package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dailySeries(n int, values func(i int) float64) []Point {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]Point, n)
	for i := 0; i < n; i++ {
		points[i] = Point{Timestamp: base.AddDate(0, 0, i), Value: values(i)}
	}
	return points
}

func TestDownsampleEmpty(t *testing.T) {
	assert.Empty(t, Downsample(nil, 400))
	assert.Empty(t, Downsample([]Point{}, 400))
}

func TestDownsamplePassthroughWhenUndersized(t *testing.T) {
	points := dailySeries(5, func(i int) float64 { return float64(i) })

	got := Downsample(points, 200)
	assert.Equal(t, points, got, "series shorter than target is returned as-is")

	got = Downsample(points, 5)
	assert.Equal(t, points, got, "series equal to target is returned as-is")
}

func TestDownsampleOversized(t *testing.T) {
	// 1000 daily points at target 400: stride 2, indices 0,2,...,798,
	// plus the forced final point.
	points := dailySeries(1000, func(i int) float64 { return float64(i) })

	got := Downsample(points, 400)
	require.Len(t, got, 401)
	assert.Equal(t, points[0], got[0])
	assert.Equal(t, points[999], got[len(got)-1])
	assert.Equal(t, points[2], got[1])
	assert.Equal(t, points[798], got[399])
}

func TestDownsampleStrideLandsOnFinal(t *testing.T) {
	// 10 points at target 5: stride 2, indices 0,2,4,6,8; final index 9 is
	// not landed on and must be appended.
	points := dailySeries(10, func(i int) float64 { return float64(i) })

	got := Downsample(points, 5)
	require.Len(t, got, 6)
	assert.Equal(t, points[8], got[4])
	assert.Equal(t, points[9], got[5])
}

func TestRenderBufferEmpty(t *testing.T) {
	assert.Empty(t, RenderBuffer(nil, 200))
}

func TestRenderBufferSparseSeries(t *testing.T) {
	values := []float64{100, 150, 120, 180, 200}
	points := dailySeries(5, func(i int) float64 { return values[i] })

	got := RenderBuffer(points, 200)
	require.Len(t, got, 200)

	assert.Equal(t, 100.0, got[0].Value)
	assert.Equal(t, 200.0, got[199].Value)
	assert.Equal(t, points[0].Timestamp, got[0].Timestamp)
	assert.Equal(t, points[4].Timestamp, got[199].Timestamp)

	// Interpolated timestamps are monotonically increasing within the span.
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].Timestamp.After(got[i-1].Timestamp),
			"timestamps must increase at index %d", i)
	}
}

func TestRenderBufferLinearValues(t *testing.T) {
	// A straight line from 0 to 100 over 2 points: every interpolated value
	// lies on the segment.
	points := dailySeries(2, func(i int) float64 { return float64(i) * 100 })

	got := RenderBuffer(points, 5)
	require.Len(t, got, 5)
	assert.Equal(t, []float64{0, 25, 50, 75, 100}, []float64{
		got[0].Value, got[1].Value, got[2].Value, got[3].Value, got[4].Value,
	})
}

func TestRenderBufferSinglePoint(t *testing.T) {
	points := dailySeries(1, func(i int) float64 { return 42 })

	got := RenderBuffer(points, 10)
	require.Len(t, got, 10)
	for _, p := range got {
		assert.Equal(t, 42.0, p.Value)
	}
}

func TestRenderBufferSinglePointRounding(t *testing.T) {
	// Sub-cent values round to 2dp like every other output value.
	points := dailySeries(1, func(i int) float64 { return 42.0049 })

	got := RenderBuffer(points, 4)
	require.Len(t, got, 4)
	for _, p := range got {
		assert.Equal(t, 42.0, p.Value)
	}

	got = RenderBuffer(points, 1)
	require.Len(t, got, 1)
	assert.Equal(t, 42.0, got[0].Value)
}

func TestRenderBufferExactLength(t *testing.T) {
	points := dailySeries(200, func(i int) float64 { return float64(i) })

	got := RenderBuffer(points, 200)
	require.Len(t, got, 200)
	assert.Equal(t, points[0].Value, got[0].Value)
	assert.Equal(t, points[199].Value, got[199].Value)
}
