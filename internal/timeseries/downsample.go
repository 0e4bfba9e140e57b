package timeseries

import (
	"math"
	"time"

	"gonum.org/v1/gonum/interp"
)

// Downsample reduces an oversized series to roughly target points by stride
// sampling, preserving both endpoints exactly.
//
// Series with at most target points are returned as-is. Oversized series are
// sampled at indices 0, stride, 2*stride, ... with stride = len/target, and
// the final point is appended unconditionally when the stride does not land
// on it, so the result has target or target+1 points. Numeric deltas and
// chart extrema are computed on this output, never on the raw series.
func Downsample(points []Point, target int) []Point {
	if len(points) == 0 {
		return []Point{}
	}
	if target <= 0 || len(points) <= target {
		return points
	}

	stride := len(points) / target

	out := make([]Point, 0, target+1)
	lastIdx := -1
	for i := 0; i < target; i++ {
		idx := i * stride
		if idx >= len(points) {
			break
		}
		out = append(out, points[idx])
		lastIdx = idx
	}

	if lastIdx != len(points)-1 {
		out = append(out, points[len(points)-1])
	}

	return out
}

// RenderBuffer resamples a series to exactly target points spanning the same
// timestamp range, synthesizing intermediate values along linear segments.
// The first and last output values equal the first and last source values.
//
// This variant exists for chart consumers that need a fixed-length render
// buffer even when the underlying history is sparse; it must not be used for
// numeric delta computation (use Downsample for that). Empty input yields
// empty output.
func RenderBuffer(points []Point, target int) []Point {
	if len(points) == 0 || target <= 0 {
		return []Point{}
	}
	if target == 1 {
		last := points[len(points)-1]
		return []Point{{Timestamp: last.Timestamp, Value: round2(last.Value)}}
	}
	if len(points) == 1 {
		out := make([]Point, target)
		for i := range out {
			out[i] = Point{Timestamp: points[0].Timestamp, Value: round2(points[0].Value)}
		}
		return out
	}

	xs, ys := toCoords(points)
	if len(xs) == 1 {
		// All points shared one timestamp
		out := make([]Point, target)
		for i := range out {
			out[i] = Point{Timestamp: points[0].Timestamp, Value: round2(ys[0])}
		}
		return out
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		// xs are strictly increasing by construction; Fit cannot fail here
		return points
	}

	first := points[0]
	last := points[len(points)-1]
	span := last.Timestamp.Sub(first.Timestamp)

	out := make([]Point, target)
	out[0] = Point{Timestamp: first.Timestamp, Value: round2(first.Value)}
	out[target-1] = Point{Timestamp: last.Timestamp, Value: round2(last.Value)}
	for i := 1; i < target-1; i++ {
		offset := time.Duration(float64(span) * float64(i) / float64(target-1))
		at := first.Timestamp.Add(offset)
		x := at.Sub(first.Timestamp).Seconds()
		out[i] = Point{Timestamp: at, Value: round2(pl.Predict(x))}
	}

	return out
}

// toCoords converts a series to interpolation coordinates relative to the
// first timestamp. Duplicate timestamps collapse to the latest value so the
// xs are strictly increasing, as the interpolator requires.
func toCoords(points []Point) (xs, ys []float64) {
	base := points[0].Timestamp
	xs = make([]float64, 0, len(points))
	ys = make([]float64, 0, len(points))
	for _, p := range points {
		x := p.Timestamp.Sub(base).Seconds()
		if n := len(xs); n > 0 && x <= xs[n-1] {
			// Last write wins for a repeated instant
			ys[n-1] = p.Value
			continue
		}
		xs = append(xs, x)
		ys = append(ys, p.Value)
	}
	return xs, ys
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
