// Package timeseries provides the pure time-range filtering and downsampling
// pipeline used to turn snapshot history into chart-ready series.
//
// It is shared by the server-side dashboard query path and the client-side
// cache that re-derives narrower ranges from a previously fetched full-range
// payload. Both call sites must go through this package so the two never
// drift into different algorithms.
package timeseries

import (
	"fmt"
	"strings"
	"time"

	"github.com/ledgerline/ledgerline/internal/domain"
)

// Point is a single point in a value series. Derived, never persisted.
type Point struct {
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
	Value     float64   `json:"value" msgpack:"value"`
}

// Range is a named lookback window for dashboard queries.
type Range string

const (
	Range1W  Range = "1W"
	Range1M  Range = "1M"
	Range3M  Range = "3M"
	Range1Y  Range = "1Y"
	RangeAll Range = "ALL"
)

// ParseRange validates a client-supplied range token.
// Unknown tokens are a client error, never guessed at.
func ParseRange(s string) (Range, error) {
	switch Range(strings.ToUpper(s)) {
	case Range1W:
		return Range1W, nil
	case Range1M:
		return Range1M, nil
	case Range3M:
		return Range3M, nil
	case Range1Y:
		return Range1Y, nil
	case RangeAll:
		return RangeAll, nil
	}
	return "", fmt.Errorf("%w: %q (must be one of 1W, 1M, 3M, 1Y, ALL)", domain.ErrInvalidRange, s)
}

// Lookback returns the fixed duration subtracted from "now" to get the range
// cutoff. ok is false for ALL, which has no lower bound.
func (r Range) Lookback() (d time.Duration, ok bool) {
	switch r {
	case Range1W:
		return 7 * 24 * time.Hour, true
	case Range1M:
		return 30 * 24 * time.Hour, true
	case Range3M:
		return 90 * 24 * time.Hour, true
	case Range1Y:
		return 365 * 24 * time.Hour, true
	}
	return 0, false
}

// Cutoff returns the earliest instant included in the range as of now.
// ok is false for ALL.
func (r Range) Cutoff(now time.Time) (cutoff time.Time, ok bool) {
	d, ok := r.Lookback()
	if !ok {
		return time.Time{}, false
	}
	return now.Add(-d), true
}

// Targets maps each range to its downsampling target point count.
type Targets map[Range]int

// DefaultTargets returns the per-range target point counts.
func DefaultTargets() Targets {
	return Targets{
		Range1W:  200,
		Range1M:  300,
		Range3M:  400,
		Range1Y:  400,
		RangeAll: 400,
	}
}

// Points returns the target point count for a range, falling back to the
// default when the map has no entry.
func (t Targets) Points(r Range) int {
	if n, ok := t[r]; ok && n > 0 {
		return n
	}
	if n, ok := DefaultTargets()[r]; ok {
		return n
	}
	return 400
}

// FilterRange retains only points within [cutoff, now]. ALL has no cutoff;
// future points are dropped for every range so two reads of the same stored
// history stay deterministic.
func FilterRange(points []Point, r Range, now time.Time) []Point {
	cutoff, bounded := r.Cutoff(now)

	out := make([]Point, 0, len(points))
	for _, p := range points {
		if p.Timestamp.After(now) {
			continue
		}
		if bounded && p.Timestamp.Before(cutoff) {
			continue
		}
		out = append(out, p)
	}
	return out
}
