package timing

import "math"

// RangeFunc adapts an arbitrary slice element to the TimeRange the search
// needs. Keeping the accessor outside the types lets the same search serve
// segments, tokens and subtitle cues.
type RangeFunc[T any] func(item T) TimeRange

// CompareTime places t relative to an interval: -1 before it, 1 after it,
// 0 inside it. Boundaries are inclusive and exact; hysteresis is the
// caller's business.
func CompareTime[T any](t float64, item T, rng RangeFunc[T]) int {
	r := rng(item)
	switch {
	case t < r.T0:
		return -1
	case t > r.T1:
		return 1
	default:
		return 0
	}
}

// DistanceTo returns 0 when t lies inside the item's interval, otherwise
// the gap to the nearer boundary.
func DistanceTo[T any](item T, t float64, rng RangeFunc[T]) float64 {
	r := rng(item)
	if t < r.T0 {
		return r.T0 - t
	}
	if t > r.T1 {
		return t - r.T1
	}
	return 0
}

// FindNearestIndex binary-searches a time-ordered slice for the interval
// containing t. When t falls in a gap between intervals the closer of the
// two straddling candidates wins. Empty input returns -1; callers are
// expected to guard on length first.
func FindNearestIndex[T any](items []T, t float64, rng RangeFunc[T]) int {
	if len(items) == 0 {
		return -1
	}

	lo, hi := 0, len(items)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch CompareTime(t, items[mid], rng) {
		case 0:
			return mid
		case -1:
			hi = mid - 1
		default:
			lo = mid + 1
		}
	}

	// t fell in a gap: hi is the last interval before t, lo the first
	// after it. Pick whichever is closer.
	if hi < 0 {
		return 0
	}
	if lo > len(items)-1 {
		return len(items) - 1
	}
	if DistanceTo(items[hi], t, rng) <= DistanceTo(items[lo], t, rng) {
		return hi
	}
	return lo
}

// segmentRange and tokenRange are the accessors the engine uses.
func segmentRange(s Segment) TimeRange { return TimeRange{T0: s.T0, T1: s.T1} }
func tokenRange(w WordToken) TimeRange { return TimeRange{T0: w.T0, T1: w.T1} }

// finite guards payload times that arrived as NaN or Inf from the wire.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
