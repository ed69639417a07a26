package timing

// HysteresisSec is the band around a previously resolved token inside
// which the engine keeps returning that token. The playback clock jitters
// by a frame or so around token boundaries; without the band the active
// word flickers.
const HysteresisSec = 0.024

// LargeSeekSec is the smallest clock jump treated as a deliberate seek.
// Anything smaller is assumed to be ordinary playback drift and is subject
// to the monotonic-forward guard.
const LargeSeekSec = 0.35

// IsLargeSeek reports whether the jump from prevT to t counts as a seek.
func IsLargeSeek(prevT, t float64) bool {
	d := t - prevT
	if d < 0 {
		d = -d
	}
	return d >= LargeSeekSec
}

// ClampHit forces a hit into the payload's valid range. A hit landing on a
// tokenless segment is moved to the nearest segment (by index distance)
// that has tokens, scanning forward first. NoHit comes back when the whole
// payload is tokenless.
func ClampHit(p *TimingPayload, h Hit) Hit {
	if p == nil || len(p.Segments) == 0 {
		return NoHit
	}

	seg := h.Seg
	if seg < 0 {
		seg = 0
	}
	if seg >= len(p.Segments) {
		seg = len(p.Segments) - 1
	}

	if len(p.Segments[seg].Tokens) == 0 {
		seg = nearestTokenedSegment(p, seg)
		if seg < 0 {
			return NoHit
		}
	}

	tok := h.Tok
	if tok < 0 {
		tok = 0
	}
	if n := len(p.Segments[seg].Tokens); tok >= n {
		tok = n - 1
	}
	return Hit{Seg: seg, Tok: tok}
}

// nearestTokenedSegment finds the segment with tokens closest to from by
// index distance, preferring the forward direction on ties. Returns -1
// when no segment has tokens.
func nearestTokenedSegment(p *TimingPayload, from int) int {
	n := len(p.Segments)
	for d := 1; d < n; d++ {
		if i := from + d; i < n && len(p.Segments[i].Tokens) > 0 {
			return i
		}
		if i := from - d; i >= 0 && len(p.Segments[i].Tokens) > 0 {
			return i
		}
	}
	if from >= 0 && from < n && len(p.Segments[from].Tokens) > 0 {
		return from
	}
	return -1
}

// FindNearestToken resolves the active segment/token pair for playback
// time t. The previously resolved hit, when supplied, stabilizes the
// result two ways: a hysteresis band around the last token absorbs clock
// jitter at its boundaries, and during continuous playback (no large seek
// since the last resolution) the result never regresses behind the last
// hit. A seek of LargeSeekSec or more escapes both guards.
func FindNearestToken(p *TimingPayload, t float64, last *Prev) Hit {
	if p == nil || len(p.Segments) == 0 || !finite(t) {
		return NoHit
	}

	// Fast path: still inside (or within the hysteresis band of) the
	// token we resolved last time.
	if last != nil {
		if tok := p.Token(last.Hit); tok != nil {
			if t >= tok.T0-HysteresisSec && t <= tok.T1+HysteresisSec {
				return last.Hit
			}
		}
	}

	seg := FindNearestIndex(p.Segments, t, segmentRange)
	if seg < 0 {
		return NoHit
	}
	if len(p.Segments[seg].Tokens) == 0 {
		seg = nearestTokenedBySeekDistance(p, seg, t)
		if seg < 0 {
			return NoHit
		}
	}

	tok := FindNearestIndex(p.Segments[seg].Tokens, t, tokenRange)
	if tok < 0 {
		return NoHit
	}
	hit := Hit{Seg: seg, Tok: tok}

	// Monotonic-forward guard: timing noise must not walk the highlight
	// backwards mid-playback. Only a real seek may regress.
	if last != nil && last.Hit.Valid() && !IsLargeSeek(last.Time, t) {
		if p.Token(last.Hit) != nil && hit.Before(last.Hit) {
			return last.Hit
		}
	}
	return hit
}

// nearestTokenedBySeekDistance walks outward from a tokenless segment and
// picks the tokened neighbor whose interval is closer to t in time (not in
// index distance, which is what ClampHit uses).
func nearestTokenedBySeekDistance(p *TimingPayload, from int, t float64) int {
	fwd, back := -1, -1
	for i := from + 1; i < len(p.Segments); i++ {
		if len(p.Segments[i].Tokens) > 0 {
			fwd = i
			break
		}
	}
	for i := from - 1; i >= 0; i-- {
		if len(p.Segments[i].Tokens) > 0 {
			back = i
			break
		}
	}
	switch {
	case fwd < 0:
		return back
	case back < 0:
		return fwd
	}
	if DistanceTo(p.Segments[back], t, segmentRange) <= DistanceTo(p.Segments[fwd], t, segmentRange) {
		return back
	}
	return fwd
}
