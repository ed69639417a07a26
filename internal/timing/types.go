// Package timing resolves the currently spoken word inside a timed
// narration payload. It provides a generic nearest-interval binary search
// and a payload-aware engine that adds hysteresis and seek handling on top
// of it.
package timing

// WordToken is a single timed word. Times are in seconds; zero-width
// tokens mark silence and are legal.
type WordToken struct {
	T0   float64 `json:"t0"`
	T1   float64 `json:"t1"`
	Text string  `json:"text,omitempty"`
}

// Segment is a sentence-level span of ordered, non-overlapping tokens.
// A segment may carry no tokens at all (silence-only); search skips those.
type Segment struct {
	T0     float64     `json:"t0"`
	T1     float64     `json:"t1"`
	Tokens []WordToken `json:"tokens"`
}

// TimingPayload holds all segments for one narration resource. Segments
// are time-ordered and non-overlapping across the payload; the binary
// searches in this package depend on that ordering.
type TimingPayload struct {
	Segments []Segment `json:"segments"`
}

// Hit points at a resolved segment/token pair. Either index is -1 when
// nothing matched.
type Hit struct {
	Seg int
	Tok int
}

// NoHit is the no-match sentinel.
var NoHit = Hit{Seg: -1, Tok: -1}

// Valid reports whether the hit points at anything at all.
func (h Hit) Valid() bool {
	return h.Seg >= 0 && h.Tok >= 0
}

// Before reports whether h points at an earlier token than other.
func (h Hit) Before(other Hit) bool {
	if h.Seg != other.Seg {
		return h.Seg < other.Seg
	}
	return h.Tok < other.Tok
}

// Prev carries the previously resolved hit together with the playback time
// it was resolved at. The engine uses it for hysteresis and for telling
// playback drift apart from deliberate seeks.
type Prev struct {
	Hit  Hit
	Time float64
}

// TimeRange is the interval view the generic search operates on.
type TimeRange struct {
	T0 float64
	T1 float64
}

// Token returns the token a hit resolves to, or nil when the hit does not
// point at a real token in this payload.
func (p *TimingPayload) Token(h Hit) *WordToken {
	if p == nil || !h.Valid() || h.Seg >= len(p.Segments) {
		return nil
	}
	seg := &p.Segments[h.Seg]
	if h.Tok >= len(seg.Tokens) {
		return nil
	}
	return &seg.Tokens[h.Tok]
}
