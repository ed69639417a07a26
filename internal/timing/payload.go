package timing

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// looseFloat decodes a JSON value that should be a number but might not
// be. Anything non-numeric becomes NaN instead of failing the chunk, so a
// single bad field from the alignment service costs one entry, not the
// whole payload.
type looseFloat float64

func (f *looseFloat) UnmarshalJSON(b []byte) error {
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		*f = looseFloat(math.NaN())
		return nil
	}
	*f = looseFloat(v)
	return nil
}

type rawToken struct {
	T0   *looseFloat `json:"t0"`
	T1   *looseFloat `json:"t1"`
	Text string      `json:"text"`
}

type rawSegment struct {
	T0     *looseFloat `json:"t0"`
	T1     *looseFloat `json:"t1"`
	Tokens []rawToken  `json:"tokens"`
}

type rawPayload struct {
	Segments []rawSegment `json:"segments"`
}

func num(f *looseFloat) float64 {
	if f == nil {
		return math.NaN()
	}
	return float64(*f)
}

// DecodePayload parses a timing chunk produced by the alignment service.
// Structurally broken JSON is an error; individually malformed segments
// and tokens are dropped, matching the skip-at-smallest-scope policy the
// search layer expects.
func DecodePayload(data []byte) (*TimingPayload, error) {
	var raw rawPayload
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode timing payload: %w", err)
	}

	p := &TimingPayload{Segments: make([]Segment, 0, len(raw.Segments))}
	for _, rs := range raw.Segments {
		t0, t1 := num(rs.T0), num(rs.T1)
		if !finite(t0) || !finite(t1) || t1 < t0 {
			continue
		}
		seg := Segment{T0: t0, T1: t1}
		for _, rt := range rs.Tokens {
			w0, w1 := num(rt.T0), num(rt.T1)
			if !finite(w0) || !finite(w1) || w1 < w0 {
				continue
			}
			seg.Tokens = append(seg.Tokens, WordToken{T0: w0, T1: w1, Text: rt.Text})
		}
		p.Segments = append(p.Segments, seg)
	}
	return p, nil
}

// Merge combines chunked payloads into one, restoring the global segment
// ordering the search layer depends on. Nil parts are skipped.
func Merge(parts ...*TimingPayload) *TimingPayload {
	merged := &TimingPayload{}
	for _, p := range parts {
		if p == nil {
			continue
		}
		merged.Segments = append(merged.Segments, p.Segments...)
	}
	sort.SliceStable(merged.Segments, func(i, j int) bool {
		return merged.Segments[i].T0 < merged.Segments[j].T0
	})
	return merged
}
