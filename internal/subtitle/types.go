// Package subtitle parses ASS/SSA subtitle payloads into binary-searchable
// cue arrays. Only Dialogue event lines are consumed; everything else in
// the file (script info, styles, format headers) is ignored.
package subtitle

// Track identifies one of the up to three parallel renderings of a cue.
// The numeric order is also the fixed render order.
type Track int

const (
	// TrackOriginal is the source-language text.
	TrackOriginal Track = iota
	// TrackTranslation is the target-language text.
	TrackTranslation
	// TrackTransliteration is the romanized/phonetic rendering.
	TrackTransliteration
)

// Tracks lists all tracks in render order.
var Tracks = []Track{TrackOriginal, TrackTranslation, TrackTransliteration}

// String returns the track name.
func (t Track) String() string {
	switch t {
	case TrackOriginal:
		return "original"
	case TrackTranslation:
		return "translation"
	case TrackTransliteration:
		return "transliteration"
	default:
		return "unknown"
	}
}

// Line is one track's rendering of a cue: ordered display tokens plus the
// index the styling marked as currently spoken. CurrentIndex is -1 when no
// token carries the marker.
type Line struct {
	Tokens       []string
	CurrentIndex int
}

// Cue is a time interval [Start, End) carrying up to three parallel
// tracks. Cues returned by ParseASS are sorted ascending by Start and
// always satisfy End > Start.
type Cue struct {
	Start  float64
	End    float64
	Tracks map[Track]Line
}

// Line returns the cue's line for a track and whether it exists.
func (c *Cue) Line(t Track) (Line, bool) {
	l, ok := c.Tracks[t]
	return l, ok
}
