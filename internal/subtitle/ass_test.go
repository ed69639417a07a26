package subtitle

import (
	"math"
	"testing"
)

const dialogueHead = "Dialogue: 0,0:00:01.00,0:00:03.00,Default,,0,0,0,,"

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    float64
		wantErr bool
	}{
		{"centiseconds", "0:00:01.50", 1.5, false},
		{"milliseconds", "0:00:01.500", 1.5, false},
		{"hours and minutes", "1:02:03.04", 3723.04, false},
		{"no fraction", "0:00:05", 5, false},
		{"empty fraction", "0:00:05.", 5, false},
		{"two fields", "00:01.00", 0, true},
		{"non-numeric", "0:aa:01.00", 0, true},
		{"garbage", "hello", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimestamp(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !almost(got, tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseASSTwoLineCue(t *testing.T) {
	payload := dialogueHead + `Hello {\b1}world{\b0}\NBonjour {\b1}monde{\b0}`

	cues := ParseASS(payload)
	if len(cues) != 1 {
		t.Fatalf("cues = %d, want 1", len(cues))
	}
	cue := cues[0]
	if !almost(cue.Start, 1.0) || !almost(cue.End, 3.0) {
		t.Errorf("cue interval = [%v, %v), want [1, 3)", cue.Start, cue.End)
	}

	// Two display lines map to translation + transliteration.
	if _, ok := cue.Tracks[TrackOriginal]; ok {
		t.Error("two-line cue must not populate the original track")
	}
	tr, ok := cue.Tracks[TrackTranslation]
	if !ok {
		t.Fatal("translation track missing")
	}
	if len(tr.Tokens) != 2 || tr.Tokens[0] != "Hello" || tr.Tokens[1] != "world" {
		t.Errorf("translation tokens = %v, want [Hello world]", tr.Tokens)
	}
	if tr.CurrentIndex != 1 {
		t.Errorf("translation current index = %d, want 1", tr.CurrentIndex)
	}
	tl, ok := cue.Tracks[TrackTransliteration]
	if !ok {
		t.Fatal("transliteration track missing")
	}
	if len(tl.Tokens) != 2 || tl.Tokens[0] != "Bonjour" || tl.Tokens[1] != "monde" {
		t.Errorf("transliteration tokens = %v, want [Bonjour monde]", tl.Tokens)
	}
	if tl.CurrentIndex != 1 {
		t.Errorf("transliteration current index = %d, want 1", tl.CurrentIndex)
	}
}

func TestParseASSTrackAssignment(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  []Track
		empty bool
	}{
		{"three lines", `uno\Ndos\Ntres`, []Track{TrackOriginal, TrackTranslation, TrackTransliteration}, false},
		{"two lines", `dos\Ntres`, []Track{TrackTranslation, TrackTransliteration}, false},
		{"one line", `solo`, []Track{TrackTranslation}, false},
		{"tag-only text yields no cue", `{\an8}`, nil, true},
		{"four lines keep first three", `a\Nb\Nc\Nd`, []Track{TrackOriginal, TrackTranslation, TrackTransliteration}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cues := ParseASS(dialogueHead + tt.text)
			if tt.empty {
				if len(cues) != 0 {
					t.Fatalf("cues = %d, want 0", len(cues))
				}
				return
			}
			if len(cues) != 1 {
				t.Fatalf("cues = %d, want 1", len(cues))
			}
			if got := len(cues[0].Tracks); got != len(tt.want) {
				t.Fatalf("tracks = %d, want %d", got, len(tt.want))
			}
			for _, track := range tt.want {
				line, ok := cues[0].Tracks[track]
				if !ok {
					t.Errorf("track %s missing", track)
					continue
				}
				if len(line.Tokens) < 1 {
					t.Errorf("track %s has no tokens", track)
				}
			}
		})
	}
}

func TestParseASSDiscardsMalformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"too few fields", "Dialogue: 0,0:00:01.00,0:00:03.00,Default,text"},
		{"end before start", "Dialogue: 0,0:00:03.00,0:00:01.00,Default,,0,0,0,,text"},
		{"end equals start", "Dialogue: 0,0:00:01.00,0:00:01.00,Default,,0,0,0,,text"},
		{"bad start timestamp", "Dialogue: 0,xx,0:00:03.00,Default,,0,0,0,,text"},
		{"not a dialogue line", "Comment: 0,0:00:01.00,0:00:03.00,Default,,0,0,0,,text"},
		{"style header", "Style: Default,Arial,48"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if cues := ParseASS(tt.line); len(cues) != 0 {
				t.Errorf("cues = %d, want 0", len(cues))
			}
		})
	}
}

func TestParseASSSkipsBadLinesKeepsGood(t *testing.T) {
	payload := "garbage line\n" +
		"Dialogue: broken\n" +
		dialogueHead + "good cue\n" +
		"[Events]\n"
	cues := ParseASS(payload)
	if len(cues) != 1 {
		t.Fatalf("cues = %d, want 1", len(cues))
	}
	if got := cues[0].Tracks[TrackTranslation].Tokens; len(got) != 2 {
		t.Errorf("tokens = %v, want [good cue]", got)
	}
}

func TestParseASSSortsByStart(t *testing.T) {
	payload := "Dialogue: 0,0:00:10.00,0:00:12.00,Default,,0,0,0,,later\n" +
		"Dialogue: 0,0:00:01.00,0:00:03.00,Default,,0,0,0,,earlier\n"
	cues := ParseASS(payload)
	if len(cues) != 2 {
		t.Fatalf("cues = %d, want 2", len(cues))
	}
	if cues[0].Start > cues[1].Start {
		t.Errorf("cues not sorted: %v then %v", cues[0].Start, cues[1].Start)
	}
}

func TestParseASSCaseInsensitivePrefix(t *testing.T) {
	cues := ParseASS("dialogue: 0,0:00:01.00,0:00:03.00,Default,,0,0,0,,lower prefix")
	if len(cues) != 1 {
		t.Fatalf("cues = %d, want 1", len(cues))
	}
}

func TestParseASSStripsBOM(t *testing.T) {
	cues := ParseASS("\uFEFF" + dialogueHead + "leading byte order mark")
	if len(cues) != 1 {
		t.Fatalf("cues = %d, want 1", len(cues))
	}
	line, ok := cues[0].Line(TrackTranslation)
	if !ok {
		t.Fatal("translation track missing")
	}
	if len(line.Tokens) != 4 {
		t.Errorf("tokens = %d, want 4", len(line.Tokens))
	}
}

func TestParseTokenEscapes(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		want        string
		wantCurrent bool
	}{
		{"bold marker", `{\b1}word{\b0}`, "word", true},
		{"plain word", "word", "word", false},
		{"bold off only", `{\b0}word`, "word", false},
		{"positioning tag kept out", `{\an8}top`, "top", false},
		{"hard space", `a\hb`, "a b", false},
		{"escaped backslash", `a\\b`, `a\b`, false},
		{"bold among several tags", `{\i1}{\b1}word`, "word", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, current := parseToken(tt.in)
			if got != tt.want || current != tt.wantCurrent {
				t.Errorf("parseToken(%q) = (%q, %v), want (%q, %v)",
					tt.in, got, current, tt.want, tt.wantCurrent)
			}
		})
	}
}

func TestParseASSCommaInText(t *testing.T) {
	cues := ParseASS(dialogueHead + "one, two, three")
	if len(cues) != 1 {
		t.Fatalf("cues = %d, want 1", len(cues))
	}
	toks := cues[0].Tracks[TrackTranslation].Tokens
	if len(toks) != 3 || toks[0] != "one," {
		t.Errorf("tokens = %v, want the text field's commas preserved", toks)
	}
}

func TestParseASSNoCurrentMarker(t *testing.T) {
	cues := ParseASS(dialogueHead + "plain words here")
	if len(cues) != 1 {
		t.Fatalf("cues = %d, want 1", len(cues))
	}
	if got := cues[0].Tracks[TrackTranslation].CurrentIndex; got != -1 {
		t.Errorf("current index = %d, want -1", got)
	}
}
