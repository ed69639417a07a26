package subtitle

import (
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

const dialoguePrefix = "dialogue:"

// dialogueFieldCount is the field count of a well-formed Dialogue event:
// Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text.
// Only the first nine separators split; the Text field keeps its commas.
const dialogueFieldCount = 10

// ErrBadTimestamp is returned by ParseTimestamp for input that is not an
// ASS H:MM:SS.cc timestamp.
var ErrBadTimestamp = errors.New("malformed ASS timestamp")

// overrideTagRe matches inline ASS override blocks like {\b1} or {\an8\i1}.
var overrideTagRe = regexp.MustCompile(`\{[^}]*\}`)

// ParseASS converts a raw ASS payload into time-ordered cues. Malformed
// dialogue lines cost themselves and nothing else: the rest of the payload
// still parses. The result is sorted ascending by start time.
func ParseASS(payload string) []Cue {
	var cues []Cue
	for _, line := range strings.Split(payload, "\n") {
		trimmed := strings.TrimSpace(strings.TrimPrefix(line, "\uFEFF"))
		if len(trimmed) < len(dialoguePrefix) {
			continue
		}
		if !strings.EqualFold(trimmed[:len(dialoguePrefix)], dialoguePrefix) {
			continue
		}
		if cue, ok := parseDialogue(trimmed[len(dialoguePrefix):]); ok {
			cues = append(cues, cue)
		}
	}
	sort.SliceStable(cues, func(i, j int) bool { return cues[i].Start < cues[j].Start })
	return cues
}

// parseDialogue parses the payload of one Dialogue line (the part after
// the "Dialogue:" prefix).
func parseDialogue(rest string) (Cue, bool) {
	fields := strings.SplitN(rest, ",", dialogueFieldCount)
	if len(fields) < dialogueFieldCount {
		return Cue{}, false
	}

	start, err := ParseTimestamp(strings.TrimSpace(fields[1]))
	if err != nil {
		return Cue{}, false
	}
	end, err := ParseTimestamp(strings.TrimSpace(fields[2]))
	if err != nil {
		return Cue{}, false
	}
	if end <= start {
		return Cue{}, false
	}

	lines := parseText(fields[dialogueFieldCount-1])
	if len(lines) == 0 {
		return Cue{}, false
	}
	if len(lines) > 3 {
		log.Debug("dialogue has more than three display lines, extras dropped",
			"start", start, "lines", len(lines))
		lines = lines[:3]
	}

	cue := Cue{Start: start, End: end, Tracks: make(map[Track]Line, len(lines))}
	switch len(lines) {
	case 3:
		cue.Tracks[TrackOriginal] = lines[0]
		cue.Tracks[TrackTranslation] = lines[1]
		cue.Tracks[TrackTransliteration] = lines[2]
	case 2:
		cue.Tracks[TrackTranslation] = lines[0]
		cue.Tracks[TrackTransliteration] = lines[1]
	case 1:
		cue.Tracks[TrackTranslation] = lines[0]
	}
	return cue, true
}

// parseText splits a Dialogue text field into display lines and tokenizes
// each one. Lines that end up with no visible tokens are dropped.
func parseText(text string) []Line {
	raw := strings.Split(strings.ReplaceAll(text, `\N`, "\n"), "\n")

	var lines []Line
	for _, rl := range raw {
		line := Line{CurrentIndex: -1}
		for _, word := range strings.Fields(rl) {
			tok, current := parseToken(word)
			if tok == "" {
				continue
			}
			if current {
				line.CurrentIndex = len(line.Tokens)
			}
			line.Tokens = append(line.Tokens, tok)
		}
		if len(line.Tokens) > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}

// parseToken strips override tag blocks from one whitespace token and
// reports whether any block marked it as the currently spoken word. Soft
// breaks and hard spaces decode to plain spaces.
func parseToken(word string) (string, bool) {
	current := false
	for _, tag := range overrideTagRe.FindAllString(word, -1) {
		if strings.Contains(tag, `\b1`) {
			current = true
		}
	}
	tok := overrideTagRe.ReplaceAllString(word, "")
	tok = strings.ReplaceAll(tok, `\n`, " ")
	tok = strings.ReplaceAll(tok, `\h`, " ")
	tok = strings.ReplaceAll(tok, `\\`, `\`)
	return strings.TrimSpace(tok), current
}

// ParseTimestamp parses an ASS H:MM:SS.cc timestamp into seconds. The
// fractional part is centiseconds in standard files but some producers
// emit milliseconds; a three-digit fraction divides by 1000, anything
// shorter by 100.
func ParseTimestamp(s string) (float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, ErrBadTimestamp
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, ErrBadTimestamp
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, ErrBadTimestamp
	}

	secParts := strings.SplitN(parts[2], ".", 2)
	seconds, err := strconv.Atoi(secParts[0])
	if err != nil {
		return 0, ErrBadTimestamp
	}
	frac := 0.0
	if len(secParts) == 2 && secParts[1] != "" {
		f, err := strconv.Atoi(secParts[1])
		if err != nil {
			return 0, ErrBadTimestamp
		}
		div := 100.0
		if len(secParts[1]) >= 3 {
			div = 1000.0
		}
		frac = float64(f) / div
	}
	if hours < 0 || minutes < 0 || seconds < 0 {
		return 0, ErrBadTimestamp
	}
	return float64(hours)*3600 + float64(minutes)*60 + float64(seconds) + frac, nil
}
