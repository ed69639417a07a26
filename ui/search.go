package ui

import (
	"strings"

	"github.com/sahilm/fuzzy"
	"golang.org/x/text/unicode/norm"

	"github.com/fifosk/playersync/internal/subtitle"
)

// searchIndex maps every token in the cue list to its cue, so a fuzzy
// query can jump playback to the cue containing the best match. Tokens
// are NFC-normalized before matching; transliteration input often
// arrives with combining marks that would otherwise never match typed
// text.
type searchIndex struct {
	tokens []string
	cueIdx []int
}

func buildSearchIndex(cues []subtitle.Cue) searchIndex {
	var idx searchIndex
	for ci, cue := range cues {
		for _, track := range subtitle.Tracks {
			line, ok := cue.Line(track)
			if !ok {
				continue
			}
			for _, tok := range line.Tokens {
				idx.tokens = append(idx.tokens, normalize(tok))
				idx.cueIdx = append(idx.cueIdx, ci)
			}
		}
	}
	return idx
}

// find returns the cue index and matched token for the best fuzzy match.
func (idx searchIndex) find(query string) (int, string, bool) {
	query = normalize(query)
	if query == "" || len(idx.tokens) == 0 {
		return 0, "", false
	}
	matches := fuzzy.Find(query, idx.tokens)
	if len(matches) == 0 {
		return 0, "", false
	}
	best := matches[0]
	return idx.cueIdx[best.Index], idx.tokens[best.Index], true
}

func normalize(s string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(s)))
}
