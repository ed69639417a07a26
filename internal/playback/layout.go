package playback

import (
	"math"

	"github.com/mattn/go-runewidth"

	"github.com/fifosk/playersync/internal/subtitle"
)

// Layout reports where a track's tokens land on screen. The driver only
// needs the top coordinate of each token's bounding box: tokens whose
// tops round to the same half-unit bucket form one visual row, which is
// the unit of horizontal arrow-key navigation.
type Layout interface {
	// TokenTops returns one top coordinate per token. A nil result means
	// the whole track renders on a single row.
	TokenTops(track subtitle.Track, tokens []string) []float64
}

// rowBuckets groups token indices into visual rows by half-unit top
// buckets, preserving token order within each row.
func rowBuckets(tops []float64, n int) [][]int {
	if len(tops) != n || n == 0 {
		// Unknown geometry: treat everything as one row.
		row := make([]int, n)
		for i := range row {
			row[i] = i
		}
		return [][]int{row}
	}

	var rows [][]int
	byBucket := make(map[int64]int)
	for i, top := range tops {
		bucket := int64(math.Round(top * 2))
		ri, ok := byBucket[bucket]
		if !ok {
			ri = len(rows)
			rows = append(rows, nil)
			byBucket[bucket] = ri
		}
		rows[ri] = append(rows[ri], i)
	}
	return rows
}

// WrapLayout computes token rows by word-wrapping tokens into a fixed
// cell width, the way the terminal viewer renders them. Token widths are
// measured in display cells so wide runes wrap correctly.
type WrapLayout struct {
	Width int
}

// TokenTops returns the wrap row of each token as its top coordinate.
func (w WrapLayout) TokenTops(_ subtitle.Track, tokens []string) []float64 {
	if w.Width <= 0 {
		return nil
	}
	tops := make([]float64, len(tokens))
	row, col := 0, 0
	for i, tok := range tokens {
		tw := runewidth.StringWidth(tok)
		if col > 0 && col+1+tw > w.Width {
			row++
			col = 0
		}
		if col > 0 {
			col++ // separating space
		}
		col += tw
		tops[i] = float64(row)
	}
	return tops
}

// singleRowLayout is the fallback when no geometry is known.
type singleRowLayout struct{}

func (singleRowLayout) TokenTops(subtitle.Track, []string) []float64 { return nil }
