package playback

import (
	"sort"
	"sync"

	"github.com/fifosk/playersync/internal/subtitle"
)

// cueSeekNudge lands seeks just past a cue's start so the landing time is
// unambiguously inside the cue rather than on the boundary.
const cueSeekNudge = 0.001

// TokenState classifies a token for rendering.
type TokenState int

const (
	// TokenPlain is an unhighlighted token.
	TokenPlain TokenState = iota
	// TokenPast was already spoken in the active cue.
	TokenPast
	// TokenCurrent is the token being spoken now.
	TokenCurrent
	// TokenSelected is the manually selected token.
	TokenSelected
	// TokenShadow mirrors the highlight of an aligned sibling track.
	TokenShadow
)

// Selection points at a manually chosen token.
type Selection struct {
	Track subtitle.Track
	Index int
}

// TrackView is one visible track of the active cue, ready to render.
type TrackView struct {
	Track  subtitle.Track
	Tokens []string
	States []TokenState
}

// Driver owns the active-cue/active-token state machine. Playback drives
// it through Tick; the UI layer drives it through the navigation methods.
// All methods are safe for concurrent use, since frame ticks arrive on
// the scheduler goroutine while key events arrive on the UI loop.
type Driver struct {
	mu sync.Mutex

	cues    []subtitle.Cue
	clock   Clock
	layout  Layout
	visible map[subtitle.Track]bool

	// activeIdx caches the last resolved cue so the per-frame lookup is
	// usually O(1). -1 means no cue contains the clock time.
	activeIdx int

	// sel is the manual selection, meaningful only while paused.
	sel *Selection
}

// NewDriver creates a driver over a clock. All tracks start visible and
// the layout assumes a single visual row until SetLayout is called.
func NewDriver(clock Clock) *Driver {
	return &Driver{
		clock:     clock,
		layout:    singleRowLayout{},
		activeIdx: -1,
		visible: map[subtitle.Track]bool{
			subtitle.TrackOriginal:        true,
			subtitle.TrackTranslation:     true,
			subtitle.TrackTransliteration: true,
		},
	}
}

// SetCues replaces the cue array. Cues must already be sorted by start
// (ParseASS guarantees this). Active state resets.
func (d *Driver) SetCues(cues []subtitle.Cue) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cues = cues
	d.activeIdx = -1
	d.sel = nil
}

// SetLayout installs the geometry source for row-aware navigation.
func (d *Driver) SetLayout(layout Layout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if layout == nil {
		layout = singleRowLayout{}
	}
	d.layout = layout
}

// SetVisible toggles a track's visibility.
func (d *Driver) SetVisible(track subtitle.Track, visible bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.visible[track] = visible
	if d.sel != nil && !visible && d.sel.Track == track {
		d.sel = nil
	}
}

// Tick resolves the active cue for playback time t. Called every frame
// while playing. A cue change drops any manual selection.
func (d *Driver) Tick(t float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev := d.activeIdx
	d.activeIdx = d.resolveLocked(t)
	if d.activeIdx != prev {
		d.sel = nil
	}
}

// ActiveCueIndex returns the current cue index, -1 when none.
func (d *Driver) ActiveCueIndex() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.activeIdx
}

// ActiveCue returns a copy of the active cue.
func (d *Driver) ActiveCue() (subtitle.Cue, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.activeIdx < 0 || d.activeIdx >= len(d.cues) {
		return subtitle.Cue{}, false
	}
	return d.cues[d.activeIdx], true
}

// resolveLocked finds the cue containing t. Fast path: the cached cue
// still contains t, or its immediate successor does (the common case of
// playback rolling over a boundary). Otherwise binary search. Unlike
// word-level timing there is no hysteresis band: cue boundaries are
// deliberate cut points.
func (d *Driver) resolveLocked(t float64) int {
	if idx := d.activeIdx; idx >= 0 && idx < len(d.cues) {
		if cueContains(d.cues[idx], t) {
			return idx
		}
		if idx+1 < len(d.cues) && cueContains(d.cues[idx+1], t) {
			return idx + 1
		}
	}
	return searchCue(d.cues, t)
}

// searchCue binary-searches sorted cues for the one containing t, with
// [start, end) containment. Returns -1 when t is outside every cue.
func searchCue(cues []subtitle.Cue, t float64) int {
	// First cue starting after t; the candidate is the one before it.
	i := sort.Search(len(cues), func(i int) bool { return cues[i].Start > t })
	if i == 0 {
		return -1
	}
	if cueContains(cues[i-1], t) {
		return i - 1
	}
	return -1
}

func cueContains(c subtitle.Cue, t float64) bool {
	return t >= c.Start && t < c.End
}

// visibleTracksLocked lists tracks that are toggled visible and have at
// least one token in the active cue, in fixed render order.
func (d *Driver) visibleTracksLocked() []subtitle.Track {
	if d.activeIdx < 0 || d.activeIdx >= len(d.cues) {
		return nil
	}
	cue := d.cues[d.activeIdx]
	var out []subtitle.Track
	for _, track := range subtitle.Tracks {
		if !d.visible[track] {
			continue
		}
		if line, ok := cue.Line(track); ok && len(line.Tokens) > 0 {
			out = append(out, track)
		}
	}
	return out
}

// VisibleTracks returns the displayable tracks of the active cue.
func (d *Driver) VisibleTracks() []subtitle.Track {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visibleTracksLocked()
}

// Selection returns the manual selection, if any.
func (d *Driver) Selection() (Selection, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sel == nil {
		return Selection{}, false
	}
	return *d.sel, true
}

// Select sets the manual selection, clamping the index into the track's
// token range. Selecting an invisible or empty track is a no-op.
func (d *Driver) Select(track subtitle.Track, index int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	line, ok := d.lineLocked(track)
	if !ok || !d.visible[track] {
		return
	}
	d.sel = &Selection{Track: track, Index: clampIndex(index, len(line.Tokens))}
}

// ClearSelection drops the manual selection (e.g. when playback resumes).
func (d *Driver) ClearSelection() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sel = nil
}

// lineLocked returns the active cue's line for a track.
func (d *Driver) lineLocked(track subtitle.Track) (subtitle.Line, bool) {
	if d.activeIdx < 0 || d.activeIdx >= len(d.cues) {
		return subtitle.Line{}, false
	}
	line, ok := d.cues[d.activeIdx].Line(track)
	if !ok || len(line.Tokens) == 0 {
		return subtitle.Line{}, false
	}
	return line, true
}

// ensureSelectionLocked materializes the default selection when none
// exists: the first of translation, transliteration, original that is
// displayable, starting at its current playback token.
func (d *Driver) ensureSelectionLocked() bool {
	if d.sel != nil {
		return true
	}
	for _, track := range []subtitle.Track{
		subtitle.TrackTranslation,
		subtitle.TrackTransliteration,
		subtitle.TrackOriginal,
	} {
		if !d.visible[track] {
			continue
		}
		if line, ok := d.lineLocked(track); ok {
			d.sel = &Selection{
				Track: track,
				Index: clampIndex(line.CurrentIndex, len(line.Tokens)),
			}
			return true
		}
	}
	return false
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// MoveLeft moves the selection left within its visual row, wrapping at
// the row's ends. While playing it instead seeks to the previous cue.
func (d *Driver) MoveLeft() {
	if !d.clock.Paused() {
		d.SeekAdjacentCue(-1)
		return
	}
	d.moveHorizontal(-1)
}

// MoveRight mirrors MoveLeft in the other direction.
func (d *Driver) MoveRight() {
	if !d.clock.Paused() {
		d.SeekAdjacentCue(+1)
		return
	}
	d.moveHorizontal(+1)
}

func (d *Driver) moveHorizontal(delta int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.ensureSelectionLocked() {
		return
	}
	line, ok := d.lineLocked(d.sel.Track)
	if !ok {
		d.sel = nil
		return
	}

	tops := d.layout.TokenTops(d.sel.Track, line.Tokens)
	rows := rowBuckets(tops, len(line.Tokens))
	row := rowOf(rows, d.sel.Index)
	if row < 0 {
		d.sel.Index = clampIndex(d.sel.Index, len(line.Tokens))
		return
	}

	cur := rows[row]
	pos := posIn(cur, d.sel.Index)
	pos = (pos + delta + len(cur)) % len(cur)
	d.sel.Index = cur[pos]
}

// MoveUp moves the selection to the same token index in the previous
// visible track in render order. No wraparound at the ends.
func (d *Driver) MoveUp() {
	d.moveVertical(-1)
}

// MoveDown mirrors MoveUp downward.
func (d *Driver) MoveDown() {
	d.moveVertical(+1)
}

func (d *Driver) moveVertical(delta int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.ensureSelectionLocked() {
		return
	}
	tracks := d.visibleTracksLocked()
	cur := -1
	for i, track := range tracks {
		if track == d.sel.Track {
			cur = i
			break
		}
	}
	if cur < 0 {
		return
	}
	next := cur + delta
	if next < 0 || next >= len(tracks) {
		return
	}
	line, ok := d.lineLocked(tracks[next])
	if !ok {
		return
	}
	d.sel = &Selection{Track: tracks[next], Index: clampIndex(d.sel.Index, len(line.Tokens))}
}

func rowOf(rows [][]int, index int) int {
	for ri, row := range rows {
		for _, i := range row {
			if i == index {
				return ri
			}
		}
	}
	return -1
}

func posIn(row []int, index int) int {
	for p, i := range row {
		if i == index {
			return p
		}
	}
	return 0
}

// SeekAdjacentCue jumps the playback clock to the start of the previous
// (dir < 0) or next (dir > 0) cue, landing a millisecond past the start
// so the boundary is unambiguous. No-op when there is no such cue.
func (d *Driver) SeekAdjacentCue(dir int) {
	d.mu.Lock()
	t := d.clock.Now()
	target := -1
	idx := d.resolveLocked(t)
	switch {
	case idx >= 0:
		target = idx + sign(dir)
	case dir > 0:
		// Between cues: the first cue starting after t.
		target = sort.Search(len(d.cues), func(i int) bool { return d.cues[i].Start > t })
	default:
		// Between cues: the last cue ending before t.
		target = sort.Search(len(d.cues), func(i int) bool { return d.cues[i].Start > t }) - 1
	}
	if target < 0 || target >= len(d.cues) {
		d.mu.Unlock()
		return
	}
	start := d.cues[target].Start
	d.mu.Unlock()

	d.clock.Seek(start + cueSeekNudge)
	d.Tick(start + cueSeekNudge)
}

func sign(d int) int {
	if d < 0 {
		return -1
	}
	return 1
}

// View renders the active cue's visible tracks with per-token states:
// past/current during playback, selection plus shadow while paused. The
// shadow linkage only applies when translation and transliteration carry
// the same token count, which signals 1:1 alignment.
func (d *Driver) View() []TrackView {
	d.mu.Lock()
	defer d.mu.Unlock()

	tracks := d.visibleTracksLocked()
	if len(tracks) == 0 {
		return nil
	}
	cue := d.cues[d.activeIdx]
	paused := d.clock.Paused()
	aligned := tracksAligned(cue)

	views := make([]TrackView, 0, len(tracks))
	for _, track := range tracks {
		line, _ := cue.Line(track)
		view := TrackView{
			Track:  track,
			Tokens: line.Tokens,
			States: make([]TokenState, len(line.Tokens)),
		}

		if paused && d.sel != nil {
			if d.sel.Track == track {
				view.States[clampIndex(d.sel.Index, len(line.Tokens))] = TokenSelected
			} else if aligned && isAlignedPair(d.sel.Track, track) {
				if d.sel.Index < len(line.Tokens) {
					view.States[d.sel.Index] = TokenShadow
				}
			}
		} else {
			d.markPlaybackStates(cue, track, line, view.States, aligned)
		}
		views = append(views, view)
	}
	return views
}

// markPlaybackStates fills past/current highlighting from the parser's
// current-token markers, borrowing the aligned sibling's marker as a
// shadow when this track has none.
func (d *Driver) markPlaybackStates(cue subtitle.Cue, track subtitle.Track, line subtitle.Line, states []TokenState, aligned bool) {
	cur := line.CurrentIndex
	if cur >= 0 && cur < len(states) {
		states[cur] = TokenCurrent
		for i := 0; i < cur; i++ {
			states[i] = TokenPast
		}
		return
	}
	if !aligned || !isAlignedTrack(track) {
		return
	}
	other := alignedSibling(track)
	if sib, ok := cue.Line(other); ok {
		if sib.CurrentIndex >= 0 && sib.CurrentIndex < len(states) {
			states[sib.CurrentIndex] = TokenShadow
		}
	}
}

func isAlignedTrack(t subtitle.Track) bool {
	return t == subtitle.TrackTranslation || t == subtitle.TrackTransliteration
}

func isAlignedPair(a, b subtitle.Track) bool {
	return isAlignedTrack(a) && isAlignedTrack(b) && a != b
}

func alignedSibling(t subtitle.Track) subtitle.Track {
	if t == subtitle.TrackTranslation {
		return subtitle.TrackTransliteration
	}
	return subtitle.TrackTranslation
}

// tracksAligned reports whether translation and transliteration exist
// with equal token counts in this cue.
func tracksAligned(cue subtitle.Cue) bool {
	tr, okTr := cue.Line(subtitle.TrackTranslation)
	tl, okTl := cue.Line(subtitle.TrackTransliteration)
	return okTr && okTl && len(tr.Tokens) > 0 && len(tr.Tokens) == len(tl.Tokens)
}
