// Package ui is the terminal viewer for synchronized narration
// subtitles: it renders the active cue's tracks with word-level
// highlighting and forwards navigation keys to the playback driver.
package ui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/muesli/reflow/truncate"

	"github.com/fifosk/playersync/internal/playback"
	"github.com/fifosk/playersync/internal/subtitle"
	"github.com/fifosk/playersync/internal/timing"
)

const (
	statusMessageTimeout = 3 * time.Second
	trackLabelWidth      = 16
)

type (
	frameMsg         struct{ t float64 }
	fileChangedMsg   struct{}
	statusTimeoutMsg struct{ seq int }
)

// Model is the viewer's bubbletea model.
type Model struct {
	cfg    Config
	styles styleSet

	clock  playback.Transport
	driver *playback.Driver
	cues   []subtitle.Cue

	payload *timing.TimingPayload
	lastHit *timing.Prev

	index searchIndex

	width  int
	height int

	searching bool
	search    textinput.Model

	status    string
	statusSeq int
}

func newModel(cfg Config, clock playback.Transport, cues []subtitle.Cue, payload *timing.TimingPayload) Model {
	driver := playback.NewDriver(clock)
	driver.SetCues(cues)
	driver.SetVisible(subtitle.TrackOriginal, cfg.ShowOriginal)
	driver.SetVisible(subtitle.TrackTranslation, cfg.ShowTranslation)
	driver.SetVisible(subtitle.TrackTransliteration, cfg.ShowTransliteration)

	search := textinput.New()
	search.Prompt = "/"
	search.Placeholder = "find word"

	return Model{
		cfg:     cfg,
		styles:  newStyles(),
		clock:   clock,
		driver:  driver,
		cues:    cues,
		payload: payload,
		index:   buildSearchIndex(cues),
		search:  search,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.driver.SetLayout(playback.WrapLayout{Width: m.tokenWidth()})
		return m, nil

	case frameMsg:
		m.driver.Tick(msg.t)
		if m.payload != nil {
			hit := timing.FindNearestToken(m.payload, msg.t, m.lastHit)
			m.lastHit = &timing.Prev{Hit: hit, Time: msg.t}
		}
		return m, nil

	case fileChangedMsg:
		return m.reload()

	case statusTimeoutMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case " ":
		if m.clock.Paused() {
			m.driver.ClearSelection()
			m.clock.Play()
		} else {
			m.clock.Pause()
		}
		return m, nil

	case "left", "h":
		m.driver.MoveLeft()
	case "right", "l":
		m.driver.MoveRight()
	case "up", "k":
		m.driver.MoveUp()
	case "down", "j":
		m.driver.MoveDown()

	case "1":
		m.cfg.ShowOriginal = !m.cfg.ShowOriginal
		m.driver.SetVisible(subtitle.TrackOriginal, m.cfg.ShowOriginal)
	case "2":
		m.cfg.ShowTranslation = !m.cfg.ShowTranslation
		m.driver.SetVisible(subtitle.TrackTranslation, m.cfg.ShowTranslation)
	case "3":
		m.cfg.ShowTransliteration = !m.cfg.ShowTransliteration
		m.driver.SetVisible(subtitle.TrackTransliteration, m.cfg.ShowTransliteration)

	case "c":
		return m.copySelection()

	case "r":
		return m.reload()

	case "/":
		m.searching = true
		m.search.SetValue("")
		return m, m.search.Focus()
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.search.Blur()
		return m, nil

	case "enter":
		m.searching = false
		m.search.Blur()
		query := m.search.Value()
		cueIdx, token, ok := m.index.find(query)
		if !ok {
			return m.setStatus(fmt.Sprintf("no match for %q", query))
		}
		start := m.cues[cueIdx].Start + 0.001
		m.clock.Seek(start)
		m.driver.Tick(start)
		return m.setStatus(fmt.Sprintf("jumped to %q at %s", token, formatTime(start)))
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) copySelection() (tea.Model, tea.Cmd) {
	text, ok := m.selectionText()
	if !ok {
		return m.setStatus("nothing to copy")
	}
	if err := clipboard.WriteAll(text); err != nil {
		log.Debug("clipboard write failed", "err", err)
		return m.setStatus("clipboard unavailable")
	}
	return m.setStatus(fmt.Sprintf("copied %q", text))
}

// selectionText returns the manually selected token, or the active cue's
// preferred line when nothing is selected.
func (m Model) selectionText() (string, bool) {
	cue, ok := m.driver.ActiveCue()
	if !ok {
		return "", false
	}
	if sel, ok := m.driver.Selection(); ok {
		if line, ok := cue.Line(sel.Track); ok && sel.Index < len(line.Tokens) {
			return line.Tokens[sel.Index], true
		}
	}
	for _, track := range []subtitle.Track{
		subtitle.TrackTranslation, subtitle.TrackTransliteration, subtitle.TrackOriginal,
	} {
		if line, ok := cue.Line(track); ok && len(line.Tokens) > 0 {
			return strings.Join(line.Tokens, " "), true
		}
	}
	return "", false
}

func (m Model) reload() (tea.Model, tea.Cmd) {
	data, err := os.ReadFile(m.cfg.SubtitlePath)
	if err != nil {
		log.Debug("subtitle reload failed", "path", m.cfg.SubtitlePath, "err", err)
		return m.setStatus("reload failed")
	}
	m.cues = subtitle.ParseASS(string(data))
	m.driver.SetCues(m.cues)
	m.driver.Tick(m.clock.Now())
	m.index = buildSearchIndex(m.cues)
	return m.setStatus(fmt.Sprintf("reloaded %s cues", humanize.Comma(int64(len(m.cues)))))
}

func (m Model) setStatus(s string) (tea.Model, tea.Cmd) {
	m.status = s
	m.statusSeq++
	seq := m.statusSeq
	return m, tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusTimeoutMsg{seq: seq}
	})
}

func (m Model) tokenWidth() int {
	w := m.width - trackLabelWidth - 2
	if w < 10 {
		w = 10
	}
	return w
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderTracks())
	b.WriteString("\n")
	if m.searching {
		b.WriteString(m.styles.searchBox.Render(m.search.View()))
		b.WriteString("\n")
	}
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m Model) renderTracks() string {
	views := m.driver.View()
	if len(views) == 0 {
		return m.styles.empty.Render("(no active cue)")
	}

	layout := playback.WrapLayout{Width: m.tokenWidth()}
	var parts []string
	for _, view := range views {
		label := m.styles.trackLabel.Render(view.Track.String())
		rows := m.renderTokenRows(view, layout)
		for i, row := range rows {
			if i == 0 {
				parts = append(parts, label+row)
			} else {
				parts = append(parts, strings.Repeat(" ", trackLabelWidth)+row)
			}
		}
	}
	return strings.Join(parts, "\n")
}

// renderTokenRows styles each token by state and lays the tokens out on
// the same wrap rows the driver navigates.
func (m Model) renderTokenRows(view playback.TrackView, layout playback.Layout) []string {
	tops := layout.TokenTops(view.Track, view.Tokens)
	var rows []string
	var row strings.Builder
	lastTop := 0.0
	for i, tok := range view.Tokens {
		top := 0.0
		if i < len(tops) {
			top = tops[i]
		}
		if i > 0 {
			if top != lastTop {
				rows = append(rows, row.String())
				row.Reset()
			} else {
				row.WriteString(" ")
			}
		}
		row.WriteString(m.styleFor(view.States[i]).Render(tok))
		lastTop = top
	}
	rows = append(rows, row.String())
	return rows
}

func (m Model) styleFor(state playback.TokenState) interface{ Render(...string) string } {
	switch state {
	case playback.TokenPast:
		return m.styles.past
	case playback.TokenCurrent:
		return m.styles.current
	case playback.TokenSelected:
		return m.styles.selected
	case playback.TokenShadow:
		return m.styles.shadow
	default:
		return m.styles.plain
	}
}

func (m Model) renderStatusBar() string {
	state := "PLAYING"
	if m.clock.Paused() {
		state = "PAUSED"
	}

	cueInfo := "-"
	if idx := m.driver.ActiveCueIndex(); idx >= 0 {
		cueInfo = fmt.Sprintf("%d/%d", idx+1, len(m.cues))
	}

	word := ""
	if m.payload != nil && m.lastHit != nil {
		if tok := m.payload.Token(m.lastHit.Hit); tok != nil && tok.Text != "" {
			word = " · word: " + tok.Text
		}
	}

	line := fmt.Sprintf(" %s · %s · cue %s · %s cues%s",
		state, formatTime(m.clock.Now()), cueInfo,
		humanize.Comma(int64(len(m.cues))), word)
	if m.status != "" {
		line += " · " + m.styles.statusNote.Render(m.status)
	}
	if m.width > 0 {
		line = truncate.StringWithTail(line, uint(m.width), "…")
	}
	return m.styles.statusBar.Render(line)
}

func formatTime(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	return d.Truncate(10 * time.Millisecond).String()
}

// Run loads the configured resources and runs the viewer until quit. The
// frame scheduler and the optional file watcher feed the program from
// their own goroutines.
func Run(cfg Config) error {
	data, err := os.ReadFile(cfg.SubtitlePath)
	if err != nil {
		return fmt.Errorf("read subtitle file: %w", err)
	}
	cues := subtitle.ParseASS(string(data))
	log.Debug("parsed subtitles", "path", cfg.SubtitlePath, "cues", len(cues))

	var payload *timing.TimingPayload
	if cfg.TimingPath != "" {
		payload, err = loadTiming(cfg.TimingPath)
		if err != nil {
			return err
		}
		log.Debug("decoded timing payload", "segments", len(payload.Segments))
	}

	clock, closer, err := openClock(cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer()
	}

	m := newModel(cfg, clock, cues, payload)
	p := tea.NewProgram(m, tea.WithAltScreen())

	sched := playback.NewScheduler(clock, cfg.FrameRate)
	sched.OnFrame(func(t float64) { p.Send(frameMsg{t: t}) })
	sched.Start()
	defer sched.Stop()

	if cfg.Watch {
		stop, err := watchFile(cfg.SubtitlePath, func() { p.Send(fileChangedMsg{}) })
		if err != nil {
			log.Debug("file watch unavailable", "err", err)
		} else {
			defer stop()
		}
	}

	_, err = p.Run()
	return err
}

// watchFile invokes onChange whenever path is written. Returns a stop
// function.
func watchFile(path string, onChange func()) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Debug("file watcher error", "err", err)
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
