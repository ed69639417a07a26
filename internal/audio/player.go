package audio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
)

// trackedReader wraps the PCM reader and tracks the consumed offset.
// The device's playback goroutine reads from it concurrently with the
// UI thread asking for the position, so both go through the lock and
// the position is published atomically.
type trackedReader struct {
	mu       sync.Mutex
	reader   *bytes.Reader
	position atomic.Int64
}

func newTrackedReader(data []byte) *trackedReader {
	return &trackedReader{reader: bytes.NewReader(data)}
}

func (r *trackedReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.reader.Read(p)
	if n > 0 {
		r.position.Add(int64(n))
	}
	return n, err
}

func (r *trackedReader) Seek(offset int64, whence int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, err := r.reader.Seek(offset, whence)
	if err == nil {
		r.position.Store(pos)
	}
	return pos, err
}

// Position returns the number of PCM bytes handed to the device so far.
func (r *trackedReader) Position() int64 {
	return r.position.Load()
}

// Player plays one decoded WAV clip through the system audio device and
// implements the playback.Clock interface: Now, Paused, Seek. Position is
// derived from how much PCM the device consumed, minus what still sits in
// its buffer, so the reported time matches the audible output closely
// enough for word-level highlighting.
type Player struct {
	mu     sync.Mutex
	ctx    *oto.Context
	player *oto.Player
	src    *trackedReader
	info   *wavInfo
	paused bool
}

// Open loads a WAV file and prepares a paused player for it.
func Open(path string) (*Player, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}
	return NewPlayer(data)
}

// NewPlayer prepares a paused player over raw WAV bytes.
func NewPlayer(data []byte) (*Player, error) {
	info, err := decodeWAV(data)
	if err != nil {
		return nil, err
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   info.sampleRate,
		ChannelCount: info.channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   50 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("create audio context: %w", err)
	}
	<-ready

	src := newTrackedReader(info.pcm)
	return &Player{
		ctx:    ctx,
		player: ctx.NewPlayer(src),
		src:    src,
		info:   info,
		paused: true,
	}, nil
}

// Now returns the audible playback position in seconds.
func (p *Player) Now() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	read := p.src.Position()
	pending := int64(p.player.BufferedSize())
	pos := read - pending
	if pos < 0 {
		pos = 0
	}
	return float64(pos) / float64(p.info.bytesPerSecond())
}

// Paused reports whether playback is suspended or finished.
func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused || !p.player.IsPlaying()
}

// Seek moves the playback position, aligned to a whole frame.
func (p *Player) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if seconds < 0 {
		seconds = 0
	}
	if d := p.info.duration(); seconds > d {
		seconds = d
	}
	frame := int64(bytesPerSample * p.info.channels)
	offset := int64(seconds*float64(p.info.bytesPerSecond())) / frame * frame
	if _, err := p.player.Seek(offset, io.SeekStart); err != nil {
		// Device-level seek failures leave the position unchanged; the
		// sync driver handles a stale clock gracefully.
		return
	}
}

// Play starts or resumes playback.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
	p.player.Play()
}

// Pause suspends playback.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
	p.player.Pause()
}

// Duration returns the clip length in seconds.
func (p *Player) Duration() float64 {
	return p.info.duration()
}

// Close releases the device player.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.player.Close()
}
