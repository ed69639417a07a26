// Package audio plays narration WAV files and exposes the playback
// position as the clock the synchronization driver follows. When real
// narration audio is present this clock replaces the manual one, so the
// highlighted word tracks what the listener actually hears.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrNotWAV is returned for data without a RIFF/WAVE header.
	ErrNotWAV = errors.New("not a WAV file")

	// ErrUnsupportedFormat is returned for WAV encodings other than
	// 16-bit PCM.
	ErrUnsupportedFormat = errors.New("unsupported WAV format, need 16-bit PCM")
)

// wavInfo describes a decoded WAV payload.
type wavInfo struct {
	pcm        []byte
	sampleRate int
	channels   int
}

const bytesPerSample = 2

// decodeWAV extracts 16-bit PCM samples from a RIFF/WAVE container.
func decodeWAV(data []byte) (*wavInfo, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	info := &wavInfo{}
	haveFmt := false
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if size < 0 || body+size > len(data) {
			return nil, fmt.Errorf("truncated %q chunk", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, ErrUnsupportedFormat
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			channels := binary.LittleEndian.Uint16(data[body+2 : body+4])
			rate := binary.LittleEndian.Uint32(data[body+4 : body+8])
			bits := binary.LittleEndian.Uint16(data[body+14 : body+16])
			if format != 1 || bits != 16 || channels == 0 {
				return nil, ErrUnsupportedFormat
			}
			info.sampleRate = int(rate)
			info.channels = int(channels)
			haveFmt = true
		case "data":
			info.pcm = data[body : body+size]
		}

		// Chunks are word-aligned.
		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}

	if !haveFmt || info.pcm == nil {
		return nil, ErrNotWAV
	}
	if len(info.pcm)%(bytesPerSample*info.channels) != 0 {
		info.pcm = info.pcm[:len(info.pcm)-len(info.pcm)%(bytesPerSample*info.channels)]
	}
	return info, nil
}

// bytesPerSecond returns the PCM data rate.
func (w *wavInfo) bytesPerSecond() int {
	return w.sampleRate * w.channels * bytesPerSample
}

// duration returns the clip length in seconds.
func (w *wavInfo) duration() float64 {
	bps := w.bytesPerSecond()
	if bps == 0 {
		return 0
	}
	return float64(len(w.pcm)) / float64(bps)
}
