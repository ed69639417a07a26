package ui

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/fifosk/playersync/internal/audio"
	"github.com/fifosk/playersync/internal/playback"
)

// openClock picks the playback clock: the narration audio player when a
// WAV is configured, a real-time wall clock otherwise.
func openClock(cfg Config) (playback.Transport, func(), error) {
	if cfg.AudioPath == "" {
		return playback.NewWallClock(), nil, nil
	}

	player, err := audio.Open(cfg.AudioPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open narration audio: %w", err)
	}
	log.Debug("narration audio loaded", "path", cfg.AudioPath, "duration", player.Duration())
	return player, func() {
		if err := player.Close(); err != nil {
			log.Debug("audio close failed", "err", err)
		}
	}, nil
}
