package ui

import "time"

// Config holds the viewer settings assembled by the CLI layer from
// flags, environment and the config file. The viewer itself never reads
// global state.
type Config struct {
	// SubtitlePath is the ASS file to view.
	SubtitlePath string `env:"-"`

	// TimingPath optionally points at a word-timing JSON chunk for the
	// same resource.
	TimingPath string `env:"PLAYERSYNC_TIMING"`

	// AudioPath optionally points at a narration WAV; when set the
	// audio position drives the clock instead of the manual clock.
	AudioPath string `env:"PLAYERSYNC_AUDIO"`

	// ShowOriginal, ShowTranslation and ShowTransliteration toggle the
	// three tracks.
	ShowOriginal        bool `env:"PLAYERSYNC_SHOW_ORIGINAL" envDefault:"true"`
	ShowTranslation     bool `env:"PLAYERSYNC_SHOW_TRANSLATION" envDefault:"true"`
	ShowTransliteration bool `env:"PLAYERSYNC_SHOW_TRANSLITERATION" envDefault:"true"`

	// FrameRate is the sync update interval.
	FrameRate time.Duration `env:"PLAYERSYNC_FRAME_RATE" envDefault:"50ms"`

	// Watch reloads the subtitle file when it changes on disk.
	Watch bool `env:"PLAYERSYNC_WATCH" envDefault:"true"`
}

// DefaultConfig returns the viewer defaults: all tracks on, live reload
// enabled.
func DefaultConfig() Config {
	return Config{
		ShowOriginal:        true,
		ShowTranslation:     true,
		ShowTransliteration: true,
		FrameRate:           50 * time.Millisecond,
		Watch:               true,
	}
}
