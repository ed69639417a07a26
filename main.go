// Package main provides the entry point for the playersync CLI.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/fifosk/playersync/ui"
	"github.com/mitchellh/go-homedir"
	"github.com/muesli/gitcha"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	subtitleExtensions = []string{"*.ass", "*.ssa"}

	configFile string
	timingPath string
	audioPath  string
	tracks     string
	watch      bool
	debug      bool

	keyword = lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}).
		Render
	paragraph = lipgloss.NewStyle().
			Width(78).
			Padding(0, 0, 0, 2).
			Render

	rootCmd = &cobra.Command{
		Use:   "playersync [FILE|DIR]",
		Short: "Follow narrated subtitles word by word in the terminal",
		Long: paragraph(
			fmt.Sprintf("\nPlay a subtitle file %s with its narration, word by word.", keyword("in sync")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

// expandPath resolves a leading tilde in user-supplied paths.
func expandPath(path string) string {
	if expanded, err := homedir.Expand(path); err == nil {
		return expanded
	}
	return path
}

func validateOptions(cmd *cobra.Command) error {
	// grab config values from Viper
	watch = viper.GetBool("watch")
	debug = viper.GetBool("debug")
	if !cmd.Flags().Changed("timing") {
		timingPath = viper.GetString("timing")
	}
	if !cmd.Flags().Changed("audio") {
		audioPath = viper.GetString("audio")
	}
	if !cmd.Flags().Changed("tracks") {
		tracks = viper.GetString("tracks")
	}

	for _, r := range tracks {
		if !strings.ContainsRune("otl", r) {
			return fmt.Errorf("invalid track %q: tracks are o (original), t (translation), l (transliteration)", r)
		}
	}

	if debug {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.DebugLevel)
	}

	// Completion and man page generation write to a pipe, everything
	// else needs a real terminal.
	if cmd.Name() == rootCmd.Name() && !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("playersync needs a terminal to run in")
	}
	return nil
}

// findSubtitle walks dir for the first subtitle file, honoring
// .gitignore rules along the way.
func findSubtitle(dir string) (string, error) {
	ch, err := gitcha.FindAllFilesExcept(dir, subtitleExtensions, nil)
	if err != nil {
		return "", fmt.Errorf("unable to search directory: %w", err)
	}
	for res := range ch {
		return res.Path, nil
	}
	return "", fmt.Errorf("no subtitle files found in %s", dir)
}

// resolveSubtitle turns the positional argument into the path of the
// subtitle file to open.
func resolveSubtitle(arg string) (string, error) {
	if arg == "" {
		arg = "."
	}
	arg = expandPath(arg)

	st, err := os.Stat(arg)
	if err != nil {
		return "", fmt.Errorf("unable to open %s: %w", arg, err)
	}
	if st.IsDir() {
		return findSubtitle(arg)
	}
	return filepath.Abs(arg)
}

// sidecar returns the path of a companion file with the given extension
// next to the subtitle, or empty when none exists.
func sidecar(subtitlePath, ext string) string {
	base := strings.TrimSuffix(subtitlePath, filepath.Ext(subtitlePath))
	p := base + ext
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

func execute(_ *cobra.Command, args []string) error {
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	path, err := resolveSubtitle(arg)
	if err != nil {
		return err
	}

	// Read environment for viewer settings, then layer flags on top.
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}

	cfg.SubtitlePath = path
	cfg.Watch = watch
	if timingPath != "" {
		cfg.TimingPath = expandPath(timingPath)
	}
	if audioPath != "" {
		cfg.AudioPath = expandPath(audioPath)
	}

	// Pick up sidecar files unless told otherwise.
	if cfg.TimingPath == "" {
		cfg.TimingPath = sidecar(path, ".json")
	}
	if cfg.AudioPath == "" {
		cfg.AudioPath = sidecar(path, ".wav")
	}

	if tracks != "" {
		cfg.ShowOriginal = strings.ContainsRune(tracks, 'o')
		cfg.ShowTranslation = strings.ContainsRune(tracks, 't')
		cfg.ShowTransliteration = strings.ContainsRune(tracks, 'l')
	}

	return ui.Run(cfg)
}

func setupLog() (func() error, error) {
	// log to a file, if set
	if lf := os.Getenv("PLAYERSYNC_LOGFILE"); lf != "" {
		f, err := tea.LogToFile(lf, "playersync")
		if err != nil {
			return nil, fmt.Errorf("error setting up log: %w", err)
		}
		log.SetOutput(f)
		log.SetLevel(log.DebugLevel)
		return f.Close, nil
	}
	log.SetOutput(io.Discard)
	return func() error { return nil }, nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&timingPath, "timing", "t", "", "word-timing JSON file or chunk directory (default: subtitle path with .json)")
	rootCmd.Flags().StringVarP(&audioPath, "audio", "a", "", "narration WAV file (default: subtitle path with .wav)")
	rootCmd.Flags().StringVar(&tracks, "tracks", "", "tracks to show, any of o, t, l (default: all)")
	rootCmd.Flags().BoolVarP(&watch, "watch", "w", true, "reload the subtitle file when it changes on disk")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log debug output to stderr")

	// Config bindings
	_ = viper.BindPFlag("timing", rootCmd.Flags().Lookup("timing"))
	_ = viper.BindPFlag("audio", rootCmd.Flags().Lookup("audio"))
	_ = viper.BindPFlag("tracks", rootCmd.Flags().Lookup("tracks"))
	_ = viper.BindPFlag("watch", rootCmd.Flags().Lookup("watch"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	viper.SetDefault("watch", true)
	viper.SetDefault("tracks", "")

	rootCmd.AddCommand(configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "playersync")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "playersync")}, dirs...)
	}

	if c := os.Getenv("PLAYERSYNC_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("playersync")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("playersync")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "playersync.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
