package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"fyne.io/fyne/v2"

	"github.com/ytget/ytdl-gui/internal/platform"
	"github.com/ytget/ytdl-gui/internal/process"
)

// Quality presets for downloads
type QualityPreset string

const (
	QualityBest   QualityPreset = "best"
	QualityMedium QualityPreset = "medium"
	QualityAudio  QualityPreset = "audio"
)

// Settings keys for Fyne preferences
const (
	KeyDownloaderCommand   = "downloader_command"
	KeyDownloadDir         = "download_directory"
	KeyEncoding            = "output_encoding"
	KeyMaxParallel         = "max_parallel_downloads"
	KeyQualityPreset       = "quality_preset"
	KeyFilenameTemplate    = "filename_template"
	KeyAdditionalOptions   = "additional_options"
	KeyMarkWatched         = "mark_watched"
	KeyTerminateDeadlineMs = "terminate_deadline_ms"
	KeyPollIntervalMs      = "poll_interval_ms"
	KeyEchoCommand         = "echo_command"
	KeyPseudoTerminal      = "pseudo_terminal"
	KeyEnvironment         = "environment"
)

// Default values
const (
	DefaultMaxParallel       = 2
	DefaultQualityPreset     = QualityMedium
	DefaultFilenameTemplate  = "%(title)s.%(ext)s"
	DefaultMarkWatched       = true
	DefaultTerminateDeadline = process.DefaultTerminateDeadline
	DefaultPollInterval      = process.DefaultPollInterval
	DefaultEchoCommand       = true
	DefaultPseudoTerminal    = false
)

// Limits for clamped values
const (
	MinMaxParallel       = 1
	MaxMaxParallel       = 10
	MinTerminateDeadline = 100 * time.Millisecond
	MaxTerminateDeadline = time.Minute
	MinPollInterval      = 20 * time.Millisecond
	MaxPollInterval      = 5 * time.Second
)

// DefaultEnvironment keeps a Python-based downloader from block-buffering
// its output when it is not attached to a terminal.
var DefaultEnvironment = []string{"PYTHONUNBUFFERED=1"}

// Settings manages application configuration
type Settings struct {
	app fyne.App
}

// NewSettings creates a new settings manager
func NewSettings(app fyne.App) *Settings {
	return &Settings{app: app}
}

func (s *Settings) prefs() fyne.Preferences {
	return s.app.Preferences()
}

// GetDownloaderCommand returns the configured launcher, or nil to use the default program
func (s *Settings) GetDownloaderCommand() []string {
	return s.prefs().StringList(KeyDownloaderCommand)
}

// SetDownloaderCommand sets the launcher. An empty command restores the default.
func (s *Settings) SetDownloaderCommand(cmd []string) {
	if len(cmd) == 0 || cmd[0] == "" {
		s.prefs().RemoveValue(KeyDownloaderCommand)
		return
	}
	s.prefs().SetStringList(KeyDownloaderCommand, slices.Clone(cmd))
}

// GetDownloadDirectory returns the configured download directory
func (s *Settings) GetDownloadDirectory() string {
	dir := s.prefs().String(KeyDownloadDir)
	if dir == "" {
		// Use system default Downloads directory
		defaultDir, err := platform.GetHomeDownloadsDir()
		if err != nil {
			defaultDir = filepath.Join(os.TempDir(), "downloads")
		}
		s.SetDownloadDirectory(defaultDir)
		return defaultDir
	}
	return dir
}

// SetDownloadDirectory sets the download directory
func (s *Settings) SetDownloadDirectory(dir string) {
	s.prefs().SetString(KeyDownloadDir, dir)
}

// GetEncoding returns the encoding of the downloader's output
func (s *Settings) GetEncoding() string {
	enc := s.prefs().String(KeyEncoding)
	if enc == "" {
		return process.DefaultEncoding
	}
	return enc
}

// SetEncoding sets the output encoding. Unknown encodings are rejected.
func (s *Settings) SetEncoding(enc string) error {
	enc = strings.TrimSpace(enc)
	if err := process.ValidateEncoding(enc); err != nil {
		return err
	}
	s.prefs().SetString(KeyEncoding, enc)
	return nil
}

// GetMaxParallelDownloads returns the maximum number of parallel downloads
func (s *Settings) GetMaxParallelDownloads() int {
	value := s.prefs().Int(KeyMaxParallel)
	if value <= 0 {
		s.SetMaxParallelDownloads(DefaultMaxParallel)
		return DefaultMaxParallel
	}
	return value
}

// SetMaxParallelDownloads sets the maximum number of parallel downloads
func (s *Settings) SetMaxParallelDownloads(count int) {
	s.prefs().SetInt(KeyMaxParallel, clamp(count, MinMaxParallel, MaxMaxParallel))
}

// GetQualityPreset returns the configured quality preset
func (s *Settings) GetQualityPreset() QualityPreset {
	preset := s.prefs().String(KeyQualityPreset)
	if preset == "" {
		s.SetQualityPreset(DefaultQualityPreset)
		return DefaultQualityPreset
	}
	return QualityPreset(preset)
}

// SetQualityPreset sets the quality preset
func (s *Settings) SetQualityPreset(preset QualityPreset) {
	s.prefs().SetString(KeyQualityPreset, string(preset))
}

// GetQualityPresetOptions returns available quality preset options
func (s *Settings) GetQualityPresetOptions() []QualityPreset {
	return []QualityPreset{QualityBest, QualityMedium, QualityAudio}
}

// IsValidQualityPreset reports whether preset is one of the known presets
func IsValidQualityPreset(preset QualityPreset) bool {
	return preset == QualityBest || preset == QualityMedium || preset == QualityAudio
}

// GetFilenameTemplate returns the filename template
func (s *Settings) GetFilenameTemplate() string {
	template := s.prefs().String(KeyFilenameTemplate)
	if template == "" {
		s.SetFilenameTemplate(DefaultFilenameTemplate)
		return DefaultFilenameTemplate
	}
	return template
}

// SetFilenameTemplate sets the filename template
func (s *Settings) SetFilenameTemplate(template string) {
	if template == "" {
		template = DefaultFilenameTemplate
	}
	s.prefs().SetString(KeyFilenameTemplate, template)
}

// GetAdditionalOptions returns extra downloader flags as typed by the user
func (s *Settings) GetAdditionalOptions() string {
	return s.prefs().String(KeyAdditionalOptions)
}

// SetAdditionalOptions sets extra downloader flags
func (s *Settings) SetAdditionalOptions(opts string) {
	s.prefs().SetString(KeyAdditionalOptions, strings.TrimSpace(opts))
}

// GetMarkWatched returns whether downloads are marked as watched
func (s *Settings) GetMarkWatched() bool {
	return s.prefs().BoolWithFallback(KeyMarkWatched, DefaultMarkWatched)
}

// SetMarkWatched sets whether downloads are marked as watched
func (s *Settings) SetMarkWatched(mark bool) {
	s.prefs().SetBool(KeyMarkWatched, mark)
}

// GetTerminateDeadline returns how long a stopped run may take to exit before it is killed
func (s *Settings) GetTerminateDeadline() time.Duration {
	ms := s.prefs().IntWithFallback(KeyTerminateDeadlineMs, int(DefaultTerminateDeadline/time.Millisecond))
	return time.Duration(ms) * time.Millisecond
}

// SetTerminateDeadline sets the grace period before a forced kill
func (s *Settings) SetTerminateDeadline(d time.Duration) {
	d = clamp(d, MinTerminateDeadline, MaxTerminateDeadline)
	s.prefs().SetInt(KeyTerminateDeadlineMs, int(d/time.Millisecond))
}

// GetPollInterval returns how often running processes are polled for output
func (s *Settings) GetPollInterval() time.Duration {
	ms := s.prefs().IntWithFallback(KeyPollIntervalMs, int(DefaultPollInterval/time.Millisecond))
	return time.Duration(ms) * time.Millisecond
}

// SetPollInterval sets the polling cadence
func (s *Settings) SetPollInterval(d time.Duration) {
	d = clamp(d, MinPollInterval, MaxPollInterval)
	s.prefs().SetInt(KeyPollIntervalMs, int(d/time.Millisecond))
}

// GetEchoCommand returns whether the command line is echoed into the output
func (s *Settings) GetEchoCommand() bool {
	return s.prefs().BoolWithFallback(KeyEchoCommand, DefaultEchoCommand)
}

// SetEchoCommand sets whether the command line is echoed into the output
func (s *Settings) SetEchoCommand(echo bool) {
	s.prefs().SetBool(KeyEchoCommand, echo)
}

// GetPseudoTerminal returns whether stdout is attached to a pseudo-terminal
func (s *Settings) GetPseudoTerminal() bool {
	return s.prefs().BoolWithFallback(KeyPseudoTerminal, DefaultPseudoTerminal)
}

// SetPseudoTerminal sets whether stdout is attached to a pseudo-terminal
func (s *Settings) SetPseudoTerminal(enabled bool) {
	s.prefs().SetBool(KeyPseudoTerminal, enabled)
}

// GetEnvironment returns extra KEY=VALUE entries for the downloader
func (s *Settings) GetEnvironment() []string {
	return s.prefs().StringListWithFallback(KeyEnvironment, DefaultEnvironment)
}

// SetEnvironment sets extra KEY=VALUE entries. Entries without '=' are dropped.
func (s *Settings) SetEnvironment(env []string) {
	valid := make([]string, 0, len(env))
	for _, kv := range env {
		if i := strings.IndexByte(kv, '='); i > 0 {
			valid = append(valid, kv)
		}
	}
	s.prefs().SetStringList(KeyEnvironment, valid)
}

// ProcessOptions returns launch options for a downloader run
func (s *Settings) ProcessOptions() process.Options {
	return process.Options{
		WorkingDir:     s.GetDownloadDirectory(),
		Encoding:       s.GetEncoding(),
		Env:            s.GetEnvironment(),
		EchoCommand:    s.GetEchoCommand(),
		PseudoTerminal: s.GetPseudoTerminal(),
	}
}

func clamp[T int | time.Duration](v, lo, hi T) T {
	return max(lo, min(v, hi))
}
