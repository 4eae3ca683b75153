package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ytget/ytdl-gui/internal/process"
)

// DefaultFileName is the suggested name for exported settings
const DefaultFileName = "ytdl-gui.yaml"

// File is the human-editable form of the settings. Zero fields are left
// untouched by Apply.
type File struct {
	DownloaderCommand []string      `yaml:"downloader_command,omitempty"`
	DownloadDirectory string        `yaml:"download_directory,omitempty"`
	Encoding          string        `yaml:"encoding,omitempty"`
	MaxParallel       int           `yaml:"max_parallel,omitempty"`
	QualityPreset     QualityPreset `yaml:"quality_preset,omitempty"`
	FilenameTemplate  string        `yaml:"filename_template,omitempty"`
	AdditionalOptions string        `yaml:"additional_options,omitempty"`
	MarkWatched       *bool         `yaml:"mark_watched,omitempty"`
	TerminateDeadline time.Duration `yaml:"terminate_deadline,omitempty"`
	PollInterval      time.Duration `yaml:"poll_interval,omitempty"`
	EchoCommand       *bool         `yaml:"echo_command,omitempty"`
	PseudoTerminal    *bool         `yaml:"pseudo_terminal,omitempty"`
	Environment       []string      `yaml:"environment,omitempty"`
}

// Export captures the current settings
func (s *Settings) Export() *File {
	markWatched := s.GetMarkWatched()
	echo := s.GetEchoCommand()
	pty := s.GetPseudoTerminal()
	return &File{
		DownloaderCommand: s.GetDownloaderCommand(),
		DownloadDirectory: s.GetDownloadDirectory(),
		Encoding:          s.GetEncoding(),
		MaxParallel:       s.GetMaxParallelDownloads(),
		QualityPreset:     s.GetQualityPreset(),
		FilenameTemplate:  s.GetFilenameTemplate(),
		AdditionalOptions: s.GetAdditionalOptions(),
		MarkWatched:       &markWatched,
		TerminateDeadline: s.GetTerminateDeadline(),
		PollInterval:      s.GetPollInterval(),
		EchoCommand:       &echo,
		PseudoTerminal:    &pty,
		Environment:       s.GetEnvironment(),
	}
}

// Validate checks values that cannot be clamped into range
func (f *File) Validate() error {
	if f.Encoding != "" {
		if err := process.ValidateEncoding(f.Encoding); err != nil {
			return err
		}
	}
	if f.QualityPreset != "" && !IsValidQualityPreset(f.QualityPreset) {
		return fmt.Errorf("unknown quality preset %q", f.QualityPreset)
	}
	if f.MaxParallel < 0 {
		return fmt.Errorf("max_parallel must be positive, got %d", f.MaxParallel)
	}
	if f.TerminateDeadline < 0 || f.PollInterval < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}

// Apply stores every set field of f. Nothing is stored when f is invalid.
func (s *Settings) Apply(f *File) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	if len(f.DownloaderCommand) > 0 {
		s.SetDownloaderCommand(f.DownloaderCommand)
	}
	if f.DownloadDirectory != "" {
		s.SetDownloadDirectory(f.DownloadDirectory)
	}
	if f.Encoding != "" {
		s.SetEncoding(f.Encoding)
	}
	if f.MaxParallel > 0 {
		s.SetMaxParallelDownloads(f.MaxParallel)
	}
	if f.QualityPreset != "" {
		s.SetQualityPreset(f.QualityPreset)
	}
	if f.FilenameTemplate != "" {
		s.SetFilenameTemplate(f.FilenameTemplate)
	}
	if f.AdditionalOptions != "" {
		s.SetAdditionalOptions(f.AdditionalOptions)
	}
	if f.MarkWatched != nil {
		s.SetMarkWatched(*f.MarkWatched)
	}
	if f.TerminateDeadline > 0 {
		s.SetTerminateDeadline(f.TerminateDeadline)
	}
	if f.PollInterval > 0 {
		s.SetPollInterval(f.PollInterval)
	}
	if f.EchoCommand != nil {
		s.SetEchoCommand(*f.EchoCommand)
	}
	if f.PseudoTerminal != nil {
		s.SetPseudoTerminal(*f.PseudoTerminal)
	}
	if f.Environment != nil {
		s.SetEnvironment(f.Environment)
	}
	return nil
}

// WriteFile writes f as YAML to path, creating parent directories
func WriteFile(path string, f *File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// LoadFile reads a settings file written by WriteFile or by hand
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	return &f, nil
}
