package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/ytget/ytdl-gui/internal/process"
)

// DefaultProgram is the download tool looked up on PATH when no command is configured
const DefaultProgram = "youtube-dl"

// Downloader flags
const (
	FlagMetaInfoOnly   = "--dump-json"
	FlagNoPlaylist     = "--no-playlist"
	FlagYesPlaylist    = "--yes-playlist"
	FlagAudioOnly      = "--extract-audio"
	FlagAudioFormat    = "--audio-format"
	FlagKeepVideo      = "--keep-video"
	FlagVideoFormat    = "--format"
	FlagWriteSubs      = "--write-sub"
	FlagWriteAutoSubs  = "--write-auto-sub"
	FlagAllSubs        = "--all-subs"
	FlagSubLanguages   = "--sub-lang"
	FlagSubFormat      = "--sub-format"
	FlagMarkWatched    = "--mark-watched"
	FlagNoMarkWatched  = "--no-mark-watched"
	FlagOutputTemplate = "--output"
	FlagHelp           = "--help"
	FlagVersion        = "--version"
	FlagUpdate         = "--update"
)

// playlistHint in the additional options means the user manages playlist
// handling and --no-playlist must not be added.
const playlistHint = "playlist"

// Supported formats
var (
	AudioFormats = []string{"best", "aac", "vorbis", "mp3", "m4a", "opus", "wav"}
	VideoFormats = []string{"mp4", "flv", "ogg", "webm", "mkv", "avi"}
)

// ErrNoSourceURL is returned when a single-video request has no URL
var ErrNoSourceURL = errors.New("no source url given")

// IsInstalledTimeout bounds the --version probe
const IsInstalledTimeout = 15 * time.Second

// ProgramFinder resolves the command that starts the download tool.
type ProgramFinder struct {
	cmd process.Command
}

// NewProgramFinder returns a finder for the configured command line, or the
// platform default when configured is empty.
func NewProgramFinder(configured []string) *ProgramFinder {
	if len(configured) > 0 && configured[0] != "" {
		return &ProgramFinder{cmd: process.Command(configured).Clone()}
	}
	// exec resolves the name on PATH, including PATHEXT on windows
	return &ProgramFinder{cmd: process.Command{DefaultProgram}}
}

// Command returns a copy of the launcher command
func (f *ProgramFinder) Command() process.Command {
	return f.cmd.Clone()
}

// Request describes a single-video download.
type Request struct {
	URL string

	// MetaInfoOnly prints the video metadata as JSON instead of downloading.
	// All other options are ignored.
	MetaInfoOnly bool

	AudioOnly   bool
	AudioFormat string
	KeepVideo   bool

	VideoFormat string

	WriteSubs     bool
	WriteAutoSubs bool
	SubFormat     string
	SubLanguages  string

	// OutputTemplate is passed as --output when set
	OutputTemplate string

	// AdditionalOptions are extra flags, split shell-style
	AdditionalOptions string

	// MarkWatched defaults to true; set NoMarkWatched to send --no-mark-watched
	NoMarkWatched bool
}

// Builder turns user choices into download tool command lines.
type Builder struct {
	finder *ProgramFinder
}

// NewBuilder creates a Builder around finder
func NewBuilder(finder *ProgramFinder) *Builder {
	return &Builder{finder: finder}
}

// Program returns the launcher command without arguments
func (b *Builder) Program() process.Command {
	return b.finder.Command()
}

// SingleVideo builds the command for one URL. It reports whether the
// command line should be echoed into the output, which is off for metadata
// runs so their stdout stays pure JSON.
func (b *Builder) SingleVideo(req Request) (cmd process.Command, echo bool, err error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, false, ErrNoSourceURL
	}

	cmd = b.finder.Command()
	if req.MetaInfoOnly {
		cmd = append(cmd, FlagMetaInfoOnly, FlagNoPlaylist, FlagNoMarkWatched, req.URL)
		return cmd, false, nil
	}

	if req.AudioOnly {
		cmd = append(cmd, FlagAudioOnly)
		cmd = appendValue(cmd, FlagAudioFormat, req.AudioFormat)
		cmd = appendFlag(cmd, FlagKeepVideo, req.KeepVideo)
	}
	cmd = appendValue(cmd, FlagVideoFormat, req.VideoFormat)

	cmd = appendFlag(cmd, FlagWriteSubs, req.WriteSubs)
	cmd = appendFlag(cmd, FlagWriteAutoSubs, req.WriteAutoSubs)
	cmd = appendValue(cmd, FlagSubFormat, req.SubFormat)
	cmd = appendValue(cmd, FlagSubLanguages, req.SubLanguages)

	cmd = appendValue(cmd, FlagOutputTemplate, req.OutputTemplate)

	if !strings.Contains(req.AdditionalOptions, playlistHint) {
		cmd = append(cmd, FlagNoPlaylist)
	}
	if req.AdditionalOptions != "" {
		opts, err := shlex.Split(req.AdditionalOptions)
		if err != nil {
			return nil, false, fmt.Errorf("invalid additional options %q: %w", req.AdditionalOptions, err)
		}
		cmd = append(cmd, opts...)
	}

	if req.NoMarkWatched {
		cmd = append(cmd, FlagNoMarkWatched)
	} else {
		cmd = append(cmd, FlagMarkWatched)
	}
	cmd = append(cmd, req.URL)
	return cmd, true, nil
}

// Custom builds a command from free-form arguments typed by the user
func (b *Builder) Custom(args string, metaInfoOnly bool) (process.Command, error) {
	words, err := shlex.Split(args)
	if err != nil {
		return nil, fmt.Errorf("invalid arguments %q: %w", args, err)
	}
	cmd := b.finder.Command()
	if metaInfoOnly {
		cmd = append(cmd, FlagMetaInfoOnly)
	}
	return append(cmd, words...), nil
}

// Help builds the command printing the tool's usage
func (b *Builder) Help() process.Command {
	return append(b.finder.Command(), FlagHelp)
}

// Version builds the command printing the tool's version
func (b *Builder) Version() process.Command {
	return append(b.finder.Command(), FlagVersion)
}

// Update builds the command that self-updates the tool
func (b *Builder) Update() process.Command {
	return append(b.finder.Command(), FlagUpdate)
}

func appendFlag(cmd process.Command, flag string, enabled bool) process.Command {
	if enabled {
		return append(cmd, flag)
	}
	return cmd
}

func appendValue(cmd process.Command, flag, value string) process.Command {
	if value == "" {
		return cmd
	}
	return append(cmd, flag, value)
}

// IsInstalled runs the version command and reports whether the tool could be
// started, along with the first line it printed. A missing or
// non-executable program is reported as not installed without an error.
func (b *Builder) IsInstalled(ctx context.Context, opts process.Options) (installed bool, version string, err error) {
	ctx, cancel := context.WithTimeout(ctx, IsInstalledTimeout)
	defer cancel()

	sup, err := process.Start(b.Version(), opts)
	if err != nil {
		if process.IsNotFound(err) || process.IsPermissionDenied(err) {
			return false, "", nil
		}
		return false, "", err
	}

	if err := sup.Wait(ctx); err != nil {
		sup.Kill()
		return false, "", fmt.Errorf("waiting for %s: %w", b.Version(), err)
	}

	for _, line := range sup.Drain() {
		if text := strings.TrimSpace(line.Text); text != "" && version == "" {
			version = text
		}
	}
	code, _ := sup.ExitCode()
	return code == 0, version, nil
}
