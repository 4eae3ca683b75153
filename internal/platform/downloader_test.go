package platform

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"

	"github.com/ytget/ytdl-gui/internal/process"
)

func TestProgramFinder(t *testing.T) {
	finder := NewProgramFinder(nil)
	if cmd := finder.Command(); len(cmd) != 1 || cmd[0] != DefaultProgram {
		t.Errorf("Expected default command [%s], got %v", DefaultProgram, cmd)
	}

	configured := []string{"python3", "-u", "/opt/youtube-dl/__main__.py"}
	finder = NewProgramFinder(configured)
	cmd := finder.Command()
	if strings.Join(cmd, " ") != strings.Join(configured, " ") {
		t.Errorf("Expected configured command %v, got %v", configured, cmd)
	}

	// Callers get copies
	cmd[0] = "changed"
	configured[0] = "changed"
	if finder.Command()[0] != "python3" {
		t.Error("Expected finder command to be isolated from callers")
	}
}

func TestBuilderSingleVideo(t *testing.T) {
	b := NewBuilder(NewProgramFinder(nil))

	tests := []struct {
		name     string
		req      Request
		expected string
		echo     bool
	}{
		{
			name:     "defaults",
			req:      Request{URL: "https://youtu.be/x"},
			expected: "youtube-dl --no-playlist --mark-watched https://youtu.be/x",
			echo:     true,
		},
		{
			name: "audio with subtitles",
			req: Request{
				URL:           "https://youtu.be/x",
				AudioOnly:     true,
				AudioFormat:   "mp3",
				KeepVideo:     true,
				WriteSubs:     true,
				WriteAutoSubs: true,
				SubFormat:     "srt",
				SubLanguages:  "en,de",
				NoMarkWatched: true,
			},
			expected: "youtube-dl --extract-audio --audio-format mp3 --keep-video --write-sub --write-auto-sub --sub-format srt --sub-lang en,de --no-playlist --no-mark-watched https://youtu.be/x",
			echo:     true,
		},
		{
			name:     "audio flags need audio only",
			req:      Request{URL: "u", AudioFormat: "mp3", KeepVideo: true, VideoFormat: "mp4"},
			expected: "youtube-dl --format mp4 --no-playlist --mark-watched u",
			echo:     true,
		},
		{
			name:     "playlist in additional options",
			req:      Request{URL: "u", AdditionalOptions: `--yes-playlist --output "%(title)s [%(id)s].%(ext)s"`},
			expected: "youtube-dl --yes-playlist --output %(title)s [%(id)s].%(ext)s --mark-watched u",
			echo:     true,
		},
		{
			name:     "output template",
			req:      Request{URL: "u", OutputTemplate: "/dl/%(title)s.%(ext)s"},
			expected: "youtube-dl --output /dl/%(title)s.%(ext)s --no-playlist --mark-watched u",
			echo:     true,
		},
		{
			name:     "meta info only ignores other options",
			req:      Request{URL: "u", MetaInfoOnly: true, AudioOnly: true, AdditionalOptions: "--yes-playlist"},
			expected: "youtube-dl --dump-json --no-playlist --no-mark-watched u",
			echo:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, echo, err := b.SingleVideo(tt.req)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got := strings.Join(cmd, " "); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
			if echo != tt.echo {
				t.Errorf("Expected echo=%t, got %t", tt.echo, echo)
			}
		})
	}
}

func TestBuilderSingleVideoErrors(t *testing.T) {
	b := NewBuilder(NewProgramFinder(nil))

	if _, _, err := b.SingleVideo(Request{URL: "  "}); !errors.Is(err, ErrNoSourceURL) {
		t.Errorf("Expected ErrNoSourceURL, got %v", err)
	}
	if _, _, err := b.SingleVideo(Request{URL: "u", AdditionalOptions: `--output "unterminated`}); err == nil {
		t.Error("Expected error for unbalanced quotes")
	}
}

func TestBuilderOtherCommands(t *testing.T) {
	b := NewBuilder(NewProgramFinder([]string{"ytdl"}))

	tests := []struct {
		name     string
		cmd      process.Command
		expected string
	}{
		{"help", b.Help(), "ytdl --help"},
		{"version", b.Version(), "ytdl --version"},
		{"update", b.Update(), "ytdl --update"},
		{"program", b.Program(), "ytdl"},
	}
	for _, tt := range tests {
		if got := strings.Join(tt.cmd, " "); got != tt.expected {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, got)
		}
	}

	cmd, err := b.Custom(`-f best "https://youtu.be/a b"`, true)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := strings.Join(cmd, "|"); got != "ytdl|--dump-json|-f|best|https://youtu.be/a b" {
		t.Errorf("Unexpected custom command: %q", got)
	}
}

func TestIsInstalled(t *testing.T) {
	missing := NewBuilder(NewProgramFinder([]string{"ytdl-gui-no-such-downloader"}))
	installed, _, err := missing.IsInstalled(context.Background(), process.Options{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if installed {
		t.Error("Expected missing program to be reported as not installed")
	}

	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	// The appended --version becomes $0 of the script
	present := NewBuilder(NewProgramFinder([]string{"sh", "-c", "echo 2021.12.17"}))
	installed, version, err := present.IsInstalled(context.Background(), process.Options{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !installed || version != "2021.12.17" {
		t.Errorf("Expected installed with version 2021.12.17, got %t %q", installed, version)
	}
}
