package platform

import "testing"

func TestIsErrorAndWarning(t *testing.T) {
	tests := []struct {
		line    string
		isError bool
		isWarn  bool
	}{
		{"ERROR: Unsupported URL: https://example.com\n", true, false},
		{"WARNING: Falling back on generic information extractor.\n", false, true},
		{"[download]  10.0% of 1.00MiB at 1.00MiB/s ETA 00:01\r", false, false},
		{"error in lowercase is not an error\n", false, false},
	}

	for _, tt := range tests {
		if got := IsError(tt.line); got != tt.isError {
			t.Errorf("IsError(%q): expected %t, got %t", tt.line, tt.isError, got)
		}
		if got := IsWarning(tt.line); got != tt.isWarn {
			t.Errorf("IsWarning(%q): expected %t, got %t", tt.line, tt.isWarn, got)
		}
	}
}

func TestDestination(t *testing.T) {
	tests := []struct {
		line     string
		expected string
		ok       bool
	}{
		{"[download] Destination: /tmp/My Video-abc.webm\n", "/tmp/My Video-abc.webm", true},
		{"[ffmpeg] Destination: song.mp3\n", "song.mp3", true},
		{"[download] clip.mp4 has already been downloaded\n", "clip.mp4", true},
		{`[ffmpeg] Merging formats into "clip.mp4"` + "\n", "clip.mp4", true},
		{"[download] Destination:   \n", "", false},
		{"[youtube] abc: Downloading webpage\n", "", false},
	}

	for _, tt := range tests {
		got, ok := Destination(tt.line)
		if ok != tt.ok || got != tt.expected {
			t.Errorf("Destination(%q): expected (%q, %t), got (%q, %t)", tt.line, tt.expected, tt.ok, got, ok)
		}
	}
}

func TestParseProgress(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected Progress
		ok       bool
	}{
		{
			name:     "in progress",
			line:     "[download]  42.0% of 10.00MiB at  1.00MiB/s ETA 00:10\r",
			expected: Progress{Percent: 42, Total: "10.00MiB", Speed: "1.00MiB/s", ETASec: 10},
			ok:       true,
		},
		{
			name:     "approximate size and hours",
			line:     "[download]   5.5% of ~1.20GiB at 512.00KiB/s ETA 01:02:03",
			expected: Progress{Percent: 5.5, Total: "1.20GiB", Speed: "512.00KiB/s", ETASec: 3723},
			ok:       true,
		},
		{
			name:     "unknown speed",
			line:     "[download]   0.0% of 3.00MiB at Unknown speed ETA Unknown ETA\r",
			expected: Progress{Percent: 0, Total: "3.00MiB", ETASec: -1},
			ok:       true,
		},
		{
			name:     "finished",
			line:     "[download] 100% of 10.00MiB in 00:05\n",
			expected: Progress{Percent: 100, Total: "10.00MiB", ETASec: 0},
			ok:       true,
		},
		{
			name: "not a progress line",
			line: "[download] Destination: clip.mp4\n",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseProgress(tt.line)
			if ok != tt.ok {
				t.Fatalf("Expected ok=%t, got %t", tt.ok, ok)
			}
			if got != tt.expected {
				t.Errorf("Expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}
