package main

import (
	"testing"

	"github.com/ytget/ytdl-gui/internal/model"
)

func TestDownloadStatusLine(t *testing.T) {
	tests := []struct {
		name     string
		task     model.DownloadTask
		expected string
	}{
		{
			name: "completed with destination",
			task: model.DownloadTask{
				URL:        "https://example.com/v",
				Status:     model.TaskStatusCompleted,
				OutputPath: "/dl/clip.mp4",
			},
			expected: "clip: finished. /dl/clip.mp4",
		},
		{
			name: "stopped shows progress",
			task: model.DownloadTask{
				URL:        "https://example.com/v",
				Status:     model.TaskStatusStopped,
				OutputPath: "/dl/clip.mp4",
				Percent:    42,
				ETASec:     75,
				ExitCode:   -15,
			},
			expected: "clip: terminated with returncode -15. (42% ETA 01:15)",
		},
		{
			name: "running without estimate",
			task: model.DownloadTask{
				URL:     "https://example.com/v",
				Status:  model.TaskStatusRunning,
				Percent: 3,
				ETASec:  -1,
			},
			expected: "https://example.com/v: Running (3% ETA —)",
		},
		{
			name: "custom command failed",
			task: model.DownloadTask{
				Command:   []string{"youtube-dl", "--version"},
				Status:    model.TaskStatusError,
				LastError: "ERROR: boom",
			},
			expected: "youtube-dl --version: ERROR: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := downloadStatusLine(&tt.task); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
