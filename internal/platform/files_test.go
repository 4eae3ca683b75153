package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateDirectoryIfNotExists(t *testing.T) {
	tempDir := t.TempDir()
	testDir := filepath.Join(tempDir, "nested", "downloads")

	// Directory should not exist initially
	if _, err := os.Stat(testDir); !os.IsNotExist(err) {
		t.Fatalf("Test directory already exists: %s", testDir)
	}

	if err := CreateDirectoryIfNotExists(testDir); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if info, err := os.Stat(testDir); err != nil || !info.IsDir() {
		t.Fatalf("Directory was not created: %s", testDir)
	}

	// Second call should not fail
	if err := CreateDirectoryIfNotExists(testDir); err != nil {
		t.Fatalf("Failed to handle existing directory: %v", err)
	}
}

func TestGetHomeDownloadsDir(t *testing.T) {
	downloadsDir, err := GetHomeDownloadsDir()
	if err != nil {
		t.Fatalf("Failed to get downloads directory: %v", err)
	}

	if filepath.Base(downloadsDir) != "Downloads" && filepath.Base(downloadsDir) != "Download" {
		t.Errorf("Expected directory to end with 'Downloads', got: %s", downloadsDir)
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
}

func TestResolveOutputFile(t *testing.T) {
	tests := []struct {
		name        string
		existing    []string
		destination string
		expected    string
	}{
		{"exact match", []string{"clip.mp4"}, "clip.mp4", "clip.mp4"},
		{"merged formats", []string{"clip.mp4", "clip.f137.mp4.part"}, "clip.f137.mp4", "clip.mp4"},
		{"extracted audio", []string{"song.mp3"}, "song.webm", "song.mp3"},
		{"partial files ignored", []string{"song.webm.part", "song.opus"}, "song.webm", "song.opus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, name := range tt.existing {
				touch(t, filepath.Join(dir, name))
			}

			got, err := ResolveOutputFile(filepath.Join(dir, tt.destination))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if want := filepath.Join(dir, tt.expected); got != want {
				t.Errorf("Expected %s, got %s", want, got)
			}
		})
	}
}

func TestResolveOutputFile_NotFound(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "other.mp4"))

	if _, err := ResolveOutputFile(filepath.Join(dir, "clip.mp4")); err == nil {
		t.Error("Expected error for missing file")
	}
	if _, err := ResolveOutputFile(""); err == nil {
		t.Error("Expected error for empty destination")
	}
}
