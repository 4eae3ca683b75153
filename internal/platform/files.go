package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
)

// Operating system constants
const (
	OSDarwin  = "darwin"
	OSWindows = "windows"
	OSLinux   = "linux"
	OSAndroid = "android"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// Extensions of files the tool is still writing
var (
	SkippedExtensions = []string{".part", ".ytdl", ".temp"}
)

// formatSuffix matches the ".f137" format id the tool puts on intermediate
// files before merging.
var formatSuffix = regexp.MustCompile(`\.f\d+$`)

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// GetHomeDownloadsDir returns the standard Downloads directory for the user
func GetHomeDownloadsDir() (string, error) {
	if runtime.GOOS == OSAndroid {
		return "/sdcard/Download", nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, "Downloads"), nil
}

// ResolveOutputFile finds the file a run actually produced from the
// destination it announced. Post-processing can change the name: merged
// formats drop the ".fNNN" id and audio extraction swaps the extension.
func ResolveOutputFile(destination string) (string, error) {
	if destination == "" {
		return "", fmt.Errorf("destination is empty")
	}
	if _, err := os.Stat(destination); err == nil {
		return destination, nil
	}

	dir := filepath.Dir(destination)
	ext := filepath.Ext(destination)
	stem := strings.TrimSuffix(filepath.Base(destination), ext)

	merged := filepath.Join(dir, formatSuffix.ReplaceAllString(stem, "")+ext)
	if _, err := os.Stat(merged); err == nil {
		return merged, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	stem = formatSuffix.ReplaceAllString(stem, "")
	var candidates []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || isPartialFile(name) {
			continue
		}
		if strings.TrimSuffix(name, filepath.Ext(name)) == stem {
			candidates = append(candidates, filepath.Join(dir, name))
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("file not found: %s", destination)
	}
	slices.Sort(candidates)
	return candidates[0], nil
}

func isPartialFile(name string) bool {
	for _, ext := range SkippedExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
