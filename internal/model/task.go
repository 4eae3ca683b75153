package model

import (
	"fmt"
	"strings"
	"time"
)

// DownloadTask represents one supervised run of the download tool
type DownloadTask struct {
	ID         string
	URL        string   // source URL, empty for custom commands
	Command    []string // full command line handed to the supervisor
	Status     TaskStatus
	Progress   float64   // 0.0 to 1.0
	Percent    int       // 0 to 100
	Speed      string    // human readable speed as printed by the tool (e.g., "1.2MiB/s")
	ETASec     int       // ETA in seconds, -1 if unknown
	LastError  string    // last error message if any
	Warnings   int       // number of WARNING lines seen
	OutputPath string    // destination reported by the tool
	ExitCode   int       // valid once Status is finished and the process ran
	Killed     bool      // true when the grace period expired and the process was force-killed
	StartedAt  time.Time // when the task was queued
	FinishedAt time.Time // when the process exited
}

// CompressionTask represents a single compression task
type CompressionTask struct {
	ID         string
	InputPath  string
	OutputPath string
	Status     TaskStatus
	Progress   float64 // 0.0 to 1.0
	Percent    int     // 0 to 100
	LastError  string  // last error message if any
	StartedAt  time.Time
	FinishedAt time.Time
}

// GetETAString returns ETA formatted as hh:mm:ss, or "—" if unknown
func (dt *DownloadTask) GetETAString() string {
	if dt.ETASec <= 0 {
		return "—"
	}

	hours := dt.ETASec / 3600
	minutes := (dt.ETASec % 3600) / 60
	seconds := dt.ETASec % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// GetDisplayTitle returns the destination filename, URL, or command line in order of preference
func (dt *DownloadTask) GetDisplayTitle() string {
	if dt.OutputPath != "" {
		// Support both / and \ separators
		parts := strings.FieldsFunc(dt.OutputPath, func(r rune) bool {
			return r == '/' || r == '\\'
		})
		if len(parts) > 0 {
			filename := parts[len(parts)-1]
			if idx := strings.LastIndex(filename, "."); idx > 0 {
				filename = filename[:idx]
			}
			return filename
		}
	}

	if dt.URL != "" {
		return dt.URL
	}
	return strings.Join(dt.Command, " ")
}

// ResultSummary describes how the task ended, for status lines and logs
func (dt *DownloadTask) ResultSummary() string {
	switch dt.Status {
	case TaskStatusCompleted:
		return "finished."
	case TaskStatusStopped:
		if dt.Killed {
			return "killed."
		}
		return fmt.Sprintf("terminated with returncode %d.", dt.ExitCode)
	case TaskStatusError:
		if dt.LastError != "" {
			return dt.LastError
		}
		return fmt.Sprintf("finished with returncode %d.", dt.ExitCode)
	default:
		return dt.Status.String()
	}
}
