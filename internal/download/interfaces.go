package download

import (
	"context"

	"github.com/ytget/ytdl-gui/internal/model"
)

// Downloader defines the interface for the download service.
type Downloader interface {
	SetUpdateCallback(func(*model.DownloadTask))
	SetOutputCallback(func(taskID string, line model.OutputLine))
	AddTask(url string) (*model.DownloadTask, error)
	AddCustomTask(args string) (*model.DownloadTask, error)
	GetTask(id string) (*model.DownloadTask, bool)
	GetAllTasks() []*model.DownloadTask
	StopTask(id string) error
	KillTask(id string) error
	RemoveTask(id string) error
	Shutdown(ctx context.Context) error

	// SetQualityPreset configures quality selection for downloads (best/medium/audio)
	SetQualityPreset(preset string)

	// SetMaxParallelDownloads sets the maximum number of parallel downloads
	SetMaxParallelDownloads(max int)

	// SetDownloadDirectory sets the download directory
	SetDownloadDirectory(dir string)
}
