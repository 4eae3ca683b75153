package compress

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ytget/ytdl-gui/internal/logger"
	"github.com/ytget/ytdl-gui/internal/model"
	"github.com/ytget/ytdl-gui/internal/process"
)

// FFmpeg constants for compression settings
const (
	// Video codec settings
	VideoCodec  = "libx264"
	VideoPreset = "medium"
	VideoCRF    = "23"

	// Audio codec settings
	AudioCodec   = "aac"
	AudioBitrate = "128k"

	// Container flags
	FastStartFlag = "+faststart"

	// Output suffix
	CompressedSuffix = "-compressed"

	// Executable and I/O constants
	FFmpegCommand       = "ffmpeg"
	FFprobeCommand      = "ffprobe"
	FFprobeLogLevel     = "error"
	FFprobeShowEntries  = "format=duration"
	FFprobeOutputFormat = "csv=p=0"
	ProgressPipeTarget  = "pipe:1"
	ProgressTimePrefix  = "out_time_us="
	TaskIDPrefix        = "compress-"
	OutputExtensionMP4  = ".mp4"
)

// ProbeTimeout bounds the ffprobe run
const ProbeTimeout = 30 * time.Second

// Options configure the external tools and how runs are stopped.
type Options struct {
	// FFmpeg and FFprobe are the launchers; the defaults run the programs from PATH.
	FFmpeg  process.Command
	FFprobe process.Command

	// Process is the launch template for both tools.
	Process process.Options

	TerminateDeadline time.Duration
	PollInterval      time.Duration
}

type entry struct {
	task          *model.CompressionTask
	sup           *process.Supervisor
	stopRequested bool
}

// Service handles video compression operations
type Service struct {
	opts       Options
	log        *slog.Logger
	tasks      map[string]*entry
	tasksMutex sync.RWMutex
	onUpdate   func(*model.CompressionTask) // callback for UI updates
}

var _ Compressor = (*Service)(nil)

// NewService creates a new compression service
func NewService(opts Options) *Service {
	if len(opts.FFmpeg) == 0 {
		opts.FFmpeg = process.Command{FFmpegCommand}
	}
	if len(opts.FFprobe) == 0 {
		opts.FFprobe = process.Command{FFprobeCommand}
	}
	if opts.TerminateDeadline <= 0 {
		opts.TerminateDeadline = process.DefaultTerminateDeadline
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = process.DefaultPollInterval
	}
	// Output is parsed line by line, never shown as a command echo
	opts.Process.EchoCommand = false
	opts.Process.PseudoTerminal = false

	return &Service{
		opts:  opts,
		log:   logger.WithComponent("compress"),
		tasks: make(map[string]*entry),
	}
}

// SetUpdateCallback sets the callback function for task updates
func (s *Service) SetUpdateCallback(callback func(*model.CompressionTask)) {
	s.tasksMutex.Lock()
	s.onUpdate = callback
	s.tasksMutex.Unlock()
}

// StartCompression starts compressing a video file
func (s *Service) StartCompression(inputPath string) (*model.CompressionTask, error) {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	// Check if compression is already in progress for this file
	for _, e := range s.tasks {
		if e.task.InputPath == inputPath && (e.task.Status == model.TaskStatusPending || e.task.Status.IsActive()) {
			return nil, fmt.Errorf("compression already in progress for file: %s", inputPath)
		}
	}

	// Check if input file exists
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("input file does not exist: %s", inputPath)
	}

	task := &model.CompressionTask{
		ID:         generateTaskID(),
		InputPath:  inputPath,
		OutputPath: generateOutputPath(inputPath),
		Status:     model.TaskStatusPending,
		StartedAt:  time.Now(),
	}
	e := &entry{task: task}
	s.tasks[task.ID] = e

	// Start compression in background
	go s.runCompression(e)

	cp := *task
	return &cp, nil
}

// StopCompression stops a running compression task. ffmpeg is asked to
// finish and killed after the terminate deadline; the partial output is
// removed.
func (s *Service) StopCompression(taskID string) error {
	s.tasksMutex.Lock()
	e, exists := s.tasks[taskID]
	if !exists {
		s.tasksMutex.Unlock()
		return fmt.Errorf("compression task not found: %s", taskID)
	}

	task := e.task
	if task.Status != model.TaskStatusPending && !task.Status.IsActive() {
		s.tasksMutex.Unlock()
		return fmt.Errorf("compression task is not active: %s", task.Status)
	}
	if e.stopRequested {
		s.tasksMutex.Unlock()
		return nil
	}

	e.stopRequested = true
	task.Status = model.TaskStatusStopping
	sup := e.sup
	notify := s.updateLocked(task)
	s.tasksMutex.Unlock()
	notify()

	if sup != nil {
		go s.terminate(taskID, sup)
	}
	return nil
}

// GetTask returns a snapshot of a compression task by ID
func (s *Service) GetTask(taskID string) (*model.CompressionTask, bool) {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()
	e, exists := s.tasks[taskID]
	if !exists {
		return nil, false
	}
	cp := *e.task
	return &cp, true
}

// buildFFmpegArgs builds the ffmpeg command arguments
func (s *Service) buildFFmpegArgs(inputPath, outputPath string) []string {
	return []string{
		"-y",            // Overwrite output file
		"-i", inputPath, // Input file
		"-c:v", VideoCodec, // Video codec
		"-preset", VideoPreset, // Encoding preset
		"-crf", VideoCRF, // Constant rate factor
		"-c:a", AudioCodec, // Audio codec
		"-b:a", AudioBitrate, // Audio bitrate
		"-movflags", FastStartFlag, // MP4 optimization
		"-progress", ProgressPipeTarget, // Progress to stdout, diagnostics stay on stderr
		"-nostats", // No stats output
		outputPath, // Output file
	}
}

// runCompression probes the input and runs ffmpeg on it
func (s *Service) runCompression(e *entry) {
	s.tasksMutex.Lock()
	task := e.task
	if e.stopRequested {
		task.Status = model.TaskStatusStopped
		task.FinishedAt = time.Now()
		notify := s.updateLocked(task)
		s.tasksMutex.Unlock()
		notify()
		return
	}
	task.Status = model.TaskStatusStarting
	notify := s.updateLocked(task)
	s.tasksMutex.Unlock()
	notify()

	// Get duration of input file for progress calculation
	duration, err := s.getVideoDuration(task.InputPath)
	if err != nil {
		s.log.Error("failed to get video duration", "taskID", task.ID, "input", task.InputPath, "error", err)
		s.setTaskError(e, err)
		return
	}

	cmd := append(s.opts.FFmpeg.Clone(), s.buildFFmpegArgs(task.InputPath, task.OutputPath)...)
	opts := s.opts.Process
	opts.Logger = s.log.With("taskID", task.ID)

	sup := process.NewSupervisor(opts)
	if err := sup.Start(cmd); err != nil {
		s.setTaskError(e, fmt.Errorf("failed to start ffmpeg: %w", err))
		return
	}

	s.tasksMutex.Lock()
	e.sup = sup
	stop := e.stopRequested
	if !stop {
		task.Status = model.TaskStatusRunning
	}
	notify = s.updateLocked(task)
	s.tasksMutex.Unlock()
	notify()
	if stop {
		go s.terminate(task.ID, sup)
	}

	var lastDiagnostic string
	sup.Follow(context.Background(), s.opts.PollInterval, func(lines []model.OutputLine) {
		changed := false
		for _, line := range lines {
			text := strings.TrimSpace(line.Text)
			if line.Source == model.SourceStderr {
				if text != "" {
					lastDiagnostic = text
				}
				continue
			}
			if progress, ok := parseProgress(text, duration); ok {
				s.tasksMutex.Lock()
				task.Progress = progress
				task.Percent = int(progress * 100)
				s.tasksMutex.Unlock()
				changed = true
			}
		}
		if changed {
			s.tasksMutex.RLock()
			notify := s.updateLocked(task)
			s.tasksMutex.RUnlock()
			notify()
		}
	})

	code, _ := sup.ExitCode()

	s.tasksMutex.Lock()
	switch {
	case e.stopRequested:
		task.Status = model.TaskStatusStopped
		// Remove partial output file
		os.Remove(task.OutputPath)
	case code != 0:
		task.Status = model.TaskStatusError
		task.LastError = fmt.Sprintf("ffmpeg exited with code %d", code)
		if lastDiagnostic != "" {
			task.LastError += ": " + lastDiagnostic
		}
		// Remove partial output file
		os.Remove(task.OutputPath)
	default:
		task.Status = model.TaskStatusCompleted
		task.Progress = 1.0
		task.Percent = 100
	}
	task.FinishedAt = time.Now()
	s.log.Info("compression finished", "taskID", task.ID, "status", task.Status, "exitCode", code)
	notify = s.updateLocked(task)
	s.tasksMutex.Unlock()
	notify()
}

// terminate runs the graceful-then-forced stop of one ffmpeg run
func (s *Service) terminate(taskID string, sup *process.Supervisor) {
	forced, err := sup.TerminateWithDeadline(context.Background(), s.opts.TerminateDeadline, s.opts.PollInterval)
	if err != nil {
		s.log.Error("failed to stop compression", "taskID", taskID, "error", err)
		return
	}
	s.log.Info("compression stop requested", "taskID", taskID, "forced", forced)
}

// getVideoDuration gets the duration of a video file using ffprobe
func (s *Service) getVideoDuration(filePath string) (float64, error) {
	cmd := append(s.opts.FFprobe.Clone(), "-v", FFprobeLogLevel, "-show_entries", FFprobeShowEntries, "-of", FFprobeOutputFormat, filePath)

	sup, err := process.Start(cmd, s.opts.Process)
	if err != nil {
		return 0, fmt.Errorf("failed to run ffprobe: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), ProbeTimeout)
	defer cancel()
	if err := sup.Wait(ctx); err != nil {
		sup.Kill()
		return 0, fmt.Errorf("ffprobe did not finish: %w", err)
	}

	var stdout, stderr []string
	for _, line := range sup.Drain() {
		text := strings.TrimSpace(line.Text)
		if text == "" {
			continue
		}
		if line.Source == model.SourceStdout {
			stdout = append(stdout, text)
		} else {
			stderr = append(stderr, text)
		}
	}

	if code, _ := sup.ExitCode(); code != 0 {
		return 0, fmt.Errorf("ffprobe exited with code %d: %s", code, strings.Join(stderr, "; "))
	}
	if len(stdout) == 0 {
		return 0, fmt.Errorf("ffprobe printed no duration")
	}

	duration, err := strconv.ParseFloat(stdout[0], 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return duration, nil
}

// parseProgress converts an out_time_us line to a 0..1 fraction of totalDuration
func parseProgress(line string, totalDuration float64) (float64, bool) {
	if totalDuration <= 0 || !strings.HasPrefix(line, ProgressTimePrefix) {
		return 0, false
	}
	timeMicroseconds, err := strconv.ParseInt(strings.TrimPrefix(line, ProgressTimePrefix), 10, 64)
	if err != nil || timeMicroseconds < 0 {
		return 0, false
	}
	return min(float64(timeMicroseconds)/1e6/totalDuration, 1.0), true
}

// setTaskError sets an error state for a task
func (s *Service) setTaskError(e *entry, err error) {
	s.tasksMutex.Lock()
	task := e.task
	if e.stopRequested {
		task.Status = model.TaskStatusStopped
	} else {
		task.Status = model.TaskStatusError
		task.LastError = err.Error()
	}
	task.FinishedAt = time.Now()
	notify := s.updateLocked(task)
	s.tasksMutex.Unlock()
	notify()
}

// updateLocked snapshots task for the update callback. Caller must hold
// tasksMutex; call the result after unlocking.
func (s *Service) updateLocked(task *model.CompressionTask) func() {
	callback := s.onUpdate
	if callback == nil {
		return func() {}
	}
	cp := *task
	return func() { callback(&cp) }
}

// generateOutputPath generates the output path for compressed file
func generateOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	baseName := strings.TrimSuffix(inputPath, ext)
	return baseName + CompressedSuffix + OutputExtensionMP4
}

// generateTaskID generates a unique task ID using UUID v7 for time ordering
func generateTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to timestamp if UUID generation fails
		return fmt.Sprintf(TaskIDPrefix+"%d", time.Now().UnixNano())
	}
	return TaskIDPrefix + id.String()
}
