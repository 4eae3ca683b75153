package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ytget/ytdl-gui/internal/logger"
	"github.com/ytget/ytdl-gui/internal/model"
	"github.com/ytget/ytdl-gui/internal/platform"
	"github.com/ytget/ytdl-gui/internal/process"
)

// Quality presets understood by SetQualityPreset
const (
	PresetBest   = "best"
	PresetMedium = "medium"
	PresetAudio  = "audio"
)

// Format selectors used by the presets
const (
	FormatBest       = "bestvideo+bestaudio/best"
	FormatMedium     = "best[height<=720]/best"
	AudioFormatAudio = "mp3"
)

// TaskIDPrefix prefixes download task IDs
const TaskIDPrefix = "task-"

// Options tune how the service launches and stops runs.
type Options struct {
	// Process is the launch template; WorkingDir is replaced by the download directory.
	Process process.Options

	TerminateDeadline time.Duration
	PollInterval      time.Duration

	FilenameTemplate  string
	AdditionalOptions string
	NoMarkWatched     bool
}

// entry is the service's private state for one task
type entry struct {
	task *model.DownloadTask
	cmd  process.Command
	echo bool
	dir  string // working directory of the run

	sup           *process.Supervisor
	stopRequested bool
}

// Service handles download operations
type Service struct {
	builder *platform.Builder
	log     *slog.Logger

	tasks       map[string]*entry
	order       []string
	tasksMutex  sync.RWMutex
	maxParallel int
	activeCount int
	downloadDir string
	preset      string
	opts        Options
	running     sync.WaitGroup

	onUpdate func(*model.DownloadTask)                // callback for UI updates
	onOutput func(taskID string, line model.OutputLine) // callback for raw output
}

var _ Downloader = (*Service)(nil)

// NewService creates a new download service
func NewService(builder *platform.Builder, downloadDir string, maxParallel int, opts Options) *Service {
	if opts.TerminateDeadline <= 0 {
		opts.TerminateDeadline = process.DefaultTerminateDeadline
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = process.DefaultPollInterval
	}
	return &Service{
		builder:     builder,
		log:         logger.WithComponent("download"),
		tasks:       make(map[string]*entry),
		maxParallel: max(1, maxParallel),
		downloadDir: downloadDir,
		preset:      PresetMedium,
		opts:        opts,
	}
}

// SetUpdateCallback sets the callback function for task updates.
// It receives a snapshot of the task.
func (s *Service) SetUpdateCallback(callback func(*model.DownloadTask)) {
	s.tasksMutex.Lock()
	s.onUpdate = callback
	s.tasksMutex.Unlock()
}

// SetOutputCallback sets the callback receiving every output line of every run
func (s *Service) SetOutputCallback(callback func(taskID string, line model.OutputLine)) {
	s.tasksMutex.Lock()
	s.onOutput = callback
	s.tasksMutex.Unlock()
}

// SetQualityPreset configures quality selection for new downloads
func (s *Service) SetQualityPreset(preset string) {
	s.tasksMutex.Lock()
	s.preset = preset
	s.tasksMutex.Unlock()
}

// SetMaxParallelDownloads sets the maximum number of parallel downloads and
// starts queued tasks if the limit went up
func (s *Service) SetMaxParallelDownloads(maxParallel int) {
	s.tasksMutex.Lock()
	s.maxParallel = max(1, maxParallel)
	s.tasksMutex.Unlock()

	s.startPendingTasks()
}

// SetDownloadDirectory sets the directory new runs start in
func (s *Service) SetDownloadDirectory(dir string) {
	s.tasksMutex.Lock()
	s.downloadDir = dir
	s.tasksMutex.Unlock()
}

// requestFor builds the download request for url under the current preset.
// Caller must hold tasksMutex.
func (s *Service) requestFor(url string) platform.Request {
	req := platform.Request{
		URL:               url,
		AdditionalOptions: s.opts.AdditionalOptions,
		NoMarkWatched:     s.opts.NoMarkWatched,
	}
	if s.opts.FilenameTemplate != "" {
		req.OutputTemplate = s.opts.FilenameTemplate
	}

	switch s.preset {
	case PresetBest:
		req.VideoFormat = FormatBest
	case PresetAudio:
		req.AudioOnly = true
		req.AudioFormat = AudioFormatAudio
	default:
		req.VideoFormat = FormatMedium
	}
	return req
}

// AddTask adds a new download task for url
func (s *Service) AddTask(url string) (*model.DownloadTask, error) {
	url = strings.TrimSpace(url)

	s.tasksMutex.Lock()
	// Check for duplicate URLs
	for _, e := range s.tasks {
		if e.task.URL == url && !e.task.Status.IsFinished() {
			s.tasksMutex.Unlock()
			return nil, fmt.Errorf("task already exists for URL: %s", url)
		}
	}

	cmd, echo, err := s.builder.SingleVideo(s.requestFor(url))
	if err != nil {
		s.tasksMutex.Unlock()
		return nil, fmt.Errorf("failed to build command: %w", err)
	}
	task := s.addLocked(url, cmd, echo)
	s.tasksMutex.Unlock()

	s.startPendingTasks()
	return task, nil
}

// AddCustomTask adds a task running the download tool with free-form arguments
func (s *Service) AddCustomTask(args string) (*model.DownloadTask, error) {
	cmd, err := s.builder.Custom(args, false)
	if err != nil {
		return nil, fmt.Errorf("failed to build command: %w", err)
	}

	s.tasksMutex.Lock()
	task := s.addLocked("", cmd, true)
	s.tasksMutex.Unlock()

	s.startPendingTasks()
	return task, nil
}

// addLocked registers a pending task. Caller must hold tasksMutex.
func (s *Service) addLocked(url string, cmd process.Command, echo bool) *model.DownloadTask {
	task := &model.DownloadTask{
		ID:        generateTaskID(),
		URL:       url,
		Command:   cmd.Clone(),
		Status:    model.TaskStatusPending,
		ETASec:    -1,
		StartedAt: time.Now(),
	}
	s.tasks[task.ID] = &entry{task: task, cmd: cmd, echo: echo}
	s.order = append(s.order, task.ID)
	s.log.Info("task queued", "taskID", task.ID, "command", cmd.String())
	return snapshot(task)
}

// GetTask returns a snapshot of the task with the given ID
func (s *Service) GetTask(id string) (*model.DownloadTask, bool) {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()
	e, exists := s.tasks[id]
	if !exists {
		return nil, false
	}
	return snapshot(e.task), true
}

// GetAllTasks returns snapshots of all tasks in the order they were added
func (s *Service) GetAllTasks() []*model.DownloadTask {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()

	tasks := make([]*model.DownloadTask, 0, len(s.order))
	for _, id := range s.order {
		tasks = append(tasks, snapshot(s.tasks[id].task))
	}
	return tasks
}

// StopTask stops a task. A queued task is dropped from the queue; a running
// one is asked to exit and killed if it is still alive after the terminate
// deadline. Output keeps being collected meanwhile.
func (s *Service) StopTask(id string) error {
	s.tasksMutex.Lock()
	e, exists := s.tasks[id]
	if !exists {
		s.tasksMutex.Unlock()
		return fmt.Errorf("task not found: %s", id)
	}

	task := e.task
	switch {
	case task.Status == model.TaskStatusPending:
		task.Status = model.TaskStatusStopped
		task.FinishedAt = time.Now()
		update := s.updateLocked(task)
		s.tasksMutex.Unlock()
		update()
		return nil

	case !task.Status.IsActive():
		s.tasksMutex.Unlock()
		return fmt.Errorf("task is not active: %s", task.Status)

	case e.stopRequested:
		s.tasksMutex.Unlock()
		return nil
	}

	e.stopRequested = true
	task.Status = model.TaskStatusStopping
	sup := e.sup
	update := s.updateLocked(task)
	s.tasksMutex.Unlock()
	update()

	// Without a supervisor the run is still spawning; runTask sees the
	// request once the process exists.
	if sup != nil {
		go s.terminate(task.ID, sup)
	}
	return nil
}

// KillTask ends a running task immediately
func (s *Service) KillTask(id string) error {
	s.tasksMutex.Lock()
	e, exists := s.tasks[id]
	if !exists {
		s.tasksMutex.Unlock()
		return fmt.Errorf("task not found: %s", id)
	}
	if !e.task.Status.IsActive() || e.sup == nil {
		s.tasksMutex.Unlock()
		return fmt.Errorf("task is not running: %s", e.task.Status)
	}
	e.stopRequested = true
	e.task.Status = model.TaskStatusStopping
	sup := e.sup
	update := s.updateLocked(e.task)
	s.tasksMutex.Unlock()
	update()

	return sup.Kill()
}

// RemoveTask removes a task that is queued or finished
func (s *Service) RemoveTask(id string) error {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	e, exists := s.tasks[id]
	if !exists {
		return fmt.Errorf("task not found: %s", id)
	}
	if e.task.Status.IsActive() {
		return fmt.Errorf("cannot remove active task: %s", e.task.Status)
	}

	delete(s.tasks, id)
	s.order = slices.DeleteFunc(s.order, func(other string) bool { return other == id })
	return nil
}

// Shutdown stops every queued and running task and waits for the runs to
// end, or for ctx.
func (s *Service) Shutdown(ctx context.Context) error {
	s.tasksMutex.RLock()
	ids := slices.Clone(s.order)
	s.tasksMutex.RUnlock()

	for _, id := range ids {
		if task, ok := s.GetTask(id); ok && (task.Status == model.TaskStatusPending || task.Status.IsActive()) {
			if err := s.StopTask(id); err != nil {
				s.log.Warn("stop during shutdown failed", "taskID", id, "error", err)
			}
		}
	}

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// terminate runs the graceful-then-forced stop of one run
func (s *Service) terminate(taskID string, sup *process.Supervisor) {
	s.tasksMutex.RLock()
	deadline, poll := s.opts.TerminateDeadline, s.opts.PollInterval
	s.tasksMutex.RUnlock()

	forced, err := sup.TerminateWithDeadline(context.Background(), deadline, poll)
	if err != nil {
		s.log.Error("failed to stop task", "taskID", taskID, "error", err)
		return
	}
	s.log.Info("task stop requested", "taskID", taskID, "forced", forced)
}

// startPendingTasks starts queued tasks while there is capacity
func (s *Service) startPendingTasks() {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	for _, id := range s.order {
		if s.activeCount >= s.maxParallel {
			return
		}
		e := s.tasks[id]
		if e.task.Status != model.TaskStatusPending {
			continue
		}
		e.task.Status = model.TaskStatusStarting
		s.activeCount++
		s.running.Add(1)
		go s.runTask(e)
	}
}

// runTask spawns one run and polls it until its output is exhausted
func (s *Service) runTask(e *entry) {
	defer s.running.Done()
	defer s.startPendingTasks()

	s.tasksMutex.Lock()
	task := e.task
	opts := s.opts.Process
	opts.WorkingDir = s.downloadDir
	e.dir = s.downloadDir
	opts.EchoCommand = opts.EchoCommand && e.echo
	opts.Logger = s.log.With("taskID", task.ID)
	poll := s.opts.PollInterval
	update := s.updateLocked(task)
	s.tasksMutex.Unlock()
	update()

	if err := platform.CreateDirectoryIfNotExists(opts.WorkingDir); err != nil {
		s.finishWithError(e, fmt.Errorf("failed to create download directory: %w", err))
		return
	}

	sup := process.NewSupervisor(opts)
	if err := sup.Start(e.cmd); err != nil {
		s.finishWithError(e, describeSpawnError(err))
		return
	}

	s.tasksMutex.Lock()
	e.sup = sup
	stop := e.stopRequested
	if !stop {
		task.Status = model.TaskStatusRunning
	}
	update = s.updateLocked(task)
	s.tasksMutex.Unlock()
	update()

	if stop {
		go s.terminate(task.ID, sup)
	}

	// Follow returns only once the process exited and both streams hit EOF
	sup.Follow(context.Background(), poll, func(lines []model.OutputLine) {
		s.handleOutput(e, lines)
	})
	s.finish(e)
}

// handleOutput updates the task from a batch of output lines
func (s *Service) handleOutput(e *entry, lines []model.OutputLine) {
	s.tasksMutex.Lock()
	task := e.task
	onOutput := s.onOutput
	for _, line := range lines {
		text := line.Text
		if p, ok := platform.ParseProgress(text); ok {
			task.Percent = int(p.Percent)
			task.Progress = p.Percent / 100.0
			task.Speed = p.Speed
			task.ETASec = p.ETASec
		}
		if dest, ok := platform.Destination(text); ok {
			task.OutputPath = dest
		}
		if platform.IsError(text) {
			task.LastError = strings.TrimSpace(text)
		} else if platform.IsWarning(text) {
			task.Warnings++
		}
	}
	update := s.updateLocked(task)
	s.tasksMutex.Unlock()

	if onOutput != nil {
		for _, line := range lines {
			onOutput(task.ID, line)
		}
	}
	update()
}

// finish records the exit of a run
func (s *Service) finish(e *entry) {
	code, err := e.sup.ExitCode()
	if err != nil {
		s.log.Error("exit code unavailable", "taskID", e.task.ID, "error", err)
		code = -1
	}

	s.tasksMutex.Lock()
	task := e.task
	task.ExitCode = code
	task.Killed = e.sup.Killed()
	task.FinishedAt = time.Now()
	switch {
	case e.stopRequested:
		task.Status = model.TaskStatusStopped
	case code == 0:
		task.Status = model.TaskStatusCompleted
		task.Progress = 1.0
		task.Percent = 100
		task.ETASec = 0
		if task.OutputPath != "" {
			dest := task.OutputPath
			if !filepath.IsAbs(dest) {
				dest = filepath.Join(e.dir, dest)
			}
			if resolved, err := platform.ResolveOutputFile(dest); err == nil {
				task.OutputPath = resolved
			}
		}
	default:
		task.Status = model.TaskStatusError
		if task.LastError == "" {
			task.LastError = fmt.Sprintf("finished with returncode %d.", code)
		}
	}
	s.activeCount--
	s.log.Info("task finished", "taskID", task.ID, "status", task.Status, "exitCode", code, "killed", task.Killed)
	update := s.updateLocked(task)
	s.tasksMutex.Unlock()
	update()
}

// finishWithError records a run that never started
func (s *Service) finishWithError(e *entry, err error) {
	s.tasksMutex.Lock()
	task := e.task
	if e.stopRequested {
		task.Status = model.TaskStatusStopped
	} else {
		task.Status = model.TaskStatusError
		task.LastError = err.Error()
	}
	task.FinishedAt = time.Now()
	s.activeCount--
	s.log.Warn("task failed to start", "taskID", task.ID, "error", err)
	update := s.updateLocked(task)
	s.tasksMutex.Unlock()
	update()
}

// describeSpawnError turns launch failures into messages a user can act on
func describeSpawnError(err error) error {
	var se *process.SpawnError
	if !errors.As(err, &se) {
		return err
	}
	switch se.Kind {
	case process.SpawnNotFound:
		return fmt.Errorf("%s was not found; install it or configure the downloader command: %w", se.Path, err)
	case process.SpawnPermissionDenied:
		return fmt.Errorf("%s is not executable; check its permissions: %w", se.Path, err)
	default:
		return err
	}
}

// updateLocked snapshots task and returns a function notifying the update
// callback with it. Caller must hold tasksMutex; call the result after
// unlocking.
func (s *Service) updateLocked(task *model.DownloadTask) func() {
	callback := s.onUpdate
	if callback == nil {
		return func() {}
	}
	snap := snapshot(task)
	return func() { callback(snap) }
}

// snapshot returns a copy of task safe to hand out
func snapshot(task *model.DownloadTask) *model.DownloadTask {
	cp := *task
	cp.Command = slices.Clone(task.Command)
	return &cp
}

// generateTaskID generates a unique, time-ordered task ID
func generateTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(TaskIDPrefix+"%d", time.Now().UnixNano())
	}
	return TaskIDPrefix + id.String()
}
