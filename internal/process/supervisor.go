package process

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ytget/ytdl-gui/internal/logger"
	"github.com/ytget/ytdl-gui/internal/model"
)

// Supervisor owns one invocation of an external process.
//
// All query methods and Drain are safe for concurrent use and never block.
type Supervisor struct {
	id   string
	opts Options
	log  *slog.Logger
	buf  *Buffer

	mu       sync.Mutex
	state    model.ProcessState
	command  Command
	cmd      *exec.Cmd
	exitCode int
	signaled bool
	killed   bool

	pumps  sync.WaitGroup
	exited chan struct{}
	done   chan struct{}
}

// NewSupervisor creates a supervisor that has not started anything yet
func NewSupervisor(opts Options) *Supervisor {
	id := generateRunID()
	log := opts.Logger
	if log == nil {
		log = logger.WithRun("process", id)
	} else {
		log = log.With("runID", id)
	}

	return &Supervisor{
		id:     id,
		opts:   opts,
		log:    log,
		buf:    NewBuffer(),
		state:  model.ProcessNotStarted,
		exited: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start creates a supervisor and launches command with it
func Start(command Command, opts Options) (*Supervisor, error) {
	s := NewSupervisor(opts)
	if err := s.Start(command); err != nil {
		return nil, err
	}
	return s, nil
}

// generateRunID returns a time-ordered unique identifier
func generateRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Start spawns the process and begins capturing its output.
//
// Launch failures are returned as *SpawnError and leave the supervisor in
// the NotStarted state. A supervisor can be started only once.
func (s *Supervisor) Start(command Command) error {
	if command.Program() == "" {
		return ErrEmptyCommand
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.CanAdvanceTo(model.ProcessRunning) {
		return ErrAlreadyStarted
	}

	dec, err := newDecoder(s.opts.Encoding)
	if err != nil {
		return err
	}

	// A missing working directory would otherwise surface as ENOENT from
	// chdir and be mistaken for a missing executable.
	if dir := s.opts.WorkingDir; dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return &SpawnError{Kind: SpawnOther, Path: command.Program(), Err: fmt.Errorf("working directory: %w", err)}
		}
		if !info.IsDir() {
			return &SpawnError{Kind: SpawnOther, Path: command.Program(), Err: fmt.Errorf("working directory %s is not a directory", dir)}
		}
	}

	command = command.Clone()
	cmd := exec.Command(command.Program(), command.Args()...)
	cmd.Dir = s.opts.WorkingDir
	if len(s.opts.Env) > 0 {
		cmd.Env = append(os.Environ(), s.opts.Env...)
	}
	configureCommand(cmd)

	stdoutR, stdoutW, err := s.openStdout()
	if err != nil {
		return &SpawnError{Kind: SpawnOther, Path: command.Program(), Err: err}
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return &SpawnError{Kind: SpawnOther, Path: command.Program(), Err: fmt.Errorf("failed to create stderr pipe: %w", err)}
	}

	// The write ends are *os.File, so exec hands them to the child directly
	// and Wait never closes the read ends under the pumps.
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		spawnErr := newSpawnError(command.Program(), err)
		s.log.Warn("spawn failed", "command", command.String(), "kind", spawnErr.Kind, "error", err)
		return spawnErr
	}

	// Only the child holds the write ends now, so the pumps see EOF when it
	// and its descendants exit.
	stdoutW.Close()
	stderrW.Close()

	s.command = command
	s.cmd = cmd
	s.advanceLocked(model.ProcessRunning)
	s.log.Info("process started", "command", command.String(), "pid", cmd.Process.Pid, "dir", cmd.Dir)

	if s.opts.EchoCommand {
		s.buf.Push(model.OutputLine{Text: "cmd: " + command.String() + "\n", Source: model.SourceStdout})
	}

	s.pumps.Add(2)
	go func() {
		defer s.pumps.Done()
		runPump(stdoutR, model.SourceStdout, s.buf, dec, s.log)
	}()
	go func() {
		defer s.pumps.Done()
		runPump(stderrR, model.SourceStderr, s.buf, dec, s.log)
	}()
	go s.wait(cmd)

	return nil
}

func (s *Supervisor) openStdout() (io.ReadCloser, *os.File, error) {
	if s.opts.PseudoTerminal {
		return openStdoutTerminal()
	}
	r, w, err := os.Pipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	return r, w, nil
}

// wait is the only caller of cmd.Wait.
func (s *Supervisor) wait(cmd *exec.Cmd) {
	err := cmd.Wait()

	s.mu.Lock()
	if cmd.ProcessState != nil {
		s.exitCode, s.signaled = exitStatus(cmd.ProcessState)
	} else {
		s.exitCode = -1
	}
	if !s.advanceLocked(model.ProcessFinished) {
		s.log.Error("exit observed in unexpected state", "state", s.state)
	}
	code, killed := s.exitCode, s.killed
	s.mu.Unlock()
	close(s.exited)

	if cmd.ProcessState == nil {
		s.log.Error("wait failed", "error", err)
	} else {
		s.log.Info("process exited", "exitCode", code, "killed", killed)
	}

	s.pumps.Wait()
	close(s.done)
	s.log.Debug("output streams closed")
}

// advanceLocked moves the state machine forward and reports whether the
// transition was legal. Caller must hold mu.
func (s *Supervisor) advanceLocked(next model.ProcessState) bool {
	if !s.state.CanAdvanceTo(next) {
		return false
	}
	s.state = next
	return true
}

// ID returns the run identifier used in log records
func (s *Supervisor) ID() string {
	return s.id
}

// Command returns a copy of the launched command, nil before Start
func (s *Supervisor) Command() Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.command.Clone()
}

// PID returns the operating system process ID, or 0 before Start
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// State returns the current lifecycle state
func (s *Supervisor) State() model.ProcessState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsRunning reports whether the process was started and has not exited
func (s *Supervisor) IsRunning() bool {
	return s.State() == model.ProcessRunning
}

// IsFinished reports whether the operating system has reported the exit
func (s *Supervisor) IsFinished() bool {
	return s.State() == model.ProcessFinished
}

// ExitCode returns the exit code of a finished process. A process ended by
// a signal reports the negated signal number.
func (s *Supervisor) ExitCode() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != model.ProcessFinished {
		return 0, ErrNotFinished
	}
	return s.exitCode, nil
}

// Signaled reports whether the process was ended by a signal
func (s *Supervisor) Signaled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signaled
}

// Killed reports whether Kill was delivered while the process was running
func (s *Supervisor) Killed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killed
}

// Drain removes and returns all buffered output lines, oldest first.
// It returns nil when nothing is pending.
func (s *Supervisor) Drain() []model.OutputLine {
	return s.buf.Drain()
}

// Done is closed once the process has exited and both output streams
// have been read to the end. After that a final Drain returns everything
// the process wrote.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until Done is closed or ctx is cancelled.
func (s *Supervisor) Wait(ctx context.Context) error {
	if s.State() == model.ProcessNotStarted {
		return ErrNotRunning
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Terminate asks the process to exit. It does not wait.
func (s *Supervisor) Terminate() error {
	return s.signal("terminate", terminateProcess)
}

// Kill ends the process unconditionally. It does not wait for the exit to
// be reported.
func (s *Supervisor) Kill() error {
	return s.signal("kill", killProcess)
}

func (s *Supervisor) signal(action string, send func(*os.Process) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case model.ProcessNotStarted:
		return ErrNotRunning
	case model.ProcessFinished:
		return nil
	}

	pid := s.cmd.Process.Pid
	if err := send(s.cmd.Process); err != nil {
		s.log.Error("signal failed", "action", action, "pid", pid, "error", err)
		return fmt.Errorf("failed to %s process %d: %w", action, pid, err)
	}
	if action == "kill" {
		s.killed = true
	}
	s.log.Info("signal sent", "action", action, "pid", pid)
	return nil
}

// TerminateWithDeadline asks the process to exit, polls for the exit every
// pollInterval, and kills it if it is still running after deadline.
// Cancelling ctx cuts the grace period short and kills at once.
//
// forced reports whether Kill was needed.
func (s *Supervisor) TerminateWithDeadline(ctx context.Context, deadline, pollInterval time.Duration) (forced bool, err error) {
	if err := s.Terminate(); err != nil {
		return false, err
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	timer := time.NewTimer(deadline)
	defer timer.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

wait:
	for !s.IsFinished() {
		select {
		case <-ticker.C:
		case <-timer.C:
			break wait
		case <-ctx.Done():
			s.log.Info("grace period cancelled", "error", ctx.Err())
			break wait
		}
	}

	if s.IsFinished() {
		return false, nil
	}

	s.log.Warn("process ignored terminate, killing", "deadline", deadline)
	if err := s.Kill(); err != nil {
		return false, err
	}
	return s.Killed(), nil
}

// Follow drains the output every interval and passes each non-empty batch
// to handle, until the process has exited and its output is exhausted or
// ctx is cancelled. handle runs on the calling goroutine.
func (s *Supervisor) Follow(ctx context.Context, interval time.Duration, handle func([]model.OutputLine)) error {
	if s.State() == model.ProcessNotStarted {
		return ErrNotRunning
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if lines := s.Drain(); len(lines) > 0 {
			handle(lines)
		}
		select {
		case <-s.done:
			if lines := s.Drain(); len(lines) > 0 {
				handle(lines)
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
