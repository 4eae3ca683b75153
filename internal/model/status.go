package model

// TaskStatus represents the status of a download or compression task
type TaskStatus string

const (
	// TaskStatusPending means the task is queued but not started
	TaskStatusPending TaskStatus = "Pending"

	// TaskStatusStarting means the process is being spawned
	TaskStatusStarting TaskStatus = "Starting"

	// TaskStatusRunning means the process is alive and its output is being drained
	TaskStatusRunning TaskStatus = "Running"

	// TaskStatusStopping means termination was requested and the grace period is running
	TaskStatusStopping TaskStatus = "Stopping"

	// TaskStatusStopped means the task was stopped by user
	TaskStatusStopped TaskStatus = "Stopped"

	// TaskStatusCompleted means the process exited with code 0
	TaskStatusCompleted TaskStatus = "Completed"

	// TaskStatusError means the process could not be spawned or exited non-zero
	TaskStatusError TaskStatus = "Error"
)

// String returns the string representation of TaskStatus
func (ts TaskStatus) String() string {
	return string(ts)
}

// IsActive returns true if the task is in an active state
func (ts TaskStatus) IsActive() bool {
	return ts == TaskStatusStarting || ts == TaskStatusRunning || ts == TaskStatusStopping
}

// IsFinished returns true if the task is in a finished state (completed, stopped, or error)
func (ts TaskStatus) IsFinished() bool {
	return ts == TaskStatusCompleted || ts == TaskStatusStopped || ts == TaskStatusError
}

// ProcessState is the lifecycle state of one supervised process.
// Transitions are monotonic: NotStarted -> Running -> Finished.
type ProcessState string

const (
	ProcessNotStarted ProcessState = "NotStarted"
	ProcessRunning    ProcessState = "Running"
	ProcessFinished   ProcessState = "Finished"
)

// String returns the string representation of ProcessState
func (ps ProcessState) String() string {
	return string(ps)
}

// CanAdvanceTo reports whether moving from ps to next is a legal transition.
func (ps ProcessState) CanAdvanceTo(next ProcessState) bool {
	switch ps {
	case ProcessNotStarted:
		return next == ProcessRunning
	case ProcessRunning:
		return next == ProcessFinished
	default:
		return false
	}
}
