// Package process supervises one external command-line process at a time.
//
// A Supervisor spawns the command with its stdout and stderr redirected to
// pipes it owns, and runs one pump goroutine per stream. Each pump splits
// the stream into lines on '\n' or '\r' and appends them, tagged with their
// source, to a shared Buffer. Callers poll the supervisor from a UI-paced
// loop: Drain, IsRunning, IsFinished and ExitCode never block. Cancellation
// is graceful first (Terminate) and forced after a deadline (Kill), composed
// by TerminateWithDeadline.
//
// A Supervisor is single-use: create a new one for every launch.
package process
