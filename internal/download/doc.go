// Package download runs the download tool as supervised processes. It keeps
// the task list, enforces the parallel run limit with a pending queue, polls
// each run's output to track progress, and stops runs gracefully with a
// forced kill after a grace period.
package download
