package process

import (
	"sync"

	"github.com/ytget/ytdl-gui/internal/model"
)

// Buffer is an unbounded, arrival-ordered queue of output lines, safe for
// concurrent producers and a draining consumer.
type Buffer struct {
	mu    sync.Mutex
	lines []model.OutputLine
}

// NewBuffer creates an empty Buffer
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Push appends a line
func (b *Buffer) Push(line model.OutputLine) {
	b.mu.Lock()
	b.lines = append(b.lines, line)
	b.mu.Unlock()
}

// Drain removes and returns every buffered line in arrival order.
// It never waits for producers; it returns nil when nothing is pending.
func (b *Buffer) Drain() []model.OutputLine {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.lines) == 0 {
		return nil
	}
	lines := b.lines
	b.lines = nil
	return lines
}

// Len returns the number of lines waiting to be drained
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}
