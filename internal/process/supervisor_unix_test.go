//go:build unix

package process

import (
	"testing"
)

func TestSupervisorPseudoTerminal(t *testing.T) {
	opts := helperOptions("isatty")
	opts.PseudoTerminal = true

	s, err := Start(helperCommand(t), opts)
	if err != nil {
		t.Skipf("pseudo-terminal unavailable: %v", err)
	}
	lines := drainAll(t, s)

	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %v", lines)
	}
	// Raw mode keeps '\n' as is instead of "\r\n"
	if lines[0].Text != "tty=true\n" || lines[1].Text != "next\n" {
		t.Errorf("Expected [tty=true next] on a terminal, got %q %q", lines[0].Text, lines[1].Text)
	}
	if code, _ := s.ExitCode(); code != 0 {
		t.Errorf("Expected exit code 0, got %d", code)
	}
}

func TestSupervisorPipeIsNotTerminal(t *testing.T) {
	s := startHelper(t, "isatty")
	lines := drainAll(t, s)
	if len(lines) == 0 || lines[0].Text != "tty=false\n" {
		t.Errorf("Expected tty=false on a pipe, got %v", lines)
	}
}
