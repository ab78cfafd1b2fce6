package wifi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const (
	// Runtime is the macOS wireless diagnostics utility
	Runtime = "wdutil"

	sudoRuntime = "sudo"
)

// Source fetches one raw output block from the metrics command.
type Source interface {
	Fetch(ctx context.Context) (string, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (string, error)

func (f SourceFunc) Fetch(ctx context.Context) (string, error) {
	return f(ctx)
}

// WithArgs sets the command arguments
func WithArgs(args ...string) func(*CommandSource) {
	return func(s *CommandSource) {
		s.args = args
	}
}

// WithSudo runs the command through non-interactive sudo, so a missing
// credential fails the tick instead of blocking on a password prompt.
func WithSudo(enabled bool) func(*CommandSource) {
	return func(s *CommandSource) {
		s.sudo = enabled
	}
}

// CommandSource invokes an external command once per Fetch.
type CommandSource struct {
	command string
	args    []string
	sudo    bool

	binPath  string
	lookPath func(string) (string, error)
}

// NewCommandSource creates a source for the given command. The binary is
// resolved lazily on the first Fetch, and again after a lookup failure.
func NewCommandSource(command string, options ...func(*CommandSource)) *CommandSource {
	s := CommandSource{
		command:  command,
		args:     []string{"info"},
		lookPath: exec.LookPath,
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Fetch runs the command and returns its standard output. Any failure,
// including empty output, wraps ErrSourceUnavailable.
func (s *CommandSource) Fetch(ctx context.Context) (string, error) {
	name, args, err := s.commandLine()
	if err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err = cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s: %w: %s", ErrSourceUnavailable, s.command, err, msg)
		}
		return "", fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, s.command, err)
	}

	out := stdout.String()
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%w: %s: empty output", ErrSourceUnavailable, s.command)
	}

	return out, nil
}

// String returns the command line executed by Fetch.
func (s *CommandSource) String() string {
	parts := []string{s.command}
	if s.sudo {
		parts = []string{sudoRuntime, "-n", s.command}
	}
	return strings.Join(append(parts, s.args...), " ")
}

func (s *CommandSource) commandLine() (string, []string, error) {
	if s.binPath == "" {
		binPath, err := s.findBinary()
		if err != nil {
			return "", nil, err
		}
		s.binPath = binPath
	}

	if !s.sudo {
		return s.binPath, s.args, nil
	}

	args := make([]string, 0, len(s.args)+2)
	args = append(args, "-n", s.binPath)
	args = append(args, s.args...)
	return sudoRuntime, args, nil
}

func (s *CommandSource) findBinary() (string, error) {
	binPath, err := s.lookPath(s.command)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", NewRuntimeError(fmt.Sprintf("wifi: `%s` not found in PATH: %s", s.command, err.Error()))
		}
		return "", NewRuntimeError(fmt.Sprintf("wifi: failed to locate binary: %s", err.Error()))
	}

	return binPath, nil
}
