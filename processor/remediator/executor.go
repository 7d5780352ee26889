package remediator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// outputLimit bounds each captured stream before it goes on the result.
const outputLimit = 1000

// Execution captures the outcome of running one remediation command.
type Execution struct {
	Success bool
	Stdout  string
	Stderr  string
}

// Executor runs approved commands under strict bounds: a per-call
// timeout, an isolated scratch working directory, and independent
// capture of both output streams. Timeouts and launch failures are
// reported as failed executions, never raised.
type Executor struct {
	workDir string
}

// NewExecutor creates an Executor. workDir is the parent for
// per-execution scratch directories; empty uses the OS temp dir.
func NewExecutor(workDir string) *Executor {
	return &Executor{workDir: workDir}
}

// Run executes a command with the given timeout and returns the
// captured outcome. The command is tokenized into argv without
// invoking a shell; shell metacharacters have already been rejected by
// the safety gate.
func (e *Executor) Run(ctx context.Context, command string, timeout time.Duration) Execution {
	args := splitCommand(command)
	if len(args) == 0 {
		return Execution{Success: false, Stderr: "empty command"}
	}

	scratch, err := os.MkdirTemp(e.workDir, "triagent-exec-")
	if err != nil {
		return Execution{Success: false, Stderr: fmt.Sprintf("create working directory: %v", err)}
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, args[0], args[1:]...)
	cmd.Dir = scratch

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	out := truncate(stdout.String())
	errOut := truncate(stderr.String())

	switch {
	case runErr == nil:
		return Execution{Success: true, Stdout: out, Stderr: errOut}

	case errors.Is(cmdCtx.Err(), context.DeadlineExceeded):
		// The subprocess was forcibly terminated by the timeout firing.
		return Execution{
			Success: false,
			Stdout:  out,
			Stderr:  fmt.Sprintf("Command timed out after %s", timeout),
		}

	default:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			if errOut == "" {
				errOut = runErr.Error()
			}
			return Execution{Success: false, Stdout: out, Stderr: errOut}
		}
		// Launch failure (binary not found, permissions, ...).
		return Execution{Success: false, Stdout: out, Stderr: runErr.Error()}
	}
}

func truncate(s string) string {
	if len(s) <= outputLimit {
		return s
	}
	return s[:outputLimit]
}

// splitCommand performs minimal whitespace tokenization of a command
// string, preserving single- and double-quoted tokens. It does not
// support escape sequences or nested quoting; commands needing a shell
// never reach execution in the first place.
func splitCommand(cmd string) []string {
	var tokens []string
	var current strings.Builder
	inSingle := false
	inDouble := false

	for _, r := range cmd {
		switch {
		case r == '\'' && !inDouble:
			inSingle = !inSingle
		case r == '"' && !inSingle:
			inDouble = !inDouble
		case r == ' ' && !inSingle && !inDouble:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}
