package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"time"
)

// ExecRunner runs tools as local subprocesses.
type ExecRunner struct{}

// Run executes the tool command with a timeout and capped output capture.
//
// Returns (result, nil) on a zero exit, (result, *ToolError) on a non-zero
// exit, and (nil, error) when the process could not run at all. Stdout and
// stderr share one writer so the captured output interleaves the way a
// terminal would show it.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	if len(inv.Command) == 0 {
		return nil, fmt.Errorf("command array is empty")
	}

	timeout := inv.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, inv.Command[0], inv.Command[1:]...)
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}

	// One buffer for both streams; exec serializes writes to a shared writer
	outBuf := &bytes.Buffer{}
	lw := &limitedWriter{w: outBuf, limit: maxOutputSize}
	cmd.Stdout = lw
	cmd.Stderr = lw

	log.Printf("[DEBUG] Running %s tool: command=%v dir=%s", inv.Tool, inv.Command, inv.Dir)
	startTime := time.Now()

	err := cmd.Run()
	duration := time.Since(startTime)
	output := outBuf.String()

	if outBuf.Len() >= maxOutputSize {
		return nil, &ToolError{
			Tool:     inv.Tool,
			Command:  inv.Command,
			ExitCode: -1,
			Output:   "tool output exceeded 10MB limit",
		}
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result := &Result{ExitCode: exitErr.ExitCode(), Output: output, Duration: duration}
			return result, &ToolError{
				Tool:     inv.Tool,
				Command:  inv.Command,
				ExitCode: exitErr.ExitCode(),
				Output:   tail(output, outputTailSize),
			}
		}
		if execCtx.Err() == context.DeadlineExceeded {
			return nil, &ToolError{
				Tool:     inv.Tool,
				Command:  inv.Command,
				ExitCode: -1,
				Output:   fmt.Sprintf("tool execution timeout (%s)", timeout),
			}
		}
		return nil, fmt.Errorf("failed to run %s tool: %w", inv.Tool, err)
	}

	log.Printf("[DEBUG] %s tool completed: duration=%s", inv.Tool, duration)
	return &Result{ExitCode: 0, Output: output, Duration: duration}, nil
}

// limitedWriter wraps a writer and enforces a size limit.
// Once the limit is reached, further writes are discarded.
type limitedWriter struct {
	w       io.Writer
	limit   int
	written int
}

func (lw *limitedWriter) Write(p []byte) (n int, err error) {
	remaining := lw.limit - lw.written
	if remaining <= 0 {
		// Already hit limit, discard this write
		return len(p), nil
	}

	toWrite := p
	if len(p) > remaining {
		toWrite = p[:remaining]
	}

	n, err = lw.w.Write(toWrite)
	lw.written += n
	return len(p), err // Return len(p) to satisfy the writer interface
}
