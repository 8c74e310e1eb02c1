// Package toolchain runs the external build tools that produce firmware,
// gateware and boot images. Tools are ordinary commands: zforge composes
// the argument list and the runner decides where the process lives, either
// a local subprocess or a one-shot container with the workspace mounted.
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/client"

	"github.com/dyluth/zforge/internal/config"
)

const (
	// defaultTimeout is the maximum time a tool can run before being killed.
	// Gateware synthesis is the slow path and routinely takes most of this.
	defaultTimeout = 90 * time.Minute

	// maxOutputSize is the maximum number of bytes captured from a tool's
	// combined stdout/stderr (10MB)
	maxOutputSize = 10 * 1024 * 1024

	// outputTailSize is how much captured output is kept on a ToolError
	outputTailSize = 5000
)

// Invocation describes one external tool run.
type Invocation struct {
	Tool    string        // "firmware", "gateware" or "packer", for diagnostics
	Pair    string        // target/variant being built, for container labels
	Command []string      // full argv, Command[0] is the executable
	Dir     string        // working directory; must be absolute for container runs
	Env     []string      // extra KEY=VALUE pairs
	Timeout time.Duration // 0 means defaultTimeout
}

// Result is the outcome of a completed tool run.
type Result struct {
	ExitCode int
	Output   string // combined stdout and stderr, capped at maxOutputSize
	Duration time.Duration
}

// Runner executes external build tools.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (*Result, error)
}

// ToolError describes a tool run that started but did not succeed.
// The tail of the combined output is kept for diagnosis.
type ToolError struct {
	Tool     string
	Command  []string
	ExitCode int // -1 when the process could not start or timed out
	Output   string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s tool failed: %s exited with code %d\n\nLast output:\n%s",
		e.Tool, strings.Join(e.Command, " "), e.ExitCode, e.Output)
}

// IsToolError returns true if the error is a ToolError.
func IsToolError(err error) bool {
	var te *ToolError
	return errors.As(err, &te)
}

// For returns the runner for one configured tool: a container run when the
// config names an image, a local subprocess otherwise. A Docker client is
// required only in the containerized case.
func For(tool config.ToolConfig, docker *client.Client) (Runner, error) {
	if tool.Container == "" {
		return &ExecRunner{}, nil
	}
	if docker == nil {
		return nil, fmt.Errorf("tool configured with container image '%s' but no Docker client available", tool.Container)
	}
	return &ContainerRunner{cli: docker, image: tool.Container}, nil
}

// tail returns the last n bytes of s, for error payloads.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
