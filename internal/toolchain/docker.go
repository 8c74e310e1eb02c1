package toolchain

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"

	dockerpkg "github.com/dyluth/zforge/internal/docker"
)

// ContainerRunner runs tools in one-shot containers. The working directory
// is bind-mounted at the same absolute path inside the container, so path
// arguments mean the same thing on both sides.
type ContainerRunner struct {
	cli   *client.Client
	image string
}

// NewContainerRunner creates a runner that executes tools in the given image.
func NewContainerRunner(cli *client.Client, image string) *ContainerRunner {
	return &ContainerRunner{cli: cli, image: image}
}

// Run creates, starts and waits for a tool container, then collects its
// logs and removes it. The container is force-removed on timeout so an
// interrupted build never leaves a synthesis job running.
func (r *ContainerRunner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	if len(inv.Command) == 0 {
		return nil, fmt.Errorf("command array is empty")
	}
	if !filepath.IsAbs(inv.Dir) {
		return nil, fmt.Errorf("container runs need an absolute working directory, got '%s'", inv.Dir)
	}

	timeout := inv.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	runID := dockerpkg.GenerateRunID()
	containerName := dockerpkg.ToolContainerName(inv.Tool, runID)

	containerConfig := &container.Config{
		Image:      r.image,
		Cmd:        inv.Command,
		Env:        inv.Env,
		WorkingDir: inv.Dir,
		Labels:     dockerpkg.BuildLabels(inv.Tool, inv.Pair, runID),
	}

	hostConfig := &container.HostConfig{
		AutoRemove: false, // cleanup is explicit so logs survive the exit
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeBind,
				Source: inv.Dir,
				Target: inv.Dir,
			},
		},
	}

	resp, err := r.cli.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, containerName)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s tool container: %w", inv.Tool, err)
	}

	if err := r.cli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		r.cli.ContainerRemove(ctx, resp.ID, types.ContainerRemoveOptions{Force: true})
		return nil, fmt.Errorf("failed to start %s tool container: %w", inv.Tool, err)
	}

	log.Printf("[DEBUG] Running %s tool in container: image=%s name=%s", inv.Tool, r.image, containerName)
	startTime := time.Now()

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	statusCh, errCh := r.cli.ContainerWait(waitCtx, resp.ID, container.WaitConditionNotRunning)

	var exitCode int
	select {
	case err := <-errCh:
		r.cli.ContainerRemove(ctx, resp.ID, types.ContainerRemoveOptions{Force: true})
		if waitCtx.Err() == context.DeadlineExceeded {
			return nil, &ToolError{
				Tool:     inv.Tool,
				Command:  inv.Command,
				ExitCode: -1,
				Output:   fmt.Sprintf("tool execution timeout (%s)", timeout),
			}
		}
		return nil, fmt.Errorf("error waiting for %s tool container: %w", inv.Tool, err)

	case status := <-statusCh:
		exitCode = int(status.StatusCode)
	}

	duration := time.Since(startTime)
	output := r.containerLogs(ctx, resp.ID)
	r.cli.ContainerRemove(ctx, resp.ID, types.ContainerRemoveOptions{Force: true})

	result := &Result{ExitCode: exitCode, Output: output, Duration: duration}
	if exitCode != 0 {
		return result, &ToolError{
			Tool:     inv.Tool,
			Command:  inv.Command,
			ExitCode: exitCode,
			Output:   tail(output, outputTailSize),
		}
	}

	log.Printf("[DEBUG] %s tool container completed: duration=%s", inv.Tool, duration)
	return result, nil
}

// containerLogs retrieves the tail of a tool container's combined output.
func (r *ContainerRunner) containerLogs(ctx context.Context, containerID string) string {
	options := types.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       "400",
	}

	reader, err := r.cli.ContainerLogs(ctx, containerID, options)
	if err != nil {
		return fmt.Sprintf("(failed to retrieve logs: %v)", err)
	}
	defer reader.Close()

	logs, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Sprintf("(failed to read logs: %v)", err)
	}

	return string(logs)
}
