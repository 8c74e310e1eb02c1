package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/client"
)

// NewClient creates a Docker client and validates daemon is accessible.
// Only needed when a toolchain command is configured with a container
// image; local tool runs never touch Docker.
func NewClient(ctx context.Context) (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	// Validate daemon is accessible
	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf(`Docker daemon not accessible: %w

A containerized toolchain is configured. Ensure Docker is running:
  • macOS: Docker Desktop
  • Linux: sudo systemctl start docker

Or remove the 'container' field from the toolchain config to run tools locally.`, err)
	}

	return cli, nil
}
