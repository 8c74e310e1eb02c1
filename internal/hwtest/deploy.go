package hwtest

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/dyluth/zforge/internal/config"
	"github.com/dyluth/zforge/internal/toolchain"
)

// deployTimeout bounds each ssh/scp step. Images are tens of megabytes;
// anything slower than this means the deploy host is gone.
const deployTimeout = 5 * time.Minute

// DeployError describes a failed image push or remote boot step.
type DeployError struct {
	Step  string // "prepare", "transfer" or "boot"
	Board string
	Err   error
}

func (e *DeployError) Error() string {
	return fmt.Sprintf("deploy step '%s' failed for board %s: %v", e.Step, e.Board, e.Err)
}

func (e *DeployError) Unwrap() error { return e.Err }

// IsDeployError returns true if the error is a DeployError.
func IsDeployError(err error) bool {
	var de *DeployError
	return errors.As(err, &de)
}

// Deployer pushes boot images to the lab's deploy host and arms them.
// Each board has a slot directory <dir>/<board-id> on the host holding
// the image as boot.bin next to the board's boot.sh, which loads the
// image onto the hardware. Transfers run through the stock OpenSSH
// binaries as subprocesses, same as the build tools.
type Deployer struct {
	runner toolchain.Runner
	host   string
	user   string
	dir    string
}

// NewDeployer returns a deployer for the configured lab host.
func NewDeployer(runner toolchain.Runner, cfg config.DeployConfig) *Deployer {
	return &Deployer{runner: runner, host: cfg.Host, user: cfg.User, dir: cfg.Dir}
}

// Deploy pushes image into boardID's slot and runs the slot's boot
// script. It returns a DeployError naming the step that failed.
func (d *Deployer) Deploy(ctx context.Context, boardID, image string) error {
	slot := path.Join(d.dir, boardID)
	steps := []struct {
		name    string
		command []string
	}{
		{"prepare", []string{"ssh", d.target(), "mkdir", "-p", slot}},
		{"transfer", []string{"scp", image, d.target() + ":" + path.Join(slot, "boot.bin")}},
		{"boot", []string{"ssh", d.target(), path.Join(slot, "boot.sh")}},
	}

	for _, step := range steps {
		inv := toolchain.Invocation{
			Tool:    "deploy-" + step.name,
			Command: step.command,
			Timeout: deployTimeout,
		}
		if _, err := d.runner.Run(ctx, inv); err != nil {
			return &DeployError{Step: step.name, Board: boardID, Err: err}
		}
	}
	return nil
}

func (d *Deployer) target() string {
	if d.user == "" {
		return d.host
	}
	return d.user + "@" + d.host
}
