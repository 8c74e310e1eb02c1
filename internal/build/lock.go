package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// lockPollInterval paces the non-blocking flock retry loop. A blocking
// LOCK_EX would ignore context cancellation.
const lockPollInterval = 200 * time.Millisecond

// pairLock is an exclusive advisory lock on one (target, variant) pair,
// shared between zforge processes via flock(2) on a dotfile next to the
// pair directory. The dotfile survives force rebuilds removing the
// directory itself.
type pairLock struct {
	f *os.File
}

// acquirePairLock blocks until the calling process holds the build lock
// for the pair, or the context is cancelled.
func acquirePairLock(ctx context.Context, targetDir, variant string) (*pairLock, error) {
	path := filepath.Join(targetDir, "."+variant+".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open build lock: %w", err)
	}

	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &pairLock{f: f}, nil
		}
		if err != unix.EWOULDBLOCK {
			f.Close()
			return nil, fmt.Errorf("failed to lock %s: %w", path, err)
		}

		select {
		case <-ctx.Done():
			f.Close()
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

// Release drops the lock. The dotfile stays behind for the next builder.
func (l *pairLock) Release() {
	unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	l.f.Close()
}
