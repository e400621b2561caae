package node

import (
	"context"
	"fmt"
	"math"

	"elmo_middleware/pkg"

	"github.com/shirou/gopsutil/v4/process"
)

// ProcessTable is the manager's view of OS processes
type ProcessTable interface {
	// Exists reports whether pid identifies a live process
	Exists(ctx context.Context, pid int) (bool, error)
	// Kill forcibly terminates pid
	Kill(ctx context.Context, pid int) error
}

// OSProcessTable queries the local operating system
type OSProcessTable struct{}

func (OSProcessTable) Exists(ctx context.Context, pid int) (bool, error) {
	if pid <= 0 || pid > math.MaxInt32 {
		return false, nil
	}
	exists, err := process.PidExistsWithContext(ctx, int32(pid))
	if err != nil {
		return false, fmt.Errorf("pid %d: %w: %w", pid, pkg.ErrProcessLiveness, err)
	}
	return exists, nil
}

func (OSProcessTable) Kill(ctx context.Context, pid int) error {
	if pid <= 0 || pid > math.MaxInt32 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}
	if err := p.KillWithContext(ctx); err != nil {
		return fmt.Errorf("failed to kill process %d: %w", pid, err)
	}
	return nil
}
