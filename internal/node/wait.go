package node

import (
	"context"
	"fmt"
	"time"

	"elmo_middleware/pkg"
)

// WaitFor evaluates cond every interval until it holds. A timeout of zero
// waits for as long as ctx allows; otherwise pkg.ErrTimeout is returned once
// it expires. An error from cond ends the wait and is returned.
func WaitFor(ctx context.Context, interval, timeout time.Duration, cond func(ctx context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := cond(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-expired:
			return fmt.Errorf("condition not met within %v: %w", timeout, pkg.ErrTimeout)
		case <-ticker.C:
		}
	}
}
