package node

import (
	"context"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOSProcessTableExists verifies the current process is found.
func TestOSProcessTableExists(t *testing.T) {
	ctx := context.Background()
	procs := OSProcessTable{}

	exists, err := procs.Exists(ctx, os.Getpid())
	require.NoError(t, err)
	assert.True(t, exists)

	for _, pid := range []int{0, -1} {
		exists, err := procs.Exists(ctx, pid)
		require.NoError(t, err)
		assert.False(t, exists, pid)
	}
}

// TestOSProcessTableKill verifies a child process is killed.
func TestOSProcessTableKill(t *testing.T) {
	sleep, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}

	ctx := context.Background()
	cmd := exec.Command(sleep, "30")
	require.NoError(t, cmd.Start())
	pid := cmd.Process.Pid

	procs := OSProcessTable{}
	exists, err := procs.Exists(ctx, pid)
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, procs.Kill(ctx, pid))
	assert.Error(t, cmd.Wait())

	exists, err = procs.Exists(ctx, pid)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestOSProcessTableKillInvalid(t *testing.T) {
	assert.Error(t, OSProcessTable{}.Kill(context.Background(), 0))
}
