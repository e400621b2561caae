package node

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"elmo_middleware/pkg"
	"elmo_middleware/src/logger"
	"elmo_middleware/src/storage"

	"github.com/rs/zerolog"
)

// DefaultKillGrace is how long ForceShutdown waits after killing a process
const DefaultKillGrace = time.Second

// Manager lists and administers the nodes registered in a store.
// Thread-safe: holds no mutable state of its own.
type Manager struct {
	store storage.Store
	procs ProcessTable
	grace time.Duration
	log   zerolog.Logger
}

// ManagerOption customizes a Manager
type ManagerOption func(*Manager)

// WithProcessTable replaces the OS process table, typically in tests
func WithProcessTable(procs ProcessTable) ManagerOption {
	return func(m *Manager) { m.procs = procs }
}

// WithKillGrace sets the wait between killing a process and removing its registration
func WithKillGrace(d time.Duration) ManagerOption {
	return func(m *Manager) { m.grace = d }
}

// WithManagerLogger sets the manager's logger
func WithManagerLogger(l zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.log = l }
}

// NewManager creates a manager over store
func NewManager(store storage.Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store: store,
		procs: OSProcessTable{},
		grace: DefaultKillGrace,
		log:   logger.Logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ListNodes returns the registered node names, sorted
func (m *Manager) ListNodes(ctx context.Context) ([]string, error) {
	keys, err := m.store.ListKeys(ctx, pkg.NodeKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, strings.TrimPrefix(key, pkg.NodeKeyPrefix))
	}
	sort.Strings(names)
	return names, nil
}

// GetPID returns the pid recorded for name, or pkg.ErrNotFound
func (m *Manager) GetPID(ctx context.Context, name string) (int, error) {
	var pid int
	if err := m.store.Get(ctx, pkg.NodeKey(name), &pid); err != nil {
		return 0, err
	}
	return pid, nil
}

// IsRunning reports whether the pid recorded for name is a live process.
// Inconclusive lookups count as not running. A reused pid reads as running.
func (m *Manager) IsRunning(ctx context.Context, name string) (bool, error) {
	pid, err := m.GetPID(ctx, name)
	if err != nil {
		return false, err
	}
	return m.pidRunning(ctx, name, pid), nil
}

func (m *Manager) pidRunning(ctx context.Context, name string, pid int) bool {
	running, err := m.procs.Exists(ctx, pid)
	if err != nil {
		m.log.Warn().Err(err).Str("node", name).Int("pid", pid).Msg("process lookup inconclusive, assuming not running")
		return false
	}
	return running
}

// IsAlive reports whether name is registered and its process is running
func (m *Manager) IsAlive(ctx context.Context, name string) (bool, error) {
	registered, err := m.store.Has(ctx, pkg.NodeKey(name))
	if err != nil || !registered {
		return false, err
	}
	running, err := m.IsRunning(ctx, name)
	if pkg.IsNotFound(err) {
		// unregistered in between
		return false, nil
	}
	return running, err
}

// RequestShutdown raises the shutdown flag of name if it is alive. For
// unknown or dead nodes it does nothing.
func (m *Manager) RequestShutdown(ctx context.Context, name string) error {
	alive, err := m.IsAlive(ctx, name)
	if err != nil {
		return err
	}
	if !alive {
		m.log.Debug().Str("node", name).Msg("not alive, shutdown request ignored")
		return nil
	}
	if err := m.store.Set(ctx, pkg.ShutdownKey(name), true); err != nil {
		return fmt.Errorf("failed to request shutdown of %s: %w", name, err)
	}
	m.log.Info().Str("node", name).Msg("shutdown requested")
	return nil
}

// KillAll requests shutdown of every registered node
func (m *Manager) KillAll(ctx context.Context) error {
	names, err := m.ListNodes(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := m.RequestShutdown(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// ForceShutdown kills the process of a registered node, waits the grace
// interval and removes the registration whether or not the process exited.
// Kill failures are logged, not returned: the name always becomes reusable,
// at the risk of leaving an orphaned process.
func (m *Manager) ForceShutdown(ctx context.Context, name string) error {
	registered, err := m.store.Has(ctx, pkg.NodeKey(name))
	if err != nil {
		return err
	}
	if !registered {
		return nil
	}

	pid, err := m.GetPID(ctx, name)
	switch {
	case err != nil:
		m.log.Warn().Err(err).Str("node", name).Msg("unreadable pid, removing registration only")
	case m.pidRunning(ctx, name, pid):
		if err := m.procs.Kill(ctx, pid); err != nil {
			m.log.Warn().Err(err).Str("node", name).Int("pid", pid).Msg("failed to kill process")
		}
		m.sleep(ctx, m.grace)
		if m.pidRunning(ctx, name, pid) {
			m.log.Warn().Str("node", name).Int("pid", pid).Msg("process still running after kill grace")
		}
	}

	cleanup := context.WithoutCancel(ctx)
	if err := m.store.Delete(cleanup, pkg.NodeKey(name), pkg.ShutdownKey(name)); err != nil {
		return fmt.Errorf("failed to remove registration of %s: %w", name, err)
	}
	m.log.Info().Str("node", name).Msg("force shutdown complete")
	return nil
}

// Statuses reports every registered node with its pid, liveness and flag
func (m *Manager) Statuses(ctx context.Context) ([]pkg.NodeStatus, error) {
	names, err := m.ListNodes(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]pkg.NodeStatus, 0, len(names))
	for _, name := range names {
		pid, err := m.GetPID(ctx, name)
		if pkg.IsNotFound(err) {
			continue
		}
		if err != nil && !pkg.IsMalformed(err) {
			return nil, err
		}

		status := pkg.NodeStatus{Name: name, PID: pid}
		if err == nil {
			status.Alive = m.pidRunning(ctx, name, pid)
		}

		var flag bool
		if err := m.store.Get(ctx, pkg.ShutdownKey(name), &flag); err != nil && !pkg.IsNotFound(err) && !pkg.IsMalformed(err) {
			return nil, err
		}
		status.ShutdownRequested = flag
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// PruneStale removes the registrations of nodes whose process is gone and
// returns their names
func (m *Manager) PruneStale(ctx context.Context) ([]string, error) {
	names, err := m.ListNodes(ctx)
	if err != nil {
		return nil, err
	}

	var pruned []string
	for _, name := range names {
		running, err := m.IsRunning(ctx, name)
		if err != nil && !pkg.IsMalformed(err) {
			if errors.Is(err, pkg.ErrNotFound) {
				continue
			}
			return pruned, err
		}
		if running {
			continue
		}
		if err := m.store.Delete(ctx, pkg.NodeKey(name), pkg.ShutdownKey(name)); err != nil {
			return pruned, fmt.Errorf("failed to remove registration of %s: %w", name, err)
		}
		m.log.Info().Str("node", name).Msg("stale registration removed")
		pruned = append(pruned, name)
	}
	return pruned, nil
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
