// Package node implements process registration and administration over the
// shared store.
//
// A process participating in the system constructs a Node, which records its
// pid under "node_{name}" and clears its shutdown flag "{name}_is_shutdown".
// Cancellation is cooperative: any actor may raise the flag, and the node's
// own loop notices it at its next poll boundary, finishes cleanup, removes its
// registration with Shutdown and exits.
//
// Manager is the administrative side: it lists registered nodes, checks their
// liveness against the OS process table, raises shutdown flags and, when a
// node hangs, kills its process and removes the registration.
package node

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"elmo_middleware/internal/entry"
	"elmo_middleware/pkg"
	"elmo_middleware/src/logger"
	"elmo_middleware/src/storage"

	"github.com/rs/zerolog"
)

// DefaultPollInterval is the loop cadence used when none is configured
const DefaultPollInterval = 100 * time.Millisecond

// Node is the handle a process holds on its own registration
type Node struct {
	name  string
	pid   int
	store storage.Store
	poll  time.Duration

	mu    sync.Mutex
	base  zerolog.Logger
	log   zerolog.Logger
	level zerolog.Level
}

// Option customizes a Node
type Option func(*Node)

// WithPID registers pid instead of the current process id
func WithPID(pid int) Option {
	return func(n *Node) { n.pid = pid }
}

// WithLogger derives the node's logger from l instead of the process logger
func WithLogger(l zerolog.Logger) Option {
	return func(n *Node) {
		n.base = l
		n.level = l.GetLevel()
	}
}

// WithLogLevel sets the node's minimum log severity
func WithLogLevel(level zerolog.Level) Option {
	return func(n *Node) { n.level = level }
}

// WithPollInterval sets the cadence of Run and the wait helpers
func WithPollInterval(d time.Duration) Option {
	return func(n *Node) {
		if d > 0 {
			n.poll = d
		}
	}
}

// New registers name in the store and returns the node in the running state.
// Registering a name already in use takes it over.
func New(ctx context.Context, store storage.Store, name string, opts ...Option) (*Node, error) {
	if name == "" {
		return nil, fmt.Errorf("node name is required")
	}

	n := &Node{
		name:  name,
		pid:   os.Getpid(),
		store: store,
		poll:  DefaultPollInterval,
		base:  logger.Logger,
		level: logger.Logger.GetLevel(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.base = n.base.With().Str("node", name).Logger()
	n.log = n.base.Level(n.level)

	if err := store.Set(ctx, pkg.NodeKey(name), n.pid); err != nil {
		return nil, fmt.Errorf("failed to register node %s: %w", name, err)
	}
	if err := store.Set(ctx, pkg.ShutdownKey(name), false); err != nil {
		return nil, fmt.Errorf("failed to clear shutdown flag of %s: %w", name, err)
	}

	n.Infof("running")
	return n, nil
}

// Name returns the registered node name
func (n *Node) Name() string {
	return n.name
}

// PID returns the registered process id
func (n *Node) PID() int {
	return n.pid
}

// IsShutdown reports whether shutdown has been requested. A missing flag
// means the registration was removed by someone else and is reported as
// pkg.ErrNotFound.
func (n *Node) IsShutdown(ctx context.Context) (bool, error) {
	var flag bool
	if err := n.store.Get(ctx, pkg.ShutdownKey(n.name), &flag); err != nil {
		return false, err
	}
	return flag, nil
}

// Shutdown removes the node's registration. It does not exit the process.
func (n *Node) Shutdown(ctx context.Context) error {
	if err := n.store.Delete(ctx, pkg.NodeKey(n.name), pkg.ShutdownKey(n.name)); err != nil {
		return fmt.Errorf("failed to unregister node %s: %w", n.name, err)
	}
	n.Infof("shutdown")
	return nil
}

// Run drives the node's cooperative loop. Every poll interval it checks the
// shutdown flag and, unless shutdown was requested, runs body once. Errors
// from body are logged and the loop continues; returning pkg.ErrStop ends it.
// The loop also ends when ctx is cancelled or the registration disappears.
// Shutdown is always called before Run returns, and its error is returned.
func (n *Node) Run(ctx context.Context, body func(ctx context.Context) error) error {
	ticker := time.NewTicker(n.poll)
	defer ticker.Stop()

	n.Infof("starting loop, poll interval %v", n.poll)

loop:
	for {
		l := n.Logger()
		requested, err := n.IsShutdown(ctx)
		switch {
		case pkg.IsNotFound(err):
			l.Warn().Msg("registration removed, stopping")
			break loop
		case err != nil && ctx.Err() != nil:
			break loop
		case err != nil:
			l.Error().Err(err).Msg("failed to read shutdown flag")
		case requested:
			n.Infof("shutdown requested")
			break loop
		default:
			if err := body(ctx); err != nil {
				if errors.Is(err, pkg.ErrStop) {
					break loop
				}
				l.Error().Err(err).Msg("loop body failed")
			}
		}

		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
		}
	}

	return n.Shutdown(context.WithoutCancel(ctx))
}

// AwaitShutdown waits at most timeout for shutdown to be requested
func (n *Node) AwaitShutdown(ctx context.Context, timeout time.Duration) error {
	return WaitFor(ctx, n.poll, timeout, n.IsShutdown)
}

// WaitReady waits until every entry reports ready. It returns false without
// error when shutdown is requested first.
func (n *Node) WaitReady(ctx context.Context, entries ...*entry.Entry) (bool, error) {
	aborted := false
	err := WaitFor(ctx, n.poll, 0, func(ctx context.Context) (bool, error) {
		requested, err := n.IsShutdown(ctx)
		if err != nil {
			return false, err
		}
		if requested {
			aborted = true
			return true, nil
		}
		for _, e := range entries {
			ready, err := e.Bool(ctx, entry.ReadyField)
			if err != nil || !ready {
				return false, err
			}
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return !aborted, nil
}

// SetLogLevel changes the node's minimum log severity
func (n *Node) SetLogLevel(level zerolog.Level) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.level = level
	n.log = n.base.Level(level)
}

// Logger returns the node's logger for structured logging
func (n *Node) Logger() zerolog.Logger {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.log
}

// Infof logs at info severity when the node's level is info or lower
func (n *Node) Infof(format string, args ...any) {
	l := n.Logger()
	l.Info().Msgf(format, args...)
}

// Warnf is gated at the error threshold and labelled error: it still logs
// on a node whose level is error
func (n *Node) Warnf(format string, args ...any) {
	l := n.Logger()
	l.Error().Msgf(format, args...)
}

// Errorf is gated at the warn threshold and labelled warn: a node at error
// level drops it
func (n *Node) Errorf(format string, args ...any) {
	l := n.Logger()
	l.Warn().Msgf(format, args...)
}
