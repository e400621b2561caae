// Command battery_logger is a node that appends the battery voltage to a CSV
// file at a fixed interval until it is asked to shut down.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"elmo_middleware/internal/entry"
	"elmo_middleware/internal/node"
	"elmo_middleware/src"
	"elmo_middleware/src/logger"
	"elmo_middleware/src/storage"
)

const nodeName = "battery_logger"

// timeLayout matches the timestamps the battery plotter splits on
const timeLayout = "2006-01-02 15:04:05.000000"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Error().Err(err).Msg("Battery logger failed")
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := src.LoadConfig()
	if err != nil {
		return err
	}
	if err := logger.InitLogger(cfg.LogConfig); err != nil {
		return err
	}

	store, err := storage.NewRedisStore(ctx, cfg.RedisConfig.URL)
	if err != nil {
		return err
	}
	defer store.Close()

	rec := newRecorder(cfg.BatteryLogConfig.Path, cfg.BatteryLogConfig.Interval, entry.New(store, entry.Battery))
	if err := rec.start(); err != nil {
		return err
	}

	n, err := node.New(ctx, store, nodeName, node.WithPollInterval(cfg.NodeConfig.PollInterval))
	if err != nil {
		return err
	}
	return n.Run(ctx, func(ctx context.Context) error {
		return rec.record(ctx, n)
	})
}

// recorder writes one row per interval; the node loop polls it more often
// so shutdown requests are noticed promptly
type recorder struct {
	path     string
	interval time.Duration
	battery  *entry.Entry
	now      func() time.Time
	last     time.Time
}

func newRecorder(path string, interval time.Duration, battery *entry.Entry) *recorder {
	return &recorder{
		path:     path,
		interval: interval,
		battery:  battery,
		now:      time.Now,
	}
}

// start truncates the log and writes the header row
func (r *recorder) start() error {
	f, err := os.Create(r.path)
	if err != nil {
		return fmt.Errorf("failed to create battery log: %w", err)
	}
	defer f.Close()
	return writeRow(f, "Time", "Battery")
}

func (r *recorder) record(ctx context.Context, n *node.Node) error {
	now := r.now()
	if !r.last.IsZero() && now.Sub(r.last) < r.interval {
		return nil
	}

	voltage, err := r.battery.Float(ctx, "voltage")
	if err != nil {
		return fmt.Errorf("failed to read battery voltage: %w", err)
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open battery log: %w", err)
	}
	defer f.Close()

	if err := writeRow(f, now.Format(timeLayout), strconv.FormatFloat(voltage, 'f', -1, 64)); err != nil {
		return err
	}
	r.last = now
	n.Infof("voltage %.2f", voltage)
	return nil
}

// writeRow writes one "a, b" line
func writeRow(w io.Writer, first, second string) error {
	if _, err := fmt.Fprintf(w, "%s, %s\n", first, second); err != nil {
		return fmt.Errorf("failed to write battery log: %w", err)
	}
	return nil
}
