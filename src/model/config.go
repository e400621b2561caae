package model

import "time"

// ----------------------------------------------------
// ================ Config ================

// LogConfig controls the process logger
type LogConfig struct {
	Level      string `envconfig:"LOG_LEVEL" default:"info"`
	Format     string `envconfig:"LOG_FORMAT" default:"console"` // console or json
	Output     string `envconfig:"LOG_OUTPUT" default:"stdout"`  // stdout, stderr or file
	FilePath   string `envconfig:"LOG_FILE_PATH" default:"logs/middleware.log"`
	TimeFormat string `envconfig:"LOG_TIME_FORMAT" default:"rfc3339"`
}

// RedisConfig locates the shared store
type RedisConfig struct {
	URL string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
}

// NodeConfig holds node loop and administration timings
type NodeConfig struct {
	// PollInterval is the cadence of a node's cooperative loop
	PollInterval time.Duration `envconfig:"NODE_POLL_INTERVAL" default:"100ms"`
	// KillGrace is how long force shutdown waits after signalling a process
	KillGrace time.Duration `envconfig:"NODE_KILL_GRACE" default:"1s"`
	// MonitorInterval is the refresh period of the monitor command
	MonitorInterval time.Duration `envconfig:"NODE_MONITOR_INTERVAL" default:"100ms"`
}

// BatteryLogConfig configures the battery logger node
type BatteryLogConfig struct {
	Path     string        `envconfig:"BATTERY_LOG_PATH" default:"battery_log.csv"`
	Interval time.Duration `envconfig:"BATTERY_LOG_INTERVAL" default:"60s"`
}
