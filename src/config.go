package src

import (
	"elmo_middleware/src/model"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config embeds the model configs so their variables keep their plain names
// (LOG_LEVEL, REDIS_URL, NODE_POLL_INTERVAL, ...)
type Config struct {
	model.LogConfig
	model.RedisConfig
	model.NodeConfig
	model.BatteryLogConfig
}

// LoadConfig reads an optional .env file and then the process environment
func LoadConfig(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	var config Config
	err := envconfig.Process("", &config)
	if err != nil {
		return nil, fmt.Errorf("error processing environment configuration: %w", err)
	}

	return &config, nil
}
