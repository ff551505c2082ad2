package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBlockSize      = 400
	DefaultBufferPoolSize = 8
	DefaultLogFileName    = "herondb.log"
	DefaultMaxWaitMs      = 10000
)

// Config holds the engine's tunables. Zero values are filled in with
// defaults by Load and Default.
type Config struct {
	DBDirectory    string `yaml:"db_directory"`
	BlockSize      int    `yaml:"block_size"`
	BufferPoolSize int    `yaml:"buffer_pool_size"`
	LogFileName    string `yaml:"log_file_name"`
	MaxWaitMs      int    `yaml:"max_wait_ms"`
}

// Default returns a configuration with every field at its default,
// rooted at the given directory.
func Default(dbDir string) Config {
	return Config{
		DBDirectory:    dbDir,
		BlockSize:      DefaultBlockSize,
		BufferPoolSize: DefaultBufferPoolSize,
		LogFileName:    DefaultLogFileName,
		MaxWaitMs:      DefaultMaxWaitMs,
	}
}

// Load reads a YAML configuration file, filling unset fields with
// defaults.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

func (c *Config) applyDefaults() {
	if c.BlockSize == 0 {
		c.BlockSize = DefaultBlockSize
	}
	if c.BufferPoolSize == 0 {
		c.BufferPoolSize = DefaultBufferPoolSize
	}
	if c.LogFileName == "" {
		c.LogFileName = DefaultLogFileName
	}
	if c.MaxWaitMs == 0 {
		c.MaxWaitMs = DefaultMaxWaitMs
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c Config) Validate() error {
	if c.DBDirectory == "" {
		return errors.New("db_directory must be set")
	}
	if c.BlockSize <= 0 {
		return errors.New("block_size must be positive")
	}
	if c.BufferPoolSize <= 0 {
		return errors.New("buffer_pool_size must be positive")
	}
	if c.MaxWaitMs <= 0 {
		return errors.New("max_wait_ms must be positive")
	}
	return nil
}

// MaxWait returns the lock and buffer wait bound as a duration.
func (c Config) MaxWait() time.Duration {
	return time.Duration(c.MaxWaitMs) * time.Millisecond
}
