package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	World    WorldConfig    `toml:"world"`
	Observer ObserverConfig `toml:"observer"`
	Index    IndexConfig    `toml:"index"`
	Journal  JournalConfig  `toml:"journal"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Addr            string        `toml:"addr"`
	DataDir         string        `toml:"data_dir"`
	ConfigDir       string        `toml:"config_dir"`
	ScriptsDir      string        `toml:"scripts_dir"`
	TuningFile      string        `toml:"tuning_file"`
	RequestQueue    int           `toml:"request_queue"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

type WorldConfig struct {
	ID     string `toml:"id"`
	Seed   int64  `toml:"seed"`
	Resume bool   `toml:"resume"` // load the latest snapshot on boot
}

type ObserverConfig struct {
	Enabled     bool `toml:"enabled"`
	AllowRemote bool `toml:"allow_remote"`
	SendBuffer  int  `toml:"send_buffer"`
}

type IndexConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // relative paths are under data_dir
}

type JournalConfig struct {
	Enabled bool `toml:"enabled"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is empty")
	}
	if c.World.ID == "" {
		return fmt.Errorf("world.id is empty")
	}
	if c.Server.RequestQueue <= 0 {
		return fmt.Errorf("server.request_queue must be positive")
	}
	return nil
}

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			DataDir:         "./data",
			ConfigDir:       "./configs",
			ScriptsDir:      "./scripts",
			TuningFile:      "./configs/tuning.yaml",
			RequestQueue:    64,
			ShutdownTimeout: 5 * time.Second,
		},
		World: WorldConfig{
			ID:     "overworld",
			Seed:   1337,
			Resume: true,
		},
		Observer: ObserverConfig{
			Enabled:    true,
			SendBuffer: 256,
		},
		Index: IndexConfig{
			Enabled: true,
			Path:    "index/builds.sqlite",
		},
		Journal: JournalConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
