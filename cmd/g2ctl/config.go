package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/g2ctl/internal/device"
)

type fileConfig struct {
	LogLevel       string   `toml:"log_level"`
	DumpDir        string   `toml:"dump_dir"`
	TaskTimeout    string   `toml:"task_timeout"`
	RequestTimeout string   `toml:"request_timeout"`
	QueueDepth     int      `toml:"queue_depth"`
	ListenAddr     string   `toml:"listen_addr"`
	CorsOrigins    []string `toml:"cors_origins"`
}

// cliConfig is the resolved runtime configuration of g2ctl.
type cliConfig struct {
	LogLevel    string
	ListenAddr  string
	CorsOrigins []string
	Device      device.Config
}

func defaultCLIConfig() cliConfig {
	return cliConfig{
		LogLevel:   "info",
		ListenAddr: ":9200",
		Device:     device.DefaultConfig(),
	}
}

func loadCLIConfig(path string) (cliConfig, error) {
	cfg := defaultCLIConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return cliConfig{}, fmt.Errorf("load g2ctl config: %w", err)
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if meta.IsDefined("dump_dir") {
		cfg.Device.DumpDir = strings.TrimSpace(raw.DumpDir)
	}

	if meta.IsDefined("task_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.TaskTimeout))
		if err != nil {
			return cliConfig{}, fmt.Errorf("parse task_timeout: %w", err)
		}
		cfg.Device.TaskTimeout = d
	}

	if meta.IsDefined("request_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.RequestTimeout))
		if err != nil {
			return cliConfig{}, fmt.Errorf("parse request_timeout: %w", err)
		}
		cfg.Device.RequestTimeout = d
	}

	if meta.IsDefined("queue_depth") {
		if raw.QueueDepth <= 0 {
			return cliConfig{}, fmt.Errorf("queue_depth must be positive, got %d", raw.QueueDepth)
		}
		cfg.Device.QueueDepth = raw.QueueDepth
	}

	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}

	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeOrigins(raw.CorsOrigins)
	}

	return cfg, nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
