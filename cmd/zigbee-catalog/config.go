package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Web struct {
		Listen         string   `yaml:"listen"`
		APIKey         string   `yaml:"api_key"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"web"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	Stack struct {
		Mode string `yaml:"mode"` // "none" or "dry-run"
	} `yaml:"stack"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // "text", "json" or "tint"
	} `yaml:"log"`
	Scripts struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"scripts"`
	DevicesDir string `yaml:"devices_dir"`
	ScriptsDir string `yaml:"scripts_dir"`
}

func (c *Config) validate() error {
	if c.Web.Listen == "" {
		return fmt.Errorf("web.listen is required")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json", "tint":
	default:
		return fmt.Errorf("log.format must be text, json or tint, got %q", c.Log.Format)
	}
	switch c.Stack.Mode {
	case "none", "dry-run":
	default:
		return fmt.Errorf("stack.mode must be none or dry-run, got %q", c.Stack.Mode)
	}
	if _, err := c.scriptTimeout(); err != nil {
		return err
	}
	return nil
}

func (c *Config) scriptTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Scripts.Timeout)
	if err != nil {
		return 0, fmt.Errorf("scripts.timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("scripts.timeout must be positive, got %s", d)
	}
	return d, nil
}

// loadConfig reads path after loading .env into the environment. ${VAR}
// references in the file are expanded. A missing file is only an error when
// required is set; defaults are used otherwise.
func loadConfig(path string, required bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !required:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if cfg.Web.Listen == "" {
		cfg.Web.Listen = "127.0.0.1:8080"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "zigbee-catalog.db"
	}
	if cfg.Stack.Mode == "" {
		cfg.Stack.Mode = "none"
	}
	if cfg.DevicesDir == "" {
		cfg.DevicesDir = "devices"
	}
	if cfg.ScriptsDir == "" {
		cfg.ScriptsDir = "scripts"
	}
	if cfg.Scripts.Timeout == "" {
		cfg.Scripts.Timeout = "1s"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	return &cfg, nil
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "tint":
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
		})
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
