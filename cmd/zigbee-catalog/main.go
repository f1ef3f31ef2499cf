package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/carlmjohnson/versioninfo"

	"zigbee-catalog/internal/devices"
	"zigbee-catalog/internal/extconv"
	"zigbee-catalog/internal/zcl"
	"zigbee-catalog/internal/zcl/clusters"
)

// version is set at build time via -ldflags "-X main.version=...". When
// empty, the module build info is used.
var version string

func appVersion() string {
	if version != "" {
		return version
	}
	return versioninfo.Short()
}

const usage = `usage: zigbee-catalog [-config file] <command> [args]

commands:
  list       list device definitions
  show       print one definition
  configure  dry-run a definition's configure steps
  decode     convert JSON lines of attribute reports to state payloads
  serve      run the HTTP API and WebSocket stream
  version    print the version
`

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("zigbee-catalog", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	cfgPath := fs.String("config", "", "config file (default config.yaml when present)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	path, required := *cfgPath, true
	if path == "" {
		path, required = "config.yaml", false
	}
	cfg, err := loadConfig(path, required)
	if err != nil {
		return err
	}
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	if cmd == "version" {
		fmt.Fprintln(stdout, appVersion())
		return nil
	}

	// Command output goes to stdout; logs stay on stderr.
	logger := newLogger(cfg, stderr)
	slog.SetDefault(logger)

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	switch cmd {
	case "list":
		return a.runList(rest, stdout)
	case "show":
		return a.runShow(rest, stdout)
	case "configure":
		return a.runConfigure(rest, stdout)
	case "decode":
		return a.runDecode(rest, stdin, stdout)
	case "serve":
		return a.runServe(rest)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		fs.Usage()
		return errUsage
	}
}

// app holds what every command needs: the cluster registry and the
// catalog with definitions and scripts from disk merged in.
type app struct {
	cfg      *Config
	logger   *slog.Logger
	registry *zcl.Registry
	catalog  *devices.Catalog
	scripts  *extconv.Engine
}

func newApp(cfg *Config, logger *slog.Logger) (*app, error) {
	registry := zcl.NewRegistry(logger)
	for _, c := range clusters.All() {
		registry.Register(c)
	}

	catalog, err := devices.NewDefault(logger)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	n, err := catalog.LoadDir(cfg.DevicesDir, registry)
	if err != nil {
		return nil, fmt.Errorf("load device definitions: %w", err)
	}
	logger.Debug("device definitions loaded", "dir", cfg.DevicesDir, "added", n, "total", catalog.Len())

	timeout, err := cfg.scriptTimeout()
	if err != nil {
		return nil, err
	}
	scripts := extconv.NewEngine(catalog, logger, timeout)
	n, err = scripts.LoadDir(cfg.ScriptsDir)
	if err != nil {
		// Broken scripts are logged per file; the rest stay loaded.
		logger.Warn("external converters", "dir", cfg.ScriptsDir, "err", err)
	}
	logger.Debug("external converters loaded", "dir", cfg.ScriptsDir, "converters", n)

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		catalog:  catalog,
		scripts:  scripts,
	}, nil
}

func (a *app) Close() {
	a.scripts.Close()
}
