// Command invert inverts the colours of pictures embedded in Word and PowerPoint
// files, or serves the inversion pipeline to a task-pane shim over HTTP or MCP.
//
// Usage:
//
//	invert [flags] FILE...
//	invert serve [flags]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nvr-ai/go-invert/config"
	"github.com/nvr-ai/go-invert/logging"
)

const (
	// exitFailure is returned when a run could not start or a file failed.
	exitFailure = 1
	// exitUsage is returned for bad flags or arguments.
	exitUsage = 2
)

// commonFlags are accepted by every subcommand.
type commonFlags struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
	format     string
	backend    string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "YAML config file (default: .config.yaml or config.yaml if present)")
	fs.StringVar(&c.envFile, "env", ".env", "Env file with INVERT_* overrides")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&c.logFormat, "log-format", "", "Log format: text or json")
	fs.StringVar(&c.format, "format", "", "Output encoding: png, bmp or tiff")
	fs.StringVar(&c.backend, "backend", "", "Inverter backend (native, or gocv when built with -tags gocv)")
}

// load resolves the configuration: defaults, then the config file, then the
// environment, then flags.
func (c *commonFlags) load() (*config.Config, *slog.Logger, error) {
	if err := config.LoadEnv(c.envFile); err != nil {
		return nil, nil, err
	}
	cfg, path, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, nil, err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}
	if c.format != "" {
		cfg.Pipeline.OutputFormat = c.format
	}
	if c.backend != "" {
		cfg.Pipeline.Backend = c.backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if path != "" {
		logger.Debug("loaded config", "path", path)
	}
	return cfg, logger, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	args := os.Args[1:]
	var code int
	if len(args) > 0 && args[0] == "serve" {
		code = serveCommand(ctx, args[1:])
	} else {
		code = filesCommand(ctx, args)
	}
	stop()
	os.Exit(code)
}

func fail(format string, args ...any) int {
	fmt.Fprintf(os.Stderr, "invert: "+format+"\n", args...)
	return exitFailure
}
