// Package config loads the service configuration from YAML, overlaid by INVERT_*
// environment variables (optionally read from a .env file).
package config

import (
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-invert/images"
	"github.com/nvr-ai/go-invert/images/codec"
	"github.com/nvr-ai/go-invert/pipeline"
)

// Config is the top-level configuration.
type Config struct {
	Server struct {
		Listen       string        `yaml:"listen"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		// MaxBodyBytes bounds a bridge request body.
		MaxBodyBytes int64 `yaml:"max_body_bytes"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Pipeline struct {
		OutputFormat string `yaml:"output_format"`
		Backend      string `yaml:"backend"`
		MaxPixels    int    `yaml:"max_pixels"`
	} `yaml:"pipeline"`

	// Workers bounds how many documents the CLI processes at once.
	Workers int `yaml:"workers"`
}

// Default returns the built-in configuration.
func Default() *Config {
	c := &Config{}
	c.Server.Listen = ":8080"
	c.Server.ReadTimeout = 30 * time.Second
	c.Server.WriteTimeout = 60 * time.Second
	c.Server.MaxBodyBytes = 64 << 20
	c.Log.Level = "info"
	c.Log.Format = "text"
	c.Pipeline.OutputFormat = string(images.FormatPNG)
	c.Pipeline.Backend = images.BackendNative
	c.Pipeline.MaxPixels = codec.DefaultMaxPixels
	c.Workers = 4
	return c
}

// Load reads the configuration file on top of the defaults. With an empty path it
// looks for .config.yaml, then config.yaml, and falls back to the defaults when
// neither exists.
//
// Arguments:
// - path: The YAML file to read, or "" to search the working directory.
//
// Returns:
// - *Config: The loaded configuration, not yet validated.
// - string: The file that was read, "" when none.
// - error: When an explicit file is missing or any file is malformed.
func Load(path string) (*Config, string, error) {
	cfg := Default()
	if path == "" {
		for _, candidate := range []string{".config.yaml", "config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			return cfg, "", nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, errors.Wrapf(err, "parse %s", path)
	}
	return cfg, path, nil
}

// LoadEnv loads the given .env files (default: .env) into the process
// environment without overriding variables already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Wrapf(err, "load %s", f)
		}
	}
	return nil
}

// ApplyEnv overlays INVERT_* environment variables onto the configuration.
func (c *Config) ApplyEnv() error {
	if v, ok := lookup("INVERT_LISTEN"); ok {
		c.Server.Listen = v
	}
	if v, ok := lookup("INVERT_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup("INVERT_LOG_FORMAT"); ok {
		c.Log.Format = v
	}
	if v, ok := lookup("INVERT_OUTPUT_FORMAT"); ok {
		c.Pipeline.OutputFormat = v
	}
	if v, ok := lookup("INVERT_BACKEND"); ok {
		c.Pipeline.Backend = v
	}
	if v, ok := lookup("INVERT_MAX_PIXELS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "INVERT_MAX_PIXELS")
		}
		c.Pipeline.MaxPixels = n
	}
	if v, ok := lookup("INVERT_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "INVERT_WORKERS")
		}
		c.Workers = n
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return errors.New("server.listen is required")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.Errorf("log.format %q must be text or json", c.Log.Format)
	}
	f, ok := images.ParseFormat(c.Pipeline.OutputFormat)
	if !ok || !f.Lossless() {
		return errors.Errorf("pipeline.output_format %q must be png, bmp or tiff", c.Pipeline.OutputFormat)
	}
	if _, err := images.Backend(c.Pipeline.Backend); err != nil {
		return errors.Wrap(err, "pipeline.backend")
	}
	if c.Pipeline.MaxPixels <= 0 {
		return errors.Errorf("pipeline.max_pixels must be positive, got %d", c.Pipeline.MaxPixels)
	}
	if c.Workers <= 0 {
		return errors.Errorf("workers must be positive, got %d", c.Workers)
	}
	return nil
}

// PipelineConfig returns the orchestrator settings. Logger and status sink are
// left for the caller.
func (c *Config) PipelineConfig() pipeline.Config {
	f, _ := images.ParseFormat(c.Pipeline.OutputFormat)
	return pipeline.Config{
		OutputFormat: f,
		Backend:      c.Pipeline.Backend,
		MaxPixels:    c.Pipeline.MaxPixels,
	}
}
