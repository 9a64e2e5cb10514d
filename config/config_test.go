package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-invert/images"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, images.FormatPNG, cfg.PipelineConfig().OutputFormat)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invert.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen: "127.0.0.1:9000"
  read_timeout: 5s
log:
  level: debug
  format: json
pipeline:
  output_format: TIFF
workers: 2
`), 0o644))

	cfg, used, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Listen)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout, "unset keys keep their defaults")
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 2, cfg.Workers)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, images.FormatTIFF, cfg.PipelineConfig().OutputFormat)
}

func TestLoadSearchesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, used, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "", used)
	assert.Equal(t, ":8080", cfg.Server.Listen)

	require.NoError(t, os.WriteFile("config.yaml", []byte("workers: 3\n"), 0o644))
	require.NoError(t, os.WriteFile(".config.yaml", []byte("workers: 7\n"), 0o644))
	cfg, used, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, ".config.yaml", used)
	assert.Equal(t, 7, cfg.Workers)
}

func TestLoadErrors(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: [unterminated"), 0o644))
	_, _, err = Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("INVERT_LISTEN", ":9999")
	t.Setenv("INVERT_LOG_LEVEL", "warn")
	t.Setenv("INVERT_MAX_PIXELS", "1024")
	t.Setenv("INVERT_WORKERS", "8")
	t.Setenv("INVERT_OUTPUT_FORMAT", "bmp")
	t.Setenv("INVERT_LOG_FORMAT", "  ")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, ":9999", cfg.Server.Listen)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "blank values are ignored")
	assert.Equal(t, 1024, cfg.Pipeline.MaxPixels)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "bmp", cfg.Pipeline.OutputFormat)
	require.NoError(t, cfg.Validate())

	t.Setenv("INVERT_WORKERS", "many")
	assert.Error(t, cfg.ApplyEnv())
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("INVERT_BACKEND=native\n"), 0o644))
	t.Setenv("INVERT_BACKEND", "")
	os.Unsetenv("INVERT_BACKEND")

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "native", os.Getenv("INVERT_BACKEND"))

	assert.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty listen", func(c *Config) { c.Server.Listen = "" }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"lossy output", func(c *Config) { c.Pipeline.OutputFormat = "jpeg" }},
		{"unknown output", func(c *Config) { c.Pipeline.OutputFormat = "heic" }},
		{"unknown backend", func(c *Config) { c.Pipeline.Backend = "cuda" }},
		{"zero pixels", func(c *Config) { c.Pipeline.MaxPixels = 0 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"zero body", func(c *Config) { c.Server.MaxBodyBytes = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
