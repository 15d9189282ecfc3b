package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"weld/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	contents := `format: markdown
output: combined.md
include_tree: true
ignore:
  - "*.log"
  - "build/"
max_file_size_kb: 512
workers: 4
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(contents), 0o644))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "markdown", cfg.Format)
	assert.Equal(t, "combined.md", cfg.Output)
	assert.True(t, cfg.IncludeTree)
	assert.Equal(t, []string{"*.log", "build/"}, cfg.Ignore)
	assert.Equal(t, 512, cfg.MaxFileSizeKB)
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, &config.Config{}, cfg)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte("format: [unclosed"), 0o644))

	_, err := config.Load(dir)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), config.FileName)
}
