// Package config loads optional CLI defaults from a .weld.yaml file.
// The engines never read this; commands overlay explicit flags on top
// of whatever is found here.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the defaults file looked up in the working directory.
const FileName = ".weld.yaml"

// Config holds CLI defaults. Zero values mean "not configured".
type Config struct {
	Format        string   `yaml:"format"`
	Output        string   `yaml:"output"`
	IncludeTree   bool     `yaml:"include_tree"`
	Ignore        []string `yaml:"ignore"`
	GlobalIgnore  string   `yaml:"global_ignore"`
	MaxFileSizeKB int      `yaml:"max_file_size_kb"`
	Workers       int      `yaml:"workers"`
}

// Load reads FileName from dir. A missing file yields an empty Config
// and no error; a malformed file is an error.
func Load(dir string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("cannot read %s: %w", FileName, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("malformed %s: %w", FileName, err)
	}
	return cfg, nil
}
