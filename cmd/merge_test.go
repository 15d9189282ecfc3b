package cmd

import (
	"testing"

	"weld/pkg/config"
	"weld/pkg/format"
	"weld/pkg/merge"

	"github.com/stretchr/testify/assert"
)

// changedSet fakes pflag's Changed lookup for a set of flag names.
func changedSet(names ...string) func(string) bool {
	set := map[string]bool{}
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func TestOverlayPrecedence(t *testing.T) {
	cfg := &config.Config{
		Format:        format.Markdown,
		Output:        "from-config.txt",
		IncludeTree:   true,
		Ignore:        []string{"*.bak"},
		GlobalIgnore:  "/home/user/.weldignore",
		MaxFileSizeKB: 256,
		Workers:       8,
	}

	tests := []struct {
		name    string
		opts    merge.Options // flag values as mergeOptions collects them
		changed func(string) bool
		want    merge.Options
	}{
		{
			name:    "config fills everything when no flags are set",
			opts:    merge.Options{Format: format.Default, MaxFileSizeKB: 1024},
			changed: changedSet(),
			want: merge.Options{
				Output:         "from-config.txt",
				Format:         format.Markdown,
				IncludeTree:    true,
				IgnorePatterns: []string{"*.bak"},
				GlobalIgnore:   "/home/user/.weldignore",
				MaxFileSizeKB:  256,
				MaxWorkers:     8,
			},
		},
		{
			name: "explicit flags win over config",
			opts: merge.Options{
				Output:        "from-flag.txt",
				Format:        format.MarkdownFenced,
				MaxFileSizeKB: 2048,
				MaxWorkers:    2,
				GlobalIgnore:  "/tmp/other-ignore",
			},
			changed: changedSet("output", "format", "tree", "max-file-size", "workers", "global-ignore"),
			want: merge.Options{
				Output:         "from-flag.txt",
				Format:         format.MarkdownFenced,
				IncludeTree:    false,
				IgnorePatterns: []string{"*.bak"},
				GlobalIgnore:   "/tmp/other-ignore",
				MaxFileSizeKB:  2048,
				MaxWorkers:     2,
			},
		},
		{
			name:    "ignore patterns are the union of flags and config",
			opts:    merge.Options{Format: format.Default, MaxFileSizeKB: 1024, IgnorePatterns: []string{"*.log"}},
			changed: changedSet("ignore"),
			want: merge.Options{
				Output:         "from-config.txt",
				Format:         format.Markdown,
				IncludeTree:    true,
				IgnorePatterns: []string{"*.log", "*.bak"},
				GlobalIgnore:   "/home/user/.weldignore",
				MaxFileSizeKB:  256,
				MaxWorkers:     8,
			},
		},
		{
			name: "changed flag at its default value still wins",
			opts: merge.Options{Format: format.Default, MaxFileSizeKB: 1024},
			// `-f default --max-file-size 1024` must not be silently
			// replaced by the config values.
			changed: changedSet("format", "max-file-size"),
			want: merge.Options{
				Output:         "from-config.txt",
				Format:         format.Default,
				IncludeTree:    true,
				IgnorePatterns: []string{"*.bak"},
				GlobalIgnore:   "/home/user/.weldignore",
				MaxFileSizeKB:  1024,
				MaxWorkers:     8,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			overlay(&opts, cfg, tt.changed)
			assert.Equal(t, tt.want, opts)
		})
	}
}

func TestOverlayDefaultsWithEmptyConfig(t *testing.T) {
	opts := merge.Options{Format: format.Default, MaxFileSizeKB: 1024}
	overlay(&opts, &config.Config{}, changedSet())

	assert.Equal(t, "weld.txt", opts.Output)
	assert.Equal(t, format.Default, opts.Format)
	assert.False(t, opts.IncludeTree)
	assert.Empty(t, opts.IgnorePatterns)
	assert.Equal(t, 1024, opts.MaxFileSizeKB)
	assert.Zero(t, opts.MaxWorkers)
}
