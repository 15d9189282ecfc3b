package merge_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"weld/pkg/format"
	"weld/pkg/merge"
	"weld/pkg/progress"
	"weld/pkg/selection"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func decodeArtifact(t *testing.T, path, formatName string) []format.Fragment {
	t.Helper()
	spec, err := format.Lookup(formatName)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	dec := spec.NewDecoder(bytes.NewReader(data))
	var frags []format.Fragment
	for {
		frag, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return frags
		}
		require.NoError(t, err)
		frags = append(frags, frag)
	}
}

func TestMergeDirectoryWithHierarchy(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{
		"a.txt":     "hello",
		"sub/b.txt": "",
	})
	output := filepath.Join(t.TempDir(), "out.txt")

	opts := merge.Options{
		Items:       []merge.Item{{Path: src}},
		Output:      output,
		Format:      format.Default,
		IncludeTree: true,
	}
	summary, err := merge.Run(context.Background(), opts, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Written)
	assert.Equal(t, 0, summary.Skipped)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	text := string(data)

	require.True(t, strings.HasPrefix(text, format.TreeStart+"\n"), "artifact starts with the hierarchy block")
	assert.Contains(t, text, "a.txt")
	assert.Contains(t, text, "b.txt")

	frags := decodeArtifact(t, output, format.Default)
	require.Len(t, frags, 2)
	assert.Equal(t, "a.txt", frags[0].Path)
	assert.Equal(t, []byte("hello"), frags[0].Content)
	assert.Equal(t, "sub/b.txt", frags[1].Path)
	assert.Empty(t, frags[1].Content)
}

func TestMergeSelectionExcludesFiles(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{
		"one.txt":   "1",
		"two.txt":   "2",
		"three.txt": "3",
	})

	tree, _, err := selection.Build(src, nil)
	require.NoError(t, err)
	require.True(t, tree.Toggle("two.txt", selection.Excluded))

	output := filepath.Join(t.TempDir(), "out.txt")
	opts := merge.Options{
		Items:  []merge.Item{{Path: src, Tree: tree}},
		Output: output,
		Format: format.Default,
	}
	summary, err := merge.Run(context.Background(), opts, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Written)

	frags := decodeArtifact(t, output, format.Default)
	require.Len(t, frags, 2)
	assert.Equal(t, "one.txt", frags[0].Path)
	assert.Equal(t, "three.txt", frags[1].Path)
}

func TestMergePreservesItemOrder(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{
		"first.txt":  "1",
		"second.txt": "2",
	})

	output := filepath.Join(t.TempDir(), "out.txt")
	opts := merge.Options{
		Items: []merge.Item{
			{Path: filepath.Join(src, "second.txt")},
			{Path: filepath.Join(src, "first.txt")},
		},
		Output: output,
		Format: format.Default,
	}
	_, err := merge.Run(context.Background(), opts, nil, nil)
	require.NoError(t, err)

	frags := decodeArtifact(t, output, format.Default)
	require.Len(t, frags, 2)
	assert.Equal(t, "second.txt", frags[0].Path)
	assert.Equal(t, "first.txt", frags[1].Path)
}

func TestMergeDuplicateRelativePathFirstWins(t *testing.T) {
	srcA := t.TempDir()
	srcB := t.TempDir()
	writeFiles(t, srcA, map[string]string{"x.txt": "from A"})
	writeFiles(t, srcB, map[string]string{"x.txt": "from B"})

	output := filepath.Join(t.TempDir(), "out.txt")
	opts := merge.Options{
		Items:  []merge.Item{{Path: srcA}, {Path: srcB}},
		Output: output,
		Format: format.Default,
	}
	summary, err := merge.Run(context.Background(), opts, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Written)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.Warnings, 1)
	assert.Contains(t, summary.Warnings[0], "duplicate relative path")

	frags := decodeArtifact(t, output, format.Default)
	require.Len(t, frags, 1)
	assert.Equal(t, []byte("from A"), frags[0].Content)
}

func TestMergeHonorsIgnorePatterns(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{
		"keep.go":   "package x",
		"debug.log": "noise",
	})

	output := filepath.Join(t.TempDir(), "out.txt")
	opts := merge.Options{
		Items:          []merge.Item{{Path: src}},
		Output:         output,
		Format:         format.Default,
		IgnorePatterns: []string{"*.log"},
	}
	_, err := merge.Run(context.Background(), opts, nil, nil)
	require.NoError(t, err)

	frags := decodeArtifact(t, output, format.Default)
	require.Len(t, frags, 1)
	assert.Equal(t, "keep.go", frags[0].Path)
}

func TestMergeHonorsIgnoreFile(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{
		"keep.go":        "package x",
		"secret/key.pem": "xxx",
		".weldignore":    "secret/\n.weldignore\n",
	})

	output := filepath.Join(t.TempDir(), "out.txt")
	opts := merge.Options{
		Items:  []merge.Item{{Path: src}},
		Output: output,
		Format: format.Default,
	}
	_, err := merge.Run(context.Background(), opts, nil, nil)
	require.NoError(t, err)

	frags := decodeArtifact(t, output, format.Default)
	require.Len(t, frags, 1)
	assert.Equal(t, "keep.go", frags[0].Path)
}

func TestMergeSkipsBinaryByDefault(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{"text.txt": "plain"})
	require.NoError(t, os.WriteFile(filepath.Join(src, "blob"), []byte{0x00, 0x01, 0xFF, 0x00}, 0o644))

	output := filepath.Join(t.TempDir(), "out.txt")
	opts := merge.Options{
		Items:  []merge.Item{{Path: src}},
		Output: output,
		Format: format.Default,
	}
	summary, err := merge.Run(context.Background(), opts, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Written)
	assert.Equal(t, 1, summary.Skipped)

	opts.IncludeBinary = true
	summary, err = merge.Run(context.Background(), opts, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Written)
}

func TestMergeSizeLimit(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{
		"small.txt": "ok",
		"large.txt": strings.Repeat("x", 4096),
	})

	output := filepath.Join(t.TempDir(), "out.txt")
	opts := merge.Options{
		Items:         []merge.Item{{Path: src}},
		Output:        output,
		Format:        format.Default,
		MaxFileSizeKB: 1,
	}
	summary, err := merge.Run(context.Background(), opts, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Written)
	assert.Equal(t, 1, summary.Skipped)
}

func TestMergeEmptySelectionFails(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out.txt")

	_, err := merge.Run(context.Background(), merge.Options{
		Items:  []merge.Item{{Path: t.TempDir()}},
		Output: output,
		Format: format.Default,
	}, nil, nil)
	assert.ErrorIs(t, err, merge.ErrNoFiles)

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "no artifact for a failed merge")
}

func TestMergeUnknownFormat(t *testing.T) {
	_, err := merge.Run(context.Background(), merge.Options{
		Items:  []merge.Item{{Path: t.TempDir()}},
		Output: filepath.Join(t.TempDir(), "out.txt"),
		Format: "nope",
	}, nil, nil)
	assert.ErrorIs(t, err, format.ErrUnknownFormat)
}

func TestMergeCancelledLeavesNoOutput(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{"a.txt": "hello"})
	output := filepath.Join(t.TempDir(), "out.txt")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := merge.Run(ctx, merge.Options{
		Items:  []merge.Item{{Path: src}},
		Output: output,
		Format: format.Default,
	}, nil, nil)
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "cancelled merge leaves no partial artifact")
}

func TestMergeAbortedMidWriteLeavesNoOutput(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{
		"a.txt": "1",
		"b.txt": "2",
		"c.txt": "3",
	})
	output := filepath.Join(t.TempDir(), "out.txt")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel after the first fragment: the artifact exists and is
	// partially written when the run aborts.
	obs := func(ev progress.Event) {
		if ev.Done == 1 {
			cancel()
		}
	}

	_, err := merge.Run(ctx, merge.Options{
		Items:  []merge.Item{{Path: src}},
		Output: output,
		Format: format.Default,
	}, obs, nil)
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "aborted merge never leaves a truncated artifact")
}

func TestMergeReportsProgress(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{
		"a.txt": "1",
		"b.txt": "2",
	})

	var events []progress.Event
	obs := func(ev progress.Event) { events = append(events, ev) }

	_, err := merge.Run(context.Background(), merge.Options{
		Items:  []merge.Item{{Path: src}},
		Output: filepath.Join(t.TempDir(), "out.txt"),
		Format: format.Default,
	}, obs, nil)
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, 2, events[0].Total)
	assert.Equal(t, 1, events[0].Done)
	assert.Equal(t, "a.txt", events[0].Path)
	assert.Equal(t, 2, events[1].Done)
	assert.Equal(t, "b.txt", events[1].Path)
}

func TestPreviewListsPathsWithoutWriting(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{
		"a.txt":     "1",
		"sub/b.txt": "2",
	})

	rels, summary, err := merge.Preview(context.Background(), merge.Options{
		Items: []merge.Item{{Path: src}},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "sub/b.txt"}, rels)
	assert.Equal(t, 0, summary.Skipped)
}
