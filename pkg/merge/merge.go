// Package merge consolidates files and directory trees into one
// delimited text artifact. The engine is a blocking call: callers own
// the goroutine, receive progress through an observer, and cancel
// through the context.
package merge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"weld/pkg/format"
	"weld/pkg/hierarchy"
	"weld/pkg/progress"
	"weld/pkg/selection"

	"go.uber.org/zap"
)

// ErrNoFiles signals that nothing was merged: either expansion found
// no files, or every discovered file failed to read.
var ErrNoFiles = errors.New("no files to merge")

// Item is one entry of the ordered merge list: a single file or a
// directory subtree. Insertion order determines output order.
type Item struct {
	// Path to a file or directory.
	Path string
	// Base directory for relative paths. Defaults to the parent
	// directory for file items and to the directory itself for
	// directory items.
	Base string
	// Tree optionally carries a pre-built selection for directory
	// items. When set, its current tri-state decides participation
	// and ignore patterns are not consulted.
	Tree *selection.Node
}

// Options configures one merge run. The engine treats everything here
// as plain input and owns no persistent configuration.
type Options struct {
	Items          []Item
	Output         string
	Format         string   // Registered format name
	IncludeTree    bool     // Emit the hierarchy block first
	IgnorePatterns []string // Extra ignore rules from the command line
	GlobalIgnore   string   // Optional global ignore file
	MaxFileSizeKB  int      // Files larger than this are skipped; 0 = no limit
	MaxWorkers     int      // Reader pool size; <=0 uses NumCPU
	IncludeBinary  bool     // Merge binary files instead of skipping them
}

// entry is one expanded (absolute, relative) pair in output order.
type entry struct {
	abs string
	rel string
}

// Run merges the configured items into a single artifact. Recoverable
// per-file problems are recorded in the summary and reported through
// the observer; the run fails only on setup errors, cancellation, or
// when zero files could be merged. A cancelled run removes the
// partially written output so the destination is complete or absent.
func Run(ctx context.Context, opts Options, obs progress.Observer, logger *zap.Logger) (*progress.Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	summary := &progress.Summary{}

	spec, err := format.Lookup(opts.Format)
	if err != nil {
		return nil, err
	}
	if len(opts.Items) == 0 {
		return nil, fmt.Errorf("%w: merge list is empty", ErrNoFiles)
	}
	if opts.Output == "" {
		return nil, errors.New("no output path configured")
	}

	logger.Info("Starting merge",
		zap.Int("items", len(opts.Items)),
		zap.String("format", spec.Name),
		zap.String("output", opts.Output))

	entries, err := expand(ctx, opts, summary, logger)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return summary, fmt.Errorf("%w: nothing left after selection and filtering", ErrNoFiles)
	}

	results := readAll(ctx, entries, opts.MaxWorkers, logger)
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	if err := write(ctx, spec, opts, entries, results, summary, obs, logger); err != nil {
		removeOutput(opts.Output, logger)
		return summary, err
	}

	if summary.Written == 0 {
		removeOutput(opts.Output, logger)
		return summary, fmt.Errorf("%w: all %d files failed to read", ErrNoFiles, len(entries))
	}

	logger.Info("Merge completed",
		zap.Int("merged", summary.Written),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("elapsed", time.Since(start)))
	return summary, nil
}

// Preview expands the items exactly as Run would and returns the
// ordered relative paths, without reading or writing any content.
func Preview(ctx context.Context, opts Options, logger *zap.Logger) ([]string, *progress.Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	summary := &progress.Summary{}
	entries, err := expand(ctx, opts, summary, logger)
	if err != nil {
		return nil, summary, err
	}

	rels := make([]string, len(entries))
	for i, e := range entries {
		rels[i] = e.rel
	}
	return rels, summary, nil
}

// write produces the artifact: optional hierarchy block, then one
// encoded fragment per entry in selection order. On any error the
// caller removes the partial artifact; write only makes sure the file
// is closed first.
func write(ctx context.Context, spec *format.Spec, opts Options, entries []entry, results []readResult, summary *progress.Summary, obs progress.Observer, logger *zap.Logger) error {
	if dir := filepath.Dir(opts.Output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	outFile, err := os.Create(opts.Output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	closed := false
	defer func() {
		if closed {
			return
		}
		if cerr := outFile.Close(); cerr != nil {
			logger.Warn("Failed to close output file", zap.String("file", opts.Output), zap.Error(cerr))
		}
	}()

	w := bufio.NewWriter(outFile)
	total := len(entries)
	wroteAny := false

	if opts.IncludeTree {
		rels := make([]string, len(entries))
		for i, e := range entries {
			rels[i] = e.rel
		}
		if _, err := w.WriteString(hierarchy.Block(rels)); err != nil {
			return fmt.Errorf("failed to write hierarchy block: %w", err)
		}
		wroteAny = true
	}

	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			_ = w.Flush()
			_ = outFile.Close()
			closed = true
			logger.Info("Merge cancelled", zap.Int("done", i), zap.Int("total", total))
			return err
		}

		if rerr := results[i].err; rerr != nil {
			reason := fmt.Sprintf("cannot read %s: %v", e.rel, rerr)
			summary.Warn(reason)
			obs.Notify(progress.Event{Total: total, Done: i + 1, Path: e.rel, Warning: reason})
			logger.Warn("Skipping unreadable file", zap.String("path", e.abs), zap.Error(rerr))
			continue
		}

		if wroteAny {
			if _, err := w.WriteString(format.Separator); err != nil {
				return fmt.Errorf("failed to write separator: %w", err)
			}
		}
		if _, err := w.Write(spec.Encode(e.rel, results[i].data)); err != nil {
			return fmt.Errorf("failed to write fragment for %s: %w", e.rel, err)
		}
		wroteAny = true
		summary.Written++
		obs.Notify(progress.Event{Total: total, Done: i + 1, Path: e.rel})
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}

// removeOutput deletes a partial artifact so cancelled or failed runs
// never leave a truncated destination behind.
func removeOutput(path string, logger *zap.Logger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("Could not remove incomplete output", zap.String("file", path), zap.Error(err))
	}
}
