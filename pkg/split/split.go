// Package split reconstructs files and directories from a merged
// artifact. Like merge, the engine is a blocking call with observer
// progress and context cancellation.
package split

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"weld/pkg/format"
	"weld/pkg/progress"

	"go.uber.org/zap"
)

// ErrNoFragments signals that decoding produced nothing from a
// non-blank artifact: the chosen format does not match the artifact,
// or the artifact is corrupt.
var ErrNoFragments = errors.New("format mismatch or corrupt artifact: no fragments decoded")

// Options configures one split run.
type Options struct {
	Input     string // Merged artifact path
	OutputDir string // Root directory for reconstructed files
	Format    string // Registered format name; must match the merge
	Overwrite bool   // Replace existing files instead of skipping them
}

// Run reconstructs the files encoded in the artifact. Unsafe or
// unwritable fragments are recorded in the summary and skipped; the
// run aborts on an unterminated fragment, on cancellation, or when no
// fragment decodes at all. Files written before an abort stay on disk;
// callers needing atomicity split into a temporary directory and
// rename it afterwards.
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

	in, err := os.Open(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("cannot read artifact: %w", err)
	}
	defer in.Close()

	outRoot, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve output directory: %w", err)
	}
	if err := os.MkdirAll(outRoot, 0o755); err != nil {
		return nil, fmt.Errorf("output directory not writable: %w", err)
	}

	logger.Info("Starting split",
		zap.String("artifact", opts.Input),
		zap.String("format", spec.Name),
		zap.String("outputDir", outRoot))

	blankWatch := &blankWatcher{r: in}
	dec := spec.NewDecoder(blankWatch)
	dec.OnWarning(func(msg string) {
		summary.Warn(msg)
		logger.Warn("Decode warning", zap.String("detail", msg))
	})

	decoded := 0
	for {
		if err := ctx.Err(); err != nil {
			logger.Info("Split cancelled", zap.Int("written", summary.Written))
			return summary, err
		}

		frag, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, fmt.Errorf("decoding %s: %w", opts.Input, err)
		}
		decoded++

		writeFragment(outRoot, frag, opts.Overwrite, decoded, summary, obs, logger)
	}

	if decoded == 0 {
		if !blankWatch.sawContent {
			return summary, fmt.Errorf("artifact %s is empty", opts.Input)
		}
		return summary, fmt.Errorf("%w (expected format %q)", ErrNoFragments, spec.Name)
	}

	logger.Info("Split completed",
		zap.Int("written", summary.Written),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("elapsed", time.Since(start)))
	return summary, nil
}

// writeFragment validates the fragment path and writes its content
// verbatim under outRoot. Failures are recoverable: recorded and
// reported, never aborting the run.
func writeFragment(outRoot string, frag format.Fragment, overwrite bool, done int, summary *progress.Summary, obs progress.Observer, logger *zap.Logger) {
	warn := func(reason string) {
		summary.Warn(reason)
		obs.Notify(progress.Event{Done: done, Path: frag.Path, Warning: reason})
	}

	target, err := safeJoin(outRoot, frag.Path)
	if err != nil {
		warn(fmt.Sprintf("rejected %s: %v", frag.Path, err))
		logger.Warn("Rejected unsafe fragment path", zap.String("relPath", frag.Path), zap.Error(err))
		return
	}

	if !overwrite {
		if _, err := os.Lstat(target); err == nil {
			warn(fmt.Sprintf("%s already exists, skipped", frag.Path))
			return
		}
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		warn(fmt.Sprintf("cannot create directory for %s: %v", frag.Path, err))
		return
	}
	if err := os.WriteFile(target, frag.Content, 0o644); err != nil {
		warn(fmt.Sprintf("cannot write %s: %v", frag.Path, err))
		logger.Warn("Failed to write fragment", zap.String("relPath", frag.Path), zap.Error(err))
		return
	}

	summary.Written++
	obs.Notify(progress.Event{Done: done, Path: frag.Path})
	logger.Debug("Wrote file", zap.String("path", target))
}

// blankWatcher records whether any non-whitespace byte passed through,
// distinguishing an empty artifact from a format mismatch.
type blankWatcher struct {
	r          io.Reader
	sawContent bool
}

func (b *blankWatcher) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if !b.sawContent {
		for _, c := range p[:n] {
			if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
				b.sawContent = true
				break
			}
		}
	}
	return n, err
}
