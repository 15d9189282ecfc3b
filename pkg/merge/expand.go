package merge

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"weld/pkg/ignore"
	"weld/pkg/progress"

	"go.uber.org/zap"
)

// expand turns the ordered item list into a flat ordered list of
// (absolute, relative) pairs. Item order is preserved; within a walked
// directory, paths come out in lexical walk order. Duplicate resolved
// paths and duplicate relative paths are dropped, first occurrence
// wins.
func expand(ctx context.Context, opts Options, summary *progress.Summary, logger *zap.Logger) ([]entry, error) {
	var entries []entry
	seenAbs := map[string]bool{}
	seenRel := map[string]bool{}

	add := func(abs, rel string) {
		if seenAbs[abs] {
			logger.Debug("Skipping already merged file", zap.String("path", abs))
			return
		}
		if seenRel[rel] {
			summary.Warn(fmt.Sprintf("duplicate relative path %s: keeping first occurrence", rel))
			logger.Warn("Duplicate relative path across merge items",
				zap.String("relPath", rel), zap.String("path", abs))
			return
		}
		seenAbs[abs] = true
		seenRel[rel] = true
		entries = append(entries, entry{abs: abs, rel: rel})
	}

	for _, item := range opts.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		abs, err := filepath.Abs(item.Path)
		if err != nil {
			summary.Warn(fmt.Sprintf("cannot resolve %s: %v", item.Path, err))
			continue
		}

		info, err := os.Stat(abs)
		if err != nil {
			summary.Warn(fmt.Sprintf("cannot access %s: %v", item.Path, err))
			logger.Warn("Merge item not accessible", zap.String("path", abs), zap.Error(err))
			continue
		}

		if !info.IsDir() {
			if reason := fileSkipReason(abs, info, opts); reason != "" {
				summary.Warn(reason)
				continue
			}
			add(abs, relativeTo(abs, item.Base, filepath.Dir(abs)))
			continue
		}

		if item.Tree != nil {
			for _, sel := range item.Tree.Collect() {
				sinfo, serr := os.Stat(sel.Abs)
				if serr != nil {
					summary.Warn(fmt.Sprintf("cannot access %s: %v", sel.Rel, serr))
					continue
				}
				if reason := fileSkipReason(sel.Abs, sinfo, opts); reason != "" {
					summary.Warn(reason)
					continue
				}
				add(sel.Abs, sel.Rel)
			}
			continue
		}

		if err := expandDir(item, abs, opts, add, summary, logger); err != nil {
			return nil, err
		}
	}

	return entries, nil
}

// expandDir walks a directory item, pruning ignored subtrees and
// filtering files, in lexical order.
func expandDir(item Item, dirAbs string, opts Options, add func(abs, rel string), summary *progress.Summary, logger *zap.Logger) error {
	matcher, err := ignore.Load(filepath.Join(dirAbs, ignore.IgnoreFileName), opts.GlobalIgnore, logger)
	if err != nil {
		return fmt.Errorf("failed to load ignore patterns for %s: %w", dirAbs, err)
	}
	matcher.CompileLines(opts.IgnorePatterns...)

	return filepath.WalkDir(dirAbs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			summary.Warn(fmt.Sprintf("cannot access %s: %v", path, err))
			logger.Warn("Error accessing path during traversal", zap.String("path", path), zap.Error(err))
			return nil
		}

		rel, _ := filepath.Rel(dirAbs, path)
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && matcher.MatchesPath(rel) {
				logger.Debug("Skipping ignored directory", zap.String("dir", path))
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			logger.Debug("Skipping non-regular file", zap.String("path", path))
			return nil
		}
		if matcher.MatchesPath(rel) {
			logger.Debug("Skipping ignored file", zap.String("path", path))
			return nil
		}

		info, ierr := d.Info()
		if ierr != nil {
			summary.Warn(fmt.Sprintf("cannot stat %s: %v", rel, ierr))
			return nil
		}
		if reason := fileSkipReason(path, info, opts); reason != "" {
			summary.Warn(reason)
			return nil
		}

		add(path, relativeTo(path, item.Base, dirAbs))
		return nil
	})
}

// fileSkipReason applies the size and binary filters to one file.
// An empty return means the file participates.
func fileSkipReason(abs string, info fs.FileInfo, opts Options) string {
	if opts.MaxFileSizeKB > 0 && info.Size() > int64(opts.MaxFileSizeKB)*1024 {
		return fmt.Sprintf("%s exceeds size limit (%d KB)", abs, opts.MaxFileSizeKB)
	}
	if !opts.IncludeBinary {
		if isBinary, err := isBinaryFile(abs); err == nil && isBinary {
			return fmt.Sprintf("%s looks binary, skipped (use --binary to include)", abs)
		}
	}
	return ""
}

// relativeTo computes the slash-relative path of abs against base,
// falling back to fallbackBase and finally to the bare file name.
func relativeTo(abs, base, fallbackBase string) string {
	if base == "" {
		base = fallbackBase
	}
	if absBase, err := filepath.Abs(base); err == nil {
		if rel, err := filepath.Rel(absBase, abs); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(abs)
}
