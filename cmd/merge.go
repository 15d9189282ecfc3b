package cmd

import (
	"fmt"
	"os"
	"strings"

	"weld/pkg/config"
	"weld/pkg/format"
	"weld/pkg/merge"
	"weld/pkg/progress"
	"weld/pkg/selection"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var mergeCmd = &cobra.Command{
	Use:   "merge [paths...]",
	Short: "Merge files and directories into one artifact",
	Long: `Merge reads the given files and directory trees in order and writes
one delimited artifact. Directory trees are walked honoring ` + "`.weldignore`" + `
files; --exclude removes individual paths from a directory item.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMerge,
}

func init() {
	f := mergeCmd.Flags()
	f.StringP("output", "o", "", "Output artifact path (default weld.txt)")
	f.StringP("format", "f", format.Default, "Delimiter format: "+strings.Join(format.Names(), ", "))
	f.BoolP("tree", "t", false, "Include a file hierarchy block at the head of the artifact")
	f.StringArray("ignore", nil, "Extra ignore pattern for directory items (repeatable)")
	f.String("global-ignore", "", "Path to a global ignore file")
	f.StringArray("exclude", nil, "Relative path to exclude from a directory item (repeatable)")
	f.Int("max-file-size", 1024, "Skip files larger than this many KB (0 = no limit)")
	f.Int("workers", 0, "Reader pool size (0 = number of CPUs)")
	f.Bool("binary", false, "Include binary files instead of skipping them")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	opts, err := mergeOptions(cmd, args)
	if err != nil {
		return err
	}

	summary, err := merge.Run(cmd.Context(), opts, progressLogger(), logger)
	if err != nil {
		return err
	}

	fmt.Printf("Merged %d files into %s\n", summary.Written, opts.Output)
	printWarnings(summary)
	return nil
}

// mergeOptions assembles merge.Options from flags layered over the
// optional .weld.yaml defaults.
func mergeOptions(cmd *cobra.Command, args []string) (merge.Options, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return merge.Options{}, err
	}

	f := cmd.Flags()
	opts := merge.Options{}
	opts.Output, _ = f.GetString("output")
	opts.Format, _ = f.GetString("format")
	opts.IncludeTree, _ = f.GetBool("tree")
	opts.IgnorePatterns, _ = f.GetStringArray("ignore")
	opts.GlobalIgnore, _ = f.GetString("global-ignore")
	opts.MaxFileSizeKB, _ = f.GetInt("max-file-size")
	opts.MaxWorkers, _ = f.GetInt("workers")
	opts.IncludeBinary, _ = f.GetBool("binary")

	overlay(&opts, cfg, f.Changed)

	excludes, _ := f.GetStringArray("exclude")
	opts.Items, err = buildItems(args, excludes)
	if err != nil {
		return merge.Options{}, err
	}
	return opts, nil
}

// overlay fills in .weld.yaml defaults for every option the user did
// not set explicitly. Flags always win: changed reports whether the
// named flag was given on the command line. Ignore patterns are the
// union of both sources.
func overlay(opts *merge.Options, cfg *config.Config, changed func(name string) bool) {
	if opts.Output == "" {
		opts.Output = cfg.Output
	}
	if opts.Output == "" {
		opts.Output = "weld.txt"
	}
	if !changed("format") && cfg.Format != "" {
		opts.Format = cfg.Format
	}
	if !changed("tree") && cfg.IncludeTree {
		opts.IncludeTree = true
	}
	opts.IgnorePatterns = append(opts.IgnorePatterns, cfg.Ignore...)
	if opts.GlobalIgnore == "" {
		opts.GlobalIgnore = cfg.GlobalIgnore
	}
	if !changed("max-file-size") && cfg.MaxFileSizeKB != 0 {
		opts.MaxFileSizeKB = cfg.MaxFileSizeKB
	}
	if !changed("workers") && cfg.Workers != 0 {
		opts.MaxWorkers = cfg.Workers
	}
}

// buildItems turns path arguments into ordered merge items. When
// excludes are given, directory items get an explicit selection tree
// with those paths toggled off.
func buildItems(paths, excludes []string) ([]merge.Item, error) {
	items := make([]merge.Item, 0, len(paths))
	matched := make([]bool, len(excludes))

	for _, p := range paths {
		item := merge.Item{Path: p}

		info, err := os.Stat(p)
		if err != nil {
			// Let the engine record the warning in its summary.
			items = append(items, item)
			continue
		}

		if info.IsDir() && len(excludes) > 0 {
			tree, warnings, err := selection.Build(p, logger)
			if err != nil {
				return nil, err
			}
			for _, w := range warnings {
				logger.Warn("Selection warning", zap.String("detail", w))
			}
			for i, ex := range excludes {
				if tree.Toggle(strings.Trim(ex, "/"), selection.Excluded) {
					matched[i] = true
				}
			}
			item.Tree = tree
		}
		items = append(items, item)
	}

	for i, ex := range excludes {
		if !matched[i] {
			logger.Warn("Exclude did not match any path", zap.String("exclude", ex))
		}
	}
	return items, nil
}

// progressLogger is the CLI's observer: warnings are logged as they
// happen, normal advancement stays quiet outside debug mode.
func progressLogger() progress.Observer {
	return func(ev progress.Event) {
		if ev.Warning != "" {
			logger.Warn("Skipped", zap.String("path", ev.Path), zap.String("reason", ev.Warning))
			return
		}
		logger.Debug("Processed",
			zap.String("path", ev.Path),
			zap.Int("done", ev.Done),
			zap.Int("total", ev.Total))
	}
}

// printWarnings echoes accumulated per-file problems to stdout.
func printWarnings(s *progress.Summary) {
	if s.Skipped == 0 {
		return
	}
	fmt.Printf("%d files skipped:\n", s.Skipped)
	for _, w := range s.Warnings {
		fmt.Printf("  - %s\n", w)
	}
}
