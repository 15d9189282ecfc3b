package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"weld/pkg/config"
	"weld/pkg/format"
	"weld/pkg/split"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var splitCmd = &cobra.Command{
	Use:   "split <artifact>",
	Short: "Reconstruct files from a merged artifact",
	Long: `Split decodes a merged artifact and recreates its files under the
output directory. The format must match the one used to produce the
artifact; a mismatch fails with a clear error instead of writing
partial output.`,
	Args: cobra.ExactArgs(1),
	RunE: runSplit,
}

func init() {
	f := splitCmd.Flags()
	f.StringP("dir", "d", ".", "Output root directory")
	f.StringP("format", "f", format.Default, "Delimiter format: "+strings.Join(format.Names(), ", "))
	f.Bool("overwrite", true, "Overwrite existing files")
	f.BoolP("yes", "y", false, "Do not ask for confirmation on a non-empty output directory")
	rootCmd.AddCommand(splitCmd)
}

func runSplit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(".")
	if err != nil {
		return err
	}

	f := cmd.Flags()
	opts := split.Options{Input: args[0]}
	opts.OutputDir, _ = f.GetString("dir")
	opts.Format, _ = f.GetString("format")
	if !f.Changed("format") && cfg.Format != "" {
		opts.Format = cfg.Format
	}
	opts.Overwrite, _ = f.GetBool("overwrite")

	yes, _ := f.GetBool("yes")
	if opts.Overwrite && !yes && dirHasEntries(opts.OutputDir) && term.IsTerminal(int(os.Stdin.Fd())) {
		ok, err := promptUser(fmt.Sprintf(
			"Output directory %q is not empty; existing files may be overwritten. Continue? (y/n): ",
			opts.OutputDir))
		if err != nil {
			return fmt.Errorf("failed to read user input: %w", err)
		}
		if !ok {
			fmt.Println("Split aborted.")
			return nil
		}
	}

	summary, err := split.Run(cmd.Context(), opts, progressLogger(), logger)
	if err != nil {
		return err
	}

	fmt.Printf("Recreated %d files in %s\n", summary.Written, opts.OutputDir)
	printWarnings(summary)
	return nil
}

// dirHasEntries reports whether dir exists and contains anything.
func dirHasEntries(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}

// promptUser displays a message and waits for the user to enter 'y' or 'n'.
// Returns true if the user enters 'y' or 'yes' (case-insensitive).
func promptUser(message string) (bool, error) {
	fmt.Print(message)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}
