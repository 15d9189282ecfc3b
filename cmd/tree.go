package cmd

import (
	"fmt"

	"weld/pkg/hierarchy"
	"weld/pkg/merge"

	"github.com/spf13/cobra"
)

// treeCmd previews the hierarchy block a merge of the same paths
// would embed, without reading or writing any file content.
var treeCmd = &cobra.Command{
	Use:   "tree [paths...]",
	Short: "Preview the file hierarchy of a merge",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		opts := merge.Options{}
		opts.IgnorePatterns, _ = f.GetStringArray("ignore")
		opts.GlobalIgnore, _ = f.GetString("global-ignore")
		opts.MaxFileSizeKB, _ = f.GetInt("max-file-size")
		opts.IncludeBinary, _ = f.GetBool("binary")

		excludes, _ := f.GetStringArray("exclude")
		items, err := buildItems(args, excludes)
		if err != nil {
			return err
		}
		opts.Items = items

		rels, summary, err := merge.Preview(cmd.Context(), opts, logger)
		if err != nil {
			return err
		}

		fmt.Println(hierarchy.Render(rels))
		printWarnings(summary)
		return nil
	},
}

func init() {
	f := treeCmd.Flags()
	f.StringArray("ignore", nil, "Extra ignore pattern for directory items (repeatable)")
	f.String("global-ignore", "", "Path to a global ignore file")
	f.StringArray("exclude", nil, "Relative path to exclude from a directory item (repeatable)")
	f.Int("max-file-size", 1024, "Skip files larger than this many KB (0 = no limit)")
	f.Bool("binary", false, "Include binary files instead of skipping them")
	rootCmd.AddCommand(treeCmd)
}
