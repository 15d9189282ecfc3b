package cmd

import (
	"fmt"

	"weld/pkg/format"

	"github.com/spf13/cobra"
)

// formatsCmd lists the registered delimiter formats with sample
// markers, so users can pick the one that reads best in their
// consumption context.
var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List available delimiter formats",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range format.Names() {
			spec, err := format.Lookup(name)
			if err != nil {
				return err
			}
			fmt.Printf("%s\n  start: %s\n  end:   %s\n",
				spec.Name,
				spec.StartMarker("path/to/file.txt"),
				spec.EndMarker("path/to/file.txt"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
