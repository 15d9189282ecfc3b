package cmd

import (
	"weld/pkg/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logger *zap.Logger
	debug  bool
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "weld",
	Short: "weld merges file trees into one text artifact and splits them back",
	Long: `weld consolidates files and directory trees into a single delimited
text artifact, and reconstructs the original files and directory
structure from such an artifact. The artifact stays human-readable and
directly editable, which makes it suitable for sharing codebases with
people or language models.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !debug {
			return nil
		}
		l, err := logging.Setup(true)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

// Execute runs the root command with the given logger.
func Execute(l *zap.Logger) error {
	logger = l
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable verbose development logging")
}
