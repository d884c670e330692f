package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "packsmith",
		Short: "Assemble installer packs into zip containers",
		Long: `Packsmith writes resolved installer packs into a primary zip container,
optionally splitting each pack into its own secondary container.

Each pack entry carries its file records and inline content. Duplicate content
is written once and referenced by offset afterwards, and unsigned jar/zip
payloads can go through a dense secondary compression pass.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	rootCmd.AddCommand(NewBuildCmd())
	rootCmd.AddCommand(NewListCmd())

	return rootCmd
}
