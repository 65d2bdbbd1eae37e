// Package cli implements healthctl, an offline companion for preparing CSV
// imports and checking readings without a running server.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRootCommand builds the healthctl command tree
func NewRootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "healthctl",
		Short: "Offline tools for the vitals tracker",
		Long: `healthctl prints the CSV import template, checks a CSV file the way the
import endpoint would, and classifies single readings against the
health ranges used by the server.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging")

	logger := func() *zap.Logger {
		if !verbose {
			return zap.NewNop()
		}
		l, err := zap.NewDevelopment()
		if err != nil {
			return zap.NewNop()
		}
		return l
	}

	root.AddCommand(
		newTemplateCommand(),
		newValidateCommand(logger),
		newAssessCommand(),
	)
	return root
}

// Execute runs healthctl with os.Args
func Execute() error {
	return NewRootCommand().Execute()
}
