package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/csvimport"
)

func newTemplateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "template",
		Short: "Print the CSV import template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), csvimport.Template())
			return err
		},
	}
}
