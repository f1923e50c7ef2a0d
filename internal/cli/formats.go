package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/flowc/pkg/emit"
)

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported output formats",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range emit.Formats() {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
}
