package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/procman/internal/model"
)

// NewTypesCommand creates the "types" cobra command, which lists the
// manager type tags a batch file may use.
func NewTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List manager types",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if IsJSONOutput() {
				names := make([]string, 0, len(model.ManagerTypes))
				for _, t := range model.ManagerTypes {
					names = append(names, t.String())
				}
				data, _ := json.MarshalIndent(names, "", "  ")
				fmt.Fprintln(out, string(data))
				return nil
			}
			for _, t := range model.ManagerTypes {
				fmt.Fprintln(out, t.String())
			}
			return nil
		},
	}
}
