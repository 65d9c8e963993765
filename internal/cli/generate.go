package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/procman/internal/model"
	"github.com/shinji-kodama/procman/internal/safe"
)

// generateFlags holds the flag values for the generate command.
type generateFlags struct {
	// out is a file to write the artifacts to, as YAML.
	out string
}

// NewGenerateCommand creates the "generate" cobra command.
func NewGenerateCommand() *cobra.Command {
	flags := &generateFlags{}

	cmd := &cobra.Command{
		Use:   "generate <batchfile>",
		Short: "Render a batch file's staged commands without running them",
		Long: `Apply the add, update and generate sections of a batch file and print the
rendered commands. Nothing is executed and no container is contacted.

Examples:
  procman generate release.yaml
  procman generate release.yaml --out plan.yaml`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "Write the artifacts to this file as YAML")

	return cmd
}

// generateResult is the JSON output of the generate command.
type generateResult struct {
	Type       string     `json:"type"`
	Generation int        `json:"generation"`
	Commands   [][]string `json:"commands"`
	Out        string     `json:"out,omitempty"`
}

func runGenerate(cmd *cobra.Command, path string, flags *generateFlags) error {
	s, err := openSession(path)
	if err != nil {
		return err
	}
	defer s.Close()

	m, err := s.newManager(cmd.Context(), false)
	if err != nil {
		return err
	}
	if _, err := s.stage(m); err != nil {
		return err
	}
	// A file without a generate section still renders once.
	if !s.file.HasGenerate() {
		if err := m.Generate(nil); err != nil {
			return fmt.Errorf("generate: %w", err)
		}
	}

	if flags.out != "" {
		if err := m.WriteArtifacts(flags.out); err != nil {
			return err
		}
		if info, err := os.Stat(flags.out); err == nil {
			VerboseLog("Wrote %s to %s", safe.FormatBytes(info.Size()), flags.out)
		}
	}

	printGenerateResult(cmd.OutOrStdout(), m.Type(), m.Generation(), m.Artifacts(), flags.out)
	return nil
}

func printGenerateResult(out io.Writer, t model.ManagerType, generation int, artifacts model.CommandBatch, file string) {
	if IsJSONOutput() {
		res := generateResult{Type: t.String(), Generation: generation, Commands: [][]string{}, Out: file}
		for _, c := range artifacts {
			res.Commands = append(res.Commands, []string(c))
		}
		data, _ := json.MarshalIndent(res, "", "  ")
		fmt.Fprintln(out, string(data))
		return
	}

	for _, c := range artifacts {
		fmt.Fprintln(out, c.String())
	}
}
