// Package cli implements the cobra-based CLI commands for procman.
//
// Each subcommand (run, generate, types) is defined in its own file within
// this package. This file defines the root command that serves as the
// parent for all subcommands and handles global flags.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/procman/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	jsonOutput bool

	// verbose enables trace output on stderr.
	verbose bool

	// configPath is an explicit procman.yaml. Empty means the default
	// search path.
	configPath string
)

// Build information, injected from the main package.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
//
// The root command itself does not perform any action. It only provides
// help text and global flags.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "procman",
		Short: "Staged command batch orchestrator",
		Long: `procman stages argv-style command batches on a typed manager, renders
them through a generation cycle, and executes them in order, stopping at
the first failure.

Sessions are described by batch files (YAML or JSON) and run either joined
(the CLI waits) or detached (failures are only logged).`,

		// Error output is formatted by Execute (text or JSON).
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to procman.yaml (default: search $XDG_CONFIG_HOME/procman and .)")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewGenerateCommand())
	rootCmd.AddCommand(NewTypesCommand())

	return rootCmd
}

// usageError marks invocation mistakes (bad flags, wrong argument count)
// so they exit with ExitUsage.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// usageArgs wraps a cobra positional-argument validator so its errors
// are reported as usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// Execute runs the root command and exits with the code derived from the
// returned error.
func Execute(rootCmd *cobra.Command) {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	printError(rootCmd.ErrOrStderr(), err)
	os.Exit(int(ExitCodeOf(err)))
}

// ExitCodeOf maps an error to the process exit code: usage errors exit
// with ExitUsage, faults with the code of their kind, anything else with
// ExitGeneralError.
func ExitCodeOf(err error) model.ExitCode {
	if err == nil {
		return model.ExitSuccess
	}
	var usage *usageError
	if errors.As(err, &usage) {
		return model.ExitUsage
	}
	return model.KindOf(err).ExitCode()
}

// printError outputs an error in JSON or text depending on --json.
func printError(w io.Writer, err error) {
	var fault *model.Fault
	isFault := errors.As(err, &fault)

	if jsonOutput {
		errObj := map[string]any{
			"message": err.Error(),
			"kind":    model.KindOf(err).String(),
			"code":    int(ExitCodeOf(err)),
		}
		var cmdErr *model.CommandError
		if errors.As(err, &cmdErr) {
			errObj["command"] = map[string]any{
				"index":  cmdErr.Index,
				"argv":   cmdErr.Argv,
				"status": cmdErr.ExitStatus,
				"output": cmdErr.Output,
			}
		}
		// stdout is reserved for successful command output.
		data, _ := json.MarshalIndent(map[string]any{"error": errObj}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if isFault {
		fmt.Fprintf(w, "Error [%s]: %s\n", fault.Kind, err.Error())
		return
	}
	fmt.Fprintf(w, "Error: %s\n", err.Error())
}

// VerboseLog prints a message to stderr only when verbose mode is enabled.
func VerboseLog(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}
