package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/procman/internal/dispatch"
	"github.com/shinji-kodama/procman/internal/model"
	"github.com/shinji-kodama/procman/internal/orchestrator"
	"github.com/shinji-kodama/procman/internal/safe"
)

// runFlags holds the flag values for the run command.
type runFlags struct {
	// detach forces detached execution even if the batch file does not
	// ask for it.
	detach bool

	// timeout overrides dispatch.join_timeout, e.g. "90s".
	timeout string
}

// NewRunCommand creates the "run" cobra command.
func NewRunCommand() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run <batchfile>",
		Short: "Stage and execute a batch file",
		Long: `Stage the batch file's commands on a manager of its type and execute them.

The add, update and generate sections are applied in that order. The
explicit execute list runs when present; otherwise the generated artifacts
run if a generate section was given, and the staged set otherwise.
Execution stops at the first command that fails.

Examples:
  procman run release.yaml
  procman run --detach cleanup.jsonc
  procman run release.yaml --json`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), cmd.OutOrStdout(), args[0], flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.detach, "detach", "d", false,
		"Run detached: do not wait on the calling goroutine, only log failures")
	cmd.Flags().StringVar(&flags.timeout, "timeout", "",
		"Give up waiting for a joined run after this duration (default: dispatch.join_timeout)")

	return cmd
}

// runResult is the summary printed after a run.
type runResult struct {
	Session  string `json:"session"`
	Type     string `json:"type"`
	Commands int    `json:"commands"`
	Detached bool   `json:"detached"`
	Duration string `json:"duration"`
}

// runRun is the main logic function for the run command.
func runRun(ctx context.Context, out io.Writer, path string, flags *runFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openSession(path)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m, err := s.newManager(ctx, true)
	if err != nil {
		return err
	}

	generated, err := s.stage(m)
	if err != nil {
		return err
	}

	joinTimeout := s.cfg.Dispatch.JoinTimeout
	if flags.timeout != "" {
		if joinTimeout, err = safe.ParseDuration(flags.timeout).Unpack(); err != nil {
			return err
		}
	}

	execute, count := s.plan(m, generated)
	detach := flags.detach || s.file.Detach
	gw := dispatch.NewGateway(
		dispatch.WithWorkers(s.cfg.Dispatch.Workers),
		dispatch.WithJoinTimeout(joinTimeout),
		dispatch.WithSink(s.log),
	)

	start := time.Now()
	if detach {
		VerboseLog("Detaching %d commands", count)
		gw.Detach(dispatch.UnitFunc(func() {
			if err := execute(ctx); err != nil {
				s.log.Error("detached session failed", "error", err, "kind", model.KindOf(err))
			}
		}))
		gw.Wait()
	} else {
		VerboseLog("Executing %d commands", count)
		errCh := make(chan error, 1)
		err := gw.Join(dispatch.UnitFunc(func() {
			var err error
			defer func() { errCh <- err }()
			err = execute(ctx)
		}))
		if errors.Is(err, dispatch.ErrTimeout) {
			// Stop the batch and let it return before the session closes.
			cancel()
			<-errCh
			return err
		}
		if err != nil {
			return err
		}
		if err := <-errCh; err != nil {
			return err
		}
	}

	printRunResult(out, runResult{
		Session:  s.id,
		Type:     m.Type().String(),
		Commands: count,
		Detached: detach,
		Duration: safe.FormatDuration(time.Since(start)),
	})
	return nil
}

// plan picks what run executes: the explicit execute list, else the
// generated artifacts, else the staged set.
func (s *session) plan(m *orchestrator.Process, generated bool) (func(context.Context) error, int) {
	if batch, ok := s.file.ExecuteBatch(); ok {
		return func(ctx context.Context) error { return m.Execute(ctx, batch) }, batch.Len()
	}
	if generated {
		artifacts := m.Artifacts()
		return func(ctx context.Context) error { return m.Execute(ctx, artifacts) }, artifacts.Len()
	}
	return m.Flush, m.Staged().Len()
}

func printRunResult(out io.Writer, res runResult) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(res, "", "  ")
		fmt.Fprintln(out, string(data))
		return
	}

	mode := "executed"
	if res.Detached {
		mode = "dispatched"
	}
	fmt.Fprintf(out, "Session %s: %s %s commands on %s manager in %s\n",
		res.Session, mode, safe.FormatCount(int64(res.Commands)), res.Type, res.Duration)
}
