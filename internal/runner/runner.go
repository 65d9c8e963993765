// Package runner defines the external process capability that managers
// invoke once per sub-command, and an os/exec implementation of it.
//
// Design decisions:
//   - Commands are argv slices handed to exec.Command directly. Nothing is
//     ever passed through a shell.
//   - A command that starts and exits non-zero is not an error at this
//     layer: it is a Result with a non-zero ExitStatus. Errors are reserved
//     for commands that could not be started at all (missing binary,
//     missing working directory), and are returned as model.Fault values.
//   - Stdout and stderr are captured separately so callers can show
//     stderr on failure while keeping stdout clean on success.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/shinji-kodama/procman/internal/model"
)

// Result is the outcome of one sub-command that was started.
type Result struct {
	// ExitStatus is the process exit code. Zero means success.
	ExitStatus int

	// Output is the captured standard output.
	Output string

	// Stderr is the captured standard error.
	Stderr string
}

// Success reports whether the command exited with status zero.
func (r Result) Success() bool {
	return r.ExitStatus == 0
}

// Combined returns stdout followed by trimmed stderr, for messages.
func (r Result) Combined() string {
	out := strings.TrimSpace(r.Output)
	errOut := strings.TrimSpace(r.Stderr)
	switch {
	case errOut == "":
		return out
	case out == "":
		return errOut
	default:
		return out + "\n" + errOut
	}
}

// Runner runs one argv command in a working directory.
type Runner interface {
	Run(ctx context.Context, argv []string, dir string) (Result, error)
}

// Func adapts a plain function to the Runner interface.
type Func func(ctx context.Context, argv []string, dir string) (Result, error)

// Run calls f.
func (f Func) Run(ctx context.Context, argv []string, dir string) (Result, error) {
	return f(ctx, argv, dir)
}

// Exec runs commands with os/exec.
//
// When Binary is empty, argv[0] is the program and argv[1:] its
// arguments. When Binary is set, every argv is passed as arguments to
// Binary, which is how the git manager turns {"add", "fileA"} into
// `git add fileA`.
//
// When DirFlag is set (git uses "-C"), the working directory is passed
// to the program as `DirFlag dir` instead of through the process working
// directory.
type Exec struct {
	Binary  string
	DirFlag string
	Env     []string
}

// Run executes argv in dir and waits for it to exit.
func (e Exec) Run(ctx context.Context, argv []string, dir string) (Result, error) {
	program, args, err := e.command(argv, dir)
	if err != nil {
		return Result{ExitStatus: -1}, err
	}

	if dir != "" {
		info, statErr := os.Stat(dir)
		if statErr != nil || !info.IsDir() {
			return Result{ExitStatus: -1}, model.WrapFault(
				model.DirectoryNotFound,
				fmt.Sprintf("working directory %q not found", dir),
				statErr,
			)
		}
	}

	// #nosec G204 -- argv is passed without a shell
	cmd := exec.CommandContext(ctx, program, args...)
	if dir != "" && e.DirFlag == "" {
		cmd.Dir = dir
	}
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	res := Result{Output: stdout.String(), Stderr: stderr.String()}
	if runErr == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) && exitErr.ExitCode() >= 0 {
		res.ExitStatus = exitErr.ExitCode()
		return res, nil
	}

	res.ExitStatus = -1
	switch {
	case errors.Is(runErr, exec.ErrNotFound), errors.Is(runErr, os.ErrNotExist):
		return res, model.WrapFault(model.FileNotFound, fmt.Sprintf("program %q not found", program), runErr)
	case errors.Is(runErr, os.ErrPermission):
		return res, model.WrapFault(model.FileIsBlocked, fmt.Sprintf("program %q is not executable", program), runErr)
	case ctx.Err() != nil:
		return res, model.WrapFault(model.CustomError, "command cancelled", ctx.Err())
	default:
		return res, model.WrapFault(model.CustomError, fmt.Sprintf("failed to run %s", program), runErr)
	}
}

// command splits argv into the program and its arguments.
func (e Exec) command(argv []string, dir string) (string, []string, error) {
	if e.Binary == "" {
		if len(argv) == 0 {
			return "", nil, model.NewFault(model.CustomError, "empty command")
		}
		return argv[0], argv[1:], nil
	}

	args := make([]string, 0, len(argv)+2)
	if e.DirFlag != "" && dir != "" {
		args = append(args, e.DirFlag, dir)
	}
	args = append(args, argv...)
	return e.Binary, args, nil
}
