package docker

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/shinji-kodama/procman/internal/model"
	"github.com/shinji-kodama/procman/internal/runner"
)

// execPollInterval is how often ExecRunner re-inspects an exec whose
// output stream has closed but which the daemon still reports as running.
const execPollInterval = 20 * time.Millisecond

// execAPI is the subset of the Docker API ExecRunner needs. *client.Client
// satisfies it.
type execAPI interface {
	ContainerExecCreate(ctx context.Context, container string, options container.ExecOptions) (container.ExecCreateResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config container.ExecAttachOptions) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error)
}

// ExecRunner runs commands inside a container. Binary, when set, is
// prepended to every argv the same way runner.Exec does on the host; the
// working directory is passed as the exec's WorkingDir.
type ExecRunner struct {
	API       execAPI
	Container string
	Binary    string
	Env       []string
}

// NewExecRunner returns an ExecRunner bound to the container id on c.
func NewExecRunner(c *Client, containerID, binary string) *ExecRunner {
	return &ExecRunner{API: c.Inner(), Container: containerID, Binary: binary}
}

// Run implements runner.Runner. A non-zero exit status is reported in the
// Result with a nil error, matching runner.Exec.
func (r *ExecRunner) Run(ctx context.Context, argv []string, dir string) (runner.Result, error) {
	cmd := argv
	if r.Binary != "" {
		cmd = append([]string{r.Binary}, argv...)
	}
	if len(cmd) == 0 {
		return runner.Result{ExitStatus: -1}, model.NewFault(model.CustomError, "empty command")
	}

	created, err := r.API.ContainerExecCreate(ctx, r.Container, container.ExecOptions{
		AttachStdout: true,
		AttachStderr: true,
		WorkingDir:   dir,
		Env:          r.Env,
		Cmd:          cmd,
	})
	if err != nil {
		return runner.Result{ExitStatus: -1}, r.fault(ctx, "failed to create exec", err)
	}

	resp, err := r.API.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return runner.Result{ExitStatus: -1}, r.fault(ctx, "failed to attach to exec", err)
	}
	defer resp.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, resp.Reader); err != nil {
		return runner.Result{ExitStatus: -1}, r.fault(ctx, "failed to read exec output", err)
	}

	status, err := r.waitExit(ctx, created.ID)
	if err != nil {
		return runner.Result{ExitStatus: -1, Output: stdout.String(), Stderr: stderr.String()}, err
	}
	return runner.Result{ExitStatus: status, Output: stdout.String(), Stderr: stderr.String()}, nil
}

// waitExit inspects execID until the daemon reports it finished.
func (r *ExecRunner) waitExit(ctx context.Context, execID string) (int, error) {
	for {
		info, err := r.API.ContainerExecInspect(ctx, execID)
		if err != nil {
			return -1, r.fault(ctx, "failed to inspect exec", err)
		}
		if !info.Running {
			return info.ExitCode, nil
		}
		select {
		case <-ctx.Done():
			return -1, r.fault(ctx, "failed to inspect exec", ctx.Err())
		case <-time.After(execPollInterval):
		}
	}
}

func (r *ExecRunner) fault(ctx context.Context, msg string, err error) error {
	if ctx.Err() != nil {
		return model.WrapFault(model.CustomError, "command cancelled", ctx.Err())
	}
	return model.WrapFault(model.CustomError, fmt.Sprintf("%s in container %s", msg, shortID(r.Container)), err)
}

// shortID truncates a container id to the 12 characters docker ps shows.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

var _ runner.Runner = (*ExecRunner)(nil)
