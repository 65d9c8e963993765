// Package git binds the orchestration manager to the version-control
// domain.
//
// A git manager is an orchestrator.Process tagged model.TypeGit whose
// runner hands every command to the git binary, passing the working
// directory with -C. It adds no public
// surface of its own: staging, updating, generating and executing are the
// orchestrator's, and the tag accessor is the ownership base's. Command
// syntax, credentials and repository state stay with git itself.
package git

import (
	"github.com/shinji-kodama/procman/internal/docker"
	"github.com/shinji-kodama/procman/internal/manager"
	"github.com/shinji-kodama/procman/internal/model"
	"github.com/shinji-kodama/procman/internal/orchestrator"
	"github.com/shinji-kodama/procman/internal/runner"
)

// DefaultBinary is the git executable looked up on PATH.
const DefaultBinary = "git"

// Runner returns the runner a git manager uses for binary. An empty
// binary means DefaultBinary.
func Runner(binary string) runner.Exec {
	if binary == "" {
		binary = DefaultBinary
	}
	return runner.Exec{Binary: binary, DirFlag: "-C"}
}

// New creates a git-tagged manager. sink may be nil. Options are applied
// after the git runner is installed, so orchestrator.WithRunner can
// replace it (tests, containers).
func New(sink manager.Sink, opts ...orchestrator.Option) *orchestrator.Process {
	all := make([]orchestrator.Option, 0, len(opts)+1)
	all = append(all, orchestrator.WithSink(sink))
	all = append(all, opts...)
	return orchestrator.New(model.TypeGit, Runner(DefaultBinary), all...)
}

// NewInContainer creates a git-tagged manager whose commands run inside the
// container containerID through the Docker exec API. The container must
// provide git on its PATH.
func NewInContainer(c *docker.Client, containerID string, sink manager.Sink, opts ...orchestrator.Option) *orchestrator.Process {
	all := make([]orchestrator.Option, 0, len(opts)+1)
	all = append(all, orchestrator.WithRunner(docker.NewExecRunner(c, containerID, DefaultBinary)))
	all = append(all, opts...)
	return New(sink, all...)
}
