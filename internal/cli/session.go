package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/shinji-kodama/procman/internal/batchfile"
	"github.com/shinji-kodama/procman/internal/config"
	"github.com/shinji-kodama/procman/internal/docker"
	"github.com/shinji-kodama/procman/internal/git"
	"github.com/shinji-kodama/procman/internal/logging"
	"github.com/shinji-kodama/procman/internal/model"
	"github.com/shinji-kodama/procman/internal/orchestrator"
	"github.com/shinji-kodama/procman/internal/runner"
)

// session bundles what every batch-file command needs: configuration, a
// logger tagged with a fresh session id, and the parsed batch file.
type session struct {
	id     string
	cfg    *config.Config
	log    *logging.Logger
	file   *batchfile.File
	closer []io.Closer
}

// openSession loads configuration and the batch file at path.
func openSession(path string) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	VerboseLog("Loaded configuration (log level %s, %d workers)", cfg.Log.Level, cfg.Dispatch.Workers)

	log, err := logging.Open(cfg.Log.File, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	s := &session{id: uuid.NewString(), cfg: cfg, closer: []io.Closer{log}}
	s.log = log.WithSession(s.id)

	f, err := batchfile.Load(path)
	if err != nil {
		s.Close()
		return nil, err
	}
	if err := f.Validate(); err != nil {
		s.Close()
		return nil, err
	}
	s.file = f
	VerboseLog("Loaded batch file %s (type %s)", path, f.ManagerType())
	return s, nil
}

// Close releases the log file and any Docker client.
func (s *session) Close() {
	for i := len(s.closer) - 1; i >= 0; i-- {
		_ = s.closer[i].Close()
	}
}

// newManager builds the manager the batch file asks for. withContainer
// controls whether a container target is resolved; generation never
// runs commands and skips it.
func (s *session) newManager(ctx context.Context, withContainer bool) (*orchestrator.Process, error) {
	t := s.file.ManagerType()
	sink := s.log.WithManager(t)
	opts := []orchestrator.Option{
		orchestrator.WithWorkDir(s.file.ResolvedWorkDir()),
		orchestrator.WithVars(s.file.Vars),
	}

	if withContainer && s.file.Container != "" {
		r, err := s.containerRunner(ctx, t)
		if err != nil {
			return nil, err
		}
		opts = append(opts, orchestrator.WithRunner(r))
	} else if t == model.TypeGit {
		opts = append(opts, orchestrator.WithRunner(git.Runner(s.cfg.Runner.GitBinary)))
	}

	if t == model.TypeGit {
		return git.New(sink, opts...), nil
	}
	return orchestrator.New(t, runner.Exec{}, append(opts, orchestrator.WithSink(sink))...), nil
}

// containerRunner connects to Docker and resolves the labelled target.
func (s *session) containerRunner(ctx context.Context, t model.ManagerType) (runner.Runner, error) {
	c, err := docker.NewClient()
	if err != nil {
		return nil, err
	}
	s.closer = append(s.closer, c)

	if err := c.Ping(ctx); err != nil {
		return nil, err
	}
	VerboseLog("Connected to Docker daemon")

	id, err := docker.FindTarget(ctx, c.Inner(), s.file.Container, t)
	if err != nil {
		return nil, err
	}
	VerboseLog("Resolved target %q to container %.12s", s.file.Container, id)

	binary := ""
	if t == model.TypeGit {
		binary = s.cfg.Runner.GitBinary
	}
	return docker.NewExecRunner(c, id, binary), nil
}

// stage applies the add, update and generate sections in that order.
// It reports whether a generation cycle ran.
func (s *session) stage(m *orchestrator.Process) (bool, error) {
	if err := m.Add(s.file.AddBatch()); err != nil {
		return false, fmt.Errorf("add: %w", err)
	}
	if update := s.file.UpdateBatch(); !update.IsEmpty() {
		if err := m.Update(update); err != nil {
			return false, fmt.Errorf("update: %w", err)
		}
	}
	if !s.file.HasGenerate() {
		return false, nil
	}
	if err := m.Generate(s.file.GenerateBatch()); err != nil {
		return false, fmt.Errorf("generate: %w", err)
	}
	return true, nil
}
