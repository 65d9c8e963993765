// Package orchestrator implements the process orchestration manager: the
// primary control surface that stages, updates, generates and executes
// ordered command batches against an external Runner.
//
// Locking: Process guards its staged set and generation state with an
// internal mutex, so concurrent Add, Update, Generate and Reset calls on
// one instance are serialized. Execute holds no lock while sub-commands run;
// it only touches the Runner and the immutable configuration. Ordering
// between concurrent callers is whatever order they acquire the lock in.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shinji-kodama/procman/internal/manager"
	"github.com/shinji-kodama/procman/internal/model"
	"github.com/shinji-kodama/procman/internal/runner"
)

// Process is the orchestration manager. Construct it with New; the zero
// value is not usable.
type Process struct {
	manager.Owner

	runner  runner.Runner
	workDir string
	sink    manager.Sink

	mu         sync.Mutex
	staged     model.CommandBatch
	vars       map[string]string
	artifacts  model.CommandBatch
	generation int

	// revision counts rewrites of the staged set (Update, Reset).
	// Appends leave it alone.
	revision int
}

var _ manager.Manager = (*Process)(nil)

// Option configures a Process.
type Option func(*Process)

// WithWorkDir sets the directory every sub-command runs in.
func WithWorkDir(dir string) Option {
	return func(p *Process) {
		p.workDir = dir
	}
}

// WithSink sets the diagnostic collaborator. A nil sink is allowed.
func WithSink(s manager.Sink) Option {
	return func(p *Process) {
		p.sink = s
	}
}

// WithVars seeds the template variables used by Generate.
func WithVars(vars map[string]string) Option {
	return func(p *Process) {
		for k, v := range vars {
			p.vars[k] = v
		}
	}
}

// WithRunner replaces the runner passed to New.
func WithRunner(r runner.Runner) Option {
	return func(p *Process) {
		if r != nil {
			p.runner = r
		}
	}
}

// New creates a Process bound to tag t that invokes r once per
// sub-command.
func New(t model.ManagerType, r runner.Runner, opts ...Option) *Process {
	p := &Process{
		Owner:  manager.NewOwner(t),
		runner: r,
		vars:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.runner == nil {
		p.runner = runner.Exec{}
	}
	return p
}

// WorkDir returns the configured working directory.
func (p *Process) WorkDir() string {
	return p.workDir
}

// Add appends a copy of batch to the staged set, after everything staged
// before. An empty batch is a no-op. A batch containing an empty command
// is rejected and nothing is staged.
func (p *Process) Add(batch model.CommandBatch) error {
	if err := batch.Validate(); err != nil {
		return model.WrapFault(model.CustomError, "cannot stage batch", err)
	}
	if batch.IsEmpty() {
		return nil
	}

	p.mu.Lock()
	p.staged = append(p.staged, batch.Clone()...)
	n := len(p.staged)
	p.mu.Unlock()

	manager.Notify(p.sink, "staged commands", "type", p.Type(), "added", batch.Len(), "staged", n)
	return nil
}

// Update revises staged commands by identity. Each command in batch
// replaces, in place, the first staged command with the same Key (verb
// plus target). Updates are matched in batch order, and a staged command
// already replaced by this call is not matched again, so two updates with
// one key revise the first two staged commands with that key.
//
// If any update has no match, nothing is changed and a CustomError fault
// naming the unmatched command is returned.
func (p *Process) Update(batch model.CommandBatch) error {
	if err := batch.Validate(); err != nil {
		return model.WrapFault(model.CustomError, "cannot update staged commands", err)
	}
	if batch.IsEmpty() {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	next := p.staged.Clone()
	taken := make([]bool, len(next))
	for _, cmd := range batch {
		idx := -1
		for i, staged := range next {
			if !taken[i] && staged.Key() == cmd.Key() {
				idx = i
				break
			}
		}
		if idx < 0 {
			return model.NewFault(model.CustomError,
				fmt.Sprintf("no staged command matches %q (key %q)", cmd.String(), cmd.Key()))
		}
		next[idx] = cmd.Clone()
		taken[idx] = true
	}
	p.staged = next
	p.revision++

	manager.Notify(p.sink, "updated staged commands", "type", p.Type(), "updated", batch.Len())
	return nil
}

// Staged returns a copy of the staged set in staging order.
func (p *Process) Staged() model.CommandBatch {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.staged.Clone()
}

// Reset clears the staged set. Generation state is kept.
func (p *Process) Reset() {
	p.mu.Lock()
	p.staged = nil
	p.revision++
	p.mu.Unlock()
}

// Execute runs each command of batch in order through the runner, waiting
// for one to exit before starting the next. An empty batch returns nil
// without touching the runner.
//
// The first command that cannot start, or exits non-zero, aborts the rest
// of the batch. The returned fault wraps a *model.CommandError naming the
// command, its exit status and its output. Start failures keep their own
// fault kind; non-zero exits are CustomError. Cancelling ctx stops the batch
// before the next command starts.
func (p *Process) Execute(ctx context.Context, batch model.CommandBatch) error {
	if batch.IsEmpty() {
		return nil
	}

	start := time.Now()
	manager.Notify(p.sink, "executing batch", "type", p.Type(), "commands", batch.Len(), "dir", p.workDir)

	for i, cmd := range batch {
		if err := ctx.Err(); err != nil {
			fault := model.WrapFault(model.CustomError,
				fmt.Sprintf("execution cancelled before command %d", i), err)
			manager.Notify(p.sink, "batch cancelled", "type", p.Type(), "index", i)
			return fault
		}

		if err := p.executeOne(ctx, i, cmd); err != nil {
			manager.Notify(p.sink, "batch failed", "type", p.Type(), "index", i, "error", err)
			return err
		}
	}

	manager.Notify(p.sink, "batch succeeded", "type", p.Type(),
		"commands", batch.Len(), "elapsed", time.Since(start))
	return nil
}

// executeOne runs a single sub-command and converts a failure into a
// fault carrying a CommandError.
func (p *Process) executeOne(ctx context.Context, index int, cmd model.Command) error {
	if len(cmd) == 0 {
		return model.WrapFault(model.CustomError, "execute failed",
			&model.CommandError{Index: index, Argv: cmd, ExitStatus: -1,
				Err: model.NewFault(model.CustomError, "empty command")})
	}

	res, err := p.runner.Run(ctx, cmd.Clone(), p.workDir)
	if err != nil {
		return model.WrapFault(model.KindOf(err), "execute failed",
			&model.CommandError{Index: index, Argv: cmd.Clone(), ExitStatus: -1, Output: res.Combined(), Err: err})
	}
	if !res.Success() {
		return model.WrapFault(model.CustomError, "execute failed",
			&model.CommandError{Index: index, Argv: cmd.Clone(), ExitStatus: res.ExitStatus, Output: res.Combined()})
	}
	return nil
}

// Flush executes the staged set and clears it on success. On failure the
// staged set is left as it was so the caller can inspect or retry it.
//
// Commands added while the batch runs stay staged. If the staged set was
// updated or reset in the meantime, Flush leaves it untouched: the
// executed prefix no longer exists to be dropped.
func (p *Process) Flush(ctx context.Context) error {
	p.mu.Lock()
	staged := p.staged.Clone()
	revision := p.revision
	p.mu.Unlock()

	if err := p.Execute(ctx, staged); err != nil {
		return err
	}

	p.mu.Lock()
	kept := p.revision != revision
	if !kept {
		p.staged = p.staged[len(staged):]
		if len(p.staged) == 0 {
			p.staged = nil
		}
	}
	p.mu.Unlock()

	if kept {
		manager.Notify(p.sink, "staged set rewritten during flush", "type", p.Type())
	}
	return nil
}
