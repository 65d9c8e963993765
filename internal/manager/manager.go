// Package manager defines the ownership base and the canonical capability
// interface shared by every procman manager.
//
// Design decisions:
//   - A manager is any value that satisfies Manager. There is no class
//     hierarchy: concrete managers embed Owner to get the Type accessor and
//     add their own state next to it.
//   - Owner's tag is written once by NewOwner and never again, so Type is
//     safe to call from any goroutine without locking.
//   - Owner makes no promise about state a concrete manager adds. Such
//     state needs its own synchronization, documented on the concrete type.
package manager

import (
	"context"

	"github.com/shinji-kodama/procman/internal/model"
)

// Typed is implemented by anything bound to a manager domain.
type Typed interface {
	Type() model.ManagerType
}

// Manager is the single capability interface for staging, updating,
// generating and executing ordered command batches.
type Manager interface {
	Typed

	// Add stages commands for the next generation cycle, after any
	// previously staged commands.
	Add(batch model.CommandBatch) error

	// Update revises already-staged commands. The match rule is defined by
	// the implementation and must be deterministic.
	Update(batch model.CommandBatch) error

	// Generate renders artifacts from the staged set without running any
	// external command.
	Generate(batch model.CommandBatch) error

	// Execute runs each command of batch in order, blocking on each, and
	// stops at the first failure.
	Execute(ctx context.Context, batch model.CommandBatch) error
}

// Owner carries a manager's immutable domain tag. The zero value reports
// TypeNA.
type Owner struct {
	typ model.ManagerType
}

// NewOwner fixes the domain tag. An invalid tag is stored as TypeNA.
func NewOwner(t model.ManagerType) Owner {
	if !t.IsValid() {
		t = model.TypeNA
	}
	return Owner{typ: t}
}

// Type returns the domain tag fixed at construction.
func (o Owner) Type() model.ManagerType {
	if o.typ == "" {
		return model.TypeNA
	}
	return o.typ
}
