// Package model defines the domain types for procman.
//
// These types are shared by every manager, the dispatch gateway and the
// CLI. They carry no behavior beyond validation and rendering, so any
// package may import them without pulling in process or Docker concerns.
package model

import (
	"fmt"
	"strings"
)

// ManagerType identifies the domain a manager operates in.
// A manager's type is fixed at construction and never changes afterwards.
type ManagerType string

const (
	// TypeNA is the placeholder tag for a manager without a specific domain.
	TypeNA ManagerType = "na"

	// TypeGit tags managers whose commands are handed to the git binary.
	TypeGit ManagerType = "git"

	// TypeProcess tags managers that run arbitrary argv commands.
	TypeProcess ManagerType = "process"

	// TypeGeneration tags managers used only to render artifacts.
	TypeGeneration ManagerType = "generation"
)

// ManagerTypes lists every valid ManagerType in declaration order.
var ManagerTypes = []ManagerType{TypeNA, TypeGit, TypeProcess, TypeGeneration}

// String returns the string representation of ManagerType.
func (t ManagerType) String() string {
	return string(t)
}

// IsValid checks whether the ManagerType value is one of the
// predefined tags.
func (t ManagerType) IsValid() bool {
	switch t {
	case TypeNA, TypeGit, TypeProcess, TypeGeneration:
		return true
	default:
		return false
	}
}

// ParseManagerType converts a string to a ManagerType.
// Matching is case-insensitive. Returns an error if the string does not
// match any valid tag.
func ParseManagerType(s string) (ManagerType, error) {
	t := ManagerType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("invalid manager type: %q (valid: na, git, process, generation)", s)
	}
	return t, nil
}

// Command is a single argv-style command: an ordered list of discrete
// tokens. It is never interpreted by a shell.
//
// Example:
//
//	Command{"stage", "--force", "fileA"}
type Command []string

// String renders the command tokens joined by single spaces.
// The result is for messages only and must not be fed back to a shell.
func (c Command) String() string {
	return strings.Join(c, " ")
}

// Key returns the identity used to match a command against staged work.
//
// The key is the first token (the verb) followed by the last token (the
// target). Flags in between do not take part, so
// {"stage", "fileA"} and {"stage", "--force", "fileA"} share the key
// "stage fileA". A single-token command is its own key. An empty command
// has an empty key.
func (c Command) Key() string {
	switch len(c) {
	case 0:
		return ""
	case 1:
		return c[0]
	default:
		return c[0] + " " + c[len(c)-1]
	}
}

// Clone returns a copy of the command that shares no memory with c.
func (c Command) Clone() Command {
	if c == nil {
		return nil
	}
	out := make(Command, len(c))
	copy(out, c)
	return out
}

// CommandBatch is an ordered sequence of commands representing one unit
// of staged or executed work. Enumeration order is submission order.
type CommandBatch []Command

// NewBatch builds a CommandBatch from raw token lists.
func NewBatch(cmds ...[]string) CommandBatch {
	batch := make(CommandBatch, 0, len(cmds))
	for _, c := range cmds {
		batch = append(batch, Command(c).Clone())
	}
	return batch
}

// Len returns the number of commands in the batch.
func (b CommandBatch) Len() int {
	return len(b)
}

// IsEmpty reports whether the batch contains no commands.
func (b CommandBatch) IsEmpty() bool {
	return len(b) == 0
}

// Clone returns a deep copy of the batch. Staged state is always cloned
// on the way in and on the way out so callers never alias it.
func (b CommandBatch) Clone() CommandBatch {
	if b == nil {
		return nil
	}
	out := make(CommandBatch, len(b))
	for i, c := range b {
		out[i] = c.Clone()
	}
	return out
}

// Tokens flattens the batch into a single token sequence, preserving order.
func (b CommandBatch) Tokens() []string {
	var tokens []string
	for _, c := range b {
		tokens = append(tokens, c...)
	}
	return tokens
}

// Validate rejects batches containing a command with no tokens.
func (b CommandBatch) Validate() error {
	for i, c := range b {
		if len(c) == 0 {
			return fmt.Errorf("command %d is empty", i)
		}
	}
	return nil
}
