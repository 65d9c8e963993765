package model

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestManagerType_String verifies the string form of every manager tag.
func TestManagerType_String(t *testing.T) {
	tests := []struct {
		typ      ManagerType
		expected string
	}{
		{TypeNA, "na"},
		{TypeGit, "git"},
		{TypeProcess, "process"},
		{TypeGeneration, "generation"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.typ.String())
		})
	}
}

// TestManagerType_IsValid checks that only declared tags pass validation.
func TestManagerType_IsValid(t *testing.T) {
	for _, typ := range ManagerTypes {
		assert.True(t, typ.IsValid(), "%q should be valid", typ)
	}
	assert.False(t, ManagerType("svn").IsValid())
	assert.False(t, ManagerType("").IsValid())
}

// TestParseManagerType verifies string-to-tag conversion, including case
// normalization and error cases.
func TestParseManagerType(t *testing.T) {
	tests := []struct {
		input    string
		expected ManagerType
		hasError bool
	}{
		{"git", TypeGit, false},
		{"Git", TypeGit, false},
		{" PROCESS ", TypeProcess, false},
		{"generation", TypeGeneration, false},
		{"na", TypeNA, false},
		{"svn", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseManagerType(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

// TestCommand_Key verifies the identity rule used when updating staged
// commands: verb plus target, ignoring flags in between.
func TestCommand_Key(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"empty", Command{}, ""},
		{"single token", Command{"status"}, "status"},
		{"verb and target", Command{"stage", "fileA"}, "stage fileA"},
		{"flags ignored", Command{"stage", "--force", "-v", "fileA"}, "stage fileA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cmd.Key())
		})
	}
}

// TestCommandBatch_CloneIsDeep verifies that mutating a clone never
// reaches the original batch.
func TestCommandBatch_CloneIsDeep(t *testing.T) {
	original := NewBatch([]string{"stage", "fileA"}, []string{"commit", "-m", "msg"})
	clone := original.Clone()

	clone[0][1] = "fileB"
	clone = append(clone, Command{"push"})

	assert.Equal(t, Command{"stage", "fileA"}, original[0])
	assert.Equal(t, 2, original.Len())
	assert.Equal(t, 3, clone.Len())
}

// TestCommandBatch_Tokens verifies that flattening keeps submission order.
func TestCommandBatch_Tokens(t *testing.T) {
	b := NewBatch([]string{"a", "b"}, []string{"c"})
	assert.Equal(t, []string{"a", "b", "c"}, b.Tokens())
	assert.Empty(t, CommandBatch(nil).Tokens())
}

// TestCommandBatch_Validate rejects batches holding an empty command.
func TestCommandBatch_Validate(t *testing.T) {
	assert.NoError(t, NewBatch([]string{"ok"}).Validate())
	assert.NoError(t, CommandBatch(nil).Validate())

	err := CommandBatch{Command{"ok"}, Command{}}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command 1")
}

// TestFaultKind_ExitCode verifies the kind-to-exit-code mapping used by
// the CLI.
func TestFaultKind_ExitCode(t *testing.T) {
	tests := []struct {
		kind FaultKind
		code ExitCode
	}{
		{NoError, ExitSuccess},
		{DirectoryNotFound, ExitDirectoryNotFound},
		{DirectoryCannotCreate, ExitDirectoryCannotCreate},
		{FileNotFound, ExitFileNotFound},
		{FileIsBlocked, ExitFileIsBlocked},
		{FileCannotOpen, ExitFileCannotOpen},
		{ReaderError, ExitReaderError},
		{CustomError, ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.True(t, tt.kind.IsValid())
			assert.Equal(t, tt.code, tt.kind.ExitCode())
		})
	}
	assert.False(t, FaultKind("Bogus").IsValid())
}

// TestFault_ErrorAndUnwrap verifies message formatting and error chain
// traversal.
func TestFault_ErrorAndUnwrap(t *testing.T) {
	plain := NewFault(FileNotFound, "batch file missing")
	assert.Equal(t, "batch file missing", plain.Error())
	assert.Nil(t, plain.Unwrap())

	wrapped := WrapFault(FileCannotOpen, "cannot open", os.ErrPermission)
	assert.Equal(t, "cannot open: permission denied", wrapped.Error())
	assert.True(t, errors.Is(wrapped, os.ErrPermission))
}

// TestKindOf classifies nil, faults, wrapped faults and foreign errors.
func TestKindOf(t *testing.T) {
	assert.Equal(t, NoError, KindOf(nil))
	assert.Equal(t, ReaderError, KindOf(NewFault(ReaderError, "bad")))
	assert.Equal(t, DirectoryNotFound,
		KindOf(fmt.Errorf("outer: %w", NewFault(DirectoryNotFound, "missing"))))
	assert.Equal(t, CustomError, KindOf(errors.New("plain")))
}

// TestCommandError_Message verifies that a failed sub-command is reported
// with its position, argv, exit status and output.
func TestCommandError_Message(t *testing.T) {
	exited := &CommandError{Index: 1, Argv: Command{"stage", "fileB"}, ExitStatus: 128, Output: "fatal: pathspec\n"}
	assert.Equal(t, "command 1 (stage fileB) exited with status 128: fatal: pathspec", exited.Error())

	notStarted := &CommandError{Index: 0, Argv: Command{"nope"}, ExitStatus: -1, Err: errors.New("not found")}
	assert.Equal(t, "command 0 (nope) could not run: not found", notStarted.Error())

	// errors.As must reach the CommandError through a Fault.
	var ce *CommandError
	err := WrapFault(CustomError, "execute failed", exited)
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 128, ce.ExitStatus)
}
