package model

import (
	"errors"
	"fmt"
	"strings"
)

// FaultKind is the closed taxonomy of failures procman reports.
// Every *Fault carries exactly one kind.
type FaultKind string

const (
	// NoError is the kind reported for a nil error.
	NoError FaultKind = "NoError"

	// DirectoryNotFound indicates a working or output directory is missing.
	DirectoryNotFound FaultKind = "DirectoryNotFound"

	// DirectoryCannotCreate indicates an output directory could not be created.
	DirectoryCannotCreate FaultKind = "DirectoryCannotCreate"

	// FileNotFound indicates a batch file, config file or binary is missing.
	FileNotFound FaultKind = "FileNotFound"

	// FileIsBlocked indicates a file exists but access was denied.
	FileIsBlocked FaultKind = "FileIsBlocked"

	// FileCannotOpen indicates a file could not be opened for another reason.
	FileCannotOpen FaultKind = "FileCannotOpen"

	// ReaderError indicates malformed input: a bad batch file, template or
	// variable assignment.
	ReaderError FaultKind = "ReaderError"

	// CustomError covers everything else, including failed sub-commands.
	CustomError FaultKind = "CustomError"
)

// String returns the string representation of FaultKind.
func (k FaultKind) String() string {
	return string(k)
}

// IsValid checks whether the FaultKind value is part of the taxonomy.
func (k FaultKind) IsValid() bool {
	switch k {
	case NoError, DirectoryNotFound, DirectoryCannotCreate, FileNotFound,
		FileIsBlocked, FileCannotOpen, ReaderError, CustomError:
		return true
	default:
		return false
	}
}

// ExitCode returns the process exit code the CLI uses for this kind.
func (k FaultKind) ExitCode() ExitCode {
	switch k {
	case NoError:
		return ExitSuccess
	case DirectoryNotFound:
		return ExitDirectoryNotFound
	case DirectoryCannotCreate:
		return ExitDirectoryCannotCreate
	case FileNotFound:
		return ExitFileNotFound
	case FileIsBlocked:
		return ExitFileIsBlocked
	case FileCannotOpen:
		return ExitFileCannotOpen
	case ReaderError:
		return ExitReaderError
	default:
		return ExitGeneralError
	}
}

// ExitCode defines the CLI exit codes. These allow scripts and CI systems
// to tell failure classes apart without parsing output.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError covers CustomError, including failed sub-commands.
	ExitGeneralError ExitCode = 1

	// ExitDirectoryNotFound indicates a working or log directory is missing.
	ExitDirectoryNotFound ExitCode = 2

	// ExitDirectoryCannotCreate indicates a directory could not be created.
	ExitDirectoryCannotCreate ExitCode = 3

	// ExitFileNotFound indicates a batch file, config file, binary or
	// Docker socket is missing.
	ExitFileNotFound ExitCode = 4

	// ExitFileIsBlocked indicates a file exists but is locked or not
	// accessible.
	ExitFileIsBlocked ExitCode = 5

	// ExitFileCannotOpen indicates a file exists but could not be opened.
	ExitFileCannotOpen ExitCode = 6

	// ExitReaderError indicates a batch or config file could not be parsed
	// or failed validation.
	ExitReaderError ExitCode = 7

	// ExitUsage indicates the CLI was invoked incorrectly.
	ExitUsage ExitCode = 64
)

// Fault is the error type produced at the point of failure. It pairs a
// FaultKind with a human-readable message and an optional cause.
type Fault struct {
	// Kind classifies the failure.
	Kind FaultKind

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the message,
// optionally followed by the underlying error.
func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Message, f.Err)
	}
	return f.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (f *Fault) Unwrap() error {
	return f.Err
}

// NewFault creates a new Fault with the given kind and message.
func NewFault(kind FaultKind, message string) *Fault {
	return &Fault{Kind: kind, Message: message}
}

// WrapFault creates a new Fault that wraps an existing error.
func WrapFault(kind FaultKind, message string, err error) *Fault {
	return &Fault{Kind: kind, Message: message, Err: err}
}

// KindOf classifies err. A nil error is NoError, an error chain holding a
// *Fault takes the outermost fault's kind, anything else is CustomError.
func KindOf(err error) FaultKind {
	if err == nil {
		return NoError
	}
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return CustomError
}

// CommandError describes one failed sub-command of an executed batch.
// It is carried as the Err of a Fault so that errors.As finds both the
// fault kind and the command details.
type CommandError struct {
	// Index is the zero-based position of the command within its batch.
	Index int

	// Argv is the command that failed.
	Argv Command

	// ExitStatus is the process exit status, or -1 if it never started.
	ExitStatus int

	// Output is the captured output of the failed command.
	Output string

	// Err is the start error, if the command could not be run at all.
	Err error
}

// Error reports which command failed together with its exit status and
// captured output.
func (e *CommandError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "command %d (%s) ", e.Index, e.Argv.String())
	if e.Err != nil {
		fmt.Fprintf(&b, "could not run: %v", e.Err)
	} else {
		fmt.Fprintf(&b, "exited with status %d", e.ExitStatus)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		fmt.Fprintf(&b, ": %s", out)
	}
	return b.String()
}

// Unwrap returns the start error, if any.
func (e *CommandError) Unwrap() error {
	return e.Err
}
