// Package model defines the domain types and value objects for procman.
//
// This package contains pure data structures with no external dependencies:
// the ManagerType tag, argv-style Command and CommandBatch, and the closed
// fault taxonomy (FaultKind, Fault, CommandError) used by every manager.
//
// The package also defines exit codes (ExitCode) so the CLI can translate a
// fault kind into a process exit status.
package model
