// Package docker runs procman command batches inside containers through
// the Docker Engine API.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows)
//   - Target discovery through procman.* container labels
//   - A runner.Runner that executes each sub-command with the exec API,
//     demultiplexing stdout and stderr from the attached stream
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
package docker
