package docker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/docker/client"

	"github.com/shinji-kodama/procman/internal/model"
)

const pingTimeout = 5 * time.Second

// Client is the Docker connection a container target runs through.
type Client struct {
	inner *client.Client
}

// NewClient connects using the DOCKER_* environment when DOCKER_HOST is
// set, and otherwise the first local socket that exists. A missing socket
// is a FileNotFound fault.
func NewClient() (*Client, error) {
	if os.Getenv(client.EnvOverrideHost) != "" {
		return newClient(client.FromEnv)
	}

	home, _ := os.UserHomeDir()
	host, err := findSocket(socketPaths(home), fileExists)
	if err != nil {
		return nil, err
	}
	return NewClientWithHost(host)
}

// NewClientWithHost connects to host, e.g. "unix:///var/run/docker.sock".
func NewClientWithHost(host string) (*Client, error) {
	return newClient(client.WithHost(host))
}

func newClient(opt client.Opt) (*Client, error) {
	c, err := client.NewClientWithOpts(opt, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, model.WrapFault(model.CustomError, "failed to create Docker client", err)
	}
	return &Client{inner: c}, nil
}

// socketPaths lists the local sockets probed when DOCKER_HOST is unset:
// the system socket, then Docker Desktop's per-user socket.
func socketPaths(home string) []string {
	paths := []string{"/var/run/docker.sock"}
	if home != "" {
		paths = append(paths, filepath.Join(home, ".docker", "run", "docker.sock"))
	}
	return paths
}

// findSocket returns the host URI of the first path for which exists
// reports true.
func findSocket(paths []string, exists func(string) bool) (string, error) {
	for _, path := range paths {
		if exists(path) {
			return "unix://" + path, nil
		}
	}
	return "", model.NewFault(model.FileNotFound,
		fmt.Sprintf("Docker socket not found at any of %v (set DOCKER_HOST?)", paths))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Ping checks that the daemon answers within five seconds.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(ctx); err != nil {
		return model.WrapFault(model.CustomError, "Docker daemon is not responding", err)
	}
	return nil
}

// Close releases the connection. It is safe to call more than once.
func (c *Client) Close() error {
	if c.inner == nil {
		return nil
	}
	return c.inner.Close()
}

// Inner returns the underlying SDK client.
func (c *Client) Inner() *client.Client {
	return c.inner
}
