package docker

import (
	"context"
	"fmt"
	"net"
	"os"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/shinji-kodama/chipdo/internal/model"
)

// defaultPingTimeout is the maximum duration to wait for a Docker daemon
// response during a Ping operation. Docker Desktop on macOS can be slow
// to answer the first request.
const defaultPingTimeout = 5 * time.Second

// Client wraps the Docker Engine SDK client. It handles Docker socket
// detection across platforms and connectivity checks.
//
// Usage:
//
//	c, err := docker.NewClient()
//	if err != nil { /* handle */ }
//	defer c.Close()
//	if err := c.Ping(ctx); err != nil { /* Docker not running */ }
type Client struct {
	inner *client.Client
}

// NewClient creates a new Docker client.
//
// DOCKER_HOST is used as-is when set. Otherwise the platform default socket
// is probed:
//   - Linux: /var/run/docker.sock
//   - macOS: /var/run/docker.sock, then ~/.docker/run/docker.sock
//   - Windows: npipe:////./pipe/docker_engine
func NewClient() (*Client, error) {
	// Step 1: An explicit DOCKER_HOST wins. It covers remote daemons,
	// rootless Docker and Colima, whose sockets live elsewhere.
	if dockerHost := os.Getenv("DOCKER_HOST"); dockerHost != "" {
		return newClientWithHost(dockerHost)
	}

	// Step 2: Probe the platform's default socket locations.
	host, err := detectDockerHost()
	if err != nil {
		return nil, model.WrapCLIError(model.KindExternalTool, "Docker socket not found", err)
	}

	return newClientWithHost(host)
}

// newClientWithHost creates a Docker client connected to host, with API
// version negotiation so any reasonably recent daemon works.
func newClientWithHost(host string) (*Client, error) {
	c, err := client.NewClientWithOpts(
		// WithHost points the client at the detected socket or DOCKER_HOST.
		client.WithHost(host),
		// WithAPIVersionNegotiation lowers the API version to what the
		// daemon supports on the first request, so an older Docker Engine
		// does not reject calls made with the SDK's newer default version.
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.WrapCLIError(
			model.KindExternalTool,
			fmt.Sprintf("failed to create Docker client for host %q", host),
			err,
		)
	}

	return &Client{inner: c}, nil
}

// detectDockerHost determines the Docker socket for the current platform.
// It only checks that a socket exists; Ping verifies the daemon answers.
func detectDockerHost() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return detectUnixSocket([]string{
			"/var/run/docker.sock",
		})

	case "darwin":
		// Docker Desktop 4.13+ only creates ~/.docker/run/docker.sock unless
		// the "allow the default Docker socket" setting is on.
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return detectUnixSocket([]string{
				"/var/run/docker.sock",
			})
		}
		return detectUnixSocket([]string{
			"/var/run/docker.sock",
			homeDir + "/.docker/run/docker.sock",
		})

	case "windows":
		// os.Stat does not work on named pipes, so probe with a short dial.
		pipePath := `//./pipe/docker_engine`
		conn, err := net.DialTimeout("pipe", pipePath, 1*time.Second)
		if err == nil {
			conn.Close()
			return "npipe://" + pipePath, nil
		}
		return "", fmt.Errorf("Docker named pipe not found at %s: %w", pipePath, err)

	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// detectUnixSocket returns the Docker host URI for the first of paths that
// exists. Paths are checked in order.
func detectUnixSocket(paths []string) (string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf(
		"Docker socket not found at any of: %v, is Docker running?",
		paths,
	)
}

// Ping verifies that the Docker daemon is reachable, waiting at most
// defaultPingTimeout.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	// Ping hits /_ping, the cheapest endpoint. It also triggers API
	// version negotiation, so later calls use the negotiated version.
	if _, err := c.inner.Ping(pingCtx); err != nil {
		return model.WrapCLIError(
			model.KindExternalTool,
			"Docker daemon is not responding, is Docker running?",
			err,
		)
	}
	return nil
}

// Close releases all resources held by the Docker client.
// Close is safe to call multiple times.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}

// API returns the container operations the Runner needs.
func (c *Client) API() ContainerAPI {
	return c.inner
}
