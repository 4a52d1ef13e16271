package docker

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/sirupsen/logrus"

	"github.com/shinji-kodama/chipdo/internal/cmake"
)

// ContainerAPI is the subset of the Docker Engine API used to run build
// commands. *client.Client satisfies it; tests use fakes.
type ContainerAPI interface {
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig,
		networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	// Image is the image every command runs in.
	Image string

	// Pull pulls Image once, before the first command.
	Pull bool

	// User is the container user. Empty uses the image default.
	User string

	// Root is the host directory bind-mounted at the same path.
	Root string

	// Project is recorded in the container labels.
	Project string

	// Stdout and Stderr receive the demultiplexed container output.
	// Nil discards it.
	Stdout io.Writer
	Stderr io.Writer

	// Logger receives diagnostics. Nil disables logging.
	Logger logrus.FieldLogger
}

// Runner runs cmake.Commands inside throwaway containers. It implements
// cmake.Runner.
type Runner struct {
	api    ContainerAPI
	opts   RunnerOptions
	logger logrus.FieldLogger
	pulled bool
}

var _ cmake.Runner = (*Runner)(nil)

// NewRunner creates a Runner backed by api.
func NewRunner(api ContainerAPI, opts RunnerOptions) *Runner {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	logger := opts.Logger
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return &Runner{api: api, opts: opts, logger: logger.WithField("image", opts.Image)}
}

// Run creates a container for c, streams its output and waits for it to
// exit. A non-zero exit status is returned as *cmake.ExitError. The
// container is removed in every case.
func (r *Runner) Run(ctx context.Context, c cmake.Command) error {
	// Step 1: Make sure the image is present.
	if err := r.pullOnce(ctx); err != nil {
		return err
	}

	// Step 2: Create the container. The project root is mounted at the same
	// path so the absolute paths in the command line and in CMake's cache
	// are valid on both sides.
	cfg := &container.Config{
		Image:      r.opts.Image,
		Cmd:        append([]string{c.Path}, c.Args...),
		WorkingDir: c.Dir,
		Env:        c.Env,
		User:       r.opts.User,
		Labels:     BuildLabels(r.opts.Project, r.opts.Root, c),
	}
	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{{
			Type:   mount.TypeBind,
			Source: r.opts.Root,
			Target: r.opts.Root,
		}},
	}

	r.logger.Infof("running %s", c)
	created, err := r.api.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		return fmt.Errorf("create container for %s: %w", c.Path, err)
	}
	log := r.logger.WithField("container", shortID(created.ID))
	defer r.remove(ctx, created.ID, log)

	// Step 3: Register the wait before starting so a fast exit cannot be
	// missed, then start.
	statusCh, errCh := r.api.ContainerWait(ctx, created.ID, container.WaitConditionNextExit)

	if err := r.api.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("start container for %s: %w", c.Path, err)
	}

	// Step 4: Stream the output. Without a TTY the log stream is
	// multiplexed, and StdCopy splits it back into stdout and stderr.
	logs, err := r.api.ContainerLogs(ctx, created.ID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return fmt.Errorf("attach to container output: %w", err)
	}
	_, copyErr := stdcopy.StdCopy(r.opts.Stdout, r.opts.Stderr, logs)
	logs.Close()
	if copyErr != nil {
		log.WithError(copyErr).Warn("container output stream ended unexpectedly")
	}

	// Step 5: Collect the exit status.
	select {
	case err := <-errCh:
		return fmt.Errorf("wait for container: %w", err)
	case status := <-statusCh:
		if status.Error != nil {
			return fmt.Errorf("wait for container: %s", status.Error.Message)
		}
		if status.StatusCode != 0 {
			return &cmake.ExitError{Command: c.Path, Code: int(status.StatusCode)}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pullOnce pulls the image the first time it is called when Pull is set.
func (r *Runner) pullOnce(ctx context.Context) error {
	if !r.opts.Pull || r.pulled {
		return nil
	}

	r.logger.Info("pulling image")
	progress, err := r.api.ImagePull(ctx, r.opts.Image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", r.opts.Image, err)
	}
	defer progress.Close()

	// The pull only completes once the progress stream is drained.
	if _, err := io.Copy(io.Discard, progress); err != nil {
		return fmt.Errorf("pull image %s: %w", r.opts.Image, err)
	}
	r.pulled = true
	return nil
}

// remove force-removes the container. It runs on a context detached from
// cancellation so an interrupted build does not leak containers.
func (r *Runner) remove(ctx context.Context, id string, log logrus.FieldLogger) {
	err := r.api.ContainerRemove(context.WithoutCancel(ctx), id, container.RemoveOptions{Force: true})
	if err != nil {
		log.WithError(err).Warn("failed to remove container")
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
