package sandbox

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
)

const sandboxMount = "/sandbox"

// DockerExecutor is the production sandbox backend: one container per
// writ, resource-capped, read-only except the scratch mount, no network,
// run as an unprivileged user. Grounded in the pack's judgement-worker
// pattern (create, copy source/input in, run with a timeout, copy/stream
// output out, remove).
type DockerExecutor struct {
	cli   *client.Client
	image string
}

func NewDockerExecutor(cli *client.Client, image string) *DockerExecutor {
	return &DockerExecutor{cli: cli, image: image}
}

func (e *DockerExecutor) Execute(ctx context.Context, writ Writ, limits Limits) (Result, error) {
	timeout := time.Duration(limits.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	outputLimit := limits.OutputLimit
	if outputLimit <= 0 {
		outputLimit = 100000
	}
	memBytes := int64(limits.MemoryMiB) * 1024 * 1024
	if memBytes <= 0 {
		memBytes = 128 * 1024 * 1024
	}
	pidLimit := int64(limits.PIDLimit)
	if pidLimit <= 0 {
		pidLimit = 50
	}

	name := fmt.Sprintf("writ-%d-%s", writ.RunID, uuid.NewString())
	rendered := renderScript(writ.RunScript, sandboxMount+"/input", sandboxMount+"/program", sandboxMount)

	resp, err := e.cli.ContainerCreate(ctx, &container.Config{
		Image:        e.image,
		Cmd:          []string{sandboxMount + "/runner"},
		WorkingDir:   sandboxMount,
		NetworkDisabled: true,
		User:         "nobody",
	}, &container.HostConfig{
		Resources: container.Resources{
			Memory:     memBytes,
			MemorySwap: memBytes, // disable swap by equalizing the two limits
			PidsLimit:  &pidLimit,
			CPUPeriod:  100000,
			CPUQuota:   100000,
		},
		ReadonlyRootfs: true,
		NetworkMode:    "none",
		Tmpfs: map[string]string{
			sandboxMount: "rw,exec,size=64m",
		},
	}, nil, nil, name)
	if err != nil {
		return Result{}, fmt.Errorf("sandbox: create container: %w", err)
	}
	containerID := resp.ID
	defer func() {
		_ = e.cli.ContainerRemove(context.Background(), containerID, container.RemoveOptions{Force: true})
	}()

	tarball, err := buildTar(map[string][]byte{
		"program": []byte(writ.SourceCode),
		"input":   []byte(writ.Input),
		"runner":  []byte(rendered),
	})
	if err != nil {
		return Result{}, fmt.Errorf("sandbox: build tar: %w", err)
	}
	if err := e.cli.CopyToContainer(ctx, containerID, sandboxMount, tarball, container.CopyToContainerOptions{}); err != nil {
		return Result{}, fmt.Errorf("sandbox: copy to container: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := e.cli.ContainerStart(runCtx, containerID, container.StartOptions{}); err != nil {
		return Result{}, fmt.Errorf("sandbox: start container: %w", err)
	}

	waitCh, errCh := e.cli.ContainerWait(runCtx, containerID, container.WaitConditionNotRunning)
	select {
	case <-runCtx.Done():
		_ = e.cli.ContainerKill(context.Background(), containerID, "SIGKILL")
		return Result{State: StateTimedOut, Output: timedOutMessage}, nil
	case err := <-errCh:
		if err != nil {
			return Result{}, fmt.Errorf("sandbox: wait container: %w", err)
		}
	case <-waitCh:
	}

	out := newCappedWriter(outputLimit)
	if err := e.streamLogs(context.Background(), containerID, out); err != nil {
		return Result{}, fmt.Errorf("sandbox: stream logs: %w", err)
	}
	if out.exceeded {
		return Result{State: StateOutputLimitExceeded, Output: outputLimitMessage}, nil
	}

	captured := out.String()
	if len(captured) == 0 {
		return Result{State: StateNoOutput, Output: ""}, nil
	}
	return Result{State: StateExecuted, Output: captured}, nil
}

func (e *DockerExecutor) streamLogs(ctx context.Context, containerID string, w io.Writer) error {
	rc, err := e.cli.ContainerLogs(ctx, containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return err
	}
	defer rc.Close()
	// Logs arrive as multiplexed stdout/stderr frames; the C5 contract wants
	// them merged into one byte stream, so demux straight into one writer.
	_, err = stdcopy.StdCopy(w, w, rc)
	return err
}

func buildTar(files map[string][]byte) (io.Reader, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, data := range files {
		mode := int64(0o644)
		if name == "runner" {
			mode = 0o755
		}
		hdr := &tar.Header{Name: name, Mode: mode, Size: int64(len(data))}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, err
		}
		if _, err := tw.Write(data); err != nil {
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return &buf, nil
}
