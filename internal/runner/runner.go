package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	dockerclient "github.com/docker/docker/client"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cntrland/landscaper/internal/action"
	"github.com/cntrland/landscaper/internal/bundle"
	"github.com/cntrland/landscaper/internal/clientreg"
	"github.com/cntrland/landscaper/internal/engineerr"
)

// Runner executes an ordered action.Op list against Docker clients,
// fanning work out one goroutine per client (golang.org/x/sync/errgroup,
// grounded on the fan-out/rate-limit pattern the ipfs-canary-testing
// example applies to bulk container starts) while preserving strict
// in-order execution of ops within a single client (spec §5).
type Runner struct {
	Registry *clientreg.Registry
}

// Result collects what happened across every client's op list.
type Result struct {
	Partial []engineerr.PartialResult
}

// Execute runs opsByClient, one goroutine per client key. A failure on one
// client does not cancel the others: each client's ops either all succeed
// or stop at the first failure, and every client's outcome is reported.
func (r *Runner) Execute(ctx context.Context, opsByClient map[string][]action.Op) (*Result, error) {
	g, gctx := errgroup.WithContext(ctx)
	results := make([]*Result, len(opsByClient))
	errs := make([]error, len(opsByClient))

	i := 0
	idx := make(map[string]int, len(opsByClient))
	for client := range opsByClient {
		idx[client] = i
		i++
	}

	for client, ops := range opsByClient {
		client, ops, slot := client, ops, idx[client]
		g.Go(func() error {
			res, err := r.executeClient(gctx, client, ops)
			results[slot] = res
			errs[slot] = err
			return nil // never short-circuit other clients
		})
	}
	_ = g.Wait()

	merged := &Result{}
	for _, res := range results {
		if res != nil {
			merged.Partial = append(merged.Partial, res.Partial...)
		}
	}
	for _, err := range errs {
		if err != nil {
			return merged, err
		}
	}
	return merged, nil
}

func (r *Runner) executeClient(ctx context.Context, client string, ops []action.Op) (*Result, error) {
	docker, err := r.docker(client)
	if err != nil {
		return nil, err
	}
	res := &Result{}
	for _, op := range ops {
		if err := r.executeOp(ctx, docker, op); err != nil {
			exc := &engineerr.ActionRunnerException{
				Client: client, Op: string(op.Kind), Node: op.ContainerName,
				Partial: append([]engineerr.PartialResult(nil), res.Partial...), Source: err,
			}
			res.Partial = append(res.Partial, engineerr.PartialResult{
				ID: uuid.New().String(), Client: client, Action: string(op.Kind), Node: op.ContainerName, Outcome: "failed",
			})
			return res, exc
		}
		res.Partial = append(res.Partial, engineerr.PartialResult{
			ID: uuid.New().String(), Client: client, Action: string(op.Kind), Node: op.ContainerName, Outcome: "ok",
		})
	}
	return res, nil
}

func (r *Runner) docker(client string) (*dockerclient.Client, error) {
	c, ok := r.Registry.Get(client)
	if !ok {
		return nil, fmt.Errorf("runner: unknown client %q", client)
	}
	return c.Docker, nil
}

func (r *Runner) executeOp(ctx context.Context, docker *dockerclient.Client, op action.Op) error {
	switch op.Kind {
	case action.KindPull:
		return pullImage(ctx, docker, op.Image)
	case action.KindCreateVolume:
		return createVolumeHolder(ctx, docker, op)
	case action.KindCreateNetwork:
		return createNetwork(ctx, docker, op)
	case action.KindCreateContainer:
		return createContainer(ctx, docker, op)
	case action.KindPreparePermissions:
		return preparePermissions(ctx, docker, op)
	case action.KindStart:
		return docker.ContainerStart(ctx, op.ContainerName, container.StartOptions{})
	case action.KindExec:
		return runExec(ctx, docker, op)
	case action.KindStop:
		return stopContainer(ctx, docker, op)
	case action.KindKill:
		return docker.ContainerKill(ctx, op.ContainerName, op.Signal)
	case action.KindRemove:
		return docker.ContainerRemove(ctx, op.ContainerName, container.RemoveOptions{Force: true})
	case action.KindRemoveVolume:
		return docker.VolumeRemove(ctx, op.ContainerName, true)
	case action.KindConnectNetwork:
		return docker.NetworkConnect(ctx, op.NetworkName, op.ContainerName, endpointSettingsFromRef(op.Endpoint))
	case action.KindDisconnectNetwork:
		return docker.NetworkDisconnect(ctx, op.NetworkName, op.ContainerName, true)
	case action.KindUpdateHostConfig:
		return updateHostConfig(ctx, docker, op)
	case action.KindWait:
		return waitContainer(ctx, docker, op)
	case action.KindLogs:
		return nil // logs are not fetched; the op only appears in the partial results.
	default:
		return fmt.Errorf("runner: unhandled op kind %q", op.Kind)
	}
}

func pullImage(ctx context.Context, docker *dockerclient.Client, ref string) error {
	rc, err := docker.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pulling %s: %w", ref, err)
	}
	defer rc.Close()
	// Drain so the pull actually completes before returning (the API
	// streams progress events; ContainerCreate with an unready image
	// otherwise fails intermittently).
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("draining pull progress for %s: %w", ref, err)
	}
	return nil
}

func createVolumeHolder(ctx context.Context, docker *dockerclient.Client, op action.Op) error {
	if _, err := docker.VolumeCreate(ctx, volume.CreateOptions{
		Name:       op.ContainerName,
		Driver:     op.VolumeDriver,
		DriverOpts: op.VolumeOptions,
	}); err != nil {
		return fmt.Errorf("creating volume %s: %w", op.ContainerName, err)
	}
	return nil
}

func createNetwork(ctx context.Context, docker *dockerclient.Client, op action.Op) error {
	if _, err := docker.NetworkCreate(ctx, op.NetworkName, network.CreateOptions{Driver: op.VolumeDriver}); err != nil {
		return fmt.Errorf("creating network %s: %w", op.NetworkName, err)
	}
	return nil
}

func createContainer(ctx context.Context, docker *dockerclient.Client, op action.Op) error {
	eb := op.Bundle
	if eb == nil {
		return fmt.Errorf("create op for %s has no expected bundle", op.ContainerName)
	}
	if len(op.ScriptCommand) > 0 {
		eb = scriptOverride(eb, op)
	}
	cfg, err := buildContainerConfig(eb, "")
	if err != nil {
		return err
	}
	hostCfg, err := buildHostConfig(eb)
	if err != nil {
		return err
	}
	netCfg, extra := buildNetworkConfig(eb)

	resp, err := docker.ContainerCreate(ctx, cfg, hostCfg, netCfg, nil, op.ContainerName)
	if err != nil {
		return fmt.Errorf("creating container %s: %w", op.ContainerName, err)
	}
	for _, ep := range extra {
		if err := docker.NetworkConnect(ctx, ep.Network, resp.ID, endpointSettingsFromRef(&ep)); err != nil {
			return fmt.Errorf("connecting %s to network %s: %w", op.ContainerName, ep.Network, err)
		}
	}
	return nil
}

// scriptOverride copies an ExpectedBundle and swaps in the run-script
// intent's transient command/entrypoint, leaving every other field (mounts,
// env, links) untouched so the script runs with the same context its
// owning container would.
func scriptOverride(eb *bundle.ExpectedBundle, op action.Op) *bundle.ExpectedBundle {
	cp := *eb
	if len(op.ScriptCommand) > 0 {
		cp.Cmd = op.ScriptCommand
	}
	if len(op.ScriptEntrypoint) > 0 {
		cp.Entrypoint = op.ScriptEntrypoint
	}
	return &cp
}

func preparePermissions(ctx context.Context, docker *dockerclient.Client, op action.Op) error {
	cmd := []string{"chmod"}
	if op.PrepareUser != "" {
		cmd = []string{"chown", op.PrepareUser, op.PreparePath}
	} else if op.PrepareMode != "" {
		cmd = []string{"chmod", op.PrepareMode, op.PreparePath}
	} else {
		return nil
	}
	resp, err := docker.ContainerCreate(ctx, &container.Config{
		Image: "busybox",
		Cmd:   cmd,
	}, &container.HostConfig{
		VolumesFrom: []string{op.ContainerName},
	}, nil, nil, op.ContainerName+".prepare")
	if err != nil {
		return fmt.Errorf("creating permission-prep container for %s: %w", op.ContainerName, err)
	}
	defer func() { _ = docker.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true}) }()
	if err := docker.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("starting permission-prep container for %s: %w", op.ContainerName, err)
	}
	statusCh, errCh := docker.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("waiting for permission-prep container: %w", err)
		}
	case <-statusCh:
	}
	return nil
}

func runExec(ctx context.Context, docker *dockerclient.Client, op action.Op) error {
	if op.Exec == nil {
		return fmt.Errorf("exec op for %s has no spec", op.ContainerName)
	}
	cmd, err := op.Exec.Command.Resolve()
	if err != nil {
		return fmt.Errorf("resolving exec command: %w", err)
	}
	user, err := op.Exec.User.Resolve()
	if err != nil {
		return fmt.Errorf("resolving exec user: %w", err)
	}
	created, err := docker.ContainerExecCreate(ctx, op.ContainerName, container.ExecOptions{
		Cmd:  splitExecCommand(cmd),
		User: user,
	})
	if err != nil {
		return fmt.Errorf("creating exec on %s: %w", op.ContainerName, err)
	}
	if err := docker.ContainerExecStart(ctx, created.ID, container.ExecStartOptions{}); err != nil {
		return fmt.Errorf("starting exec on %s: %w", op.ContainerName, err)
	}
	return nil
}

func stopContainer(ctx context.Context, docker *dockerclient.Client, op action.Op) error {
	timeout := op.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	secs := int(timeout.Seconds())
	return docker.ContainerStop(ctx, op.ContainerName, container.StopOptions{Signal: op.Signal, Timeout: &secs})
}

func updateHostConfig(ctx context.Context, docker *dockerclient.Client, op action.Op) error {
	if op.LimitsPatch == nil {
		return nil
	}
	l := op.LimitsPatch
	update := container.UpdateConfig{
		Resources: container.Resources{
			BlkioWeight:       l.BlkioWeight,
			CPUPeriod:         l.CPUPeriod,
			CPUQuota:          l.CPUQuota,
			CPUShares:         l.CPUShares,
			CpusetCpus:        l.CpusetCpus,
			CpusetMems:        l.CpusetMems,
			Memory:            l.Memory,
			MemoryReservation: l.MemoryReservation,
			MemorySwap:        l.MemorySwap,
		},
	}
	if l.PidsLimit != 0 {
		limit := l.PidsLimit
		update.PidsLimit = &limit
	}
	if _, err := docker.ContainerUpdate(ctx, op.ContainerName, update); err != nil {
		return fmt.Errorf("updating host config for %s: %w", op.ContainerName, err)
	}
	return nil
}

// waitContainer blocks until op.ContainerName stops running, bounded by
// op.Timeout (the run-script intent's wait_timeout, spec §4.5/§6). A
// timeout is reported as engineerr.ScriptActionException rather than a bare
// context error, matching the other script-specific failure the intent can
// raise (a pre-existing container without remove_existing_before).
func waitContainer(ctx context.Context, docker *dockerclient.Client, op action.Op) error {
	waitCtx := ctx
	if op.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, op.Timeout)
		defer cancel()
	}
	statusCh, errCh := docker.ContainerWait(waitCtx, op.ContainerName, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return &engineerr.ScriptActionException{Container: op.ContainerName, Reason: "wait_timeout exceeded"}
		}
		return err
	case <-statusCh:
		return nil
	case <-waitCtx.Done():
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return &engineerr.ScriptActionException{Container: op.ContainerName, Reason: "wait_timeout exceeded"}
		}
		return waitCtx.Err()
	}
}
