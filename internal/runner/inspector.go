package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/network"
	dockerclient "github.com/docker/docker/client"

	"github.com/cntrland/landscaper/internal/clientreg"
	"github.com/cntrland/landscaper/internal/state"
)

// DockerInspector implements state.Inspector against real Docker clients
// resolved through a clientreg.Registry. Grounded on
// internal/stack/deployer.go's direct client.ContainerInspect/
// NetworkInspect call style.
type DockerInspector struct {
	Registry *clientreg.Registry
}

func (d *DockerInspector) docker(client string) (*dockerclient.Client, error) {
	c, ok := d.Registry.Get(client)
	if !ok {
		return nil, fmt.Errorf("runner: unknown client %q", client)
	}
	return c.Docker, nil
}

func (d *DockerInspector) InspectContainer(ctx context.Context, client, name string) (*state.ContainerInfo, error) {
	docker, err := d.docker(client)
	if err != nil {
		return nil, err
	}
	info, err := docker.ContainerInspect(ctx, name)
	if err != nil {
		if dockerclient.IsErrNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("inspecting container %s: %w", name, err)
	}

	ci := &state.ContainerInfo{
		ID:         info.ID,
		Running:    info.State != nil && info.State.Running,
		Env:        []string{},
		Cmd:        []string{},
		Entrypoint: []string{},
		Networks:   map[string]string{},
	}
	if info.State != nil {
		ci.ExitCode = info.State.ExitCode
		ci.Pid = info.State.Pid
	}
	if info.Config != nil {
		ci.Env = info.Config.Env
		ci.Cmd = []string(info.Config.Cmd)
		ci.Entrypoint = []string(info.Config.Entrypoint)
		for port := range info.Config.ExposedPorts {
			ci.ExposedPorts = append(ci.ExposedPorts, string(port))
		}
	}
	if info.Image != "" {
		ci.ImageID = info.Image
	}
	for _, m := range info.Mounts {
		mi := state.MountInfo{ContainerPath: m.Destination, Source: m.Source}
		if m.Type == "volume" {
			mi.VolumeName = m.Name
		}
		ci.Mounts = append(ci.Mounts, mi)
	}
	if info.NetworkSettings != nil {
		for netName, ep := range info.NetworkSettings.Networks {
			ci.Networks[netName] = ep.EndpointID
		}
	}
	if info.HostConfig != nil {
		ci.Links = info.HostConfig.Links
		ci.Limits = state.Limits{
			BlkioWeight:       info.HostConfig.BlkioWeight,
			CPUPeriod:         info.HostConfig.CPUPeriod,
			CPUQuota:          info.HostConfig.CPUQuota,
			CPUShares:         info.HostConfig.CPUShares,
			CpusetCpus:        info.HostConfig.CpusetCpus,
			CpusetMems:        info.HostConfig.CpusetMems,
			Memory:            info.HostConfig.Memory,
			MemoryReservation: info.HostConfig.MemoryReservation,
			MemorySwap:        info.HostConfig.MemorySwap,
		}
		if info.HostConfig.PidsLimit != nil {
			ci.Limits.PidsLimit = *info.HostConfig.PidsLimit
		}
	}
	return ci, nil
}

func (d *DockerInspector) ResolveImageID(ctx context.Context, client, ref string) (string, error) {
	docker, err := d.docker(client)
	if err != nil {
		return "", err
	}
	inspect, err := docker.ImageInspect(ctx, ref)
	if err != nil {
		if dockerclient.IsErrNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("inspecting image %s: %w", ref, err)
	}
	return inspect.ID, nil
}

func (d *DockerInspector) ListExecProcesses(ctx context.Context, client, containerID string) ([]state.ExecProcess, bool, error) {
	docker, err := d.docker(client)
	if err != nil {
		return nil, false, err
	}
	top, err := docker.ContainerTop(ctx, containerID, nil)
	if err != nil {
		// `top` is unsupported for some runtimes/remote configurations; per
		// the exec-matching rule, treat that as "can't confirm" rather than
		// a hard failure.
		return nil, false, nil
	}
	cmdIdx, userIdx := -1, -1
	for i, title := range top.Titles {
		switch strings.ToUpper(title) {
		case "CMD", "COMMAND":
			cmdIdx = i
		case "UID", "USER":
			userIdx = i
		}
	}
	procs := make([]state.ExecProcess, 0, len(top.Processes))
	for _, row := range top.Processes {
		p := state.ExecProcess{}
		if userIdx >= 0 && userIdx < len(row) {
			p.User = row[userIdx]
		}
		if cmdIdx >= 0 && cmdIdx < len(row) {
			p.Command = strings.Fields(row[cmdIdx])
		}
		procs = append(procs, p)
	}
	return procs, true, nil
}

func (d *DockerInspector) NetworkExists(ctx context.Context, client, name string) (bool, error) {
	docker, err := d.docker(client)
	if err != nil {
		return false, err
	}
	_, err = docker.NetworkInspect(ctx, name, network.InspectOptions{})
	if err != nil {
		if dockerclient.IsErrNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("inspecting network %s: %w", name, err)
	}
	return true, nil
}

func (d *DockerInspector) VolumeExists(ctx context.Context, client, name string) (bool, error) {
	docker, err := d.docker(client)
	if err != nil {
		return false, err
	}
	_, err = docker.VolumeInspect(ctx, name)
	if err != nil {
		if dockerclient.IsErrNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("inspecting volume %s: %w", name, err)
	}
	return true, nil
}
