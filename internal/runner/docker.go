// Package runner is the Runner (C6): it executes an action.Op list against
// one or more Docker clients, fanning work out per client with
// golang.org/x/sync/errgroup while preserving strict in-order execution of
// ops within a single client (spec §5). It is also where
// internal/bundle.ExpectedBundle gets translated into real
// github.com/docker/docker API types, and where state.Inspector is
// implemented against a live daemon.
package runner

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/go-connections/nat"

	"github.com/cntrland/landscaper/internal/bundle"
)

// buildContainerConfig translates an ExpectedBundle's image/env/cmd surface
// into a container.Config, grounded on the teacher's
// internal/stack/deployer.go buildContainerConfig.
func buildContainerConfig(eb *bundle.ExpectedBundle, hostname string) (*container.Config, error) {
	cfg := &container.Config{
		Image:      eb.Image,
		Env:        append([]string{}, eb.Env...),
		Cmd:        append([]string{}, eb.Cmd...),
		Entrypoint: append([]string{}, eb.Entrypoint...),
		User:       eb.User,
		Hostname:   hostname,
	}

	if len(eb.ExposedPorts) > 0 {
		cfg.ExposedPorts = make(nat.PortSet, len(eb.ExposedPorts))
		for _, p := range eb.ExposedPorts {
			port, err := natPort(p.ContainerPort, p.Protocol)
			if err != nil {
				return nil, err
			}
			cfg.ExposedPorts[port] = struct{}{}
		}
	}

	if eb.StopSignal != "" {
		cfg.StopSignal = eb.StopSignal
	}
	if eb.StopTimeout != nil {
		cfg.StopTimeout = eb.StopTimeout
	}
	if eb.Healthcheck != nil {
		cfg.Healthcheck = &container.HealthConfig{
			Test:        eb.Healthcheck.Test,
			Interval:    eb.Healthcheck.Interval,
			Timeout:     eb.Healthcheck.Timeout,
			Retries:     eb.Healthcheck.Retries,
			StartPeriod: eb.Healthcheck.StartPeriod,
		}
	}

	return cfg, nil
}

// buildHostConfig translates an ExpectedBundle's resource/mount/port surface
// into a container.HostConfig, grounded on the teacher's
// internal/stack/deployer.go buildHostConfig.
func buildHostConfig(eb *bundle.ExpectedBundle) (*container.HostConfig, error) {
	hc := &container.HostConfig{
		Binds:       make([]string, 0, len(eb.Mounts)),
		Mounts:      make([]mount.Mount, 0),
		VolumesFrom: append([]string{}, eb.VolumesFrom...),
		Links:       make([]string, 0, len(eb.Links)),
		NetworkMode: container.NetworkMode(eb.NetworkMode),
		Resources: container.Resources{
			BlkioWeight:       eb.Limits.BlkioWeight,
			CPUPeriod:         eb.Limits.CPUPeriod,
			CPUQuota:          eb.Limits.CPUQuota,
			CPUShares:         eb.Limits.CPUShares,
			CpusetCpus:        eb.Limits.CpusetCpus,
			CpusetMems:        eb.Limits.CpusetMems,
			Memory:            eb.Limits.Memory,
			MemoryReservation: eb.Limits.MemoryReservation,
			MemorySwap:        eb.Limits.MemorySwap,
		},
	}
	// KernelMemory is tracked in Limits for drift comparison only: the
	// pinned Docker SDK no longer exposes a host-config setter for it
	// (matches internal/stack/deployer.go's buildHostConfig, which never
	// sets it either).
	if eb.Limits.PidsLimit != 0 {
		limit := eb.Limits.PidsLimit
		hc.PidsLimit = &limit
	}

	for _, m := range eb.Mounts {
		switch {
		case m.VolumeName != "":
			hc.Mounts = append(hc.Mounts, mount.Mount{
				Type:     mount.TypeVolume,
				Source:   m.VolumeName,
				Target:   m.ContainerPath,
				ReadOnly: m.ReadOnly,
			})
		case m.HostPath != "":
			bind := m.HostPath + ":" + m.ContainerPath
			if m.ReadOnly {
				bind += ":ro"
			}
			hc.Binds = append(hc.Binds, bind)
		default:
			// An anonymous share: a container-only path with no host or
			// volume backing, left for the daemon to allocate.
			hc.Mounts = append(hc.Mounts, mount.Mount{Type: mount.TypeVolume, Target: m.ContainerPath, ReadOnly: m.ReadOnly})
		}
	}

	for _, l := range eb.Links {
		hc.Links = append(hc.Links, l.Container+":"+l.Alias)
	}

	if len(eb.ExposedPorts) > 0 {
		hc.PortBindings = make(nat.PortMap, len(eb.ExposedPorts))
		for _, p := range eb.ExposedPorts {
			if !p.HasHostPort {
				continue
			}
			port, err := natPort(p.ContainerPort, p.Protocol)
			if err != nil {
				return nil, err
			}
			binding := nat.PortBinding{HostIP: p.HostIP, HostPort: strconv.Itoa(p.HostPort)}
			hc.PortBindings[port] = append(hc.PortBindings[port], binding)
		}
	}

	return hc, nil
}

// buildNetworkConfig attaches the bundle's primary (first) network at
// create time, grounded on the teacher's internal/stack/deployer.go
// buildNetworkConfig. The first network (if any) is attached at create
// time via EndpointsConfig; any remaining ones are connected afterward by
// the runner (Docker only accepts one network at container-create time).
func buildNetworkConfig(eb *bundle.ExpectedBundle) (*network.NetworkingConfig, []bundle.EndpointRef) {
	if len(eb.Networks) == 0 {
		return nil, nil
	}
	first := eb.Networks[0]
	cfg := &network.NetworkingConfig{
		EndpointsConfig: map[string]*network.EndpointSettings{
			first.Network: endpointSettings(first),
		},
	}
	return cfg, eb.Networks[1:]
}

func endpointSettingsFromRef(ep *bundle.EndpointRef) *network.EndpointSettings {
	if ep == nil {
		return nil
	}
	return endpointSettings(*ep)
}

func endpointSettings(ep bundle.EndpointRef) *network.EndpointSettings {
	settings := &network.EndpointSettings{Aliases: append([]string{}, ep.Aliases...)}
	if ep.IPv4 != "" || ep.IPv6 != "" {
		settings.IPAMConfig = &network.EndpointIPAMConfig{IPv4Address: ep.IPv4, IPv6Address: ep.IPv6}
	}
	return settings
}

func natPort(containerPort int, proto string) (nat.Port, error) {
	if proto == "" {
		proto = "tcp"
	}
	p, err := nat.NewPort(proto, fmt.Sprintf("%d", containerPort))
	if err != nil {
		return "", fmt.Errorf("invalid port %d/%s: %w", containerPort, proto, err)
	}
	return p, nil
}

// splitExecCommand turns an already-resolved exec command into argv: a
// single element containing whitespace is run through "/bin/sh -c"; any
// other command is passed through unchanged, since Docker's exec API takes
// argv directly.
func splitExecCommand(cmd []string) []string {
	if len(cmd) == 1 && strings.ContainsAny(cmd[0], " \t") {
		return []string{"/bin/sh", "-c", cmd[0]}
	}
	return cmd
}
