package state

import (
	"context"
	"fmt"
	"strings"

	"github.com/cntrland/landscaper/internal/bundle"
	"github.com/cntrland/landscaper/internal/depgraph"
	"github.com/cntrland/landscaper/internal/model"
)

// Update is the computationally-heavy generator: for every container it
// inspects the live container and compares field-by-field against the
// expected effective configuration (spec §4.4).
type Update struct {
	// DepName resolves a uses/links target to its fully-qualified
	// container name, given the (map, target) pair. The dependency
	// resolver's traversal already established this mapping; it is
	// threaded in here rather than recomputed.
	DepName func(mapName, target string) (string, bool)
}

func (u Update) Generate(ctx context.Context, g *depgraph.Graph, nodes []depgraph.Node, r *Resolved, insp Inspector, client string, opts Options) ([]NodeState, error) {
	out := make([]NodeState, 0, len(nodes))
	for _, n := range nodes {
		ns, err := basicState(ctx, insp, client, n, opts.NonrecoverableExitCodes)
		if err != nil {
			return nil, err
		}
		if n.Kind == depgraph.KindContainer {
			if err := u.populateMatch(ctx, &ns, n, r, insp, client, opts); err != nil {
				return nil, err
			}
		} else {
			// Attached volumes/networks are not subject to field-by-field
			// drift comparison; they exist or they don't.
			ns.ImageMatches = true
			ns.LinksMatch = true
			ns.VolumesMatch = true
			ns.EnvMatches = true
			ns.CmdMatches = true
			ns.EntrypointMatches = true
			ns.ExposesMatch = true
			ns.NetworksMatch = true
			ns.LimitsMatch = true
			ns.DriverMatches = true
		}
		out = append(out, ns)
	}
	return out, nil
}

func (u Update) populateMatch(ctx context.Context, ns *NodeState, n depgraph.Node, r *Resolved, insp Inspector, client string, opts Options) error {
	cfg, ok := r.Effective[n.Config]
	if !ok {
		return fmt.Errorf("update: no effective config for %s", n.Config)
	}

	ns.ForceUpdate = opts.ForceUpdate[n.Config]

	depNamer := func(target string) (string, bool) {
		if u.DepName == nil {
			return "", false
		}
		return u.DepName(r.Map.Name, target)
	}
	eb, err := bundle.Assemble(r.Map, cfg, n.Instance, depNamer, bundle.AssembleOptions{})
	if err != nil {
		return fmt.Errorf("assembling expected bundle for %s: %w", n.Config, err)
	}

	if !ns.Present || ns.Live == nil {
		// Absent containers have nothing to compare; the action generator
		// treats this identically to "every field mismatched".
		return nil
	}
	live := ns.Live

	resolvedImageID, err := insp.ResolveImageID(ctx, client, eb.Image)
	if err != nil {
		return fmt.Errorf("resolving image id for %s: %w", eb.Image, err)
	}
	ns.ImageMatches = resolvedImageID == "" || resolvedImageID == live.ImageID

	ns.LinksMatch = linksMatch(eb, live)
	ns.VolumesMatch = volumesMatch(eb, live)
	ns.EnvMatches = subsetMatch(eb.Env, live.Env)
	ns.CmdMatches = sliceEqualOrEmpty(eb.Cmd, live.Cmd)
	ns.EntrypointMatches = sliceEqualOrEmpty(eb.Entrypoint, live.Entrypoint)
	ns.ExposesMatch = exposesMatch(eb, live)
	ns.NetworksMatch = networksMatch(eb, live)
	ns.LimitsMatch = limitsMatch(eb.Limits, live.Limits)
	ns.DriverMatches = true // no per-node driver field tracked for containers; volumes compare separately.

	ns.ExecPresent, err = execPresence(ctx, insp, client, live.ID, eb.ExecCommands, opts.CheckExecCommands)
	if err != nil {
		return err
	}

	return nil
}

func linksMatch(eb *bundle.ExpectedBundle, live *ContainerInfo) bool {
	liveSet := make(map[string]bool, len(live.Links))
	for _, l := range live.Links {
		liveSet[l] = true
	}
	for _, l := range eb.Links {
		if !liveSet[l.Container] && !liveSet[l.Alias] {
			return false
		}
	}
	return true
}

func volumesMatch(eb *bundle.ExpectedBundle, live *ContainerInfo) bool {
	liveByPath := make(map[string]MountInfo, len(live.Mounts))
	for _, m := range live.Mounts {
		liveByPath[m.ContainerPath] = m
	}
	for _, expected := range eb.Mounts {
		got, ok := liveByPath[expected.ContainerPath]
		if !ok {
			return false
		}
		if expected.HostPath != "" && got.Source != expected.HostPath {
			return false
		}
		if expected.VolumeName != "" && got.VolumeName != expected.VolumeName {
			return false
		}
	}
	return true
}

func subsetMatch(expected, live []string) bool {
	liveSet := make(map[string]bool, len(live))
	for _, v := range live {
		liveSet[v] = true
	}
	for _, v := range expected {
		if !liveSet[v] {
			return false
		}
	}
	return true
}

// sliceEqualOrEmpty treats an unset expected slice as "no opinion" (match),
// since cmd/entrypoint default to whatever the image provides when the
// configuration never set them.
func sliceEqualOrEmpty(expected, live []string) bool {
	if len(expected) == 0 {
		return true
	}
	if len(expected) != len(live) {
		return false
	}
	for i := range expected {
		if expected[i] != live[i] {
			return false
		}
	}
	return true
}

func exposesMatch(eb *bundle.ExpectedBundle, live *ContainerInfo) bool {
	liveSet := make(map[string]bool, len(live.ExposedPorts))
	for _, p := range live.ExposedPorts {
		liveSet[p] = true
	}
	for _, p := range eb.ExposedPorts {
		key := fmt.Sprintf("%d/%s", p.ContainerPort, p.Protocol)
		if !liveSet[key] {
			return false
		}
	}
	return true
}

func networksMatch(eb *bundle.ExpectedBundle, live *ContainerInfo) bool {
	for _, ep := range eb.Networks {
		if _, ok := live.Networks[ep.Network]; !ok {
			return false
		}
	}
	return true
}

func limitsMatch(expected, live Limits) bool {
	if expected.Memory != 0 && expected.Memory != live.Memory {
		return false
	}
	if expected.MemoryReservation != 0 && expected.MemoryReservation != live.MemoryReservation {
		return false
	}
	if expected.MemorySwap != 0 && expected.MemorySwap != live.MemorySwap {
		return false
	}
	if expected.KernelMemory != 0 && expected.KernelMemory != live.KernelMemory {
		return false
	}
	if expected.CPUShares != 0 && expected.CPUShares != live.CPUShares {
		return false
	}
	if expected.CPUPeriod != 0 && expected.CPUPeriod != live.CPUPeriod {
		return false
	}
	if expected.CPUQuota != 0 && expected.CPUQuota != live.CPUQuota {
		return false
	}
	if expected.CpusetCpus != "" && expected.CpusetCpus != live.CpusetCpus {
		return false
	}
	if expected.CpusetMems != "" && expected.CpusetMems != live.CpusetMems {
		return false
	}
	if expected.BlkioWeight != 0 && expected.BlkioWeight != live.BlkioWeight {
		return false
	}
	if expected.PidsLimit != 0 && expected.PidsLimit != live.PidsLimit {
		return false
	}
	return true
}

// execPresence computes which RESTART exec specs already have a matching
// live process. When the backend cannot list processes (spec §9), every
// RESTART command is reported absent so it gets re-run.
func execPresence(ctx context.Context, insp Inspector, client, containerID string, specs []model.ExecSpec, mode model.CheckExecMode) (map[string]bool, error) {
	// Keyed by slice index, matching internal/action's execOpsFor: both
	// sides range over the same cfg.ExecCommands/eb.ExecCommands order, so
	// an index is a stable, order-preserving id without needing a
	// resolved-command string as a map key.
	resolved := make([]execSpecLike, 0, len(specs))
	for i, s := range specs {
		cmd, err := s.Command.Resolve()
		if err != nil {
			return nil, fmt.Errorf("resolving exec command: %w", err)
		}
		user, err := s.User.Resolve()
		if err != nil {
			return nil, fmt.Errorf("resolving exec user: %w", err)
		}
		resolved = append(resolved, execSpecLike{id: fmt.Sprintf("%d", i), command: cmd, user: user, policy: string(s.Policy)})
	}

	result := make(map[string]bool, len(resolved))
	if mode == model.CheckExecNone {
		for _, s := range resolved {
			result[s.id] = true
		}
		return result, nil
	}
	procs, supported, err := insp.ListExecProcesses(ctx, client, containerID)
	if err != nil {
		return nil, fmt.Errorf("listing exec processes: %w", err)
	}
	for _, s := range resolved {
		if s.policy != string(model.ExecRestart) {
			continue
		}
		if !supported {
			result[s.id] = false
			continue
		}
		result[s.id] = processMatches(procs, s, string(mode))
	}
	return result, nil
}

type execSpecLike struct {
	id      string
	command []string
	user    string
	policy  string
}

func processMatches(procs []ExecProcess, spec execSpecLike, mode string) bool {
	for _, p := range procs {
		if spec.user != "" && p.User != spec.user {
			continue
		}
		if mode == "PARTIAL" {
			if len(p.Command) > 0 && len(spec.command) > 0 && strings.Contains(strings.Join(p.Command, " "), spec.command[0]) {
				return true
			}
			continue
		}
		if len(p.Command) != len(spec.command) {
			continue
		}
		match := true
		for i := range p.Command {
			if p.Command[i] != spec.command[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
