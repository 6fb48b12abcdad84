package state

import (
	"context"
	"fmt"

	"github.com/cntrland/landscaper/internal/depgraph"
	"github.com/cntrland/landscaper/internal/names"
)

// basicState fills presence/running/exit/pid for one node, without any of
// the heavier update-match comparisons. codes classifies the node's exit
// code as nonrecoverable (spec §4.4); every generator threads its own
// opts.NonrecoverableExitCodes through here so update and startup both see
// the same ExitNonrecoverable signal regardless of which generator ran.
func basicState(ctx context.Context, insp Inspector, client string, n depgraph.Node, codes map[int]bool) (NodeState, error) {
	ns := NodeState{Node: n, Kind: n.Kind}

	switch n.Kind {
	case depgraph.KindContainer:
		name := containerName(n)
		info, err := insp.InspectContainer(ctx, client, name)
		if err != nil {
			return ns, fmt.Errorf("inspect %s: %w", name, err)
		}
		if info == nil {
			return ns, nil
		}
		ns.Present = true
		ns.Running = info.Running
		ns.ExitCode = info.ExitCode
		ns.Pid = info.Pid
		ns.Live = info
		if n.Kind == depgraph.KindContainer {
			ns.ExitNonrecoverable = ns.Nonrecoverable(codes)
		}
	case depgraph.KindNetwork:
		ok, err := insp.NetworkExists(ctx, client, n.Config)
		if err != nil {
			return ns, fmt.Errorf("inspect network %s: %w", n.Config, err)
		}
		ns.Present = ok
	case depgraph.KindVolume, depgraph.KindAttached:
		// attached volumes are created as named Docker volumes by the runner
		ok, err := insp.VolumeExists(ctx, client, n.Map+"."+n.Config)
		if err != nil {
			return ns, fmt.Errorf("inspect volume %s: %w", n.Config, err)
		}
		ns.Present = ok
	}
	return ns, nil
}

func containerName(n depgraph.Node) string {
	if n.Kind == depgraph.KindAttached {
		return n.Map + "." + n.Config
	}
	return names.ContainerName(n.Map, n.Config, n.Instance)
}
