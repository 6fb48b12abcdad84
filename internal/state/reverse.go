package state

import (
	"context"

	"github.com/cntrland/landscaper/internal/depgraph"
)

// ReverseDependency classifies a node and its dependency chain in reverse
// (dependents-before-dependencies) order. Used by stop/remove so dependents
// are processed first.
type ReverseDependency struct{}

func (ReverseDependency) Generate(ctx context.Context, g *depgraph.Graph, nodes []depgraph.Node, r *Resolved, insp Inspector, client string, opts Options) ([]NodeState, error) {
	out := make([]NodeState, 0, len(nodes))
	for _, n := range nodes {
		ns, err := basicState(ctx, insp, client, n, opts.NonrecoverableExitCodes)
		if err != nil {
			return nil, err
		}
		out = append(out, ns)
	}
	return out, nil
}
