package state

import (
	"context"

	"github.com/cntrland/landscaper/internal/depgraph"
)

// ForwardDependency classifies a node and its full dependency chain, in
// forward (dependencies-before-dependents) order. Used by create/start.
type ForwardDependency struct{}

func (ForwardDependency) Generate(ctx context.Context, g *depgraph.Graph, nodes []depgraph.Node, r *Resolved, insp Inspector, client string, opts Options) ([]NodeState, error) {
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
