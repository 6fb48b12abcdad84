package state

import (
	"context"

	"github.com/cntrland/landscaper/internal/depgraph"
)

// Single classifies one node's basic presence/running/exit state, ignoring
// its dependency chain. Used when the caller already knows exactly which
// node it wants (e.g. restart of a single named container).
type Single struct{}

func (Single) Generate(ctx context.Context, g *depgraph.Graph, nodes []depgraph.Node, r *Resolved, insp Inspector, client string, opts Options) ([]NodeState, error) {
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
