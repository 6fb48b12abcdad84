package plan

import (
	"context"
	"fmt"

	"github.com/cntrland/landscaper/internal/action"
	"github.com/cntrland/landscaper/internal/depgraph"
	"github.com/cntrland/landscaper/internal/runner"
	"github.com/cntrland/landscaper/internal/state"
)

// stateGenFor returns the state generator and traversal direction/closure
// an intent needs, per spec §4.4/§4.5's intent table: create/start/startup
// walk forward so dependencies are ready before their dependents; stop/
// remove/shutdown walk in reverse so dependents come down first; update
// needs the full field comparison regardless of direction; restart only
// ever touches the named containers themselves, never their dependency
// chain.
func (e *Engine) stateGenFor(intent action.Intent) (gen state.Generator, reverse, closeDeps bool, err error) {
	switch intent {
	case action.IntentCreate, action.IntentStart, action.IntentStartup, action.IntentPull:
		return state.ForwardDependency{}, false, true, nil
	case action.IntentStop, action.IntentRemove, action.IntentShutdown:
		return state.ReverseDependency{}, true, true, nil
	case action.IntentUpdate:
		return state.Update{DepName: e.DepNamer()}, false, true, nil
	case action.IntentRestart:
		return state.Single{}, false, false, nil
	default:
		return nil, false, false, fmt.Errorf("plan: intent %q has no state generator", intent)
	}
}

// Run executes one intent against the named targets (container-config
// names, or a single group/"__all__" name), fanning the resulting ops out
// per client and invoking the Runner once with the complete per-client op
// map so the Runner's own errgroup handles the cross-client concurrency
// (spec §5).
func (e *Engine) Run(ctx context.Context, intent action.Intent, targets []string, opts RunOptions) (*runner.Result, error) {
	stGen, reverse, closeDeps, err := e.stateGenFor(intent)
	if err != nil {
		return nil, err
	}
	actGen, err := action.For(intent)
	if err != nil {
		return nil, err
	}

	nodes, err := resolveNodes(e.Landscape, targets, reverse, closeDeps)
	if err != nil {
		return nil, err
	}

	opsByClient := map[string][]action.Op{}
	seenClients := map[string]bool{}
	for _, client := range clientsFor(e.Landscape, nodes) {
		seenClients[client] = true
	}
	for client := range seenClients {
		clientNodes := nodesForClient(e.Landscape, nodes, client)
		if len(clientNodes) == 0 {
			continue
		}
		states, err := stGen.Generate(ctx, e.Landscape.Graph, clientNodes, e.resolved(), e.Inspector, client, stateOptions(opts))
		if err != nil {
			return nil, fmt.Errorf("plan: generating state for client %s: %w", client, err)
		}
		ops, err := actGen.Generate(e.resolved(), states, client, opts.Options, e.DepNamer())
		if err != nil {
			return nil, fmt.Errorf("plan: generating actions for client %s: %w", client, err)
		}
		if len(ops) > 0 {
			opsByClient[client] = ops
		}
	}
	if len(opsByClient) == 0 {
		return &runner.Result{}, nil
	}
	return e.Runner.Execute(ctx, opsByClient)
}

// clientsFor collects the distinct client names the given nodes' owning
// container configs resolve to.
func clientsFor(ls *Landscape, nodes []depgraph.Node) []string {
	var out []string
	seen := map[string]bool{}
	for _, n := range nodes {
		cfg := ls.Effective[n.Config]
		for _, c := range clientsForConfig(ls.Map, cfg) {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// nodesForClient filters nodes down to the ones whose owning config
// targets the given client, preserving the traversal's relative order.
func nodesForClient(ls *Landscape, nodes []depgraph.Node, client string) []depgraph.Node {
	var out []depgraph.Node
	for _, n := range nodes {
		cfg := ls.Effective[n.Config]
		if containsStr(clientsForConfig(ls.Map, cfg), client) {
			out = append(out, n)
		}
	}
	return out
}
