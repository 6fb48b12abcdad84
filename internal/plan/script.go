package plan

import (
	"context"
	"fmt"

	"github.com/cntrland/landscaper/internal/action"
	"github.com/cntrland/landscaper/internal/depgraph"
	"github.com/cntrland/landscaper/internal/engineerr"
	"github.com/cntrland/landscaper/internal/runner"
)

// RunScript executes the run-script intent (spec §4.5) against a single
// named container config: create a transient container from its image and
// effective configuration with the command/entrypoint overridden, run it,
// capture its logs, then remove it. Unlike the ten-node intents this
// always targets exactly one config, on exactly one instance, since a
// script's output is meant to be read by the caller inline.
func (e *Engine) RunScript(ctx context.Context, target, instance string, command, entrypoint []string, scriptMount string, opts RunOptions) (*runner.Result, error) {
	cfg, ok := e.Landscape.Effective[target]
	if !ok {
		return nil, fmt.Errorf("plan: unknown container configuration %q", target)
	}
	if instance == "" && len(cfg.Instances) > 0 {
		instance = cfg.Instances[0]
	}
	node := depgraph.Node{Kind: depgraph.KindContainer, Map: e.Landscape.Map.Name, Config: target, Instance: instance}

	clients := clientsForConfig(e.Landscape.Map, cfg)
	opsByClient := map[string][]action.Op{}
	for _, client := range clients {
		name, err := action.ScriptContainerName(e.resolved(), node, e.DepNamer(), opts.Options)
		if err != nil {
			return nil, fmt.Errorf("plan: resolving run-script container name for %s on %s: %w", target, client, err)
		}
		if !opts.RemoveExistingBefore {
			info, err := e.Inspector.InspectContainer(ctx, client, name)
			if err != nil {
				return nil, fmt.Errorf("plan: checking for a pre-existing run-script container %s on %s: %w", name, client, err)
			}
			if info != nil {
				return nil, &engineerr.ScriptActionException{Container: name, Reason: "container already exists and remove_existing_before is false"}
			}
		}
		ops, err := action.RunScript(e.resolved(), node, client, command, entrypoint, scriptMount, e.DepNamer(), opts.Options)
		if err != nil {
			return nil, fmt.Errorf("plan: building run-script ops for %s on %s: %w", target, client, err)
		}
		opsByClient[client] = ops
	}
	return e.Runner.Execute(ctx, opsByClient)
}
