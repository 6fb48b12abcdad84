package plan

import (
	"fmt"

	"github.com/cntrland/landscaper/internal/depgraph"
	"github.com/cntrland/landscaper/internal/model"
)

// resolveNodes expands a request — one or more container-config names, or
// a single "__all__"/user-defined group name — into the ordered node list
// a traversal should visit. closeDeps pulls in the full transitive
// dependency chain (create/start/stop/... per spec §4.3); when it is
// false, only the named configs' own instances are returned, matching
// restart's "only the named container" scope (spec §4.5).
func resolveNodes(ls *Landscape, targets []string, reverse, closeDeps bool) ([]depgraph.Node, error) {
	if len(targets) == 1 {
		if _, isGroup := ls.Map.Groups[targets[0]]; isGroup || targets[0] == model.GroupAll {
			if !closeDeps {
				return nil, fmt.Errorf("plan: group targeting requires dependency closure")
			}
			return depgraph.Group(ls.Graph, ls.Map, ls.Effective, targets[0], reverse)
		}
	}
	for _, t := range targets {
		if _, ok := ls.Effective[t]; !ok {
			return nil, fmt.Errorf("plan: unknown container configuration %q", t)
		}
	}
	if closeDeps {
		return depgraph.Resolve(ls.Graph, ls.Map, ls.Effective, targets, reverse), nil
	}
	return directNodes(ls.Map, ls.Effective, targets), nil
}

// directNodes expands container-config names into their instance nodes
// without pulling in any dependency-graph closure.
func directNodes(m *model.Map, eff map[string]*model.ContainerConfig, memberNames []string) []depgraph.Node {
	var out []depgraph.Node
	for _, name := range memberNames {
		cfg, ok := eff[name]
		if !ok || cfg.Abstract {
			continue
		}
		instances := cfg.Instances
		if len(instances) == 0 {
			instances = []string{""}
		}
		for _, inst := range instances {
			out = append(out, depgraph.Node{Kind: depgraph.KindContainer, Map: m.Name, Config: name, Instance: inst})
		}
	}
	return out
}

// clientsForConfig returns the client set a container config should be
// evaluated/executed against: the config's own `clients` override, else
// the map's `clients`, else the single synthetic "default" client spec §3
// describes for an empty clients list.
func clientsForConfig(m *model.Map, cfg *model.ContainerConfig) []string {
	if cfg != nil && len(cfg.Clients) > 0 {
		return cfg.Clients
	}
	if len(m.Clients) > 0 {
		return m.Clients
	}
	return []string{"default"}
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
