// Package depgraph builds the directed dependency graph over container
// configurations, attached volumes, and networks, and yields the forward
// and reverse traversal orders spec §4.3 describes.
package depgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cntrland/landscaper/internal/engineerr"
	"github.com/cntrland/landscaper/internal/model"
)

// NodeKind distinguishes the four kinds of dependency-graph node.
type NodeKind int

const (
	KindContainer NodeKind = iota
	KindAttached
	KindNetwork
	KindVolume
)

// Node is one (map, config, instance) tuple, or a synthetic attached-volume
// or network node.
type Node struct {
	Kind     NodeKind
	Map      string
	Config   string // container config name, attached-volume alias, or network name
	Instance string
	declOrd  int // declaration order, for stable tie-breaks
}

// ID is a stable string identity for a node, used for map keys and for
// reporting cycles.
func (n Node) ID() string {
	if n.Instance == "" {
		return fmt.Sprintf("%d:%s.%s", n.Kind, n.Map, n.Config)
	}
	return fmt.Sprintf("%d:%s.%s.%s", n.Kind, n.Map, n.Config, n.Instance)
}

// Graph is the dependency DAG for one or more Maps.
type Graph struct {
	nodes map[string]Node
	edges map[string][]string // dependent -> dependencies
	order []string            // declaration order of node IDs
}

// New builds the dependency graph for the given maps, using their already
// extends-expanded effective container configs.
func New(maps []*model.Map, effective map[string]map[string]*model.ContainerConfig) (*Graph, error) {
	g := &Graph{
		nodes: make(map[string]Node),
		edges: make(map[string][]string),
	}

	for _, m := range maps {
		for _, alias := range sortedKeys(m.Volumes) {
			g.addNode(Node{Kind: KindAttached, Map: m.Name, Config: alias})
		}
		for _, netName := range sortedKeys(m.Networks) {
			g.addNode(Node{Kind: KindNetwork, Map: m.Name, Config: netName})
		}
		eff := effective[m.Name]
		// Stable config declaration order: Go map iteration is unordered,
		// so configs are sorted by name; the literal source order of the
		// YAML document is not preserved.
		names := sortedKeys(eff)
		for _, name := range names {
			cfg := eff[name]
			if cfg.Abstract {
				continue
			}
			instances := cfg.Instances
			if len(instances) == 0 {
				instances = []string{""}
			}
			for _, inst := range instances {
				node := Node{Kind: KindContainer, Map: m.Name, Config: name, Instance: inst}
				g.addNode(node)
			}
		}
	}

	for _, m := range maps {
		eff := effective[m.Name]
		if err := g.addEdgesForMap(m, eff); err != nil {
			return nil, err
		}
	}

	if cyc := g.findCycle(); cyc != nil {
		return nil, &engineerr.CircularDependencyError{Cycle: cyc}
	}

	return g, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (g *Graph) addNode(n Node) {
	id := n.ID()
	if _, ok := g.nodes[id]; ok {
		return
	}
	n.declOrd = len(g.order)
	g.nodes[id] = n
	g.order = append(g.order, id)
}

func (g *Graph) addEdge(dependent, dependency Node) {
	did, gid := dependent.ID(), dependency.ID()
	for _, e := range g.edges[did] {
		if e == gid {
			return
		}
	}
	g.edges[did] = append(g.edges[did], gid)
}

func (g *Graph) addEdgesForMap(m *model.Map, eff map[string]*model.ContainerConfig) error {
	for name, cfg := range eff {
		if cfg.Abstract {
			continue
		}
		instances := cfg.Instances
		if len(instances) == 0 {
			instances = []string{""}
		}
		for _, inst := range instances {
			self := Node{Kind: KindContainer, Map: m.Name, Config: name, Instance: inst}

			for _, u := range cfg.Uses {
				target := u.Target
				if strings.HasPrefix(target, "parent.") {
					continue // parent.<alias> targets are not resolved and get no graph edge
				}
				if _, isVolume := m.Volumes[target]; isVolume {
					g.addEdge(self, Node{Kind: KindAttached, Map: m.Name, Config: target})
					continue
				}
				g.addTargetEdges(m, eff, self, target)
			}

			for _, l := range cfg.Links {
				g.addTargetEdges(m, eff, self, l.Container)
			}

			for _, a := range cfg.Attaches {
				g.addEdge(self, Node{Kind: KindAttached, Map: m.Name, Config: a.Alias})
			}

			for _, ep := range cfg.Networks {
				g.addEdge(self, Node{Kind: KindNetwork, Map: m.Name, Config: ep.Network})
			}

			if cfg.NetworkMode != "" && !isEscapeHatch(cfg.NetworkMode) {
				base, wantInst := splitInstanceSuffix(cfg.NetworkMode)
				if _, ok := eff[base]; ok {
					g.addTargetEdgesInstance(m, eff, self, base, wantInst)
				}
			}
		}
	}
	return nil
}

func isEscapeHatch(mode string) bool {
	switch mode {
	case "bridge", "host", "none", "disabled":
		return true
	}
	return strings.HasPrefix(mode, "/") || strings.HasPrefix(mode, "container:")
}

func splitInstanceSuffix(mode string) (base, instance string) {
	if i := strings.LastIndex(mode, "."); i >= 0 {
		return mode[:i], mode[i+1:]
	}
	return mode, ""
}

// addTargetEdges adds an edge to every instance of the named config (no
// instance specified means "all instances").
func (g *Graph) addTargetEdges(m *model.Map, eff map[string]*model.ContainerConfig, self Node, target string) {
	base, inst := target, ""
	if strings.Contains(target, ".") {
		candidate, maybeInst := splitInstanceSuffix(target)
		if _, ok := eff[candidate]; ok {
			base, inst = candidate, maybeInst
		}
	}
	g.addTargetEdgesInstance(m, eff, self, base, inst)
}

func (g *Graph) addTargetEdgesInstance(m *model.Map, eff map[string]*model.ContainerConfig, self Node, base, inst string) {
	cfg, ok := eff[base]
	if !ok {
		return
	}
	if inst != "" {
		g.addEdge(self, Node{Kind: KindContainer, Map: m.Name, Config: base, Instance: inst})
		return
	}
	instances := cfg.Instances
	if len(instances) == 0 {
		instances = []string{""}
	}
	for _, i := range instances {
		g.addEdge(self, Node{Kind: KindContainer, Map: m.Name, Config: base, Instance: i})
	}
}

// findCycle returns the node-ID cycle, if any, via DFS.
func (g *Graph) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.nodes))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		stack = append(stack, id)
		for _, dep := range g.edges[id] {
			switch color[dep] {
			case white:
				if visit(dep) {
					return true
				}
			case gray:
				// found the cycle: everything on stack from dep's first
				// occurrence onward.
				for i, s := range stack {
					if s == dep {
						cycle = append(append([]string{}, stack[i:]...), dep)
						return true
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	for _, id := range g.order {
		if color[id] == white {
			if visit(id) {
				return cycle
			}
		}
	}
	return nil
}

// Forward returns a topological order with dependencies before dependents:
// stable by declaration order among ties. Used by create/start/startup/
// update/pull.
func (g *Graph) Forward() []Node {
	visited := make(map[string]bool, len(g.nodes))
	var out []Node

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, dep := range g.edges[id] {
			visit(dep)
		}
		out = append(out, g.nodes[id])
	}

	for _, id := range g.order {
		visit(id)
	}
	return out
}

// Reverse returns the reverse of Forward: dependents before dependencies.
// Used by stop/remove/shutdown.
func (g *Graph) Reverse() []Node {
	fwd := g.Forward()
	out := make([]Node, len(fwd))
	for i, n := range fwd {
		out[len(fwd)-1-i] = n
	}
	return out
}

// Group expands a group name (model.GroupAll or a user-defined group) into
// the union of its members' transitive dependency sets, in forward or
// reverse order.
func Group(g *Graph, m *model.Map, eff map[string]*model.ContainerConfig, groupName string, reverse bool) ([]Node, error) {
	var members []string
	if groupName == model.GroupAll {
		members = sortedKeys(eff)
	} else {
		grp, ok := m.Groups[groupName]
		if !ok {
			return nil, fmt.Errorf("depgraph: unknown group %q", groupName)
		}
		members = grp
	}
	return Resolve(g, m, eff, members, reverse), nil
}

// Resolve expands an explicit list of container-config names into the union
// of their transitive dependency sets, in forward or reverse order. Group
// is a thin wrapper around this that first resolves a group name to its
// member list; callers addressing a single named container (the common
// case for create/start/stop/... of one config) call this directly with a
// one-element list instead of registering an ad hoc group.
func Resolve(g *Graph, m *model.Map, eff map[string]*model.ContainerConfig, memberNames []string, reverse bool) []Node {
	want := make(map[string]bool, len(memberNames))
	for _, name := range memberNames {
		if cfg, ok := eff[name]; ok && cfg.Abstract {
			continue
		}
		want[name] = true
	}

	// Seed the closure with every instance of every named member, then
	// pull in everything each seed transitively depends on.
	reach := make(map[string]bool)
	var mark func(id string)
	mark = func(id string) {
		if reach[id] {
			return
		}
		reach[id] = true
		for _, dep := range g.edges[id] {
			mark(dep)
		}
	}
	for name := range want {
		cfg, ok := eff[name]
		if !ok {
			continue
		}
		instances := cfg.Instances
		if len(instances) == 0 {
			instances = []string{""}
		}
		for _, inst := range instances {
			mark(Node{Kind: KindContainer, Map: m.Name, Config: name, Instance: inst}.ID())
		}
	}

	order := g.Forward()
	if reverse {
		order = g.Reverse()
	}

	var out []Node
	seen := make(map[string]bool)
	for _, n := range order {
		if !reach[n.ID()] {
			continue
		}
		if !seen[n.ID()] {
			seen[n.ID()] = true
			out = append(out, n)
		}
	}
	return out
}
