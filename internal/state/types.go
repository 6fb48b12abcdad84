package state

import (
	"context"

	"github.com/cntrland/landscaper/internal/depgraph"
	"github.com/cntrland/landscaper/internal/model"
)

// NodeState is the classification record produced for every node visited
// by a traversal, per spec §4.4.
type NodeState struct {
	Node depgraph.Node
	Kind depgraph.NodeKind

	Present  bool
	Running  bool
	ExitCode int
	Pid      int

	ImageMatches      bool
	LinksMatch        bool
	VolumesMatch      bool
	EnvMatches        bool
	CmdMatches        bool
	EntrypointMatches bool
	ExposesMatch      bool
	NetworksMatch     bool
	ExecPresent       map[string]bool // exec-id -> present
	LimitsMatch       bool
	DriverMatches     bool

	ForceUpdate bool

	// ExitNonrecoverable is precomputed by basicState from the generator's
	// NonrecoverableExitCodes option, so every generator (not just Update)
	// can see it: startup must recreate rather than restart a present
	// container that last exited with a nonrecoverable code, exactly like
	// update does.
	ExitNonrecoverable bool

	// Live is the raw inspect result, kept for the action generator's
	// keyword assembly (e.g. to reconnect only missing networks).
	Live *ContainerInfo
}

// Nonrecoverable reports whether the node's live exit code is in the
// configured nonrecoverable set (default {-127, -1}).
func (s NodeState) Nonrecoverable(codes map[int]bool) bool {
	if s.Present && !s.Running {
		return codes[s.ExitCode]
	}
	return false
}

// DefaultNonrecoverableExitCodes is the spec §4.4 default set.
func DefaultNonrecoverableExitCodes() map[int]bool {
	return map[int]bool{-127: true, -1: true}
}

// Options carries the subset of the action-option catalogue (spec §6) that
// affects state classification.
type Options struct {
	ForceUpdate             map[string]bool
	NonrecoverableExitCodes map[int]bool
	CheckExecCommands       model.CheckExecMode
	SkipLimitReset          bool
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		ForceUpdate:             map[string]bool{},
		NonrecoverableExitCodes: DefaultNonrecoverableExitCodes(),
		CheckExecCommands:       model.CheckExecFull,
	}
}

// Resolved bundles everything a generator needs about one map: its
// effective (extends-expanded) container configs, and the client set each
// container should be evaluated against.
type Resolved struct {
	Map       *model.Map
	Effective map[string]*model.ContainerConfig
}

// Generator produces NodeStates for a sequence of dependency-graph nodes.
// The four concrete variants (Single, ForwardDependency, ReverseDependency,
// Update) differ in which traversal order they consume and which NodeState
// fields they populate — see spec §4.4.
type Generator interface {
	Generate(ctx context.Context, g *depgraph.Graph, nodes []depgraph.Node, r *Resolved, insp Inspector, client string, opts Options) ([]NodeState, error)
}
