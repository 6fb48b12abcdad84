package action

import (
	"fmt"
	"time"

	"github.com/cntrland/landscaper/internal/bundle"
	"github.com/cntrland/landscaper/internal/depgraph"
	"github.com/cntrland/landscaper/internal/model"
	"github.com/cntrland/landscaper/internal/names"
	"github.com/cntrland/landscaper/internal/state"
)

// Intent identifies one of the ten actions spec §4.5 names.
type Intent string

const (
	IntentCreate   Intent = "create"
	IntentStart    Intent = "start"
	IntentRestart  Intent = "restart"
	IntentStop     Intent = "stop"
	IntentRemove   Intent = "remove"
	IntentStartup  Intent = "startup"
	IntentShutdown Intent = "shutdown"
	IntentUpdate   Intent = "update"
	IntentScript   Intent = "run-script"
	IntentPull     Intent = "pull"
)

// DepNamer resolves a uses/links target within one map to its fully
// qualified dependency name, as already established by the dependency
// resolver's traversal.
type DepNamer func(mapName, target string) (string, bool)

// Generator turns one traversal's NodeStates into an ordered Op list for a
// single client.
type Generator interface {
	Generate(r *state.Resolved, states []state.NodeState, client string, opts Options, depName DepNamer) ([]Op, error)
}

// For returns the Generator implementing the named intent.
func For(intent Intent) (Generator, error) {
	switch intent {
	case IntentCreate:
		return createGen{}, nil
	case IntentStart:
		return startGen{}, nil
	case IntentRestart:
		return restartGen{}, nil
	case IntentStop:
		return stopGen{}, nil
	case IntentRemove:
		return removeGen{}, nil
	case IntentStartup:
		return startupGen{}, nil
	case IntentShutdown:
		return shutdownGen{}, nil
	case IntentUpdate:
		return updateGen{}, nil
	case IntentPull:
		return pullGen{}, nil
	default:
		return nil, fmt.Errorf("action: unknown intent %q", intent)
	}
}

func assemble(r *state.Resolved, n depgraph.Node, depName DepNamer, opts Options) (*bundle.ExpectedBundle, error) {
	cfg, ok := r.Effective[n.Config]
	if !ok {
		return nil, fmt.Errorf("action: no effective config for %s", n.Config)
	}
	namer := func(target string) (string, bool) {
		if depName == nil {
			return "", false
		}
		return depName(r.Map.Name, target)
	}
	eb, err := bundle.Assemble(r.Map, cfg, n.Instance, namer, bundle.AssembleOptions{})
	if err != nil {
		return nil, err
	}
	eb.ForceUpdate = opts.ForceUpdate[n.Config]
	return eb, nil
}

func stopTimeout(cfg *model.ContainerConfig) (timeoutSecs int, hasTimeout bool) {
	if cfg.StopTimeout != nil {
		return int(cfg.StopTimeout.Seconds()), true
	}
	return 0, false
}

// --- pull -------------------------------------------------------------

type pullGen struct{}

func (pullGen) Generate(r *state.Resolved, states []state.NodeState, client string, opts Options, depName DepNamer) ([]Op, error) {
	var ops []Op
	seen := map[string]bool{}
	for _, s := range states {
		if s.Node.Kind != depgraph.KindContainer {
			continue
		}
		eb, err := assemble(r, s.Node, depName, opts)
		if err != nil {
			return nil, err
		}
		if seen[eb.Image] {
			continue
		}
		if !opts.PullAllImages && s.Present && s.ImageMatches {
			continue
		}
		seen[eb.Image] = true
		ops = append(ops, Op{Kind: KindPull, Client: client, Node: s.Node, Image: eb.Image})
	}
	return ops, nil
}

// --- create -------------------------------------------------------------

type createGen struct{}

func (createGen) Generate(r *state.Resolved, states []state.NodeState, client string, opts Options, depName DepNamer) ([]Op, error) {
	var ops []Op
	for _, s := range states {
		switch s.Node.Kind {
		case depgraph.KindNetwork:
			if s.Present {
				continue
			}
			net := r.Map.Networks[s.Node.Config]
			ops = append(ops, Op{
				Kind:         KindCreateNetwork,
				Client:       client,
				Node:         s.Node,
				NetworkName:  s.Node.Config,
				VolumeDriver: driverOf(net),
			})
		case depgraph.KindAttached:
			if s.Present {
				continue
			}
			ops = append(ops, createAttachedOps(r, s.Node, client)...)
		case depgraph.KindContainer:
			if s.Present {
				continue
			}
			if opts.RemoveExistingBefore {
				ops = append(ops, Op{Kind: KindRemove, Client: client, Node: s.Node, ContainerName: containerName(r.Map, s.Node)})
			}
			if opts.PullAllImages {
				eb, err := assemble(r, s.Node, depName, opts)
				if err != nil {
					return nil, err
				}
				ops = append(ops, Op{Kind: KindPull, Client: client, Node: s.Node, Image: eb.Image})
			}
			op, err := createContainerOp(r, s.Node, client, depName, opts)
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		}
	}
	return ops, nil
}

// ScriptContainerName returns the fixed name the run-script intent's
// transient container uses for this (node, config) pair. It is not
// randomized: a stable name is what lets ScriptActionException detect a
// leftover container from a previous failed run (spec §4.5/§6/§7).
func ScriptContainerName(r *state.Resolved, node depgraph.Node, depName DepNamer, opts Options) (string, error) {
	eb, err := assemble(r, node, depName, opts)
	if err != nil {
		return "", err
	}
	return eb.Name + ".script", nil
}

// RunScript builds the transient-container Ops for the run-script intent
// (spec §4.5): create a one-shot container from the named config's image
// and effective configuration, overriding its command/entrypoint, run it to
// completion, then remove it. The logs op it emits is not executed by the
// runner, so no container output is collected. A leading remove is only
// emitted when opts.RemoveExistingBefore is set; otherwise the caller
// (internal/plan) is responsible for checking the container isn't already
// there and raising engineerr.ScriptActionException if it is. The wait op
// carries opts.WaitTimeout so the runner can bound how long it blocks.
func RunScript(r *state.Resolved, node depgraph.Node, client string, command []string, entrypoint []string, scriptMount string, depName DepNamer, opts Options) ([]Op, error) {
	eb, err := assemble(r, node, depName, opts)
	if err != nil {
		return nil, err
	}
	name := eb.Name + ".script"
	createOp := Op{
		Kind:             KindCreateContainer,
		Client:           client,
		Node:             node,
		ContainerName:    name,
		Image:            eb.Image,
		Bundle:           eb,
		ScriptCommand:    command,
		ScriptEntrypoint: entrypoint,
		ScriptMountPath:  scriptMount,
		RemoveBefore:     opts.RemoveExistingBefore,
	}
	var ops []Op
	if opts.RemoveExistingBefore {
		ops = append(ops, Op{Kind: KindRemove, Client: client, Node: node, ContainerName: name})
	}
	ops = append(ops,
		createOp,
		Op{Kind: KindStart, Client: client, Node: node, ContainerName: name},
		Op{Kind: KindWait, Client: client, Node: node, ContainerName: name, Timeout: opts.WaitTimeout},
		Op{Kind: KindLogs, Client: client, Node: node, ContainerName: name},
		Op{Kind: KindRemove, Client: client, Node: node, ContainerName: name, RemoveAfter: true},
	)
	return ops, nil
}

func driverOf(net *model.NetworkConfig) string {
	if net == nil {
		return ""
	}
	return net.Driver
}

func containerName(m *model.Map, n depgraph.Node) string {
	return names.ContainerName(m.Name, n.Config, n.Instance)
}

func createContainerOp(r *state.Resolved, n depgraph.Node, client string, depName DepNamer, opts Options) (Op, error) {
	eb, err := assemble(r, n, depName, opts)
	if err != nil {
		return Op{}, err
	}
	return Op{
		Kind:          KindCreateContainer,
		Client:        client,
		Node:          n,
		ContainerName: eb.Name,
		Image:         eb.Image,
		Bundle:        eb,
	}, nil
}

// createAttachedOps emits the one-step (or two-step) attached-volume
// creation: always a named-volume create, followed by a prepare-permissions
// op when the volume sets a user or permissions. No holder container is
// created, whatever the client's capability flags say.
func createAttachedOps(r *state.Resolved, n depgraph.Node, client string) []Op {
	holder := names.AttachedVolumeName(r.Map, "", n.Config)
	vol := r.Map.Volumes[n.Config]
	var image, userSpec, permSpec string
	if vol != nil {
		userSpec, _ = vol.User.Resolve()
		permSpec = vol.Permissions
	}
	if image == "" {
		image = "tianon/true"
	}
	ops := []Op{
		{
			Kind:          KindCreateVolume,
			Client:        client,
			Node:          n,
			ContainerName: holder,
			Image:         image,
			VolumeDriver:  driverOfVolume(vol),
			VolumeOptions: optionsOfVolume(vol),
		},
	}
	if userSpec != "" || permSpec != "" {
		path := "/"
		if vol != nil {
			if p, err := vol.DefaultPath.Resolve(); err == nil && p != "" {
				path = p
			}
		}
		ops = append(ops, Op{
			Kind:          KindPreparePermissions,
			Client:        client,
			Node:          n,
			ContainerName: holder,
			PreparePath:   path,
			PrepareUser:   userSpec,
			PrepareMode:   permSpec,
		})
	}
	return ops
}

func driverOfVolume(v *model.VolumeConfig) string {
	if v == nil {
		return ""
	}
	return v.Driver
}

func optionsOfVolume(v *model.VolumeConfig) map[string]string {
	if v == nil {
		return nil
	}
	return v.DriverOptions
}

// --- start/stop/remove ---------------------------------------------------

type startGen struct{}

func (startGen) Generate(r *state.Resolved, states []state.NodeState, client string, opts Options, depName DepNamer) ([]Op, error) {
	var ops []Op
	for _, s := range states {
		if s.Node.Kind != depgraph.KindContainer || s.Running {
			continue
		}
		ops = append(ops, Op{Kind: KindStart, Client: client, Node: s.Node, ContainerName: containerName(r.Map, s.Node)})
		execOps, err := execOpsFor(r, s, client, depName, opts, !s.Present)
		if err != nil {
			return nil, err
		}
		ops = append(ops, execOps...)
	}
	return ops, nil
}

// execOpsFor emits INITIAL execs on first start and RESTART execs whose
// ExecPresent entry is false.
func execOpsFor(r *state.Resolved, s state.NodeState, client string, depName DepNamer, opts Options, firstStart bool) ([]Op, error) {
	eb, err := assemble(r, s.Node, depName, opts)
	if err != nil {
		return nil, err
	}
	var ops []Op
	for i, spec := range eb.ExecCommands {
		specCopy := spec
		switch spec.Policy {
		case model.ExecInitial:
			if !firstStart {
				continue
			}
		case model.ExecRestart:
			id := fmt.Sprintf("%d", i)
			if present, ok := s.ExecPresent[id]; ok && present {
				continue
			}
		}
		ops = append(ops, Op{
			Kind:          KindExec,
			Client:        client,
			Node:          s.Node,
			ContainerName: containerName(r.Map, s.Node),
			Exec:          &specCopy,
		})
	}
	return ops, nil
}

type stopGen struct{}

func (stopGen) Generate(r *state.Resolved, states []state.NodeState, client string, opts Options, depName DepNamer) ([]Op, error) {
	var ops []Op
	for _, s := range states {
		if s.Node.Kind != depgraph.KindContainer || !s.Running {
			continue
		}
		cfg := r.Effective[s.Node.Config]
		timeout, has := stopTimeout(cfg)
		op := Op{Kind: KindStop, Client: client, Node: s.Node, ContainerName: containerName(r.Map, s.Node)}
		if has {
			op.Timeout = time.Duration(timeout) * time.Second
		} else {
			op.Timeout = defaultStopTimeout
		}
		if cfg != nil {
			op.Signal = cfg.StopSignal
		}
		ops = append(ops, op)
	}
	return ops, nil
}

type removeGen struct{}

func (removeGen) Generate(r *state.Resolved, states []state.NodeState, client string, opts Options, depName DepNamer) ([]Op, error) {
	var ops []Op
	for _, s := range states {
		if !s.Present {
			continue
		}
		cfg := r.Effective[s.Node.Config]
		if s.Node.Kind == depgraph.KindContainer && cfg != nil && cfg.Persistent && !opts.RemovePersistent {
			continue
		}
		if s.Node.Kind == depgraph.KindAttached && !opts.RemoveAttached {
			continue
		}
		if s.Node.Kind == depgraph.KindNetwork {
			continue // networks are left in place
		}
		name := containerName(r.Map, s.Node)
		if s.Node.Kind != depgraph.KindContainer {
			name = names.AttachedVolumeName(r.Map, "", s.Node.Config)
		}
		if s.Node.Kind == depgraph.KindContainer && s.Running {
			ops = append(ops, Op{Kind: KindStop, Client: client, Node: s.Node, ContainerName: name, Timeout: defaultStopTimeout})
		}
		kind := KindRemove
		if s.Node.Kind == depgraph.KindAttached {
			kind = KindRemoveVolume
		}
		ops = append(ops, Op{Kind: kind, Client: client, Node: s.Node, ContainerName: name, NetworkName: s.Node.Config})
	}
	return ops, nil
}

// --- restart --------------------------------------------------------------

type restartGen struct{}

func (restartGen) Generate(r *state.Resolved, states []state.NodeState, client string, opts Options, depName DepNamer) ([]Op, error) {
	stopOps, err := (stopGen{}).Generate(r, states, client, opts, depName)
	if err != nil {
		return nil, err
	}
	// Once the stop ops have run nothing is running, so start is built from
	// a copy that reports every container stopped.
	stopped := make([]state.NodeState, len(states))
	copy(stopped, states)
	for i := range stopped {
		stopped[i].Running = false
	}
	startOps, err := (startGen{}).Generate(r, stopped, client, opts, depName)
	if err != nil {
		return nil, err
	}
	return append(stopOps, startOps...), nil
}

// --- startup / shutdown -----------------------------------------------

type startupGen struct{}

// Generate builds startup's create-then-start sequence (spec §4.5). A
// present container whose last exit code is nonrecoverable is removed and
// recreated first, exactly as update does, rather than simply (re)started
// in its stale state: the adjusted copy reports it absent so createGen and
// startGen build its create+start ops the normal way.
func (startupGen) Generate(r *state.Resolved, states []state.NodeState, client string, opts Options, depName DepNamer) ([]Op, error) {
	var ops []Op
	adjusted := make([]state.NodeState, len(states))
	copy(adjusted, states)
	for i, s := range adjusted {
		if s.Node.Kind != depgraph.KindContainer || !s.ExitNonrecoverable {
			continue
		}
		ops = append(ops, Op{Kind: KindRemove, Client: client, Node: s.Node, ContainerName: containerName(r.Map, s.Node)})
		adjusted[i].Present = false
		adjusted[i].Running = false
	}

	createOps, err := (createGen{}).Generate(r, adjusted, client, opts, depName)
	if err != nil {
		return nil, err
	}
	ops = append(ops, createOps...)

	startOps, err := (startGen{}).Generate(r, adjusted, client, opts, depName)
	if err != nil {
		return nil, err
	}
	ops = append(ops, startOps...)

	ops = append(ops, restartParentsOfMissingAttached(r, states, client)...)
	return ops, nil
}

// restartParentsOfMissingAttached implements spec §4.5's "if an attached
// volume is missing, restart the container(s) that attach it": the holder
// gets (re)created by createGen above, but a container that was already
// running before startup won't remount it on its own, so it needs a
// stop+start to pick the holder back up.
func restartParentsOfMissingAttached(r *state.Resolved, states []state.NodeState, client string) []Op {
	missing := map[string]bool{}
	for _, s := range states {
		if s.Node.Kind == depgraph.KindAttached && !s.Present {
			missing[s.Node.Config] = true
		}
	}
	if len(missing) == 0 {
		return nil
	}
	byConfig := make(map[string]state.NodeState, len(states))
	for _, s := range states {
		if s.Node.Kind == depgraph.KindContainer {
			byConfig[s.Node.Config] = s
		}
	}
	var ops []Op
	for configName, cfg := range r.Effective {
		attachesMissing := false
		for _, a := range cfg.Attaches {
			if missing[a.Alias] {
				attachesMissing = true
				break
			}
		}
		if !attachesMissing {
			continue
		}
		s, ok := byConfig[configName]
		if !ok || !s.Present || !s.Running {
			continue
		}
		name := containerName(r.Map, s.Node)
		ops = append(ops,
			Op{Kind: KindStop, Client: client, Node: s.Node, ContainerName: name, Timeout: defaultStopTimeout},
			Op{Kind: KindStart, Client: client, Node: s.Node, ContainerName: name},
		)
	}
	return ops
}

type shutdownGen struct{}

func (shutdownGen) Generate(r *state.Resolved, states []state.NodeState, client string, opts Options, depName DepNamer) ([]Op, error) {
	return (removeGen{}).Generate(r, states, client, opts, depName)
}

// --- update -----------------------------------------------------------

type updateGen struct{}

func (updateGen) Generate(r *state.Resolved, states []state.NodeState, client string, opts Options, depName DepNamer) ([]Op, error) {
	var ops []Op
	for _, s := range states {
		if s.Node.Kind != depgraph.KindContainer {
			continue
		}
		cfg := r.Effective[s.Node.Config]
		if cfg != nil && cfg.Persistent && !opts.UpdatePersistent {
			continue
		}
		if !s.Present {
			op, err := createContainerOp(r, s.Node, client, depName, opts)
			if err != nil {
				return nil, err
			}
			ops = append(ops, op, Op{Kind: KindStart, Client: client, Node: s.Node, ContainerName: op.ContainerName})
			continue
		}

		needsRecreate := !s.ImageMatches || !s.LinksMatch || !s.VolumesMatch || !s.EnvMatches ||
			!s.CmdMatches || !s.EntrypointMatches || !s.ExposesMatch || !s.NetworksMatch

		// Open Question resolution: force_update always recreates,
		// regardless of skip_limit_reset.
		if s.ForceUpdate {
			needsRecreate = true
		}

		// spec §4.4/§8: a nonrecoverable exit code always forces a recreate,
		// even when every other match check passes.
		if s.ExitNonrecoverable {
			needsRecreate = true
		}

		onlyLimitsDrift := !needsRecreate && !s.LimitsMatch

		name := containerName(r.Map, s.Node)
		if needsRecreate {
			if s.Running {
				ops = append(ops, Op{Kind: KindStop, Client: client, Node: s.Node, ContainerName: name, Timeout: defaultStopTimeout})
			}
			ops = append(ops, Op{Kind: KindRemove, Client: client, Node: s.Node, ContainerName: name})
			op, err := createContainerOp(r, s.Node, client, depName, opts)
			if err != nil {
				return nil, err
			}
			ops = append(ops, op, Op{Kind: KindStart, Client: client, Node: s.Node, ContainerName: op.ContainerName})
			continue
		}

		if onlyLimitsDrift && !opts.SkipLimitReset {
			eb, err := assemble(r, s.Node, depName, opts)
			if err != nil {
				return nil, err
			}
			limits := eb.Limits
			ops = append(ops, Op{Kind: KindUpdateHostConfig, Client: client, Node: s.Node, ContainerName: name, LimitsPatch: &limits})
		}

		execOps, err := execOpsFor(r, s, client, depName, opts, false)
		if err != nil {
			return nil, err
		}
		ops = append(ops, execOps...)
	}
	return ops, nil
}
