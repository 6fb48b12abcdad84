package model

import (
	"fmt"

	"github.com/cntrland/landscaper/internal/engineerr"
)

// mergeState memoizes already-resolved effective configs and tracks the
// extends chain currently being expanded, so cycles are caught instead of
// recursing forever.
type mergeState struct {
	mapName   string
	configs   map[string]*ContainerConfig
	resolved  map[string]*ContainerConfig
	visiting  map[string]bool
	order     []string
}

// ExpandExtends computes the effective (fully merged) ContainerConfig for
// every config on the map, folding each extends chain left to right and
// finally the config's own fields, per spec §4.1. The result is a new map
// of name -> effective config; the input configs are never mutated.
func ExpandExtends(m *Map) (map[string]*ContainerConfig, error) {
	st := &mergeState{
		mapName:  m.Name,
		configs:  m.Containers,
		resolved: make(map[string]*ContainerConfig, len(m.Containers)),
		visiting: make(map[string]bool, len(m.Containers)),
	}
	for name := range m.Containers {
		if _, err := st.resolve(name); err != nil {
			return nil, err
		}
	}
	return st.resolved, nil
}

func (st *mergeState) resolve(name string) (*ContainerConfig, error) {
	if eff, ok := st.resolved[name]; ok {
		return eff, nil
	}
	if st.visiting[name] {
		return nil, &engineerr.ConfigurationError{
			Map: st.mapName, Config: name,
			Reason: "cycle in extends: " + name,
		}
	}
	cfg, ok := st.configs[name]
	if !ok {
		return nil, &engineerr.ConfigurationError{
			Map: st.mapName, Config: name,
			Reason: "extends references unknown configuration",
		}
	}
	st.visiting[name] = true
	defer delete(st.visiting, name)

	base := &ContainerConfig{Name: name}
	for _, parent := range cfg.Extends {
		parentEff, err := st.resolve(parent)
		if err != nil {
			return nil, err
		}
		base = mergeContainerConfig(base, parentEff)
	}
	eff := mergeContainerConfig(base, cfg)
	eff.Name = name
	eff.Abstract = cfg.Abstract
	eff.Extends = nil
	st.resolved[name] = eff
	return eff, nil
}

// mergeContainerConfig folds `overlay` onto `base` per the field-kind rules
// of spec §4.1: scalars are overwritten when set on overlay, list-of-scalars
// fields are unioned preserving first-occurrence order, list-of-records
// fields are merged by key with overlay values overriding, and dict fields
// are merged key-wise.
func mergeContainerConfig(base, overlay *ContainerConfig) *ContainerConfig {
	out := *base

	if overlay.Image != "" {
		out.Image = overlay.Image
	}
	if overlay.NetworkMode != "" {
		out.NetworkMode = overlay.NetworkMode
	}
	if overlay.Permissions != "" {
		out.Permissions = overlay.Permissions
	}
	if overlay.StopSignal != "" {
		out.StopSignal = overlay.StopSignal
	}
	if overlay.StopTimeout != nil {
		out.StopTimeout = overlay.StopTimeout
	}
	if overlay.Healthcheck != nil {
		out.Healthcheck = overlay.Healthcheck
	}
	if !overlay.User.IsZero() {
		out.User = overlay.User
	}
	if overlay.Persistent {
		out.Persistent = true
	}
	if !overlay.CreateOptions.IsZero() {
		out.CreateOptions = mergeOptionsValue(out.CreateOptions, overlay.CreateOptions)
	}
	if !overlay.HostConfig.IsZero() {
		out.HostConfig = mergeOptionsValue(out.HostConfig, overlay.HostConfig)
	}

	out.Instances = unionScalars(base.Instances, overlay.Instances)
	out.Clients = unionScalars(base.Clients, overlay.Clients)

	out.Shares = unionValueStrings(base.Shares, overlay.Shares)

	out.Binds = mergeBinds(base.Binds, overlay.Binds)
	out.Uses = mergeUses(base.Uses, overlay.Uses)
	out.Attaches = mergeAttaches(base.Attaches, overlay.Attaches)
	out.Links = mergeLinks(base.Links, overlay.Links)
	out.Exposes = mergeExposes(base.Exposes, overlay.Exposes)
	out.Networks = mergeEndpoints(base.Networks, overlay.Networks)
	out.ExecCommands = mergeExecs(base.ExecCommands, overlay.ExecCommands)

	return &out
}

// mergeOptionsValue key-wise merges two lazily-resolvable option dicts. The
// merge itself stays deferred: it returns a Lazy that resolves both sides
// and combines them only when (and if) something downstream asks for the
// merged map.
func mergeOptionsValue(base, overlay Value[map[string]any]) Value[map[string]any] {
	return Lazy(func() (map[string]any, error) {
		b, err := base.Resolve()
		if err != nil {
			return nil, err
		}
		o, err := overlay.Resolve()
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(b)+len(o))
		for k, v := range b {
			out[k] = v
		}
		for k, v := range o {
			out[k] = v
		}
		return out, nil
	})
}

func unionScalars(base, overlay []string) []string {
	seen := make(map[string]bool, len(base)+len(overlay))
	out := make([]string, 0, len(base)+len(overlay))
	for _, s := range base {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range overlay {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func unionValueStrings(base, overlay []Value[string]) []Value[string] {
	// Shares are deferred producers in general, so uniqueness is judged by
	// resolving constants only; lazy producers are always appended (the
	// set-union contract only applies to literal duplicate detection).
	seen := make(map[string]bool)
	out := make([]Value[string], 0, len(base)+len(overlay))
	add := func(v Value[string]) {
		if v.kind == kindConstant {
			if seen[v.val] {
				return
			}
			seen[v.val] = true
		}
		out = append(out, v)
	}
	for _, v := range base {
		add(v)
	}
	for _, v := range overlay {
		add(v)
	}
	return out
}

func mergeBinds(base, overlay []BindSpec) []BindSpec {
	idx := make(map[string]int, len(base))
	out := append([]BindSpec(nil), base...)
	for i, b := range out {
		idx[bindKey(b)] = i
	}
	for _, b := range overlay {
		key := bindKey(b)
		if i, ok := idx[key]; ok {
			out[i] = b
		} else {
			idx[key] = len(out)
			out = append(out, b)
		}
	}
	return out
}

func bindKey(b BindSpec) string {
	if b.ContainerPath != "" {
		return b.ContainerPath
	}
	return b.Alias
}

func mergeUses(base, overlay []UseSpec) []UseSpec {
	idx := make(map[string]int, len(base))
	out := append([]UseSpec(nil), base...)
	for i, u := range out {
		idx[u.Target] = i
	}
	for _, u := range overlay {
		if i, ok := idx[u.Target]; ok {
			out[i] = u
		} else {
			idx[u.Target] = len(out)
			out = append(out, u)
		}
	}
	return out
}

func mergeAttaches(base, overlay []AttachSpec) []AttachSpec {
	idx := make(map[string]int, len(base))
	out := append([]AttachSpec(nil), base...)
	for i, a := range out {
		idx[a.Alias] = i
	}
	for _, a := range overlay {
		if i, ok := idx[a.Alias]; ok {
			out[i] = a
		} else {
			idx[a.Alias] = len(out)
			out = append(out, a)
		}
	}
	return out
}

func mergeLinks(base, overlay []LinkSpec) []LinkSpec {
	idx := make(map[string]int, len(base))
	out := append([]LinkSpec(nil), base...)
	for i, l := range out {
		idx[l.Container] = i
	}
	for _, l := range overlay {
		if i, ok := idx[l.Container]; ok {
			out[i] = l
		} else {
			idx[l.Container] = len(out)
			out = append(out, l)
		}
	}
	return out
}

func mergeExposes(base, overlay []PortSpec) []PortSpec {
	key := func(p PortSpec) string {
		return fmt.Sprintf("%d/%s/%s", p.ContainerPort, p.Protocol, p.InterfaceAlias)
	}
	idx := make(map[string]int, len(base))
	out := append([]PortSpec(nil), base...)
	for i, p := range out {
		idx[key(p)] = i
	}
	for _, p := range overlay {
		k := key(p)
		if i, ok := idx[k]; ok {
			out[i] = p
		} else {
			idx[k] = len(out)
			out = append(out, p)
		}
	}
	return out
}

func mergeEndpoints(base, overlay []EndpointSpec) []EndpointSpec {
	idx := make(map[string]int, len(base))
	out := append([]EndpointSpec(nil), base...)
	for i, e := range out {
		idx[e.Network] = i
	}
	for _, e := range overlay {
		if i, ok := idx[e.Network]; ok {
			out[i] = e
		} else {
			idx[e.Network] = len(out)
			out = append(out, e)
		}
	}
	return out
}

func mergeExecs(base, overlay []ExecSpec) []ExecSpec {
	key := func(e ExecSpec) string {
		cmd, _ := e.Command.Resolve()
		u, _ := e.User.Resolve()
		return fmt.Sprintf("%v|%s", cmd, u)
	}
	idx := make(map[string]int, len(base))
	out := append([]ExecSpec(nil), base...)
	for i, e := range out {
		idx[key(e)] = i
	}
	for _, e := range overlay {
		k := key(e)
		if i, ok := idx[k]; ok {
			out[i] = e
		} else {
			idx[k] = len(out)
			out = append(out, e)
		}
	}
	return out
}
