package model

import "fmt"

// Clean converts the "loose" input shapes documented in spec §4.1 into the
// canonical record types. Each function is idempotent: Clean(Clean(x)) ==
// Clean(x), since a canonical record passed back in is returned unchanged.

// CleanStringList widens a single scalar into a one-element list, otherwise
// passes a list through unchanged.
func CleanStringList(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("clean: expected string in list, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("clean: cannot widen %T into a string list", raw)
	}
}

// CleanBind widens a single string ("alias" or "alias:ro"), a two-element
// tuple ([alias, readonly]), or a map into a BindSpec.
func CleanBind(raw any) (BindSpec, error) {
	switch v := raw.(type) {
	case BindSpec:
		return v, nil
	case string:
		alias, ro := splitReadOnlySuffix(v)
		return BindSpec{Alias: alias, ReadOnly: ro}, nil
	case []any:
		if len(v) != 2 {
			return BindSpec{}, fmt.Errorf("clean: bind tuple must have 2 elements, got %d", len(v))
		}
		alias, ok := v[0].(string)
		if !ok {
			return BindSpec{}, fmt.Errorf("clean: bind tuple[0] must be a string")
		}
		ro, _ := v[1].(bool)
		return BindSpec{Alias: alias, ReadOnly: ro}, nil
	case map[string]any:
		spec := BindSpec{}
		if a, ok := v["alias"].(string); ok {
			spec.Alias = a
		}
		if cp, ok := v["container_path"].(string); ok {
			spec.ContainerPath = cp
		}
		if hp, ok := v["host_path"].(string); ok {
			spec.HostPath = Const(hp)
		}
		if ro, ok := v["readonly"].(bool); ok {
			spec.ReadOnly = ro
		}
		return spec, nil
	default:
		return BindSpec{}, fmt.Errorf("clean: cannot widen %T into a BindSpec", raw)
	}
}

func splitReadOnlySuffix(s string) (alias string, readOnly bool) {
	const suffix = ":ro"
	if len(s) > len(suffix) && s[len(s)-len(suffix):] == suffix {
		return s[:len(s)-len(suffix)], true
	}
	return s, false
}

// CleanLink widens a single string, a two-element tuple [container, alias],
// or a map into a LinkSpec. A zero-value alias means "default to the
// target container's name".
func CleanLink(raw any) (LinkSpec, error) {
	switch v := raw.(type) {
	case LinkSpec:
		return v, nil
	case string:
		return LinkSpec{Container: v}, nil
	case []any:
		if len(v) != 2 {
			return LinkSpec{}, fmt.Errorf("clean: link tuple must have 2 elements, got %d", len(v))
		}
		container, ok := v[0].(string)
		if !ok {
			return LinkSpec{}, fmt.Errorf("clean: link tuple[0] must be a string")
		}
		alias, _ := v[1].(string)
		return LinkSpec{Container: container, Alias: alias}, nil
	case map[string]any:
		spec := LinkSpec{}
		if c, ok := v["container"].(string); ok {
			spec.Container = c
		}
		if a, ok := v["alias"].(string); ok {
			spec.Alias = a
		}
		return spec, nil
	default:
		return LinkSpec{}, fmt.Errorf("clean: cannot widen %T into a LinkSpec", raw)
	}
}

// CleanHostVolume widens a single string (shared across all instances) or a
// mapping of instance label -> path string into a HostVolumeConfig.
func CleanHostVolume(raw any) (*HostVolumeConfig, error) {
	switch v := raw.(type) {
	case *HostVolumeConfig:
		return v, nil
	case string:
		return &HostVolumeConfig{Single: Const(v), HasSingle: true}, nil
	case map[string]any:
		cfg := &HostVolumeConfig{PerInstance: make(map[string]Value[string], len(v))}
		for inst, path := range v {
			s, ok := path.(string)
			if !ok {
				return nil, fmt.Errorf("clean: host volume instance %q must be a string path", inst)
			}
			cfg.PerInstance[inst] = Const(s)
		}
		return cfg, nil
	default:
		return nil, fmt.Errorf("clean: cannot widen %T into a HostVolumeConfig", raw)
	}
}

// CleanExec widens a string or string-list command, or a map with
// command/user/policy keys, into an ExecSpec.
func CleanExec(raw any) (ExecSpec, error) {
	switch v := raw.(type) {
	case ExecSpec:
		return v, nil
	case string:
		return ExecSpec{Command: Const([]string{v}), Policy: ExecRestart}, nil
	case []any:
		cmd, err := CleanStringList(v)
		if err != nil {
			return ExecSpec{}, err
		}
		return ExecSpec{Command: Const(cmd), Policy: ExecRestart}, nil
	case map[string]any:
		spec := ExecSpec{Policy: ExecRestart}
		switch c := v["command"].(type) {
		case string:
			spec.Command = Const([]string{c})
		case []any:
			cmd, err := CleanStringList(c)
			if err != nil {
				return ExecSpec{}, err
			}
			spec.Command = Const(cmd)
		}
		if u, ok := v["user"].(string); ok {
			spec.User = Const(u)
		}
		if p, ok := v["policy"].(string); ok {
			switch ExecPolicy(p) {
			case ExecRestart, ExecInitial:
				spec.Policy = ExecPolicy(p)
			default:
				return ExecSpec{}, fmt.Errorf("clean: unknown exec policy %q", p)
			}
		}
		return spec, nil
	default:
		return ExecSpec{}, fmt.Errorf("clean: cannot widen %T into an ExecSpec", raw)
	}
}

// CleanEndpoint widens a single network-name string or a map into an
// EndpointSpec.
func CleanEndpoint(raw any) (EndpointSpec, error) {
	switch v := raw.(type) {
	case EndpointSpec:
		return v, nil
	case string:
		return EndpointSpec{Network: v}, nil
	case map[string]any:
		spec := EndpointSpec{}
		if n, ok := v["network"].(string); ok {
			spec.Network = n
		}
		if aliases, ok := v["aliases"]; ok {
			al, err := CleanStringList(aliases)
			if err != nil {
				return EndpointSpec{}, err
			}
			spec.Aliases = al
		}
		if links, ok := v["links"]; ok {
			l, err := CleanStringList(links)
			if err != nil {
				return EndpointSpec{}, err
			}
			spec.Links = l
		}
		if ip4, ok := v["ipv4"].(string); ok {
			spec.IPv4 = ip4
		}
		if ip6, ok := v["ipv6"].(string); ok {
			spec.IPv6 = ip6
		}
		return spec, nil
	default:
		return EndpointSpec{}, fmt.Errorf("clean: cannot widen %T into an EndpointSpec", raw)
	}
}
