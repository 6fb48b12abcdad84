package model

import (
	"strings"

	"github.com/cntrland/landscaper/internal/engineerr"
)

// CheckIntegrity verifies, after extends has been expanded, that every
// alias reference resolves and that every uses/links/network_mode/networks
// target is a known configuration, volume alias, host alias, or network —
// or an explicit escape-hatch ("/<id>" or "container:<id>"). It returns a
// MapIntegrityError naming the first violation found.
func CheckIntegrity(m *Map, effective map[string]*ContainerConfig) error {
	for name, cfg := range effective {
		if cfg.Abstract {
			continue
		}
		if err := checkBinds(m, name, cfg); err != nil {
			return err
		}
		if err := checkUses(m, name, cfg, effective); err != nil {
			return err
		}
		if err := checkLinks(m, name, cfg, effective); err != nil {
			return err
		}
		if err := checkAttaches(m, name, cfg); err != nil {
			return err
		}
		if err := checkNetworkMode(m, name, cfg, effective); err != nil {
			return err
		}
		if err := checkNetworks(m, name, cfg); err != nil {
			return err
		}
	}
	return nil
}

func checkBinds(m *Map, name string, cfg *ContainerConfig) error {
	for _, b := range cfg.Binds {
		if b.Alias == "" {
			continue // literal host_path, nothing to resolve
		}
		if _, ok := m.Host[b.Alias]; ok {
			continue
		}
		return &engineerr.MapIntegrityError{Map: m.Name, Config: name, Field: "binds", Target: b.Alias}
	}
	return nil
}

// checkLinks accepts a link to a configuration, to "<config>.<instance>",
// or to an escape-hatch target.
func checkLinks(m *Map, name string, cfg *ContainerConfig, effective map[string]*ContainerConfig) error {
	for _, l := range cfg.Links {
		target := l.Container
		if strings.HasPrefix(target, "/") || strings.HasPrefix(target, "container:") {
			continue
		}
		if _, ok := effective[target]; ok {
			continue
		}
		if i := strings.LastIndex(target, "."); i >= 0 {
			if _, ok := effective[target[:i]]; ok {
				continue
			}
		}
		return &engineerr.MapIntegrityError{Map: m.Name, Config: name, Field: "links", Target: target}
	}
	return nil
}

func checkAttaches(m *Map, name string, cfg *ContainerConfig) error {
	for _, a := range cfg.Attaches {
		if _, ok := m.Volumes[a.Alias]; ok {
			continue
		}
		return &engineerr.MapIntegrityError{Map: m.Name, Config: name, Field: "attaches", Target: a.Alias}
	}
	return nil
}

func checkUses(m *Map, name string, cfg *ContainerConfig, effective map[string]*ContainerConfig) error {
	for _, u := range cfg.Uses {
		target := u.Target
		if strings.HasPrefix(target, "parent.") {
			// "parent.<alias>": integrity only confirms the alias exists
			// somewhere on the map. No later stage resolves it to an owning
			// config: the dependency graph adds no edge for it and the
			// dependency namer yields no name for it.
			alias := strings.TrimPrefix(target, "parent.")
			if _, ok := m.Volumes[alias]; ok {
				continue
			}
			return &engineerr.MapIntegrityError{Map: m.Name, Config: name, Field: "uses", Target: target}
		}
		if _, ok := effective[target]; ok {
			continue
		}
		if _, ok := m.Volumes[target]; ok {
			continue
		}
		return &engineerr.MapIntegrityError{Map: m.Name, Config: name, Field: "uses", Target: target}
	}
	return nil
}

func checkNetworks(m *Map, name string, cfg *ContainerConfig) error {
	for _, ep := range cfg.Networks {
		if _, ok := m.Networks[ep.Network]; ok {
			continue
		}
		return &engineerr.MapIntegrityError{Map: m.Name, Config: name, Field: "networks", Target: ep.Network}
	}
	return nil
}

// checkNetworkMode validates network_mode. A "<config>.<instance>" target
// names one container explicitly; a bare "<config>" target is only accepted
// when that config has at most one instance, since otherwise it names no
// single container.
func checkNetworkMode(m *Map, name string, cfg *ContainerConfig, effective map[string]*ContainerConfig) error {
	mode := cfg.NetworkMode
	if mode == "" {
		return nil
	}
	switch mode {
	case "bridge", "host", "none", "disabled":
		return nil
	}
	if strings.HasPrefix(mode, "/") || strings.HasPrefix(mode, "container:") {
		return nil
	}
	if i := strings.LastIndex(mode, "."); i >= 0 {
		if _, ok := effective[mode[:i]]; ok {
			// an instance label was given; nothing further to check here.
			return nil
		}
	}
	if target, ok := effective[mode]; ok {
		if len(target.Instances) > 1 {
			return &engineerr.MapIntegrityError{Map: m.Name, Config: name, Field: "network_mode", Target: mode}
		}
		return nil
	}
	return &engineerr.MapIntegrityError{Map: m.Name, Config: name, Field: "network_mode", Target: mode}
}
