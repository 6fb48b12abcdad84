package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cntrland/landscaper/internal/engineerr"
)

// LoadMap parses a single container-landscape YAML document into a Map,
// cleaning every loosely-shaped field (the same string/tuple/dict widenings
// CleanBind/CleanLink/... accept) into its canonical record, then running
// the extends-merge and integrity-check passes. The raw document is decoded
// into map[string]any/[]any first, matching the teacher's own preference for
// a permissive decode-then-validate pass (see internal/validation) over
// struct tags that would reject the shorthand forms spec §4.1 documents.
func LoadMap(name string, data []byte) (*Map, map[string]*ContainerConfig, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("parsing map %s: %w", name, err)
	}

	m := &Map{
		Name:       name,
		Containers: make(map[string]*ContainerConfig),
		Volumes:    make(map[string]*VolumeConfig),
		Host:       make(map[string]*HostVolumeConfig),
		Networks:   make(map[string]*NetworkConfig),
		Groups:     make(map[string][]string),
	}

	if v, ok := raw["repository"].(string); ok {
		m.Repository = v
	}
	if v, ok := raw["default_tag"].(string); ok {
		m.DefaultTag = v
	}
	if v, ok := raw["default_domain"].(string); ok {
		m.DefaultDomain = v
	}
	if v, ok := raw["set_hostname"].(bool); ok {
		m.SetHostname = v
	}
	if v, ok := raw["use_attached_parent_name"].(bool); ok {
		m.UseAttachedParentName = v
	}
	if v, ok := raw["host_root"].(string); ok {
		m.HostRoot = Const(v)
	}
	if v, ok := raw["clients"]; ok {
		clients, err := CleanStringList(v)
		if err != nil {
			return nil, nil, &engineerr.ConfigurationError{Map: name, Reason: "clients: " + err.Error()}
		}
		m.Clients = clients
	}

	if err := loadHost(m, raw); err != nil {
		return nil, nil, err
	}
	if err := loadVolumes(m, raw); err != nil {
		return nil, nil, err
	}
	if err := loadNetworks(m, raw); err != nil {
		return nil, nil, err
	}
	if err := loadGroups(m, raw); err != nil {
		return nil, nil, err
	}
	if err := loadContainers(m, raw); err != nil {
		return nil, nil, err
	}

	effective, err := ExpandExtends(m)
	if err != nil {
		return nil, nil, err
	}
	if err := CheckIntegrity(m, effective); err != nil {
		return nil, nil, err
	}
	return m, effective, nil
}

func loadHost(m *Map, raw map[string]any) error {
	section, ok := raw["host"].(map[string]any)
	if !ok {
		return nil
	}
	for alias, v := range section {
		cfg, err := CleanHostVolume(v)
		if err != nil {
			return &engineerr.ConfigurationError{Map: m.Name, Config: alias, Reason: "host: " + err.Error()}
		}
		m.Host[alias] = cfg
	}
	return nil
}

func loadVolumes(m *Map, raw map[string]any) error {
	section, ok := raw["volumes"].(map[string]any)
	if !ok {
		return nil
	}
	for alias, v := range section {
		dict, ok := v.(map[string]any)
		if !ok {
			return &engineerr.ConfigurationError{Map: m.Name, Config: alias, Reason: "volumes entry must be a map"}
		}
		cfg := &VolumeConfig{Name: alias}
		if p, ok := dict["path"].(string); ok {
			cfg.DefaultPath = Const(p)
		}
		if d, ok := dict["driver"].(string); ok {
			cfg.Driver = d
		}
		if opts, ok := dict["driver_options"].(map[string]any); ok {
			cfg.DriverOptions = stringMap(opts)
		}
		if u, ok := dict["user"].(string); ok {
			cfg.User = Const(u)
		}
		if p, ok := dict["permissions"].(string); ok {
			cfg.Permissions = p
		}
		if co, ok := dict["create_options"].(map[string]any); ok {
			cfg.CreateOptions = Const(co)
		}
		m.Volumes[alias] = cfg
	}
	return nil
}

func loadNetworks(m *Map, raw map[string]any) error {
	section, ok := raw["networks"].(map[string]any)
	if !ok {
		return nil
	}
	for name, v := range section {
		dict, ok := v.(map[string]any)
		if !ok {
			return &engineerr.ConfigurationError{Map: m.Name, Config: name, Reason: "networks entry must be a map"}
		}
		cfg := &NetworkConfig{Name: name}
		if d, ok := dict["driver"].(string); ok {
			cfg.Driver = d
		}
		if opts, ok := dict["driver_options"].(map[string]any); ok {
			cfg.DriverOptions = stringMap(opts)
		}
		if in, ok := dict["internal"].(bool); ok {
			cfg.Internal = in
		}
		if co, ok := dict["create_options"].(map[string]any); ok {
			cfg.CreateOptions = Const(co)
		}
		m.Networks[name] = cfg
	}
	return nil
}

func loadGroups(m *Map, raw map[string]any) error {
	section, ok := raw["groups"].(map[string]any)
	if !ok {
		return nil
	}
	for name, v := range section {
		members, err := CleanStringList(v)
		if err != nil {
			return &engineerr.ConfigurationError{Map: m.Name, Config: name, Reason: "groups: " + err.Error()}
		}
		m.Groups[name] = members
	}
	return nil
}

func loadContainers(m *Map, raw map[string]any) error {
	section, ok := raw["containers"].(map[string]any)
	if !ok {
		return nil
	}
	for name, v := range section {
		dict, ok := v.(map[string]any)
		if !ok {
			return &engineerr.ConfigurationError{Map: m.Name, Config: name, Reason: "containers entry must be a map"}
		}
		cfg, err := loadContainerConfig(m.Name, name, dict)
		if err != nil {
			return err
		}
		m.Containers[name] = cfg
	}
	return nil
}

func loadContainerConfig(mapName, name string, dict map[string]any) (*ContainerConfig, error) {
	cfg := &ContainerConfig{Name: name}

	if v, ok := dict["abstract"].(bool); ok {
		cfg.Abstract = v
	}
	if v, ok := dict["extends"]; ok {
		ex, err := CleanStringList(v)
		if err != nil {
			return nil, &engineerr.ConfigurationError{Map: mapName, Config: name, Reason: "extends: " + err.Error()}
		}
		cfg.Extends = ex
	}
	if v, ok := dict["image"].(string); ok {
		cfg.Image = v
	}
	if v, ok := dict["instances"]; ok {
		inst, err := CleanStringList(v)
		if err != nil {
			return nil, &engineerr.ConfigurationError{Map: mapName, Config: name, Reason: "instances: " + err.Error()}
		}
		cfg.Instances = inst
	}
	if v, ok := dict["clients"]; ok {
		cl, err := CleanStringList(v)
		if err != nil {
			return nil, &engineerr.ConfigurationError{Map: mapName, Config: name, Reason: "clients: " + err.Error()}
		}
		cfg.Clients = cl
	}
	if v, ok := dict["shares"]; ok {
		shares, err := CleanStringList(v)
		if err != nil {
			return nil, &engineerr.ConfigurationError{Map: mapName, Config: name, Reason: "shares: " + err.Error()}
		}
		for _, s := range shares {
			cfg.Shares = append(cfg.Shares, Const(s))
		}
	}
	if v, ok := dict["binds"].([]any); ok {
		for _, item := range v {
			b, err := CleanBind(item)
			if err != nil {
				return nil, &engineerr.ConfigurationError{Map: mapName, Config: name, Reason: "binds: " + err.Error()}
			}
			cfg.Binds = append(cfg.Binds, b)
		}
	}
	if v, ok := dict["uses"]; ok {
		uses, err := CleanStringList(v)
		if err != nil {
			return nil, &engineerr.ConfigurationError{Map: mapName, Config: name, Reason: "uses: " + err.Error()}
		}
		for _, u := range uses {
			cfg.Uses = append(cfg.Uses, UseSpec{Target: u})
		}
	}
	if v, ok := dict["attaches"]; ok {
		aliases, err := CleanStringList(v)
		if err != nil {
			return nil, &engineerr.ConfigurationError{Map: mapName, Config: name, Reason: "attaches: " + err.Error()}
		}
		for _, a := range aliases {
			cfg.Attaches = append(cfg.Attaches, AttachSpec{Alias: a})
		}
	}
	if v, ok := dict["links"].([]any); ok {
		for _, item := range v {
			l, err := CleanLink(item)
			if err != nil {
				return nil, &engineerr.ConfigurationError{Map: mapName, Config: name, Reason: "links: " + err.Error()}
			}
			cfg.Links = append(cfg.Links, l)
		}
	}
	if v, ok := dict["exposes"]; ok {
		exposes, err := loadExposes(v)
		if err != nil {
			return nil, &engineerr.ConfigurationError{Map: mapName, Config: name, Reason: "exposes: " + err.Error()}
		}
		cfg.Exposes = exposes
	}
	if v, ok := dict["networks"].([]any); ok {
		for _, item := range v {
			ep, err := CleanEndpoint(item)
			if err != nil {
				return nil, &engineerr.ConfigurationError{Map: mapName, Config: name, Reason: "networks: " + err.Error()}
			}
			cfg.Networks = append(cfg.Networks, ep)
		}
	}
	if v, ok := dict["network_mode"].(string); ok {
		cfg.NetworkMode = v
	}
	if v, ok := dict["exec_commands"].([]any); ok {
		for _, item := range v {
			e, err := CleanExec(item)
			if err != nil {
				return nil, &engineerr.ConfigurationError{Map: mapName, Config: name, Reason: "exec_commands: " + err.Error()}
			}
			cfg.ExecCommands = append(cfg.ExecCommands, e)
		}
	}
	if v, ok := dict["healthcheck"].(map[string]any); ok {
		cfg.Healthcheck = loadHealthcheck(v)
	}
	if v, ok := dict["user"].(string); ok {
		cfg.User = Const(v)
	}
	if v, ok := dict["permissions"].(string); ok {
		cfg.Permissions = v
	}
	if v, ok := dict["stop_timeout"].(int); ok {
		d := time.Duration(v) * time.Second
		cfg.StopTimeout = &d
	}
	if v, ok := dict["stop_signal"].(string); ok {
		cfg.StopSignal = v
	}
	if v, ok := dict["persistent"].(bool); ok {
		cfg.Persistent = v
	}
	if v, ok := dict["create_options"].(map[string]any); ok {
		cfg.CreateOptions = Const(v)
	}
	if v, ok := dict["host_config"].(map[string]any); ok {
		cfg.HostConfig = Const(v)
	}
	return cfg, nil
}

func loadExposes(raw any) ([]PortSpec, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list")
	}
	out := make([]PortSpec, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case int:
			out = append(out, PortSpec{ContainerPort: v, Protocol: "tcp"})
		case string:
			p, err := parsePortSpec(v)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		case map[string]any:
			p := PortSpec{Protocol: "tcp"}
			if cp, ok := v["container_port"].(int); ok {
				p.ContainerPort = cp
			}
			if hp, ok := v["host_port"].(int); ok {
				p.HostPort = Const(hp)
				p.HasHostPort = true
			}
			if ia, ok := v["interface"].(string); ok {
				p.InterfaceAlias = ia
			}
			if proto, ok := v["protocol"].(string); ok {
				p.Protocol = proto
			}
			if v6, ok := v["ipv6"].(bool); ok {
				p.IPv6 = v6
			}
			out = append(out, p)
		default:
			return nil, fmt.Errorf("cannot widen %T into a port spec", item)
		}
	}
	return out, nil
}

// parsePortSpec parses the "container_port[/protocol]:host_port" and
// "container_port[/protocol]" shorthand forms spec §4.1 documents for
// container-port exposure.
func parsePortSpec(s string) (PortSpec, error) {
	p := PortSpec{Protocol: "tcp"}
	containerPart := s
	if i := strings.IndexByte(s, ':'); i >= 0 {
		containerPart = s[:i]
		hostPort, err := strconv.Atoi(s[i+1:])
		if err != nil {
			return PortSpec{}, fmt.Errorf("invalid host port in %q: %w", s, err)
		}
		p.HostPort = Const(hostPort)
		p.HasHostPort = true
	}
	if i := strings.IndexByte(containerPart, '/'); i >= 0 {
		p.Protocol = containerPart[i+1:]
		containerPart = containerPart[:i]
	}
	cp, err := strconv.Atoi(containerPart)
	if err != nil {
		return PortSpec{}, fmt.Errorf("invalid container port in %q: %w", s, err)
	}
	p.ContainerPort = cp
	return p, nil
}

func loadHealthcheck(dict map[string]any) *Healthcheck {
	hc := &Healthcheck{}
	if v, ok := dict["test"]; ok {
		test, _ := CleanStringList(v)
		hc.Test = test
	}
	if v, ok := dict["interval"].(int); ok {
		hc.Interval = time.Duration(v) * time.Second
	}
	if v, ok := dict["timeout"].(int); ok {
		hc.Timeout = time.Duration(v) * time.Second
	}
	if v, ok := dict["retries"].(int); ok {
		hc.Retries = v
	}
	if v, ok := dict["start_period"].(int); ok {
		hc.StartPeriod = time.Duration(v) * time.Second
	}
	return hc
}

func stringMap(raw map[string]any) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

