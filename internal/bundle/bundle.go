// Package bundle implements the keyword-assembly rules of spec §4.5: for a
// single (map, config, instance) node, resolve the structured configuration
// plus its raw create_options/host_config dicts into one ExpectedBundle.
// The Action generator turns an ExpectedBundle into Docker API kwargs; the
// Update state generator compares an ExpectedBundle against a live
// container. Sharing one assembly path keeps "what we'd create" and "what
// we compare against" from drifting apart.
package bundle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cntrland/landscaper/internal/model"
	"github.com/cntrland/landscaper/internal/names"
)

// Limits mirrors the Docker host-config resource-limit fields the update
// match rules compare exactly.
type Limits struct {
	BlkioWeight       uint16
	CPUPeriod         int64
	CPUQuota          int64
	CPUShares         int64
	CpusetCpus        string
	CpusetMems        string
	Memory            int64
	MemoryReservation int64
	MemorySwap        int64
	KernelMemory      int64
	PidsLimit         int64 // 0 means unset; negative values mean unlimited
}

// BindMount is one resolved container<->host or container<->volume mount.
type BindMount struct {
	ContainerPath string
	HostPath      string // set for host binds
	VolumeName    string // set for attached/named-volume mounts
	ReadOnly      bool
}

// LinkRef is a resolved container link: Container is the fully-qualified
// dependency container name, Alias is the name it is reachable as.
type LinkRef struct {
	Container string
	Alias     string
}

// EndpointRef is a resolved network attachment.
type EndpointRef struct {
	Network string
	Aliases []string
	IPv4    string
	IPv6    string
}

// PortBinding is one resolved host<->container port mapping.
type PortBinding struct {
	ContainerPort int
	Protocol      string
	HostPort      int
	HasHostPort   bool
	HostIP        string
}

// ExpectedBundle is everything the engine expects a container to look like,
// resolved from the effective configuration for one node.
type ExpectedBundle struct {
	Name  string
	Image string

	Env        []string
	Cmd        []string
	Entrypoint []string
	User       string

	ExposedPorts []PortBinding
	Mounts       []BindMount
	VolumesFrom  []string
	Links        []LinkRef
	Networks     []EndpointRef

	NetworkMode string
	StopSignal  string
	StopTimeout *int // seconds

	Healthcheck *model.Healthcheck
	Limits      Limits

	// ExecCommands are carried through unresolved (policy + deferred
	// command/user) since they are evaluated by the action generator at
	// exec time, not at create time.
	ExecCommands []model.ExecSpec

	ForceUpdate bool
}

// AssembleOptions are the caller-supplied keyword arguments that take
// precedence over the configuration (spec §4.5 precedence rule 1).
type AssembleOptions struct {
	Env          map[string]string
	Cmd          []string
	Entrypoint   []string
	ExtraBinds   []BindMount
	ExtraVolumesFrom []string
}

// Assemble resolves one node's ExpectedBundle following the §4.5 precedence
// order: (1) caller kwargs, (2) create_options/host_config from the
// configuration, (3) fields derived from the structured configuration.
func Assemble(m *model.Map, cfg *model.ContainerConfig, instance string, depNamer func(useOrLink string) (string, bool), opts AssembleOptions) (*ExpectedBundle, error) {
	eb := &ExpectedBundle{
		Name:        names.ContainerName(m.Name, cfg.Name, instance),
		Image:       names.ResolveImage(cfg.Name, cfg.Image, m.Repository, m.DefaultTag),
		NetworkMode: cfg.NetworkMode,
		StopSignal:  cfg.StopSignal,
		Healthcheck: cfg.Healthcheck,
	}
	if cfg.StopTimeout != nil {
		secs := int(cfg.StopTimeout.Seconds())
		eb.StopTimeout = &secs
	}
	if user, err := cfg.User.Resolve(); err == nil && user != "" {
		eb.User = user
	} else if err != nil {
		return nil, fmt.Errorf("resolving user: %w", err)
	}

	// Layer 3: structured configuration.
	if err := applyShares(eb, cfg); err != nil {
		return nil, err
	}
	if err := applyBinds(eb, m, cfg, instance); err != nil {
		return nil, err
	}
	if err := applyUses(eb, cfg, depNamer); err != nil {
		return nil, err
	}
	applyLinks(eb, cfg, depNamer)
	if err := applyExposes(eb, cfg); err != nil {
		return nil, err
	}
	applyNetworks(eb, cfg)
	eb.ExecCommands = cfg.ExecCommands

	// Layer 2: create_options / host_config raw dicts.
	if err := applyOptionsDict(eb, cfg); err != nil {
		return nil, err
	}

	// Layer 1: caller-supplied kwargs, highest precedence.
	applyCallerOptions(eb, opts)

	sortBundle(eb)
	return eb, nil
}

func applyShares(eb *ExpectedBundle, cfg *model.ContainerConfig) error {
	for _, share := range cfg.Shares {
		p, err := share.Resolve()
		if err != nil {
			return fmt.Errorf("resolving share path: %w", err)
		}
		eb.Mounts = append(eb.Mounts, BindMount{ContainerPath: p})
	}
	return nil
}

func applyBinds(eb *ExpectedBundle, m *model.Map, cfg *model.ContainerConfig, instance string) error {
	for _, b := range cfg.Binds {
		mnt := BindMount{ContainerPath: b.ContainerPath, ReadOnly: b.ReadOnly}
		if b.Alias != "" {
			hv, ok := m.Host[b.Alias]
			if !ok {
				return fmt.Errorf("bind alias %q not found on map %s", b.Alias, m.Name)
			}
			path, err := ResolveHostPathInstance(hv, m, instance)
			if err != nil {
				return err
			}
			mnt.HostPath = path
		} else {
			p, err := b.HostPath.Resolve()
			if err != nil {
				return fmt.Errorf("resolving host path: %w", err)
			}
			mnt.HostPath = p
		}
		eb.Mounts = append(eb.Mounts, mnt)
	}
	return nil
}

// resolveHostPath resolves a HostVolumeConfig for the no-instance case only;
// applyBinds uses ResolveHostPathInstance, which also handles per-instance
// paths.
func resolveHostPath(hv *model.HostVolumeConfig, m *model.Map) (string, error) {
	if hv.HasSingle {
		p, err := hv.Single.Resolve()
		if err != nil {
			return "", err
		}
		return applyHostRoot(p, m)
	}
	return "", fmt.Errorf("host volume has no default path; an instance label is required")
}

// ResolveHostPathInstance resolves a HostVolumeConfig for a specific
// instance label, applying host.root when the result is relative.
func ResolveHostPathInstance(hv *model.HostVolumeConfig, m *model.Map, instance string) (string, error) {
	if instance != "" {
		if v, ok := hv.PerInstance[instance]; ok {
			p, err := v.Resolve()
			if err != nil {
				return "", err
			}
			return applyHostRoot(p, m)
		}
	}
	if hv.HasSingle {
		p, err := hv.Single.Resolve()
		if err != nil {
			return "", err
		}
		return applyHostRoot(p, m)
	}
	return "", fmt.Errorf("no host path configured for instance %q", instance)
}

func applyHostRoot(path string, m *model.Map) (string, error) {
	if strings.HasPrefix(path, "/") {
		return path, nil
	}
	root, err := m.HostRoot.Resolve()
	if err != nil {
		return "", err
	}
	if root == "" {
		return path, nil
	}
	return strings.TrimSuffix(root, "/") + "/" + path, nil
}

func applyUses(eb *ExpectedBundle, cfg *model.ContainerConfig, depNamer func(string) (string, bool)) error {
	for _, u := range cfg.Uses {
		if depNamer == nil {
			continue
		}
		name, ok := depNamer(u.Target)
		if !ok {
			continue
		}
		eb.VolumesFrom = append(eb.VolumesFrom, name)
	}
	return nil
}

func applyLinks(eb *ExpectedBundle, cfg *model.ContainerConfig, depNamer func(string) (string, bool)) {
	for _, l := range cfg.Links {
		alias := l.Alias
		if alias == "" {
			alias = l.Container
		}
		name := l.Container
		if depNamer != nil {
			if n, ok := depNamer(l.Container); ok {
				name = n
			}
		}
		eb.Links = append(eb.Links, LinkRef{Container: name, Alias: alias})
	}
}

func applyExposes(eb *ExpectedBundle, cfg *model.ContainerConfig) error {
	for _, p := range cfg.Exposes {
		proto := p.Protocol
		if proto == "" {
			proto = "tcp"
		}
		pb := PortBinding{ContainerPort: p.ContainerPort, Protocol: proto}
		if p.HasHostPort {
			hp, err := p.HostPort.Resolve()
			if err != nil {
				return fmt.Errorf("resolving host port: %w", err)
			}
			pb.HostPort = hp
			pb.HasHostPort = true
		}
		eb.ExposedPorts = append(eb.ExposedPorts, pb)
	}
	return nil
}

func applyNetworks(eb *ExpectedBundle, cfg *model.ContainerConfig) {
	for _, ep := range cfg.Networks {
		eb.Networks = append(eb.Networks, EndpointRef{
			Network: ep.Network,
			Aliases: ep.Aliases,
			IPv4:    ep.IPv4,
			IPv6:    ep.IPv6,
		})
	}
}

// applyOptionsDict merges create_options/host_config raw dicts on top of
// the structured defaults, using the conventional Docker kwarg names.
func applyOptionsDict(eb *ExpectedBundle, cfg *model.ContainerConfig) error {
	create, err := cfg.CreateOptions.Resolve()
	if err != nil {
		return fmt.Errorf("resolving create_options: %w", err)
	}
	for k, v := range create {
		switch k {
		case "Env":
			eb.Env = toStringSlice(v)
		case "Cmd":
			eb.Cmd = toStringSlice(v)
		case "Entrypoint":
			eb.Entrypoint = toStringSlice(v)
		case "User":
			if s, ok := v.(string); ok {
				eb.User = s
			}
		}
	}

	host, err := cfg.HostConfig.Resolve()
	if err != nil {
		return fmt.Errorf("resolving host_config: %w", err)
	}
	for k, v := range host {
		switch k {
		case "Memory":
			eb.Limits.Memory = toInt64(v)
		case "MemoryReservation":
			eb.Limits.MemoryReservation = toInt64(v)
		case "MemorySwap":
			eb.Limits.MemorySwap = toInt64(v)
		case "KernelMemory":
			eb.Limits.KernelMemory = toInt64(v)
		case "CpuShares":
			eb.Limits.CPUShares = toInt64(v)
		case "CpuPeriod":
			eb.Limits.CPUPeriod = toInt64(v)
		case "CpuQuota":
			eb.Limits.CPUQuota = toInt64(v)
		case "CpusetCpus":
			if s, ok := v.(string); ok {
				eb.Limits.CpusetCpus = s
			}
		case "CpusetMems":
			if s, ok := v.(string); ok {
				eb.Limits.CpusetMems = s
			}
		case "BlkioWeight":
			eb.Limits.BlkioWeight = uint16(toInt64(v))
		case "PidsLimit":
			eb.Limits.PidsLimit = toInt64(v)
		}
	}
	return nil
}

func applyCallerOptions(eb *ExpectedBundle, opts AssembleOptions) {
	if len(opts.Env) > 0 {
		env := make([]string, 0, len(eb.Env)+len(opts.Env))
		for _, e := range eb.Env {
			if i := strings.IndexByte(e, '='); i >= 0 {
				if _, overridden := opts.Env[e[:i]]; overridden {
					continue
				}
			}
			env = append(env, e)
		}
		keys := make([]string, 0, len(opts.Env))
		for k := range opts.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			env = append(env, k+"="+opts.Env[k])
		}
		eb.Env = env
	}
	if len(opts.Cmd) > 0 {
		eb.Cmd = opts.Cmd
	}
	if len(opts.Entrypoint) > 0 {
		eb.Entrypoint = opts.Entrypoint
	}
	eb.Mounts = append(eb.Mounts, opts.ExtraBinds...)
	eb.VolumesFrom = append(eb.VolumesFrom, opts.ExtraVolumesFrom...)
}

func sortBundle(eb *ExpectedBundle) {
	sort.Slice(eb.ExposedPorts, func(i, j int) bool {
		if eb.ExposedPorts[i].ContainerPort != eb.ExposedPorts[j].ContainerPort {
			return eb.ExposedPorts[i].ContainerPort < eb.ExposedPorts[j].ContainerPort
		}
		return eb.ExposedPorts[i].Protocol < eb.ExposedPorts[j].Protocol
	})
}

func toStringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}
