package plan

import (
	"strings"

	"github.com/cntrland/landscaper/internal/names"
)

// resolveDepTarget turns a uses/links/network_mode target string into its
// fully-qualified dependency name, the way internal/depgraph's own edge
// construction interprets the same strings (container config name, config
// name with an explicit ".instance" suffix, or an attached-volume alias).
//
// "parent.<alias>" targets (spec §3's UseSpec escape hatch for reaching an
// ancestor's attached volume) are only checked for an existing alias at
// load time and are never tied to a concrete ancestor container — the
// dependency graph does not add an edge for them (see internal/depgraph's
// addEdgesForMap) — so there is no single owner to qualify them against
// here either; they are left unresolved.
func resolveDepTarget(ls *Landscape, target string) (string, bool) {
	if strings.HasPrefix(target, "parent.") {
		return "", false
	}

	base, inst := target, ""
	if i := strings.LastIndex(target, "."); i >= 0 {
		candidate, maybeInst := target[:i], target[i+1:]
		if _, ok := ls.Effective[candidate]; ok {
			base, inst = candidate, maybeInst
		}
	}
	if cfg, ok := ls.Effective[base]; ok {
		if inst == "" && len(cfg.Instances) > 0 {
			// Unqualified reference to a multi-instance config: the first
			// declared instance stands in for "the config" (the dependency
			// graph, by contrast, adds an edge to every instance).
			inst = cfg.Instances[0]
		}
		return names.ContainerName(ls.Map.Name, base, inst), true
	}
	if _, ok := ls.Map.Volumes[target]; ok {
		return names.AttachedVolumeName(ls.Map, "", target), true
	}
	return "", false
}
