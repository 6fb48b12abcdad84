// Package names implements the deterministic naming and image-reference
// resolution rules of spec §4.2: pure functions over (map, config,
// instance, client).
package names

import (
	"regexp"
	"strings"

	"github.com/cntrland/landscaper/internal/model"
)

// ContainerName returns "<map>.<config>[.<instance>]".
func ContainerName(mapName, configName, instance string) string {
	if instance == "" {
		return mapName + "." + configName
	}
	return mapName + "." + configName + "." + instance
}

// AttachedVolumeName returns the name of the holder container/volume for an
// attached-volume alias: "<map>.<alias>", or, when the map sets
// use_attached_parent_name, "<map>.<parent-config>.<alias>".
func AttachedVolumeName(m *model.Map, parentConfig, alias string) string {
	if m.UseAttachedParentName {
		return m.Name + "." + parentConfig + "." + alias
	}
	return m.Name + "." + alias
}

var invalidHostChars = regexp.MustCompile(`[^a-zA-Z0-9-]`)

// HostName returns "<client-name-or-none>-<container-name-with-invalid-chars-replaced>",
// or "" if the map does not request hostnames.
func HostName(m *model.Map, clientName, containerName string) string {
	if !m.SetHostname {
		return ""
	}
	client := clientName
	if client == "" {
		client = "none"
	}
	safe := invalidHostChars.ReplaceAllString(containerName, "-")
	return client + "-" + safe
}

// ResolveImage applies the §4.2 table: image/repository/default_tag ->
// fully-qualified reference.
//
//	image unset                  -> "<config>:latest" (or ":<default_tag>")
//	image set, no "/" or ":"     -> prefixed with repository, tagged with default_tag
//	image has a leading "/"      -> strip it
//	image contains "/" anywhere  -> bypass repository entirely (already qualified)
//	image contains ":"           -> bypass default-tag application
func ResolveImage(configName, image, repository, defaultTag string) string {
	if defaultTag == "" {
		defaultTag = "latest"
	}

	name := image
	bypassRepo := false
	if name == "" {
		name = configName
	} else {
		if strings.Contains(name, "/") {
			bypassRepo = true
		}
		name = strings.TrimPrefix(name, "/")
	}

	hasTag := strings.Contains(name, ":")
	var repoPart, tagPart string
	if hasTag {
		i := strings.LastIndex(name, ":")
		repoPart, tagPart = name[:i], name[i+1:]
	} else {
		repoPart = name
	}

	if !bypassRepo && repository != "" {
		repoPart = repository + "/" + repoPart
	}
	if !hasTag {
		tagPart = defaultTag
	}
	return repoPart + ":" + tagPart
}
