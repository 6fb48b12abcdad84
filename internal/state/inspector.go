// Package state implements the state generator family of spec §4.4: for
// every node visited by a traversal, classify its live Docker state against
// the expected effective configuration.
package state

import (
	"context"

	"github.com/cntrland/landscaper/internal/bundle"
)

// MountInfo is one live mount on a container, as needed for the volumes
// match check.
type MountInfo struct {
	ContainerPath string
	Source        string
	VolumeName    string // non-empty when Source is a named-volume mount
}

// Limits mirrors the Docker host-config resource-limit fields compared
// exactly by the update match rules.
type Limits = bundle.Limits

// ContainerInfo is the subset of a live container's inspect result the state
// generators need. It is deliberately Docker-type-agnostic so the
// generators can be tested without a daemon; the Runner's concrete
// Inspector implementation (internal/runner) translates from the real
// Docker API types.
type ContainerInfo struct {
	ID         string
	Running    bool
	ExitCode   int
	Pid        int
	ImageID    string
	Env        []string
	Cmd        []string
	Entrypoint []string
	Mounts     []MountInfo
	// Networks maps network name -> endpoint ID for every network this
	// container is currently attached to.
	Networks map[string]string
	// Links lists the container names this container currently links to.
	Links        []string
	ExposedPorts []string // "containerPort/proto"
	Limits       Limits
}

// Inspector is the live-Docker-state query surface the state generators
// depend on. It is satisfied by internal/runner's client wrapper in
// production and by a fake in tests.
type Inspector interface {
	// InspectContainer returns the live state of the named container, or
	// (nil, nil) if it does not exist.
	InspectContainer(ctx context.Context, client, name string) (*ContainerInfo, error)

	// ResolveImageID returns the image ID currently tagged by ref on the
	// given client. It never pulls; a ref with no local image yields "".
	ResolveImageID(ctx context.Context, client, ref string) (string, error)

	// ListExecProcesses lists the running processes' command lines for a
	// container (via `top`), for RESTART exec-command matching. supported
	// is false when the backend cannot perform process listing (spec §9:
	// treat all RESTART commands as needing re-execution in that case).
	ListExecProcesses(ctx context.Context, client, containerID string) (procs []ExecProcess, supported bool, err error)

	// NetworkExists and VolumeExists report presence of the named
	// synthetic graph nodes that are not containers.
	NetworkExists(ctx context.Context, client, name string) (bool, error)
	VolumeExists(ctx context.Context, client, name string) (bool, error)
}

// ExecProcess is one running process as reported by `top`.
type ExecProcess struct {
	User    string
	Command []string
}
