// Package action implements the action generator family of spec §4.5:
// mapping (intent, NodeState) to an ordered list of low-level Docker
// operations. The Action generator never talks to Docker directly — it
// hands fully-assembled Ops to the Runner (internal/runner).
package action

import (
	"time"

	"github.com/cntrland/landscaper/internal/bundle"
	"github.com/cntrland/landscaper/internal/depgraph"
	"github.com/cntrland/landscaper/internal/model"
)

// Kind is one low-level Docker-facing operation.
type Kind string

const (
	KindPull               Kind = "pull"
	KindCreateVolume       Kind = "create-volume"
	KindCreateNetwork      Kind = "create-network"
	KindCreateContainer    Kind = "create-container"
	KindPreparePermissions Kind = "prepare-permissions"
	KindStart              Kind = "start-container"
	KindExec               Kind = "exec"
	KindStop               Kind = "stop-container"
	KindKill               Kind = "kill-container"
	KindRemove             Kind = "remove-container"
	KindRemoveVolume       Kind = "remove-volume"
	KindConnectNetwork     Kind = "connect-network"
	KindDisconnectNetwork  Kind = "disconnect-network"
	KindUpdateHostConfig   Kind = "update-host-config"
	KindWait               Kind = "wait-container"
	KindLogs               Kind = "logs"
)

// Op is one fully-assembled low-level operation, ready for the Runner to
// execute against a specific client.
type Op struct {
	Kind   Kind
	Client string
	Node   depgraph.Node

	// ContainerName is the name the op addresses (container/volume holder
	// name), always fully qualified ("<map>.<config>[.<instance>]").
	ContainerName string

	Bundle *bundle.ExpectedBundle // populated for create ops

	Image string // for pull / create-volume (holder image)

	Signal     string
	Timeout    time.Duration
	KillAfter  bool // not set by the generators nor read by the runner; every stop falls through to a daemon-issued kill after Timeout

	Exec *model.ExecSpec

	NetworkName string
	Endpoint    *bundle.EndpointRef

	PreparePath string // path the transient chown/chmod targets
	PrepareUser string
	PrepareMode string

	LimitsPatch *bundle.Limits

	VolumeDriver  string
	VolumeOptions map[string]string

	// Script-intent fields.
	ScriptEntrypoint []string
	ScriptCommand    []string
	ScriptMountPath  string
	RemoveBefore     bool
	RemoveAfter      bool
}

// Options is the action option catalogue of spec §6.
type Options struct {
	RemoveExistingAfter  bool
	RemoveExistingBefore bool
	RemovePersistent     bool
	RemoveAttached       bool
	PullAllImages        bool
	PullBeforeUpdate     bool
	PullInsecureRegistry bool
	PrepareLocal         bool
	ForceUpdate          map[string]bool
	SkipLimitReset       bool
	UpdatePersistent     bool
	CheckExecCommands    model.CheckExecMode
	RestartExecCommands  bool
	WaitTimeout          time.Duration
}

// DefaultOptions returns the documented defaults from spec §6.
func DefaultOptions() Options {
	return Options{
		RemoveExistingAfter: true,
		PullAllImages:       true,
		PrepareLocal:        true,
		ForceUpdate:         map[string]bool{},
		CheckExecCommands:   model.CheckExecFull,
		WaitTimeout:         5 * time.Minute,
	}
}

// defaultStopTimeout is used when the container configures no stop_timeout
// (Docker's own default); a client's stop_timeout is not consulted.
const defaultStopTimeout = 10 * time.Second

// postKillGrace is an extra wait after a SIGKILL. No generator or runner
// path reads it: a stop op returns as soon as the daemon's stop call does.
const postKillGrace = 2 * time.Second
