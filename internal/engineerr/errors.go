// Package engineerr defines the error taxonomy shared by every stage of the
// planner/executor pipeline: load-time configuration errors, post-merge
// integrity failures, planning-time cycles, script-action failures, and
// execution-time partial-result wrapping.
package engineerr

import "fmt"

// ConfigurationError reports a load-time problem in a single configuration
// item: an unknown alias, a cycle in extends, or an input shape that could
// not be cleaned into a canonical record.
type ConfigurationError struct {
	Map    string
	Config string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Config != "" {
		return fmt.Sprintf("configuration error in %s.%s: %s", e.Map, e.Config, e.Reason)
	}
	return fmt.Sprintf("configuration error in map %s: %s", e.Map, e.Reason)
}

// MapIntegrityError reports a dangling reference discovered after
// inheritance has been expanded: a bind/use/link/attach/network_mode/networks
// target that does not resolve to a known alias or configuration, or a bare
// network_mode target naming a multi-instance configuration.
type MapIntegrityError struct {
	Map    string
	Config string
	Field  string
	Target string
}

func (e *MapIntegrityError) Error() string {
	return fmt.Sprintf("map integrity error: %s.%s field %s references unknown target %q",
		e.Map, e.Config, e.Field, e.Target)
}

// CircularDependencyError reports a cycle found while building the
// dependency graph. A cycle in extends is reported as a ConfigurationError.
type CircularDependencyError struct {
	Cycle []string
}

func (e *CircularDependencyError) Error() string {
	s := "circular dependency:"
	for i, n := range e.Cycle {
		if i > 0 {
			s += " ->"
		}
		s += " " + n
	}
	return s
}

// ScriptActionException reports a failure specific to the run-script
// intent: a pre-existing container without remove_existing_before, or a
// wait timeout.
type ScriptActionException struct {
	Container string
	Reason    string
}

func (e *ScriptActionException) Error() string {
	return fmt.Sprintf("script action failed for %s: %s", e.Container, e.Reason)
}

// PartialResult records one already-completed low-level operation, kept so
// that a caller can see exactly what happened before a failure aborted the
// traversal. ID is a generated record identifier (mirrors the audit-record
// IDs the integrity service stamps on every repair/duplicate entry), useful
// for correlating a partial result with out-of-band Docker daemon logs.
type PartialResult struct {
	ID      string
	Client  string
	Action  string
	Node    string
	Outcome string
}

// ActionRunnerException wraps a failure raised while executing the op list
// against a Docker client. It carries the client name, the operation that
// failed, the partial results accumulated before the failure, and the
// original error for inspection or re-raise.
type ActionRunnerException struct {
	Client  string
	Op      string
	Node    string
	Partial []PartialResult
	Source  error
}

func (e *ActionRunnerException) Error() string {
	return fmt.Sprintf("action runner failed on client %s, op %s (node %s): %v",
		e.Client, e.Op, e.Node, e.Source)
}

func (e *ActionRunnerException) Unwrap() error { return e.Source }

// Reraise returns the original error that triggered the wrap, for callers
// that want the underlying Docker-client error rather than the wrapper.
func (e *ActionRunnerException) Reraise() error { return e.Source }

// PartialResultsError is the same partial-results mixin used by direct
// utility-client calls that are not routed through the full action runner
// (e.g. a batch container cleanup helper).
type PartialResultsError struct {
	Partial []PartialResult
	Source  error
}

func (e *PartialResultsError) Error() string {
	return fmt.Sprintf("operation failed after %d prior successes: %v", len(e.Partial), e.Source)
}

func (e *PartialResultsError) Unwrap() error { return e.Source }
