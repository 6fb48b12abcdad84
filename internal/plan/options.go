package plan

import (
	"github.com/cntrland/landscaper/internal/action"
	"github.com/cntrland/landscaper/internal/state"
)

// Options is the action-option catalogue of spec §6, shared by every
// intent; individual intents ignore the options that don't apply to them
// (the same way the source documents per-option applicability).
type Options = action.Options

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return action.DefaultOptions()
}

// RunOptions bundles the action-option catalogue with the one knob that is
// meaningful to the state generators but absent from Options: the
// nonrecoverable-exit-code set (spec §6's nonrecoverable_exit_codes,
// defaulting to §4.4's {-127, -1}).
type RunOptions struct {
	Options
	NonrecoverableExitCodes map[int]bool
}

// DefaultRunOptions mirrors action.DefaultOptions with the §4.4 default
// nonrecoverable-exit set attached.
func DefaultRunOptions() RunOptions {
	return RunOptions{
		Options:                 DefaultOptions(),
		NonrecoverableExitCodes: state.DefaultNonrecoverableExitCodes(),
	}
}

// stateOptions narrows a RunOptions value to the subset the state
// generators need.
func stateOptions(opts RunOptions) state.Options {
	codes := opts.NonrecoverableExitCodes
	if len(codes) == 0 {
		codes = state.DefaultNonrecoverableExitCodes()
	}
	return state.Options{
		ForceUpdate:             opts.ForceUpdate,
		NonrecoverableExitCodes: codes,
		CheckExecCommands:       opts.CheckExecCommands,
		SkipLimitReset:          opts.SkipLimitReset,
	}
}
