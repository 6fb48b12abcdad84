package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cntrland/landscaper/internal/action"
	"github.com/cntrland/landscaper/internal/model"
	"github.com/cntrland/landscaper/internal/plan"
	"github.com/cntrland/landscaper/internal/runner"
)

// intentOptions are the action-option flags every intent command exposes;
// each RunE only reads the ones its generator pair actually consults, the
// same permissiveness spec §6 describes for the option catalogue.
type intentOptions struct {
	removeExistingBefore bool
	removeExistingAfter  bool
	removePersistent     bool
	removeAttached       bool
	pullAllImages        bool
	pullInsecure         bool
	forceUpdateAll       bool
	skipLimitReset       bool
	updatePersistent     bool
	checkExecMode        string
}

func bindIntentFlags(cmd *cobra.Command, o *intentOptions, def plan.RunOptions) {
	cmd.Flags().BoolVar(&o.removeExistingBefore, "remove-existing-before", def.RemoveExistingBefore, "remove a same-named container before creating")
	cmd.Flags().BoolVar(&o.removeExistingAfter, "remove-existing-after", def.RemoveExistingAfter, "remove a leftover container left by a failed create")
	cmd.Flags().BoolVar(&o.removePersistent, "remove-persistent", def.RemovePersistent, "also remove containers marked persistent")
	cmd.Flags().BoolVar(&o.removeAttached, "remove-attached", def.RemoveAttached, "also remove attached volumes")
	cmd.Flags().BoolVar(&o.pullAllImages, "pull", def.PullAllImages, "pull images before creating containers")
	cmd.Flags().BoolVar(&o.pullInsecure, "pull-insecure-registry", def.PullInsecureRegistry, "allow pulling from an insecure registry")
	cmd.Flags().BoolVar(&o.forceUpdateAll, "force-update", false, "recreate every targeted container regardless of drift")
	cmd.Flags().BoolVar(&o.skipLimitReset, "skip-limit-reset", def.SkipLimitReset, "don't patch host config when only resource limits drifted")
	cmd.Flags().BoolVar(&o.updatePersistent, "update-persistent", def.UpdatePersistent, "allow update to recreate persistent containers")
	cmd.Flags().StringVar(&o.checkExecMode, "check-exec", string(def.CheckExecCommands), "RESTART exec match strictness: FULL, PARTIAL, or NONE")
}

func (o intentOptions) toRunOptions(targets []string) plan.RunOptions {
	ro := plan.DefaultRunOptions()
	ro.RemoveExistingBefore = o.removeExistingBefore
	ro.RemoveExistingAfter = o.removeExistingAfter
	ro.RemovePersistent = o.removePersistent
	ro.RemoveAttached = o.removeAttached
	ro.PullAllImages = o.pullAllImages
	ro.PullInsecureRegistry = o.pullInsecure
	ro.SkipLimitReset = o.skipLimitReset
	ro.UpdatePersistent = o.updatePersistent
	ro.CheckExecCommands = model.CheckExecMode(o.checkExecMode)
	if o.forceUpdateAll {
		for _, t := range targets {
			ro.ForceUpdate[t] = true
		}
	}
	return ro
}

// newIntentCmd builds the cobra.Command for one of the nine named intents:
// `landscaper <use> <target>... [flags]`, where target is one or more
// container-config names, or a single group/"__all__" name.
func newIntentCmd(use, short string, intent action.Intent) *cobra.Command {
	var o intentOptions
	cmd := &cobra.Command{
		Use:   use + " <target>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()

			res, err := engine.Run(cmd.Context(), intent, args, o.toRunOptions(args))
			if err != nil {
				printPartial(res)
				return describeErr(err)
			}
			printPartial(res)
			return nil
		},
	}
	bindIntentFlags(cmd, &o, plan.DefaultRunOptions())
	return cmd
}

var (
	createCmd   = newIntentCmd("create", "Create containers, volumes and networks that don't already exist", action.IntentCreate)
	startCmd    = newIntentCmd("start", "Start stopped containers, running first-start exec commands", action.IntentStart)
	restartCmd  = newIntentCmd("restart", "Stop then start the named containers, ignoring their dependency chain", action.IntentRestart)
	stopCmd     = newIntentCmd("stop", "Stop running containers, dependents first", action.IntentStop)
	removeCmd   = newIntentCmd("remove", "Stop and remove containers (and attached volumes with --remove-attached); networks are kept", action.IntentRemove)
	startupCmd  = newIntentCmd("startup", "Create then start everything the targets depend on", action.IntentStartup)
	shutdownCmd = newIntentCmd("shutdown", "Stop and remove everything the targets depend on, dependents first", action.IntentShutdown)
	updateCmd   = newIntentCmd("update", "Recreate drifted containers to match the landscape document", action.IntentUpdate)
	pullCmd     = newIntentCmd("pull", "Pull the images the targets would use", action.IntentPull)
)

func printPartial(res *runner.Result) {
	if res == nil {
		return
	}
	for _, p := range res.Partial {
		fmt.Printf("%-8s %-20s %-24s %s\n", p.Outcome, p.Client, p.Action, p.Node)
	}
}

func describeErr(err error) error {
	return fmt.Errorf("landscaper: %w", err)
}
