package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/cntrland/landscaper/internal/plan"
)

var (
	scriptCommand    string
	scriptEntrypoint string
	scriptInstance   string
	scriptMountPath  string
)

var runScriptCmd = &cobra.Command{
	Use:   "run-script <target>",
	Short: "Run a one-shot command in a transient container",
	Long: `run-script creates a transient container from the named container
configuration's image and effective settings, overrides its command and/or
entrypoint, runs it to completion, and removes it. It prints the outcome of
each step; the container's own output is not fetched or printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer engine.Close()

		var command, entrypoint []string
		if scriptCommand != "" {
			command = strings.Fields(scriptCommand)
		}
		if scriptEntrypoint != "" {
			entrypoint = strings.Fields(scriptEntrypoint)
		}

		res, err := engine.RunScript(cmd.Context(), args[0], scriptInstance, command, entrypoint, scriptMountPath, plan.DefaultRunOptions())
		if err != nil {
			printPartial(res)
			return describeErr(err)
		}
		printPartial(res)
		return nil
	},
}

func init() {
	runScriptCmd.Flags().StringVar(&scriptCommand, "command", "", "command to run in place of the image's default")
	runScriptCmd.Flags().StringVar(&scriptEntrypoint, "entrypoint", "", "entrypoint to run in place of the image's default")
	runScriptCmd.Flags().StringVar(&scriptInstance, "instance", "", "instance label, for a multi-instance configuration")
	runScriptCmd.Flags().StringVar(&scriptMountPath, "mount", "", "host path recorded on the create step; it is not mounted into the transient container")
}
