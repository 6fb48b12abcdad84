// Package cli implements the landscaper command-line front end: a cobra
// command tree (spec §8) with one subcommand per intent of spec §4.5, plus
// run-script and version. This supersedes the teacher's web-platform
// command tree (internal/commands): landscaper has no server/agent/stack
// commands to dispatch to, only the planner/executor pipeline.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cntrland/landscaper/internal/config"
	"github.com/cntrland/landscaper/internal/version"
)

var (
	cfgFile string
	cfg     *config.Config

	mapFile    string
	clientFile string
)

var rootCmd = &cobra.Command{
	Use:   "landscaper",
	Short: "Declarative Docker container-landscape orchestration",
	Long: `landscaper plans and executes changes against a declarative
container-landscape document: it resolves names and images, builds the
dependency graph between containers, volumes and networks, diffs the live
Docker state against what the document describes, and runs only the
operations needed to close the gap.`,
	Version: version.Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./landscaper.yaml)")
	rootCmd.PersistentFlags().StringVarP(&mapFile, "map", "m", "", "container-landscape document (default: engine.map_file from config)")
	rootCmd.PersistentFlags().StringVar(&clientFile, "clients", "", "clients document (default: single local Docker client)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (json, console)")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(startupCmd)
	rootCmd.AddCommand(shutdownCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(runScriptCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "%s" .Version}}
`)
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Println(info.String())
		if v, _ := cmd.Flags().GetBool("verbose"); v {
			fmt.Printf("\nDetails:\n")
			fmt.Printf("  Version:    %s\n", info.Version)
			fmt.Printf("  Git Commit: %s\n", info.GitCommit)
			fmt.Printf("  Built:      %s\n", info.BuildTime)
			fmt.Printf("  Go Version: %s\n", info.GoVersion)
			fmt.Printf("  Platform:   %s\n", info.Platform)
		}
	},
}

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "verbose version output")
}
