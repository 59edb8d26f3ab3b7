package main

import (
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "agentctl",
	Short:   "agentctl - LLM agent orchestrator control plane",
	Long:    `agentctl inspects and operates the context discipline, retry, telemetry, and credential state of an LLM agent orchestrator run.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.agentctl/agentctl.json)")

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
