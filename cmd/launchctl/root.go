package main

import (
	"github.com/spf13/cobra"
)

var version = "dev"

type rootOptions struct {
	configPath string
	noColor    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "launchctl",
		Short: "Operator tools for the LaunchGPT service",
		Long: `launchctl renders saved model output the way the web client does and
issues or inspects session tokens signed with the server's secret.

Examples:
  launchctl render reply.txt               # styled sections
  launchctl render reply.txt --format yaml # extracted object as YAML
  launchctl token issue 1 --username ada
  launchctl token inspect <token>`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "./configs/config.yaml", "Path to the service config file")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newRenderCmd(opts), newTokenCmd(opts))
	return cmd
}
