// Command daneel runs the DANEEL cognitive cycle engine: a continuously
// running agent runtime built around the Trigger, Autoflow, Attention,
// Assembly, Volition and Anchor pipeline stages, backed by Redis for its
// Stream Store and Association Graph and by an in-memory Vector Store.
package main

import (
	"github.com/spf13/cobra"
)

var configPath string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "daneel",
		Short: "DANEEL cognitive cycle engine",
		Long: `daneel runs a continuously cycling cognitive agent: a pipeline of
Trigger, Autoflow, Attention, Assembly, Volition and Anchor stages driven
off a shared clock, with an HTTP surface for external stimulus injection.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults applied when omitted)")

	root.AddCommand(newRunCommand())
	root.AddCommand(newKeygenCommand())

	return root
}

// Execute runs the root command, returning any error for main to report.
func Execute() error {
	return newRootCommand().Execute()
}
