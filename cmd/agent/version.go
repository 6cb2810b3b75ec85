package agent

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version 构建时注入：-ldflags "-X github.com/varnish-agent/cmd/agent.Version=1.2.3"
var Version = "0.1.0-dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the agent version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
	},
}
