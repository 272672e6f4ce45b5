package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relay - chat completion proxy with streaming sessions",
	Long: `Relay proxies chat-completion requests to a single upstream inference
API. It exposes an OpenAI-style request/response surface with SSE
streaming, a duplex websocket session surface with heartbeat and
admission control, and a cached model catalog.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
}
