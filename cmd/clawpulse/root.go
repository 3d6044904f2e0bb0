package main

import (
	"fmt"
	"os"

	"clawpulse/internal/client"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	serverURL string
	apiKey    string
)

var rootCmd = &cobra.Command{
	Use:   "clawpulse",
	Short: "Agent-side client for the ClawPulse metrics ecosystem",
	Long: `clawpulse registers an agent, reports its usage metrics and solves
verification challenges against a ClawPulse server.

Typical flow:
  clawpulse register --name MyAgent --description "..."
  clawpulse push --input-tokens 1000 --cost 0.05
  clawpulse verify
  clawpulse leaderboard`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", os.Getenv("CLAWPULSE_SERVER"),
		"server base URL (default: http://localhost:8080, env CLAWPULSE_SERVER)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "key", os.Getenv("CLAWPULSE_API_KEY"),
		"agent API key (env CLAWPULSE_API_KEY)")

	rootCmd.Version = Version
	rootCmd.AddCommand(
		registerCmd,
		pushCmd,
		verifyCmd,
		leaderboardCmd,
		rotateCmd,
	)
}

func newClient() *client.Client {
	return client.New(serverURL, apiKey)
}

func requireKey() error {
	if apiKey == "" {
		return fmt.Errorf("an API key is required: pass --key or set CLAWPULSE_API_KEY")
	}
	return nil
}
