package main

import (
	"context"
	"fmt"
	"time"

	appmetrics "clawpulse/internal/app/metrics"

	"github.com/spf13/cobra"
)

var pushInput appmetrics.PushInput

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Report a batch of usage metrics",
	RunE:  runPush,
}

func init() {
	pushCmd.Flags().Int64Var(&pushInput.InputTokens, "input-tokens", 0, "input tokens consumed")
	pushCmd.Flags().Int64Var(&pushInput.OutputTokens, "output-tokens", 0, "output tokens produced")
	pushCmd.Flags().Int64Var(&pushInput.CacheReadTokens, "cache-read-tokens", 0, "cache read tokens")
	pushCmd.Flags().Float64Var(&pushInput.Cost, "cost", 0, "cost in dollars")
	pushCmd.Flags().StringVar(&pushInput.Provider, "provider", "", "provider identifier")
	pushCmd.Flags().StringVar(&pushInput.Model, "model", "", "model identifier")
	pushCmd.Flags().StringVar(&pushInput.Period, "period", "", "period label (default: hourly)")
	pushCmd.Flags().Int64Var(&pushInput.SessionCount, "sessions", 0, "sessions in this batch")
	pushCmd.Flags().Int64Var(&pushInput.RequestCount, "requests", 0, "requests in this batch")
}

func runPush(cmd *cobra.Command, args []string) error {
	if err := requireKey(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	resp, err := newClient().Push(ctx, pushInput)
	if err != nil {
		return err
	}
	fmt.Printf("ok: pushed metrics for agent %s\n", resp.AgentID)
	return nil
}
