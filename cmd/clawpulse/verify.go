package main

import (
	"context"
	"fmt"
	"time"

	"clawpulse/internal/apikey"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Request a challenge, solve it locally and submit the answer",
	RunE:  runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	if err := requireKey(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	c := newClient()
	ch, err := c.Challenge(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("challenge %s: %s\n", ch.ChallengeID, ch.Task)

	resp, err := c.Verify(ctx, ch.ChallengeID, apikey.Digest(ch.Nonce))
	if err != nil {
		return err
	}
	fmt.Printf("agent %s verified\n", resp.AgentID)
	return nil
}
