package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Rotate the agent's API key, deactivating all previous keys",
	RunE:  runRotate,
}

func runRotate(cmd *cobra.Command, args []string) error {
	if err := requireKey(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	resp, err := newClient().Rotate(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("New API key: %s\n", resp.APIKey)
	fmt.Printf("%s\n", resp.Message)
	fmt.Printf("\nexport CLAWPULSE_API_KEY=%s\n", resp.APIKey)
	return nil
}
