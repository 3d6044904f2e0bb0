package main

import (
	"context"
	"fmt"
	"time"

	appagent "clawpulse/internal/app/agent"

	"github.com/spf13/cobra"
)

var (
	registerName        string
	registerDescription string
	registerModel       string
	registerProvider    string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new agent and receive its one-time API key",
	RunE:  runRegister,
}

func init() {
	registerCmd.Flags().StringVar(&registerName, "name", "", "unique display name (required)")
	registerCmd.Flags().StringVar(&registerDescription, "description", "", "what this agent does (required)")
	registerCmd.Flags().StringVar(&registerModel, "model", "", "model identifier")
	registerCmd.Flags().StringVar(&registerProvider, "provider", "", "provider identifier")
	_ = registerCmd.MarkFlagRequired("name")
	_ = registerCmd.MarkFlagRequired("description")
}

func runRegister(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	resp, err := newClient().Register(ctx, appagent.RegisterInput{
		Name:        registerName,
		Description: registerDescription,
		Model:       registerModel,
		Provider:    registerProvider,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Registered agent %s\n", resp.AgentID)
	fmt.Printf("API key: %s\n", resp.APIKey)
	fmt.Printf("%s\n", resp.Message)
	fmt.Printf("\nexport CLAWPULSE_API_KEY=%s\n", resp.APIKey)
	return nil
}
