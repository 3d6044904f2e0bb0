package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	leaderboardSort  string
	leaderboardLimit int
)

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the ecosystem leaderboard",
	RunE:  runLeaderboard,
}

func init() {
	leaderboardCmd.Flags().StringVar(&leaderboardSort, "sort", "spend",
		"sort key: spend | tokens | sessions | efficiency | streak")
	leaderboardCmd.Flags().IntVar(&leaderboardLimit, "limit", 20, "rows to show")
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	resp, err := newClient().Leaderboard(ctx, leaderboardSort, leaderboardLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tNAME\tSPEND\tTOKENS\tSESSIONS\tSTREAK\t$/1K\tVERIFIED")
	for _, e := range resp.Entries {
		per1k := "-"
		if e.CostPer1KTokens != nil {
			per1k = fmt.Sprintf("%.4f", *e.CostPer1KTokens)
		}
		verified := ""
		if e.IsVerified {
			verified = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%d\t%d\t%d\t%s\t%s\n",
			e.Rank, e.Name, e.TotalSpend, e.TotalTokens, e.TotalSessions, e.Streak, per1k, verified)
	}
	return w.Flush()
}
