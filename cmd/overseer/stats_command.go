package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate run statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var stats struct {
				TotalTasks    int     `json:"total_tasks"`
				TotalAccounts int     `json:"total_accounts"`
				SuccessCount  int     `json:"success_count"`
				FailedCount   int     `json:"failed_count"`
				SuccessRate   float64 `json:"success_rate"`
				TotalBalance  float64 `json:"total_balance"`
			}
			if err := client.get("/api/statistics", &stats); err != nil {
				return err
			}

			rows := [][]string{
				{"Tasks", fmt.Sprintf("%d", stats.TotalTasks)},
				{"Accounts", fmt.Sprintf("%d", stats.TotalAccounts)},
				{"Succeeded", fmt.Sprintf("%d", stats.SuccessCount)},
				{"Failed", fmt.Sprintf("%d", stats.FailedCount)},
				{"Success rate", fmt.Sprintf("%.1f%%", stats.SuccessRate)},
				{"Best balance", balancePrinter.Sprintf("%.2f", stats.TotalBalance)},
			}
			fmt.Println(renderTable([]string{"Metric", "Value"}, rows, 1))
			return nil
		},
	}
}

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.post("/api/notifications/test", nil, nil); err != nil {
				return err
			}
			fmt.Println("Test notification sent")
			return nil
		},
	}
}
