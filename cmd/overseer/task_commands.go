package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
	ansiBlue   = "\x1b[34m"
)

var balancePrinter = message.NewPrinter(language.English)

type taskPayload struct {
	ID              int64   `json:"id"`
	TaskCode        string  `json:"task_code"`
	Name            string  `json:"name"`
	Status          string  `json:"status"`
	TotalAccounts   int     `json:"total_accounts"`
	SuccessCount    int     `json:"success_count"`
	FailedCount     int     `json:"failed_count"`
	PendingCount    int     `json:"pending_count"`
	ProgressPercent float64 `json:"progress_percent"`
	TotalBalance    float64 `json:"total_balance"`
	CreatedAt       string  `json:"created_at"`
}

type itemPayload struct {
	ID          int64    `json:"id"`
	AccountCode string   `json:"account_code"`
	Email       string   `json:"email"`
	Status      string   `json:"status"`
	Balance     *float64 `json:"balance"`
	Message     string   `json:"message"`
	Screenshot  string   `json:"screenshot"`
}

func newTaskCommand(ctx *commandContext) *cobra.Command {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	taskCmd.AddCommand(
		newTaskListCommand(ctx),
		newTaskShowCommand(ctx),
		newTaskCreateCommand(ctx),
		newTaskActionCommand(ctx, "start", "Start a pending task", "started"),
		newTaskActionCommand(ctx, "cancel", "Cancel a running task", "cancel requested"),
		newTaskActionCommand(ctx, "resume", "Resume an interrupted task", "resumed"),
		newTaskActionCommand(ctx, "retry", "Retry all failed accounts of a task", "retry started"),
		newTaskRetryItemCommand(ctx),
		newTaskRepairCommand(ctx),
		newTaskDeleteCommand(ctx),
	)
	return taskCmd
}

func newTaskListCommand(ctx *commandContext) *cobra.Command {
	var page, pageSize int
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			path := fmt.Sprintf("/api/tasks?page=%d&page_size=%d", page, pageSize)
			if status != "" {
				path += "&status=" + status
			}
			var payload struct {
				Tasks []taskPayload `json:"tasks"`
				Total int           `json:"total"`
			}
			if err := client.get(path, &payload); err != nil {
				return err
			}

			colorize := isTerminal(os.Stdout)
			rows := make([][]string, 0, len(payload.Tasks))
			for _, task := range payload.Tasks {
				rows = append(rows, []string{
					strconv.FormatInt(task.ID, 10),
					task.TaskCode,
					task.Name,
					colorStatus(task.Status, colorize),
					fmt.Sprintf("%d/%d/%d", task.SuccessCount, task.FailedCount, task.PendingCount),
					fmt.Sprintf("%.0f%%", task.ProgressPercent),
					balancePrinter.Sprintf("%.2f", task.TotalBalance),
				})
			}
			fmt.Println(renderTable(
				[]string{"ID", "Code", "Name", "Status", "OK/Fail/Pending", "Progress", "Balance"},
				rows, 0, 5, 6))
			fmt.Printf("%d task(s)\n", payload.Total)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 10, "Tasks per page")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, running, completed, failed)")
	return cmd
}

func newTaskShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task and its accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var task taskPayload
			if err := client.get("/api/tasks/"+args[0], &task); err != nil {
				return err
			}
			var items struct {
				Items []itemPayload `json:"items"`
			}
			if err := client.get("/api/tasks/"+args[0]+"/items", &items); err != nil {
				return err
			}

			colorize := isTerminal(os.Stdout)
			fmt.Printf("%s (%s)\n", task.Name, task.TaskCode)
			fmt.Printf("Status: %s  Progress: %.0f%%  Balance: %s\n",
				colorStatus(task.Status, colorize),
				task.ProgressPercent,
				balancePrinter.Sprintf("%.2f", task.TotalBalance))
			fmt.Printf("Accounts: %d total, %d succeeded, %d failed, %d pending\n\n",
				task.TotalAccounts, task.SuccessCount, task.FailedCount, task.PendingCount)

			rows := make([][]string, 0, len(items.Items))
			for _, item := range items.Items {
				balance := ""
				if item.Balance != nil {
					balance = balancePrinter.Sprintf("%.2f", *item.Balance)
				}
				rows = append(rows, []string{
					strconv.FormatInt(item.ID, 10),
					item.AccountCode,
					item.Email,
					colorStatus(item.Status, colorize),
					balance,
					item.Message,
				})
			}
			fmt.Println(renderTable(
				[]string{"ID", "Account", "Email", "Status", "Balance", "Message"},
				rows, 0, 4))
			return nil
		},
	}
}

func newTaskCreateCommand(ctx *commandContext) *cobra.Command {
	var name string
	var usePool bool
	var accountsFile string
	var start bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task from the account pool or a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !usePool && accountsFile == "" {
				return fmt.Errorf("either --pool or --file is required")
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}

			payload := map[string]any{
				"name":     name,
				"use_pool": usePool,
				"start":    start,
			}
			if accountsFile != "" {
				accounts, err := readAccountsCSV(accountsFile)
				if err != nil {
					return err
				}
				payload["accounts"] = accounts
			}

			var created taskPayload
			if err := client.post("/api/tasks", payload, &created); err != nil {
				return err
			}
			fmt.Printf("Created task %d (%s) with %d accounts\n", created.ID, created.TaskCode, created.TotalAccounts)
			if start {
				fmt.Println("Run started")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Task name")
	cmd.Flags().BoolVar(&usePool, "pool", false, "Enroll every pooled account")
	cmd.Flags().StringVar(&accountsFile, "file", "", "CSV file of account_code,email,password rows")
	cmd.Flags().BoolVar(&start, "start", false, "Start the run immediately")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// readAccountsCSV parses account_code,email,password rows. A header row is
// skipped when detected.
func readAccountsCSV(path string) ([]map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open accounts file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 3
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse accounts file: %w", err)
	}

	accounts := make([]map[string]string, 0, len(records))
	for i, record := range records {
		if i == 0 && strings.EqualFold(strings.TrimSpace(record[0]), "account_code") {
			continue
		}
		accounts = append(accounts, map[string]string{
			"account_code": strings.TrimSpace(record[0]),
			"email":        strings.TrimSpace(record[1]),
			"password":     record[2],
		})
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("accounts file %s has no rows", path)
	}
	return accounts, nil
}

func newTaskActionCommand(ctx *commandContext, action, short, confirmation string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <task-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.post("/api/tasks/"+args[0]+"/"+action, nil, nil); err != nil {
				return err
			}
			fmt.Printf("Task %s: %s\n", args[0], confirmation)
			return nil
		},
	}
}

func newTaskRetryItemCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry-item <task-id> <item-id>",
		Short: "Retry one account of a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.post("/api/tasks/"+args[0]+"/retry/"+args[1], nil, nil); err != nil {
				return err
			}
			fmt.Printf("Task %s item %s: retry started\n", args[0], args[1])
			return nil
		},
	}
}

func newTaskRepairCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "repair <task-id>",
		Short: "Top an undersized task back up from the account pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var result struct {
				Added int `json:"added"`
			}
			if err := client.post("/api/tasks/"+args[0]+"/repair", nil, &result); err != nil {
				return err
			}
			fmt.Printf("Task %s: %d account(s) added\n", args[0], result.Added)
			return nil
		},
	}
}

func newTaskDeleteCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task and its accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("deletion is permanent; re-run with --force")
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.delete("/api/tasks/"+args[0], nil); err != nil {
				return err
			}
			fmt.Printf("Task %s deleted\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Confirm deletion")
	return cmd
}

func colorStatus(status string, colorize bool) string {
	if !colorize {
		return status
	}
	switch status {
	case "success", "completed":
		return ansiGreen + status + ansiReset
	case "running":
		return ansiBlue + status + ansiReset
	case "pending":
		return ansiYellow + status + ansiReset
	case "failed":
		return ansiRed + status + ansiReset
	default:
		return status
	}
}
