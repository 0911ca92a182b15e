package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type accountPayload struct {
	ID          int64  `json:"id"`
	AccountCode string `json:"account_code"`
	Email       string `json:"email"`
	CreatedAt   string `json:"created_at"`
}

func newAccountsCommand(ctx *commandContext) *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage the account pool",
	}
	accountsCmd.AddCommand(
		newAccountsListCommand(ctx),
		newAccountsAddCommand(ctx),
		newAccountsRemoveCommand(ctx),
	)
	return accountsCmd
}

func newAccountsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pooled accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var payload struct {
				Accounts []accountPayload `json:"accounts"`
			}
			if err := client.get("/api/accounts", &payload); err != nil {
				return err
			}

			rows := make([][]string, 0, len(payload.Accounts))
			for _, account := range payload.Accounts {
				rows = append(rows, []string{account.AccountCode, account.Email, account.CreatedAt})
			}
			fmt.Println(renderTable([]string{"Account", "Email", "Added"}, rows))
			fmt.Printf("%d account(s)\n", len(payload.Accounts))
			return nil
		},
	}
}

func newAccountsAddCommand(ctx *commandContext) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "add <account-code>",
		Short: "Add an account to the pool, or update its credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			payload := map[string]string{
				"account_code": args[0],
				"email":        email,
				"password":     password,
			}
			var account accountPayload
			if err := client.post("/api/accounts", payload, &account); err != nil {
				return err
			}
			fmt.Printf("Account %s saved\n", account.AccountCode)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Login email")
	cmd.Flags().StringVar(&password, "password", "", "Login password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newAccountsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <account-code>",
		Short: "Remove an account from the pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.delete("/api/accounts/"+args[0], nil); err != nil {
				return err
			}
			fmt.Printf("Account %s removed\n", args[0])
			return nil
		},
	}
}
