package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/bankledger/internal/adapter/http/dto"
)

// errInconsistent makes `ledger reconcile` exit non-zero when balances drift.
var errInconsistent = errors.New("ledger is not consistent")

type rootOptions struct {
	baseURL  string
	timeout  time.Duration
	retryFor time.Duration
	idemKey  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "bankledger-cli",
		Short:         "Bank ledger CLI tool",
		Long:          `A command line interface for interacting with the bank ledger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the ledger API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().DurationVar(&opts.retryFor, "retry-for", 5*time.Second, "How long to retry requests the server reports as busy")
	rootCmd.PersistentFlags().StringVar(&opts.idemKey, "idempotency-key", "", "Idempotency key sent with mutating requests")

	rootCmd.AddCommand(
		accountsCmd(opts),
		depositCmd(opts),
		withdrawCmd(opts),
		transferCmd(opts),
		transactionsCmd(opts),
		operatorCmd(opts),
		balanceCmd(opts),
		ledgerCmd(opts),
	)

	return rootCmd
}

func (o *rootOptions) client() *apiClient {
	return newAPIClient(o.baseURL, o.timeout, o.retryFor)
}

func accountsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Account operations",
	}

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an account with a zero balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var acc dto.AccountResponse
			if err := opts.client().post(cmd.Context(), "/api/v1/accounts", dto.CreateAccountRequest{Name: args[0]}, opts.idemKey, &acc); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), acc)
		},
	}

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var acc dto.AccountResponse
			if err := opts.client().get(cmd.Context(), "/api/v1/accounts/"+url.PathEscape(args[0]), nil, &acc); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), acc)
		},
	}

	find := &cobra.Command{
		Use:   "find PATTERN",
		Short: "Show the earliest account whose name contains PATTERN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var acc dto.AccountResponse
			query := url.Values{"name": {args[0]}}
			if err := opts.client().get(cmd.Context(), "/api/v1/accounts/search", query, &acc); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), acc)
		},
	}

	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.ListAccountsResponse
			query := url.Values{
				"limit":  {strconv.Itoa(limit)},
				"offset": {strconv.Itoa(offset)},
			}
			if err := opts.client().get(cmd.Context(), "/api/v1/accounts", query, &resp); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, acc := range resp.Accounts {
				fmt.Fprintf(w, "%s\t%s\t%s\n", acc.ID, truncate(acc.Name, 30), acc.Balance)
			}
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "Maximum number of accounts")
	list.Flags().IntVar(&offset, "offset", 0, "Number of accounts to skip")

	cmd.AddCommand(create, get, find, list)
	return cmd
}

func depositCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deposit ACCOUNT_ID AMOUNT",
		Short: "Credit an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return amountCommand(cmd, opts, args[0], "deposit", args[1])
		},
	}
}

func withdrawCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw ACCOUNT_ID AMOUNT",
		Short: "Debit an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return amountCommand(cmd, opts, args[0], "withdraw", args[1])
		},
	}
}

func amountCommand(cmd *cobra.Command, opts *rootOptions, accountID, action, amount string) error {
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	body := dto.AmountRequest{Amount: value}

	var record dto.TransactionResponse
	path := "/api/v1/accounts/" + url.PathEscape(accountID) + "/" + action
	if err := opts.client().post(cmd.Context(), path, body, opts.idemKey, &record); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), record)
}

func transferCmd(opts *rootOptions) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "transfer FROM_ID TO_ID AMOUNT",
		Short: "Move funds between two accounts",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[2], err)
			}
			body := dto.CreateTransferRequest{
				FromAccountID: args[0],
				ToAccountID:   args[1],
				Amount:        amount,
				Type:          kind,
			}

			var result dto.TransferResponse
			if err := opts.client().post(cmd.Context(), "/api/v1/transfers", body, opts.idemKey, &result); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&kind, "type", "TRANSFER", "Transfer type: TRANSFER, TRANSFER_OUT or TRANSFER_IN")

	return cmd
}

func transactionsCmd(opts *rootOptions) *cobra.Command {
	var accountID, operator, start, end string
	var page, size int

	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List transactions, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			setIf(query, "account_id", accountID)
			setIf(query, "operator", operator)
			setIf(query, "start", start)
			setIf(query, "end", end)
			if cmd.Flags().Changed("page") || cmd.Flags().Changed("size") {
				query.Set("page", strconv.Itoa(page))
				query.Set("size", strconv.Itoa(size))
			}

			var resp dto.TransactionPageResponse
			if err := opts.client().get(cmd.Context(), "/api/v1/transactions", query, &resp); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, tx := range resp.Items {
				fmt.Fprintf(w, "%s\t%s\t%-12s\t%12s\t%s\n",
					tx.CreatedAt.Format(time.RFC3339), tx.AccountID, tx.Operation, tx.Amount, truncate(tx.OperatorName, 30))
			}
			fmt.Fprintf(w, "page %d/%d, %d total\n", resp.Page+1, max(resp.TotalPages, 1), resp.TotalItems)
			return nil
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "Only this account")
	cmd.Flags().StringVar(&operator, "operator", "", "Operator name contains")
	cmd.Flags().StringVar(&start, "start", "", "First day, YYYY-MM-DD or dd/MM/yyyy")
	cmd.Flags().StringVar(&end, "end", "", "Last day, YYYY-MM-DD or dd/MM/yyyy")
	cmd.Flags().IntVar(&page, "page", 0, "Zero-based page number")
	cmd.Flags().IntVar(&size, "size", 20, "Page size")

	return cmd
}

func operatorCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "operator NAME",
		Short: "Show when an operator first and last appears",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.OperatorActivityResponse
			if err := opts.client().get(cmd.Context(), "/api/v1/transactions/operators/"+url.PathEscape(args[0]), nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
}

func balanceCmd(opts *rootOptions) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "balance NAME",
		Short: "Replay the balance of accounts whose name contains NAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{"name": {args[0]}}
			setIf(query, "start", start)
			setIf(query, "end", end)

			var resp dto.BalanceResponse
			if err := opts.client().get(cmd.Context(), "/api/v1/balance", query, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "First day, YYYY-MM-DD or dd/MM/yyyy")
	cmd.Flags().StringVar(&end, "end", "", "Last day, YYYY-MM-DD or dd/MM/yyyy")

	return cmd
}

func ledgerCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	reconcile := &cobra.Command{
		Use:   "reconcile",
		Short: "Check every stored balance against the transaction log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var report dto.ReconciliationReportResponse
			if err := opts.client().get(cmd.Context(), "/api/v1/ledger/reconciliation", nil, &report); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Accounts checked: %d, reconciled: %d\n", report.TotalAccounts, report.ReconciledAccounts)
			for _, d := range report.Discrepancies {
				fmt.Fprintf(w, "  %s (%s): recorded %s, calculated %s, difference %s\n",
					d.AccountID, truncate(d.AccountName, 30), d.RecordedBalance, d.CalculatedBalance, d.Difference)
			}

			if !report.LedgerConsistent {
				fmt.Fprintln(w, "Reconciliation FAILED")
				return errInconsistent
			}
			fmt.Fprintln(w, "Reconciliation PASSED")
			return nil
		},
	}

	cmd.AddCommand(reconcile)
	return cmd
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
