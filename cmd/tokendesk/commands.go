package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"solana-token-desk/internal/action"
	"solana-token-desk/internal/api"
	"solana-token-desk/internal/domain"
	"solana-token-desk/internal/ledger"
	"solana-token-desk/internal/wallet"
)

func createMintCmd(flags *globalFlags) *cobra.Command {
	var (
		req    action.CreateMint
		supply string
	)
	cmd := &cobra.Command{
		Use:   "create-mint",
		Short: "Create a new token and mint its initial supply to the wallet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			amount, err := action.ParseAmount("initial_supply", supply)
			if err != nil {
				return err
			}
			req.InitialSupply = amount
			return execute(cmd, flags, req)
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Token name")
	cmd.Flags().StringVar(&req.Symbol, "symbol", "", "Token symbol")
	cmd.Flags().IntVar(&req.Decimals, "decimals", 9, "Token decimals (0-18)")
	cmd.Flags().StringVar(&supply, "supply", "", "Initial supply in display units")
	return cmd
}

func mintCmd(flags *globalFlags) *cobra.Command {
	var (
		req    action.MintMore
		amount string
	)
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint more of an existing token to the wallet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := action.ParseAmount("amount", amount)
			if err != nil {
				return err
			}
			req.Amount = d
			return execute(cmd, flags, req)
		},
	}
	cmd.Flags().StringVar(&req.Mint, "mint", "", "Mint address")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount in display units")
	return cmd
}

func transferCmd(flags *globalFlags) *cobra.Command {
	var (
		req      action.Transfer
		amount   string
		decimals int
	)
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Send tokens to another wallet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := action.ParseAmount("amount", amount)
			if err != nil {
				return err
			}
			req.Amount = d
			if cmd.Flags().Changed("decimals") {
				req.Decimals = &decimals
			}
			return execute(cmd, flags, req)
		},
	}
	cmd.Flags().StringVar(&req.Mint, "mint", "", "Mint address")
	cmd.Flags().StringVar(&req.Recipient, "to", "", "Recipient wallet address")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount in display units")
	cmd.Flags().IntVar(&decimals, "decimals", 0, "Expected mint decimals, checked before sending")
	return cmd
}

func execute(cmd *cobra.Command, flags *globalFlags, req action.Request) error {
	return withApp(cmd, flags, func(ctx context.Context, a *app) error {
		res, err := a.surface.Execute(ctx, req)
		if res != nil {
			printResult(cmd.OutOrStdout(), res, a.cfg.Cluster())
		}
		return err
	})
}

func printResult(w io.Writer, res *action.Result, cluster string) {
	if res.Kind == action.KindCreateMint {
		fmt.Fprintf(w, "mint:      %s\n", res.Address)
	}
	fmt.Fprintf(w, "signature: %s\n", res.Signature)
	if res.Slot > 0 {
		fmt.Fprintf(w, "slot:      %d\n", res.Slot)
	}
	rec := ledger.TransactionRecord{Signature: res.Signature}
	fmt.Fprintf(w, "explorer:  %s\n", rec.ExplorerURL(cluster))
}

// ownerOrWallet returns address, falling back to the connected wallet.
func ownerOrWallet(a *app, address string) (string, error) {
	if address != "" {
		return address, nil
	}
	pk, ok := a.wallet.PublicKey()
	if !ok {
		return "", action.ErrSignerUnavailable
	}
	return pk.ToBase58(), nil
}

func balanceCmd(flags *globalFlags) *cobra.Command {
	var mint, address string
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the SOL or token balance of an address",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				owner, err := ownerOrWallet(a, address)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if mint == "" {
					b, err := a.reader.GetSOLBalance(ctx, owner)
					if err != nil {
						return action.Classify(err, action.KindEndpointsExhausted)
					}
					fmt.Fprintf(w, "%s SOL\n", b.SOL().String())
					return nil
				}
				b, err := a.reader.GetTokenBalance(ctx, owner, mint)
				if err != nil {
					return action.Classify(err, action.KindEndpointsExhausted)
				}
				if !b.Exists {
					fmt.Fprintf(w, "0 (no token account for %s)\n", mint)
					return nil
				}
				fmt.Fprintf(w, "%s\n", b.Amount().String())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&mint, "mint", "", "Mint address, SOL when empty")
	cmd.Flags().StringVar(&address, "address", "", "Owner address, the wallet when empty")
	return cmd
}

func historyCmd(flags *globalFlags) *cobra.Command {
	var (
		address string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent transactions of an address",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				owner, err := ownerOrWallet(a, address)
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("limit") {
					limit = a.cfg.History.Limit
				}
				records, err := a.reader.ListRecentTransactions(ctx, owner, limit)
				if err != nil {
					return action.Classify(err, action.KindEndpointsExhausted)
				}
				w := cmd.OutOrStdout()
				for _, r := range records {
					status := "ok"
					if !r.Success {
						status = "failed"
					}
					when := "-"
					if r.BlockTime != nil {
						when = r.Time().UTC().Format(time.RFC3339)
					}
					fmt.Fprintf(w, "%s  %-6s  slot %-10d fee %-8d %s\n", when, status, r.Slot, r.Fee, r.Signature)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Address, the wallet when empty")
	cmd.Flags().IntVar(&limit, "limit", ledger.DefaultHistoryLimit, "Maximum number of transactions")
	return cmd
}

func statusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status <signature>",
		Short: "Check the on-chain status of a submitted transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				r, err := a.coord.CheckStatus(ctx, args[0])
				if err != nil {
					return err
				}
				printStatus(cmd.OutOrStdout(), r)
				return nil
			})
		},
	}
}

func printStatus(w io.Writer, r *action.StatusReport) {
	fmt.Fprintf(w, "%s  %-13s slot %-10d %s\n", r.Signature, r.State, r.Slot, r.ConfirmationStatus)
}

func journalCmd(flags *globalFlags) *cobra.Command {
	var (
		pending bool
		resolve bool
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show executed actions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				w := cmd.OutOrStdout()
				if resolve {
					reports, err := a.coord.ResolvePending(ctx)
					for _, r := range reports {
						printStatus(w, r)
					}
					return err
				}

				var (
					entries []*domain.JournalEntry
					err     error
				)
				if pending {
					entries, err = a.stores.journal.ListPending(ctx)
				} else {
					entries, err = a.stores.journal.ListRecent(ctx, limit)
				}
				if err != nil {
					return err
				}
				for _, e := range entries {
					sig := "-"
					if e.Signature != nil {
						sig = *e.Signature
					}
					started := time.UnixMilli(e.StartedAt).UTC().Format(time.RFC3339)
					fmt.Fprintf(w, "%s  %-11s %-13s %-44s %s  %s\n", started, e.Kind, e.State, e.Mint, e.Amount, sig)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "Only actions whose confirmation timed out")
	cmd.Flags().BoolVar(&resolve, "resolve", false, "Re-check pending actions on chain")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries")
	return cmd
}

func tokensCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tokens",
		Short: "List tokens created by the wallet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				owner, err := ownerOrWallet(a, "")
				if err != nil {
					return err
				}
				tokens, err := a.stores.metadata.ListByCreator(ctx, owner)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				for _, t := range tokens {
					fmt.Fprintf(w, "%-44s %-10s %-32s decimals=%d\n", t.Mint, t.Symbol, t.Name, t.Decimals)
				}
				return nil
			})
		},
	}
}

func endpointsCmd(flags *globalFlags) *cobra.Command {
	var window time.Duration
	cmd := &cobra.Command{
		Use:   "endpoints",
		Short: "Show RPC endpoints and recorded attempt stats",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				w := cmd.OutOrStdout()
				current := a.pool.Current()
				for i, ep := range a.pool.Endpoints() {
					marker := " "
					if ep == current {
						marker = "*"
					}
					fmt.Fprintf(w, "%s %d %s\n", marker, i, ep)
				}

				end := time.Now()
				stats, err := a.stores.attempts.StatsByEndpoint(ctx, end.Add(-window).UnixMilli(), end.UnixMilli())
				if err != nil {
					return err
				}
				for _, s := range stats {
					fmt.Fprintf(w, "%s  attempts=%d failures=%d avg_latency_ms=%.1f\n", s.Endpoint, s.Attempts, s.Failures, s.AvgLatencyMs)
				}
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&window, "window", 24*time.Hour, "Stats window")
	return cmd
}

func keygenCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new keypair file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			acc := types.NewAccount()
			if err := wallet.SaveKeypair(expandHome(out), acc); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), acc.PublicKey.ToBase58())
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output keypair path")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func serveCmd(flags *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the desk over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				if addr == "" {
					addr = a.cfg.Server.Addr
				}
				srv := api.NewServer(api.Deps{
					Wallet:    a.wallet,
					Reader:    a.reader,
					Actions:   a.surface,
					Status:    a.coord,
					Journal:   a.stores.journal,
					Metadata:  a.stores.metadata,
					Attempts:  a.stores.attempts,
					Endpoints: a.pool,
					Cluster:   a.cfg.Cluster(),
				}, a.logger)

				a.logger.Info("server starting", zap.String("addr", addr), zap.String("network", a.cfg.Network))
				if err := srv.ListenAndServe(ctx, addr); err != nil {
					return err
				}
				a.logger.Info("server stopped")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, server.addr when empty")
	return cmd
}
