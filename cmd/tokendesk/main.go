// Command tokendesk creates, mints and transfers SPL tokens and reads
// balances and history through a failover set of RPC endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"solana-token-desk/internal/action"
	"solana-token-desk/internal/config"
	"solana-token-desk/internal/logger"
	"solana-token-desk/internal/wallet"
)

type globalFlags struct {
	configPath string
	yes        bool
}

func main() {
	rootCmd := newRootCmd(&globalFlags{})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", userMessage(err))
		os.Exit(1)
	}
}

func newRootCmd(flags *globalFlags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tokendesk",
		Short:         "Create, mint and transfer SPL tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&flags.yes, "yes", "y", false, "Approve signature requests without prompting")

	rootCmd.AddCommand(
		createMintCmd(flags),
		mintCmd(flags),
		transferCmd(flags),
		balanceCmd(flags),
		historyCmd(flags),
		statusCmd(flags),
		journalCmd(flags),
		tokensCmd(flags),
		endpointsCmd(flags),
		keygenCmd(),
		serveCmd(flags),
	)
	return rootCmd
}

// userMessage prefers the classified text for action errors.
func userMessage(err error) string {
	var ae *action.Error
	if errors.As(err, &ae) {
		return ae.UserMessage()
	}
	if errors.Is(err, action.ErrBusy) {
		return "another action is in progress"
	}
	return err.Error()
}

// withApp loads configuration, builds the app and runs fn.
func withApp(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return action.Classify(err, action.KindConfiguration)
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return action.Classify(err, action.KindConfiguration)
	}
	defer log.Sync() //nolint:errcheck

	var approver wallet.Approver = &wallet.PromptApprover{In: os.Stdin, Out: os.Stderr}
	if flags.yes {
		approver = wallet.AutoApprove
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, log, approver)
	if err != nil {
		return err
	}
	defer a.Close()

	log.Debug("desk ready",
		zap.String("network", cfg.Network),
		zap.Strings("endpoints", cfg.RPC.Endpoints),
		zap.String("storage", cfg.Storage.Backend))
	return fn(ctx, a)
}
