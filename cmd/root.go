// Package cmd defines and implements the CLI commands for the boe-sumario
// executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/boe-sumario-crawler/internal/logging"
	"github.com/JakeFAU/boe-sumario-crawler/pkg/config"
)

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boe-sumario",
		Short: "Builds a yearly dataset from the BOE daily summaries.",
		Long: `boe-sumario walks every daily summary (sumario) of the Spanish
Official State Gazette for a year, flattens the announced items into JSON Lines,
tags each one with a coarse theme, and can attach the clean text of every
document.`,
		SilenceUsage: true,

		// Runs after cobra.OnInitialize has loaded the configuration.
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := logging.InitLogger(viper.GetBool("logging.development")); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = logging.L.Sync()
		},
	}

	cobra.OnInitialize(config.InitConfig)

	cmd.PersistentFlags().StringVar(&config.ConfigFile, "config", "",
		"config file (default searches ./config.yaml, /etc/boe-sumario/, $HOME/.boe-sumario)")

	cmd.AddCommand(newIngestCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logging.L.Error("Command execution failed", zap.Error(err))
		stop()
		os.Exit(1)
	}
}
