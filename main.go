package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"auction-platform/internal/app"
	"auction-platform/internal/config"
	"auction-platform/utils"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "auction",
		Short:         "Auction registry, bid ledger, sweep and search read model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(backfillCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment; services, when given, replace SERVICES
func loadConfig(services ...string) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if len(services) > 0 {
		cfg.Services = services
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	utils.SetLogLevel(cfg.LogLevel)
	return cfg, nil
}

// run builds the app for cfg and calls fn with a context cancelled on SIGINT/SIGTERM
func run(cfg config.Config, fn func(ctx context.Context, a *app.App) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		utils.Error("startup failed", map[string]any{"error": err.Error()})
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			utils.Warn("shutdown: close failed", map[string]any{"error": err.Error()})
		}
	}()
	return fn(ctx, a)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve [services...]",
		Short: "Run the HTTP API and background workers (registry, bidding, search)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(args...)
			if err != nil {
				return err
			}
			return run(cfg, func(ctx context.Context, a *app.App) error {
				return a.Serve(ctx)
			})
		},
	}
}

func sweepCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Finish expired auctions and announce their results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(config.ServiceBidding)
			if err != nil {
				return err
			}
			return run(cfg, func(ctx context.Context, a *app.App) error {
				res, err := a.Sweep(ctx, once)
				if err != nil {
					return err
				}
				if once {
					utils.Info("sweep: single tick done", map[string]any{
						"finished":  res.Finished,
						"published": res.Published,
						"failed":    res.Failed,
					})
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Run a single sweep pass and exit")
	return cmd
}

func backfillCmd() *cobra.Command {
	var rebuild bool
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Reconcile the search read model with the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(config.ServiceSearch)
			if err != nil {
				return err
			}
			return run(cfg, func(ctx context.Context, a *app.App) error {
				applied, err := a.Backfill(ctx, rebuild)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %d auctions\n", applied)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Clear the read model and rebuild it from scratch")
	return cmd
}
