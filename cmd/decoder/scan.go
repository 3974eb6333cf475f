package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"extrinsicScope/internal/chain"
	"extrinsicScope/internal/config"
	"extrinsicScope/internal/metadata"
	"extrinsicScope/internal/scan"
	"extrinsicScope/internal/storage"
)

func runScan(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, cfg.Timeout)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	genesis, err := chainClient.GenesisHash(ctx)
	if err != nil {
		return fmt.Errorf("genesis hash: %w", err)
	}

	if err := registerExtraScalars(genesis, cfg.ExtraScalars); err != nil {
		return err
	}

	// Flags win over node-advertised display properties.
	cfg = applyChainProperties(ctx, cfg, chainClient, cmd, logger)

	storageSink := storage.NewJsonlStorage(cfg.Out, cfg.Errors)

	runner := scan.NewRunner(scan.RunConfig{
		FromBlock:         cfg.FromBlock,
		ToBlock:           cfg.ToBlock,
		Prefix:            cfg.Prefix,
		Decimals:          cfg.Decimals,
		Symbol:            cfg.Symbol,
		ScanLimit:         cfg.ScanLimit,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, chainClient, storageSink, metadata.NewCache(), logger)

	logger.Info("scan start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("genesis", genesis),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint16("prefix", cfg.Prefix),
		zap.Uint32("decimals", cfg.Decimals),
		zap.String("symbol", cfg.Symbol),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	return runner.Run(ctx)
}

func registerExtraScalars(genesis string, specs []string) error {
	if len(specs) == 0 {
		return nil
	}
	scalars := make([]metadata.WideScalar, 0, len(specs))
	for _, spec := range specs {
		scalar, err := metadata.ParseWideScalar(spec)
		if err != nil {
			return fmt.Errorf("extra-scalar %q: %w", spec, err)
		}
		scalars = append(scalars, scalar)
	}
	metadata.RegisterExtras(genesis, scalars)
	return nil
}

func applyChainProperties(ctx context.Context, cfg config.Config, client *chain.Client, cmd *cobra.Command, logger *zap.Logger) config.Config {
	props, err := client.Properties(ctx)
	if err != nil {
		logger.Warn("system_properties unavailable", zap.Error(err))
		return cfg
	}

	if !cmd.Flags().Changed("prefix") && props.SS58Format != nil {
		cfg.Prefix = *props.SS58Format
	}
	if !cmd.Flags().Changed("decimals") && props.TokenDecimals != nil {
		cfg.Decimals = *props.TokenDecimals
	}
	if !cmd.Flags().Changed("symbol") && props.TokenSymbol != nil {
		cfg.Symbol = *props.TokenSymbol
	}
	return cfg
}
