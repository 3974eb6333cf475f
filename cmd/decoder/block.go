package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"extrinsicScope/internal/chain"
	"extrinsicScope/internal/config"
	"extrinsicScope/internal/events"
	"extrinsicScope/internal/extrinsic"
	"extrinsicScope/internal/metadata"
	"extrinsicScope/internal/model"
)

func runBlock(cmd *cobra.Command, _ []string) error {
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
	number, _ := cmd.Flags().GetUint64("number")

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
	cfg = applyChainProperties(ctx, cfg, chainClient, cmd, logger)

	var blockHash string
	if cmd.Flags().Changed("number") {
		blockHash, err = chainClient.BlockHash(ctx, number)
	} else {
		blockHash, err = chainClient.LatestBlockHash(ctx)
	}
	if err != nil {
		return fmt.Errorf("resolve block: %w", err)
	}

	block, err := chainClient.BlockByHash(ctx, blockHash)
	if err != nil {
		return fmt.Errorf("fetch block: %w", err)
	}

	rawMeta, err := chainClient.Metadata(ctx, blockHash)
	if err != nil {
		return fmt.Errorf("fetch metadata: %w", err)
	}
	meta, err := metadata.Parse(rawMeta, metadata.ExtrasFor(genesis))
	if err != nil {
		return fmt.Errorf("parse metadata: %w", err)
	}

	prefix := cfg.Prefix
	if meta.SS58Prefix != nil {
		prefix = *meta.SS58Prefix
	}

	decoder := extrinsic.NewDecoder(extrinsic.Config{
		Table:     meta.CallIndex,
		Prefix:    prefix,
		Decimals:  cfg.Decimals,
		Symbol:    cfg.Symbol,
		ScanLimit: cfg.ScanLimit,
		Logger:    logger,
	})

	parsed := make([]model.ParsedExtrinsic, len(block.Extrinsics))
	for i, raw := range block.Extrinsics {
		parsed[i] = decoder.Decode(raw)
	}

	byIndex := decodeBlockEvents(ctx, chainClient, meta, prefix, cfg, blockHash, logger)

	activity := events.Correlate(block.Number, parsed, byIndex)

	out, err := json.MarshalIndent(activity, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func decodeBlockEvents(ctx context.Context, client *chain.Client, meta *metadata.Metadata, prefix uint16, cfg config.Config, blockHash string, logger *zap.Logger) map[uint32]*model.ExtrinsicEvents {
	raw, err := client.Events(ctx, blockHash)
	if err != nil {
		logger.Warn("events fetch failed", zap.String("block", blockHash), zap.Error(err))
		return nil
	}

	decoder, err := events.NewDecoder(events.Config{
		Meta:     meta,
		Prefix:   prefix,
		Decimals: cfg.Decimals,
		Symbol:   cfg.Symbol,
		Logger:   logger,
	})
	if err != nil {
		logger.Warn("event decoder unavailable", zap.Error(err))
		return nil
	}

	byIndex, err := decoder.DecodeBlockEvents(raw)
	if err != nil {
		logger.Warn("event decode failed", zap.String("block", blockHash), zap.Error(err))
		return nil
	}
	return byIndex
}
