package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "decoder",
		Short:        "Substrate extrinsic and event decoder",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Decode a block range and write correlated activity",
		RunE:  runScan,
	}

	scanCmd.Flags().String("rpc", "", "node RPC URL (ws or http)")
	scanCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	scanCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	scanCmd.Flags().Uint32("prefix", 42, "SS58 address prefix")
	scanCmd.Flags().Uint32("decimals", 12, "token decimals for amount display")
	scanCmd.Flags().String("symbol", "UNIT", "token symbol for amount display")
	scanCmd.Flags().Int("scan-limit", 4096, "call header scan limit in bytes")
	scanCmd.Flags().StringSlice("extra-scalar", nil, "wide scalar types, e.g. U512=64 (comma-separated)")
	scanCmd.Flags().Duration("timeout", 10*time.Second, "per-request timeout")
	scanCmd.Flags().String("out", "./data/activity.jsonl", "output JSONL path")
	scanCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL path")
	scanCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	scanCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	scanCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	scanCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	scanCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(scanCmd)

	blockCmd := &cobra.Command{
		Use:   "block",
		Short: "Decode a single block and print its activity as JSON",
		RunE:  runBlock,
	}

	blockCmd.Flags().String("rpc", "", "node RPC URL (ws or http)")
	blockCmd.Flags().Uint64("number", 0, "block number, 0 means latest")
	blockCmd.Flags().Uint32("prefix", 42, "SS58 address prefix")
	blockCmd.Flags().Uint32("decimals", 12, "token decimals for amount display")
	blockCmd.Flags().String("symbol", "UNIT", "token symbol for amount display")
	blockCmd.Flags().Int("scan-limit", 4096, "call header scan limit in bytes")
	blockCmd.Flags().StringSlice("extra-scalar", nil, "wide scalar types, e.g. U512=64 (comma-separated)")
	blockCmd.Flags().Duration("timeout", 10*time.Second, "per-request timeout")
	blockCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(blockCmd)

	extrinsicCmd := &cobra.Command{
		Use:   "extrinsic",
		Short: "Decode a hex extrinsic offline against a metadata file",
		RunE:  runExtrinsic,
	}

	extrinsicCmd.Flags().String("metadata", "", "path to hex-encoded runtime metadata")
	extrinsicCmd.Flags().String("data", "", "hex-encoded extrinsic bytes")
	extrinsicCmd.Flags().Uint32("prefix", 42, "SS58 address prefix")
	extrinsicCmd.Flags().Uint32("decimals", 12, "token decimals for amount display")
	extrinsicCmd.Flags().String("symbol", "UNIT", "token symbol for amount display")
	extrinsicCmd.Flags().Int("scan-limit", 4096, "call header scan limit in bytes")
	extrinsicCmd.Flags().StringSlice("extra-scalar", nil, "wide scalar types, e.g. U512=64 (comma-separated)")
	extrinsicCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(extrinsicCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
