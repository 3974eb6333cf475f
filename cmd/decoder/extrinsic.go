package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"extrinsicScope/internal/config"
	"extrinsicScope/internal/extrinsic"
	"extrinsicScope/internal/metadata"
)

// runExtrinsic decodes a single hex extrinsic offline, against a metadata
// blob read from disk instead of a live node.
func runExtrinsic(cmd *cobra.Command, args []string) error {
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

	metadataPath, _ := cmd.Flags().GetString("metadata")
	if metadataPath == "" {
		return fmt.Errorf("metadata path is required")
	}

	data, _ := cmd.Flags().GetString("data")
	if data == "" && len(args) > 0 {
		data = args[0]
	}
	if data == "" {
		return fmt.Errorf("extrinsic data is required")
	}

	rawMeta, err := readHexFile(metadataPath)
	if err != nil {
		return fmt.Errorf("read metadata: %w", err)
	}

	scalars := make([]metadata.WideScalar, 0, len(cfg.ExtraScalars))
	for _, spec := range cfg.ExtraScalars {
		scalar, err := metadata.ParseWideScalar(spec)
		if err != nil {
			return fmt.Errorf("extra-scalar %q: %w", spec, err)
		}
		scalars = append(scalars, scalar)
	}

	meta, err := metadata.Parse(rawMeta, scalars)
	if err != nil {
		return fmt.Errorf("parse metadata: %w", err)
	}

	prefix := cfg.Prefix
	if meta.SS58Prefix != nil {
		prefix = *meta.SS58Prefix
	}

	raw, err := decodeHexString(data)
	if err != nil {
		return fmt.Errorf("decode extrinsic hex: %w", err)
	}

	decoder := extrinsic.NewDecoder(extrinsic.Config{
		Table:     meta.CallIndex,
		Prefix:    prefix,
		Decimals:  cfg.Decimals,
		Symbol:    cfg.Symbol,
		ScanLimit: cfg.ScanLimit,
		Logger:    logger,
	})

	parsed := decoder.Decode(raw)

	out, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func readHexFile(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeHexString(string(content))
}

func decodeHexString(input string) ([]byte, error) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "0x") {
		input = "0x" + input
	}
	return hexutil.Decode(input)
}
