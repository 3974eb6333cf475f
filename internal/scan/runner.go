package scan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"extrinsicScope/internal/chain"
	"extrinsicScope/internal/events"
	"extrinsicScope/internal/extrinsic"
	"extrinsicScope/internal/metadata"
	"extrinsicScope/internal/model"
	"extrinsicScope/internal/storage"
)

// RunConfig holds runtime settings for a block-range scan.
type RunConfig struct {
	FromBlock         uint64
	ToBlock           uint64
	Prefix            uint16
	Decimals          uint32
	Symbol            string
	ScanLimit         int
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Runner walks a block range, decodes each block's extrinsics and events,
// and writes the correlated activity to storage.
type Runner struct {
	cfg        RunConfig
	chain      *chain.Client
	storage    storage.Storage
	cache      *metadata.Cache
	logger     *zap.Logger
	checkpoint *CheckpointStore
}

// NewRunner builds a Runner with its dependencies. The metadata cache is
// injected so runtime upgrades inside the range reuse parsed metadata per
// spec version.
func NewRunner(cfg RunConfig, chainClient *chain.Client, storageSink storage.Storage, cache *metadata.Cache, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = metadata.NewCache()
	}
	return &Runner{
		cfg:        cfg,
		chain:      chainClient,
		storage:    storageSink,
		cache:      cache,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run executes the scan loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.storage == nil {
		return fmt.Errorf("storage is nil")
	}

	genesis, err := r.chain.GenesisHash(ctx)
	if err != nil {
		return fmt.Errorf("genesis hash: %w", err)
	}

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		head, err := r.latestNumber(ctx)
		if err != nil {
			return fmt.Errorf("latest block: %w", err)
		}
		to = head
	}

	var failedTotal uint64
	if r.checkpoint != nil {
		cp, ok, err := r.checkpoint.Load()
		if err != nil {
			return err
		}
		if ok && cp.LastDecodedBlock >= from {
			from = cp.LastDecodedBlock + 1
			failedTotal = cp.FailedExtrinsics
			r.logger.Info("resume from checkpoint",
				zap.Uint64("last_decoded", cp.LastDecodedBlock),
				zap.Uint64("failed_extrinsics", cp.FailedExtrinsics),
				zap.Uint64("from", from))
		}
	}

	if from > to {
		r.logger.Info("nothing to decode", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	for height := from; height <= to; height++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		failed, err := r.decodeBlock(ctx, genesis, height)
		if err != nil {
			return fmt.Errorf("block %d: %w", height, err)
		}
		failedTotal += uint64(failed)

		if r.checkpoint != nil {
			if err := r.checkpoint.Save(height, failedTotal); err != nil {
				return err
			}
		}
	}

	return nil
}

// decodeBlock decodes one block end to end and returns the number of
// extrinsics that could not be decoded.
func (r *Runner) decodeBlock(ctx context.Context, genesis string, height uint64) (int, error) {
	var blockHash string
	err := withRetry(ctx, r.logger, "chain_getBlockHash", r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		blockHash, err = r.chain.BlockHash(ctx, height)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("block hash: %w", err)
	}

	var block chain.Block
	err = withRetry(ctx, r.logger, "chain_getBlock", r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		block, err = r.chain.BlockByHash(ctx, blockHash)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("fetch block: %w", err)
	}

	meta, err := r.metadataFor(ctx, genesis, blockHash)
	if err != nil {
		return 0, err
	}

	prefix := r.cfg.Prefix
	if meta.SS58Prefix != nil {
		prefix = *meta.SS58Prefix
	}

	decoder := extrinsic.NewDecoder(extrinsic.Config{
		Table:     meta.CallIndex,
		Prefix:    prefix,
		Decimals:  r.cfg.Decimals,
		Symbol:    r.cfg.Symbol,
		ScanLimit: r.cfg.ScanLimit,
		Logger:    r.logger,
	})

	// Extrinsics within a block have no data dependency on each other.
	parsed := make([]model.ParsedExtrinsic, len(block.Extrinsics))
	var wg sync.WaitGroup
	for i, raw := range block.Extrinsics {
		wg.Add(1)
		go func(i int, raw []byte) {
			defer wg.Done()
			parsed[i] = decoder.Decode(raw)
		}(i, raw)
	}
	wg.Wait()

	var decodeErrs []model.DecodeError
	for i, p := range parsed {
		if p.Ok {
			continue
		}
		decodeErrs = append(decodeErrs, model.DecodeError{
			BlockNumber:    block.Number,
			ExtrinsicIndex: uint32(i),
			Stage:          "extrinsic",
			Error:          "undecodable extrinsic body",
		})
	}
	failed := len(decodeErrs)

	byIndex, eventsErr := r.decodeEvents(ctx, meta, prefix, blockHash)
	if eventsErr != nil {
		r.logger.Warn("events unavailable, activity has no event attribution",
			zap.Uint64("height", block.Number), zap.Error(eventsErr))
		decodeErrs = append(decodeErrs, model.DecodeError{
			BlockNumber: block.Number,
			Stage:       "events",
			Error:       eventsErr.Error(),
		})
	}

	activity := events.Correlate(block.Number, parsed, byIndex)
	if err := r.storage.PutActivityBatch(activity); err != nil {
		return 0, fmt.Errorf("store activity: %w", err)
	}
	if err := r.storage.PutDecodeErrors(decodeErrs); err != nil {
		return 0, fmt.Errorf("store decode errors: %w", err)
	}

	r.logger.Info("block decoded",
		zap.Uint64("height", block.Number),
		zap.Int("extrinsics", len(parsed)),
		zap.Int("failed", failed),
		zap.Int("indexes_with_events", len(byIndex)),
	)

	return failed, nil
}

// metadataFor resolves parsed metadata through the cache, keyed by genesis
// hash and spec version. A failed build is returned without being cached.
func (r *Runner) metadataFor(ctx context.Context, genesis, blockHash string) (*metadata.Metadata, error) {
	var version chain.RuntimeVersion
	err := withRetry(ctx, r.logger, "state_getRuntimeVersion", r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		version, err = r.chain.RuntimeVersionAt(ctx, blockHash)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("runtime version: %w", err)
	}

	if meta, ok := r.cache.Get(genesis, version.SpecVersion); ok {
		return meta, nil
	}

	var raw []byte
	err = withRetry(ctx, r.logger, "state_getMetadata", r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		raw, err = r.chain.Metadata(ctx, blockHash)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}

	meta, err := metadata.Parse(raw, metadata.ExtrasFor(genesis))
	if err != nil {
		return nil, fmt.Errorf("spec version %d: %w", version.SpecVersion, err)
	}

	r.cache.Put(genesis, version.SpecVersion, meta)
	r.logger.Info("metadata parsed",
		zap.String("spec_name", version.SpecName),
		zap.Uint32("spec_version", version.SpecVersion),
		zap.Int("pallets_with_calls", len(meta.CallIndex)),
	)
	return meta, nil
}

// decodeEvents fetches and decodes the block's events. A failure leaves the
// block without event attribution rather than aborting the scan; the caller
// records it as a decode error.
func (r *Runner) decodeEvents(ctx context.Context, meta *metadata.Metadata, prefix uint16, blockHash string) (map[uint32]*model.ExtrinsicEvents, error) {
	var raw []byte
	err := withRetry(ctx, r.logger, "state_getStorage", r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		raw, err = r.chain.Events(ctx, blockHash)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}

	decoder, err := events.NewDecoder(events.Config{
		Meta:     meta,
		Prefix:   prefix,
		Decimals: r.cfg.Decimals,
		Symbol:   r.cfg.Symbol,
		Logger:   r.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("event decoder: %w", err)
	}

	byIndex, err := decoder.DecodeBlockEvents(raw)
	if err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return byIndex, nil
}

func (r *Runner) latestNumber(ctx context.Context) (uint64, error) {
	hash, err := r.chain.LatestBlockHash(ctx)
	if err != nil {
		return 0, err
	}
	block, err := r.chain.BlockByHash(ctx, hash)
	if err != nil {
		return 0, err
	}
	return block.Number, nil
}
