package chain

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// DefaultTimeout bounds each node request. The context deadline settles the
// call exactly once: a late response after the timeout fires is discarded by
// the transport, never delivered as a second completion.
const DefaultTimeout = 10 * time.Second

// Client wraps a JSON-RPC connection to a chain node.
type Client struct {
	rpcClient *rpc.Client
	timeout   time.Duration
}

// NewClient connects to a node over ws or http.
func NewClient(ctx context.Context, url string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rpcClient, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Client{rpcClient: rpcClient, timeout: timeout}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

func (c *Client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.rpcClient.CallContext(callCtx, result, method, args...); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// RuntimeVersion identifies the runtime executing at a block.
type RuntimeVersion struct {
	SpecName    string `json:"specName"`
	SpecVersion uint32 `json:"specVersion"`
}

// Metadata fetches the raw runtime metadata blob at a block hash (empty for
// the latest).
func (c *Client) Metadata(ctx context.Context, blockHash string) ([]byte, error) {
	var encoded string
	if err := c.call(ctx, &encoded, "state_getMetadata", optionalHash(blockHash)...); err != nil {
		return nil, err
	}
	raw, err := hexutil.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("state_getMetadata: %w", err)
	}
	return raw, nil
}

// RuntimeVersionAt fetches the runtime version at a block hash.
func (c *Client) RuntimeVersionAt(ctx context.Context, blockHash string) (RuntimeVersion, error) {
	var version RuntimeVersion
	if err := c.call(ctx, &version, "state_getRuntimeVersion", optionalHash(blockHash)...); err != nil {
		return RuntimeVersion{}, err
	}
	return version, nil
}

// GenesisHash returns the hash of block zero, the chain's identity.
func (c *Client) GenesisHash(ctx context.Context) (string, error) {
	return c.BlockHash(ctx, 0)
}

// BlockHash resolves a block number to its hash.
func (c *Client) BlockHash(ctx context.Context, number uint64) (string, error) {
	var hash string
	if err := c.call(ctx, &hash, "chain_getBlockHash", hexutil.EncodeUint64(number)); err != nil {
		return "", err
	}
	if hash == "" {
		return "", fmt.Errorf("chain_getBlockHash: block %d not found", number)
	}
	return hash, nil
}

// LatestBlockHash returns the head block hash.
func (c *Client) LatestBlockHash(ctx context.Context) (string, error) {
	var hash string
	if err := c.call(ctx, &hash, "chain_getBlockHash"); err != nil {
		return "", err
	}
	return hash, nil
}

// Block is one fetched block: its number and the raw bytes of each
// extrinsic.
type Block struct {
	Hash       string
	Number     uint64
	Extrinsics [][]byte
}

type signedBlockResult struct {
	Block struct {
		Header struct {
			Number string `json:"number"`
		} `json:"header"`
		Extrinsics []string `json:"extrinsics"`
	} `json:"block"`
}

// BlockByHash fetches a block and decodes its extrinsic hex strings into raw
// bytes.
func (c *Client) BlockByHash(ctx context.Context, hash string) (Block, error) {
	var result signedBlockResult
	if err := c.call(ctx, &result, "chain_getBlock", hash); err != nil {
		return Block{}, err
	}
	return parseSignedBlock(hash, result)
}

// parseSignedBlock converts a chain_getBlock response into a Block: the hex
// header number becomes a uint64 and each extrinsic hex string raw bytes.
func parseSignedBlock(hash string, result signedBlockResult) (Block, error) {
	number, err := strconv.ParseUint(strings.TrimPrefix(result.Block.Header.Number, "0x"), 16, 64)
	if err != nil {
		return Block{}, fmt.Errorf("chain_getBlock: parse number %q: %w", result.Block.Header.Number, err)
	}

	block := Block{Hash: hash, Number: number}
	for i, encoded := range result.Block.Extrinsics {
		raw, err := hexutil.Decode(encoded)
		if err != nil {
			return Block{}, fmt.Errorf("chain_getBlock: extrinsic %d: %w", i, err)
		}
		block.Extrinsics = append(block.Extrinsics, raw)
	}
	return block, nil
}

// Events fetches the raw event-record vector for a block from the
// well-known System.Events storage key.
func (c *Client) Events(ctx context.Context, blockHash string) ([]byte, error) {
	var encoded *string
	if err := c.call(ctx, &encoded, "state_getStorage", systemEventsKey(), blockHash); err != nil {
		return nil, err
	}
	if encoded == nil {
		return nil, fmt.Errorf("state_getStorage: no events at %s", blockHash)
	}
	raw, err := hexutil.Decode(*encoded)
	if err != nil {
		return nil, fmt.Errorf("state_getStorage: %w", err)
	}
	return raw, nil
}

// Properties are the chain's advertised display parameters. Every field is
// optional; nodes report them in system_properties.
type Properties struct {
	SS58Format    *uint16 `json:"ss58Format"`
	TokenDecimals *uint32 `json:"tokenDecimals"`
	TokenSymbol   *string `json:"tokenSymbol"`
}

// Properties fetches the chain's display properties.
func (c *Client) Properties(ctx context.Context) (Properties, error) {
	var props Properties
	if err := c.call(ctx, &props, "system_properties"); err != nil {
		return Properties{}, err
	}
	return props, nil
}

// systemEventsKey derives the System.Events storage key:
// twox128("System") ++ twox128("Events").
func systemEventsKey() string {
	key := append(twox128([]byte("System")), twox128([]byte("Events"))...)
	return "0x" + hex.EncodeToString(key)
}

// twox128 is two seeded xxhash64 passes over the input, little-endian
// concatenated.
func twox128(data []byte) []byte {
	out := make([]byte, 16)
	for seed := 0; seed < 2; seed++ {
		digest := xxhash.NewWithSeed(uint64(seed))
		digest.Write(data)
		sum := digest.Sum64()
		for i := 0; i < 8; i++ {
			out[seed*8+i] = byte(sum >> (8 * i))
		}
	}
	return out
}

func optionalHash(blockHash string) []interface{} {
	if blockHash == "" {
		return nil
	}
	return []interface{}{blockHash}
}
