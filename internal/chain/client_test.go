package chain

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestSystemEventsKey(t *testing.T) {
	// Well-known storage key for System.Events.
	const want = "0x26aa394eea5630e07c48ae0c9558cef780d41e5e16056765bc8461851072c9d7"
	if got := systemEventsKey(); got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestParseSignedBlock(t *testing.T) {
	payload := `{"block":{"header":{"number":"0x2a"},"extrinsics":["0x0c040007","0x04ff"]}}`

	var result signedBlockResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	block, err := parseSignedBlock("0xabc", result)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if block.Number != 42 {
		t.Fatalf("number: got %d want 42", block.Number)
	}
	if block.Hash != "0xabc" {
		t.Fatalf("hash: got %s", block.Hash)
	}
	if len(block.Extrinsics) != 2 {
		t.Fatalf("extrinsics: got %d want 2", len(block.Extrinsics))
	}
	if !bytes.Equal(block.Extrinsics[0], []byte{0x0c, 0x04, 0x00, 0x07}) {
		t.Fatalf("extrinsic 0: got %x", block.Extrinsics[0])
	}
	if !bytes.Equal(block.Extrinsics[1], []byte{0x04, 0xff}) {
		t.Fatalf("extrinsic 1: got %x", block.Extrinsics[1])
	}
}

func TestParseSignedBlockRejectsBadInput(t *testing.T) {
	var result signedBlockResult
	result.Block.Header.Number = "0xzz"
	if _, err := parseSignedBlock("0xabc", result); err == nil {
		t.Fatalf("expected error for malformed block number")
	}

	result.Block.Header.Number = "0x1"
	result.Block.Extrinsics = []string{"nothex"}
	if _, err := parseSignedBlock("0xabc", result); err == nil {
		t.Fatalf("expected error for malformed extrinsic hex")
	}
}
