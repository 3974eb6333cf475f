package metadata

import (
	"testing"

	"extrinsicScope/internal/scale/scaletest"
)

// blobWriter assembles a synthetic v14 metadata blob for tests.
type blobWriter struct {
	buf []byte
}

func (w *blobWriter) compact(v uint64) *blobWriter {
	w.buf = scaletest.AppendCompactUint(w.buf, v)
	return w
}

func (w *blobWriter) text(s string) *blobWriter {
	w.buf = scaletest.AppendText(w.buf, s)
	return w
}

func (w *blobWriter) byte(b byte) *blobWriter {
	w.buf = append(w.buf, b)
	return w
}

func (w *blobWriter) bytes(b []byte) *blobWriter {
	w.buf = append(w.buf, b...)
	return w
}

func (w *blobWriter) none() *blobWriter { return w.byte(0) }
func (w *blobWriter) some() *blobWriter { return w.byte(1) }

// typeHeader writes id, path, and an empty params vec.
func (w *blobWriter) typeHeader(id uint64, path ...string) *blobWriter {
	w.compact(id)
	w.compact(uint64(len(path)))
	for _, p := range path {
		w.text(p)
	}
	return w.compact(0)
}

// docs writes an empty docs vec.
func (w *blobWriter) docs() *blobWriter { return w.compact(0) }

// field writes an unnamed field referencing a type id.
func (w *blobWriter) field(typeID uint64) *blobWriter {
	return w.none().compact(typeID).none().docs()
}

func buildTestMetadata(t *testing.T) []byte {
	t.Helper()

	w := &blobWriter{}
	w.bytes([]byte("meta")).byte(14)

	w.compact(9) // type count

	// 0: u8
	w.typeHeader(0).byte(5).byte(uint8(PrimU8)).docs()
	// 1: [u8; 32]
	w.typeHeader(1).byte(3)
	w.bytes([]byte{32, 0, 0, 0})
	w.compact(0).docs()
	// 2: AccountId32 newtype composite
	w.typeHeader(2, "sp_core", "crypto", "AccountId32").byte(0)
	w.compact(1).field(1)
	w.docs()
	// 3: u128
	w.typeHeader(3).byte(5).byte(uint8(PrimU128)).docs()
	// 4: System calls variant: remark(0), set_code(1)
	w.typeHeader(4, "frame_system", "pallet", "Call").byte(1)
	w.compact(2)
	w.text("remark").compact(0).byte(0).docs()
	w.text("set_code").compact(0).byte(1).docs()
	w.docs()
	// 5: compact<u128>
	w.typeHeader(5).byte(6).compact(3).docs()
	// 6: Balances calls variant: transfer(0), transfer_keep_alive(1)
	w.typeHeader(6, "pallet_balances", "pallet", "Call").byte(1)
	w.compact(2)
	w.text("transfer").compact(2).field(2).field(5).byte(0).docs()
	w.text("transfer_keep_alive").compact(2).field(2).field(5).byte(1).docs()
	w.docs()
	// 7: Balances event variant: Transfer(2){from, to, amount}
	w.typeHeader(7, "pallet_balances", "pallet", "Event").byte(1)
	w.compact(1)
	w.text("Transfer").compact(3).field(2).field(2).field(3).byte(2).docs()
	w.docs()
	// 8: System event variant: ExtrinsicSuccess(0)
	w.typeHeader(8, "frame_system", "pallet", "Event").byte(1)
	w.compact(1)
	w.text("ExtrinsicSuccess").compact(0).byte(0).docs()
	w.docs()

	w.compact(2) // pallet count

	// System, index 0
	w.text("System")
	w.none()              // storage
	w.some().compact(4)   // calls
	w.some().compact(8)   // event
	w.compact(1)          // constants
	w.text("SS58Prefix").compact(0).compact(2).bytes([]byte{42, 0}).docs()
	w.none()   // errors
	w.byte(0)  // index

	// Balances, index 5
	w.text("Balances")
	w.none()
	w.some().compact(6)
	w.some().compact(7)
	w.compact(0)
	w.none()
	w.byte(5)

	return w.buf
}

func TestParseBuildsCallIndexTable(t *testing.T) {
	meta, err := Parse(buildTestMetadata(t), nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(meta.CallIndex) != 2 {
		t.Fatalf("want 2 pallets with calls, got %d", len(meta.CallIndex))
	}

	system, ok := meta.CallIndex[0]
	if !ok {
		t.Fatalf("missing System pallet")
	}
	if system.Name != "System" || system.CallCount != 2 {
		t.Fatalf("system info mismatch: %+v", system)
	}
	if system.Calls[1] != "set_code" {
		t.Fatalf("system call 1: got %q", system.Calls[1])
	}

	balances, ok := meta.CallIndex[5]
	if !ok {
		t.Fatalf("missing Balances pallet")
	}
	if balances.CallCount != 2 || balances.Calls[0] != "transfer" {
		t.Fatalf("balances info mismatch: %+v", balances)
	}
}

func TestParseExtractsEventsAndPrefix(t *testing.T) {
	meta, err := Parse(buildTestMetadata(t), nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	info, ok := meta.Events[5]
	if !ok || info.PalletName != "Balances" || info.Type != 7 {
		t.Fatalf("balances event info mismatch: %+v ok=%v", info, ok)
	}
	if _, ok := meta.Events[0]; !ok {
		t.Fatalf("missing System event info")
	}

	if meta.SS58Prefix == nil || *meta.SS58Prefix != 42 {
		t.Fatalf("ss58 prefix: %v", meta.SS58Prefix)
	}
}

func TestParseRejectsMalformedBlobs(t *testing.T) {
	if _, err := Parse(nil, nil); err == nil {
		t.Fatalf("expected error for empty blob")
	}

	bad := append([]byte("nope"), 14)
	if _, err := Parse(bad, nil); err == nil {
		t.Fatalf("expected error for bad magic")
	}

	wrongVersion := append([]byte("meta"), 12)
	if _, err := Parse(wrongVersion, nil); err == nil {
		t.Fatalf("expected error for unsupported version")
	}

	// Truncate mid-registry: no partial table may come back.
	blob := buildTestMetadata(t)
	if _, err := Parse(blob[:len(blob)/2], nil); err == nil {
		t.Fatalf("expected error for truncated blob")
	}
}

func TestParseRejectsNonVariantCallsType(t *testing.T) {
	w := &blobWriter{}
	w.bytes([]byte("meta")).byte(14)
	w.compact(1)
	w.typeHeader(0).byte(5).byte(uint8(PrimU8)).docs()
	w.compact(1)
	w.text("Broken")
	w.none()
	w.some().compact(0) // calls type resolves to a primitive
	w.none()
	w.compact(0)
	w.none()
	w.byte(9)

	if _, err := Parse(w.buf, nil); err == nil {
		t.Fatalf("expected error for non-variant calls type")
	}
}

func TestParseAppliesWideScalarExtras(t *testing.T) {
	w := &blobWriter{}
	w.bytes([]byte("meta")).byte(14)
	w.compact(2)
	w.typeHeader(0).byte(5).byte(uint8(PrimU8)).docs()
	// Composite named U512 with no fields the registry understands natively.
	w.typeHeader(1, "primitive_types", "U512").byte(0)
	w.compact(1).field(0)
	w.docs()
	w.compact(0) // no pallets

	meta, err := Parse(w.buf, []WideScalar{{Name: "U512", Bytes: 64}})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	typ, ok := meta.Registry.Lookup(1)
	if !ok || typ.Kind != KindWideUint || typ.WideBytes != 64 {
		t.Fatalf("wide scalar not applied: %+v ok=%v", typ, ok)
	}
}
