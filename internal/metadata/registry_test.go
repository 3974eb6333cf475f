package metadata

import (
	"math/big"
	"testing"

	"extrinsicScope/internal/scale"
	"extrinsicScope/internal/scale/scaletest"
)

func testRegistry() *Registry {
	return NewRegistry([]Type{
		{ID: 0, Kind: KindPrimitive, Primitive: PrimU8},
		{ID: 1, Kind: KindArray, Len: 32, Elem: 0},
		{ID: 2, Kind: KindComposite, Path: []string{"sp_core", "crypto", "AccountId32"}, Fields: []Field{{Type: 1}}},
		{ID: 3, Kind: KindPrimitive, Primitive: PrimU128},
		{ID: 4, Kind: KindCompact, Elem: 3},
		{ID: 5, Kind: KindVariant, Variants: []Variant{
			{Name: "None", Index: 0},
			{Name: "Some", Index: 1, Fields: []Field{{Type: 3}}},
		}},
		{ID: 6, Kind: KindSequence, Elem: 0},
		{ID: 7, Kind: KindWideUint, WideBytes: 64, Path: []string{"primitive_types", "U512"}},
		{ID: 8, Kind: KindTuple, Tuple: []uint32{0, 3}},
	})
}

func TestDecodeValueAccountId(t *testing.T) {
	reg := testRegistry()
	pub := make([]byte, 32)
	for i := range pub {
		pub[i] = byte(i)
	}

	value, err := reg.DecodeValue(2, scale.NewReader(pub))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	raw, ok := value.AsBytes32()
	if !ok {
		t.Fatalf("expected 32-byte value, got kind %d", value.Kind)
	}
	if raw[31] != 31 {
		t.Fatalf("bytes mismatch")
	}
}

func TestDecodeValueU128(t *testing.T) {
	reg := testRegistry()
	raw := scaletest.AppendUintLE(nil, big.NewInt(1_000_000_000_000), 16)

	value, err := reg.DecodeValue(3, scale.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	amount, ok := value.AsBig()
	if !ok || amount.Cmp(big.NewInt(1_000_000_000_000)) != 0 {
		t.Fatalf("amount mismatch: %v ok=%v", amount, ok)
	}
}

func TestDecodeValueVariantConsumesExactBytes(t *testing.T) {
	reg := testRegistry()

	raw := []byte{1} // Some
	raw = scaletest.AppendUintLE(raw, big.NewInt(7), 16)
	raw = append(raw, 0xee) // trailing byte that must remain

	rd := scale.NewReader(raw)
	value, err := reg.DecodeValue(5, rd)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if value.Variant != "Some" {
		t.Fatalf("variant: %q", value.Variant)
	}
	if rd.Remaining() != 1 {
		t.Fatalf("remaining: %d", rd.Remaining())
	}
}

func TestDecodeValueWideUint(t *testing.T) {
	reg := testRegistry()
	want := new(big.Int).Lsh(big.NewInt(1), 300)
	raw := scaletest.AppendUintLE(nil, want, 64)

	value, err := reg.DecodeValue(7, scale.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, ok := value.AsBig()
	if !ok || got.Cmp(want) != 0 {
		t.Fatalf("wide uint mismatch")
	}
}

func TestDecodeValueSequenceOfBytes(t *testing.T) {
	reg := testRegistry()
	raw := scaletest.AppendCompactUint(nil, 3)
	raw = append(raw, 0xaa, 0xbb, 0xcc)

	value, err := reg.DecodeValue(6, scale.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if value.Kind != ValueBytes || len(value.Bytes) != 3 {
		t.Fatalf("unexpected value: %+v", value)
	}
}

func TestDecodeValueUnregisteredType(t *testing.T) {
	reg := testRegistry()
	if _, err := reg.DecodeValue(99, scale.NewReader([]byte{0})); err == nil {
		t.Fatalf("expected error for unregistered type")
	}
}

func TestDecodeValueUnknownVariantIndex(t *testing.T) {
	reg := testRegistry()
	if _, err := reg.DecodeValue(5, scale.NewReader([]byte{9})); err == nil {
		t.Fatalf("expected error for unknown variant index")
	}
}
