package events

import (
	"encoding/binary"
	"math/big"
	"testing"

	"extrinsicScope/internal/metadata"
	"extrinsicScope/internal/model"
	"extrinsicScope/internal/scale/scaletest"
	"extrinsicScope/internal/ss58"
)

func testMetadata() *metadata.Metadata {
	registry := metadata.NewRegistry([]metadata.Type{
		{ID: 0, Kind: metadata.KindPrimitive, Primitive: metadata.PrimU8},
		{ID: 1, Kind: metadata.KindArray, Len: 32, Elem: 0},
		{ID: 2, Kind: metadata.KindComposite, Path: []string{"sp_core", "crypto", "AccountId32"}, Fields: []metadata.Field{{Type: 1}}},
		{ID: 3, Kind: metadata.KindPrimitive, Primitive: metadata.PrimU128},
		{ID: 4, Kind: metadata.KindVariant, Path: []string{"pallet_balances", "pallet", "Event"}, Variants: []metadata.Variant{
			{Name: "Endowed", Index: 0, Fields: []metadata.Field{{Type: 2}, {Type: 3}}},
			{Name: "Transfer", Index: 2, Fields: []metadata.Field{
				{Name: "from", Type: 2}, {Name: "to", Type: 2}, {Name: "amount", Type: 3},
			}},
		}},
		{ID: 5, Kind: metadata.KindVariant, Path: []string{"pallet_transaction_payment", "pallet", "Event"}, Variants: []metadata.Variant{
			{Name: "TransactionFeePaid", Index: 0, Fields: []metadata.Field{
				{Name: "who", Type: 2}, {Name: "actual_fee", Type: 3}, {Name: "tip", Type: 3},
			}},
		}},
	})

	return &metadata.Metadata{
		Version:  14,
		Registry: registry,
		Events: map[uint8]metadata.EventInfo{
			5: {PalletName: "Balances", Type: 4},
			6: {PalletName: "TransactionPayment", Type: 5},
		},
	}
}

func account(fill byte) []byte {
	out := make([]byte, 32)
	for i := range out {
		out[i] = fill
	}
	return out
}

func applyExtrinsicPhase(dst []byte, index uint32) []byte {
	dst = append(dst, 0)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], index)
	return append(dst, buf[:]...)
}

func transferRecord(dst []byte, index uint32, from, to []byte, amount *big.Int) []byte {
	dst = applyExtrinsicPhase(dst, index)
	dst = append(dst, 5, 2) // Balances.Transfer
	dst = append(dst, from...)
	dst = append(dst, to...)
	dst = scaletest.AppendUintLE(dst, amount, 16)
	return scaletest.AppendCompactUint(dst, 0) // no topics
}

func feePaidRecord(dst []byte, index uint32, who []byte, fee *big.Int) []byte {
	dst = applyExtrinsicPhase(dst, index)
	dst = append(dst, 6, 0) // TransactionPayment.TransactionFeePaid
	dst = append(dst, who...)
	dst = scaletest.AppendUintLE(dst, fee, 16)
	dst = scaletest.AppendUintLE(dst, big.NewInt(0), 16)
	return scaletest.AppendCompactUint(dst, 0)
}

func TestDecodeBlockEventsGroupsByExtrinsic(t *testing.T) {
	from, to := account(0xaa), account(0xbb)
	amount := big.NewInt(1_000_000_000_000)

	raw := scaletest.AppendCompactUint(nil, 2)
	raw = transferRecord(raw, 3, from, to, amount)
	// Finalization-phase transfer: must not be attributed to any extrinsic.
	raw = append(raw, 1)
	raw = append(raw, 5, 2)
	raw = append(raw, from...)
	raw = append(raw, to...)
	raw = scaletest.AppendUintLE(raw, amount, 16)
	raw = scaletest.AppendCompactUint(raw, 0)

	decoder, err := NewDecoder(Config{Meta: testMetadata(), Prefix: 42, Decimals: 12, Symbol: "UNIT"})
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	byIndex, err := decoder.DecodeBlockEvents(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(byIndex) != 1 {
		t.Fatalf("want 1 attributed index, got %d", len(byIndex))
	}
	entry, ok := byIndex[3]
	if !ok || len(entry.Transfers) != 1 {
		t.Fatalf("entry for index 3 missing or wrong: %+v", entry)
	}

	transfer := entry.Transfers[0]
	wantFrom, _ := ss58.Encode(from, 42)
	if transfer.From != wantFrom {
		t.Fatalf("from: %s want %s", transfer.From, wantFrom)
	}
	if transfer.AmountPlanck != "1000000000000" {
		t.Fatalf("amount planck: %s", transfer.AmountPlanck)
	}
	if transfer.AmountHuman != "1.0000 UNIT" {
		t.Fatalf("amount human: %s", transfer.AmountHuman)
	}
}

func TestDecodeBlockEventsFeePaid(t *testing.T) {
	who := account(0xcc)

	raw := scaletest.AppendCompactUint(nil, 2)
	raw = feePaidRecord(raw, 1, who, big.NewInt(125_000_000))
	// A second fee event for the same extrinsic overwrites the first.
	raw = feePaidRecord(raw, 1, who, big.NewInt(250_000_000))

	decoder, err := NewDecoder(Config{Meta: testMetadata(), Prefix: 42, Decimals: 12, Symbol: "UNIT"})
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	byIndex, err := decoder.DecodeBlockEvents(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	entry := byIndex[1]
	if entry == nil || entry.FeePaid == nil {
		t.Fatalf("fee paid missing")
	}
	if entry.FeePaid.AmountPlanck != "250000000" {
		t.Fatalf("fee planck: %s", entry.FeePaid.AmountPlanck)
	}
}

func TestDecodeBlockEventsSkipsUnknownShapes(t *testing.T) {
	// Balances.Endowed is decoded to stay aligned but not extracted.
	raw := scaletest.AppendCompactUint(nil, 2)
	raw = applyExtrinsicPhase(raw, 0)
	raw = append(raw, 5, 0)
	raw = append(raw, account(0x01)...)
	raw = scaletest.AppendUintLE(raw, big.NewInt(7), 16)
	raw = scaletest.AppendCompactUint(raw, 0)
	raw = transferRecord(raw, 0, account(0x02), account(0x03), big.NewInt(9))

	decoder, err := NewDecoder(Config{Meta: testMetadata(), Prefix: 42, Decimals: 12, Symbol: "UNIT"})
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	byIndex, err := decoder.DecodeBlockEvents(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	entry := byIndex[0]
	if entry == nil || len(entry.Transfers) != 1 {
		t.Fatalf("transfer after skipped event missing: %+v", entry)
	}
}

func TestDecodeBlockEventsFailsWholeBlockOnUnknownType(t *testing.T) {
	// Pallet 9 has no registered event type: the block fails, the map is
	// discarded.
	raw := scaletest.AppendCompactUint(nil, 2)
	raw = transferRecord(raw, 0, account(0x02), account(0x03), big.NewInt(9))
	raw = applyExtrinsicPhase(raw, 1)
	raw = append(raw, 9, 0)

	decoder, err := NewDecoder(Config{Meta: testMetadata(), Prefix: 42, Decimals: 12, Symbol: "UNIT"})
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	if _, err := decoder.DecodeBlockEvents(raw); err == nil {
		t.Fatalf("expected error for unregistered pallet event type")
	}
}

func TestDecodeBlockEventsTruncated(t *testing.T) {
	raw := scaletest.AppendCompactUint(nil, 1)
	raw = append(raw, 0, 3) // phase tag + partial index

	decoder, err := NewDecoder(Config{Meta: testMetadata(), Prefix: 42})
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	if _, err := decoder.DecodeBlockEvents(raw); err == nil {
		t.Fatalf("expected error for truncated record")
	}
}

func TestCorrelate(t *testing.T) {
	extrinsics := []model.ParsedExtrinsic{
		{Section: "Timestamp", Method: "set", Ok: true},
		{Section: "Balances", Method: "transfer", IsSigned: true, Ok: true},
	}
	byIndex := map[uint32]*model.ExtrinsicEvents{
		1: {Transfers: []model.TransferEvent{{AmountPlanck: "9"}}},
	}

	activity := Correlate(77, extrinsics, byIndex)
	if len(activity) != 2 {
		t.Fatalf("want 2 entries, got %d", len(activity))
	}
	if activity[0].Events != nil {
		t.Fatalf("index 0 should have no events")
	}
	if activity[1].Events == nil || len(activity[1].Events.Transfers) != 1 {
		t.Fatalf("index 1 events missing")
	}
	if activity[1].BlockNumber != 77 || activity[1].ExtrinsicIndex != 1 {
		t.Fatalf("activity metadata mismatch: %+v", activity[1])
	}
}
