package extrinsic

import (
	"testing"

	"extrinsicScope/internal/metadata"
)

func testTable() metadata.CallIndexTable {
	return metadata.CallIndexTable{
		0: {Name: "System", CallCount: 2, Calls: map[uint8]string{0: "remark", 1: "set_code"}},
		5: {Name: "Balances", CallCount: 2, Calls: map[uint8]string{0: "transfer", 1: "transfer_keep_alive"}},
	}
}

func TestLocateFindsHeaderAtKnownOffset(t *testing.T) {
	// Filler bytes are chosen so no earlier pair satisfies the predicate:
	// 0xee is not a pallet index in the table.
	buf := []byte{0xee, 0xee, 0xee, 0xee, 5, 1, 0xaa}

	header, ok := Locate(buf, 0, testTable(), 0)
	if !ok {
		t.Fatalf("header not found")
	}
	if header.Offset != 4 || header.Pallet != 5 || header.Call != 1 {
		t.Fatalf("header mismatch: %+v", header)
	}
}

func TestLocateRespectsStart(t *testing.T) {
	buf := []byte{5, 0, 0xee, 0xee, 0, 1}

	header, ok := Locate(buf, 2, testTable(), 0)
	if !ok {
		t.Fatalf("header not found")
	}
	if header.Offset != 4 || header.Pallet != 0 {
		t.Fatalf("header mismatch: %+v", header)
	}
}

func TestLocateRejectsCallIndexOutOfRange(t *testing.T) {
	// Pallet 5 exists but call 7 is past its call count.
	buf := []byte{5, 7, 0xee}
	if _, ok := Locate(buf, 0, testTable(), 0); ok {
		t.Fatalf("expected no match")
	}
}

func TestLocateRespectsScanLimit(t *testing.T) {
	buf := make([]byte, 64)
	for i := range buf {
		buf[i] = 0xee
	}
	buf[40] = 5
	buf[41] = 0

	if _, ok := Locate(buf, 0, testTable(), 16); ok {
		t.Fatalf("match beyond scan limit")
	}
	if _, ok := Locate(buf, 0, testTable(), 64); !ok {
		t.Fatalf("expected match within limit")
	}
}

func TestLocateEmptyBuffer(t *testing.T) {
	if _, ok := Locate(nil, 0, testTable(), 0); ok {
		t.Fatalf("expected no match on empty buffer")
	}
}
