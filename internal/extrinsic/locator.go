package extrinsic

import "extrinsicScope/internal/metadata"

// DefaultScanLimit bounds how far Locate scans for a call header.
const DefaultScanLimit = 4096

// CallHeader is the located (pallet index, call index) pair and its offset.
type CallHeader struct {
	Offset int
	Pallet uint8
	Call   uint8
}

// Locate scans forward from start for the first byte pair that is consistent
// with a (pallet index, call index) header: the pallet index must exist in
// the table and the call index must be below that pallet's call count.
//
// This is a heuristic standing in for an exact decoder of the signature/era
// section: it cannot rule out earlier data bytes that happen to satisfy the
// same predicate, and it returns the first match without a secondary check.
// It sits behind the same shape an exact locator would have so it can be
// replaced without touching callers.
func Locate(buf []byte, start int, table metadata.CallIndexTable, scanLimit int) (CallHeader, bool) {
	if scanLimit <= 0 {
		scanLimit = DefaultScanLimit
	}
	if start < 0 {
		start = 0
	}

	end := start + scanLimit
	if end > len(buf)-1 {
		end = len(buf) - 1
	}

	for i := start; i < end; i++ {
		info, ok := table[buf[i]]
		if !ok {
			continue
		}
		if int(buf[i+1]) < info.CallCount {
			return CallHeader{Offset: i, Pallet: buf[i], Call: buf[i+1]}, true
		}
	}
	return CallHeader{}, false
}
