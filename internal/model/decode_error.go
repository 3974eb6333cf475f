package model

// DecodeError records a decode failure for one item within a block.
type DecodeError struct {
	BlockNumber    uint64 `json:"block_number"`
	ExtrinsicIndex uint32 `json:"extrinsic_index"`
	Stage          string `json:"stage"`
	Error          string `json:"error"`
}
