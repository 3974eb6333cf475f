package model

// ParsedExtrinsic is the decoded header and call identity of one extrinsic.
// Ok reports whether the full decode succeeded; when it is false the other
// fields are best-effort fallbacks, not trustworthy decoded data.
type ParsedExtrinsic struct {
	Section  string            `json:"section"`
	Method   string            `json:"method"`
	IsSigned bool              `json:"is_signed"`
	Sender   string            `json:"sender,omitempty"`
	Nonce    *uint64           `json:"nonce,omitempty"`
	Tip      string            `json:"tip,omitempty"`
	Era      string            `json:"era,omitempty"`
	Args     map[string]string `json:"args,omitempty"`
	CallData string            `json:"call_data,omitempty"`
	Ok       bool              `json:"ok"`
}

// BlockActivity joins one extrinsic with the events it produced.
type BlockActivity struct {
	BlockNumber    uint64           `json:"block_number,omitempty"`
	ExtrinsicIndex uint32           `json:"extrinsic_index"`
	Extrinsic      ParsedExtrinsic  `json:"extrinsic"`
	Events         *ExtrinsicEvents `json:"events,omitempty"`
}
