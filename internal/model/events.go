package model

// TransferEvent is a decoded balances transfer. Amounts are kept as
// arbitrary-precision decimal strings in planck plus a display rendering.
type TransferEvent struct {
	From         string `json:"from"`
	To           string `json:"to"`
	AmountPlanck string `json:"amount_planck"`
	AmountHuman  string `json:"amount_human"`
}

// FeePaidEvent is a decoded transaction-fee-paid event.
type FeePaidEvent struct {
	Payer        string `json:"payer"`
	AmountPlanck string `json:"amount_planck"`
	AmountHuman  string `json:"amount_human"`
}

// ExtrinsicEvents collects the decoded events attributed to one extrinsic
// index within a block. At most one fee-paid event is expected per extrinsic.
type ExtrinsicEvents struct {
	Transfers []TransferEvent `json:"transfers,omitempty"`
	FeePaid   *FeePaidEvent   `json:"fee_paid,omitempty"`
}

// PhaseKind classifies when, relative to extrinsic execution, an event was
// emitted.
type PhaseKind uint8

const (
	PhaseApplyExtrinsic PhaseKind = iota
	PhaseFinalization
	PhaseInitialization
)

// Phase is the tagged phase of an event record. ExtrinsicIndex is only
// meaningful for PhaseApplyExtrinsic.
type Phase struct {
	Kind           PhaseKind
	ExtrinsicIndex uint32
}
