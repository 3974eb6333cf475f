package events

import (
	"fmt"

	"go.uber.org/zap"

	"extrinsicScope/internal/metadata"
	"extrinsicScope/internal/model"
	"extrinsicScope/internal/scale"
	"extrinsicScope/internal/ss58"
)

// Config configures an event decoder.
type Config struct {
	Meta     *metadata.Metadata
	Prefix   uint16
	Decimals uint32
	Symbol   string
	Logger   *zap.Logger
}

// Decoder decodes one block's raw event-record vector and extracts the
// well-known shapes (balance transfers, fee payments). Every other event is
// decoded only far enough to consume its exact byte length.
type Decoder struct {
	meta     *metadata.Metadata
	prefix   uint16
	decimals uint32
	symbol   string
	logger   *zap.Logger
}

// NewDecoder builds a Decoder.
func NewDecoder(cfg Config) (*Decoder, error) {
	if cfg.Meta == nil || cfg.Meta.Registry == nil {
		return nil, fmt.Errorf("event decoder: metadata is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{
		meta:     cfg.Meta,
		prefix:   cfg.Prefix,
		decimals: cfg.Decimals,
		symbol:   cfg.Symbol,
		logger:   logger,
	}, nil
}

// DecodeBlockEvents decodes the block's event vector and groups the known
// shapes by the extrinsic index that produced them. Events outside the
// ApplyExtrinsic phase are dropped from the mapping. A failure on any record
// fails the whole block: partial event accounting would silently misreport
// transfers.
func (d *Decoder) DecodeBlockEvents(raw []byte) (map[uint32]*model.ExtrinsicEvents, error) {
	rd := scale.NewReader(raw)

	count, err := rd.CompactLen()
	if err != nil {
		return nil, fmt.Errorf("decode events: record count: %w", err)
	}

	out := make(map[uint32]*model.ExtrinsicEvents)
	for i := 0; i < count; i++ {
		if err := d.decodeRecord(rd, out); err != nil {
			return nil, fmt.Errorf("decode events: record %d of %d: %w", i, count, err)
		}
	}
	return out, nil
}

func (d *Decoder) decodeRecord(rd *scale.Reader, out map[uint32]*model.ExtrinsicEvents) error {
	phase, err := decodePhase(rd)
	if err != nil {
		return err
	}

	palletIndex, err := rd.Byte()
	if err != nil {
		return fmt.Errorf("pallet index: %w", err)
	}
	info, ok := d.meta.Events[palletIndex]
	if !ok {
		return fmt.Errorf("pallet index %d has no event type", palletIndex)
	}

	value, err := d.meta.Registry.DecodeValue(info.Type, rd)
	if err != nil {
		return fmt.Errorf("pallet %s: %w", info.PalletName, err)
	}
	if value.Kind != metadata.ValueVariant {
		return fmt.Errorf("pallet %s: event type is not a variant", info.PalletName)
	}

	if err := skipTopics(rd); err != nil {
		return fmt.Errorf("pallet %s event %s: topics: %w", info.PalletName, value.Variant, err)
	}

	// Block-level phases carry no extrinsic attribution.
	if phase.Kind != model.PhaseApplyExtrinsic {
		return nil
	}

	switch {
	case info.PalletName == "Balances" && value.Variant == "Transfer":
		transfer, err := d.buildTransfer(value.List)
		if err != nil {
			return err
		}
		entry := ensureEntry(out, phase.ExtrinsicIndex)
		entry.Transfers = append(entry.Transfers, transfer)
	case info.PalletName == "TransactionPayment" && value.Variant == "TransactionFeePaid":
		feePaid, err := d.buildFeePaid(value.List)
		if err != nil {
			return err
		}
		// At most one fee event per extrinsic; a later one wins.
		ensureEntry(out, phase.ExtrinsicIndex).FeePaid = &feePaid
	}

	return nil
}

func decodePhase(rd *scale.Reader) (model.Phase, error) {
	tag, err := rd.Byte()
	if err != nil {
		return model.Phase{}, fmt.Errorf("phase: %w", err)
	}

	switch tag {
	case 0:
		index, err := rd.U32()
		if err != nil {
			return model.Phase{}, fmt.Errorf("phase index: %w", err)
		}
		return model.Phase{Kind: model.PhaseApplyExtrinsic, ExtrinsicIndex: index}, nil
	case 1:
		return model.Phase{Kind: model.PhaseFinalization}, nil
	case 2:
		return model.Phase{Kind: model.PhaseInitialization}, nil
	default:
		return model.Phase{}, fmt.Errorf("unknown phase tag %d", tag)
	}
}

func skipTopics(rd *scale.Reader) error {
	count, err := rd.CompactLen()
	if err != nil {
		return err
	}
	_, err = rd.Bytes(count * 32)
	return err
}

func (d *Decoder) buildTransfer(fields []metadata.Value) (model.TransferEvent, error) {
	if len(fields) < 3 {
		return model.TransferEvent{}, fmt.Errorf("transfer event has %d fields, want 3", len(fields))
	}

	from, err := d.fieldAddress(fields[0])
	if err != nil {
		return model.TransferEvent{}, fmt.Errorf("transfer from: %w", err)
	}
	to, err := d.fieldAddress(fields[1])
	if err != nil {
		return model.TransferEvent{}, fmt.Errorf("transfer to: %w", err)
	}
	amount, ok := fields[2].AsBig()
	if !ok {
		return model.TransferEvent{}, fmt.Errorf("transfer amount is not numeric")
	}

	return model.TransferEvent{
		From:         from,
		To:           to,
		AmountPlanck: amount.String(),
		AmountHuman:  model.FormatAmount(amount, d.decimals, d.symbol),
	}, nil
}

func (d *Decoder) buildFeePaid(fields []metadata.Value) (model.FeePaidEvent, error) {
	if len(fields) < 2 {
		return model.FeePaidEvent{}, fmt.Errorf("fee-paid event has %d fields, want at least 2", len(fields))
	}

	payer, err := d.fieldAddress(fields[0])
	if err != nil {
		return model.FeePaidEvent{}, fmt.Errorf("fee payer: %w", err)
	}
	amount, ok := fields[1].AsBig()
	if !ok {
		return model.FeePaidEvent{}, fmt.Errorf("fee amount is not numeric")
	}

	return model.FeePaidEvent{
		Payer:        payer,
		AmountPlanck: amount.String(),
		AmountHuman:  model.FormatAmount(amount, d.decimals, d.symbol),
	}, nil
}

func (d *Decoder) fieldAddress(value metadata.Value) (string, error) {
	raw, ok := value.AsBytes32()
	if !ok {
		return "", fmt.Errorf("field is not a 32-byte account")
	}
	return ss58.Encode(raw, d.prefix)
}

func ensureEntry(out map[uint32]*model.ExtrinsicEvents, index uint32) *model.ExtrinsicEvents {
	entry, ok := out[index]
	if !ok {
		entry = &model.ExtrinsicEvents{}
		out[index] = entry
	}
	return entry
}
