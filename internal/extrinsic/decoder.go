package extrinsic

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"extrinsicScope/internal/metadata"
	"extrinsicScope/internal/model"
	"extrinsicScope/internal/scale"
	"extrinsicScope/internal/ss58"
)

// extrinsicVersion is the transaction format version carried in the low bits
// of the version byte; the high bit flags a signed extrinsic.
const (
	extrinsicVersion = 4
	signedMask       = 0x80
)

// Config configures an extrinsic decoder.
type Config struct {
	Table     metadata.CallIndexTable
	Prefix    uint16
	Decimals  uint32
	Symbol    string
	ScanLimit int
	Logger    *zap.Logger
}

// Decoder decodes raw extrinsic bytes into a ParsedExtrinsic. It never
// returns an error: every failure path yields Ok=false with whatever fields
// were readable before the failure.
type Decoder struct {
	table     metadata.CallIndexTable
	prefix    uint16
	decimals  uint32
	symbol    string
	scanLimit int
	logger    *zap.Logger
}

// NewDecoder builds a Decoder.
func NewDecoder(cfg Config) *Decoder {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	scanLimit := cfg.ScanLimit
	if scanLimit <= 0 {
		scanLimit = DefaultScanLimit
	}
	return &Decoder{
		table:     cfg.Table,
		prefix:    cfg.Prefix,
		decimals:  cfg.Decimals,
		symbol:    cfg.Symbol,
		scanLimit: scanLimit,
		logger:    logger,
	}
}

// Decode parses one raw extrinsic.
func (d *Decoder) Decode(raw []byte) model.ParsedExtrinsic {
	var parsed model.ParsedExtrinsic

	rd := scale.NewReader(raw)
	length, err := rd.CompactUint()
	if err != nil {
		d.logger.Debug("extrinsic length prefix unreadable", zap.Error(err))
		return parsed
	}
	if length > uint64(rd.Remaining()) {
		d.logger.Debug("extrinsic length exceeds buffer",
			zap.Uint64("length", length), zap.Int("remaining", rd.Remaining()))
		return parsed
	}
	body, _ := rd.Bytes(int(length))
	rd = scale.NewReader(body)

	version, err := rd.Byte()
	if err != nil {
		return parsed
	}
	parsed.IsSigned = version&signedMask != 0
	if version&^byte(signedMask) != extrinsicVersion {
		d.logger.Debug("unsupported extrinsic version", zap.Uint8("version", version))
		return parsed
	}

	// locatorStart tracks the last offset known to be aligned; when a later
	// stage fails, the locator scans from here.
	locatorStart := rd.Offset()
	exact := true

	if parsed.IsSigned {
		exact = d.decodeSignedHeader(rd, &parsed, &locatorStart)
	}

	header, ok := d.resolveCall(body, rd, exact, locatorStart)
	if !ok {
		return parsed
	}

	info := d.table[header.Pallet]
	parsed.Section = info.Name
	parsed.Method = info.Calls[header.Call]

	d.decodeCallArgs(body, header, &parsed)

	parsed.Ok = true
	return parsed
}

// decodeSignedHeader consumes address, signature, era, nonce, and tip. It
// returns false when the remaining field lengths could not be established,
// in which case locatorStart points just past the last cleanly parsed field.
func (d *Decoder) decodeSignedHeader(rd *scale.Reader, parsed *model.ParsedExtrinsic, locatorStart *int) bool {
	if !d.decodeAddress(rd, parsed) {
		return false
	}
	*locatorStart = rd.Offset()

	if !d.decodeSignature(rd) {
		return false
	}
	*locatorStart = rd.Offset()

	era, ok := decodeEra(rd)
	if !ok {
		return false
	}
	parsed.Era = era

	nonce, err := rd.CompactUint()
	if err != nil {
		return false
	}
	parsed.Nonce = &nonce

	tip, err := rd.Compact()
	if err != nil {
		return false
	}
	parsed.Tip = model.FormatAmount(tip, d.decimals, d.symbol)

	*locatorStart = rd.Offset()
	return true
}

// decodeAddress reads a MultiAddress. Only the 32-byte forms produce an SS58
// sender; the other arms are surfaced as-is.
func (d *Decoder) decodeAddress(rd *scale.Reader, parsed *model.ParsedExtrinsic) bool {
	tag, err := rd.Byte()
	if err != nil {
		return false
	}

	switch tag {
	case 0, 3: // Id, Address32
		pub, err := rd.Bytes(32)
		if err != nil {
			return false
		}
		address, err := ss58.Encode(pub, d.prefix)
		if err != nil {
			d.logger.Debug("sender encode failed", zap.Error(err))
			return false
		}
		parsed.Sender = address
		return true
	case 1: // Index
		index, err := rd.CompactUint()
		if err != nil {
			return false
		}
		parsed.Sender = fmt.Sprintf("index:%d", index)
		return true
	case 2: // Raw
		length, err := rd.CompactLen()
		if err != nil {
			return false
		}
		raw, err := rd.Bytes(length)
		if err != nil {
			return false
		}
		parsed.Sender = hexutil.Encode(raw)
		return true
	case 4: // Address20
		raw, err := rd.Bytes(20)
		if err != nil {
			return false
		}
		parsed.Sender = hexutil.Encode(raw)
		return true
	default:
		d.logger.Debug("unknown address tag", zap.Uint8("tag", tag))
		return false
	}
}

// decodeSignature consumes a MultiSignature; each scheme has a fixed length.
func (d *Decoder) decodeSignature(rd *scale.Reader) bool {
	tag, err := rd.Byte()
	if err != nil {
		return false
	}

	var sigLen int
	switch tag {
	case 0, 1: // Ed25519, Sr25519
		sigLen = 64
	case 2: // Ecdsa
		sigLen = 65
	default:
		d.logger.Debug("unknown signature scheme", zap.Uint8("tag", tag))
		return false
	}

	_, err = rd.Bytes(sigLen)
	return err == nil
}

// decodeEra reads an era: a single zero byte means immortal, anything else
// is the first of two bytes encoding a mortal period and phase.
func decodeEra(rd *scale.Reader) (string, bool) {
	first, err := rd.Byte()
	if err != nil {
		return "", false
	}
	if first == 0 {
		return "immortal", true
	}

	second, err := rd.Byte()
	if err != nil {
		return "", false
	}
	encoded := uint64(first) | uint64(second)<<8
	period := uint64(2) << (encoded % 16)
	quantize := period >> 12
	if quantize < 1 {
		quantize = 1
	}
	phase := (encoded >> 4) * quantize
	return fmt.Sprintf("mortal(period=%d, phase=%d)", period, phase), true
}

// resolveCall finds the call header: directly at the cursor when every
// preceding field had a known length, otherwise by scanning.
func (d *Decoder) resolveCall(body []byte, rd *scale.Reader, exact bool, locatorStart int) (CallHeader, bool) {
	if exact {
		offset := rd.Offset()
		pallet, errP := rd.Byte()
		call, errC := rd.Byte()
		if errP == nil && errC == nil {
			if info, ok := d.table[pallet]; ok && int(call) < info.CallCount {
				return CallHeader{Offset: offset, Pallet: pallet, Call: call}, true
			}
		}
		d.logger.Debug("call header invalid at fixed offset, scanning",
			zap.Int("offset", offset))
	}

	header, ok := Locate(body, locatorStart, d.table, d.scanLimit)
	if !ok {
		d.logger.Debug("call header not found", zap.Int("start", locatorStart))
	}
	return header, ok
}

// decodeCallArgs structurally decodes well-known call shapes; everything
// else is kept as opaque bytes.
func (d *Decoder) decodeCallArgs(body []byte, header CallHeader, parsed *model.ParsedExtrinsic) {
	args := body[header.Offset+2:]

	if parsed.Section == "Balances" && isTransferCall(parsed.Method) {
		if decoded, ok := d.decodeTransferArgs(args); ok {
			parsed.Args = decoded
			return
		}
	}

	if len(args) > 0 {
		parsed.CallData = hexutil.Encode(args)
	}
}

func isTransferCall(method string) bool {
	switch method {
	case "transfer", "transfer_keep_alive", "transfer_allow_death":
		return true
	}
	return false
}

// decodeTransferArgs decodes (dest: MultiAddress, value: Compact<Balance>).
func (d *Decoder) decodeTransferArgs(args []byte) (map[string]string, bool) {
	rd := scale.NewReader(args)

	var dest model.ParsedExtrinsic
	if !d.decodeAddress(rd, &dest) {
		return nil, false
	}
	value, err := rd.Compact()
	if err != nil {
		return nil, false
	}

	return map[string]string{
		"dest":  dest.Sender,
		"value": model.FormatAmount(value, d.decimals, d.symbol),
	}, true
}
