package metadata

import (
	"encoding/binary"
	"fmt"
	"strings"

	"extrinsicScope/internal/scale"
)

// metadataMagic is "meta" little-endian, the first four bytes of every
// runtime metadata blob.
const metadataMagic = 0x6174656d

// CallInfo describes the calls a pallet exposes. Calls maps the wire call
// index to the call name; the index is the variant's declaration position.
type CallInfo struct {
	Name      string
	CallCount int
	Calls     map[uint8]string
}

// CallIndexTable maps a pallet's wire index to its call info. Built once per
// (chain, spec version) and never mutated afterwards.
type CallIndexTable map[uint8]CallInfo

// EventInfo locates a pallet's event sum type in the registry.
type EventInfo struct {
	PalletName string
	Type       uint32
}

// Metadata is the parsed runtime metadata for one spec version.
type Metadata struct {
	Version    uint8
	Registry   *Registry
	CallIndex  CallIndexTable
	Events     map[uint8]EventInfo
	SS58Prefix *uint16
}

// Parse decodes a raw runtime metadata blob (versions 14 and 15) into the
// registry, the call-index table, and the event dispatch map. Any malformed
// or truncated input fails the whole build; there is no partial result.
func Parse(raw []byte, extras []WideScalar) (*Metadata, error) {
	if len(raw) < 5 {
		return nil, fmt.Errorf("parse metadata: blob too short (%d bytes)", len(raw))
	}
	if binary.LittleEndian.Uint32(raw[:4]) != metadataMagic {
		return nil, fmt.Errorf("parse metadata: bad magic %#x", raw[:4])
	}
	version := raw[4]
	if version != 14 && version != 15 {
		return nil, fmt.Errorf("parse metadata: unsupported version %d", version)
	}

	rd := scale.NewReader(raw[5:])

	types, err := parseTypes(rd)
	if err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	applyExtras(types, extras)
	registry := NewRegistry(types)

	pallets, err := parsePallets(rd, version)
	if err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}

	meta := &Metadata{
		Version:   version,
		Registry:  registry,
		CallIndex: make(CallIndexTable),
		Events:    make(map[uint8]EventInfo),
	}

	for _, p := range pallets {
		if p.hasCalls {
			info, err := buildCallInfo(registry, p)
			if err != nil {
				return nil, fmt.Errorf("parse metadata: %w", err)
			}
			meta.CallIndex[p.index] = info
		}
		if p.hasEvents {
			meta.Events[p.index] = EventInfo{PalletName: p.name, Type: p.eventType}
		}
		if p.name == "System" {
			meta.SS58Prefix = ss58PrefixConstant(p.constants)
		}
	}

	return meta, nil
}

type palletMeta struct {
	name      string
	hasCalls  bool
	callsType uint32
	hasEvents bool
	eventType uint32
	constants []palletConstant
	index     uint8
}

type palletConstant struct {
	name  string
	value []byte
}

func parseTypes(rd *scale.Reader) ([]Type, error) {
	count, err := rd.CompactLen()
	if err != nil {
		return nil, fmt.Errorf("type count: %w", err)
	}

	types := make([]Type, 0, count)
	for i := 0; i < count; i++ {
		t, err := parseType(rd)
		if err != nil {
			return nil, fmt.Errorf("type %d of %d: %w", i, count, err)
		}
		types = append(types, t)
	}
	return types, nil
}

func parseType(rd *scale.Reader) (Type, error) {
	id, err := rd.CompactUint()
	if err != nil {
		return Type{}, fmt.Errorf("id: %w", err)
	}
	t := Type{ID: uint32(id)}

	if t.Path, err = parseTextVec(rd); err != nil {
		return Type{}, fmt.Errorf("path: %w", err)
	}

	// Type parameters: name plus optional type reference, unused here but
	// they have to be walked to keep the stream aligned.
	paramCount, err := rd.CompactLen()
	if err != nil {
		return Type{}, fmt.Errorf("param count: %w", err)
	}
	for i := 0; i < paramCount; i++ {
		if _, err := rd.Text(); err != nil {
			return Type{}, fmt.Errorf("param name: %w", err)
		}
		if _, _, err := parseOptionCompact(rd); err != nil {
			return Type{}, fmt.Errorf("param type: %w", err)
		}
	}

	tag, err := rd.Byte()
	if err != nil {
		return Type{}, fmt.Errorf("def tag: %w", err)
	}

	switch tag {
	case 0: // composite
		t.Kind = KindComposite
		if t.Fields, err = parseFields(rd); err != nil {
			return Type{}, err
		}
	case 1: // variant
		t.Kind = KindVariant
		variantCount, err := rd.CompactLen()
		if err != nil {
			return Type{}, fmt.Errorf("variant count: %w", err)
		}
		for i := 0; i < variantCount; i++ {
			var v Variant
			if v.Name, err = rd.Text(); err != nil {
				return Type{}, fmt.Errorf("variant name: %w", err)
			}
			if v.Fields, err = parseFields(rd); err != nil {
				return Type{}, err
			}
			idx, err := rd.Byte()
			if err != nil {
				return Type{}, fmt.Errorf("variant index: %w", err)
			}
			v.Index = idx
			if err := skipTextVec(rd); err != nil {
				return Type{}, fmt.Errorf("variant docs: %w", err)
			}
			t.Variants = append(t.Variants, v)
		}
	case 2: // sequence
		t.Kind = KindSequence
		elem, err := rd.CompactUint()
		if err != nil {
			return Type{}, fmt.Errorf("sequence elem: %w", err)
		}
		t.Elem = uint32(elem)
	case 3: // array
		t.Kind = KindArray
		if t.Len, err = rd.U32(); err != nil {
			return Type{}, fmt.Errorf("array len: %w", err)
		}
		elem, err := rd.CompactUint()
		if err != nil {
			return Type{}, fmt.Errorf("array elem: %w", err)
		}
		t.Elem = uint32(elem)
	case 4: // tuple
		t.Kind = KindTuple
		tupleCount, err := rd.CompactLen()
		if err != nil {
			return Type{}, fmt.Errorf("tuple count: %w", err)
		}
		for i := 0; i < tupleCount; i++ {
			elem, err := rd.CompactUint()
			if err != nil {
				return Type{}, fmt.Errorf("tuple elem: %w", err)
			}
			t.Tuple = append(t.Tuple, uint32(elem))
		}
	case 5: // primitive
		t.Kind = KindPrimitive
		prim, err := rd.Byte()
		if err != nil {
			return Type{}, fmt.Errorf("primitive: %w", err)
		}
		if prim > uint8(PrimI256) {
			return Type{}, fmt.Errorf("unknown primitive %d", prim)
		}
		t.Primitive = Primitive(prim)
	case 6: // compact
		t.Kind = KindCompact
		elem, err := rd.CompactUint()
		if err != nil {
			return Type{}, fmt.Errorf("compact elem: %w", err)
		}
		t.Elem = uint32(elem)
	case 7: // bit sequence
		t.Kind = KindBitSequence
		store, err := rd.CompactUint()
		if err != nil {
			return Type{}, fmt.Errorf("bit store: %w", err)
		}
		t.Elem = uint32(store)
		if _, err := rd.CompactUint(); err != nil {
			return Type{}, fmt.Errorf("bit order: %w", err)
		}
	default:
		return Type{}, fmt.Errorf("unknown type definition tag %d", tag)
	}

	if err := skipTextVec(rd); err != nil {
		return Type{}, fmt.Errorf("docs: %w", err)
	}
	return t, nil
}

func parseFields(rd *scale.Reader) ([]Field, error) {
	count, err := rd.CompactLen()
	if err != nil {
		return nil, fmt.Errorf("field count: %w", err)
	}
	fields := make([]Field, 0, count)
	for i := 0; i < count; i++ {
		var f Field
		name, hasName, err := parseOptionText(rd)
		if err != nil {
			return nil, fmt.Errorf("field name: %w", err)
		}
		if hasName {
			f.Name = name
		}
		fieldType, err := rd.CompactUint()
		if err != nil {
			return nil, fmt.Errorf("field type: %w", err)
		}
		f.Type = uint32(fieldType)
		if _, _, err := parseOptionText(rd); err != nil {
			return nil, fmt.Errorf("field type name: %w", err)
		}
		if err := skipTextVec(rd); err != nil {
			return nil, fmt.Errorf("field docs: %w", err)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func parsePallets(rd *scale.Reader, version uint8) ([]palletMeta, error) {
	count, err := rd.CompactLen()
	if err != nil {
		return nil, fmt.Errorf("pallet count: %w", err)
	}

	pallets := make([]palletMeta, 0, count)
	for i := 0; i < count; i++ {
		p, err := parsePallet(rd, version)
		if err != nil {
			return nil, fmt.Errorf("pallet %d of %d: %w", i, count, err)
		}
		pallets = append(pallets, p)
	}
	return pallets, nil
}

func parsePallet(rd *scale.Reader, version uint8) (palletMeta, error) {
	var p palletMeta
	var err error

	if p.name, err = rd.Text(); err != nil {
		return palletMeta{}, fmt.Errorf("name: %w", err)
	}

	hasStorage, err := parseOptionTag(rd)
	if err != nil {
		return palletMeta{}, fmt.Errorf("storage option: %w", err)
	}
	if hasStorage {
		if err := skipStorage(rd); err != nil {
			return palletMeta{}, fmt.Errorf("storage: %w", err)
		}
	}

	callsType, hasCalls, err := parseOptionCompact(rd)
	if err != nil {
		return palletMeta{}, fmt.Errorf("calls: %w", err)
	}
	p.hasCalls, p.callsType = hasCalls, callsType

	eventType, hasEvents, err := parseOptionCompact(rd)
	if err != nil {
		return palletMeta{}, fmt.Errorf("event: %w", err)
	}
	p.hasEvents, p.eventType = hasEvents, eventType

	constCount, err := rd.CompactLen()
	if err != nil {
		return palletMeta{}, fmt.Errorf("constant count: %w", err)
	}
	for i := 0; i < constCount; i++ {
		name, err := rd.Text()
		if err != nil {
			return palletMeta{}, fmt.Errorf("constant name: %w", err)
		}
		if _, err := rd.CompactUint(); err != nil {
			return palletMeta{}, fmt.Errorf("constant type: %w", err)
		}
		valueLen, err := rd.CompactLen()
		if err != nil {
			return palletMeta{}, fmt.Errorf("constant value length: %w", err)
		}
		value, err := rd.Bytes(valueLen)
		if err != nil {
			return palletMeta{}, fmt.Errorf("constant value: %w", err)
		}
		if err := skipTextVec(rd); err != nil {
			return palletMeta{}, fmt.Errorf("constant docs: %w", err)
		}
		p.constants = append(p.constants, palletConstant{name: name, value: value})
	}

	if _, _, err := parseOptionCompact(rd); err != nil {
		return palletMeta{}, fmt.Errorf("errors: %w", err)
	}

	if p.index, err = rd.Byte(); err != nil {
		return palletMeta{}, fmt.Errorf("index: %w", err)
	}

	if version >= 15 {
		if err := skipTextVec(rd); err != nil {
			return palletMeta{}, fmt.Errorf("docs: %w", err)
		}
	}

	return p, nil
}

// skipStorage walks a pallet's storage metadata without retaining it.
func skipStorage(rd *scale.Reader) error {
	if _, err := rd.Text(); err != nil {
		return fmt.Errorf("prefix: %w", err)
	}
	entryCount, err := rd.CompactLen()
	if err != nil {
		return fmt.Errorf("entry count: %w", err)
	}
	for i := 0; i < entryCount; i++ {
		if _, err := rd.Text(); err != nil {
			return fmt.Errorf("entry name: %w", err)
		}
		if _, err := rd.Byte(); err != nil {
			return fmt.Errorf("entry modifier: %w", err)
		}
		tag, err := rd.Byte()
		if err != nil {
			return fmt.Errorf("entry type tag: %w", err)
		}
		switch tag {
		case 0: // plain
			if _, err := rd.CompactUint(); err != nil {
				return fmt.Errorf("plain type: %w", err)
			}
		case 1: // map
			hasherCount, err := rd.CompactLen()
			if err != nil {
				return fmt.Errorf("hasher count: %w", err)
			}
			if _, err := rd.Bytes(hasherCount); err != nil {
				return fmt.Errorf("hashers: %w", err)
			}
			if _, err := rd.CompactUint(); err != nil {
				return fmt.Errorf("map key: %w", err)
			}
			if _, err := rd.CompactUint(); err != nil {
				return fmt.Errorf("map value: %w", err)
			}
		default:
			return fmt.Errorf("unknown storage entry tag %d", tag)
		}
		fallbackLen, err := rd.CompactLen()
		if err != nil {
			return fmt.Errorf("fallback length: %w", err)
		}
		if _, err := rd.Bytes(fallbackLen); err != nil {
			return fmt.Errorf("fallback: %w", err)
		}
		if err := skipTextVec(rd); err != nil {
			return fmt.Errorf("entry docs: %w", err)
		}
	}
	return nil
}

// buildCallInfo resolves a pallet's calls type: it must be a variant type,
// and the variants are the calls in declaration order.
func buildCallInfo(registry *Registry, p palletMeta) (CallInfo, error) {
	t, ok := registry.Lookup(p.callsType)
	if !ok {
		return CallInfo{}, fmt.Errorf("pallet %s: calls type %d not in registry", p.name, p.callsType)
	}
	if t.Kind != KindVariant {
		return CallInfo{}, fmt.Errorf("pallet %s: calls type %d is not a variant", p.name, p.callsType)
	}

	info := CallInfo{
		Name:      p.name,
		CallCount: len(t.Variants),
		Calls:     make(map[uint8]string, len(t.Variants)),
	}
	for _, v := range t.Variants {
		info.Calls[v.Index] = v.Name
	}
	return info, nil
}

func ss58PrefixConstant(constants []palletConstant) *uint16 {
	for _, c := range constants {
		if c.name != "SS58Prefix" {
			continue
		}
		switch len(c.value) {
		case 1:
			prefix := uint16(c.value[0])
			return &prefix
		case 2:
			prefix := binary.LittleEndian.Uint16(c.value)
			return &prefix
		}
	}
	return nil
}

func applyExtras(types []Type, extras []WideScalar) {
	if len(extras) == 0 {
		return
	}
	for i, t := range types {
		if t.Kind != KindComposite || len(t.Path) == 0 {
			continue
		}
		tail := t.Path[len(t.Path)-1]
		for _, extra := range extras {
			if strings.EqualFold(tail, extra.Name) {
				types[i].Kind = KindWideUint
				types[i].WideBytes = extra.Bytes
			}
		}
	}
}

func parseTextVec(rd *scale.Reader) ([]string, error) {
	count, err := rd.CompactLen()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		s, err := rd.Text()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func skipTextVec(rd *scale.Reader) error {
	_, err := parseTextVec(rd)
	return err
}

func parseOptionTag(rd *scale.Reader) (bool, error) {
	tag, err := rd.Byte()
	if err != nil {
		return false, err
	}
	switch tag {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("invalid option tag %d", tag)
	}
}

func parseOptionCompact(rd *scale.Reader) (uint32, bool, error) {
	present, err := parseOptionTag(rd)
	if err != nil {
		return 0, false, err
	}
	if !present {
		return 0, false, nil
	}
	value, err := rd.CompactUint()
	if err != nil {
		return 0, false, err
	}
	return uint32(value), true, nil
}

func parseOptionText(rd *scale.Reader) (string, bool, error) {
	present, err := parseOptionTag(rd)
	if err != nil {
		return "", false, err
	}
	if !present {
		return "", false, nil
	}
	s, err := rd.Text()
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}
