package metadata

import (
	"fmt"
	"math/big"

	"extrinsicScope/internal/scale"
)

// TypeKind is the closed set of type shapes the registry models. Anything
// the chain declares collapses into one of these; there is no reflective
// decoding path.
type TypeKind uint8

const (
	KindComposite TypeKind = iota
	KindVariant
	KindSequence
	KindArray
	KindTuple
	KindPrimitive
	KindCompact
	KindBitSequence
	// KindWideUint is a chain-specific scalar registered via ExtraScalars,
	// decoded as a little-endian unsigned integer of WideBytes bytes.
	KindWideUint
)

// Primitive enumerates scale-info primitive types in declaration order.
type Primitive uint8

const (
	PrimBool Primitive = iota
	PrimChar
	PrimStr
	PrimU8
	PrimU16
	PrimU32
	PrimU64
	PrimU128
	PrimU256
	PrimI8
	PrimI16
	PrimI32
	PrimI64
	PrimI128
	PrimI256
)

// Field is a named reference to another registry type.
type Field struct {
	Name string
	Type uint32
}

// Variant is one arm of a sum type. Index is the wire tag byte.
type Variant struct {
	Name   string
	Index  uint8
	Fields []Field
}

// Type is one entry of the portable type registry.
type Type struct {
	ID        uint32
	Path      []string
	Kind      TypeKind
	Fields    []Field
	Variants  []Variant
	Elem      uint32
	Len       uint32
	Tuple     []uint32
	Primitive Primitive
	WideBytes int
}

// Registry is the chain's type registry, immutable once built.
type Registry struct {
	types map[uint32]Type
}

// NewRegistry builds a registry from a list of types.
func NewRegistry(types []Type) *Registry {
	byID := make(map[uint32]Type, len(types))
	for _, t := range types {
		byID[t.ID] = t
	}
	return &Registry{types: byID}
}

// Lookup resolves a type id.
func (r *Registry) Lookup(id uint32) (Type, bool) {
	t, ok := r.types[id]
	return t, ok
}

// ValueKind tags a decoded Value.
type ValueKind uint8

const (
	ValueUint ValueKind = iota
	ValueBig
	ValueBool
	ValueBytes
	ValueText
	ValueList
	ValueVariant
)

// Value is a decoded SCALE value in the registry's closed type model.
type Value struct {
	Kind         ValueKind
	Uint         uint64
	Big          *big.Int
	Bool         bool
	Bytes        []byte
	Text         string
	List         []Value
	Variant      string
	VariantIndex uint8
}

// AsBig widens any numeric value to a big integer.
func (v Value) AsBig() (*big.Int, bool) {
	switch v.Kind {
	case ValueUint:
		return new(big.Int).SetUint64(v.Uint), true
	case ValueBig:
		return v.Big, true
	default:
		return nil, false
	}
}

// AsBytes32 returns the value as a 32-byte array (e.g. an account id).
func (v Value) AsBytes32() ([]byte, bool) {
	if v.Kind == ValueBytes && len(v.Bytes) == 32 {
		return v.Bytes, true
	}
	return nil, false
}

// DecodeValue decodes one value of the given type id from the reader. It
// consumes exactly the bytes the type occupies, so callers can use it both
// to extract known shapes and to skip unknown ones.
func (r *Registry) DecodeValue(id uint32, rd *scale.Reader) (Value, error) {
	t, ok := r.Lookup(id)
	if !ok {
		return Value{}, fmt.Errorf("decode value: unregistered type %d", id)
	}

	switch t.Kind {
	case KindPrimitive:
		return r.decodePrimitive(t.Primitive, rd)
	case KindWideUint:
		v, err := rd.UintLE(t.WideBytes)
		if err != nil {
			return Value{}, fmt.Errorf("type %d: %w", id, err)
		}
		return Value{Kind: ValueBig, Big: v}, nil
	case KindCompact:
		v, err := rd.Compact()
		if err != nil {
			return Value{}, fmt.Errorf("type %d: %w", id, err)
		}
		return Value{Kind: ValueBig, Big: v}, nil
	case KindComposite:
		if len(t.Fields) == 1 {
			return r.DecodeValue(t.Fields[0].Type, rd)
		}
		return r.decodeFields(t.Fields, rd)
	case KindVariant:
		tag, err := rd.Byte()
		if err != nil {
			return Value{}, fmt.Errorf("type %d variant tag: %w", id, err)
		}
		variant, ok := findVariant(t.Variants, tag)
		if !ok {
			return Value{}, fmt.Errorf("type %d: unknown variant index %d", id, tag)
		}
		inner, err := r.decodeFields(variant.Fields, rd)
		if err != nil {
			return Value{}, err
		}
		inner.Kind = ValueVariant
		inner.Variant = variant.Name
		inner.VariantIndex = tag
		return inner, nil
	case KindSequence:
		length, err := rd.CompactLen()
		if err != nil {
			return Value{}, fmt.Errorf("type %d length: %w", id, err)
		}
		return r.decodeRepeated(t.Elem, length, rd)
	case KindArray:
		return r.decodeRepeated(t.Elem, int(t.Len), rd)
	case KindTuple:
		out := Value{Kind: ValueList}
		for _, elem := range t.Tuple {
			v, err := r.DecodeValue(elem, rd)
			if err != nil {
				return Value{}, err
			}
			out.List = append(out.List, v)
		}
		return out, nil
	case KindBitSequence:
		bits, err := rd.CompactUint()
		if err != nil {
			return Value{}, fmt.Errorf("type %d bits: %w", id, err)
		}
		store := r.bitStoreWidth(t.Elem)
		words := (int(bits) + store*8 - 1) / (store * 8)
		raw, err := rd.Bytes(words * store)
		if err != nil {
			return Value{}, fmt.Errorf("type %d bit store: %w", id, err)
		}
		return Value{Kind: ValueBytes, Bytes: raw}, nil
	default:
		return Value{}, fmt.Errorf("decode value: unsupported kind %d for type %d", t.Kind, id)
	}
}

func (r *Registry) decodePrimitive(p Primitive, rd *scale.Reader) (Value, error) {
	switch p {
	case PrimBool:
		b, err := rd.Byte()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueBool, Bool: b != 0}, nil
	case PrimChar:
		v, err := rd.U32()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueUint, Uint: uint64(v)}, nil
	case PrimStr:
		s, err := rd.Text()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueText, Text: s}, nil
	case PrimU8, PrimI8:
		b, err := rd.Byte()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueUint, Uint: uint64(b)}, nil
	case PrimU16, PrimI16:
		v, err := rd.U16()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueUint, Uint: uint64(v)}, nil
	case PrimU32, PrimI32:
		v, err := rd.U32()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueUint, Uint: uint64(v)}, nil
	case PrimU64, PrimI64:
		v, err := rd.U64()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueUint, Uint: v}, nil
	case PrimU128, PrimI128:
		v, err := rd.UintLE(16)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueBig, Big: v}, nil
	case PrimU256, PrimI256:
		v, err := rd.UintLE(32)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueBig, Big: v}, nil
	default:
		return Value{}, fmt.Errorf("unsupported primitive %d", p)
	}
}

func (r *Registry) decodeFields(fields []Field, rd *scale.Reader) (Value, error) {
	out := Value{Kind: ValueList}
	for _, field := range fields {
		v, err := r.DecodeValue(field.Type, rd)
		if err != nil {
			return Value{}, err
		}
		out.List = append(out.List, v)
	}
	return out, nil
}

func (r *Registry) decodeRepeated(elem uint32, length int, rd *scale.Reader) (Value, error) {
	if t, ok := r.Lookup(elem); ok && t.Kind == KindPrimitive && (t.Primitive == PrimU8 || t.Primitive == PrimI8) {
		raw, err := rd.Bytes(length)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueBytes, Bytes: raw}, nil
	}

	out := Value{Kind: ValueList}
	for i := 0; i < length; i++ {
		v, err := r.DecodeValue(elem, rd)
		if err != nil {
			return Value{}, err
		}
		out.List = append(out.List, v)
	}
	return out, nil
}

func (r *Registry) bitStoreWidth(storeType uint32) int {
	if t, ok := r.Lookup(storeType); ok && t.Kind == KindPrimitive {
		switch t.Primitive {
		case PrimU16:
			return 2
		case PrimU32:
			return 4
		case PrimU64:
			return 8
		}
	}
	return 1
}

func findVariant(variants []Variant, index uint8) (Variant, bool) {
	for _, v := range variants {
		if v.Index == index {
			return v, true
		}
	}
	return Variant{}, false
}
