// Package variant implements the tagged-value data model: Variant (a
// tagged, value-semantic scalar or nested Dictionary) and Dictionary
// (a dual insertion-ordered/key-lookup container). It is grounded on
// the host service layer's config value model (system/core's
// typed-value handling for service configuration)
// generalized to the full Variant kind set this runtime needs, plus
// JSON/jsonpath interop for the admin surface.
package variant

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vmrealm/agentrt/internal/registry"
)

// Kind is the Variant's dynamic scalar/container tag.
type Kind uint8

const (
	KindNil Kind = iota
	KindString
	KindChar
	KindByte
	KindShort
	KindUShort
	KindInt
	KindUInt
	KindLong
	KindULong
	KindInt64
	KindFloat
	KindDouble
	KindBool
	KindDictionary
)

// reserved TypeIDs for the Kind set, occupying the range below
// registry.PrimitiveBase so that every Variant kind has a stable,
// process-wide type-id.
const (
	typeIDNil TypeIDBase = iota + 1
	typeIDString
	typeIDChar
	typeIDByte
	typeIDShort
	typeIDUShort
	typeIDInt
	typeIDUInt
	typeIDLong
	typeIDULong
	typeIDInt64
	typeIDFloat
	typeIDDouble
	typeIDBool
	typeIDDictionary
)

// TypeIDBase is the raw numeric type used while building the reserved
// range table; it is converted to registry.TypeID at registration time.
type TypeIDBase registry.TypeID

var kindTypeID = map[Kind]registry.TypeID{
	KindNil:        registry.TypeID(typeIDNil),
	KindString:     registry.TypeID(typeIDString),
	KindChar:       registry.TypeID(typeIDChar),
	KindByte:       registry.TypeID(typeIDByte),
	KindShort:      registry.TypeID(typeIDShort),
	KindUShort:     registry.TypeID(typeIDUShort),
	KindInt:        registry.TypeID(typeIDInt),
	KindUInt:       registry.TypeID(typeIDUInt),
	KindLong:       registry.TypeID(typeIDLong),
	KindULong:      registry.TypeID(typeIDULong),
	KindInt64:      registry.TypeID(typeIDInt64),
	KindFloat:      registry.TypeID(typeIDFloat),
	KindDouble:     registry.TypeID(typeIDDouble),
	KindBool:       registry.TypeID(typeIDBool),
	KindDictionary: registry.TypeID(typeIDDictionary),
}

var kindNames = map[Kind]string{
	KindNil:        "nil",
	KindString:     "string",
	KindChar:       "char",
	KindByte:       "byte",
	KindShort:      "short",
	KindUShort:     "ushort",
	KindInt:        "int",
	KindUInt:       "uint",
	KindLong:       "long",
	KindULong:      "ulong",
	KindInt64:      "int64",
	KindFloat:      "float",
	KindDouble:     "double",
	KindBool:       "bool",
	KindDictionary: "dictionary",
}

// RegisterPrimitives installs the reserved Variant kinds into reg's
// TypeRegistry, once per Registry instance. A second call against the
// same Registry fails because the reserved ids are already registered.
func RegisterPrimitives(reg *registry.Registry) error {
	for kind, id := range kindTypeID {
		if err := reg.RegisterReservedType(id, kindNames[kind]); err != nil {
			return fmt.Errorf("registering primitive kind %s: %w", kindNames[kind], err)
		}
	}
	return nil
}

// Variant is a tagged, value-semantic scalar or nested Dictionary per
// . The zero Variant is KindNil.
type Variant struct {
	kind Kind
	s    string
	i    int64
	u    uint64
	f    float64
	b    bool
	dict *Dictionary
}

// Nil returns the nil Variant.
func Nil() Variant { return Variant{kind: KindNil} }

func String(v string) Variant  { return Variant{kind: KindString, s: v} }
func Char(v byte) Variant      { return Variant{kind: KindChar, i: int64(v)} }
func Byte(v byte) Variant      { return Variant{kind: KindByte, u: uint64(v)} }
func Short(v int16) Variant    { return Variant{kind: KindShort, i: int64(v)} }
func UShort(v uint16) Variant  { return Variant{kind: KindUShort, u: uint64(v)} }
func Int(v int32) Variant      { return Variant{kind: KindInt, i: int64(v)} }
func UInt(v uint32) Variant    { return Variant{kind: KindUInt, u: uint64(v)} }
func Long(v int64) Variant     { return Variant{kind: KindLong, i: v} }
func ULong(v uint64) Variant   { return Variant{kind: KindULong, u: v} }
func Int64(v int64) Variant    { return Variant{kind: KindInt64, i: v} }
func Float(v float32) Variant  { return Variant{kind: KindFloat, f: float64(v)} }
func Double(v float64) Variant { return Variant{kind: KindDouble, f: v} }
func Bool(v bool) Variant      { return Variant{kind: KindBool, b: v} }

// FromDictionary wraps d as a Variant holding a nested dictionary, deep
// copying d's contents ("Set of a Variant holding a nested
// dictionary stores by deep copy of the dictionary's contents").
func FromDictionary(d *Dictionary) Variant {
	return Variant{kind: KindDictionary, dict: d.DeepCopy()}
}

// Kind reports the Variant's dynamic kind.
func (v Variant) Kind() Kind { return v.kind }

// TypeID implements registry.Value, giving every Variant a stable,
// process-wide type-id as required by .
func (v Variant) TypeID() registry.TypeID { return kindTypeID[v.kind] }

// IsNil reports whether v holds no value.
func (v Variant) IsNil() bool { return v.kind == KindNil }

// IsDictionary reports whether v holds a nested Dictionary.
func (v Variant) IsDictionary() bool { return v.kind == KindDictionary }

// AsDictionary returns the nested Dictionary, or nil if v isn't one.
func (v Variant) AsDictionary() *Dictionary { return v.dict }

// AsString renders v as a string regardless of kind (the // "stringify" operation).
func (v Variant) AsString() string {
	switch v.kind {
	case KindNil:
		return ""
	case KindString:
		return v.s
	case KindChar:
		return string(rune(v.i))
	case KindByte, KindUShort, KindUInt, KindULong:
		return strconv.FormatUint(v.u, 10)
	case KindShort, KindInt, KindLong, KindInt64:
		return strconv.FormatInt(v.i, 10)
	case KindFloat, KindDouble:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindDictionary:
		return v.dict.String()
	default:
		return ""
	}
}

// AsInt64 returns v's integer value for any numeric kind, or 0 otherwise.
func (v Variant) AsInt64() int64 {
	switch v.kind {
	case KindChar, KindShort, KindInt, KindLong, KindInt64:
		return v.i
	case KindByte, KindUShort, KindUInt, KindULong:
		return int64(v.u)
	case KindFloat, KindDouble:
		return int64(v.f)
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// AsFloat64 returns v's float value for any numeric kind, or 0 otherwise.
func (v Variant) AsFloat64() float64 {
	switch v.kind {
	case KindFloat, KindDouble:
		return v.f
	case KindChar, KindShort, KindInt, KindLong, KindInt64:
		return float64(v.i)
	case KindByte, KindUShort, KindUInt, KindULong:
		return float64(v.u)
	default:
		return 0
	}
}

// AsBool returns v's bool value, accepting case-insensitive "true"/
// "false" tokens for string Variants numeric-range policy.
func (v Variant) AsBool() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindString:
		return strings.EqualFold(v.s, "true")
	default:
		return v.AsInt64() != 0
	}
}

// Parse builds a Variant of the given kind from its string form, the
// "parse-from-string" operation .
func Parse(kind Kind, s string) (Variant, error) {
	switch kind {
	case KindNil:
		return Nil(), nil
	case KindString:
		return String(s), nil
	case KindChar:
		if len(s) == 0 {
			return Variant{}, fmt.Errorf("empty char literal")
		}
		return Char(s[0]), nil
	case KindByte:
		n, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return Variant{}, err
		}
		return Byte(byte(n)), nil
	case KindShort:
		n, err := strconv.ParseInt(s, 10, 16)
		if err != nil {
			return Variant{}, err
		}
		return Short(int16(n)), nil
	case KindUShort:
		n, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return Variant{}, err
		}
		return UShort(uint16(n)), nil
	case KindInt:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return Variant{}, err
		}
		return Int(int32(n)), nil
	case KindUInt:
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return Variant{}, err
		}
		return UInt(uint32(n)), nil
	case KindLong:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Variant{}, err
		}
		return Long(n), nil
	case KindULong:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return Variant{}, err
		}
		return ULong(n), nil
	case KindInt64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Variant{}, err
		}
		return Int64(n), nil
	case KindFloat:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return Variant{}, err
		}
		return Float(float32(f)), nil
	case KindDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Variant{}, err
		}
		return Double(f), nil
	case KindBool:
		return Bool(strings.EqualFold(s, "true")), nil
	default:
		return Variant{}, fmt.Errorf("cannot parse kind %v from string", kind)
	}
}

// Equals implements value equality, treating any two numeric kinds with
// the same mathematical value as equal ( DeepCompare's "modulo
// differing string-type tags that map to the same semantic value").
func (v Variant) Equals(other Variant) bool {
	if v.kind == KindDictionary || other.kind == KindDictionary {
		if v.kind != KindDictionary || other.kind != KindDictionary {
			return false
		}
		return v.dict.DeepCompare(other.dict)
	}
	if isNumeric(v.kind) && isNumeric(other.kind) {
		if isFloatKind(v.kind) || isFloatKind(other.kind) {
			return v.AsFloat64() == other.AsFloat64()
		}
		return v.AsInt64() == other.AsInt64()
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindString:
		return v.s == other.s
	case KindBool:
		return v.b == other.b
	}
	return false
}

func isNumeric(k Kind) bool {
	switch k {
	case KindChar, KindByte, KindShort, KindUShort, KindInt, KindUInt, KindLong, KindULong, KindInt64, KindFloat, KindDouble:
		return true
	}
	return false
}

func isFloatKind(k Kind) bool {
	return k == KindFloat || k == KindDouble
}

// DeepCopy clones v, recursively copying any nested Dictionary.
func (v Variant) DeepCopy() Variant {
	if v.kind == KindDictionary {
		return Variant{kind: KindDictionary, dict: v.dict.DeepCopy()}
	}
	return v
}
