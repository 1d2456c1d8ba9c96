// Package settings defines the tagged value type stored in per-entity settings
// overlays and media asset metadata.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	// KindNull is the zero Value.
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

var (
	// ErrNotString is returned when a string-only overlay receives another kind.
	ErrNotString = errors.New("settings: value must be a string")
	// ErrUnsupportedType is returned by FromAny for values with no JSON-like shape.
	ErrUnsupportedType = errors.New("settings: unsupported value type")
)

// Value is a JSON-like tagged variant. The zero Value is null. Values are
// immutable once built; List and Map accessors hand out copies.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []Value
	m    Map
}

// Map is a settings overlay or metadata map keyed by setting name.
type Map map[string]Value

// String builds a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number builds a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool builds a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Null returns the null value.
func Null() Value { return Value{} }

// List builds a list value from copies of items.
func List(items ...Value) Value {
	out := make([]Value, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return Value{kind: KindList, list: out}
}

// Object builds a map value from a copy of m.
func Object(m Map) Value {
	return Value{kind: KindMap, m: m.Clone()}
}

// Kind reports the variant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload and whether v is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the numeric payload and whether v is a number.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Boolean returns the boolean payload and whether v is a bool.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Items returns a copy of the list payload.
func (v Value) Items() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return List(v.list...).list, true
}

// Fields returns a copy of the map payload.
func (v Value) Fields() (Map, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.m.Clone(), true
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		if v.list == nil {
			return Value{kind: KindList}
		}
		out := make([]Value, len(v.list))
		for i, item := range v.list {
			out[i] = item.Clone()
		}
		return Value{kind: KindList, list: out}
	case KindMap:
		return Value{kind: KindMap, m: v.m.Clone()}
	default:
		return v
	}
}

// Equal reports deep equality. Map key order never matters.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == other.str
	case KindNumber:
		return v.num == other.num
	case KindBool:
		return v.b == other.b
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.Equal(other.m)
	}
	return false
}

// Interface converts v into plain Go values: nil, string, float64, bool,
// []any or map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		return v.m.Interface()
	default:
		return nil
	}
}

// FromAny converts decoded JSON/CBOR data or native Go scalars into a Value.
func FromAny(in any) (Value, error) {
	switch typed := in.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return typed.Clone(), nil
	case Map:
		return Object(typed), nil
	case string:
		return String(typed), nil
	case bool:
		return Bool(typed), nil
	case float64:
		return Number(typed), nil
	case float32:
		return Number(float64(typed)), nil
	case int:
		return Number(float64(typed)), nil
	case int32:
		return Number(float64(typed)), nil
	case int64:
		return Number(float64(typed)), nil
	case uint64:
		return Number(float64(typed)), nil
	case json.Number:
		f, err := typed.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("settings: number %q: %w", typed.String(), err)
		}
		return Number(f), nil
	case []any:
		out := make([]Value, len(typed))
		for i, item := range typed {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			out[i] = v
		}
		return Value{kind: KindList, list: out}, nil
	case map[string]any:
		out := make(Map, len(typed))
		for k, item := range typed {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			out[k] = v
		}
		return Value{kind: KindMap, m: out}, nil
	case map[any]any:
		// CBOR decodes untyped maps with interface keys.
		out := make(Map, len(typed))
		for k, item := range typed {
			key, ok := k.(string)
			if !ok {
				return Value{}, fmt.Errorf("%w: map key %T", ErrUnsupportedType, k)
			}
			v, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			out[key] = v
		}
		return Value{kind: KindMap, m: out}, nil
	}
	return Value{}, fmt.Errorf("%w: %s", ErrUnsupportedType, reflect.TypeOf(in))
}

// MustFromAny is FromAny for literals known to be valid.
func MustFromAny(in any) Value {
	v, err := FromAny(in)
	if err != nil {
		panic(err)
	}
	return v
}

// MarshalJSON encodes v as its plain JSON shape.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindNumber && (math.IsNaN(v.num) || math.IsInf(v.num, 0)) {
		return nil, fmt.Errorf("settings: number %v has no JSON form", v.num)
	}
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes any JSON document into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// MarshalCBOR encodes v with canonical map ordering.
func (v Value) MarshalCBOR() ([]byte, error) {
	return canonicalMode.Marshal(v.Interface())
}

// UnmarshalCBOR decodes a CBOR item into v.
func (v *Value) UnmarshalCBOR(data []byte) error {
	var raw any
	if err := decodeMode.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// Clone returns a deep copy of m. A nil map stays nil.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}

// Equal compares two maps by key set and deep value equality. Nil and empty
// maps are equal.
func (m Map) Equal(other Map) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		ov, ok := other[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Keys returns the map keys sorted ascending.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WithPrefix returns copies of the entries whose key starts with prefix.
func (m Map) WithPrefix(prefix string) Map {
	out := Map{}
	for k, v := range m {
		if strings.HasPrefix(k, prefix) {
			out[k] = v.Clone()
		}
	}
	return out
}

// Interface converts m into map[string]any.
func (m Map) Interface() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Interface()
	}
	return out
}

// RequireStrings reports ErrNotString for the first non-string entry.
func (m Map) RequireStrings() error {
	for _, k := range m.Keys() {
		if m[k].kind != KindString {
			return fmt.Errorf("%w: key %q holds %s", ErrNotString, k, m[k].kind)
		}
	}
	return nil
}

var (
	canonicalMode cbor.EncMode
	decodeMode    cbor.DecMode
)

func init() {
	opts := cbor.CanonicalEncOptions()
	opts.NilContainers = cbor.NilContainerAsEmpty
	em, err := opts.EncMode()
	if err != nil {
		panic(fmt.Errorf("settings: cbor enc mode: %w", err))
	}
	canonicalMode = em
	dm, err := cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any(nil))}.DecMode()
	if err != nil {
		panic(fmt.Errorf("settings: cbor dec mode: %w", err))
	}
	decodeMode = dm
}
