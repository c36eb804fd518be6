package variant

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Key is the union of the three concrete Dictionary key kinds 
// allows: string, int, or a full Variant (for heterogeneous-keyed
// dictionaries). Keys compare by their rendered string form so that a
// string key "1" and an int key 1 are deliberately distinct entries,
// matching the original key-typed lookup semantics.
type Key struct {
	kind keyKind
	s    string
	i    int64
	v    Variant
}

type keyKind uint8

const (
	keyString keyKind = iota
	keyInt
	keyVariant
)

// StringKey builds a string-keyed Key.
func StringKey(s string) Key { return Key{kind: keyString, s: s} }

// IntKey builds an int-keyed Key.
func IntKey(i int64) Key { return Key{kind: keyInt, i: i} }

// VariantKey builds a Key from an arbitrary Variant.
func VariantKey(v Variant) Key { return Key{kind: keyVariant, v: v} }

// lookupKey is the internal map key: a string rendering distinguishing
// key kinds so "1" (string) and 1 (int) never collide.
func (k Key) lookupKey() string {
	switch k.kind {
	case keyString:
		return "s:" + k.s
	case keyInt:
		return "i:" + strconv.FormatInt(k.i, 10)
	case keyVariant:
		return "v:" + k.v.AsString()
	default:
		return ""
	}
}

// String renders the key for display/serialization purposes.
func (k Key) String() string {
	switch k.kind {
	case keyString:
		return k.s
	case keyInt:
		return strconv.FormatInt(k.i, 10)
	case keyVariant:
		return k.v.AsString()
	default:
		return ""
	}
}

type entry struct {
	key    Key
	value  Variant
	sortID uint64
}

// Dictionary is a dual insertion-ordered/key-lookup container of
// Variants. The zero value is not usable; use NewDictionary.
type Dictionary struct {
	entries        map[string]*entry
	order          []*entry
	nextSortID     uint64
	nextArrayIndex int64
}

// NewDictionary returns an empty, ready-to-use Dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{entries: make(map[string]*entry)}
}

// Set inserts or overwrites key's value, preserving key's original
// insertion position on overwrite and appending a new sort-id for a
// fresh key. Setting a Variant holding a nested Dictionary stores a deep
// copy of it.
func (d *Dictionary) Set(key Key, value Variant) {
	lk := key.lookupKey()
	if e, ok := d.entries[lk]; ok {
		e.value = value.DeepCopy()
		return
	}
	e := &entry{key: key, value: value.DeepCopy(), sortID: d.nextSortID}
	d.nextSortID++
	d.entries[lk] = e
	d.order = append(d.order, e)
}

// Get returns the value at key, or def if key is absent.
func (d *Dictionary) Get(key Key, def Variant) Variant {
	if e, ok := d.entries[key.lookupKey()]; ok {
		return e.value
	}
	return def
}

// GetPtr returns a pointer to the stored value at key, or nil if the
// entry is absent or doesn't match typedDefault's kind (mirrors the
// "&T|null" contract ).
func (d *Dictionary) GetPtr(key Key, typedDefault Variant) *Variant {
	e, ok := d.entries[key.lookupKey()]
	if !ok {
		return nil
	}
	if e.value.Kind() != typedDefault.Kind() {
		return nil
	}
	return &e.value
}

// Exists reports whether key has an entry.
func (d *Dictionary) Exists(key Key) bool {
	_, ok := d.entries[key.lookupKey()]
	return ok
}

// IsType reports whether key's stored value has the same Kind as example.
func (d *Dictionary) IsType(key Key, example Variant) bool {
	e, ok := d.entries[key.lookupKey()]
	if !ok {
		return false
	}
	return e.value.Kind() == example.Kind()
}

// Destroy removes key's entry from both views.
func (d *Dictionary) Destroy(key Key) {
	lk := key.lookupKey()
	e, ok := d.entries[lk]
	if !ok {
		return
	}
	delete(d.entries, lk)
	for i, o := range d.order {
		if o == e {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of entries.
func (d *Dictionary) Len() int { return len(d.order) }

// GetNextArrayIndex returns the next free integer slot for append-without-
// key operations.
func (d *Dictionary) GetNextArrayIndex() int64 { return d.nextArrayIndex }

// SetNextArrayIndex sets the next free integer slot explicitly.
func (d *Dictionary) SetNextArrayIndex(i int64) { d.nextArrayIndex = i }

// Append stores value under the next free integer slot and advances the
// array cursor, the "append without explicit key" behavior .
func (d *Dictionary) Append(value Variant) int64 {
	idx := d.nextArrayIndex
	d.Set(IntKey(idx), value)
	d.nextArrayIndex++
	return idx
}

// IterateInsertionOrder calls fn for every entry in insertion order,
// stopping early if fn returns false.
func (d *Dictionary) IterateInsertionOrder(fn func(key Key, value Variant) bool) {
	for _, e := range d.order {
		if !fn(e.key, e.value) {
			return
		}
	}
}

// IterateKeyOrder calls fn for every entry ordered by the key's rendered
// string form, stopping early if fn returns false.
func (d *Dictionary) IterateKeyOrder(fn func(key Key, value Variant) bool) {
	sorted := make([]*entry, len(d.order))
	copy(sorted, d.order)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].key.lookupKey() < sorted[j].key.lookupKey()
	})
	for _, e := range sorted {
		if !fn(e.key, e.value) {
			return
		}
	}
}

// Merge overwrites this dictionary's matching keys with other's values
// and appends other's new keys, preserving insertion order for the new
// keys.
func (d *Dictionary) Merge(other *Dictionary) {
	if other == nil {
		return
	}
	other.IterateInsertionOrder(func(key Key, value Variant) bool {
		d.Set(key, value)
		return true
	})
	if other.nextArrayIndex > d.nextArrayIndex {
		d.nextArrayIndex = other.nextArrayIndex
	}
}

// DeepCopy recursively clones d, preserving insertion order and the
// array-next-index cursor.
func (d *Dictionary) DeepCopy() *Dictionary {
	if d == nil {
		return nil
	}
	out := NewDictionary()
	out.nextArrayIndex = d.nextArrayIndex
	for _, e := range d.order {
		out.Set(e.key, e.value.DeepCopy())
	}
	return out
}

// DeepCompare returns true iff every key exists in both dictionaries and
// every value is either equal primitive or deep-equal dictionary, per
// .
func (d *Dictionary) DeepCompare(other *Dictionary) bool {
	if d == nil || other == nil {
		return d == other
	}
	if len(d.order) != len(other.order) {
		return false
	}
	for lk, e := range d.entries {
		oe, ok := other.entries[lk]
		if !ok {
			return false
		}
		if !e.value.Equals(oe.value) {
			return false
		}
	}
	return true
}

// String renders the dictionary compactly for debug/log output.
func (d *Dictionary) String() string {
	b, _ := json.Marshal(d.toJSONValue())
	return string(b)
}

func (d *Dictionary) toJSONValue() any {
	out := make(map[string]any, len(d.order))
	arr := make([]any, 0, len(d.order))
	for i, e := range d.order {
		var val any
		if e.value.IsDictionary() {
			val = e.value.AsDictionary().toJSONValue()
		} else {
			val = variantScalarForJSON(e.value)
		}
		out[e.key.String()] = val
		if arr != nil && e.key.kind == keyInt && e.key.i == int64(i) {
			arr = append(arr, val)
		} else {
			arr = nil
		}
	}
	if len(arr) > 0 {
		return arr
	}
	return out
}

func variantScalarForJSON(v Variant) any {
	switch v.Kind() {
	case KindNil:
		return nil
	case KindString, KindChar:
		return v.AsString()
	case KindBool:
		return v.AsBool()
	case KindFloat, KindDouble:
		return v.AsFloat64()
	default:
		return v.AsInt64()
	}
}

// ToJSON renders the dictionary as a JSON object, for tooling that
// inspects a Dictionary without going through a script engine.
func (d *Dictionary) ToJSON() ([]byte, error) {
	return json.Marshal(d.toJSONValue())
}

// FromJSON parses a JSON object into a fresh Dictionary, inferring
// Variant kinds numeric-range policy (whole-number JSON
// values become int, any fractional value in the object promotes to
// double; this is applied per-object, not recursively across siblings).
func FromJSON(data []byte) (*Dictionary, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing dictionary JSON: %w", err)
	}
	return dictionaryFromMap(raw), nil
}

func dictionaryFromMap(raw map[string]any) *Dictionary {
	d := NewDictionary()
	hasFloat := false
	for _, v := range raw {
		if f, ok := v.(float64); ok && f != float64(int64(f)) {
			hasFloat = true
			break
		}
	}
	// Deterministic key order for reproducible tests, since encoding/json
	// does not preserve object key order.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		d.Set(StringKey(k), variantFromJSONValue(raw[k], hasFloat))
	}
	return d
}

func variantFromJSONValue(v any, promoteToDouble bool) Variant {
	switch val := v.(type) {
	case nil:
		return Nil()
	case bool:
		return Bool(val)
	case string:
		return String(val)
	case float64:
		if promoteToDouble || val != float64(int64(val)) {
			return Double(val)
		}
		return Int(int32(val))
	case map[string]any:
		return FromDictionary(dictionaryFromMap(val))
	case []any:
		nested := NewDictionary()
		for _, item := range val {
			nested.Append(variantFromJSONValue(item, promoteToDouble))
		}
		return FromDictionary(nested)
	default:
		return Nil()
	}
}
