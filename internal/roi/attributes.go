package roi

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Well-known attribute keys read by the chain, transcript and codec code.
// Any other key is carried through untouched.
const (
	KeyID             = "ID"
	KeyName           = "Name"
	KeyNameLower      = "name"
	KeyParent         = "Parent"
	KeyType           = "type"
	KeySource         = "source"
	KeyScore          = "score"
	KeyPhase          = "phase"
	KeyFrame          = "frame"
	KeyColor          = "color"
	KeyGeneID         = "gene_id"
	KeyTranscriptID   = "transcript_id"
	KeyThickStart     = "thickstart"
	KeyThickEnd       = "thickend"
	KeyCDSGenomeStart = "cds_genome_start"
	KeyCDSGenomeEnd   = "cds_genome_end"
	KeyCDSStart       = "cds_start"
	KeyCDSEnd         = "cds_end"

	// KeyBEDXColumnOrder records the names of extra BED columns, in file
	// order, so that export reproduces them.
	KeyBEDXColumnOrder = "_bedx_column_order"
)

// Kind identifies the type held by a Value.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindIntList
	KindStringList
)

var kindNames = [...]string{"string", "int", "float", "ints", "strings"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a tagged attribute value.
type Value struct {
	kind Kind
	str  string
	num  int
	flt  float64
	ints []int
	strs []string
}

// StringValue returns a string Value.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// IntValue returns an integer Value.
func IntValue(i int) Value { return Value{kind: KindInt, num: i} }

// FloatValue returns a floating point Value.
func FloatValue(f float64) Value { return Value{kind: KindFloat, flt: f} }

// IntsValue returns an integer list Value. The slice is copied.
func IntsValue(v []int) Value { return Value{kind: KindIntList, ints: slices.Clone(v)} }

// StringsValue returns a string list Value. The slice is copied.
func StringsValue(v []string) Value { return Value{kind: KindStringList, strs: slices.Clone(v)} }

// Kind returns the type held by v.
func (v Value) Kind() Kind { return v.kind }

// Int returns the integer held by v. Floats with no fractional part and
// decimal strings convert; anything else reports false.
func (v Value) Int() (int, bool) {
	switch v.kind {
	case KindInt:
		return v.num, true
	case KindFloat:
		if v.flt == float64(int(v.flt)) {
			return int(v.flt), true
		}
	case KindString:
		if i, err := strconv.Atoi(strings.TrimSpace(v.str)); err == nil {
			return i, true
		}
	}
	return 0, false
}

// Float returns v as a float64 when it is numeric or a numeric string.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.num), true
	case KindFloat:
		return v.flt, true
	case KindString:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// Ints returns the integer list held by v. A comma separated string of
// integers converts.
func (v Value) Ints() ([]int, bool) {
	switch v.kind {
	case KindIntList:
		return slices.Clone(v.ints), true
	case KindString:
		var out []int
		for _, f := range strings.Split(strings.Trim(v.str, ","), ",") {
			if f == "" {
				continue
			}
			i, err := strconv.Atoi(f)
			if err != nil {
				return nil, false
			}
			out = append(out, i)
		}
		return out, true
	}
	return nil, false
}

// Strings returns v as a list of strings. Scalars become one-element lists.
func (v Value) Strings() []string {
	switch v.kind {
	case KindStringList:
		return slices.Clone(v.strs)
	case KindIntList:
		out := make([]string, len(v.ints))
		for i, x := range v.ints {
			out[i] = strconv.Itoa(x)
		}
		return out
	}
	return []string{v.String()}
}

// String formats v for text output. Lists are comma separated.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.Itoa(v.num)
	case KindFloat:
		return strconv.FormatFloat(v.flt, 'f', -1, 64)
	case KindIntList, KindStringList:
		return strings.Join(v.Strings(), ",")
	}
	return v.str
}

// Equal reports whether v and o hold the same kind and contents.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.num == o.num
	case KindFloat:
		return v.flt == o.flt
	case KindIntList:
		return slices.Equal(v.ints, o.ints)
	case KindStringList:
		return slices.Equal(v.strs, o.strs)
	}
	return v.str == o.str
}

func (v Value) clone() Value {
	v.ints = slices.Clone(v.ints)
	v.strs = slices.Clone(v.strs)
	return v
}

// Attributes is an insertion-ordered map of annotation values attached to
// a chain. A nil *Attributes behaves as an empty, read-only map.
type Attributes struct {
	keys []string
	vals map[string]Value
}

// NewAttributes returns an empty attribute map.
func NewAttributes() *Attributes {
	return &Attributes{vals: make(map[string]Value)}
}

// StringAttributes builds an attribute map from key, value pairs.
// A trailing unpaired key is ignored.
func StringAttributes(kv ...string) *Attributes {
	a := NewAttributes()
	for i := 0; i+1 < len(kv); i += 2 {
		a.SetString(kv[i], kv[i+1])
	}
	return a
}

// Len returns the number of keys.
func (a *Attributes) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

// Keys returns the keys in insertion order.
func (a *Attributes) Keys() []string {
	if a == nil {
		return nil
	}
	return slices.Clone(a.keys)
}

// Has reports whether key is set.
func (a *Attributes) Has(key string) bool {
	if a == nil {
		return false
	}
	_, ok := a.vals[key]
	return ok
}

// Get returns the value stored under key.
func (a *Attributes) Get(key string) (Value, bool) {
	if a == nil {
		return Value{}, false
	}
	v, ok := a.vals[key]
	if !ok {
		return Value{}, false
	}
	return v.clone(), true
}

// GetString returns the text form of the value stored under key.
func (a *Attributes) GetString(key string) (string, bool) {
	v, ok := a.Get(key)
	if !ok {
		return "", false
	}
	return v.String(), true
}

// GetInt returns the integer stored under key.
func (a *Attributes) GetInt(key string) (int, bool) {
	v, ok := a.Get(key)
	if !ok {
		return 0, false
	}
	return v.Int()
}

// GetInts returns the integer list stored under key.
func (a *Attributes) GetInts(key string) ([]int, bool) {
	v, ok := a.Get(key)
	if !ok {
		return nil, false
	}
	return v.Ints()
}

// Set stores v under key. Existing keys keep their position.
func (a *Attributes) Set(key string, v Value) {
	if a.vals == nil {
		a.vals = make(map[string]Value)
	}
	if _, ok := a.vals[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.vals[key] = v.clone()
}

// SetString stores a string under key.
func (a *Attributes) SetString(key, s string) { a.Set(key, StringValue(s)) }

// SetInt stores an integer under key.
func (a *Attributes) SetInt(key string, i int) { a.Set(key, IntValue(i)) }

// Delete removes key.
func (a *Attributes) Delete(key string) {
	if a == nil {
		return
	}
	if _, ok := a.vals[key]; !ok {
		return
	}
	delete(a.vals, key)
	a.keys = slices.DeleteFunc(a.keys, func(k string) bool { return k == key })
}

// Clone returns a deep copy. Cloning nil yields an empty map.
func (a *Attributes) Clone() *Attributes {
	out := NewAttributes()
	if a == nil {
		return out
	}
	out.keys = slices.Clone(a.keys)
	for k, v := range a.vals {
		out.vals[k] = v.clone()
	}
	return out
}

// Update copies every entry of o into a, overwriting existing keys.
func (a *Attributes) Update(o *Attributes) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		a.Set(k, o.vals[k])
	}
}

// Equal reports whether a and o hold the same keys, order and values.
func (a *Attributes) Equal(o *Attributes) bool {
	if a.Len() != o.Len() {
		return false
	}
	for i, k := range a.Keys() {
		if o.keys[i] != k || !a.vals[k].Equal(o.vals[k]) {
			return false
		}
	}
	return true
}

type jsonEntry struct {
	Key   string          `json:"k"`
	Kind  string          `json:"t"`
	Value json.RawMessage `json:"v"`
}

// MarshalJSON encodes the map as an ordered list of typed entries.
func (a *Attributes) MarshalJSON() ([]byte, error) {
	entries := make([]jsonEntry, 0, a.Len())
	for _, k := range a.Keys() {
		v := a.vals[k]
		var (
			raw []byte
			err error
		)
		switch v.kind {
		case KindInt:
			raw, err = json.Marshal(v.num)
		case KindFloat:
			raw, err = json.Marshal(v.flt)
		case KindIntList:
			raw, err = json.Marshal(v.ints)
		case KindStringList:
			raw, err = json.Marshal(v.strs)
		default:
			raw, err = json.Marshal(v.str)
		}
		if err != nil {
			return nil, fmt.Errorf("marshal attribute %q: %w", k, err)
		}
		entries = append(entries, jsonEntry{Key: k, Kind: v.kind.String(), Value: raw})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	var entries []jsonEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("unmarshal attributes: %w", err)
	}
	*a = Attributes{vals: make(map[string]Value, len(entries))}
	for _, e := range entries {
		var (
			v   Value
			err error
		)
		switch e.Kind {
		case "int":
			v.kind = KindInt
			err = json.Unmarshal(e.Value, &v.num)
		case "float":
			v.kind = KindFloat
			err = json.Unmarshal(e.Value, &v.flt)
		case "ints":
			v.kind = KindIntList
			err = json.Unmarshal(e.Value, &v.ints)
		case "strings":
			v.kind = KindStringList
			err = json.Unmarshal(e.Value, &v.strs)
		case "string":
			v.kind = KindString
			err = json.Unmarshal(e.Value, &v.str)
		default:
			err = fmt.Errorf("unknown kind %q", e.Kind)
		}
		if err != nil {
			return fmt.Errorf("unmarshal attribute %q: %w", e.Key, err)
		}
		a.Set(e.Key, v)
	}
	return nil
}
