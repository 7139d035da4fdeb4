// Package native models the loosely-typed payloads handed over by the BLE manager.
//
// A native payload is a tree of Values: scalars (bool, 32/64-bit integers, double,
// string), records (string-keyed maps) and lists. Values are immutable and carry their
// exact scalar representation, so a field encoded as a 64-bit integer is never mistaken
// for a 32-bit one.
package native

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies the representation held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt32
	KindInt64
	KindDouble
	KindString
	KindRecord
	KindList
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindInt32:  "int32",
	KindInt64:  "int64",
	KindDouble: "double",
	KindString: "string",
	KindRecord: "record",
	KindList:   "list",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Record is an untyped key-value payload. The core only reads it.
type Record map[string]Value

// Value is a tagged union over the native scalar and container types.
// The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	rec  Record
	list []Value
}

func Null() Value              { return Value{} }
func Bool(b bool) Value        { return Value{kind: KindBool, b: b} }
func Int32(i int32) Value      { return Value{kind: KindInt32, i: int64(i)} }
func Int64(i int64) Value      { return Value{kind: KindInt64, i: i} }
func Double(f float64) Value   { return Value{kind: KindDouble, f: f} }
func String(s string) Value    { return Value{kind: KindString, s: s} }
func RecordOf(r Record) Value  { return Value{kind: KindRecord, rec: r} }
func ListOf(vs ...Value) Value { return Value{kind: KindList, list: vs} }

// Kind returns the representation held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v holds no value.
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) AsInt32() (int32, bool) { return int32(v.i), v.kind == KindInt32 }

func (v Value) AsInt64() (int64, bool) { return v.i, v.kind == KindInt64 }

func (v Value) AsDouble() (float64, bool) { return v.f, v.kind == KindDouble }

func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

func (v Value) AsRecord() (Record, bool) { return v.rec, v.kind == KindRecord }

// AsList returns the list elements. The returned slice must not be modified.
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

// Len returns the number of elements of a list or record, 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindRecord:
		return len(v.rec)
	default:
		return 0
	}
}

// Interface renders v as plain Go values (nil, bool, int32, int64, float64, string,
// map[string]any, []any). Used for logging and for outward pass-through payloads.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt32:
		return int32(v.i)
	case KindInt64:
		return v.i
	case KindDouble:
		return v.f
	case KindString:
		return v.s
	case KindRecord:
		return v.rec.Interface()
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.Interface()
		}
		return out
	default:
		return nil
	}
}

// Interface renders the record as map[string]any.
func (r Record) Interface() map[string]any {
	if r == nil {
		return nil
	}
	out := make(map[string]any, len(r))
	for k, e := range r {
		out[k] = e.Interface()
	}
	return out
}

// Keys returns the record keys in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Without returns a copy of r lacking the given keys. r itself is left untouched.
func (r Record) Without(keys ...string) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// With returns a copy of r with key set to v.
func (r Record) With(key string, v Value) Record {
	out := make(Record, len(r)+1)
	for k, e := range r {
		out[k] = e
	}
	out[key] = v
	return out
}

// String renders v in a compact, kind-annotated form for diagnostics, e.g. `{id:"AA", rssi:-42i32}`.
func (v Value) String() string {
	var sb strings.Builder
	v.writeTo(&sb)
	return sb.String()
}

func (v Value) writeTo(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		fmt.Fprintf(sb, "%t", v.b)
	case KindInt32:
		fmt.Fprintf(sb, "%di32", v.i)
	case KindInt64:
		fmt.Fprintf(sb, "%di64", v.i)
	case KindDouble:
		fmt.Fprintf(sb, "%gf", v.f)
	case KindString:
		fmt.Fprintf(sb, "%q", v.s)
	case KindRecord:
		sb.WriteByte('{')
		for i, k := range v.rec.Keys() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteByte(':')
			v.rec[k].writeTo(sb)
		}
		sb.WriteByte('}')
	case KindList:
		sb.WriteByte('[')
		for i, e := range v.list {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.writeTo(sb)
		}
		sb.WriteByte(']')
	}
}
