package native

import (
	"errors"
	"fmt"
)

// ErrMissingOrInvalidField is matched by every field extraction failure.
var ErrMissingOrInvalidField = errors.New("missing or invalid field")

// FieldError describes a required field that is absent or not of the exact expected kind.
type FieldError struct {
	Field   string
	Want    Kind
	Got     Kind
	Missing bool
}

func (e *FieldError) Error() string {
	if e.Missing {
		return fmt.Sprintf("field %q: missing, want %s", e.Field, e.Want)
	}
	return fmt.Sprintf("field %q: got %s, want %s", e.Field, e.Got, e.Want)
}

// Is makes every FieldError match ErrMissingOrInvalidField.
func (e *FieldError) Is(target error) bool {
	return target == ErrMissingOrInvalidField
}

// lookup returns the value under key if it holds exactly the wanted kind.
func (r Record) lookup(key string, want Kind) (Value, error) {
	v, ok := r[key]
	if !ok {
		return Value{}, &FieldError{Field: key, Want: want, Missing: true}
	}
	if v.kind != want {
		return Value{}, &FieldError{Field: key, Want: want, Got: v.kind}
	}
	return v, nil
}

func (r Record) String(key string) (string, error) {
	v, err := r.lookup(key, KindString)
	return v.s, err
}

func (r Record) Bool(key string) (bool, error) {
	v, err := r.lookup(key, KindBool)
	return v.b, err
}

func (r Record) Int32(key string) (int32, error) {
	v, err := r.lookup(key, KindInt32)
	return int32(v.i), err
}

func (r Record) Int64(key string) (int64, error) {
	v, err := r.lookup(key, KindInt64)
	return v.i, err
}

func (r Record) Double(key string) (float64, error) {
	v, err := r.lookup(key, KindDouble)
	return v.f, err
}

// Record returns a nested record.
func (r Record) Record(key string) (Record, error) {
	v, err := r.lookup(key, KindRecord)
	return v.rec, err
}

// RecordList returns a nested list whose elements are all records.
func (r Record) RecordList(key string) ([]Record, error) {
	v, err := r.lookup(key, KindList)
	if err != nil {
		return nil, err
	}
	recs, err := Records(v)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", key, err)
	}
	return recs, nil
}

// OptionalString returns the string under key, or def when the key is absent or not a string.
func (r Record) OptionalString(key, def string) string {
	if s, err := r.String(key); err == nil {
		return s
	}
	return def
}

// OptionalInt32 returns the int32 under key, or def when the key is absent or not an int32.
func (r Record) OptionalInt32(key string, def int32) int32 {
	if i, err := r.Int32(key); err == nil {
		return i
	}
	return def
}

// Records unwraps a list of records. Any non-record element fails the whole list.
func Records(v Value) ([]Record, error) {
	list, ok := v.AsList()
	if !ok {
		return nil, &FieldError{Field: "[]", Want: KindList, Got: v.kind}
	}
	out := make([]Record, len(list))
	for i, e := range list {
		rec, ok := e.AsRecord()
		if !ok {
			return nil, &FieldError{Field: fmt.Sprintf("[%d]", i), Want: KindRecord, Got: e.kind}
		}
		out[i] = rec
	}
	return out, nil
}
