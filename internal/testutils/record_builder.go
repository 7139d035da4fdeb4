package testutils

import (
	"github.com/srg/blewire/pkg/convert"
	"github.com/srg/blewire/pkg/native"
)

// RecordBuilder builds native records for tests with a fluent API.
// Build always returns a fresh copy, so one builder can seed many variants.
type RecordBuilder struct {
	rec native.Record
}

// NewRecordBuilder creates an empty RecordBuilder.
func NewRecordBuilder() *RecordBuilder {
	return &RecordBuilder{rec: native.Record{}}
}

// With sets key to an arbitrary value.
func (b *RecordBuilder) With(key string, v native.Value) *RecordBuilder {
	b.rec[key] = v
	return b
}

func (b *RecordBuilder) WithString(key, s string) *RecordBuilder {
	return b.With(key, native.String(s))
}

func (b *RecordBuilder) WithInt32(key string, i int32) *RecordBuilder {
	return b.With(key, native.Int32(i))
}

func (b *RecordBuilder) WithInt64(key string, i int64) *RecordBuilder {
	return b.With(key, native.Int64(i))
}

func (b *RecordBuilder) WithDouble(key string, f float64) *RecordBuilder {
	return b.With(key, native.Double(f))
}

func (b *RecordBuilder) WithBool(key string, v bool) *RecordBuilder {
	return b.With(key, native.Bool(v))
}

// Without removes key.
func (b *RecordBuilder) Without(key string) *RecordBuilder {
	delete(b.rec, key)
	return b
}

// Build returns a copy of the record.
func (b *RecordBuilder) Build() native.Record {
	out := make(native.Record, len(b.rec))
	for k, v := range b.rec {
		out[k] = v
	}
	return out
}

// Value returns the record wrapped as a native.Value.
func (b *RecordBuilder) Value() native.Value {
	return native.RecordOf(b.Build())
}

// DeviceRecord returns {"id":"AA:BB", "name":"Sensor", "rssi":-42, "mtu":23}.
func DeviceRecord() *RecordBuilder {
	return NewRecordBuilder().
		WithString("id", "AA:BB").
		WithString("name", "Sensor").
		WithInt32("rssi", -42).
		WithInt32("mtu", 23)
}

// ServiceRecord returns a primary service record with the given numeric id.
func ServiceRecord(id float64, uuid string) *RecordBuilder {
	return NewRecordBuilder().
		WithDouble("id", id).
		WithString("deviceID", "AA:BB").
		WithString("uuid", uuid).
		WithBool("isPrimary", true)
}

// CharacteristicRecord returns a characteristic record encoded for rev: indicatable and
// readable are set, all other flags are clear, value is "AEs=".
func CharacteristicRecord(rev convert.Revision) *RecordBuilder {
	b := NewRecordBuilder().
		WithDouble("id", 1).
		WithString("uuid", "u1").
		WithString("deviceID", "d1").
		WithString("serviceUUID", "s1").
		WithString("value", "AEs=")

	flags := [6]bool{true, false, false, true, false, false}
	keys := rev.FlagKeys()

	if rev == convert.RevisionLegacy {
		b.WithInt32("serviceID", 2)
		for i, key := range keys {
			s := "0"
			if flags[i] {
				s = "1"
			}
			b.WithString(key, s)
		}
		return b
	}

	b.WithInt64("serviceID", 2)
	for i, key := range keys {
		var v int64
		if flags[i] {
			v = 1
		}
		b.WithInt64(key, v)
	}
	return b
}
