package protocol

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the binary schema. They must stay stable across releases.
const (
	deviceFieldID   protowire.Number = 1
	deviceFieldName protowire.Number = 2
	deviceFieldRSSI protowire.Number = 3
	deviceFieldMTU  protowire.Number = 4

	scanResultFieldDevice protowire.Number = 1
	scanResultFieldRSSI   protowire.Number = 2

	serviceFieldID        protowire.Number = 1
	serviceFieldDevice    protowire.Number = 2
	serviceFieldUUID      protowire.Number = 3
	serviceFieldIsPrimary protowire.Number = 4

	charFieldID                        protowire.Number = 1
	charFieldUUID                      protowire.Number = 2
	charFieldServiceID                 protowire.Number = 3
	charFieldServiceUUID               protowire.Number = 4
	charFieldDeviceID                  protowire.Number = 5
	charFieldIsIndicatable             protowire.Number = 6
	charFieldIsNotifiable              protowire.Number = 7
	charFieldIsNotifying               protowire.Number = 8
	charFieldIsReadable                protowire.Number = 9
	charFieldIsWritableWithResponse    protowire.Number = 10
	charFieldIsWritableWithoutResponse protowire.Number = 11
	charFieldValue                     protowire.Number = 12

	monitorFieldTransactionID  protowire.Number = 1
	monitorFieldCharacteristic protowire.Number = 2

	listFieldItems protowire.Number = 1

	scanDataFieldScanMode     protowire.Number = 1
	scanDataFieldCallbackType protowire.Number = 2
	scanDataFieldUUIDs        protowire.Number = 3
)

// encoder appends proto3 fields; zero scalars are omitted.
type encoder struct {
	b []byte
}

func (e *encoder) string(num protowire.Number, s string) {
	if s == "" {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendString(e.b, s)
}

func (e *encoder) repeatedString(num protowire.Number, ss []string) {
	for _, s := range ss {
		e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
		e.b = protowire.AppendString(e.b, s)
	}
}

func (e *encoder) int32(num protowire.Number, v int32) {
	if v == 0 {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.VarintType)
	e.b = protowire.AppendVarint(e.b, uint64(int64(v)))
}

func (e *encoder) int64(num protowire.Number, v int64) {
	if v == 0 {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.VarintType)
	e.b = protowire.AppendVarint(e.b, uint64(v))
}

func (e *encoder) double(num protowire.Number, v float64) {
	bits := math.Float64bits(v)
	if bits == 0 {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.Fixed64Type)
	e.b = protowire.AppendFixed64(e.b, bits)
}

func (e *encoder) bool(num protowire.Number, v bool) {
	if !v {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.VarintType)
	e.b = protowire.AppendVarint(e.b, protowire.EncodeBool(v))
}

func (e *encoder) message(num protowire.Number, nested []byte) {
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendBytes(e.b, nested)
}

// decoder walks the fields of one message. Unknown fields are skipped.
type decoder struct {
	b   []byte
	num protowire.Number
	typ protowire.Type
	err error
}

func newDecoder(b []byte) *decoder {
	return &decoder{b: b}
}

// next advances to the next field tag. It returns false at the end of input or on error.
func (d *decoder) next() bool {
	if d.err != nil || len(d.b) == 0 {
		return false
	}
	num, typ, n := protowire.ConsumeTag(d.b)
	if n < 0 {
		d.fail(protowire.ParseError(n))
		return false
	}
	d.num, d.typ = num, typ
	d.b = d.b[n:]
	return true
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: field %d: %v", ErrWireFormat, d.num, err)
	}
}

func (d *decoder) expect(typ protowire.Type) bool {
	if d.typ != typ {
		d.fail(fmt.Errorf("wire type %d, want %d", d.typ, typ))
		return false
	}
	return true
}

func (d *decoder) skip() {
	n := protowire.ConsumeFieldValue(d.num, d.typ, d.b)
	if n < 0 {
		d.fail(protowire.ParseError(n))
		return
	}
	d.b = d.b[n:]
}

func (d *decoder) varint() uint64 {
	if !d.expect(protowire.VarintType) {
		return 0
	}
	v, n := protowire.ConsumeVarint(d.b)
	if n < 0 {
		d.fail(protowire.ParseError(n))
		return 0
	}
	d.b = d.b[n:]
	return v
}

func (d *decoder) bytes() []byte {
	if !d.expect(protowire.BytesType) {
		return nil
	}
	v, n := protowire.ConsumeBytes(d.b)
	if n < 0 {
		d.fail(protowire.ParseError(n))
		return nil
	}
	d.b = d.b[n:]
	return v
}

func (d *decoder) string() string { return string(d.bytes()) }

func (d *decoder) int32() int32 { return int32(d.varint()) }

func (d *decoder) int64() int64 { return int64(d.varint()) }

func (d *decoder) bool() bool { return protowire.DecodeBool(d.varint()) }

func (d *decoder) double() float64 {
	if !d.expect(protowire.Fixed64Type) {
		return 0
	}
	v, n := protowire.ConsumeFixed64(d.b)
	if n < 0 {
		d.fail(protowire.ParseError(n))
		return 0
	}
	d.b = d.b[n:]
	return math.Float64frombits(v)
}
