package convert

import (
	"github.com/srg/blewire/pkg/native"
	"github.com/srg/blewire/pkg/protocol"
)

// The *Value variants accept the raw payload as handed over by a native callback and
// check its container shape (record or list of records) before converting.

func asRecord(entity string, v native.Value) (native.Record, error) {
	rec, ok := v.AsRecord()
	if !ok {
		return nil, fail(entity, &native.FieldError{Field: "payload", Want: native.KindRecord, Got: v.Kind(), Missing: v.IsNull()})
	}
	return rec, nil
}

func asRecords(entity string, v native.Value) ([]native.Record, error) {
	recs, err := native.Records(v)
	if err != nil {
		return nil, fail(entity, err)
	}
	return recs, nil
}

func (c Converters) DeviceValue(v native.Value) (protocol.Device, error) {
	rec, err := asRecord("Device", v)
	if err != nil {
		return protocol.Device{}, err
	}
	return c.Device(rec)
}

func (c Converters) ScanResultValue(v native.Value) (protocol.ScanResult, error) {
	rec, err := asRecord("ScanResult", v)
	if err != nil {
		return protocol.ScanResult{}, err
	}
	return c.ScanResult(rec)
}

func (c Converters) ServicesValue(v native.Value) (protocol.Services, error) {
	recs, err := asRecords("Services", v)
	if err != nil {
		return nil, err
	}
	return c.Services(recs)
}

func (c Converters) CharacteristicValue(v native.Value) (protocol.Characteristic, error) {
	rec, err := asRecord("Characteristic", v)
	if err != nil {
		return protocol.Characteristic{}, err
	}
	return c.Characteristic(rec)
}

func (c Converters) CharacteristicsValue(v native.Value) (protocol.Characteristics, error) {
	recs, err := asRecords("Characteristics", v)
	if err != nil {
		return nil, err
	}
	return c.Characteristics(recs)
}

func (c Converters) MonitorCharacteristicValue(v, txContext native.Value) (protocol.MonitorCharacteristic, error) {
	rec, err := asRecord("MonitorCharacteristic", v)
	if err != nil {
		return protocol.MonitorCharacteristic{}, err
	}
	return c.MonitorCharacteristic(rec, txContext)
}

// BluetoothStateValue accepts the state name as a string payload.
func (c Converters) BluetoothStateValue(v native.Value) (protocol.BluetoothState, error) {
	name, ok := v.AsString()
	if !ok {
		return 0, fail("BluetoothState", &native.FieldError{Field: "payload", Want: native.KindString, Got: v.Kind(), Missing: v.IsNull()})
	}
	return c.BluetoothState(name)
}
