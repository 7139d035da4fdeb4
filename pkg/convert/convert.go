// Package convert validates untyped native records into typed protocol messages.
//
// Every converter is pure and total-or-failing: either all required fields are present
// with their exact representation and the message is returned, or a *ConversionError is
// returned and nothing is built. Collection converters are all-or-nothing.
package convert

import (
	"errors"
	"fmt"

	"github.com/srg/blewire/pkg/native"
	"github.com/srg/blewire/pkg/protocol"
)

// ErrConversionFailed is matched by every converter failure.
var ErrConversionFailed = errors.New("conversion failed")

// ConversionError reports which entity failed and why. Index is the element position
// for collection conversions, -1 otherwise.
type ConversionError struct {
	Entity string
	Index  int
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("convert %s[%d]: %v", e.Entity, e.Index, e.Err)
	}
	return fmt.Sprintf("convert %s: %v", e.Entity, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Is makes every ConversionError match ErrConversionFailed.
func (e *ConversionError) Is(target error) bool {
	return target == ErrConversionFailed
}

func fail(entity string, err error) error {
	return &ConversionError{Entity: entity, Index: -1, Err: err}
}

// Converters holds the per-entity conversions for one protocol revision.
type Converters struct {
	rev Revision
}

// New returns the converters accepting records of revision rev.
func New(rev Revision) Converters {
	return Converters{rev: rev}
}

// Revision returns the revision these converters accept.
func (c Converters) Revision() Revision { return c.rev }

// Device converts {id, name?, rssi, mtu}. rssi is optional (default 0) in the
// current revision and required in the legacy one; name always defaults to "".
func (c Converters) Device(rec native.Record) (protocol.Device, error) {
	id, err := rec.String("id")
	if err != nil {
		return protocol.Device{}, fail("Device", err)
	}
	mtu, err := rec.Int32("mtu")
	if err != nil {
		return protocol.Device{}, fail("Device", err)
	}

	rssi := rec.OptionalInt32("rssi", 0)
	if c.rev == RevisionLegacy {
		if rssi, err = rec.Int32("rssi"); err != nil {
			return protocol.Device{}, fail("Device", err)
		}
	}

	return protocol.Device{
		ID:   id,
		Name: rec.OptionalString("name", ""),
		RSSI: rssi,
		MTU:  mtu,
	}, nil
}

// ScanResult converts a discovered device record. rssi is required in every revision.
func (c Converters) ScanResult(rec native.Record) (protocol.ScanResult, error) {
	rssi, err := rec.Int32("rssi")
	if err != nil {
		return protocol.ScanResult{}, fail("ScanResult", err)
	}
	id, err := rec.String("id")
	if err != nil {
		return protocol.ScanResult{}, fail("ScanResult", err)
	}
	mtu, err := rec.Int32("mtu")
	if err != nil {
		return protocol.ScanResult{}, fail("ScanResult", err)
	}

	return protocol.ScanResult{
		Device: protocol.Device{
			ID:   id,
			Name: rec.OptionalString("name", ""),
			RSSI: rssi,
			MTU:  mtu,
		},
		RSSI: rssi,
	}, nil
}

// Service converts {id: double, deviceID, uuid, isPrimary: bool}.
func (c Converters) Service(rec native.Record) (protocol.Service, error) {
	id, err := rec.Double("id")
	if err != nil {
		return protocol.Service{}, fail("Service", err)
	}
	deviceID, err := rec.String("deviceID")
	if err != nil {
		return protocol.Service{}, fail("Service", err)
	}
	uuid, err := rec.String("uuid")
	if err != nil {
		return protocol.Service{}, fail("Service", err)
	}
	isPrimary, err := rec.Bool("isPrimary")
	if err != nil {
		return protocol.Service{}, fail("Service", err)
	}

	return protocol.Service{ID: id, DeviceID: deviceID, UUID: uuid, IsPrimary: isPrimary}, nil
}

// Services converts every record or fails as a whole.
func (c Converters) Services(recs []native.Record) (protocol.Services, error) {
	out := make(protocol.Services, 0, len(recs))
	for i, rec := range recs {
		s, err := c.Service(rec)
		if err != nil {
			return nil, &ConversionError{Entity: "Services", Index: i, Err: err}
		}
		out = append(out, s)
	}
	return out, nil
}

// Characteristic converts a characteristic record in the configured revision.
func (c Converters) Characteristic(rec native.Record) (protocol.Characteristic, error) {
	id, err := rec.Double("id")
	if err != nil {
		return protocol.Characteristic{}, fail("Characteristic", err)
	}
	uuid, err := rec.String("uuid")
	if err != nil {
		return protocol.Characteristic{}, fail("Characteristic", err)
	}
	deviceID, err := rec.String("deviceID")
	if err != nil {
		return protocol.Characteristic{}, fail("Characteristic", err)
	}
	serviceUUID, err := rec.String("serviceUUID")
	if err != nil {
		return protocol.Characteristic{}, fail("Characteristic", err)
	}
	serviceID, err := c.serviceID(rec)
	if err != nil {
		return protocol.Characteristic{}, fail("Characteristic", err)
	}

	var flags [6]bool
	for i, key := range c.rev.FlagKeys() {
		if flags[i], err = c.flag(rec, key); err != nil {
			return protocol.Characteristic{}, fail("Characteristic", err)
		}
	}

	return protocol.Characteristic{
		ID:                        id,
		UUID:                      uuid,
		DeviceID:                  deviceID,
		ServiceUUID:               serviceUUID,
		ServiceID:                 serviceID,
		IsIndicatable:             flags[0],
		IsNotifiable:              flags[1],
		IsNotifying:               flags[2],
		IsReadable:                flags[3],
		IsWritableWithResponse:    flags[4],
		IsWritableWithoutResponse: flags[5],
		Value:                     rec.OptionalString("value", ""),
	}, nil
}

func (c Converters) serviceID(rec native.Record) (int64, error) {
	if c.rev == RevisionLegacy {
		id, err := rec.Int32("serviceID")
		return int64(id), err
	}
	return rec.Int64("serviceID")
}

// flag reads one capability flag: int64 1 (current) or string "1" (legacy) means true,
// any other value of the right kind means false.
func (c Converters) flag(rec native.Record, key string) (bool, error) {
	if c.rev == RevisionLegacy {
		s, err := rec.String(key)
		return s == "1", err
	}
	i, err := rec.Int64(key)
	return i == 1, err
}

// Characteristics converts every record or fails as a whole.
func (c Converters) Characteristics(recs []native.Record) (protocol.Characteristics, error) {
	out := make(protocol.Characteristics, 0, len(recs))
	for i, rec := range recs {
		ch, err := c.Characteristic(rec)
		if err != nil {
			return nil, &ConversionError{Entity: "Characteristics", Index: i, Err: err}
		}
		out = append(out, ch)
	}
	return out, nil
}

// MonitorCharacteristic converts a characteristic record enriched with the transaction id
// supplied alongside it (not inside it). txContext must be a string.
func (c Converters) MonitorCharacteristic(rec native.Record, txContext native.Value) (protocol.MonitorCharacteristic, error) {
	char, err := c.Characteristic(rec)
	if err != nil {
		return protocol.MonitorCharacteristic{}, fail("MonitorCharacteristic", err)
	}
	txID, ok := txContext.AsString()
	if !ok {
		return protocol.MonitorCharacteristic{}, fail("MonitorCharacteristic",
			&native.FieldError{Field: "transactionID", Want: native.KindString, Got: txContext.Kind(), Missing: txContext.IsNull()})
	}
	return protocol.MonitorCharacteristic{Characteristic: char, TransactionID: txID}, nil
}

// ErrUnknownState is returned for adapter state names outside the fixed enumeration.
var ErrUnknownState = errors.New("unknown bluetooth state")

// BluetoothState maps an adapter state name to its enumeration.
func (c Converters) BluetoothState(name string) (protocol.BluetoothState, error) {
	s, ok := protocol.ParseBluetoothState(name)
	if !ok {
		return 0, fail("BluetoothState", fmt.Errorf("%w: %q", ErrUnknownState, name))
	}
	return s, nil
}
