// Package protocol defines the typed messages exchanged over the cross-process channel
// and their binary wire form.
//
// Messages are plain values, built once from a native record by package convert and
// then serialized. Identifiers that are discrete integers on the native side (service and
// characteristic ids) travel as float64 because the host scalar type system has no
// separate integer type; integer-valued doubles round-trip bit-exactly.
package protocol

import (
	"encoding"
)

// Message is a typed protocol message with a binary wire form.
type Message interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// Device is a peripheral as seen by the BLE manager.
type Device struct {
	ID   string
	Name string
	RSSI int32
	MTU  int32
}

// ScanResult is a device discovered while scanning, with the RSSI at discovery time.
type ScanResult struct {
	Device Device
	RSSI   int32
}

// Service is a GATT service of a connected device.
type Service struct {
	ID        float64
	DeviceID  string
	UUID      string
	IsPrimary bool
}

// Services is the ordered result of a service listing.
type Services []Service

// Characteristic is a GATT characteristic with its capability flags and last known value
// (base64 string, empty until read).
type Characteristic struct {
	ID                        float64
	UUID                      string
	DeviceID                  string
	ServiceUUID               string
	ServiceID                 int64
	IsIndicatable             bool
	IsNotifiable              bool
	IsNotifying               bool
	IsReadable                bool
	IsWritableWithResponse    bool
	IsWritableWithoutResponse bool
	Value                     string
}

// Characteristics is the ordered result of a characteristic listing.
type Characteristics []Characteristic

// MonitorCharacteristic is a characteristic update correlated with the monitor
// request that produced it.
type MonitorCharacteristic struct {
	Characteristic Characteristic
	TransactionID  string
}

// ScanData carries the arguments of a scan request.
type ScanData struct {
	ScanMode     int32
	CallbackType int32
	UUIDs        []string
}

var (
	_ Message = (*Device)(nil)
	_ Message = (*ScanResult)(nil)
	_ Message = (*Service)(nil)
	_ Message = (*Services)(nil)
	_ Message = (*Characteristic)(nil)
	_ Message = (*Characteristics)(nil)
	_ Message = (*MonitorCharacteristic)(nil)
	_ Message = (*ScanData)(nil)
)

func (m *Device) MarshalBinary() ([]byte, error) {
	var e encoder
	e.string(deviceFieldID, m.ID)
	e.string(deviceFieldName, m.Name)
	e.int32(deviceFieldRSSI, m.RSSI)
	e.int32(deviceFieldMTU, m.MTU)
	return e.b, nil
}

func (m *Device) UnmarshalBinary(b []byte) error {
	*m = Device{}
	d := newDecoder(b)
	for d.next() {
		switch d.num {
		case deviceFieldID:
			m.ID = d.string()
		case deviceFieldName:
			m.Name = d.string()
		case deviceFieldRSSI:
			m.RSSI = d.int32()
		case deviceFieldMTU:
			m.MTU = d.int32()
		default:
			d.skip()
		}
	}
	return d.err
}

func (m *ScanResult) MarshalBinary() ([]byte, error) {
	dev, err := m.Device.MarshalBinary()
	if err != nil {
		return nil, err
	}
	var e encoder
	e.message(scanResultFieldDevice, dev)
	e.int32(scanResultFieldRSSI, m.RSSI)
	return e.b, nil
}

func (m *ScanResult) UnmarshalBinary(b []byte) error {
	*m = ScanResult{}
	d := newDecoder(b)
	for d.next() {
		switch d.num {
		case scanResultFieldDevice:
			if nested := d.bytes(); d.err == nil {
				if err := m.Device.UnmarshalBinary(nested); err != nil {
					return err
				}
			}
		case scanResultFieldRSSI:
			m.RSSI = d.int32()
		default:
			d.skip()
		}
	}
	return d.err
}

func (m *Service) MarshalBinary() ([]byte, error) {
	dev, err := (&Device{ID: m.DeviceID}).MarshalBinary()
	if err != nil {
		return nil, err
	}
	var e encoder
	e.double(serviceFieldID, m.ID)
	e.message(serviceFieldDevice, dev)
	e.string(serviceFieldUUID, m.UUID)
	e.bool(serviceFieldIsPrimary, m.IsPrimary)
	return e.b, nil
}

func (m *Service) UnmarshalBinary(b []byte) error {
	*m = Service{}
	d := newDecoder(b)
	for d.next() {
		switch d.num {
		case serviceFieldID:
			m.ID = d.double()
		case serviceFieldDevice:
			if nested := d.bytes(); d.err == nil {
				var dev Device
				if err := dev.UnmarshalBinary(nested); err != nil {
					return err
				}
				m.DeviceID = dev.ID
			}
		case serviceFieldUUID:
			m.UUID = d.string()
		case serviceFieldIsPrimary:
			m.IsPrimary = d.bool()
		default:
			d.skip()
		}
	}
	return d.err
}

func (m *Services) MarshalBinary() ([]byte, error) {
	var e encoder
	for i := range *m {
		item, err := (*m)[i].MarshalBinary()
		if err != nil {
			return nil, err
		}
		e.message(listFieldItems, item)
	}
	return e.b, nil
}

func (m *Services) UnmarshalBinary(b []byte) error {
	out := Services{}
	d := newDecoder(b)
	for d.next() {
		if d.num != listFieldItems {
			d.skip()
			continue
		}
		nested := d.bytes()
		if d.err != nil {
			break
		}
		var s Service
		if err := s.UnmarshalBinary(nested); err != nil {
			return err
		}
		out = append(out, s)
	}
	if d.err != nil {
		return d.err
	}
	*m = out
	return nil
}

func (m *Characteristic) MarshalBinary() ([]byte, error) {
	var e encoder
	e.double(charFieldID, m.ID)
	e.string(charFieldUUID, m.UUID)
	e.int64(charFieldServiceID, m.ServiceID)
	e.string(charFieldServiceUUID, m.ServiceUUID)
	e.string(charFieldDeviceID, m.DeviceID)
	e.bool(charFieldIsIndicatable, m.IsIndicatable)
	e.bool(charFieldIsNotifiable, m.IsNotifiable)
	e.bool(charFieldIsNotifying, m.IsNotifying)
	e.bool(charFieldIsReadable, m.IsReadable)
	e.bool(charFieldIsWritableWithResponse, m.IsWritableWithResponse)
	e.bool(charFieldIsWritableWithoutResponse, m.IsWritableWithoutResponse)
	e.string(charFieldValue, m.Value)
	return e.b, nil
}

func (m *Characteristic) UnmarshalBinary(b []byte) error {
	*m = Characteristic{}
	d := newDecoder(b)
	for d.next() {
		switch d.num {
		case charFieldID:
			m.ID = d.double()
		case charFieldUUID:
			m.UUID = d.string()
		case charFieldServiceID:
			m.ServiceID = d.int64()
		case charFieldServiceUUID:
			m.ServiceUUID = d.string()
		case charFieldDeviceID:
			m.DeviceID = d.string()
		case charFieldIsIndicatable:
			m.IsIndicatable = d.bool()
		case charFieldIsNotifiable:
			m.IsNotifiable = d.bool()
		case charFieldIsNotifying:
			m.IsNotifying = d.bool()
		case charFieldIsReadable:
			m.IsReadable = d.bool()
		case charFieldIsWritableWithResponse:
			m.IsWritableWithResponse = d.bool()
		case charFieldIsWritableWithoutResponse:
			m.IsWritableWithoutResponse = d.bool()
		case charFieldValue:
			m.Value = d.string()
		default:
			d.skip()
		}
	}
	return d.err
}

func (m *Characteristics) MarshalBinary() ([]byte, error) {
	var e encoder
	for i := range *m {
		item, err := (*m)[i].MarshalBinary()
		if err != nil {
			return nil, err
		}
		e.message(listFieldItems, item)
	}
	return e.b, nil
}

func (m *Characteristics) UnmarshalBinary(b []byte) error {
	out := Characteristics{}
	d := newDecoder(b)
	for d.next() {
		if d.num != listFieldItems {
			d.skip()
			continue
		}
		nested := d.bytes()
		if d.err != nil {
			break
		}
		var c Characteristic
		if err := c.UnmarshalBinary(nested); err != nil {
			return err
		}
		out = append(out, c)
	}
	if d.err != nil {
		return d.err
	}
	*m = out
	return nil
}

func (m *MonitorCharacteristic) MarshalBinary() ([]byte, error) {
	char, err := m.Characteristic.MarshalBinary()
	if err != nil {
		return nil, err
	}
	var e encoder
	e.string(monitorFieldTransactionID, m.TransactionID)
	e.message(monitorFieldCharacteristic, char)
	return e.b, nil
}

func (m *MonitorCharacteristic) UnmarshalBinary(b []byte) error {
	*m = MonitorCharacteristic{}
	d := newDecoder(b)
	for d.next() {
		switch d.num {
		case monitorFieldTransactionID:
			m.TransactionID = d.string()
		case monitorFieldCharacteristic:
			if nested := d.bytes(); d.err == nil {
				if err := m.Characteristic.UnmarshalBinary(nested); err != nil {
					return err
				}
			}
		default:
			d.skip()
		}
	}
	return d.err
}

func (m *ScanData) MarshalBinary() ([]byte, error) {
	var e encoder
	e.int32(scanDataFieldScanMode, m.ScanMode)
	e.int32(scanDataFieldCallbackType, m.CallbackType)
	e.repeatedString(scanDataFieldUUIDs, m.UUIDs)
	return e.b, nil
}

func (m *ScanData) UnmarshalBinary(b []byte) error {
	*m = ScanData{}
	d := newDecoder(b)
	for d.next() {
		switch d.num {
		case scanDataFieldScanMode:
			m.ScanMode = d.int32()
		case scanDataFieldCallbackType:
			m.CallbackType = d.int32()
		case scanDataFieldUUIDs:
			if s := d.string(); d.err == nil {
				m.UUIDs = append(m.UUIDs, s)
			}
		default:
			d.skip()
		}
	}
	return d.err
}
