// Package render turns protocol messages, native values and call results into ordered
// JSON-ready trees. Field order follows the wire field numbers so output is stable.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/blewire/pkg/native"
	"github.com/srg/blewire/pkg/protocol"
)

// Object is an insertion-ordered JSON object.
type Object = orderedmap.OrderedMap[string, any]

// NewObject returns an empty ordered object.
func NewObject() *Object { return orderedmap.New[string, any]() }

// ErrUnknownMessageType is returned by Decode for unsupported type names.
var ErrUnknownMessageType = errors.New("unknown message type")

var messageTypes = map[string]func() protocol.Message{
	"device":                func() protocol.Message { return &protocol.Device{} },
	"scanResult":            func() protocol.Message { return &protocol.ScanResult{} },
	"service":               func() protocol.Message { return &protocol.Service{} },
	"services":              func() protocol.Message { return &protocol.Services{} },
	"characteristic":        func() protocol.Message { return &protocol.Characteristic{} },
	"characteristics":       func() protocol.Message { return &protocol.Characteristics{} },
	"monitorCharacteristic": func() protocol.Message { return &protocol.MonitorCharacteristic{} },
	"scanData":              func() protocol.Message { return &protocol.ScanData{} },
}

// MessageTypes lists the names Decode accepts, sorted.
func MessageTypes() []string {
	names := make([]string, 0, len(messageTypes))
	for n := range messageTypes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Decode parses wire bytes as the named message type.
func Decode(typeName string, b []byte) (protocol.Message, error) {
	ctor, ok := messageTypes[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownMessageType, typeName, strings.Join(MessageTypes(), ", "))
	}
	m := ctor()
	if err := m.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	return m, nil
}

// Message renders a protocol message.
func Message(m protocol.Message) (any, error) {
	switch v := m.(type) {
	case *protocol.Device:
		return device(*v), nil
	case *protocol.ScanResult:
		o := NewObject()
		o.Set("device", device(v.Device))
		o.Set("rssi", v.RSSI)
		return o, nil
	case *protocol.Service:
		return service(*v), nil
	case *protocol.Services:
		out := make([]any, 0, len(*v))
		for _, s := range *v {
			out = append(out, service(s))
		}
		return out, nil
	case *protocol.Characteristic:
		return characteristic(*v), nil
	case *protocol.Characteristics:
		out := make([]any, 0, len(*v))
		for _, c := range *v {
			out = append(out, characteristic(c))
		}
		return out, nil
	case *protocol.MonitorCharacteristic:
		o := NewObject()
		o.Set("transactionID", v.TransactionID)
		o.Set("characteristic", characteristic(v.Characteristic))
		return o, nil
	case *protocol.ScanData:
		o := NewObject()
		o.Set("scanMode", v.ScanMode)
		o.Set("callbackType", v.CallbackType)
		uuids := v.UUIDs
		if uuids == nil {
			uuids = []string{}
		}
		o.Set("uuids", uuids)
		return o, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessageType, m)
	}
}

func device(d protocol.Device) *Object {
	o := NewObject()
	o.Set("id", d.ID)
	o.Set("name", d.Name)
	o.Set("rssi", d.RSSI)
	o.Set("mtu", d.MTU)
	return o
}

func service(s protocol.Service) *Object {
	o := NewObject()
	o.Set("id", s.ID)
	o.Set("deviceID", s.DeviceID)
	o.Set("uuid", s.UUID)
	o.Set("isPrimary", s.IsPrimary)
	return o
}

func characteristic(c protocol.Characteristic) *Object {
	o := NewObject()
	o.Set("id", c.ID)
	o.Set("uuid", c.UUID)
	o.Set("serviceID", c.ServiceID)
	o.Set("serviceUUID", c.ServiceUUID)
	o.Set("deviceID", c.DeviceID)
	o.Set("isIndicatable", c.IsIndicatable)
	o.Set("isNotifiable", c.IsNotifiable)
	o.Set("isNotifying", c.IsNotifying)
	o.Set("isReadable", c.IsReadable)
	o.Set("isWritableWithResponse", c.IsWritableWithResponse)
	o.Set("isWritableWithoutResponse", c.IsWritableWithoutResponse)
	o.Set("value", c.Value)
	return o
}

// Native renders an untyped native value; record keys are sorted.
func Native(v native.Value) any {
	switch v.Kind() {
	case native.KindRecord:
		rec, _ := v.AsRecord()
		o := NewObject()
		for _, k := range rec.Keys() {
			o.Set(k, Native(rec[k]))
		}
		return o
	case native.KindList:
		list, _ := v.AsList()
		out := make([]any, 0, len(list))
		for _, e := range list {
			out = append(out, Native(e))
		}
		return out
	default:
		return v.Interface()
	}
}

// Error renders a structured error.
func Error(err *protocol.Error) *Object {
	o := NewObject()
	o.Set("code", err.Code)
	o.Set("message", err.Message)
	if err.Details != "" {
		o.Set("details", err.Details)
	}
	return o
}

// JSON marshals a rendered tree, indented when indent is set.
func JSON(v any, indent bool) ([]byte, error) {
	if indent {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
