package call

import (
	"errors"
	"fmt"

	"github.com/srg/blewire/pkg/convert"
	"github.com/srg/blewire/pkg/native"
	"github.com/srg/blewire/pkg/protocol"
)

// ErrUnexpectedPayload is returned by primitive converters for a payload of the wrong kind
// or outside its enumeration.
var ErrUnexpectedPayload = errors.New("unexpected payload")

// ConvertFunc turns a native success payload into a Result.
type ConvertFunc func(v native.Value) (Result, error)

func marshal(m protocol.Message) (Result, error) {
	b, err := m.MarshalBinary()
	if err != nil {
		return Result{}, err
	}
	return Result{Bytes: b, Message: m}, nil
}

func DeviceConverter(c convert.Converters) ConvertFunc {
	return func(v native.Value) (Result, error) {
		m, err := c.DeviceValue(v)
		if err != nil {
			return Result{}, err
		}
		return marshal(&m)
	}
}

func ServicesConverter(c convert.Converters) ConvertFunc {
	return func(v native.Value) (Result, error) {
		m, err := c.ServicesValue(v)
		if err != nil {
			return Result{}, err
		}
		return marshal(&m)
	}
}

func CharacteristicConverter(c convert.Converters) ConvertFunc {
	return func(v native.Value) (Result, error) {
		m, err := c.CharacteristicValue(v)
		if err != nil {
			return Result{}, err
		}
		return marshal(&m)
	}
}

func CharacteristicsConverter(c convert.Converters) ConvertFunc {
	return func(v native.Value) (Result, error) {
		m, err := c.CharacteristicsValue(v)
		if err != nil {
			return Result{}, err
		}
		return marshal(&m)
	}
}

// BoolConverter expects a bool payload.
func BoolConverter(v native.Value) (Result, error) {
	b, ok := v.AsBool()
	if !ok {
		return Result{}, fmt.Errorf("%w: got %s, want bool", ErrUnexpectedPayload, v.Kind())
	}
	return Result{Value: b}, nil
}

// StateConverter expects the adapter state as an int64 code and completes with it as int.
func StateConverter(v native.Value) (Result, error) {
	code, ok := v.AsInt64()
	if !ok {
		return Result{}, fmt.Errorf("%w: got %s, want int64 state code", ErrUnexpectedPayload, v.Kind())
	}
	s := protocol.BluetoothState(code)
	if !s.Valid() {
		return Result{}, fmt.Errorf("%w: state code %d", ErrUnexpectedPayload, code)
	}
	return Result{Value: int(s)}, nil
}

// LogLevelConverter expects the manager log level as an int32 code and completes with it as int.
func LogLevelConverter(v native.Value) (Result, error) {
	code, ok := v.AsInt32()
	if !ok {
		return Result{}, fmt.Errorf("%w: got %s, want int32 log level", ErrUnexpectedPayload, v.Kind())
	}
	l := protocol.LogLevel(code)
	if !l.Valid() {
		return Result{}, fmt.Errorf("%w: log level %d", ErrUnexpectedPayload, code)
	}
	return Result{Value: int(l)}, nil
}

// NoValue ignores the payload and completes with a nil Value.
func NoValue(native.Value) (Result, error) {
	return Result{}, nil
}
