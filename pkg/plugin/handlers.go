package plugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/srg/blewire/pkg/call"
	"github.com/srg/blewire/pkg/native"
	"github.com/srg/blewire/pkg/protocol"
)

// args reads call arguments, keeping the first failure. A malformed argument is a
// contract violation of the caller, not an operation failure.
type args struct {
	rec native.Record
	err error
}

func recordArgs(v native.Value) *args {
	rec, ok := v.AsRecord()
	if !ok {
		return &args{err: &native.FieldError{Field: "arguments", Want: native.KindRecord, Got: v.Kind(), Missing: v.IsNull()}}
	}
	return &args{rec: rec}
}

func (a *args) str(key string) string {
	if a.err != nil {
		return ""
	}
	s, err := a.rec.String(key)
	a.err = err
	return s
}

func (a *args) double(key string) float64 {
	if a.err != nil {
		return 0
	}
	f, err := a.rec.Double(key)
	a.err = err
	return f
}

func (a *args) int64(key string) int64 {
	if a.err != nil {
		return 0
	}
	i, err := a.rec.Int64(key)
	a.err = err
	return i
}

func (a *args) bool(key string) bool {
	if a.err != nil {
		return false
	}
	b, err := a.rec.Bool(key)
	a.err = err
	return b
}

func stringArg(v native.Value) (string, error) {
	s, ok := v.AsString()
	if !ok {
		return "", &native.FieldError{Field: "arguments", Want: native.KindString, Got: v.Kind(), Missing: v.IsNull()}
	}
	return s, nil
}

// capitalize turns "debug" or "DEBUG" into "Debug", the form the manager expects.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

func (p *Plugin) route(ctx context.Context, m Method, c Call, done call.Completion) error {
	switch m {
	case CreateClient:
		var key string
		if !c.Args.IsNull() {
			s, err := stringArg(c.Args)
			if err != nil {
				return err
			}
			key = s
		}
		if err := p.createClient(key); err != nil {
			return err
		}
		done(call.Result{})

	case DestroyClient:
		p.destroyClient()
		done(call.Result{})

	case SetLogLevel:
		level, err := stringArg(c.Args)
		if err != nil {
			return err
		}
		mgr, err := p.requireManager()
		if err != nil {
			return err
		}
		mgr.SetLogLevel(capitalize(level))
		done(call.Result{})

	case GetLogLevel:
		mgr, err := p.requireManager()
		if err != nil {
			return err
		}
		mgr.LogLevel(p.track(ctx, m, "", call.LogLevelConverter, done).Resolve)

	case CancelTransaction:
		txID, err := stringArg(c.Args)
		if err != nil {
			return err
		}
		if err := p.CancelTransaction(txID); err != nil {
			return err
		}
		done(call.Result{})

	case GetState:
		mgr, err := p.requireManager()
		if err != nil {
			return err
		}
		mgr.State(p.track(ctx, m, "", call.StateConverter, done).Resolve)

	case StartDeviceScan:
		var scan protocol.ScanData
		if err := scan.UnmarshalBinary(c.Payload); err != nil {
			return err
		}
		mgr, err := p.requireManager()
		if err != nil {
			return err
		}
		mgr.StartDeviceScan(scan.UUIDs)
		done(call.Result{})

	case StopDeviceScan:
		mgr, err := p.requireManager()
		if err != nil {
			return err
		}
		mgr.StopDeviceScan()
		done(call.Result{})

	default:
		return p.routeDevice(ctx, m, c, done)
	}
	return nil
}

func (p *Plugin) routeDevice(ctx context.Context, m Method, c Call, done call.Completion) error {
	switch m {
	case RequestMTUForDevice:
		a := recordArgs(c.Args)
		deviceID, mtu, txID := a.str("deviceId"), a.int64("mtu"), a.str("transactionId")
		if a.err != nil {
			return a.err
		}
		mgr, err := p.requireManager()
		if err != nil {
			return err
		}
		resolve, reject := p.track(ctx, m, txID, call.DeviceConverter(p.conv), done).Callbacks()
		mgr.RequestMTUForDevice(deviceID, mtu, txID, resolve, reject)

	case ReadRSSIForDevice:
		a := recordArgs(c.Args)
		deviceID, txID := a.str("deviceId"), a.str("transactionId")
		if a.err != nil {
			return a.err
		}
		mgr, err := p.requireManager()
		if err != nil {
			return err
		}
		resolve, reject := p.track(ctx, m, txID, call.DeviceConverter(p.conv), done).Callbacks()
		mgr.ReadRSSIForDevice(deviceID, txID, resolve, reject)

	case ConnectToDevice:
		var dev protocol.Device
		if err := dev.UnmarshalBinary(c.Payload); err != nil {
			return err
		}
		mgr, err := p.requireManager()
		if err != nil {
			return err
		}
		resolve, reject := p.track(ctx, m, "", call.DeviceConverter(p.conv), done).Callbacks()
		mgr.ConnectToDevice(dev.ID, resolve, reject)

	case CancelDeviceConnection, IsDeviceConnected, DiscoverAllServicesAndCharacteristicsForDevice, ServicesForDevice:
		// these take a bare device id and check for a client before looking at it
		mgr, err := p.requireManager()
		if err != nil {
			return err
		}
		deviceID, err := stringArg(c.Args)
		if err != nil {
			return err
		}
		switch m {
		case CancelDeviceConnection:
			resolve, reject := p.track(ctx, m, "", call.DeviceConverter(p.conv), done).Callbacks()
			mgr.CancelDeviceConnection(deviceID, resolve, reject)
		case IsDeviceConnected:
			resolve, reject := p.track(ctx, m, "", call.BoolConverter, done).Callbacks()
			mgr.IsDeviceConnected(deviceID, resolve, reject)
		case DiscoverAllServicesAndCharacteristicsForDevice:
			resolve, reject := p.track(ctx, m, "", call.DeviceConverter(p.conv), done).Callbacks()
			mgr.DiscoverAllServicesAndCharacteristicsForDevice(deviceID, resolve, reject)
		default:
			resolve, reject := p.track(ctx, m, "", call.ServicesConverter(p.conv), done).Callbacks()
			mgr.ServicesForDevice(deviceID, resolve, reject)
		}

	case CharacteristicsForDevice:
		a := recordArgs(c.Args)
		deviceID, serviceUUID := a.str("deviceId"), a.str("serviceUUID")
		if a.err != nil {
			return a.err
		}
		mgr, err := p.requireManager()
		if err != nil {
			return err
		}
		resolve, reject := p.track(ctx, m, "", call.CharacteristicsConverter(p.conv), done).Callbacks()
		mgr.CharacteristicsForDevice(deviceID, serviceUUID, resolve, reject)

	case CharacteristicsForService:
		a := recordArgs(c.Args)
		serviceID := a.double("serviceIdentifier")
		if a.err != nil {
			return a.err
		}
		mgr, err := p.requireManager()
		if err != nil {
			return err
		}
		resolve, reject := p.track(ctx, m, "", call.CharacteristicsConverter(p.conv), done).Callbacks()
		mgr.CharacteristicsForService(serviceID, resolve, reject)

	default:
		return p.routeCharacteristic(ctx, m, c, done)
	}
	return nil
}

func (p *Plugin) routeCharacteristic(ctx context.Context, m Method, c Call, done call.Completion) error {
	a := recordArgs(c.Args)

	var deviceID, serviceUUID, characteristicUUID string
	var serviceID, characteristicID float64
	switch m {
	case WriteCharacteristicForDevice, ReadCharacteristicForDevice, MonitorCharacteristicForDevice:
		deviceID, serviceUUID, characteristicUUID = a.str("deviceId"), a.str("serviceUUID"), a.str("characteristicUUID")
	case WriteCharacteristicForService, ReadCharacteristicForService, MonitorCharacteristicForService:
		serviceID, characteristicUUID = a.double("serviceIdentifier"), a.str("characteristicUUID")
	case WriteCharacteristic, ReadCharacteristic, MonitorCharacteristic:
		characteristicID = a.double("characteristicIdentifier")
	default:
		return fmt.Errorf("method %s has no route", m)
	}

	var value string
	var withResponse bool
	switch m {
	case WriteCharacteristicForDevice, WriteCharacteristicForService, WriteCharacteristic:
		value, withResponse = a.str("valueBase64"), a.bool("response")
	}
	txID := a.str("transactionId")
	if a.err != nil {
		return a.err
	}

	mgr, err := p.requireManager()
	if err != nil {
		return err
	}

	conv := call.CharacteristicConverter(p.conv)
	switch m {
	case MonitorCharacteristicForDevice, MonitorCharacteristicForService, MonitorCharacteristic:
		// Monitoring resolves once, with no payload, when the monitor ends; updates arrive
		// on the monitor channel.
		conv = call.NoValue
	}
	resolve, reject := p.track(ctx, m, txID, conv, done).Callbacks()

	switch m {
	case WriteCharacteristicForDevice:
		mgr.WriteCharacteristicForDevice(deviceID, serviceUUID, characteristicUUID, value, withResponse, txID, resolve, reject)
	case WriteCharacteristicForService:
		mgr.WriteCharacteristicForService(serviceID, characteristicUUID, value, withResponse, txID, resolve, reject)
	case WriteCharacteristic:
		mgr.WriteCharacteristic(characteristicID, value, withResponse, txID, resolve, reject)
	case ReadCharacteristicForDevice:
		mgr.ReadCharacteristicForDevice(deviceID, serviceUUID, characteristicUUID, txID, resolve, reject)
	case ReadCharacteristicForService:
		mgr.ReadCharacteristicForService(serviceID, characteristicUUID, txID, resolve, reject)
	case ReadCharacteristic:
		mgr.ReadCharacteristic(characteristicID, txID, resolve, reject)
	case MonitorCharacteristicForDevice:
		mgr.MonitorCharacteristicForDevice(deviceID, serviceUUID, characteristicUUID, txID, resolve, reject)
	case MonitorCharacteristicForService:
		mgr.MonitorCharacteristicForService(serviceID, characteristicUUID, txID, resolve, reject)
	case MonitorCharacteristic:
		mgr.MonitorCharacteristic(characteristicID, txID, resolve, reject)
	}
	return nil
}
