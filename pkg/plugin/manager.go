package plugin

import (
	"github.com/srg/blewire/pkg/call"
	"github.com/srg/blewire/pkg/native"
)

// Delegate receives native events from the manager.
type Delegate interface {
	DispatchEvent(name string, v native.Value)
}

// Manager is the native BLE client the host drives. Every asynchronous operation invokes
// exactly one of resolve or reject, once. Queries without a failure path only resolve.
type Manager interface {
	Invalidate()
	SetLogLevel(level string)
	LogLevel(resolve call.Resolve)
	CancelTransaction(txID string)
	State(resolve call.Resolve)

	StartDeviceScan(uuids []string)
	StopDeviceScan()

	RequestMTUForDevice(deviceID string, mtu int64, txID string, resolve call.Resolve, reject call.Reject)
	ReadRSSIForDevice(deviceID, txID string, resolve call.Resolve, reject call.Reject)
	ConnectToDevice(deviceID string, resolve call.Resolve, reject call.Reject)
	CancelDeviceConnection(deviceID string, resolve call.Resolve, reject call.Reject)
	IsDeviceConnected(deviceID string, resolve call.Resolve, reject call.Reject)
	DiscoverAllServicesAndCharacteristicsForDevice(deviceID string, resolve call.Resolve, reject call.Reject)

	ServicesForDevice(deviceID string, resolve call.Resolve, reject call.Reject)
	CharacteristicsForDevice(deviceID, serviceUUID string, resolve call.Resolve, reject call.Reject)
	CharacteristicsForService(serviceID float64, resolve call.Resolve, reject call.Reject)

	WriteCharacteristicForDevice(deviceID, serviceUUID, characteristicUUID, valueBase64 string, withResponse bool, txID string, resolve call.Resolve, reject call.Reject)
	WriteCharacteristicForService(serviceID float64, characteristicUUID, valueBase64 string, withResponse bool, txID string, resolve call.Resolve, reject call.Reject)
	WriteCharacteristic(characteristicID float64, valueBase64 string, withResponse bool, txID string, resolve call.Resolve, reject call.Reject)

	ReadCharacteristicForDevice(deviceID, serviceUUID, characteristicUUID, txID string, resolve call.Resolve, reject call.Reject)
	ReadCharacteristicForService(serviceID float64, characteristicUUID, txID string, resolve call.Resolve, reject call.Reject)
	ReadCharacteristic(characteristicID float64, txID string, resolve call.Resolve, reject call.Reject)

	MonitorCharacteristicForDevice(deviceID, serviceUUID, characteristicUUID, txID string, resolve call.Resolve, reject call.Reject)
	MonitorCharacteristicForService(serviceID float64, characteristicUUID, txID string, resolve call.Resolve, reject call.Reject)
	MonitorCharacteristic(characteristicID float64, txID string, resolve call.Resolve, reject call.Reject)
}

// ManagerFactory creates the manager on createClient. restoreKey is the optional state
// restoration identifier passed by the caller.
type ManagerFactory func(restoreKey string, delegate Delegate) Manager
