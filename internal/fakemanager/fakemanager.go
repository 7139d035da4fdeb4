// Package fakemanager provides a scriptable in-memory BLE manager. It records every
// operation, answers from scripted responses, and emits native events on demand.
package fakemanager

import (
	"sync"

	"github.com/go-ble/ble"
	"github.com/srg/blewire/internal/goble"
	"github.com/srg/blewire/pkg/call"
	"github.com/srg/blewire/pkg/native"
	"github.com/srg/blewire/pkg/plugin"
)

// Response is a scripted answer to an operation.
type Response struct {
	Value   native.Value
	Reject  bool
	Code    string
	Message string
}

// Resolves answers with v.
func Resolves(v native.Value) Response { return Response{Value: v} }

// Rejects answers with a native failure.
func Rejects(code, message string) Response {
	return Response{Reject: true, Code: code, Message: message}
}

// Invocation is one recorded operation. Resolve and Reject stay callable so a test can
// complete the operation later.
type Invocation struct {
	Op      string
	Args    []any
	TxID    string
	Resolve call.Resolve
	Reject  call.Reject
}

// Manager implements plugin.Manager.
type Manager struct {
	mu          sync.Mutex
	delegate    plugin.Delegate
	restoreKey  string
	logLevel    string
	scanning    []string
	forwarder   *goble.Forwarder
	scanErr     error
	invalidated bool
	calls       []Invocation
	cancelled   []string
	scripted    map[string]Response
}

var _ plugin.Manager = (*Manager)(nil)

func New() *Manager {
	return &Manager{scripted: make(map[string]Response)}
}

// Factory returns a plugin.ManagerFactory that hands out m.
func (m *Manager) Factory() plugin.ManagerFactory {
	return func(restoreKey string, delegate plugin.Delegate) plugin.Manager {
		m.mu.Lock()
		m.restoreKey = restoreKey
		m.delegate = delegate
		m.invalidated = false
		m.mu.Unlock()
		return m
	}
}

// On scripts the response to op. Unscripted operations stay pending until completed
// through their Invocation.
func (m *Manager) On(op string, r Response) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripted[op] = r
	return m
}

// Emit dispatches a native event to the delegate, as the radio stack would.
func (m *Manager) Emit(name string, v native.Value) {
	m.mu.Lock()
	d := m.delegate
	m.mu.Unlock()
	if d != nil {
		d.DispatchEvent(name, v)
	}
}

func (m *Manager) Calls() []Invocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Invocation(nil), m.calls...)
}

// Last returns the most recent invocation of op.
func (m *Manager) Last(op string) (Invocation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.calls) - 1; i >= 0; i-- {
		if m.calls[i].Op == op {
			return m.calls[i], true
		}
	}
	return Invocation{}, false
}

func (m *Manager) Cancelled() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.cancelled...)
}

func (m *Manager) RestoreKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restoreKey
}

func (m *Manager) Invalidated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invalidated
}

func (m *Manager) CurrentLogLevel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logLevel
}

// Scanning returns the service filter of the running scan, or nil when not scanning.
func (m *Manager) Scanning() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scanning
}

func (m *Manager) record(op, txID string, resolve call.Resolve, reject call.Reject, args ...any) {
	m.mu.Lock()
	m.calls = append(m.calls, Invocation{Op: op, Args: args, TxID: txID, Resolve: resolve, Reject: reject})
	r, ok := m.scripted[op]
	m.mu.Unlock()

	if !ok {
		return
	}
	switch {
	case r.Reject && reject != nil:
		reject(r.Code, r.Message)
	case !r.Reject && resolve != nil:
		resolve(r.Value)
	}
}

func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = true
	m.delegate = nil
}

func (m *Manager) SetLogLevel(level string) {
	m.mu.Lock()
	m.logLevel = level
	m.mu.Unlock()
	m.record("setLogLevel", "", nil, nil, level)
}

func (m *Manager) LogLevel(resolve call.Resolve) { m.record("logLevel", "", resolve, nil) }

func (m *Manager) CancelTransaction(txID string) {
	m.mu.Lock()
	m.cancelled = append(m.cancelled, txID)
	m.mu.Unlock()
}

func (m *Manager) State(resolve call.Resolve) { m.record("state", "", resolve, nil) }

func (m *Manager) StartDeviceScan(uuids []string) {
	fw, err := goble.NewForwarder(emitter{m}, uuids)
	m.mu.Lock()
	m.scanning = append([]string{}, uuids...)
	m.forwarder, m.scanErr = fw, err
	m.mu.Unlock()
	m.record("startDeviceScan", "", nil, nil, uuids)
}

func (m *Manager) StopDeviceScan() {
	m.mu.Lock()
	m.scanning = nil
	m.forwarder = nil
	m.mu.Unlock()
	m.record("stopDeviceScan", "", nil, nil)
}

// Advertise feeds an advertisement to the running scan, as a radio would. It reports
// whether a scan was running; the scan's service filter still applies.
func (m *Manager) Advertise(adv ble.Advertisement) bool {
	m.mu.Lock()
	fw := m.forwarder
	m.mu.Unlock()
	if fw == nil {
		return false
	}
	fw.Handle(adv)
	return true
}

// ScanError returns the error of the last StartDeviceScan filter, if its UUIDs did not parse.
func (m *Manager) ScanError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scanErr
}

type emitter struct{ m *Manager }

func (e emitter) DispatchEvent(name string, v native.Value) { e.m.Emit(name, v) }

func (m *Manager) RequestMTUForDevice(deviceID string, mtu int64, txID string, resolve call.Resolve, reject call.Reject) {
	m.record("requestMTUForDevice", txID, resolve, reject, deviceID, mtu)
}

func (m *Manager) ReadRSSIForDevice(deviceID, txID string, resolve call.Resolve, reject call.Reject) {
	m.record("readRSSIForDevice", txID, resolve, reject, deviceID)
}

func (m *Manager) ConnectToDevice(deviceID string, resolve call.Resolve, reject call.Reject) {
	m.record("connectToDevice", "", resolve, reject, deviceID)
}

func (m *Manager) CancelDeviceConnection(deviceID string, resolve call.Resolve, reject call.Reject) {
	m.record("cancelDeviceConnection", "", resolve, reject, deviceID)
}

func (m *Manager) IsDeviceConnected(deviceID string, resolve call.Resolve, reject call.Reject) {
	m.record("isDeviceConnected", "", resolve, reject, deviceID)
}

func (m *Manager) DiscoverAllServicesAndCharacteristicsForDevice(deviceID string, resolve call.Resolve, reject call.Reject) {
	m.record("discoverAllServicesAndCharacteristicsForDevice", "", resolve, reject, deviceID)
}

func (m *Manager) ServicesForDevice(deviceID string, resolve call.Resolve, reject call.Reject) {
	m.record("servicesForDevice", "", resolve, reject, deviceID)
}

func (m *Manager) CharacteristicsForDevice(deviceID, serviceUUID string, resolve call.Resolve, reject call.Reject) {
	m.record("characteristicsForDevice", "", resolve, reject, deviceID, serviceUUID)
}

func (m *Manager) CharacteristicsForService(serviceID float64, resolve call.Resolve, reject call.Reject) {
	m.record("characteristicsForService", "", resolve, reject, serviceID)
}

func (m *Manager) WriteCharacteristicForDevice(deviceID, serviceUUID, characteristicUUID, valueBase64 string, withResponse bool, txID string, resolve call.Resolve, reject call.Reject) {
	m.record("writeCharacteristicForDevice", txID, resolve, reject, deviceID, serviceUUID, characteristicUUID, valueBase64, withResponse)
}

func (m *Manager) WriteCharacteristicForService(serviceID float64, characteristicUUID, valueBase64 string, withResponse bool, txID string, resolve call.Resolve, reject call.Reject) {
	m.record("writeCharacteristicForService", txID, resolve, reject, serviceID, characteristicUUID, valueBase64, withResponse)
}

func (m *Manager) WriteCharacteristic(characteristicID float64, valueBase64 string, withResponse bool, txID string, resolve call.Resolve, reject call.Reject) {
	m.record("writeCharacteristic", txID, resolve, reject, characteristicID, valueBase64, withResponse)
}

func (m *Manager) ReadCharacteristicForDevice(deviceID, serviceUUID, characteristicUUID, txID string, resolve call.Resolve, reject call.Reject) {
	m.record("readCharacteristicForDevice", txID, resolve, reject, deviceID, serviceUUID, characteristicUUID)
}

func (m *Manager) ReadCharacteristicForService(serviceID float64, characteristicUUID, txID string, resolve call.Resolve, reject call.Reject) {
	m.record("readCharacteristicForService", txID, resolve, reject, serviceID, characteristicUUID)
}

func (m *Manager) ReadCharacteristic(characteristicID float64, txID string, resolve call.Resolve, reject call.Reject) {
	m.record("readCharacteristic", txID, resolve, reject, characteristicID)
}

func (m *Manager) MonitorCharacteristicForDevice(deviceID, serviceUUID, characteristicUUID, txID string, resolve call.Resolve, reject call.Reject) {
	m.record("monitorCharacteristicForDevice", txID, resolve, reject, deviceID, serviceUUID, characteristicUUID)
}

func (m *Manager) MonitorCharacteristicForService(serviceID float64, characteristicUUID, txID string, resolve call.Resolve, reject call.Reject) {
	m.record("monitorCharacteristicForService", txID, resolve, reject, serviceID, characteristicUUID)
}

func (m *Manager) MonitorCharacteristic(characteristicID float64, txID string, resolve call.Resolve, reject call.Reject) {
	m.record("monitorCharacteristic", txID, resolve, reject, characteristicID)
}
