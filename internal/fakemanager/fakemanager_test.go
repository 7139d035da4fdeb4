package fakemanager_test

import (
	"context"
	"testing"

	"github.com/go-ble/ble"
	"github.com/srg/blewire/internal/fakemanager"
	"github.com/srg/blewire/internal/testutils"
	"github.com/srg/blewire/pkg/call"
	"github.com/srg/blewire/pkg/native"
	"github.com/srg/blewire/pkg/plugin"
	"github.com/srg/blewire/pkg/protocol"
	"github.com/stretchr/testify/suite"
)

type addr string

func (a addr) String() string { return string(a) }

// advertisement is a fixed ble.Advertisement.
type advertisement struct {
	name     string
	address  string
	rssi     int
	services []ble.UUID
}

func (a advertisement) LocalName() string              { return a.name }
func (a advertisement) ManufacturerData() []byte       { return nil }
func (a advertisement) ServiceData() []ble.ServiceData { return nil }
func (a advertisement) Services() []ble.UUID           { return a.services }
func (a advertisement) OverflowService() []ble.UUID    { return nil }
func (a advertisement) TxPowerLevel() int              { return 127 }
func (a advertisement) Connectable() bool              { return true }
func (a advertisement) SolicitedService() []ble.UUID   { return nil }
func (a advertisement) RSSI() int                      { return a.rssi }
func (a advertisement) Addr() ble.Addr                 { return addr(a.address) }

type FakeManagerTestSuite struct {
	suite.Suite
	helper  *testutils.TestHelper
	manager *fakemanager.Manager
	plugin  *plugin.Plugin
	scans   *testutils.CaptureListener
}

func (s *FakeManagerTestSuite) SetupTest() {
	s.helper = testutils.NewTestHelper(s.T())
	s.manager = fakemanager.New()
	s.plugin = plugin.New(s.manager.Factory(), plugin.WithLogger(s.helper.Logger))
	s.scans = &testutils.CaptureListener{}
	s.plugin.Channels().Scan.Subscribe(s.scans)

	s.handle("createClient", native.Null(), nil)
}

func (s *FakeManagerTestSuite) handle(method string, args native.Value, payload []byte) call.Result {
	var got call.Result
	s.plugin.Handle(context.Background(), plugin.Call{Method: method, Args: args, Payload: payload}, func(r call.Result) { got = r })
	return got
}

func (s *FakeManagerTestSuite) startScan(uuids ...string) {
	payload, err := (&protocol.ScanData{UUIDs: uuids}).MarshalBinary()
	s.Require().NoError(err)
	s.Nil(s.handle("startDeviceScan", native.Null(), payload).Err)
}

// TestAdvertise_ReachesScanChannel verifies radio advertisements flow through the dispatcher.
//
// GOAL: An advertisement during a scan arrives as a serialized ScanResult
//
// TEST SCENARIO: start scan for 180d → advertise heart sensor → one ScanResult on the scan channel
func (s *FakeManagerTestSuite) TestAdvertise_ReachesScanChannel() {
	s.startScan("180d")

	s.True(s.manager.Advertise(advertisement{
		name: "HR", address: "aa:bb", rssi: -50, services: []ble.UUID{ble.MustParse("180d")},
	}))

	data := s.scans.Data()
	s.Require().Len(data, 1)
	s.Empty(s.scans.Errors())

	raw, ok := data[0].([]byte)
	s.Require().True(ok, "scan results MUST be delivered serialized")
	testutils.NewJSONAsserter(s.T()).AssertWire("scanResult", raw,
		`{"device":{"id":"AA:BB","name":"HR","rssi":-50,"mtu":23},"rssi":-50}`)
}

// TestAdvertise_Filtered verifies the scan filter.
//
// GOAL: Advertisements without a filtered service are dropped
//
// TEST SCENARIO: scan for 180d → advertise 180f device → nothing delivered
func (s *FakeManagerTestSuite) TestAdvertise_Filtered() {
	s.startScan("180d")

	s.True(s.manager.Advertise(advertisement{address: "aa:bb", services: []ble.UUID{ble.MustParse("180f")}}))
	s.Empty(s.scans.Data())
}

// TestAdvertise_NotScanning verifies nothing is emitted outside a scan.
//
// GOAL: Advertise reports false before a scan and after stopDeviceScan
//
// TEST SCENARIO: advertise → false; start → stop → advertise → false
func (s *FakeManagerTestSuite) TestAdvertise_NotScanning() {
	adv := advertisement{address: "aa:bb"}
	s.False(s.manager.Advertise(adv))

	s.startScan()
	s.Nil(s.handle("stopDeviceScan", native.Null(), nil).Err)
	s.False(s.manager.Advertise(adv))
	s.Empty(s.scans.Data())
}

// TestScanError verifies an unparsable filter is surfaced.
//
// GOAL: A bad service UUID leaves the scan without a forwarder
//
// TEST SCENARIO: scan for "nope" → ScanError set → Advertise false
func (s *FakeManagerTestSuite) TestScanError() {
	s.startScan("nope")

	s.Error(s.manager.ScanError())
	s.False(s.manager.Advertise(advertisement{address: "aa:bb"}))
}

// TestScriptedReplies verifies scripted responses and recorded invocations.
//
// GOAL: Scripted ops answer immediately; invocations keep their arguments
//
// TEST SCENARIO: script reject on readRSSIForDevice → call → rejection with op details, args recorded
func (s *FakeManagerTestSuite) TestScriptedReplies() {
	s.manager.On("readRSSIForDevice", fakemanager.Rejects("205", "not connected"))

	r := s.handle("readRSSIForDevice", testutils.NewRecordBuilder().
		WithString("deviceId", "AA:BB").
		WithString("transactionId", "tx-1").
		Value(), nil)

	s.Require().NotNil(r.Err)
	s.Equal("205", r.Err.Code)
	s.Equal("readRSSIForDevice", r.Err.Details)

	inv, ok := s.manager.Last("readRSSIForDevice")
	s.Require().True(ok)
	s.Equal("tx-1", inv.TxID)
	s.Equal([]any{"AA:BB"}, inv.Args)
}

// TestInvalidateDetachesDelegate verifies events stop after destroyClient.
//
// GOAL: A destroyed client's manager no longer reaches the plugin
//
// TEST SCENARIO: destroyClient → Emit state change → no delivery
func (s *FakeManagerTestSuite) TestInvalidateDetachesDelegate() {
	states := &testutils.CaptureListener{}
	s.plugin.Channels().State.Subscribe(states)

	s.handle("destroyClient", native.Null(), nil)
	s.True(s.manager.Invalidated())

	s.manager.Emit("StateChangeEvent", native.String("PoweredOn"))
	s.Empty(states.Data())
}

func TestFakeManagerTestSuite(t *testing.T) {
	suite.Run(t, new(FakeManagerTestSuite))
}
