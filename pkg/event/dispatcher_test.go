package event_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/srg/blewire/internal/testutils"
	"github.com/srg/blewire/pkg/convert"
	"github.com/srg/blewire/pkg/event"
	"github.com/srg/blewire/pkg/fatal"
	"github.com/srg/blewire/pkg/native"
	"github.com/srg/blewire/pkg/protocol"
	"github.com/srg/blewire/pkg/stream"
	"github.com/stretchr/testify/suite"
)

type capture struct {
	data []any
	errs []*protocol.Error
}

func (c *capture) OnData(v any)                { c.data = append(c.data, v) }
func (c *capture) OnError(err *protocol.Error) { c.errs = append(c.errs, err) }

type DispatcherTestSuite struct {
	suite.Suite
	recorder   *fatal.Recorder
	dispatcher *event.Dispatcher
	listeners  map[event.Kind]*capture
}

func (s *DispatcherTestSuite) SetupTest() {
	logger := logrus.New()
	logger.SetLevel(logrus.TraceLevel)
	s.recorder = &fatal.Recorder{}

	channels := event.NewChannels("", logger, s.recorder)
	s.dispatcher = event.NewDispatcher(channels, convert.New(convert.RevisionCurrent), logger, s.recorder)

	s.listeners = make(map[event.Kind]*capture)
	for _, k := range event.Kinds() {
		c := &capture{}
		s.listeners[k] = c
		channels.For(k).Subscribe(c)
	}
}

func (s *DispatcherTestSuite) onlyData(kind event.Kind) any {
	s.T().Helper()
	for k, c := range s.listeners {
		if k == kind {
			continue
		}
		s.Empty(c.data, "%s channel MUST NOT receive data", k)
		s.Empty(c.errs, "%s channel MUST NOT receive errors", k)
	}
	c := s.listeners[kind]
	s.Require().Empty(c.errs, "%s channel MUST NOT receive errors", kind)
	s.Require().Len(c.data, 1, "%s channel MUST receive exactly one value", kind)
	return c.data[0]
}

func (s *DispatcherTestSuite) onlyError(kind event.Kind) *protocol.Error {
	s.T().Helper()
	c := s.listeners[kind]
	s.Require().Empty(c.data, "%s channel MUST NOT receive data", kind)
	s.Require().Len(c.errs, 1, "%s channel MUST receive exactly one error", kind)
	return c.errs[0]
}

// TestScanErrorNeverConverts verifies a native error short-circuits conversion.
//
// GOAL: A scan event carrying an error is delivered as that error, payload untouched
//
// TEST SCENARIO: Dispatch [{"code":"E1","message":"boom"}, {}] → Error("E1","boom") on scan channel
func (s *DispatcherTestSuite) TestScanErrorNeverConverts() {
	s.dispatcher.DispatchNamed(event.NameScan, native.ListOf(errorSlot("E1", "boom"), emptySlot()))

	got := s.onlyError(event.ScanResult)
	s.Equal("E1", got.Code)
	s.Equal("boom", got.Message)
	s.Empty(s.recorder.Errors())
}

// TestScanResultDelivered verifies scan payloads arrive as encoded ScanResult messages.
//
// GOAL: Scan data is converted and serialized before delivery
//
// TEST SCENARIO: Dispatch [{}, device] → scan channel gets bytes → bytes decode to ScanResult
func (s *DispatcherTestSuite) TestScanResultDelivered() {
	s.dispatcher.DispatchNamed(event.NameScan, native.ListOf(emptySlot(), testutils.DeviceRecord().Value()))

	raw, ok := s.onlyData(event.ScanResult).([]byte)
	s.Require().True(ok)

	var got protocol.ScanResult
	s.Require().NoError(got.UnmarshalBinary(raw))
	s.Equal(protocol.ScanResult{
		Device: protocol.Device{ID: "AA:BB", Name: "Sensor", RSSI: -42, MTU: 23},
		RSSI:   -42,
	}, got)
}

// TestMonitorEventWithTransaction verifies the side-channel context reaches the message.
//
// GOAL: Monitor events carry the transaction id from the context slot
//
// TEST SCENARIO: Dispatch [{}, characteristic, "tx-7"] → MonitorCharacteristic{transactionID:"tx-7"}
func (s *DispatcherTestSuite) TestMonitorEventWithTransaction() {
	rec := testutils.CharacteristicRecord(convert.RevisionCurrent).Value()

	s.dispatcher.DispatchNamed(event.NameRead, native.ListOf(emptySlot(), rec, native.String("tx-7")))

	raw, ok := s.onlyData(event.CharacteristicRead).([]byte)
	s.Require().True(ok)

	var got protocol.MonitorCharacteristic
	s.Require().NoError(got.UnmarshalBinary(raw))
	s.Equal("tx-7", got.TransactionID)
	s.Equal("u1", got.Characteristic.UUID)
	s.Equal(1.0, got.Characteristic.ID)
	s.Equal(int64(2), got.Characteristic.ServiceID)
	s.True(got.Characteristic.IsIndicatable)
	s.True(got.Characteristic.IsReadable)
	s.False(got.Characteristic.IsNotifiable)
}

// TestMonitorEventWithoutTransaction verifies a missing context is a delivery failure.
//
// GOAL: Conversion failures on the event path degrade to a channel error
//
// TEST SCENARIO: Dispatch [{}, characteristic] → monitor channel gets code 1005, no fatal
func (s *DispatcherTestSuite) TestMonitorEventWithoutTransaction() {
	rec := testutils.CharacteristicRecord(convert.RevisionCurrent).Value()

	s.dispatcher.Dispatch(event.CharacteristicRead, native.ListOf(emptySlot(), rec))

	got := s.onlyError(event.CharacteristicRead)
	s.Equal(protocol.CodeMalformedEvent, got.Code)
	s.Contains(got.Message, "transactionID")
	s.Empty(s.recorder.Errors(), "event path failures MUST NOT be fatal")
}

// TestStateChange verifies adapter state names map to their integer codes.
//
// GOAL: State events are accepted bare or enveloped and delivered as the enum value
//
// TEST SCENARIO: Dispatch "PoweredOn" bare and [null, "PoweredOff"] → 5 then 4
func (s *DispatcherTestSuite) TestStateChange() {
	s.dispatcher.DispatchNamed(event.NameStateChange, native.String("PoweredOn"))
	s.dispatcher.DispatchNamed(event.NameStateChange, native.ListOf(native.Null(), native.String("PoweredOff")))

	c := s.listeners[event.StateChange]
	s.Empty(c.errs)
	s.Equal([]any{int(protocol.StatePoweredOn), int(protocol.StatePoweredOff)}, c.data)
}

// TestStateChangeUnknownName verifies unknown adapter states are reported on the channel.
//
// GOAL: A state name outside the enumeration is an undeliverable event
//
// TEST SCENARIO: Dispatch "Melting" → state channel gets code 1005
func (s *DispatcherTestSuite) TestStateChangeUnknownName() {
	s.dispatcher.Dispatch(event.StateChange, native.String("Melting"))

	got := s.onlyError(event.StateChange)
	s.Equal(protocol.CodeMalformedEvent, got.Code)
}

// TestConnectionChange verifies disconnection events carry the device.
//
// GOAL: Connection changes are converted into Device messages
//
// TEST SCENARIO: Dispatch [{}, {"id":"AA:BB","mtu":23}] → Device with defaults
func (s *DispatcherTestSuite) TestConnectionChange() {
	rec := testutils.DeviceRecord().Without("name").Without("rssi").Value()

	s.dispatcher.DispatchNamed(event.NameDisconnect, native.ListOf(emptySlot(), rec))

	raw, ok := s.onlyData(event.ConnectionChange).([]byte)
	s.Require().True(ok)

	var got protocol.Device
	s.Require().NoError(got.UnmarshalBinary(raw))
	s.Equal(protocol.Device{ID: "AA:BB", MTU: 23}, got)
}

// TestConnectionChangeRejectsBare verifies error-capable kinds need the envelope.
//
// GOAL: Bare payloads are malformed for kinds that can carry errors
//
// TEST SCENARIO: Dispatch bare device record → connection channel gets code 1005
func (s *DispatcherTestSuite) TestConnectionChangeRejectsBare() {
	s.dispatcher.Dispatch(event.ConnectionChange, testutils.DeviceRecord().Value())

	got := s.onlyError(event.ConnectionChange)
	s.Equal(protocol.CodeMalformedEvent, got.Code)
	s.Contains(got.Message, event.NameDisconnect)
}

// TestRestoreStatePassThrough verifies restore payloads are forwarded opaque.
//
// GOAL: Restore state is not validated beyond being a record
//
// TEST SCENARIO: Dispatch bare arbitrary record → same record delivered on restore channel
func (s *DispatcherTestSuite) TestRestoreStatePassThrough() {
	rec := native.Record{
		"anything": native.ListOf(native.Int64(1), native.Bool(true)),
		"nested":   native.RecordOf(native.Record{"x": native.Double(0.5)}),
	}

	s.dispatcher.DispatchNamed(event.NameRestoreState, native.RecordOf(rec))

	s.Equal(rec, s.onlyData(event.RestoreState))
}

// TestRestoreStateNotRecord verifies a non-record restore payload is reported.
//
// GOAL: The opaque path still requires a record container
//
// TEST SCENARIO: Dispatch bare string → restore channel gets code 1005
func (s *DispatcherTestSuite) TestRestoreStateNotRecord() {
	s.dispatcher.Dispatch(event.RestoreState, native.String("nope"))

	got := s.onlyError(event.RestoreState)
	s.Equal(protocol.CodeMalformedEvent, got.Code)
}

// TestUnknownEventName verifies unknown event names are contract violations.
//
// GOAL: The dispatcher is a closed enumeration
//
// TEST SCENARIO: Dispatch "BondEvent" → fatal reporter receives violation → no channel touched
func (s *DispatcherTestSuite) TestUnknownEventName() {
	s.dispatcher.DispatchNamed("BondEvent", native.Null())

	err := s.recorder.Last()
	s.Require().Error(err)
	s.ErrorIs(err, fatal.ErrContractViolation)
	s.ErrorIs(err, event.ErrUnknownEventKind)
	for k, c := range s.listeners {
		s.Empty(c.data, "%s channel MUST NOT receive data", k)
		s.Empty(c.errs, "%s channel MUST NOT receive errors", k)
	}
}

// TestUnknownKindValue verifies out-of-range kinds are contract violations.
//
// GOAL: Dispatch with a Kind outside the declared set is escalated
//
// TEST SCENARIO: Dispatch Kind(42) → fatal reporter receives violation
func (s *DispatcherTestSuite) TestUnknownKindValue() {
	s.dispatcher.Dispatch(event.Kind(42), native.Null())

	s.ErrorIs(s.recorder.Last(), event.ErrUnknownEventKind)
}

// TestUnsubscribedChannelDropsSilently verifies dispatch without listener is harmless.
//
// GOAL: Events for unsubscribed channels are lost without errors
//
// TEST SCENARIO: Unsubscribe scan → dispatch scan event → nothing delivered, nothing reported
func (s *DispatcherTestSuite) TestUnsubscribedChannelDropsSilently() {
	var ch stream.Channel = s.dispatcher.Channels().Scan
	ch.Unsubscribe()

	s.dispatcher.DispatchNamed(event.NameScan, native.ListOf(emptySlot(), testutils.DeviceRecord().Value()))

	s.Empty(s.listeners[event.ScanResult].data)
	s.Empty(s.recorder.Errors())
}

// TestMissingChannel verifies an incomplete channel set is reported, not dereferenced.
//
// GOAL: A known kind whose channel was left unset is a contract violation
//
// TEST SCENARIO: Channels without Monitor → For(monitor) is nil → dispatch ReadEvent → violation, no panic
func (s *DispatcherTestSuite) TestMissingChannel() {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	channels := event.NewChannels("", logger, s.recorder)
	channels.Monitor = nil
	d := event.NewDispatcher(channels, convert.New(convert.RevisionCurrent), logger, s.recorder)

	s.Nil(channels.For(event.CharacteristicRead), "unset channel MUST be a nil interface")
	s.Len(channels.All(), 4)

	s.NotPanics(func() {
		d.DispatchNamed(event.NameRead, native.ListOf(emptySlot(), native.RecordOf(native.Record{}), native.String("tx")))
	})
	s.ErrorIs(s.recorder.Last(), event.ErrNoChannel)
	s.ErrorIs(s.recorder.Last(), fatal.ErrContractViolation)
}

func TestDispatcherTestSuite(t *testing.T) {
	suite.Run(t, new(DispatcherTestSuite))
}
