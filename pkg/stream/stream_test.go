package stream_test

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/srg/blewire/pkg/fatal"
	"github.com/srg/blewire/pkg/protocol"
	"github.com/srg/blewire/pkg/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// capture records everything a listener receives, in order.
type capture struct {
	data []any
	errs []*protocol.Error
}

func (c *capture) OnData(v any)                { c.data = append(c.data, v) }
func (c *capture) OnError(err *protocol.Error) { c.errs = append(c.errs, err) }

var errBrokenMessage = errors.New("cannot encode")

type brokenMessage struct{}

func (brokenMessage) MarshalBinary() ([]byte, error) { return nil, errBrokenMessage }
func (brokenMessage) UnmarshalBinary([]byte) error   { return nil }

type StreamTestSuite struct {
	suite.Suite
	logger   *logrus.Logger
	recorder *fatal.Recorder
}

func (s *StreamTestSuite) SetupTest() {
	s.logger = logrus.New()
	s.logger.SetLevel(logrus.TraceLevel)
	s.recorder = &fatal.Recorder{}
}

// TestSendBeforeSubscribe verifies a channel without listener drops sends silently.
//
// GOAL: Channels are live taps; nothing is buffered for a future subscriber
//
// TEST SCENARIO: Send data and error with no listener → subscribe → nothing replayed
func (s *StreamTestSuite) TestSendBeforeSubscribe() {
	ch := stream.NewObjectChannel[int]("test/object", s.logger)

	s.NotPanics(func() {
		ch.Send(1)
		ch.SendError("E1", "boom")
	})

	c := &capture{}
	ch.Subscribe(c)
	s.Empty(c.data, "sends before subscribe MUST NOT be replayed")
	s.Empty(c.errs, "errors before subscribe MUST NOT be replayed")
}

// TestSubscribeUnsubscribe verifies the listener lifecycle.
//
// GOAL: After unsubscribe, sends are dropped again
//
// TEST SCENARIO: Subscribe → send → unsubscribe → send → only first value delivered
func (s *StreamTestSuite) TestSubscribeUnsubscribe() {
	ch := stream.NewObjectChannel[string]("test/object", s.logger)
	c := &capture{}

	ch.Subscribe(c)
	s.True(ch.Subscribed())
	ch.Send("first")

	ch.Unsubscribe()
	s.False(ch.Subscribed())
	ch.Send("second")

	s.Equal([]any{"first"}, c.data, "only sends while subscribed MUST be delivered")
}

// TestSubscribeReplaces verifies the channel never fans out.
//
// GOAL: A second subscribe replaces the first listener
//
// TEST SCENARIO: Subscribe A → subscribe B → send → only B receives
func (s *StreamTestSuite) TestSubscribeReplaces() {
	ch := stream.NewObjectChannel[int]("test/object", s.logger)
	a, b := &capture{}, &capture{}

	ch.Subscribe(a)
	ch.Subscribe(b)
	ch.Send(7)

	s.Empty(a.data, "replaced listener MUST NOT receive data")
	s.Equal([]any{7}, b.data)
}

// TestErrorPathIsDistinct verifies errors arrive through OnError only.
//
// GOAL: Receivers distinguish error delivery from data delivery by method, not content
//
// TEST SCENARIO: SendError("E1","boom") → OnError called with code/message → OnData untouched
func (s *StreamTestSuite) TestErrorPathIsDistinct() {
	ch := stream.NewObjectChannel[int]("test/object", s.logger)
	c := &capture{}
	ch.Subscribe(c)

	ch.SendError("E1", "boom")

	s.Empty(c.data)
	s.Require().Len(c.errs, 1)
	s.Equal("E1", c.errs[0].Code)
	s.Equal("boom", c.errs[0].Message)
}

// TestOrdering verifies per-channel delivery order.
//
// GOAL: Sends are delivered in the order they were made
//
// TEST SCENARIO: Send 1..5 → listener observes 1..5
func (s *StreamTestSuite) TestOrdering() {
	ch := stream.NewObjectChannel[int]("test/object", s.logger)
	c := &capture{}
	ch.Subscribe(c)

	for i := 1; i <= 5; i++ {
		ch.Send(i)
	}

	s.Equal([]any{1, 2, 3, 4, 5}, c.data)
}

// TestMessageChannelSerializes verifies typed messages are delivered as wire bytes.
//
// GOAL: The binary channel serializes before delivery
//
// TEST SCENARIO: Send Device → listener gets []byte → bytes decode back to the same Device
func (s *StreamTestSuite) TestMessageChannelSerializes() {
	ch := stream.NewMessageChannel[*protocol.Device]("test/message", s.logger, s.recorder)
	c := &capture{}
	ch.Subscribe(c)

	want := &protocol.Device{ID: "AA:BB", Name: "Sensor", RSSI: -42, MTU: 23}
	ch.Send(want)

	s.Require().Len(c.data, 1)
	raw, ok := c.data[0].([]byte)
	s.Require().True(ok, "binary channel MUST deliver []byte, got %T", c.data[0])

	var got protocol.Device
	s.Require().NoError(got.UnmarshalBinary(raw))
	s.Equal(*want, got)
	s.Empty(s.recorder.Errors())
}

// TestMessageChannelSerializationFailure verifies serialization failure is escalated.
//
// GOAL: A message that cannot be encoded is a contract violation, never silently dropped
//
// TEST SCENARIO: Send broken message → reporter receives ContractViolation → nothing delivered
func (s *StreamTestSuite) TestMessageChannelSerializationFailure() {
	ch := stream.NewMessageChannel[brokenMessage]("test/broken", s.logger, s.recorder)
	c := &capture{}
	ch.Subscribe(c)

	ch.Send(brokenMessage{})

	s.Empty(c.data, "failed serialization MUST NOT deliver anything")
	err := s.recorder.Last()
	s.Require().Error(err)
	s.ErrorIs(err, fatal.ErrContractViolation)
	s.ErrorIs(err, errBrokenMessage)
}

// TestMessageChannelSkipsEncodingWithoutListener verifies nothing is encoded for nobody.
//
// GOAL: Without a listener, even a broken message is simply dropped
//
// TEST SCENARIO: No subscribe → send broken message → no violation reported
func (s *StreamTestSuite) TestMessageChannelSkipsEncodingWithoutListener() {
	ch := stream.NewMessageChannel[brokenMessage]("test/broken", s.logger, s.recorder)

	ch.Send(brokenMessage{})

	s.Empty(s.recorder.Errors())
}

func TestStreamTestSuite(t *testing.T) {
	suite.Run(t, new(StreamTestSuite))
}

func TestNames(t *testing.T) {
	names := stream.Names("")
	require.Len(t, names, 5)
	assert.Equal(t, "flutter_ble_lib/startDeviceScan", names[0])
	assert.Equal(t, "flutter_ble_lib/restoreState", names[4])

	assert.Equal(t, "acme/stateChange", stream.Names("acme")[1])
}

func TestListenerFuncs_NilMembers(t *testing.T) {
	var l stream.Listener = stream.ListenerFuncs{}
	assert.NotPanics(t, func() {
		l.OnData(1)
		l.OnError(protocol.NewError("E", "m"))
	})
}
