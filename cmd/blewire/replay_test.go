package main

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/srg/blewire/internal/fixture"
	"github.com/srg/blewire/internal/testutils"
	"github.com/srg/blewire/pkg/config"
	"github.com/srg/blewire/pkg/convert"
	"github.com/srg/blewire/pkg/fatal"
	"github.com/stretchr/testify/suite"
)

const heartRateFixture = "internal/fixture/testdata/heart_rate.yaml"

type ReplayTestSuite struct {
	CommandTestSuite
}

func (s *ReplayTestSuite) fixturePath() string {
	data, err := testutils.LoadFile(heartRateFixture)
	s.Require().NoError(err)
	return s.WriteFile("heart_rate.yaml", string(data))
}

func (s *ReplayTestSuite) assertLines(out string, expected ...string) {
	lines := s.Lines(out)
	s.Require().Len(lines, len(expected), "output:\n%s", out)
	ja := testutils.NewJSONAsserter(s.T())
	for i := range expected {
		ja.Assert(lines[i], expected[i])
	}
}

// TestReplay_HeartRate verifies the full boundary round trip of a fixture.
//
// GOAL: Calls, events, cancellations and destroy produce ordered, typed output
//
// TEST SCENARIO: replay heart_rate.yaml → call results and channel deliveries in step order
func (s *ReplayTestSuite) TestReplay_HeartRate() {
	out, _, err := s.ExecuteCommand("", "replay", s.fixturePath())
	s.Require().NoError(err)

	s.assertLines(out,
		`{"step":1,"call":"createClient","result":null}`,
		`{"step":2,"call":"state","result":5}`,
		`{"step":3,"call":"startDeviceScan","result":null}`,
		`{"step":4,"channel":"flutter_ble_lib/startDeviceScan","data":{"device":{"id":"AA:BB","name":"HR Sensor","rssi":-42,"mtu":23},"rssi":-42}}`,
		`{"step":5,"channel":"flutter_ble_lib/stateChange","data":{"code":5,"name":"PoweredOn"}}`,
		`{"step":6,"call":"connectToDevice","result":{"id":"AA:BB","name":"HR Sensor","rssi":-42,"mtu":23}}`,
		`{"step":7,"call":"readCharacteristicForDevice","transactionId":"<<PRESENCE>>",
		  "error":{"code":"401","message":"characteristic not readable","details":"readCharacteristicForDevice"}}`,
		`{"step":9,"channel":"flutter_ble_lib/monitorCharacteristicChange","data":{"transactionID":"mon-1",
		  "characteristic":{"id":7,"uuid":"2a37","serviceID":2,"serviceUUID":"180d","deviceID":"AA:BB",
		  "isIndicatable":false,"isNotifiable":true,"isNotifying":true,"isReadable":true,
		  "isWritableWithResponse":false,"isWritableWithoutResponse":false,"value":"AEs="}}}`,
		`{"step":10,"channel":"flutter_ble_lib/deviceConnectionChange","error":{"code":"201","message":"device disconnected"}}`,
		`{"step":11,"call":"monitorCharacteristicForDevice","transactionId":"mon-1",
		  "error":{"code":"2","message":"Operation was cancelled","details":"monitorCharacteristicForDevice"}}`,
		`{"step":11,"cancel":"mon-1"}`,
		`{"step":12,"call":"destroyClient","result":null}`,
	)
}

// TestReplay_LegacyRevision verifies the revision override reaches the event path.
//
// GOAL: A current-revision record replayed as legacy fails conversion without aborting
//
// TEST SCENARIO: --revision legacy → monitor delivery becomes a 1005 error, later steps still run
func (s *ReplayTestSuite) TestReplay_LegacyRevision() {
	out, _, err := s.ExecuteCommand("", "replay", "--revision", "legacy", s.fixturePath())
	s.Require().NoError(err)

	lines := s.Lines(out)
	s.Require().Len(lines, 12)
	testutils.NewJSONAsserter(s.T()).
		WithOptions(testutils.WithIgnoredFields("message")).
		Assert(lines[7], `{"step":9,"channel":"flutter_ble_lib/monitorCharacteristicChange","error":{"code":"1005"}}`)
}

// TestReplay_TextFormat verifies the human-readable output.
//
// GOAL: Text output is one uncolored line per entry when not writing to a terminal
//
// TEST SCENARIO: createClient, state change, unknown method → three lines
func (s *ReplayTestSuite) TestReplay_TextFormat() {
	path := s.WriteFile("text.yaml", `
steps:
  - call: createClient
  - event: StateChangeEvent
    value: PoweredOff
  - call: state
  - call: fly
`)

	out, _, err := s.ExecuteCommand("", "replay", "--format", "text", path)
	s.Require().NoError(err)

	testutils.NewTextAsserter(s.T()).Assert(out, `
#1 call createClient null
#2 flutter_ble_lib/stateChange {"code":4,"name":"PoweredOff"}
#4 call fly ! {"code":"1004","message":"Cannot handle method with name: fly"}
`)
}

// TestReplay_ContractViolation verifies replay stops on malformed arguments.
//
// GOAL: A contract violation aborts the replay and is reported, earlier output is kept
//
// TEST SCENARIO: createClient → readRSSIForDevice with numeric deviceId → error, one line printed
func (s *ReplayTestSuite) TestReplay_ContractViolation() {
	path := s.WriteFile("bad.yaml", `
steps:
  - call: createClient
  - call: readRSSIForDevice
    args: {deviceId: 5, transactionId: t1}
  - call: destroyClient
`)

	out, _, err := s.ExecuteCommand("", "replay", path)
	s.Require().Error(err)
	s.ErrorIs(err, ErrContractViolated)
	s.ErrorIs(err, fatal.ErrContractViolation)
	s.Contains(FormatUserError(err), "readRSSIForDevice")

	s.assertLines(out, `{"step":1,"call":"createClient","result":null}`)
}

// TestReplay_ConfigNamespace verifies configuration reaches the channels.
//
// GOAL: The configured namespace prefixes channel names in the output
//
// TEST SCENARIO: config namespace my_ble → state delivery on my_ble/stateChange
func (s *ReplayTestSuite) TestReplay_ConfigNamespace() {
	cfgPath := s.WriteFile("cfg.yaml", "namespace: my_ble\nlog_level: error\n")
	path := s.WriteFile("ns.yaml", `
steps:
  - call: createClient
  - event: StateChangeEvent
    value: Unknown
`)

	out, _, err := s.ExecuteCommand("", "replay", "--config", cfgPath, path)
	s.Require().NoError(err)
	s.assertLines(out,
		`{"step":1,"call":"createClient","result":null}`,
		`{"step":2,"channel":"my_ble/stateChange","data":{"code":0,"name":"Unknown"}}`,
	)
}

// TestReplay_InvalidInputs verifies argument validation.
//
// GOAL: Bad format, revision or fixture fail before anything runs
//
// TEST SCENARIO: each invalid input → error
func (s *ReplayTestSuite) TestReplay_InvalidInputs() {
	fx := s.fixturePath()

	_, _, err := s.ExecuteCommand("", "replay", "--format", "table", fx)
	s.ErrorIs(err, config.ErrInvalidConfig)

	resetFlags(rootCmd)
	_, _, err = s.ExecuteCommand("", "replay", "--revision", "future", fx)
	s.Error(err)

	resetFlags(rootCmd)
	bad := s.WriteFile("broken.yaml", "steps: [{}]")
	_, _, err = s.ExecuteCommand("", "replay", bad)
	s.ErrorIs(err, fixture.ErrInvalidFixture)

	resetFlags(rootCmd)
	_, _, err = s.ExecuteCommand("", "replay", "--log-level", "loud", fx)
	s.Error(err)
}

func TestReplayTestSuite(t *testing.T) {
	suite.Run(t, new(ReplayTestSuite))
}

// TestReplayer_GeneratedTransactionIDs verifies auto transactions use the id generator.
func TestReplayer_GeneratedTransactionIDs(t *testing.T) {
	fx, err := fixture.Parse([]byte(`
replies:
  readCharacteristic: {reject: {code: "1", message: nope}}
steps:
  - call: createClient
  - call: readCharacteristic
    auto_transaction: true
    args: {characteristicIdentifier: 7.0}
`))
	if err != nil {
		t.Fatal(err)
	}

	helper := testutils.NewTestHelper(t)
	r := newReplayer(config.DefaultConfig(), convert.RevisionCurrent, helper.Logger)
	r.newTxID = func() string { return "tx-fixed" }

	entries, err := r.run(context.Background(), fx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[1].txID != "tx-fixed" {
		t.Fatalf("expected generated transaction id on the second entry, got %+v", entries)
	}
	inv, ok := r.manager.Last("readCharacteristic")
	if !ok || inv.TxID != "tx-fixed" {
		t.Fatalf("manager MUST receive the generated id, got %+v", inv)
	}
	if debug := helper.Messages(logrus.DebugLevel); len(debug) == 0 || debug[len(debug)-1] != "Replay finished" {
		t.Fatalf("replay MUST log its summary last, got %v", debug)
	}
}

// TestReplayer_CancelledContext verifies a cancelled context stops the replay.
func TestReplayer_CancelledContext(t *testing.T) {
	fx, err := fixture.Parse([]byte("steps: [{call: createClient}]"))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	_, err = newReplayer(config.DefaultConfig(), convert.RevisionCurrent, logger).run(ctx, fx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
