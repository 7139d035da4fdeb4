// Package fixture loads replay scripts: a scripted manager (canned responses per operation)
// plus an ordered list of steps, each an incoming call, a native event, or a cancellation.
package fixture

import (
	"errors"
	"fmt"
	"os"

	"github.com/srg/blewire/pkg/convert"
	"github.com/srg/blewire/pkg/native"
	"github.com/srg/blewire/pkg/protocol"
	"gopkg.in/yaml.v3"
)

var ErrInvalidFixture = errors.New("invalid fixture")

type StepKind int

const (
	StepCall StepKind = iota
	StepEvent
	StepCancel
)

func (k StepKind) String() string {
	switch k {
	case StepCall:
		return "call"
	case StepEvent:
		return "event"
	case StepCancel:
		return "cancel"
	}
	return fmt.Sprintf("StepKind(%d)", int(k))
}

// Reply is the canned answer of the fake manager to one operation.
type Reply struct {
	Resolve Value   `yaml:"resolve"`
	Reject  *Reject `yaml:"reject"`
}

type Reject struct {
	Code    string `yaml:"code"`
	Message string `yaml:"message"`
}

// Step is one action of the replay.
type Step struct {
	Kind StepKind

	// StepCall
	Method  string
	Args    native.Value
	Payload []byte
	// AutoTransaction asks the runner to generate a transactionId argument.
	AutoTransaction bool

	// StepEvent
	Event string
	Value native.Value

	// StepCancel
	TransactionID string
}

type Fixture struct {
	Name string
	// Revision is nil when the fixture leaves the choice to the caller.
	Revision *convert.Revision
	Replies  map[string]Reply
	Steps    []Step
}

type rawFixture struct {
	Name     string            `yaml:"name"`
	Revision *convert.Revision `yaml:"revision"`
	Replies  map[string]Reply  `yaml:"replies"`
	Steps    []rawStep         `yaml:"steps"`
}

type rawStep struct {
	Call            string             `yaml:"call"`
	Args            Value              `yaml:"args"`
	Device          *rawDevice `yaml:"device"`
	Scan            *rawScan   `yaml:"scan"`
	AutoTransaction bool       `yaml:"auto_transaction"`

	Event string `yaml:"event"`
	Value Value  `yaml:"value"`

	Cancel string `yaml:"cancel"`
}

type rawDevice struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	RSSI int32  `yaml:"rssi"`
	MTU  int32  `yaml:"mtu"`
}

type rawScan struct {
	ScanMode     int32    `yaml:"scanMode"`
	CallbackType int32    `yaml:"callbackType"`
	UUIDs        []string `yaml:"uuids"`
}

func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Fixture, error) {
	var raw rawFixture
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}

	f := &Fixture{Name: raw.Name, Revision: raw.Revision, Replies: raw.Replies}
	if f.Replies == nil {
		f.Replies = map[string]Reply{}
	}
	for op, r := range f.Replies {
		if r.Reject != nil && !r.Resolve.IsNull() {
			return nil, fmt.Errorf("%w: reply %q both resolves and rejects", ErrInvalidFixture, op)
		}
	}

	for i, rs := range raw.Steps {
		step, err := rs.step()
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %v", ErrInvalidFixture, i+1, err)
		}
		f.Steps = append(f.Steps, step)
	}
	return f, nil
}

func (rs rawStep) step() (Step, error) {
	set := 0
	for _, s := range []string{rs.Call, rs.Event, rs.Cancel} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return Step{}, errors.New("exactly one of call, event, cancel is required")
	}

	switch {
	case rs.Event != "":
		return Step{Kind: StepEvent, Event: rs.Event, Value: rs.Value.Value}, nil
	case rs.Cancel != "":
		return Step{Kind: StepCancel, TransactionID: rs.Cancel}, nil
	}

	s := Step{Kind: StepCall, Method: rs.Call, Args: rs.Args.Value, AutoTransaction: rs.AutoTransaction}
	if rs.Device != nil && rs.Scan != nil {
		return Step{}, errors.New("device and scan payloads are exclusive")
	}
	var payload protocol.Message
	switch {
	case rs.Device != nil:
		payload = &protocol.Device{ID: rs.Device.ID, Name: rs.Device.Name, RSSI: rs.Device.RSSI, MTU: rs.Device.MTU}
	case rs.Scan != nil:
		payload = &protocol.ScanData{ScanMode: rs.Scan.ScanMode, CallbackType: rs.Scan.CallbackType, UUIDs: rs.Scan.UUIDs}
	}
	if payload != nil {
		b, err := payload.MarshalBinary()
		if err != nil {
			return Step{}, err
		}
		s.Payload = b
	}
	if s.AutoTransaction && !s.Args.IsNull() {
		if _, ok := s.Args.AsRecord(); !ok {
			return Step{}, errors.New("auto_transaction needs record args")
		}
	}
	return s, nil
}
