package event

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/srg/blewire/pkg/convert"
	"github.com/srg/blewire/pkg/fatal"
	"github.com/srg/blewire/pkg/native"
	"github.com/srg/blewire/pkg/protocol"
	"github.com/srg/blewire/pkg/stream"
)

// Channels groups the five outward event streams.
type Channels struct {
	Scan       *stream.MessageChannel[*protocol.ScanResult]
	State      *stream.ObjectChannel[int]
	Connection *stream.MessageChannel[*protocol.Device]
	Monitor    *stream.MessageChannel[*protocol.MonitorCharacteristic]
	Restore    *stream.ObjectChannel[native.Record]
}

// NewChannels creates the five streams under namespace (DefaultNamespace when empty).
func NewChannels(namespace string, logger *logrus.Logger, reporter fatal.Reporter) Channels {
	names := stream.Names(namespace)
	return Channels{
		Scan:       stream.NewMessageChannel[*protocol.ScanResult](names[ScanResult], logger, reporter),
		State:      stream.NewObjectChannel[int](names[StateChange], logger),
		Connection: stream.NewMessageChannel[*protocol.Device](names[ConnectionChange], logger, reporter),
		Monitor:    stream.NewMessageChannel[*protocol.MonitorCharacteristic](names[CharacteristicRead], logger, reporter),
		Restore:    stream.NewObjectChannel[native.Record](names[RestoreState], logger),
	}
}

// For returns the channel events of kind k are delivered to, or nil for an unknown kind or
// a channel left unset.
func (c Channels) For(k Kind) stream.Channel {
	switch k {
	case ScanResult:
		if c.Scan != nil {
			return c.Scan
		}
	case StateChange:
		if c.State != nil {
			return c.State
		}
	case ConnectionChange:
		if c.Connection != nil {
			return c.Connection
		}
	case CharacteristicRead:
		if c.Monitor != nil {
			return c.Monitor
		}
	case RestoreState:
		if c.Restore != nil {
			return c.Restore
		}
	}
	return nil
}

// All returns the set channels in Kind order.
func (c Channels) All() []stream.Channel {
	out := make([]stream.Channel, 0, len(kindNames))
	for _, k := range Kinds() {
		if ch := c.For(k); ch != nil {
			out = append(out, ch)
		}
	}
	return out
}

// Dispatcher routes native events: envelope decode, entity conversion, channel delivery.
//
// Failures on this path have no caller to reject to, so a malformed envelope or a payload
// the converter refuses is delivered as a CodeMalformedEvent error on the target channel.
// Only an event kind outside the closed set is escalated to the fatal reporter.
type Dispatcher struct {
	channels Channels
	conv     convert.Converters
	logger   *logrus.Logger
	reporter fatal.Reporter
}

func NewDispatcher(channels Channels, conv convert.Converters, logger *logrus.Logger, reporter fatal.Reporter) *Dispatcher {
	if logger == nil {
		logger = logrus.New()
	}
	if reporter == nil {
		reporter = fatal.NewPanicReporter(logger)
	}
	return &Dispatcher{
		channels: channels,
		conv:     conv,
		logger:   logger,
		reporter: reporter,
	}
}

// Channels returns the streams the dispatcher delivers to.
func (d *Dispatcher) Channels() Channels { return d.channels }

// DispatchNamed dispatches an event identified by its native name.
func (d *Dispatcher) DispatchNamed(name string, v native.Value) {
	kind, err := ParseKind(name)
	if err != nil {
		d.reporter.Report(fatal.Violation("dispatchEvent", v, err))
		return
	}
	d.Dispatch(kind, v)
}

// Dispatch decodes v and delivers it to the channel of kind.
func (d *Dispatcher) Dispatch(kind Kind, v native.Value) {
	ch := d.channels.For(kind)
	if ch == nil {
		err := fmt.Errorf("%w: %s", ErrUnknownEventKind, kind)
		if kind.Valid() {
			err = fmt.Errorf("%w: %s", ErrNoChannel, kind)
		}
		d.reporter.Report(fatal.Violation("dispatchEvent", v, err))
		return
	}

	env, err := Decode(v, kind.BareMode())
	if err != nil {
		d.fail(kind, ch, v, err)
		return
	}

	if env.Outcome == OutcomeError {
		d.logger.WithFields(logrus.Fields{
			"event": kind,
			"code":  env.Err.Code,
		}).Debug("Native event carries an error")
		ch.SendError(env.Err.Code, env.Err.Message)
		return
	}

	if err := d.deliver(kind, env); err != nil {
		d.fail(kind, ch, v, err)
		return
	}

	d.logger.WithField("event", kind).Trace("Event delivered")
}

func (d *Dispatcher) deliver(kind Kind, env Envelope) error {
	switch kind {
	case ScanResult:
		m, err := d.conv.ScanResultValue(env.Payload)
		if err != nil {
			return err
		}
		d.channels.Scan.Send(&m)

	case StateChange:
		s, err := d.conv.BluetoothStateValue(env.Payload)
		if err != nil {
			return err
		}
		d.channels.State.Send(int(s))

	case ConnectionChange:
		m, err := d.conv.DeviceValue(env.Payload)
		if err != nil {
			return err
		}
		d.channels.Connection.Send(&m)

	case CharacteristicRead:
		m, err := d.conv.MonitorCharacteristicValue(env.Payload, env.Context)
		if err != nil {
			return err
		}
		d.channels.Monitor.Send(&m)

	case RestoreState:
		// Passed through without validation beyond being a record.
		rec, ok := env.Payload.AsRecord()
		if !ok {
			return malformed("restore state payload: got %s, want record", env.Payload.Kind())
		}
		d.channels.Restore.Send(rec)
	}
	return nil
}

func (d *Dispatcher) fail(kind Kind, ch stream.Channel, v native.Value, err error) {
	d.logger.WithFields(logrus.Fields{
		"event": kind,
		"value": v.String(),
		"error": err,
	}).Warn("Dropping undeliverable native event")
	ch.SendError(protocol.CodeMalformedEvent, fmt.Sprintf("%s: %v", kind, err))
}
