// Package stream implements the outward event channels: live, single-subscriber taps with
// no buffering. A channel either passes values through as-is or serializes a typed
// protocol message before delivery.
package stream

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/srg/blewire/pkg/fatal"
	"github.com/srg/blewire/pkg/protocol"
)

// DefaultNamespace prefixes every channel name.
const DefaultNamespace = "flutter_ble_lib"

// Channel suffixes, one per event stream.
const (
	ScanResults           = "startDeviceScan"
	StateChanges          = "stateChange"
	ConnectionChanges     = "deviceConnectionChange"
	CharacteristicMonitor = "monitorCharacteristicChange"
	RestoreState          = "restoreState"
)

// Names returns the fully qualified channel names under namespace, in dispatch order.
func Names(namespace string) []string {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	suffixes := []string{ScanResults, StateChanges, ConnectionChanges, CharacteristicMonitor, RestoreState}
	names := make([]string, len(suffixes))
	for i, s := range suffixes {
		names[i] = namespace + "/" + s
	}
	return names
}

// Listener is the outward subscriber of a channel. Data and error deliveries arrive
// through distinct methods; a listener never has to sniff payloads to tell them apart.
type Listener interface {
	OnData(v any)
	OnError(err *protocol.Error)
}

// ListenerFuncs adapts a pair of functions to Listener. Nil members ignore the delivery.
type ListenerFuncs struct {
	Data  func(v any)
	Error func(err *protocol.Error)
}

func (l ListenerFuncs) OnData(v any) {
	if l.Data != nil {
		l.Data(v)
	}
}

func (l ListenerFuncs) OnError(err *protocol.Error) {
	if l.Error != nil {
		l.Error(err)
	}
}

// Channel is the payload-independent part of a stream.
type Channel interface {
	Name() string
	// Subscribe installs l as the only listener, replacing any previous one.
	Subscribe(l Listener)
	Unsubscribe()
	Subscribed() bool
	SendError(code, message string)
}

// ----------------------------
// base
// ----------------------------

type listenerSlot struct {
	l Listener
}

type base struct {
	name   string
	slot   atomic.Pointer[listenerSlot]
	logger *logrus.Logger
}

func (b *base) init(name string, logger *logrus.Logger) {
	if logger == nil {
		logger = logrus.New()
	}
	b.name = name
	b.logger = logger
}

func (b *base) Name() string { return b.name }

func (b *base) Subscribe(l Listener) {
	if l == nil {
		b.Unsubscribe()
		return
	}
	prev := b.slot.Swap(&listenerSlot{l: l})
	b.logger.WithFields(logrus.Fields{
		"channel":  b.name,
		"replaced": prev != nil,
	}).Debug("Stream listener subscribed")
}

func (b *base) Unsubscribe() {
	if b.slot.Swap(nil) != nil {
		b.logger.WithField("channel", b.name).Debug("Stream listener unsubscribed")
	}
}

func (b *base) Subscribed() bool { return b.slot.Load() != nil }

func (b *base) listener() Listener {
	if s := b.slot.Load(); s != nil {
		return s.l
	}
	return nil
}

func (b *base) SendError(code, message string) {
	l := b.listener()
	if l == nil {
		b.logger.WithFields(logrus.Fields{"channel": b.name, "code": code}).Trace("No listener, error dropped")
		return
	}
	l.OnError(protocol.NewError(code, message))
}

func (b *base) deliver(v any) {
	l := b.listener()
	if l == nil {
		b.logger.WithField("channel", b.name).Trace("No listener, data dropped")
		return
	}
	l.OnData(v)
}

// ----------------------------
// ObjectChannel
// ----------------------------

// ObjectChannel delivers values unchanged.
type ObjectChannel[T any] struct {
	base
}

func NewObjectChannel[T any](name string, logger *logrus.Logger) *ObjectChannel[T] {
	c := &ObjectChannel[T]{}
	c.init(name, logger)
	return c
}

func (c *ObjectChannel[T]) Send(v T) {
	c.deliver(v)
}

// ----------------------------
// MessageChannel
// ----------------------------

// MessageChannel serializes a protocol message and delivers the resulting bytes.
// Serialization happens only when a listener is present; a failure is a contract
// violation and goes to the fatal reporter.
type MessageChannel[M protocol.Message] struct {
	base
	reporter fatal.Reporter
}

func NewMessageChannel[M protocol.Message](name string, logger *logrus.Logger, reporter fatal.Reporter) *MessageChannel[M] {
	if reporter == nil {
		reporter = fatal.NewPanicReporter(logger)
	}
	c := &MessageChannel[M]{reporter: reporter}
	c.init(name, logger)
	return c
}

func (c *MessageChannel[M]) Send(m M) {
	if !c.Subscribed() {
		c.logger.WithField("channel", c.name).Trace("No listener, message dropped")
		return
	}
	b, err := m.MarshalBinary()
	if err != nil {
		c.reporter.Report(fatal.Violation(c.name, m, err))
		return
	}
	c.deliver(b)
}
