// Package plugin hosts the boundary: it owns the native manager (or none), the five event
// channels, the event dispatcher and the call bridge, and routes incoming calls to the
// manager.
package plugin

import (
	"context"
	"errors"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
	"github.com/srg/blewire/pkg/call"
	"github.com/srg/blewire/pkg/convert"
	"github.com/srg/blewire/pkg/event"
	"github.com/srg/blewire/pkg/fatal"
	"github.com/srg/blewire/pkg/native"
	"github.com/srg/blewire/pkg/protocol"
)

// Call is an incoming request. Args carries untyped arguments; Payload carries the
// serialized argument message of methods that take one (connectToDevice: Device,
// startDeviceScan: ScanData).
type Call struct {
	Method  string
	Args    native.Value
	Payload []byte
}

var errNoFactory = errors.New("no manager factory configured")

// Executor runs f on the host's execution context.
type Executor func(f func())

// Option configures a Plugin.
type Option func(*Plugin)

func WithLogger(logger *logrus.Logger) Option {
	return func(p *Plugin) { p.logger = logger }
}

func WithReporter(r fatal.Reporter) Option {
	return func(p *Plugin) { p.reporter = r }
}

func WithRevision(rev convert.Revision) Option {
	return func(p *Plugin) { p.conv = convert.New(rev) }
}

// WithNamespace sets the channel name prefix.
func WithNamespace(ns string) Option {
	return func(p *Plugin) { p.namespace = ns }
}

// WithExecutor sets the execution context that context-expiry cancellations are run on.
// Without one, request contexts are only checked on entry: a context that ends while the
// request is pending does not cancel it, since nothing could complete it on the host's context.
func WithExecutor(exec Executor) Option {
	return func(p *Plugin) { p.exec = exec }
}

// Plugin is the outward host of the boundary.
type Plugin struct {
	factory   ManagerFactory
	manager   Manager
	namespace string
	conv      convert.Converters
	channels  event.Channels
	events    *event.Dispatcher
	bridge    *call.Bridge
	pending   *hashmap.Map[string, *call.Transaction]
	logger    *logrus.Logger
	reporter  fatal.Reporter
	exec      Executor
}

// New creates a Plugin without a manager; createClient instantiates one through factory.
func New(factory ManagerFactory, opts ...Option) *Plugin {
	p := &Plugin{
		factory: factory,
		conv:    convert.New(convert.RevisionCurrent),
		pending: hashmap.New[string, *call.Transaction](),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logrus.New()
	}
	if p.reporter == nil {
		p.reporter = fatal.NewPanicReporter(p.logger)
	}

	p.channels = event.NewChannels(p.namespace, p.logger, p.reporter)
	p.events = event.NewDispatcher(p.channels, p.conv, p.logger, p.reporter)
	p.bridge = call.NewBridge(p.logger, p.reporter)
	return p
}

// Channels returns the outward event streams.
func (p *Plugin) Channels() event.Channels { return p.channels }

// Manager returns the current manager, or nil before createClient.
func (p *Plugin) Manager() Manager { return p.manager }

// Pending returns the number of tracked transactions still awaiting completion.
func (p *Plugin) Pending() int { return p.pending.Len() }

// DispatchEvent implements Delegate.
func (p *Plugin) DispatchEvent(name string, v native.Value) {
	p.events.DispatchNamed(name, v)
}

// CancelTransaction asks the manager to cancel txID and completes the pending request, if
// any, with ErrOperationCancelled. A later native resolve or reject for it is ignored.
func (p *Plugin) CancelTransaction(txID string) error {
	if p.manager == nil {
		return protocol.ErrClientNotCreated
	}
	p.manager.CancelTransaction(txID)
	if tx, ok := p.pending.Get(txID); ok {
		tx.Cancel()
	}
	return nil
}

// Handle routes c to the manager. done is invoked exactly once for every routed call,
// except when the call or the manager breaks its contract; that is reported to the fatal
// reporter instead.
func (p *Plugin) Handle(ctx context.Context, c Call, done call.Completion) {
	m, ok := ParseMethod(c.Method)
	if !ok {
		p.logger.WithField("method", c.Method).Debug("Unroutable call")
		done(call.Result{Err: protocol.CannotHandleMethod(c.Method)})
		return
	}
	if ctx.Err() != nil {
		done(call.Result{Err: protocol.ErrOperationCancelled.WithDetails(c.Method)})
		return
	}

	p.logger.WithField("method", m).Trace("Handling call")
	if err := p.route(ctx, m, c, done); err != nil {
		var perr *protocol.Error
		if errors.As(err, &perr) {
			done(call.Result{Err: perr})
			return
		}
		p.reporter.Report(fatal.Violation(m.String(), c.Args, err))
	}
}

// track creates the transaction for one request. Tracked transactions (non-empty txID) are
// registered for CancelTransaction and cancelled when ctx ends first.
func (p *Plugin) track(ctx context.Context, m Method, txID string, conv call.ConvertFunc, done call.Completion) *call.Transaction {
	if txID == "" {
		return p.bridge.New(m.String(), "", conv, done)
	}

	var stop func() bool
	var tx *call.Transaction
	tx = p.bridge.New(m.String(), txID, conv, func(r call.Result) {
		if stop != nil {
			stop()
		}
		if cur, ok := p.pending.Get(txID); ok && cur == tx {
			p.pending.Del(txID)
		}
		done(r)
	})

	if prev, ok := p.pending.Get(txID); ok && !prev.Completed() {
		p.logger.WithField("transaction", txID).Debug("Transaction id reused, cancelling previous request")
		prev.Cancel()
	}
	p.pending.Set(txID, tx)

	if p.exec == nil || ctx.Done() == nil {
		return tx
	}
	stop = context.AfterFunc(ctx, func() {
		p.exec(func() {
			if p.manager != nil && !tx.Completed() {
				p.manager.CancelTransaction(txID)
			}
			tx.Cancel()
		})
	})
	return tx
}

func (p *Plugin) requireManager() (Manager, error) {
	if p.manager == nil {
		return nil, protocol.ErrClientNotCreated
	}
	return p.manager, nil
}

func (p *Plugin) createClient(restoreKey string) error {
	if p.manager != nil {
		return protocol.ErrClientAlreadyCreated
	}
	if p.factory == nil {
		return errNoFactory
	}
	p.manager = p.factory(restoreKey, p)
	p.logger.WithField("restore_key", restoreKey).Debug("Client created")
	return nil
}

func (p *Plugin) destroyClient() {
	if p.manager != nil {
		p.manager.Invalidate()
	}
	p.manager = nil

	var open []*call.Transaction
	p.pending.Range(func(_ string, tx *call.Transaction) bool {
		open = append(open, tx)
		return true
	})
	for _, tx := range open {
		tx.Cancel()
	}
	p.logger.WithField("cancelled", len(open)).Debug("Client destroyed")
}
