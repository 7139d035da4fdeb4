// Package call turns the BLE manager's callback-pair operations (resolve on success,
// reject on failure) into one correlated completion per request.
package call

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/srg/blewire/pkg/fatal"
	"github.com/srg/blewire/pkg/native"
	"github.com/srg/blewire/pkg/protocol"
)

// Result is what a request completes with: exactly one of Bytes (a serialized protocol
// message), Value (a primitive such as a bool or an enum code, or nil for operations
// without a payload) or Err. Message is the typed message Bytes was serialized from.
type Result struct {
	Value   any
	Bytes   []byte
	Message protocol.Message
	Err     *protocol.Error
}

// Failed reports whether r is a rejection.
func (r Result) Failed() bool { return r.Err != nil }

// Completion receives the single Result of a request.
type Completion func(Result)

// Resolve and Reject are the callback pair handed to the BLE manager.
type (
	Resolve func(v native.Value)
	Reject  func(code, message string)
)

// Bridge creates transactions that share a logger and a fatal reporter.
type Bridge struct {
	logger   *logrus.Logger
	reporter fatal.Reporter
}

func NewBridge(logger *logrus.Logger, reporter fatal.Reporter) *Bridge {
	if logger == nil {
		logger = logrus.New()
	}
	if reporter == nil {
		reporter = fatal.NewPanicReporter(logger)
	}
	return &Bridge{logger: logger, reporter: reporter}
}

// New starts tracking one request. op names the originating operation for diagnostics,
// txID is the caller's transaction identifier (empty for untracked calls).
func (b *Bridge) New(op, txID string, conv ConvertFunc, done Completion) *Transaction {
	if conv == nil {
		conv = NoValue
	}
	return &Transaction{
		op:     op,
		txID:   txID,
		conv:   conv,
		done:   done,
		bridge: b,
	}
}

// Transaction is one pending request. The first of Resolve, Reject or Cancel completes it;
// every later call is a no-op.
type Transaction struct {
	op        string
	txID      string
	conv      ConvertFunc
	done      Completion
	bridge    *Bridge
	completed atomic.Bool
}

func (t *Transaction) Op() string            { return t.op }
func (t *Transaction) TransactionID() string { return t.txID }

// Completed reports whether the transaction already delivered its result.
func (t *Transaction) Completed() bool { return t.completed.Load() }

func (t *Transaction) fields() logrus.Fields {
	return logrus.Fields{"op": t.op, "transaction": t.txID}
}

func (t *Transaction) claim(via string) bool {
	if t.completed.CompareAndSwap(false, true) {
		return true
	}
	t.bridge.logger.WithFields(t.fields()).WithField("via", via).Debug("Transaction already completed, ignoring")
	return false
}

func (t *Transaction) complete(r Result) {
	if t.done != nil {
		t.done(r)
	}
}

// Resolve converts the native success payload and completes with it. A payload the
// converter refuses is a contract violation: the transaction is reported and never
// completed.
func (t *Transaction) Resolve(v native.Value) {
	if !t.claim("resolve") {
		return
	}
	r, err := t.conv(v)
	if err != nil {
		t.bridge.reporter.Report(fatal.Violation(t.op, v, err))
		return
	}
	t.bridge.logger.WithFields(t.fields()).Trace("Transaction resolved")
	t.complete(r)
}

// Reject completes with a structured error tagged with the operation name.
func (t *Transaction) Reject(code, message string) {
	if !t.claim("reject") {
		return
	}
	err := protocol.NewError(code, message).WithDetails(t.op)
	t.bridge.logger.WithFields(t.fields()).WithField("code", err.Code).Debug("Transaction rejected")
	t.complete(Result{Err: err})
}

// Cancel completes with ErrOperationCancelled unless the transaction already completed.
// It reports whether this call completed it.
func (t *Transaction) Cancel() bool {
	if !t.claim("cancel") {
		return false
	}
	t.bridge.logger.WithFields(t.fields()).Debug("Transaction cancelled")
	t.complete(Result{Err: protocol.ErrOperationCancelled.WithDetails(t.op)})
	return true
}

// Callbacks returns the transaction as the callback pair the manager expects.
func (t *Transaction) Callbacks() (Resolve, Reject) {
	return t.Resolve, t.Reject
}
