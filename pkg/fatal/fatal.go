// Package fatal escalates contract violations: situations where the BLE manager handed
// over a payload of a shape it promised never to produce, or the host was asked to route
// something outside its closed enumerations. These are programming errors, not
// operation failures, and must never be swallowed.
package fatal

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrContractViolation is matched by every *ContractViolation.
var ErrContractViolation = errors.New("contract violation")

// ContractViolation describes a broken collaborator contract.
type ContractViolation struct {
	Op   string // operation or event that observed the violation
	Data any    // offending payload, rendered for diagnostics
	Err  error
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("contract violation in %s: %v (data: %v)", e.Op, e.Err, e.Data)
}

func (e *ContractViolation) Unwrap() error { return e.Err }

func (e *ContractViolation) Is(target error) bool {
	return target == ErrContractViolation
}

// Violation builds a *ContractViolation.
func Violation(op string, data any, err error) *ContractViolation {
	return &ContractViolation{Op: op, Data: data, Err: err}
}

// Reporter receives contract violations. Implementations must not return normally into a
// state where the violating operation is considered handled; the default one panics.
type Reporter interface {
	Report(err error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(err error)

func (f ReporterFunc) Report(err error) { f(err) }

// PanicReporter logs the violation and panics with it.
type PanicReporter struct {
	logger *logrus.Logger
}

// NewPanicReporter returns the default, process-fatal reporter.
func NewPanicReporter(logger *logrus.Logger) *PanicReporter {
	if logger == nil {
		logger = logrus.New()
	}
	return &PanicReporter{logger: logger}
}

func (r *PanicReporter) Report(err error) {
	fields := logrus.Fields{"error": err}
	var cv *ContractViolation
	if errors.As(err, &cv) {
		fields["op"] = cv.Op
		fields["data"] = fmt.Sprintf("%v", cv.Data)
	}
	r.logger.WithFields(fields).Error("Native contract violated")
	panic(err)
}

// Recorder collects reported violations instead of panicking. Intended for tests and
// for hosts that surface violations through their own crash reporter.
type Recorder struct {
	mu   sync.Mutex
	errs []error
}

func (r *Recorder) Report(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

// Errors returns a copy of the recorded violations.
func (r *Recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

// Last returns the most recent violation, or nil.
func (r *Recorder) Last() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errs) == 0 {
		return nil
	}
	return r.errs[len(r.errs)-1]
}
