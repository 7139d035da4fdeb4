package fatal_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/srg/blewire/pkg/fatal"
	"github.com/stretchr/testify/assert"
)

func TestPanicReporter_LogsAndPanics(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)

	cause := errors.New("payload is a list")
	violation := fatal.Violation("readCharacteristic", "[1i32]", cause)

	assert.PanicsWithError(t, violation.Error(), func() {
		fatal.NewPanicReporter(logger).Report(violation)
	}, "reporter MUST panic with the violation")

	assert.Contains(t, buf.String(), "Native contract violated")
	assert.Contains(t, buf.String(), "op=readCharacteristic")
}

func TestContractViolation_Matching(t *testing.T) {
	cause := errors.New("boom")
	err := fatal.Violation("dispatch", nil, cause)

	assert.ErrorIs(t, err, fatal.ErrContractViolation)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "dispatch")
}

func TestRecorder(t *testing.T) {
	var r fatal.Recorder
	assert.Nil(t, r.Last())

	r.Report(errors.New("first"))
	r.Report(errors.New("second"))

	assert.Len(t, r.Errors(), 2)
	assert.EqualError(t, r.Last(), "second")
}
