package event

import (
	"errors"
	"fmt"

	"github.com/srg/blewire/pkg/native"
	"github.com/srg/blewire/pkg/protocol"
)

// ErrMalformedEnvelope is matched by every Decode failure.
var ErrMalformedEnvelope = errors.New("malformed event envelope")

// BareMode selects whether Decode accepts a value with no enclosing list.
type BareMode int

const (
	RequireEnvelope BareMode = iota
	AllowBare
)

// Outcome discriminates a decoded envelope.
type Outcome int

const (
	OutcomeData Outcome = iota
	OutcomeError
)

func (o Outcome) String() string {
	if o == OutcomeError {
		return "error"
	}
	return "data"
}

// Envelope is a decoded native callback argument. For OutcomeError only Err is set; for
// OutcomeData Payload holds the value and Context the optional side-channel slot (Null
// when absent).
type Envelope struct {
	Outcome Outcome
	Err     *protocol.Error
	Payload native.Value
	Context native.Value
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedEnvelope, fmt.Sprintf(format, args...))
}

// Decode normalizes a native callback argument.
//
// The enveloped shape is a list [errorSlot, payload] or [errorSlot, payload, context]. The
// error slot is Null, an empty record, or a record with a string "code" (and optionally a
// string "message"); a present code always wins over the payload, whatever its shape.
// Any other value is accepted as a bare payload only under AllowBare.
func Decode(v native.Value, bare BareMode) (Envelope, error) {
	list, ok := v.AsList()
	if !ok {
		if bare != AllowBare {
			return Envelope{}, malformed("expected [error, payload(, context)], got %s", v.Kind())
		}
		if v.IsNull() {
			return Envelope{}, malformed("missing payload")
		}
		return Envelope{Outcome: OutcomeData, Payload: v}, nil
	}

	if len(list) != 2 && len(list) != 3 {
		return Envelope{}, malformed("expected 2 or 3 elements, got %d", len(list))
	}

	nerr, err := decodeErrorSlot(list[0])
	if err != nil {
		return Envelope{}, err
	}
	if nerr != nil {
		return Envelope{Outcome: OutcomeError, Err: nerr}, nil
	}

	env := Envelope{Outcome: OutcomeData, Payload: list[1]}
	if env.Payload.IsNull() {
		return Envelope{}, malformed("missing payload")
	}
	if len(list) == 3 {
		env.Context = list[2]
	}
	return env, nil
}

func decodeErrorSlot(slot native.Value) (*protocol.Error, error) {
	if slot.IsNull() {
		return nil, nil
	}
	rec, ok := slot.AsRecord()
	if !ok {
		return nil, malformed("error slot: got %s, want record", slot.Kind())
	}
	if _, present := rec["code"]; !present {
		return nil, nil
	}
	code, err := rec.String("code")
	if err != nil {
		return nil, malformed("error slot: %v", err)
	}
	return protocol.NewError(code, rec.OptionalString("message", "")), nil
}
