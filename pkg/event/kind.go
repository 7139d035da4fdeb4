package event

import (
	"errors"
	"fmt"
)

// ErrUnknownEventKind is returned for native event names the dispatcher was not built for.
var ErrUnknownEventKind = errors.New("unknown event kind")

// ErrNoChannel is reported when the dispatcher has no channel for a known event kind.
var ErrNoChannel = errors.New("no channel for event kind")

// Kind enumerates the native events the dispatcher routes.
type Kind int

const (
	ScanResult Kind = iota
	StateChange
	ConnectionChange
	CharacteristicRead
	RestoreState
)

// Native event names as emitted by the BLE manager.
const (
	NameScan         = "ScanEvent"
	NameStateChange  = "StateChangeEvent"
	NameDisconnect   = "DisconnectionEvent"
	NameRead         = "ReadEvent"
	NameRestoreState = "RestoreStateEvent"
)

var kindNames = [...]string{
	ScanResult:         NameScan,
	StateChange:        NameStateChange,
	ConnectionChange:   NameDisconnect,
	CharacteristicRead: NameRead,
	RestoreState:       NameRestoreState,
}

// String returns the native event name.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= 0 && int(k) < len(kindNames)
}

// BareMode reports whether a kind may arrive as a bare value without an error slot.
// Only kinds that never carry native errors do.
func (k Kind) BareMode() BareMode {
	switch k {
	case StateChange, RestoreState:
		return AllowBare
	default:
		return RequireEnvelope
	}
}

// Kinds returns all kinds in declaration order.
func Kinds() []Kind {
	return []Kind{ScanResult, StateChange, ConnectionChange, CharacteristicRead, RestoreState}
}

// ParseKind maps a native event name to its Kind.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEventKind, name)
}
