package protocol

import "fmt"

// BluetoothState is the adapter state delivered on the state-change channel as its integer code.
type BluetoothState int

const (
	StateUnknown BluetoothState = iota
	StateResetting
	StateUnsupported
	StateUnauthorized
	StatePoweredOff
	StatePoweredOn
)

var stateNames = map[BluetoothState]string{
	StateUnknown:      "Unknown",
	StateResetting:    "Resetting",
	StateUnsupported:  "Unsupported",
	StateUnauthorized: "Unauthorized",
	StatePoweredOff:   "PoweredOff",
	StatePoweredOn:    "PoweredOn",
}

var statesByName = func() map[string]BluetoothState {
	m := make(map[string]BluetoothState, len(stateNames))
	for s, n := range stateNames {
		m[n] = s
	}
	return m
}()

func (s BluetoothState) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("BluetoothState(%d)", int(s))
}

// Valid reports whether s is one of the defined states.
func (s BluetoothState) Valid() bool {
	_, ok := stateNames[s]
	return ok
}

// ParseBluetoothState maps the manager's state name (e.g. "PoweredOn") to its state.
// Matching is exact and case-sensitive.
func ParseBluetoothState(name string) (BluetoothState, bool) {
	s, ok := statesByName[name]
	return s, ok
}

// BluetoothStates lists every state in code order.
func BluetoothStates() []BluetoothState {
	return []BluetoothState{StateUnknown, StateResetting, StateUnsupported, StateUnauthorized, StatePoweredOff, StatePoweredOn}
}

// LogLevel is the native manager log level, transported as its integer code.
type LogLevel int

const (
	LogVerbose LogLevel = iota
	LogDebug
	LogInfo
	LogWarning
	LogError
	LogNone
)

var logLevelNames = [...]string{"Verbose", "Debug", "Info", "Warning", "Error", "None"}

func (l LogLevel) String() string {
	if l < 0 || int(l) >= len(logLevelNames) {
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
	return logLevelNames[l]
}

// Valid reports whether l is one of the defined levels.
func (l LogLevel) Valid() bool {
	return l >= LogVerbose && l <= LogNone
}

// ParseLogLevel maps a capitalized level name (e.g. "Debug") to its level.
func ParseLogLevel(name string) (LogLevel, bool) {
	for i, n := range logLevelNames {
		if n == name {
			return LogLevel(i), true
		}
	}
	return 0, false
}
