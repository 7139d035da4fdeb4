package convert

import (
	"fmt"
	"strings"
)

// Revision selects the native record encoding a Converters instance accepts.
// Each revision is validated exactly; records of the other revision are rejected.
type Revision int

const (
	// RevisionCurrent: capability flags are int64 0/1, serviceID is int64, device rssi is optional.
	RevisionCurrent Revision = iota
	// RevisionLegacy: capability flags are strings "0"/"1" (with the legacy
	// isNotificable/isNotifing keys), serviceID is int32, device rssi is required.
	RevisionLegacy
)

func (r Revision) String() string {
	switch r {
	case RevisionCurrent:
		return "current"
	case RevisionLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("revision(%d)", int(r))
	}
}

// ParseRevision accepts "current" or "legacy" (case-insensitive).
func ParseRevision(s string) (Revision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "current":
		return RevisionCurrent, nil
	case "legacy":
		return RevisionLegacy, nil
	default:
		return 0, fmt.Errorf("unknown protocol revision %q (must be current or legacy)", s)
	}
}

// MarshalText lets Revision appear in YAML/JSON configuration.
func (r Revision) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Revision) UnmarshalText(b []byte) error {
	rev, err := ParseRevision(string(b))
	if err != nil {
		return err
	}
	*r = rev
	return nil
}

// flagKeys are the record keys of the six capability flags, in protocol order:
// indicatable, notifiable, notifying, readable, writable with response, writable without response.
type flagKeys [6]string

var (
	currentFlagKeys = flagKeys{"isIndicatable", "isNotifiable", "isNotifying", "isReadable", "isWritableWithResponse", "isWritableWithoutResponse"}
	legacyFlagKeys  = flagKeys{"isIndicatable", "isNotificable", "isNotifing", "isReadable", "isWritableWithResponse", "isWritableWithoutResponse"}
)

// FlagKeys returns the capability flag keys used by r.
func (r Revision) FlagKeys() [6]string {
	if r == RevisionLegacy {
		return legacyFlagKeys
	}
	return currentFlagKeys
}
