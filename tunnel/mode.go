package tunnel

import "fmt"

// Mode selects whether the module manages the tunnel connector itself.
// It is a closed enumeration: unknown values are a configuration error,
// never silently coerced to ModeOff.
type Mode string

const (
	// ModeOff disables the tunnel feature entirely.
	ModeOff Mode = "off"

	// ModeManaged spawns and supervises the connector process.
	ModeManaged Mode = "managed"

	// ModeAccessOnly verifies Access tokens but expects the operator to
	// run the connector externally.
	ModeAccessOnly Mode = "access-only"
)

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeOff, ModeManaged, ModeAccessOnly:
		return Mode(s), nil
	}
	return "", fmt.Errorf("tunnel: unknown exposure mode %q", s)
}
