package device

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Minimum client versions enforced before any connection attempt.
// Console transports (telnet, serial) need the newer prompt engine.
const (
	MinClientVersion        = "1.7.0"
	MinClientVersionConsole = "2.1.0"
)

// CheckClientVersion verifies that the dialer's reported version is new
// enough for the requested mode. It must be called before Dial; a
// failure here means no network activity has happened yet.
func CheckClientVersion(d Dialer, mode Mode) error {
	min := MinClientVersion
	if mode != ModeNetconf {
		min = MinClientVersionConsole
	}

	have := strings.TrimSpace(d.Version())
	if have == "" {
		return fmt.Errorf("device client reported no version, %s or later is required", min)
	}
	if !semver.IsValid(canonical(have)) {
		return fmt.Errorf("device client reported unparseable version %q, %s or later is required", have, min)
	}
	if semver.Compare(canonical(have), canonical(min)) < 0 {
		if mode != ModeNetconf {
			return fmt.Errorf("%s mode requires device client %s or later, found %s", mode, min, have)
		}
		return fmt.Errorf("device client %s or later is required, found %s", min, have)
	}
	return nil
}

// canonical prefixes the "v" that x/mod/semver expects.
func canonical(v string) string {
	return "v" + strings.TrimPrefix(v, "v")
}
