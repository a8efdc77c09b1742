// Package device defines the interface for executing commands on Junos devices.
package device

import (
	"context"
	"fmt"
	"os/user"
	"time"
)

// Mode selects the transport used to reach the device.
type Mode string

const (
	// ModeNetconf connects over the NETCONF SSH subsystem (default).
	ModeNetconf Mode = "netconf"

	// ModeTelnet connects to the device CLI (or a console server) over telnet.
	ModeTelnet Mode = "telnet"

	// ModeSerial connects over a serial console.
	ModeSerial Mode = "serial"
)

// ParseMode converts a mode string to a Mode. An empty string selects
// the default NETCONF transport.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", string(ModeNetconf):
		return ModeNetconf, nil
	case string(ModeTelnet):
		return ModeTelnet, nil
	case string(ModeSerial):
		return ModeSerial, nil
	default:
		return "", fmt.Errorf("unknown connection mode %q (want netconf, telnet or serial)", s)
	}
}

// Format selects the representation of a command response.
type Format string

const (
	// FormatText requests the plain CLI output.
	FormatText Format = "text"

	// FormatXML requests the response as a serialized XML document.
	FormatXML Format = "xml"
)

// ParseFormat converts a format string to a Format. An empty string
// selects text output.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", string(FormatText):
		return FormatText, nil
	case string(FormatXML):
		return FormatXML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or xml)", s)
	}
}

// Default ports per transport.
const (
	DefaultPort       = 830 // NETCONF over SSH
	DefaultTelnetPort = 23
)

// Config holds the connection parameters for a single device.
type Config struct {
	// Host is the device hostname or IP address.
	Host string

	// User is the login user. Defaults to the current OS user.
	User string

	// Password is the login password. Optional when KeyFile is set.
	Password string

	// Port is the transport port. Defaults to 830 for NETCONF.
	Port int

	// KeyFile is the path to an SSH private key. Optional.
	KeyFile string

	// Mode is the transport to use. Defaults to ModeNetconf.
	Mode Mode

	// Timeout is the RPC timeout in seconds. Zero keeps the client default.
	Timeout int
}

// Validate checks the config and fills in defaults.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.User == "" {
		u, err := user.Current()
		if err != nil {
			return fmt.Errorf("user not set and current user unknown: %w", err)
		}
		c.User = u.Username
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Mode == "" {
		c.Mode = ModeNetconf
	}
	if c.Port == 0 {
		if c.Mode == ModeTelnet {
			c.Port = DefaultTelnetPort
		} else {
			c.Port = DefaultPort
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout %d", c.Timeout)
	}
	return nil
}

// Result holds the response to a single executed command.
type Result struct {
	// Format is the representation the command was executed with.
	Format Format

	// Output is the raw CLI text in text format, or the serialized
	// rpc-reply document in xml format.
	Output string
}

// Session is a live connection to a device. It executes commands one at
// a time and must be closed by the caller.
type Session interface {
	// Execute runs a single command and returns its result in the
	// requested format. It blocks until the device responds or the
	// session timeout elapses.
	Execute(ctx context.Context, command string, format Format) (*Result, error)

	// SetTimeout overrides the session's RPC timeout.
	SetTimeout(d time.Duration)

	// Close terminates the session.
	Close() error
}

// RPCRunner is implemented by sessions that can execute a raw RPC by
// name, bypassing the CLI. Callers type-assert for it; transports
// without RPC support simply don't implement it.
type RPCRunner interface {
	// RunRPC executes the named RPC and returns the serialized reply.
	RunRPC(ctx context.Context, name string) (*Result, error)
}

// Dialer opens sessions to devices. A real client or a test fake can be
// substituted behind this interface.
type Dialer interface {
	// Dial establishes a session using the supplied config.
	Dial(ctx context.Context, cfg Config) (Session, error)

	// Version reports the client implementation version, used to gate
	// features on a minimum client version.
	Version() string
}
