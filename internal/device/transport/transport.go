// Package transport provides the default device dialer, selecting a
// client implementation from the configured connection mode.
package transport

import (
	"context"
	"fmt"

	"github.com/nlarkin/junoctl/internal/device"
	"github.com/nlarkin/junoctl/internal/device/netconf"
	"github.com/nlarkin/junoctl/internal/device/telnetcli"
)

// ClientVersion is the version of the bundled device clients, checked
// against device.MinClientVersion before any dial.
const ClientVersion = "2.2.1"

// Dialer is the production device.Dialer.
type Dialer struct{}

// NewDialer returns the default dialer.
func NewDialer() *Dialer {
	return &Dialer{}
}

// Version reports the bundled client version.
func (d *Dialer) Version() string {
	return ClientVersion
}

// Dial opens a session using the transport named by cfg.Mode.
func (d *Dialer) Dial(ctx context.Context, cfg device.Config) (device.Session, error) {
	switch cfg.Mode {
	case device.ModeTelnet:
		return telnetcli.Dial(ctx, cfg)
	case device.ModeSerial:
		// Direct serial consoles are not wired up; a console server
		// reachable over telnet covers the same devices.
		return nil, fmt.Errorf("serial mode is not supported by this client, use telnet to a console server")
	default:
		return netconf.Dial(ctx, cfg)
	}
}

var _ device.Dialer = (*Dialer)(nil)
