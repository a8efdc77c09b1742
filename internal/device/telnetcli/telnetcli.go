// Package telnetcli implements a device session over the Junos CLI via telnet.
// It also covers console servers that front a device's serial port.
package telnetcli

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/ziutek/telnet"

	"github.com/nlarkin/junoctl/internal/device"
)

const (
	// DefaultTimeout bounds the dial and each prompt wait unless the
	// config overrides it.
	DefaultTimeout = 30 * time.Second

	promptLogin    = "login:"
	promptPassword = "Password:"
	// Junos operational mode ends every response with "user@host> ".
	promptOper = "> "

	// screenLengthCmd disables paging so responses arrive in one read.
	screenLengthCmd = "set cli screen-length 0"
)

// Session is an interactive CLI session with a Junos device over telnet.
type Session struct {
	host    string
	conn    *telnet.Conn
	timeout time.Duration
	closed  bool
}

// Dial connects and negotiates the login prompts. The returned session
// is in operational mode with paging disabled.
func Dial(ctx context.Context, cfg device.Config) (*Session, error) {
	if cfg.Password == "" {
		return nil, fmt.Errorf("telnet mode requires a password for %s", cfg.Host)
	}

	timeout := DefaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	conn, err := telnet.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s via telnet: %w", addr, err)
	}
	conn.SetUnixWriteMode(true)

	s := &Session{host: cfg.Host, conn: conn, timeout: timeout}

	steps := []struct {
		prompt string
		input  string
	}{
		{promptLogin, cfg.User},
		{promptPassword, cfg.Password},
		{promptOper, screenLengthCmd},
		{promptOper, ""},
	}
	for _, step := range steps {
		if _, err := s.readUntil(step.prompt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("login to %s failed waiting for %q: %w", cfg.Host, step.prompt, err)
		}
		if step.input != "" {
			if err := s.send(step.input); err != nil {
				conn.Close()
				return nil, fmt.Errorf("login to %s failed: %w", cfg.Host, err)
			}
		}
	}

	return s, nil
}

// Execute runs a single CLI command and returns the result in the
// requested format. XML output is requested through the CLI's own
// "| display xml" pipe.
func (s *Session) Execute(ctx context.Context, command string, format device.Format) (*device.Result, error) {
	line := command
	if format == device.FormatXML {
		line += " | display xml"
	}

	if err := s.send(line); err != nil {
		return nil, fmt.Errorf("failed to send command to %s: %w", s.host, err)
	}

	raw, err := s.readUntil(promptOper)
	if err != nil {
		return nil, fmt.Errorf("error executing %q on %s: %w", command, s.host, err)
	}

	return &device.Result{Format: format, Output: stripEcho(raw, format)}, nil
}

func (s *Session) send(line string) error {
	s.conn.SetWriteDeadline(time.Now().Add(s.timeout))
	_, err := s.conn.Write([]byte(line + "\n"))
	return err
}

func (s *Session) readUntil(prompt string) (string, error) {
	s.conn.SetReadDeadline(time.Now().Add(s.timeout))
	data, err := s.conn.ReadUntil(prompt)
	if err != nil {
		return string(data), err
	}
	return string(data), nil
}

// stripEcho removes the echoed command line and the trailing prompt
// line from a captured response. For xml format it additionally trims
// everything outside the rpc-reply document, since the CLI prints the
// document between the echo and the next prompt.
func stripEcho(raw string, format device.Format) string {
	if format == device.FormatXML {
		start := strings.Index(raw, "<rpc-reply")
		end := strings.LastIndex(raw, "</rpc-reply>")
		if start >= 0 && end > start {
			return raw[start : end+len("</rpc-reply>")]
		}
	}

	lines := strings.Split(raw, "\n")
	if len(lines) <= 1 {
		return ""
	}
	// First line is the echoed command, last line is the prompt.
	return strings.Join(lines[1:len(lines)-1], "\n") + "\n"
}

// SetTimeout overrides the prompt-wait timeout for subsequent calls.
func (s *Session) SetTimeout(d time.Duration) {
	s.timeout = d
}

// Close logs out and drops the connection. Safe to call once per session.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	// Best effort logout before cutting the transport.
	s.send("exit")
	return s.conn.Close()
}

var _ device.Session = (*Session)(nil)
