// Package netconf implements a device session over the NETCONF SSH subsystem.
package netconf

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/nlarkin/junoctl/internal/device"
)

// delim terminates every NETCONF 1.0 message on the wire.
const delim = "]]>]]>"

// DefaultTimeout bounds the dial and each RPC unless the config
// overrides it.
const DefaultTimeout = 30 * time.Second

const helloMsg = `<?xml version="1.0" encoding="UTF-8"?>` +
	`<hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">` +
	`<capabilities><capability>urn:ietf:params:xml:ns:netconf:base:1.0</capability></capabilities>` +
	`</hello>` + delim

// Session is a NETCONF session with a Junos device.
type Session struct {
	host    string
	client  *ssh.Client
	sess    *ssh.Session
	stdin   io.WriteCloser
	timeout time.Duration
	msgID   int
	closed  bool

	// msgs carries framed messages from the read loop.
	msgs chan string
	errs chan error
}

// Dial opens a NETCONF session using the supplied config. The returned
// session must be closed by the caller.
func Dial(ctx context.Context, cfg device.Config) (*Session, error) {
	auth, err := authMethods(cfg)
	if err != nil {
		return nil, err
	}

	timeout := DefaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dialer := &net.Dialer{Timeout: timeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(rawConn, addr, sshCfg)
	if err != nil {
		rawConn.Close()
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}
	client := ssh.NewClient(clientConn, chans, reqs)

	sess, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create ssh session for %s: %w", cfg.Host, err)
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("failed to get stdin pipe for %s: %w", cfg.Host, err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("failed to get stdout pipe for %s: %w", cfg.Host, err)
	}

	if err := sess.RequestSubsystem("netconf"); err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("netconf subsystem unavailable on %s: %w", cfg.Host, err)
	}

	s := &Session{
		host:    cfg.Host,
		client:  client,
		sess:    sess,
		stdin:   stdin,
		timeout: timeout,
		msgs:    make(chan string, 1),
		errs:    make(chan error, 1),
	}
	go s.readLoop(bufio.NewReader(stdout))

	// Exchange hellos before the session is usable.
	if _, err := io.WriteString(stdin, helloMsg); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to send hello to %s: %w", cfg.Host, err)
	}
	if _, err := s.recv(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("no hello from %s: %w", cfg.Host, err)
	}

	return s, nil
}

// authMethods builds the SSH auth chain from the config. A key file
// takes precedence; a password is tried after it.
func authMethods(cfg device.Config) ([]ssh.AuthMethod, error) {
	var auth []ssh.AuthMethod
	if cfg.KeyFile != "" {
		pem, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key %s: %w", cfg.KeyFile, err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key %s: %w", cfg.KeyFile, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}
	if len(auth) == 0 {
		return nil, fmt.Errorf("no credentials: set a password or a private key file")
	}
	return auth, nil
}

// readLoop frames messages off the wire and hands them to recv.
func (s *Session) readLoop(r *bufio.Reader) {
	for {
		msg, err := readMessage(r)
		if err != nil {
			s.errs <- err
			return
		}
		s.msgs <- msg
	}
}

// readMessage reads one ]]>]]>-framed message.
func readMessage(r *bufio.Reader) (string, error) {
	var b strings.Builder
	for {
		chunk, err := r.ReadString('>')
		b.WriteString(chunk)
		if cur := b.String(); strings.HasSuffix(cur, delim) {
			return strings.TrimSpace(strings.TrimSuffix(cur, delim)), nil
		}
		if err != nil {
			return "", err
		}
	}
}

// recv waits for the next framed message, bounded by the session
// timeout and the context.
func (s *Session) recv(ctx context.Context) (string, error) {
	select {
	case msg := <-s.msgs:
		return msg, nil
	case err := <-s.errs:
		return "", err
	case <-time.After(s.timeout):
		return "", fmt.Errorf("timed out after %s waiting for %s", s.timeout, s.host)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Execute runs a single CLI command over NETCONF and returns the result
// in the requested format.
func (s *Session) Execute(ctx context.Context, command string, format device.Format) (*device.Result, error) {
	s.msgID++
	rpc := buildRPC(s.msgID, command, format)
	if _, err := io.WriteString(s.stdin, rpc); err != nil {
		return nil, fmt.Errorf("failed to send command to %s: %w", s.host, err)
	}

	raw, err := s.recv(ctx)
	if err != nil {
		return nil, fmt.Errorf("error executing %q on %s: %w", command, s.host, err)
	}

	reply, err := parseReply(raw)
	if err != nil {
		return nil, fmt.Errorf("bad reply from %s: %w", s.host, err)
	}
	if msg := reply.errorMessage(); msg != "" {
		return nil, fmt.Errorf("%s rejected %q: %s", s.host, command, msg)
	}

	out := raw
	if format == device.FormatText {
		out = reply.Output
	}
	return &device.Result{Format: format, Output: out}, nil
}

// buildRPC renders the command RPC for the wire.
func buildRPC(id int, command string, format device.Format) string {
	var esc bytes.Buffer
	xml.EscapeText(&esc, []byte(command))
	return fmt.Sprintf(`<rpc message-id="%d"><command format="%s">%s</command></rpc>%s`,
		id, format, esc.String(), delim)
}

// rpcReply is the subset of a NETCONF reply the client cares about.
type rpcReply struct {
	XMLName xml.Name   `xml:"rpc-reply"`
	Errors  []rpcError `xml:"rpc-error"`
	Output  string     `xml:"output"`
}

type rpcError struct {
	Severity string `xml:"error-severity"`
	Message  string `xml:"error-message"`
}

// errorMessage returns the first error-severity problem in the reply,
// or "" when the reply is clean. Junos reports warnings in the same
// list; those do not fail the command.
func (r *rpcReply) errorMessage() string {
	for _, e := range r.Errors {
		if strings.TrimSpace(e.Severity) == "warning" {
			continue
		}
		if msg := strings.TrimSpace(e.Message); msg != "" {
			return msg
		}
		return "unspecified rpc-error"
	}
	return ""
}

func parseReply(raw string) (*rpcReply, error) {
	var reply rpcReply
	if err := xml.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// RunRPC executes a raw RPC by name, e.g. "get-software-information".
// The reply is returned as the serialized rpc-reply document.
func (s *Session) RunRPC(ctx context.Context, name string) (*device.Result, error) {
	if !validRPCName(name) {
		return nil, fmt.Errorf("invalid rpc name %q", name)
	}

	s.msgID++
	rpc := fmt.Sprintf(`<rpc message-id="%d"><%s/></rpc>%s`, s.msgID, name, delim)
	if _, err := io.WriteString(s.stdin, rpc); err != nil {
		return nil, fmt.Errorf("failed to send rpc to %s: %w", s.host, err)
	}

	raw, err := s.recv(ctx)
	if err != nil {
		return nil, fmt.Errorf("error executing rpc %s on %s: %w", name, s.host, err)
	}

	reply, err := parseReply(raw)
	if err != nil {
		return nil, fmt.Errorf("bad reply from %s: %w", s.host, err)
	}
	if msg := reply.errorMessage(); msg != "" {
		return nil, fmt.Errorf("%s rejected rpc %s: %s", s.host, name, msg)
	}

	return &device.Result{Format: device.FormatXML, Output: raw}, nil
}

// validRPCName accepts lowercase hyphenated RPC element names.
func validRPCName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9' && i > 0:
		case r == '-' && i > 0:
		default:
			return false
		}
	}
	return true
}

// SetTimeout overrides the RPC timeout for subsequent calls.
func (s *Session) SetTimeout(d time.Duration) {
	s.timeout = d
}

// Close tears the session down. Safe to call once per session.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	// Best effort: ask the device to close cleanly before cutting the
	// transport.
	s.msgID++
	fmt.Fprintf(s.stdin, `<rpc message-id="%d"><close-session/></rpc>%s`, s.msgID, delim)

	s.stdin.Close()
	s.sess.Close()
	return s.client.Close()
}

var (
	_ device.Session   = (*Session)(nil)
	_ device.RPCRunner = (*Session)(nil)
)
