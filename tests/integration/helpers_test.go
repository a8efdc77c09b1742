package integration

import (
	"bufio"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"
)

const delim = "]]>]]>"

const serverHello = `<hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">` +
	`<capabilities><capability>urn:ietf:params:xml:ns:netconf:base:1.0</capability></capabilities>` +
	`<session-id>1</session-id></hello>` + delim

var commandRe = regexp.MustCompile(`<command format="(\w+)">(.*)</command>`)

// commandHandler renders the rpc-reply document for one command.
type commandHandler func(command, format string) string

// fakeDevice is an in-process SSH server speaking a minimal NETCONF
// subsystem, standing in for a Junos device.
type fakeDevice struct {
	listener net.Listener
	handler  commandHandler
}

// startFakeDevice listens on a random loopback port. Login is
// admin/secret. The device is shut down when the test ends.
func startFakeDevice(t *testing.T, handler commandHandler) *fakeDevice {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate host key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("failed to build host signer: %v", err)
	}

	config := &ssh.ServerConfig{
		PasswordCallback: func(conn ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if conn.User() == "admin" && string(password) == "secret" {
				return nil, nil
			}
			return nil, fmt.Errorf("access denied for %s", conn.User())
		},
	}
	config.AddHostKey(signer)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	d := &fakeDevice{listener: listener, handler: handler}
	go d.acceptLoop(config)
	t.Cleanup(func() { listener.Close() })

	return d
}

// Addr returns the host and port the fake device listens on.
func (d *fakeDevice) Addr() (string, int) {
	addr := d.listener.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func (d *fakeDevice) acceptLoop(config *ssh.ServerConfig) {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			return
		}
		go d.handleConn(conn, config)
	}
}

func (d *fakeDevice) handleConn(conn net.Conn, config *ssh.ServerConfig) {
	defer conn.Close()

	sshConn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		return
	}
	defer sshConn.Close()
	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			return
		}
		go d.handleSession(channel, requests)
	}
}

func (d *fakeDevice) handleSession(channel ssh.Channel, requests <-chan *ssh.Request) {
	for req := range requests {
		if req.Type == "subsystem" && parseSSHString(req.Payload) == "netconf" {
			req.Reply(true, nil)
			go d.serveNetconf(channel)
			continue
		}
		req.Reply(false, nil)
	}
}

// serveNetconf speaks framed NETCONF on the channel until the client
// closes the session.
func (d *fakeDevice) serveNetconf(channel ssh.Channel) {
	defer channel.Close()

	if _, err := io.WriteString(channel, serverHello); err != nil {
		return
	}

	r := bufio.NewReader(channel)
	for {
		msg, err := readFramed(r)
		if err != nil {
			return
		}
		if strings.Contains(msg, "<close-session") {
			io.WriteString(channel, "<rpc-reply><ok/></rpc-reply>"+delim)
			return
		}
		if strings.Contains(msg, "<hello") {
			continue
		}

		m := commandRe.FindStringSubmatch(msg)
		if m == nil {
			io.WriteString(channel, "<rpc-reply><rpc-error>"+
				"<error-severity>error</error-severity>"+
				"<error-message>unsupported rpc</error-message>"+
				"</rpc-error></rpc-reply>"+delim)
			continue
		}
		io.WriteString(channel, d.handler(m[2], m[1])+delim)
	}
}

func readFramed(r *bufio.Reader) (string, error) {
	var b strings.Builder
	for {
		chunk, err := r.ReadString('>')
		b.WriteString(chunk)
		if cur := b.String(); strings.HasSuffix(cur, delim) {
			return strings.TrimSuffix(cur, delim), nil
		}
		if err != nil {
			return "", err
		}
	}
}

// parseSSHString decodes a length-prefixed SSH wire string.
func parseSSHString(payload []byte) string {
	if len(payload) < 4 {
		return ""
	}
	n := int(payload[0])<<24 | int(payload[1])<<16 | int(payload[2])<<8 | int(payload[3])
	if n < 0 || len(payload) < 4+n {
		return ""
	}
	return string(payload[4 : 4+n])
}
