package netconf

import (
	"bufio"
	"strings"
	"testing"

	"github.com/nlarkin/junoctl/internal/device"
)

func TestReadMessage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single message", "<hello/>]]>]]>", "<hello/>"},
		{"leading whitespace trimmed", "\n<rpc-reply/>\n]]>]]>", "<rpc-reply/>"},
		{"delimiter split across reads", "<a>text]]>]]>", "<a>text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readMessage(bufio.NewReader(strings.NewReader(tt.in)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestReadMessageSequence(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("<one/>]]>]]><two/>]]>]]>"))

	first, err := readMessage(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != "<one/>" {
		t.Errorf("expected <one/>, got %q", first)
	}

	second, err := readMessage(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != "<two/>" {
		t.Errorf("expected <two/>, got %q", second)
	}
}

func TestReadMessageTruncated(t *testing.T) {
	if _, err := readMessage(bufio.NewReader(strings.NewReader("<rpc-reply>"))); err == nil {
		t.Error("expected error for a stream that ends mid-message")
	}
}

func TestBuildRPC(t *testing.T) {
	got := buildRPC(3, "show version", device.FormatText)
	want := `<rpc message-id="3"><command format="text">show version</command></rpc>]]>]]>`
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestBuildRPCEscapesCommand(t *testing.T) {
	got := buildRPC(1, `show configuration | match "<system>"`, device.FormatXML)
	if strings.Contains(got, `"<system>"`) {
		t.Errorf("command not escaped: %q", got)
	}
	if !strings.Contains(got, "&lt;system&gt;") {
		t.Errorf("expected escaped angle brackets, got %q", got)
	}
	if !strings.Contains(got, `format="xml"`) {
		t.Errorf("expected xml format attribute, got %q", got)
	}
}

func TestParseReplyOutput(t *testing.T) {
	raw := `<rpc-reply message-id="1"><output>Hostname: r1
Model: mx480
</output></rpc-reply>`

	reply, err := parseReply(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.errorMessage() != "" {
		t.Errorf("unexpected error message %q", reply.errorMessage())
	}
	want := "Hostname: r1\nModel: mx480\n"
	if reply.Output != want {
		t.Errorf("expected %q, got %q", want, reply.Output)
	}
}

func TestParseReplyError(t *testing.T) {
	raw := `<rpc-reply message-id="2"><rpc-error>` +
		`<error-severity>error</error-severity>` +
		`<error-message>syntax error</error-message>` +
		`</rpc-error></rpc-reply>`

	reply, err := parseReply(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := reply.errorMessage(); got != "syntax error" {
		t.Errorf("expected 'syntax error', got %q", got)
	}
}

func TestParseReplyWarningIgnored(t *testing.T) {
	raw := `<rpc-reply><rpc-error>` +
		`<error-severity>warning</error-severity>` +
		`<error-message>statement ignored</error-message>` +
		`</rpc-error><output>ok</output></rpc-reply>`

	reply, err := parseReply(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := reply.errorMessage(); got != "" {
		t.Errorf("warnings must not fail the command, got %q", got)
	}
}

func TestParseReplyMalformed(t *testing.T) {
	if _, err := parseReply("<rpc-reply><output>"); err == nil {
		t.Error("expected error for malformed xml")
	}
}

func TestValidRPCName(t *testing.T) {
	valid := []string{"get-software-information", "get-chassis-inventory", "commit"}
	for _, name := range valid {
		if !validRPCName(name) {
			t.Errorf("expected %q to be valid", name)
		}
	}

	invalid := []string{"", "-leading", "Upper-Case", "has space", "inject/>", "1numeric"}
	for _, name := range invalid {
		if validRPCName(name) {
			t.Errorf("expected %q to be invalid", name)
		}
	}
}

func TestAuthMethods(t *testing.T) {
	t.Run("no credentials", func(t *testing.T) {
		_, err := authMethods(device.Config{Host: "r1", User: "admin"})
		if err == nil {
			t.Error("expected error without credentials")
		}
	})

	t.Run("password only", func(t *testing.T) {
		auth, err := authMethods(device.Config{Host: "r1", User: "admin", Password: "secret"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(auth) != 1 {
			t.Errorf("expected 1 auth method, got %d", len(auth))
		}
	})

	t.Run("missing key file", func(t *testing.T) {
		_, err := authMethods(device.Config{Host: "r1", User: "admin", KeyFile: "/nonexistent/key"})
		if err == nil {
			t.Error("expected error for missing key file")
		}
	})
}
