package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

// fakeStats implements Stats for output tests.
type fakeStats struct {
	ok, changed, failed, skipped int
	duration                     time.Duration
}

func (s *fakeStats) GetOK() int                 { return s.ok }
func (s *fakeStats) GetChanged() int            { return s.changed }
func (s *fakeStats) GetFailed() int             { return s.failed }
func (s *fakeStats) GetSkipped() int            { return s.skipped }
func (s *fakeStats) GetDuration() time.Duration { return s.duration }

func TestNewOutput(t *testing.T) {
	var buf bytes.Buffer
	o := New(&buf)

	if o == nil {
		t.Fatal("expected non-nil Output")
	}
	if o.w != &buf {
		t.Error("writer not set correctly")
	}
	if !o.useColor {
		t.Error("expected useColor to be true by default")
	}
}

func TestSetColor(t *testing.T) {
	var buf bytes.Buffer
	o := New(&buf)

	o.SetColor(false)
	if o.useColor {
		t.Error("expected useColor to be false")
	}

	o.SetColor(true)
	if !o.useColor {
		t.Error("expected useColor to be true")
	}
}

func TestColorDisabledLeavesPlainText(t *testing.T) {
	var buf bytes.Buffer
	o := New(&buf)
	o.SetColor(false)

	o.PlaybookStart("collect.yaml")
	if strings.Contains(buf.String(), "\033[") {
		t.Errorf("expected no ANSI codes, got %q", buf.String())
	}
}

func TestPlaybookEnd(t *testing.T) {
	var buf bytes.Buffer
	o := New(&buf)
	o.SetColor(false)

	o.PlaybookEnd(&fakeStats{ok: 3, changed: 1, failed: 0, skipped: 2, duration: 1500 * time.Millisecond})

	out := buf.String()
	for _, want := range []string{"RECAP", "ok=3", "changed=1", "failed=0", "skipped=2", "(1.50s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPlayStartFallsBackToHosts(t *testing.T) {
	var buf bytes.Buffer
	o := New(&buf)
	o.SetColor(false)

	o.PlayStart("", []string{"r1", "r2"})
	if !strings.Contains(buf.String(), "r1, r2") {
		t.Errorf("expected host list in banner, got %q", buf.String())
	}
}

func TestTaskResultStatuses(t *testing.T) {
	tests := []struct {
		status    string
		indicator string
	}{
		{"ok", "✓"},
		{"changed", "✓"},
		{"skipped", "○"},
		{"failed", "✗"},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			var buf bytes.Buffer
			o := New(&buf)
			o.SetColor(false)

			o.TaskResult("get version", tt.status, "msg")
			if !strings.Contains(buf.String(), tt.indicator) {
				t.Errorf("expected indicator %q for %s, got %q", tt.indicator, tt.status, buf.String())
			}
		})
	}
}

func TestTaskResultDebugMessage(t *testing.T) {
	var buf bytes.Buffer
	o := New(&buf)
	o.SetColor(false)

	o.TaskResult("get version", "failed", "rpc failed")
	if strings.Contains(buf.String(), "rpc failed") {
		t.Error("message must be hidden without debug")
	}

	buf.Reset()
	o.SetDebug(true)
	o.TaskResult("get version", "failed", "rpc failed")
	if !strings.Contains(buf.String(), "rpc failed") {
		t.Error("message must be shown with debug")
	}
}

func TestTaskDataOnlyInDebug(t *testing.T) {
	data := map[string]any{"output": "Hostname: r1\nModel: mx480"}

	var buf bytes.Buffer
	o := New(&buf)
	o.SetColor(false)

	o.TaskData(data)
	if buf.Len() != 0 {
		t.Errorf("expected no data output without debug, got %q", buf.String())
	}

	o.SetDebug(true)
	o.TaskData(data)
	if !strings.Contains(buf.String(), "Hostname: r1") {
		t.Errorf("expected data output with debug, got %q", buf.String())
	}
}
