// Package output provides formatted output for playbook execution.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Colors for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// Stats holds execution statistics for output.
type Stats interface {
	GetOK() int
	GetChanged() int
	GetFailed() int
	GetSkipped() int
	GetDuration() time.Duration
}

// Output handles formatted output.
type Output struct {
	w        io.Writer
	useColor bool
	debug    bool
}

// New creates a new output handler.
func New(w io.Writer) *Output {
	return &Output{
		w:        w,
		useColor: true,
	}
}

// SetColor enables or disables color output.
func (o *Output) SetColor(enabled bool) {
	o.useColor = enabled
}

// SetDebug enables or disables debug output.
func (o *Output) SetDebug(enabled bool) {
	o.debug = enabled
}

// color returns the string wrapped in color codes if enabled.
func (o *Output) color(c, s string) string {
	if !o.useColor {
		return s
	}
	return c + s + colorReset
}

// PlaybookStart prints the playbook start banner.
func (o *Output) PlaybookStart(path string) {
	o.printf("\n%s %s\n", o.color(colorBold, "PLAYBOOK"), path)
	if o.debug {
		o.printf("%s\n", strings.Repeat("-", 60))
	}
}

// PlaybookEnd prints the playbook summary.
func (o *Output) PlaybookEnd(stats Stats) {
	o.printf("\n%s ", o.color(colorBold, "RECAP"))

	ok := o.color(colorGreen, fmt.Sprintf("ok=%d", stats.GetOK()))
	changed := o.color(colorYellow, fmt.Sprintf("changed=%d", stats.GetChanged()))
	failed := o.color(colorRed, fmt.Sprintf("failed=%d", stats.GetFailed()))
	skipped := o.color(colorCyan, fmt.Sprintf("skipped=%d", stats.GetSkipped()))

	o.printf("%s %s %s %s", ok, changed, failed, skipped)
	o.printf(" %s\n", o.color(colorGray, fmt.Sprintf("(%.2fs)", stats.GetDuration().Seconds())))
}

// PlayStart prints the play start banner.
func (o *Output) PlayStart(name string, hosts []string) {
	if name == "" {
		name = strings.Join(hosts, ", ")
	}
	o.printf("\n%s %s\n", o.color(colorBold, "PLAY"), name)
}

// DeviceStart prints the device banner within a play.
func (o *Output) DeviceStart(host, mode string) {
	o.printf("\n%s %s %s\n", o.color(colorBold, "DEVICE"), host, o.color(colorGray, fmt.Sprintf("(%s)", mode)))
}

// TaskResult prints the task result in a single line.
func (o *Output) TaskResult(name, status string, message string) {
	var indicator string
	var statusColor string

	switch {
	case strings.HasPrefix(status, "ok"):
		indicator = "✓"
		statusColor = colorGreen
	case strings.HasPrefix(status, "changed"):
		indicator = "✓"
		statusColor = colorYellow
	case strings.HasPrefix(status, "skipped"):
		indicator = "○"
		statusColor = colorCyan
	case strings.HasPrefix(status, "failed"):
		indicator = "✗"
		statusColor = colorRed
	default:
		indicator = "?"
		statusColor = colorGray
	}

	o.printf("  %s %s\n", o.color(statusColor, indicator), name)

	if o.debug && message != "" {
		o.printf("    %s %s\n", o.color(colorGray, "→"), message)
	}
}

// TaskData prints module result data in debug mode.
func (o *Output) TaskData(data map[string]any) {
	if !o.debug {
		return
	}
	for k, v := range data {
		s, ok := v.(string)
		if !ok || s == "" {
			continue
		}
		lines := strings.Split(strings.TrimSpace(s), "\n")
		if len(lines) == 1 {
			o.printf("      %s %s\n", o.color(colorGray, k+":"), lines[0])
			continue
		}
		o.printf("      %s\n", o.color(colorGray, k+":"))
		for _, line := range lines {
			o.printf("        %s\n", line)
		}
	}
}

// Info prints an informational message.
func (o *Output) Info(format string, args ...any) {
	o.printf("%s %s\n", o.color(colorBlue, "INFO"), fmt.Sprintf(format, args...))
}

// Warn prints a warning message.
func (o *Output) Warn(format string, args ...any) {
	o.printf("%s %s\n", o.color(colorYellow, "WARN"), fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (o *Output) Error(format string, args ...any) {
	o.printf("%s %s\n", o.color(colorRed, "ERROR"), fmt.Sprintf(format, args...))
}

func (o *Output) printf(format string, args ...any) {
	fmt.Fprintf(o.w, format, args...)
}
