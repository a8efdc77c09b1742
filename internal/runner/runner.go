// Package runner executes a single command against a device and
// optionally persists the output.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/nlarkin/junoctl/internal/device"
	"github.com/nlarkin/junoctl/internal/logging"
)

// Kind names the stage a run failed in, so callers can branch without
// inspecting error types.
type Kind int

const (
	// KindDependency means the client version gate failed; no network
	// activity has happened.
	KindDependency Kind = iota + 1

	// KindConnection means the session could not be established.
	KindConnection

	// KindExecution means the command RPC failed.
	KindExecution

	// KindWrite means the destination file could not be written.
	KindWrite

	// KindUnexpected covers everything else raised mid-run.
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindDependency:
		return "dependency check failed"
	case KindConnection:
		return "connection failed"
	case KindExecution:
		return "command execution failed"
	case KindWrite:
		return "failed to write output"
	case KindUnexpected:
		return "unexpected failure"
	default:
		return "unknown failure"
	}
}

// Error is a run failure tagged with the stage it occurred in.
type Error struct {
	Kind Kind
	Host string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Host, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Request describes the single command to run.
type Request struct {
	// Command is passed verbatim to the device.
	Command string

	// Format selects text or xml output.
	Format device.Format

	// Dest, when set, is a local path the output is written to,
	// replacing any existing file. Empty means return-only.
	Dest string
}

// Validate checks the request and fills in the default format.
func (r *Request) Validate() error {
	if r.Command == "" {
		return fmt.Errorf("command is required")
	}
	if r.Format == "" {
		r.Format = device.FormatText
	}
	return nil
}

// Runner runs one command per invocation: open a session, execute,
// optionally write the output, close. No retries, no session reuse.
type Runner struct {
	// Dialer opens device sessions. A test fake can be substituted.
	Dialer device.Dialer

	// Fs receives destination writes.
	Fs afero.Fs

	// Log records connection attempts and command execution.
	Log *slog.Logger
}

// New creates a runner using the real filesystem and a discard logger.
func New(dialer device.Dialer) *Runner {
	return &Runner{
		Dialer: dialer,
		Fs:     afero.NewOsFs(),
		Log:    logging.Discard(),
	}
}

// Run executes req against the device described by cfg. The session is
// closed exactly once on every path after a successful dial, before
// the result or failure is reported.
func (r *Runner) Run(ctx context.Context, cfg device.Config, req Request) (*device.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	log := logging.ForHost(r.Log, cfg.Host)

	if err := device.CheckClientVersion(r.Dialer, cfg.Mode); err != nil {
		return nil, &Error{Kind: KindDependency, Host: cfg.Host, Err: err}
	}

	log.Info("connecting", "mode", string(cfg.Mode), "port", cfg.Port, "user", cfg.User)
	sess, err := r.Dialer.Dial(ctx, cfg)
	if err != nil {
		log.Error("connection failed", "error", err)
		return nil, &Error{Kind: KindConnection, Host: cfg.Host, Err: err}
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Error("failed to close session", "error", cerr)
		}
	}()

	return r.execute(ctx, sess, cfg, req, log)
}

// execute covers the connected part of the run. Panics from the client
// are caught here so the deferred close in Run still happens before
// the failure surfaces.
func (r *Runner) execute(ctx context.Context, sess device.Session, cfg device.Config, req Request, log *slog.Logger) (res *device.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("uncaught failure, please report", "panic", p)
			res = nil
			err = &Error{Kind: KindUnexpected, Host: cfg.Host, Err: fmt.Errorf("uncaught failure: %v", p)}
		}
	}()

	if cfg.Timeout > 0 {
		sess.SetTimeout(time.Duration(cfg.Timeout) * time.Second)
	}

	log.Info("executing command", "command", req.Command, "format", string(req.Format))
	result, err := sess.Execute(ctx, req.Command, req.Format)
	if err != nil {
		log.Error("command execution failed", "error", err)
		return nil, &Error{Kind: KindExecution, Host: cfg.Host, Err: err}
	}

	if req.Dest != "" {
		if werr := afero.WriteFile(r.Fs, req.Dest, []byte(result.Output), 0o644); werr != nil {
			log.Error("failed to write output", "dest", req.Dest, "error", werr)
			return nil, &Error{Kind: KindWrite, Host: cfg.Host, Err: werr}
		}
		log.Info("wrote output", "dest", req.Dest, "bytes", len(result.Output))
	}

	return result, nil
}
