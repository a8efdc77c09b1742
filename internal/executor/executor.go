// Package executor runs playbooks against target devices.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/nlarkin/junoctl/internal/device"
	"github.com/nlarkin/junoctl/internal/logging"
	"github.com/nlarkin/junoctl/internal/module"
	"github.com/nlarkin/junoctl/internal/output"
	"github.com/nlarkin/junoctl/internal/playbook"
)

// Executor runs playbooks.
type Executor struct {
	// Output handles formatted output.
	Output *output.Output

	// Dialer opens device sessions.
	Dialer device.Dialer

	// Fs receives destination writes from modules.
	Fs afero.Fs

	// Log records connection attempts and task execution.
	Log *slog.Logger

	// Debug enables detailed output.
	Debug bool
}

// New creates a new executor.
func New(dialer device.Dialer) *Executor {
	return &Executor{
		Output: output.New(os.Stdout),
		Dialer: dialer,
		Fs:     afero.NewOsFs(),
		Log:    logging.Discard(),
	}
}

// RunResult holds the result of a playbook run.
type RunResult struct {
	// Success is true if all plays completed successfully.
	Success bool

	// Stats holds execution statistics.
	Stats *Stats
}

// Stats holds execution statistics.
type Stats struct {
	Plays     int
	Tasks     int
	OK        int
	Changed   int
	Failed    int
	Skipped   int
	StartTime time.Time
	EndTime   time.Time
}

// Duration returns the total execution time.
func (s *Stats) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// GetOK returns the OK count (implements output.Stats).
func (s *Stats) GetOK() int { return s.OK }

// GetChanged returns the Changed count (implements output.Stats).
func (s *Stats) GetChanged() int { return s.Changed }

// GetFailed returns the Failed count (implements output.Stats).
func (s *Stats) GetFailed() int { return s.Failed }

// GetSkipped returns the Skipped count (implements output.Stats).
func (s *Stats) GetSkipped() int { return s.Skipped }

// GetDuration returns the duration (implements output.Stats).
func (s *Stats) GetDuration() time.Duration { return s.Duration() }

// Run executes a playbook.
func (e *Executor) Run(ctx context.Context, pb *playbook.Playbook) (*RunResult, error) {
	stats := &Stats{
		StartTime: time.Now(),
		Plays:     len(pb.Plays),
	}

	result := &RunResult{
		Success: true,
		Stats:   stats,
	}

	e.Output.PlaybookStart(pb.Path)

	for _, play := range pb.Plays {
		if err := e.runPlay(ctx, play, stats); err != nil {
			result.Success = false
			e.Output.Error("Play failed: %v", err)
			break
		}
	}

	stats.EndTime = time.Now()
	e.Output.PlaybookEnd(stats)

	return result, nil
}

// runPlay executes a single play. The client version gate runs once
// per play, before any device is dialed.
func (e *Executor) runPlay(ctx context.Context, play *playbook.Play, stats *Stats) error {
	e.Output.PlayStart(play.Name, play.Hosts)

	mode, err := device.ParseMode(play.Mode)
	if err != nil {
		return err
	}
	if err := device.CheckClientVersion(e.Dialer, mode); err != nil {
		return err
	}

	for _, task := range play.Tasks {
		if err := playbook.ResolveModule(task); err != nil {
			return err
		}
	}

	for _, host := range play.Hosts {
		if err := e.runHost(ctx, play, mode, host, stats); err != nil {
			return err
		}
	}
	return nil
}

// runHost executes a play's tasks against one device. The session is
// dialed at most once per host and closed before the host result is
// reported.
func (e *Executor) runHost(ctx context.Context, play *playbook.Play, mode device.Mode, host string, stats *Stats) error {
	cfg := device.Config{
		Host:     host,
		User:     play.User,
		Password: play.Passwd,
		Port:     play.Port,
		KeyFile:  play.KeyFile,
		Mode:     mode,
		Timeout:  play.Timeout,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.Output.DeviceStart(host, string(mode))
	log := logging.ForHost(e.Log, host)

	needsSession := false
	for _, task := range play.Tasks {
		if module.Get(task.Module).NeedsSession() {
			needsSession = true
			break
		}
	}

	var sess device.Session
	if needsSession {
		log.Info("connecting", "mode", string(mode), "port", cfg.Port, "user", cfg.User)
		var err error
		sess, err = e.Dialer.Dial(ctx, cfg)
		if err != nil {
			log.Error("connection failed", "error", err)
			return fmt.Errorf("failed to connect to %s: %w", host, err)
		}
		defer func() {
			if cerr := sess.Close(); cerr != nil {
				log.Error("failed to close session", "error", cerr)
			}
		}()
	}

	target := &module.Target{
		Config:  cfg,
		Session: sess,
		Fs:      e.Fs,
		Log:     log,
	}

	for _, task := range play.Tasks {
		if err := ctx.Err(); err != nil {
			return err
		}

		stats.Tasks++
		log.Info("running task", "task", task.String(), "module", task.Module)

		res, err := module.Get(task.Module).Run(ctx, target, task.Params)
		if err != nil {
			log.Error("task failed", "task", task.String(), "error", err)
			if task.IgnoreErrors {
				stats.Skipped++
				e.Output.TaskResult(task.String(), "skipped", err.Error())
				continue
			}
			stats.Failed++
			e.Output.TaskResult(task.String(), "failed", err.Error())
			return fmt.Errorf("task %q on %s: %w", task.String(), host, err)
		}

		if res.Changed {
			stats.Changed++
			e.Output.TaskResult(task.String(), "changed", res.Message)
		} else {
			stats.OK++
			e.Output.TaskResult(task.String(), "ok", res.Message)
		}
		e.Output.TaskData(res.Data)
	}

	return nil
}
