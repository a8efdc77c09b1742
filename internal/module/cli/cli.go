// Package cli provides a module for executing a single CLI command.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/nlarkin/junoctl/internal/device"
	"github.com/nlarkin/junoctl/internal/module"
)

func init() {
	module.Register(&Module{})
}

// Module executes one CLI command on the target device.
type Module struct{}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "cli"
}

// NeedsSession reports that the module requires an open session.
func (m *Module) NeedsSession() bool {
	return true
}

// Run executes the cli module.
//
// Parameters:
//   - command (string, required): The CLI command, passed verbatim
//   - format (string): "text" (default) or "xml"
//   - dest (string): Write the output to this path, replacing any
//     existing file. Without dest the output is returned as data only.
func (m *Module) Run(ctx context.Context, target *module.Target, params map[string]any) (*module.Result, error) {
	command, err := module.RequireString(params, "command")
	if err != nil {
		return nil, err
	}

	format, err := device.ParseFormat(module.GetString(params, "format", ""))
	if err != nil {
		return nil, err
	}
	dest := module.GetString(params, "dest", "")

	result, err := target.Session.Execute(ctx, command, format)
	if err != nil {
		return nil, fmt.Errorf("failed to execute command: %w", err)
	}

	data := map[string]any{
		"command": command,
		"format":  string(format),
		"output":  result.Output,
	}

	if dest == "" {
		return module.UnchangedWithData("command executed", data), nil
	}

	if err := afero.WriteFile(target.Fs, dest, []byte(result.Output), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", dest, err)
	}
	data["dest"] = dest

	return &module.Result{
		Changed: true,
		Message: fmt.Sprintf("command output written to %s", dest),
		Data:    data,
	}, nil
}

// Ensure Module implements the module.Module interface.
var _ module.Module = (*Module)(nil)
