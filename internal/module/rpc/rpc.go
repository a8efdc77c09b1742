// Package rpc provides a module for executing a raw Junos RPC by name.
package rpc

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/nlarkin/junoctl/internal/device"
	"github.com/nlarkin/junoctl/internal/module"
)

func init() {
	module.Register(&Module{})
}

// Module executes a named RPC on the target device. Only transports
// with native RPC support (netconf) can serve it.
type Module struct{}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "rpc"
}

// NeedsSession reports that the module requires an open session.
func (m *Module) NeedsSession() bool {
	return true
}

// Run executes the rpc module.
//
// Parameters:
//   - rpc (string, required): RPC name, e.g. "get-software-information".
//     Underscores are accepted and normalized to hyphens.
//   - dest (string): Write the serialized reply to this path.
func (m *Module) Run(ctx context.Context, target *module.Target, params map[string]any) (*module.Result, error) {
	name, err := module.RequireString(params, "rpc")
	if err != nil {
		return nil, err
	}
	name = strings.ReplaceAll(name, "_", "-")
	dest := module.GetString(params, "dest", "")

	rpcRunner, ok := target.Session.(device.RPCRunner)
	if !ok {
		return nil, fmt.Errorf("rpc module requires netconf mode, %s does not support raw rpcs", target.Config.Mode)
	}

	result, err := rpcRunner.RunRPC(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to execute rpc: %w", err)
	}

	data := map[string]any{
		"rpc":    name,
		"output": result.Output,
	}

	if dest == "" {
		return module.UnchangedWithData("rpc executed", data), nil
	}

	if err := afero.WriteFile(target.Fs, dest, []byte(result.Output), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", dest, err)
	}
	data["dest"] = dest

	return &module.Result{
		Changed: true,
		Message: fmt.Sprintf("rpc reply written to %s", dest),
		Data:    data,
	}, nil
}

// Ensure Module implements the module.Module interface.
var _ module.Module = (*Module)(nil)
