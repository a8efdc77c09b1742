// Package module defines the interface for device task modules.
package module

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/afero"

	"github.com/nlarkin/junoctl/internal/device"
)

// Target is the device a module runs against.
type Target struct {
	// Config holds the connection parameters.
	Config device.Config

	// Session is the open session to the device. It is nil for
	// modules that run before a connection exists.
	Session device.Session

	// Fs receives any files the module writes.
	Fs afero.Fs

	// Log is tagged with the target host.
	Log *slog.Logger
}

// Result holds the outcome of a module execution.
type Result struct {
	// Changed indicates whether the module touched anything outside
	// the device session, such as a destination file.
	Changed bool

	// Message is a human-readable description of what happened.
	Message string

	// Data holds any additional output data from the module.
	Data map[string]any
}

// Module is the interface that all modules must implement.
type Module interface {
	// Name returns the module's unique identifier.
	Name() string

	// NeedsSession reports whether the module requires an open device
	// session.
	NeedsSession() bool

	// Run executes the module with the given parameters.
	Run(ctx context.Context, target *Target, params map[string]any) (*Result, error)
}

// registry holds all registered modules.
var (
	registry   = make(map[string]Module)
	registryMu sync.RWMutex
)

// Register adds a module to the registry.
// It panics if a module with the same name is already registered.
func Register(m Module) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := m.Name()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("module %q is already registered", name))
	}
	registry[name] = m
}

// Get retrieves a module from the registry by name.
// Returns nil if the module is not found.
func Get(name string) Module {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[name]
}

// List returns the names of all registered modules.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// Helper functions for creating results

// Changed creates a Result indicating a side effect happened.
func Changed(msg string) *Result {
	return &Result{Changed: true, Message: msg}
}

// Unchanged creates a Result with no side effects.
func Unchanged(msg string) *Result {
	return &Result{Changed: false, Message: msg}
}

// UnchangedWithData creates a side-effect-free Result carrying data.
func UnchangedWithData(msg string, data map[string]any) *Result {
	return &Result{Changed: false, Message: msg, Data: data}
}

// Helper functions for parameter extraction

// RequireString fetches a mandatory string parameter.
func RequireString(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("required parameter '%s' is missing", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter '%s' must be a string", key)
	}
	if s == "" {
		return "", fmt.Errorf("parameter '%s' cannot be empty", key)
	}
	return s, nil
}

// GetString fetches an optional string parameter.
func GetString(params map[string]any, key, defaultValue string) string {
	v, ok := params[key]
	if !ok {
		return defaultValue
	}
	s, ok := v.(string)
	if !ok {
		return defaultValue
	}
	return s
}

// GetInt fetches an optional integer parameter.
func GetInt(params map[string]any, key string, defaultValue int) int {
	v, ok := params[key]
	if !ok {
		return defaultValue
	}
	n, ok := v.(int)
	if !ok {
		return defaultValue
	}
	return n
}
