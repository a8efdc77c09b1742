// Package playbook defines the structure and parsing of junoctl playbooks.
package playbook

import (
	"fmt"
	"strings"
)

// Playbook represents a complete playbook with one or more plays.
type Playbook struct {
	// Path is the file path the playbook was loaded from.
	Path string

	// Plays is the list of plays in the playbook.
	Plays []*Play
}

// Play targets a set of devices with shared connection parameters.
type Play struct {
	// Name is an optional description of the play.
	Name string

	// Hosts lists the device hostnames or addresses to target.
	Hosts []string

	// User is the login user for every host in the play.
	User string

	// Passwd is the login password.
	Passwd string

	// Port overrides the transport default port.
	Port int

	// KeyFile is the path to an SSH private key.
	KeyFile string

	// Mode selects the transport (netconf, telnet, serial).
	Mode string

	// Timeout is the RPC timeout in seconds; zero keeps the client
	// default.
	Timeout int

	// Tasks is the list of tasks to execute on each host.
	Tasks []*Task
}

// Task represents a single task in a play.
type Task struct {
	// Name is a description of the task.
	Name string

	// Module is the name of the module to execute.
	Module string

	// Params are the parameters to pass to the module.
	Params map[string]any

	// IgnoreErrors continues with the remaining tasks even if this
	// one fails.
	IgnoreErrors bool
}

// String returns a task identifier for error messages.
func (t *Task) String() string {
	if t.Name != "" {
		return t.Name
	}
	if t.Module != "" {
		return fmt.Sprintf("unnamed %s task", t.Module)
	}
	return "unnamed task"
}

// Validate checks that the play is runnable.
func (p *Play) Validate() error {
	if len(p.Hosts) == 0 {
		return fmt.Errorf("play %q has no hosts", p.Name)
	}
	for _, h := range p.Hosts {
		if strings.TrimSpace(h) == "" {
			return fmt.Errorf("play %q has an empty host entry", p.Name)
		}
	}
	if len(p.Tasks) == 0 {
		return fmt.Errorf("play %q has no tasks", p.Name)
	}
	for _, t := range p.Tasks {
		if t.Module == "" {
			return fmt.Errorf("task %q has no module", t.String())
		}
	}
	return nil
}
